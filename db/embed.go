// Package db ships the SQL migrations inside the binary so the migrate
// command needs no files on disk.
package db

import (
	"embed"
	"io/fs"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrations returns the embedded migration files rooted at the directory
// the iofs migration source expects.
func Migrations() (fs.FS, error) {
	return fs.Sub(migrationsFS, "migrations")
}
