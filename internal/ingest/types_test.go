package ingest

import (
	"testing"
	"time"
)

func TestFormatDay(t *testing.T) {
	tests := []struct {
		name string
		in   time.Time
		want string
	}{
		{
			name: "utc timestamp",
			in:   time.Date(2025, 3, 14, 17, 45, 3, 0, time.UTC),
			want: "2025-03-14",
		},
		{
			name: "positive offset crossing midnight",
			in:   time.Date(2025, 3, 15, 1, 30, 0, 0, time.FixedZone("CET", 3600)),
			want: "2025-03-15",
		},
		{
			name: "negative offset still previous utc day",
			in:   time.Date(2025, 3, 14, 23, 0, 0, 0, time.FixedZone("EST", -5*3600)),
			want: "2025-03-15",
		},
		{
			name: "midnight boundary",
			in:   time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
			want: "2025-01-01",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatDay(tt.in); got != tt.want {
				t.Errorf("FormatDay(%v) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
