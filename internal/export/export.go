// Package export builds XLSX workbooks from CRM data.
package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/Cimminelli1982/CRM/internal/contacts"
	"github.com/Cimminelli1982/CRM/internal/ingest"
	"github.com/Cimminelli1982/CRM/internal/interactions"
)

var contactsHeader = []string{
	"First Name", "Last Name", "Mobile", "Email", "Email 2", "Email 3", "Last Interaction", "Created",
}

var contactsWidths = []float64{15, 15, 18, 28, 28, 28, 16, 12}

var interactionsHeader = []string{
	"Date", "Type", "Direction", "Note", "Contact Email", "Contact Mobile", "Source",
}

var interactionsWidths = []float64{12, 14, 10, 50, 28, 18, 10}

// Contacts renders the contact list as a workbook.
func Contacts(items []contacts.Contact) ([]byte, error) {
	rows := make([][]any, 0, len(items))
	for _, c := range items {
		lastInteraction := ""
		if !c.LastInteraction.IsZero() {
			lastInteraction = ingest.FormatDay(c.LastInteraction)
		}
		rows = append(rows, []any{
			c.FirstName, c.LastName, c.Mobile, c.Email, c.Email2, c.Email3,
			lastInteraction, ingest.FormatDay(c.CreatedAt),
		})
	}
	return build("Contacts", contactsHeader, contactsWidths, rows)
}

// Interactions renders the interaction log as a workbook.
func Interactions(items []interactions.Interaction) ([]byte, error) {
	rows := make([][]any, 0, len(items))
	for _, in := range items {
		rows = append(rows, []any{
			ingest.FormatDay(in.Date), in.Kind, in.Direction, in.Note,
			in.ContactEmail, in.ContactMobile, in.Source,
		})
	}
	return build("Interactions", interactionsHeader, interactionsWidths, rows)
}

func build(sheetName string, headers []string, widths []float64, rows [][]any) ([]byte, error) {
	f := excelize.NewFile()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	_ = f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("create header style: %w", err)
	}

	for col, header := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("header coordinates: %w", err)
		}
		if err := f.SetCellValue(sheetName, cell, header); err != nil {
			f.Close()
			return nil, fmt.Errorf("set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(sheetName, cell, cell, headerStyle); err != nil {
			f.Close()
			return nil, fmt.Errorf("set header style: %w", err)
		}
	}

	for i, width := range widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("column name: %w", err)
		}
		if err := f.SetColWidth(sheetName, col, col, width); err != nil {
			f.Close()
			return nil, fmt.Errorf("set column width: %w", err)
		}
	}

	for rowIdx, row := range rows {
		for colIdx, value := range row {
			cell, err := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			if err != nil {
				f.Close()
				return nil, fmt.Errorf("cell coordinates: %w", err)
			}
			if err := f.SetCellValue(sheetName, cell, value); err != nil {
				f.Close()
				return nil, fmt.Errorf("set cell %s: %w", cell, err)
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("close workbook: %w", err)
	}
	return buf.Bytes(), nil
}
