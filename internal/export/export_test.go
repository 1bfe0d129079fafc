package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/Cimminelli1982/CRM/internal/contacts"
	"github.com/Cimminelli1982/CRM/internal/interactions"
)

func TestContactsWorkbook(t *testing.T) {
	items := []contacts.Contact{
		{
			FirstName:       "Ada",
			LastName:        "Lovelace",
			Mobile:          "+15551234567",
			Email:           "ada@client.io",
			LastInteraction: time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC),
			CreatedAt:       time.Date(2025, 1, 2, 10, 0, 0, 0, time.UTC),
		},
		{
			FirstName: "Leo",
			CreatedAt: time.Date(2025, 2, 3, 10, 0, 0, 0, time.UTC),
		},
	}

	data, err := Contacts(items)
	if err != nil {
		t.Fatalf("Contacts: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("reopen workbook: %v", err)
	}
	defer f.Close()

	got, err := f.GetCellValue("Contacts", "A1")
	if err != nil || got != "First Name" {
		t.Errorf("A1 = %q (err %v), want First Name", got, err)
	}
	got, _ = f.GetCellValue("Contacts", "D2")
	if got != "ada@client.io" {
		t.Errorf("D2 = %q, want ada@client.io", got)
	}
	got, _ = f.GetCellValue("Contacts", "G2")
	if got != "2025-03-14" {
		t.Errorf("G2 = %q, want 2025-03-14", got)
	}
	// A contact that was never touched exports a blank last interaction.
	got, _ = f.GetCellValue("Contacts", "G3")
	if got != "" {
		t.Errorf("G3 = %q, want empty", got)
	}
}

func TestInteractionsWorkbook(t *testing.T) {
	items := []interactions.Interaction{
		{
			Date:          time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC),
			Kind:          interactions.KindWhatsApp,
			Direction:     interactions.DirectionInbound,
			Note:          "hi",
			ContactMobile: "+15551234567",
			Source:        "whatsapp",
		},
	}

	data, err := Interactions(items)
	if err != nil {
		t.Fatalf("Interactions: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("reopen workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("Interactions")
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want header plus one", len(rows))
	}
	if rows[1][0] != "2025-03-14" || rows[1][1] != "WhatsApp" || rows[1][2] != "Inbound" {
		t.Errorf("data row = %v", rows[1])
	}
}

func TestEmptyWorkbookStillHasHeader(t *testing.T) {
	data, err := Interactions(nil)
	if err != nil {
		t.Fatalf("Interactions: %v", err)
	}
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("reopen workbook: %v", err)
	}
	defer f.Close()

	got, _ := f.GetCellValue("Interactions", "A1")
	if got != "Date" {
		t.Errorf("A1 = %q, want Date", got)
	}
}
