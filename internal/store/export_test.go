package store

import (
	"bytes"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/ppiankov/cvtriage/internal/model"
)

func TestExportXLSX(t *testing.T) {
	candidates := []*Candidate{
		{
			Record: &model.Record{
				Nombre: "Ana López", Email: "ana@example.com", Match: 91,
				Seniority: "Senior", Skills: []string{"Go", "SQL"},
			},
			CreatedAt: time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC),
		},
		{
			Record: &model.Record{Nombre: model.UnknownName, Error: "no valid JSON object in model output"},
		},
	}

	var buf bytes.Buffer
	if err := ExportXLSX(&buf, candidates); err != nil {
		t.Fatalf("ExportXLSX failed: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("spreadsheet does not open: %v", err)
	}
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows(exportSheet)
	if err != nil {
		t.Fatalf("GetRows failed: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(rows))
	}
	if rows[0][0] != "Name" || rows[0][2] != "Match" {
		t.Errorf("unexpected header: %v", rows[0])
	}

	ana := rows[1]
	if ana[0] != "Ana López" || ana[2] != "91" || ana[5] != "Go, SQL" || ana[10] != "2026-03-01 09:30" {
		t.Errorf("unexpected row: %v", ana)
	}

	failed := rows[2]
	if failed[2] != "" || failed[len(failed)-1] != "no valid JSON object in model output" {
		t.Errorf("unexpected failed row: %v", failed)
	}
}

func TestExportXLSX_Empty(t *testing.T) {
	var buf bytes.Buffer
	if err := ExportXLSX(&buf, nil); err != nil {
		t.Fatalf("ExportXLSX failed: %v", err)
	}
	if buf.Len() == 0 {
		t.Error("expected a spreadsheet with only the header")
	}
}
