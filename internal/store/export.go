package store

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

const exportSheet = "Candidates"

var exportHeaders = []string{
	"Name", "Email", "Match", "Seniority", "Professional Area",
	"Skills", "Profile", "Experience", "Role", "Source", "Analyzed", "Error",
}

// ExportXLSX writes candidates as a spreadsheet, one row per candidate
func ExportXLSX(w io.Writer, candidates []*Candidate) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	for i, h := range exportHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(exportSheet, cell, h)
	}

	for r, c := range candidates {
		rec := c.Record
		row := r + 2
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(exportSheet, cell, v)
		}

		write(1, rec.Nombre)
		write(2, rec.Email)
		if !rec.Failed() {
			write(3, rec.Match)
		}
		write(4, rec.Seniority)
		write(5, rec.AreaProfesional)
		write(6, strings.Join(rec.Skills, ", "))
		write(7, rec.Perfil)
		write(8, rec.Experiencia)
		write(9, rec.Role)
		write(10, rec.Source)
		if !c.CreatedAt.IsZero() {
			write(11, c.CreatedAt.UTC().Format("2006-01-02 15:04"))
		}
		write(12, rec.Error)
	}

	_ = f.SetColWidth(exportSheet, "A", "B", 28)
	_ = f.SetColWidth(exportSheet, "C", "D", 12)
	_ = f.SetColWidth(exportSheet, "E", "F", 32)
	_ = f.SetColWidth(exportSheet, "G", "H", 60)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write spreadsheet: %w", err)
	}
	return nil
}
