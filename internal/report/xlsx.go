package report

import (
	"fmt"
	"io"

	"github.com/ppiankov/openplag/internal/model"
	"github.com/xuri/excelize/v2"
)

const (
	sheetSummary  = "Summary"
	sheetSources  = "Sources"
	sheetSegments = "Segments"
)

// RenderXLSX writes the report as a workbook to path
func (r *Renderer) RenderXLSX(report *model.Report, path string) error {
	f, err := r.workbook(report)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	return f.SaveAs(path)
}

// WriteXLSX streams the workbook to w
func (r *Renderer) WriteXLSX(w io.Writer, report *model.Report) error {
	f, err := r.workbook(report)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	return f.Write(w)
}

// workbook lays the report out on three sheets: overall figures, ranked
// sources with their best excerpt, and every flagged segment.
func (r *Renderer) workbook(report *model.Report) (*excelize.File, error) {
	f := excelize.NewFile()

	if err := f.SetSheetName("Sheet1", sheetSummary); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	for _, name := range []string{sheetSources, sheetSegments} {
		if _, err := f.NewSheet(name); err != nil {
			return nil, fmt.Errorf("create sheet %s: %w", name, err)
		}
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("create style: %w", err)
	}

	summary := [][]interface{}{
		{"Document", report.Name},
		{"Document ID", report.DocumentID},
		{"Overall similarity", report.OverallScore},
		{"Severity", string(report.Severity)},
		{"Segments", report.SegmentCount},
		{"Flagged segments", len(report.FlaggedSegments)},
	}
	for _, a := range report.Annotations {
		summary = append(summary, []interface{}{"Note", fmt.Sprintf("%s: %s", a.Code, a.Message)})
	}
	if report.Summary != nil {
		summary = append(summary, []interface{}{"Reviewer summary", report.Summary.Text})
	}
	if err := writeRows(f, sheetSummary, summary); err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(sheetSummary, "A1", fmt.Sprintf("A%d", len(summary)), bold); err != nil {
		return nil, err
	}

	sources := [][]interface{}{{"Rank", "Type", "Title", "URL", "ID", "Similarity", "Matched segments", "Submitted text", "Source text"}}
	for _, s := range report.Sources {
		var target, source string
		if len(s.Excerpts) > 0 {
			target, source = s.Excerpts[0].TargetText, s.Excerpts[0].SourceText
		}
		sources = append(sources, []interface{}{s.Rank, string(s.Label), s.Title, s.URL, s.ID, s.Score, s.MatchedSegments, target, source})
	}
	if err := writeRows(f, sheetSources, sources); err != nil {
		return nil, err
	}

	segments := [][]interface{}{{"Position", "Similarity", "Source type", "Source", "Submitted text", "Source text"}}
	for _, fs := range report.FlaggedSegments {
		segments = append(segments, []interface{}{fs.Position, fs.Score, string(fs.SourceLabel), fs.SourceID, fs.Text, fs.SourceText})
	}
	if err := writeRows(f, sheetSegments, segments); err != nil {
		return nil, err
	}

	for _, sheet := range []string{sheetSources, sheetSegments} {
		if err := f.SetRowStyle(sheet, 1, 1, bold); err != nil {
			return nil, err
		}
	}
	_ = f.SetColWidth(sheetSummary, "A", "A", 20)
	_ = f.SetColWidth(sheetSummary, "B", "B", 60)
	_ = f.SetColWidth(sheetSources, "H", "I", 60)
	_ = f.SetColWidth(sheetSegments, "E", "F", 60)

	return f, nil
}

func writeRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}
