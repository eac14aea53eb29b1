// Package report renders exported exam history as JSON or an Excel workbook.
package report

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/pavelanni/examprep/internal/model"
)

const (
	historySheet = "History"
	topicsSheet  = "Topics"
)

// Format is an export file format.
type Format string

const (
	FormatJSON Format = "json"
	FormatXLSX Format = "xlsx"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatJSON, FormatXLSX:
		return Format(s), nil
	}
	return "", fmt.Errorf("unknown export format %q (want json or xlsx)", s)
}

// Write renders the export in the given format.
func Write(w io.Writer, export model.HistoryExport, format Format) error {
	switch format {
	case FormatXLSX:
		return WriteXLSX(w, export)
	default:
		return WriteJSON(w, export)
	}
}

// WriteJSON writes indented JSON followed by a newline.
func WriteJSON(w io.Writer, export model.HistoryExport) error {
	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	_, err = fmt.Fprintln(w)
	return err
}

var (
	historyHeader = []any{"ID", "Submitted", "Source", "Score %", "Passed", "Correct", "Questions", "Duration (s)"}
	topicsHeader  = []any{"Result ID", "Topic", "Name", "Total", "Correct", "Errors", "Percent"}
)

// WriteXLSX writes a workbook with one row per result on the History sheet
// and one row per result topic on the Topics sheet.
func WriteXLSX(w io.Writer, export model.HistoryExport) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", historySheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(topicsSheet); err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}

	if err := setRow(f, historySheet, 1, historyHeader); err != nil {
		return err
	}
	if err := setRow(f, topicsSheet, 1, topicsHeader); err != nil {
		return err
	}

	topicRow := 2
	for i, r := range export.Results {
		row := []any{
			r.ID,
			r.SubmittedAt.Format("2006-01-02 15:04:05"),
			r.SourceFile,
			r.ScorePercent,
			r.Passed,
			r.Correct,
			r.Questions,
			r.DurationSeconds,
		}
		if err := setRow(f, historySheet, i+2, row); err != nil {
			return err
		}
		for _, t := range r.Topics {
			row := []any{r.ID, t.ID, t.Name, t.Total, t.Correct, t.Errors, t.Percent}
			if err := setRow(f, topicsSheet, topicRow, row); err != nil {
				return err
			}
			topicRow++
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("write %s row %d: %w", sheet, row, err)
	}
	return nil
}
