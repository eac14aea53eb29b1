package report

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/pavelanni/examprep/internal/model"
)

func sampleExport() model.HistoryExport {
	return model.HistoryExport{
		UserID:     "1",
		Email:      "student@example.com",
		ExportedAt: time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC),
		Results: []model.HistoryResult{
			{
				ID:              2,
				SubmittedAt:     time.Date(2026, 10, 14, 9, 30, 0, 0, time.UTC),
				SourceFile:      "Random",
				ScorePercent:    75,
				Passed:          true,
				DurationSeconds: 3000,
				Correct:         3,
				Questions:       4,
				Topics: []model.TopicExport{
					{ID: "collaboration", Name: "Collaboration", Total: 2, Correct: 2, Percent: 100},
					{ID: "self_service", Name: "Self Service", Total: 2, Correct: 1, Errors: 1, Percent: 50},
				},
			},
			{ID: 1, SourceFile: "set_a.pdf", ScorePercent: 40, Questions: 5, Correct: 2},
		},
	}
}

func TestParseFormat(t *testing.T) {
	for _, s := range []string{"json", "xlsx"} {
		if _, err := ParseFormat(s); err != nil {
			t.Errorf("ParseFormat(%q): %v", s, err)
		}
	}
	if _, err := ParseFormat("csv"); err == nil {
		t.Error("expected error for csv")
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, sampleExport(), FormatJSON); err != nil {
		t.Fatalf("Write: %v", err)
	}
	var got model.HistoryExport
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if len(got.Results) != 2 || got.Results[0].ScorePercent != 75 {
		t.Errorf("unexpected results: %+v", got.Results)
	}
	if buf.Bytes()[buf.Len()-1] != '\n' {
		t.Error("expected trailing newline")
	}
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, sampleExport(), FormatXLSX); err != nil {
		t.Fatalf("Write: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer f.Close()

	history, err := f.GetRows(historySheet)
	if err != nil {
		t.Fatalf("GetRows(%s): %v", historySheet, err)
	}
	if len(history) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(history))
	}
	if history[0][0] != "ID" || history[1][2] != "Random" || history[1][3] != "75" {
		t.Errorf("unexpected history rows: %v", history)
	}

	topics, err := f.GetRows(topicsSheet)
	if err != nil {
		t.Fatalf("GetRows(%s): %v", topicsSheet, err)
	}
	if len(topics) != 3 {
		t.Fatalf("expected header + 2 topic rows, got %d", len(topics))
	}
	if topics[2][1] != "self_service" || topics[2][5] != "1" {
		t.Errorf("unexpected topic rows: %v", topics)
	}
}
