package model

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultTopicsValid(t *testing.T) {
	if err := DefaultTopics.Validate(); err != nil {
		t.Fatalf("DefaultTopics.Validate: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		table   TopicTable
		wantErr bool
	}{
		{"ok", TopicTable{{ID: "a", Weight: 40}, {ID: "b", Weight: 60}}, false},
		{"fractional ok", TopicTable{{ID: "a", Weight: 19.5}, {ID: "b", Weight: 80.5}}, false},
		{"empty", TopicTable{}, true},
		{"sum below 100", TopicTable{{ID: "a", Weight: 40}, {ID: "b", Weight: 50}}, true},
		{"duplicate id", TopicTable{{ID: "a", Weight: 50}, {ID: "a", Weight: 50}}, true},
		{"empty id", TopicTable{{ID: "", Weight: 100}}, true},
		{"negative weight", TopicTable{{ID: "a", Weight: -10}, {ID: "b", Weight: 110}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.table.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseTopicTableKeepsOrder(t *testing.T) {
	data := []byte(`
topics:
  - id: zeta
    name: Zeta
    weight: 50
  - id: alpha
    name: Alpha
    weight: 50
`)
	table, err := ParseTopicTable(data)
	if err != nil {
		t.Fatalf("ParseTopicTable: %v", err)
	}
	if len(table) != 2 || table[0].ID != "zeta" || table[1].ID != "alpha" {
		t.Errorf("order not preserved: %+v", table)
	}

	if _, err := ParseTopicTable([]byte("topics:\n  - {id: a, weight: 99}\n")); err == nil {
		t.Error("expected error for weights not summing to 100")
	}
	if _, err := ParseTopicTable([]byte("topics: [")); err == nil {
		t.Error("expected error for malformed YAML")
	}
}

func TestLoadTopicTable(t *testing.T) {
	table, err := LoadTopicTable("")
	if err != nil || len(table) != len(DefaultTopics) {
		t.Fatalf("LoadTopicTable(\"\") = %d topics, %v", len(table), err)
	}

	path := filepath.Join(t.TempDir(), "topics.yaml")
	if err := os.WriteFile(path, []byte("topics:\n  - {id: only, name: Only, weight: 100}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	table, err = LoadTopicTable(path)
	if err != nil {
		t.Fatalf("LoadTopicTable: %v", err)
	}
	if len(table) != 1 || table[0].Name != "Only" {
		t.Errorf("unexpected table: %+v", table)
	}

	if _, err := LoadTopicTable(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestDisplayName(t *testing.T) {
	if got := DefaultTopics.DisplayName("instance_config"); got != "Instance Configuration" {
		t.Errorf("DisplayName(instance_config) = %q", got)
	}
	if got := DefaultTopics.DisplayName("legacy_topic"); got != "legacy_topic" {
		t.Errorf("unknown topic should fall back to its id, got %q", got)
	}
}

func TestTopicResultPercent(t *testing.T) {
	tests := []struct {
		tr   TopicResult
		want int
	}{
		{TopicResult{Total: 0}, 0},
		{TopicResult{Total: 3, Correct: 2}, 67},
		{TopicResult{Total: 8, Correct: 1}, 13},
		{TopicResult{Total: 4, Correct: 4}, 100},
	}
	for _, tt := range tests {
		if got := tt.tr.Percent(); got != tt.want {
			t.Errorf("%+v.Percent() = %d, want %d", tt.tr, got, tt.want)
		}
	}
}

func TestCorrectCount(t *testing.T) {
	r := ExamResult{AnswersDetail: []AnswerDetail{{IsCorrect: true}, {IsCorrect: false}, {IsCorrect: true}}}
	if got := r.CorrectCount(); got != 2 {
		t.Errorf("CorrectCount() = %d, want 2", got)
	}
}
