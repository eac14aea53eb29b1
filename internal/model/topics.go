package model

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

// Topic is one category of the fixed topic set with its exam weight in percent.
type Topic struct {
	ID     string  `yaml:"id" json:"id"`
	Name   string  `yaml:"name" json:"name"`
	Weight float64 `yaml:"weight" json:"weight"`
}

// TopicTable is the ordered topic set. Order matters: it drives planner
// tie-breaks and the order of per-topic statistics.
type TopicTable []Topic

// DefaultTopics is the built-in weight table.
var DefaultTopics = TopicTable{
	{ID: "platform_overview", Name: "Platform Overview and Navigation", Weight: 6},
	{ID: "instance_config", Name: "Instance Configuration", Weight: 10},
	{ID: "collaboration", Name: "Configuring Applications for Collaboration", Weight: 19.5},
	{ID: "self_service", Name: "Self Service & Automation", Weight: 19.5},
	{ID: "database_security", Name: "Database Management and Platform Security", Weight: 30},
	{ID: "migration_integration", Name: "Data Migration and Integration", Weight: 15},
}

const weightEpsilon = 1e-9

// Validate checks that topic ids are unique and non-empty, weights are not
// negative and sum to 100.
func (t TopicTable) Validate() error {
	if len(t) == 0 {
		return fmt.Errorf("topic table is empty")
	}
	seen := make(map[string]bool, len(t))
	var sum float64
	for _, topic := range t {
		if topic.ID == "" {
			return fmt.Errorf("topic with empty id")
		}
		if seen[topic.ID] {
			return fmt.Errorf("duplicate topic %q", topic.ID)
		}
		seen[topic.ID] = true
		if topic.Weight < 0 {
			return fmt.Errorf("topic %q has negative weight %v", topic.ID, topic.Weight)
		}
		sum += topic.Weight
	}
	if math.Abs(sum-100) > weightEpsilon {
		return fmt.Errorf("topic weights sum to %v, want 100", sum)
	}
	return nil
}

// Lookup returns the topic with the given id.
func (t TopicTable) Lookup(id string) (Topic, bool) {
	for _, topic := range t {
		if topic.ID == id {
			return topic, true
		}
	}
	return Topic{}, false
}

// DisplayName returns the topic name, or the id itself for unknown topics.
func (t TopicTable) DisplayName(id string) string {
	if topic, ok := t.Lookup(id); ok && topic.Name != "" {
		return topic.Name
	}
	return id
}

type topicFile struct {
	Topics TopicTable `yaml:"topics"`
}

// ParseTopicTable decodes a YAML topic table and validates it.
func ParseTopicTable(data []byte) (TopicTable, error) {
	var f topicFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse topic table: %w", err)
	}
	if err := f.Topics.Validate(); err != nil {
		return nil, err
	}
	return f.Topics, nil
}

// LoadTopicTable reads a YAML topic table from path. An empty path yields
// DefaultTopics.
func LoadTopicTable(path string) (TopicTable, error) {
	if path == "" {
		return DefaultTopics, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return ParseTopicTable(data)
}
