package bank

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/pavelanni/examprep/internal/model"
)

// LoadError reports an unreachable or malformed question feed.
type LoadError struct {
	Source string
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load questions from %s: %v", e.Source, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Bank holds the normalized question set. It is filled at most once; after
// a successful Load it is read-only and safe for concurrent use.
type Bank struct {
	mu        sync.RWMutex
	questions []model.Question
	checksum  string
	validate  *validator.Validate
}

// New returns an empty bank.
func New() *Bank {
	return &Bank{validate: validator.New()}
}

// Load fetches and normalizes the feed. A second call on a loaded bank is a
// no-op. A failed call leaves the bank empty so it can be retried.
func (b *Bank) Load(ctx context.Context, src Source) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.questions) > 0 {
		slog.Debug("question bank already loaded, skipping", "source", src.String())
		return nil
	}

	data, err := src.Fetch(ctx)
	if err != nil {
		return &LoadError{Source: src.String(), Err: err}
	}
	questions, err := b.decode(data)
	if err != nil {
		return &LoadError{Source: src.String(), Err: err}
	}
	sum := sha256.Sum256(data)
	b.questions = questions
	b.checksum = hex.EncodeToString(sum[:])
	slog.Info("loaded questions", "source", src.String(), "count", len(questions))
	return nil
}

func (b *Bank) decode(data []byte) ([]model.Question, error) {
	var raw []model.QuestionImport
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode question array: %w", err)
	}
	if len(raw) == 0 {
		return nil, errors.New("question feed is empty")
	}

	questions := make([]model.Question, 0, len(raw))
	for i, qi := range raw {
		if err := b.validate.Struct(qi); err != nil {
			return nil, fmt.Errorf("question %d: %w", i, err)
		}
		correct, err := normalizeCorrect(qi.Correct, len(qi.Options))
		if err != nil {
			return nil, fmt.Errorf("question %d: %w", i, err)
		}
		questions = append(questions, model.Question{
			Text:       qi.Question,
			Options:    LabelOptions(qi.Options),
			Correct:    correct,
			Topic:      qi.Topic,
			SourceFile: qi.SourceFile,
		})
	}
	return questions, nil
}

// normalizeCorrect sorts and de-duplicates the correct indices and checks
// they address existing options.
func normalizeCorrect(correct []int, numOptions int) ([]int, error) {
	out := make([]int, 0, len(correct))
	seen := make(map[int]bool, len(correct))
	for _, c := range correct {
		if c < 0 || c >= numOptions {
			return nil, fmt.Errorf("correct index %d out of range [0,%d)", c, numOptions)
		}
		if seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	sort.Ints(out)
	return out, nil
}

// LabelOptions prefixes options with "A. ", "B. ", ... in order. Options that
// already carry their own label are kept as is, so the transform is
// idempotent.
func LabelOptions(options []string) []string {
	out := make([]string, len(options))
	for i, opt := range options {
		label := OptionLabel(i) + ". "
		if strings.HasPrefix(opt, label) {
			out[i] = opt
			continue
		}
		out[i] = label + opt
	}
	return out
}

// OptionLabel returns the letter for the option at index i.
func OptionLabel(i int) string {
	return string(rune('A' + i))
}

// Len returns the number of loaded questions.
func (b *Bank) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.questions)
}

// Checksum returns the SHA-256 of the raw feed, empty before a load.
func (b *Bank) Checksum() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.checksum
}

// QuestionsBySource returns the full bank for model.RandomSource (or an
// empty id) and exactly the questions of that source otherwise. The
// returned slice is a copy.
func (b *Bank) QuestionsBySource(source string) []model.Question {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if source == "" || source == model.RandomSource {
		out := make([]model.Question, len(b.questions))
		copy(out, b.questions)
		return out
	}
	var out []model.Question
	for _, q := range b.questions {
		if q.SourceFile == source {
			out = append(out, q)
		}
	}
	return out
}

// ByTopic groups the whole bank by topic id, preserving bank order.
func (b *Bank) ByTopic() map[string][]model.Question {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make(map[string][]model.Question)
	for _, q := range b.questions {
		out[q.Topic] = append(out[q.Topic], q)
	}
	return out
}

// DistinctSources returns the sorted set of source ids present in the bank.
func (b *Bank) DistinctSources() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	seen := make(map[string]bool)
	var sources []string
	for _, q := range b.questions {
		if !seen[q.SourceFile] {
			seen[q.SourceFile] = true
			sources = append(sources, q.SourceFile)
		}
	}
	sort.Strings(sources)
	return sources
}
