package exam

import (
	"math/rand/v2"
	"sync"

	"github.com/pavelanni/examprep/internal/model"
)

// QuestionSource is the part of the question bank the assembler draws from.
type QuestionSource interface {
	QuestionsBySource(source string) []model.Question
	ByTopic() map[string][]model.Question
}

// Assembler draws exam question sets.
type Assembler struct {
	table model.TopicTable

	mu  sync.Mutex
	rng *rand.Rand
}

// NewAssembler creates an assembler for the given topic table. A nil rng
// uses a randomly seeded generator.
func NewAssembler(table model.TopicTable, rng *rand.Rand) *Assembler {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Assembler{table: table, rng: rng}
}

// Assemble returns a freshly allocated, shuffled question list.
//
// For a specific source every question of that source is returned and total
// is ignored. For model.RandomSource (or an empty filter) the exam holds at
// most min(total, bank size) questions drawn per topic quota; topics short
// of questions contribute what they have.
func (a *Assembler) Assemble(total int, source string, src QuestionSource) ([]model.Question, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	var selected []model.Question
	if source != "" && source != model.RandomSource {
		selected = src.QuestionsBySource(source)
		a.shuffle(selected)
	} else {
		selected = a.sample(total, src)
	}

	if len(selected) == 0 {
		return nil, ErrNoQuestionsAvailable
	}
	return selected, nil
}

func (a *Assembler) sample(total int, src QuestionSource) []model.Question {
	available := len(src.QuestionsBySource(model.RandomSource))
	quotas := Plan(min(total, available), a.table)
	byTopic := src.ByTopic()

	var selected []model.Question
	for _, quota := range quotas {
		pool := append([]model.Question(nil), byTopic[quota.Topic]...)
		a.shuffle(pool)
		selected = append(selected, pool[:min(quota.Count, len(pool))]...)
	}
	a.shuffle(selected)
	return selected
}

// shuffle is a Fisher-Yates permutation.
func (a *Assembler) shuffle(qs []model.Question) {
	a.rng.Shuffle(len(qs), func(i, j int) {
		qs[i], qs[j] = qs[j], qs[i]
	})
}
