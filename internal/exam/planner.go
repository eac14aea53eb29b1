package exam

import (
	"math"
	"sort"

	"github.com/pavelanni/examprep/internal/model"
)

// Quota is the number of questions to draw from one topic.
type Quota struct {
	Topic string `json:"topic"`
	Count int    `json:"count"`
}

// Quotas lists one quota per topic in topic-table order.
type Quotas []Quota

// Sum returns the total number of questions planned.
func (q Quotas) Sum() int {
	n := 0
	for _, quota := range q {
		n += quota.Count
	}
	return n
}

// Map returns the quotas keyed by topic id.
func (q Quotas) Map() map[string]int {
	m := make(map[string]int, len(q))
	for _, quota := range q {
		m[quota.Topic] = quota.Count
	}
	return m
}

// Plan splits total into per-topic quotas by weight. Each quota is the
// rounded share of total; the rounding drift is applied to the largest
// quota (first in table order on ties) so that the quotas sum to total.
// Quotas never go negative.
func Plan(total int, table model.TopicTable) Quotas {
	if total < 0 {
		total = 0
	}
	quotas := make(Quotas, len(table))
	sum := 0
	for i, topic := range table {
		n := roundHalfUp(topic.Weight / 100 * float64(total))
		quotas[i] = Quota{Topic: topic.ID, Count: n}
		sum += n
	}
	if diff := total - sum; diff != 0 && len(quotas) > 0 {
		quotas.adjust(diff)
	}
	return quotas
}

func (q Quotas) adjust(diff int) {
	order := make([]int, len(q))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return q[order[a]].Count > q[order[b]].Count
	})

	if diff > 0 {
		q[order[0]].Count += diff
		return
	}
	for _, i := range order {
		if diff == 0 {
			return
		}
		take := min(q[i].Count, -diff)
		q[i].Count -= take
		diff += take
	}
}

func roundHalfUp(x float64) int {
	return int(math.Floor(x + 0.5))
}
