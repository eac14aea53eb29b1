package exam

import "slices"

// QuestionView is the displayable part of a question. It never carries the
// correct answer.
type QuestionView struct {
	Index          int      `json:"index"`
	Text           string   `json:"text"`
	Topic          string   `json:"topic"`
	TopicName      string   `json:"topic_name"`
	Options        []string `json:"options"`
	MultipleAnswer bool     `json:"multiple_answer"`
	Selected       []int    `json:"selected"`
	Flagged        bool     `json:"flagged"`
}

// NavItem is one entry of the question navigator.
type NavItem struct {
	Index    int  `json:"index"`
	Current  bool `json:"current"`
	Answered bool `json:"answered"`
	Flagged  bool `json:"flagged"`
}

// Snapshot is a consistent read-only copy of the session state.
type Snapshot struct {
	Source           string       `json:"source"`
	State            State        `json:"state"`
	CurrentIndex     int          `json:"current_index"`
	Total            int          `json:"total"`
	Answered         int          `json:"answered"`
	Flagged          int          `json:"flagged"`
	RemainingSeconds int          `json:"remaining_seconds"`
	Question         QuestionView `json:"question"`
	Navigator        []NavItem    `json:"navigator"`
}

// Snapshot copies the session state under one lock. topicName resolves the
// display name of a topic id and may be nil.
func (s *Session) Snapshot(topicName func(string) string) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	q := s.questions[s.current]
	name := q.Topic
	if topicName != nil {
		name = topicName(q.Topic)
	}

	nav := make([]NavItem, len(s.questions))
	for i := range s.questions {
		nav[i] = NavItem{
			Index:    i,
			Current:  i == s.current,
			Answered: len(s.answers[i]) > 0,
			Flagged:  s.flagged[i],
		}
	}

	return Snapshot{
		Source:           s.source,
		State:            s.state,
		CurrentIndex:     s.current,
		Total:            len(s.questions),
		Answered:         len(s.answers),
		Flagged:          len(s.flagged),
		RemainingSeconds: s.remainingSeconds,
		Question: QuestionView{
			Index:          s.current,
			Text:           q.Text,
			Topic:          q.Topic,
			TopicName:      name,
			Options:        slices.Clone(q.Options),
			MultipleAnswer: !q.SingleAnswer(),
			Selected:       slices.Clone(s.answers[s.current]),
			Flagged:        s.flagged[s.current],
		},
		Navigator: nav,
	}
}
