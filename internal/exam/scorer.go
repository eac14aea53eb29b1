package exam

import (
	"slices"

	"github.com/pavelanni/examprep/internal/model"
)

// Score grades a submitted session. A question is correct only when the
// selected set equals the correct set; there is no partial credit.
//
// Every question counts towards ScorePercent, including questions whose
// topic is missing from table, so an all-correct exam always scores 100.
// Such questions are left out of ErrorsByTopic only.
func Score(s *Session, table model.TopicTable) (model.ExamResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateSubmitted {
		return model.ExamResult{}, ErrNotSubmitted
	}

	byTopic := make(map[string]model.TopicResult, len(table))
	for _, topic := range table {
		byTopic[topic.ID] = model.TopicResult{Name: topic.Name}
	}

	details := make([]model.AnswerDetail, 0, len(s.questions))
	correctCount := 0
	for i, q := range s.questions {
		userAnswer := sortedCopy(s.answers[i])
		correctAnswer := sortedCopy(q.Correct)
		isCorrect := slices.Equal(userAnswer, correctAnswer)
		if isCorrect {
			correctCount++
		}

		if tr, ok := byTopic[q.Topic]; ok {
			tr.Total++
			if isCorrect {
				tr.Correct++
			} else {
				tr.Errors++
			}
			byTopic[q.Topic] = tr
		}

		details = append(details, model.AnswerDetail{
			Question:      q.Text,
			Options:       slices.Clone(q.Options),
			UserAnswer:    userAnswer,
			CorrectAnswer: correctAnswer,
			IsCorrect:     isCorrect,
			Topic:         table.DisplayName(q.Topic),
		})
	}

	return model.ExamResult{
		ScorePercent:    percent(correctCount, len(s.questions)),
		DurationSeconds: s.durationSeconds,
		ErrorsByTopic:   byTopic,
		AnswersDetail:   details,
	}, nil
}

// Passed reports whether a score reaches the pass threshold.
func Passed(scorePercent, threshold int) bool {
	return scorePercent >= threshold
}

func percent(correct, total int) int {
	if total == 0 {
		return 0
	}
	return roundHalfUp(float64(correct) / float64(total) * 100)
}

func sortedCopy(in []int) []int {
	out := make([]int, len(in))
	copy(out, in)
	slices.Sort(out)
	return out
}
