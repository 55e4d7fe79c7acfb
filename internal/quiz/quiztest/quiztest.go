// Package quiztest builds quiz fixtures for tests.
package quiztest

import (
	"github.com/mind-engage/mindengage-quiz/internal/quiz"
)

// Question ids of the Sample quiz.
const (
	QChoice    int64 = 1
	QTrueFalse int64 = 2
	QMulti     int64 = 3
	QBlank     int64 = 4
	QOrdering  int64 = 5
	QMatching  int64 = 6
)

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }

// Sample returns a prepared quiz with one question of every type. The first
// two sit in a passage group; the rest are standalone.
func Sample(id string) quiz.Quiz {
	matching := quiz.MatchingSpec{
		LeftTexts:    []string{"hello", "book"},
		RightTexts:   []string{"a greeting", "something to read"},
		CorrectPairs: map[string]string{"hello": "a greeting", "book": "something to read"},
	}
	matchCorrect, matchMeta := matching.Encode()

	q := quiz.Quiz{
		ID:                 id,
		Title:              "Sample quiz",
		ModuleID:           "module-1",
		TotalPossibleScore: 6,
		PassingScore:       floatPtr(4),
		Settings: quiz.Settings{
			ShuffleQuestions:       true,
			ShuffleAnswers:         true,
			ShowAnswersAfterSubmit: true,
			ShowScoreImmediately:   true,
			MaxAttempts:            intPtr(3),
		},
		Sections: []quiz.QuizSection{{
			ID:    "s1",
			Title: "Section one",
			Groups: []quiz.QuizGroup{{
				ID:      "g1",
				Passage: "Paris is the capital of France.",
				Questions: []quiz.Question{
					{ID: QChoice, Type: quiz.MultipleChoice, Text: "Capital of France?", Points: 1, Options: []quiz.AnswerOption{
						{ID: 11, Text: "Paris", IsCorrect: true}, {ID: 12, Text: "Rome"}, {ID: 13, Text: "Berlin"},
					}},
					{ID: QTrueFalse, Type: quiz.TrueFalse, Text: "Paris is in France.", Points: 1, Options: []quiz.AnswerOption{
						{ID: 21, Text: "True", IsCorrect: true}, {ID: 22, Text: "False"},
					}},
				},
			}},
			Questions: []quiz.Question{
				{ID: QMulti, Type: quiz.MultipleAnswers, Text: "Pick the primes", Points: 1, Options: []quiz.AnswerOption{
					{ID: 31, Text: "2", IsCorrect: true}, {ID: 32, Text: "3", IsCorrect: true}, {ID: 33, Text: "4"},
				}},
				{ID: QBlank, Type: quiz.FillBlank, Text: "Plants make food by ____.", Points: 1,
					CorrectAnswersJSON: quiz.FillBlankSpec{Accepted: []string{"photosynthesis"}}.Encode()},
				{ID: QOrdering, Type: quiz.Ordering, Text: "Order the morning", Points: 1,
					Options: []quiz.AnswerOption{{ID: 51, Text: "Eat breakfast"}, {ID: 52, Text: "Wake up"}, {ID: 53, Text: "Brush teeth"}},
					CorrectAnswersJSON: quiz.OrderingSpec{CorrectTextSequence: []string{"Wake up", "Brush teeth", "Eat breakfast"}}.Encode()},
				{ID: QMatching, Type: quiz.Matching, Text: "Match the words", Points: 1,
					Options: []quiz.AnswerOption{
						{ID: 61, Text: "hello"}, {ID: 62, Text: "book"}, {ID: 63, Text: "a greeting"}, {ID: 64, Text: "something to read"},
					},
					CorrectAnswersJSON: matchCorrect, MetadataJSON: matchMeta},
			},
		}},
	}
	q.Prepare()
	return q
}

// WithStandalone appends n extra single-choice standalone questions, ids
// starting at 100, so shuffled orderings have room to differ.
func WithStandalone(q quiz.Quiz, n int) quiz.Quiz {
	s := &q.Sections[0]
	for i := 0; i < n; i++ {
		id := int64(100 + i)
		s.Questions = append(s.Questions, quiz.Question{
			ID: id, Type: quiz.MultipleChoice, Text: "Extra", Points: 1,
			Options: []quiz.AnswerOption{{ID: id*10 + 1, Text: "yes", IsCorrect: true}, {ID: id*10 + 2, Text: "no"}},
		})
	}
	q.TotalQuestions = 0
	q.Prepare()
	return q
}
