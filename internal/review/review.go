// Package review builds the post-submission view of an attempt.
//
// What a student sees is decided by the quiz flags at the time the review is
// built, so changing ShowScoreImmediately or ShowAnswersAfterSubmit takes
// effect on the next view without re-grading anything.
package review

import (
	"fmt"
	"time"

	"github.com/mind-engage/mindengage-quiz/internal/answer"
	"github.com/mind-engage/mindengage-quiz/internal/attempt"
	"github.com/mind-engage/mindengage-quiz/internal/grading"
	"github.com/mind-engage/mindengage-quiz/internal/quiz"
)

var ErrNotSubmitted = attempt.ErrNotSubmitted

type Options struct {
	// IgnoreVisibility shows everything regardless of the quiz flags.
	// Used for instructor and admin views.
	IgnoreVisibility bool
}

type Score struct {
	TotalScore         float64  `json:"total_score"`
	TotalPossibleScore float64  `json:"total_possible_score"`
	Percentage         float64  `json:"percentage"`
	PassingScore       *float64 `json:"passing_score,omitempty"`
	Passed             bool     `json:"passed"`
}

type Option struct {
	ID        int64  `json:"id"`
	Text      string `json:"text"`
	IsCorrect bool   `json:"is_correct"`
}

type Question struct {
	ID            int64             `json:"id"`
	Type          quiz.QuestionType `json:"type"`
	Text          string            `json:"text"`
	Passage       string            `json:"passage,omitempty"`
	Options       []Option          `json:"options,omitempty"`
	CorrectAnswer any               `json:"correct_answer"`
	UserAnswer    any               `json:"user_answer"`
	Awarded       float64           `json:"awarded"`
	MaxPoints     float64           `json:"max_points"`
	Correct       bool              `json:"correct"`
}

type Review struct {
	AttemptID        string     `json:"attempt_id"`
	QuizID           string     `json:"quiz_id"`
	QuizTitle        string     `json:"quiz_title"`
	UserID           string     `json:"user_id"`
	AttemptNumber    int        `json:"attempt_number"`
	SubmittedAt      *time.Time `json:"submitted_at,omitempty"`
	TimeSpentSeconds int64      `json:"time_spent_seconds"`
	TeacherFeedback  string     `json:"teacher_feedback,omitempty"`
	ReviewedAt       *time.Time `json:"reviewed_at,omitempty"`
	ReviewedBy       string     `json:"reviewed_by,omitempty"`

	ScoreVisible   bool       `json:"score_visible"`
	AnswersVisible bool       `json:"answers_visible"`
	Score          *Score     `json:"score,omitempty"`
	Questions      []Question `json:"questions,omitempty"`
}

// Build assembles the review of a submitted attempt. Per-question scores come
// from the attempt's stored scores; nothing is re-graded.
func Build(q *quiz.Quiz, a attempt.Attempt, opts Options) (Review, error) {
	if a.InProgress() {
		return Review{}, ErrNotSubmitted
	}
	r := Review{
		AttemptID:        a.ID,
		QuizID:           q.ID,
		QuizTitle:        q.Title,
		UserID:           a.UserID,
		AttemptNumber:    a.AttemptNumber,
		SubmittedAt:      a.SubmittedAt,
		TimeSpentSeconds: a.TimeSpentSeconds,
		TeacherFeedback:  a.TeacherFeedback,
		ReviewedAt:       a.ReviewedAt,
		ReviewedBy:       a.ReviewedBy,
		ScoreVisible:     opts.IgnoreVisibility || q.Settings.ShowScoreImmediately,
		AnswersVisible:   opts.IgnoreVisibility || q.Settings.ShowAnswersAfterSubmit,
	}
	if r.ScoreVisible {
		r.Score = &Score{
			TotalScore:         a.TotalScore,
			TotalPossibleScore: q.TotalPossibleScore,
			Percentage:         grading.Percentage(a.TotalScore, q.TotalPossibleScore),
			PassingScore:       q.PassingScore,
			Passed:             grading.IsPassed(a.TotalScore, q.PassingScore),
		}
	}
	if !r.AnswersVisible {
		return r, nil
	}

	scores, err := grading.DecodeScores(a.ScoresJSON)
	if err != nil {
		return Review{}, fmt.Errorf("review %s: %w", a.ID, err)
	}
	answers, err := answer.DecodeSnapshot(a.AnswersSnapshot)
	if err != nil {
		return Review{}, fmt.Errorf("review %s: %w", a.ID, err)
	}

	// Follow the order the student was shown.
	p := attempt.Present(q, a.ID)
	for _, s := range p.Sections {
		for _, g := range s.Groups {
			for _, pq := range g.Questions {
				r.Questions = append(r.Questions, buildQuestion(q, pq, g.Passage, scores, answers))
			}
		}
		for _, pq := range s.Questions {
			r.Questions = append(r.Questions, buildQuestion(q, pq, "", scores, answers))
		}
	}
	return r, nil
}

func buildQuestion(q *quiz.Quiz, pq attempt.PresentedQuestion, passage string, scores grading.Scores, answers answer.Snapshot) Question {
	src, _ := q.Question(pq.ID)
	correct := map[int64]bool{}
	for _, o := range src.Options {
		correct[o.ID] = o.IsCorrect
	}
	out := Question{
		ID:            pq.ID,
		Type:          pq.Type,
		Text:          pq.Text,
		Passage:       passage,
		CorrectAnswer: correctAnswer(src),
		UserAnswer:    answers[pq.ID].Value(),
		Awarded:       scores[pq.ID],
		MaxPoints:     src.Points,
	}
	out.Correct = out.Awarded > 0
	for _, o := range pq.Options {
		out.Options = append(out.Options, Option{ID: o.ID, Text: o.Text, IsCorrect: correct[o.ID]})
	}
	return out
}

// correctAnswer expresses the key in the same shape a student submits.
func correctAnswer(q *quiz.Question) any {
	switch q.Type {
	case quiz.MultipleChoice, quiz.TrueFalse:
		if ids := grading.CorrectOptionIDs(q); len(ids) > 0 {
			return ids[0]
		}
	case quiz.MultipleAnswers:
		return grading.CorrectOptionIDs(q)
	case quiz.FillBlank:
		if q.FillBlank != nil {
			return q.FillBlank.Accepted
		}
	case quiz.Ordering:
		return grading.ResolveOrdering(q)
	case quiz.Matching:
		return answer.IntMap(grading.ResolveMatching(q)).Value()
	}
	return nil
}
