// Package admin is the instructor and administrator side of attempts:
// oversight listings, statistics, review without visibility gates, teacher
// feedback and force-submit.
package admin

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mind-engage/mindengage-quiz/internal/attempt"
	"github.com/mind-engage/mindengage-quiz/internal/grading"
	"github.com/mind-engage/mindengage-quiz/internal/logger"
	"github.com/mind-engage/mindengage-quiz/internal/quiz"
	"github.com/mind-engage/mindengage-quiz/internal/review"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

type Page[T any] struct {
	Items      []T `json:"items"`
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// Summary is an attempt with its derived figures. Percentage and Passed are
// only meaningful once the attempt is submitted.
type Summary struct {
	attempt.Attempt
	Percentage float64 `json:"percentage"`
	Passed     bool    `json:"passed"`
}

type ScoreRow struct {
	AttemptID        string    `json:"attempt_id"`
	UserID           string    `json:"user_id"`
	AttemptNumber    int       `json:"attempt_number"`
	TotalScore       float64   `json:"total_score"`
	Percentage       float64   `json:"percentage"`
	Passed           bool      `json:"passed"`
	SubmittedAt      time.Time `json:"submitted_at"`
	TimeSpentSeconds int64     `json:"time_spent_seconds"`
	Reviewed         bool      `json:"reviewed"`
}

type Stats struct {
	QuizID                  string   `json:"quiz_id"`
	TotalAttempts           int      `json:"total_attempts"`
	InProgress              int      `json:"in_progress"`
	Submitted               int      `json:"submitted"`
	AverageScore            float64  `json:"average_score"`
	HighestScore            float64  `json:"highest_score"`
	LowestScore             float64  `json:"lowest_score"`
	AveragePercentage       float64  `json:"average_percentage"`
	TotalPossibleScore      float64  `json:"total_possible_score"`
	PassingScore            *float64 `json:"passing_score,omitempty"`
	PassCount               *int     `json:"pass_count,omitempty"`
	PassRate                *float64 `json:"pass_rate,omitempty"`
	AverageTimeSpentSeconds float64  `json:"average_time_spent_seconds"`
}

type Service struct {
	quizzes   quiz.Repository
	store     attempt.Store
	lifecycle *attempt.Service
	log       *logger.Logger
	now       func() time.Time
}

func NewService(quizzes quiz.Repository, store attempt.Store, lifecycle *attempt.Service, log *logger.Logger) *Service {
	return &Service{
		quizzes:   quizzes,
		store:     store,
		lifecycle: lifecycle,
		log:       log.With("service", "AttemptAdminService"),
		now:       time.Now,
	}
}

// ListAttempts returns every attempt at a quiz, newest first.
func (s *Service) ListAttempts(ctx context.Context, quizID string) ([]Summary, error) {
	q, err := s.quizzes.Get(ctx, quizID)
	if err != nil {
		return nil, err
	}
	list, _, err := s.store.List(ctx, attempt.ListFilter{QuizID: quizID})
	if err != nil {
		return nil, err
	}
	return summarize(&q, list), nil
}

// ListAttemptsPaged pages through a quiz's attempts, optionally filtered by status.
func (s *Service) ListAttemptsPaged(ctx context.Context, quizID string, status attempt.Status, page, pageSize int) (Page[Summary], error) {
	q, err := s.quizzes.Get(ctx, quizID)
	if err != nil {
		return Page[Summary]{}, err
	}
	page, pageSize = normalizePage(page, pageSize)
	list, total, err := s.store.List(ctx, attempt.ListFilter{QuizID: quizID, Status: status, Page: page, PageSize: pageSize})
	if err != nil {
		return Page[Summary]{}, err
	}
	return newPage(summarize(&q, list), page, pageSize, total), nil
}

// Review shows the full breakdown regardless of the quiz visibility flags.
func (s *Service) Review(ctx context.Context, attemptID string) (review.Review, error) {
	a, err := s.store.Get(ctx, attemptID)
	if err != nil {
		return review.Review{}, err
	}
	q, err := s.quizzes.Get(ctx, a.QuizID)
	if err != nil {
		return review.Review{}, err
	}
	return review.Build(&q, a, review.Options{IgnoreVisibility: true})
}

func (s *Service) ForceSubmit(ctx context.Context, actorID, attemptID string) (attempt.Outcome, error) {
	out, err := s.lifecycle.ForceSubmit(ctx, actorID, attemptID)
	if err != nil {
		return attempt.Outcome{}, err
	}
	s.log.Info("attempt force-submitted", "attempt_id", attemptID, "actor_id", actorID, "user_id", out.Attempt.UserID)
	return out, nil
}

func (s *Service) QuizStats(ctx context.Context, quizID string) (Stats, error) {
	q, err := s.quizzes.Get(ctx, quizID)
	if err != nil {
		return Stats{}, err
	}
	ag, err := s.store.Aggregate(ctx, quizID, q.PassingScore)
	if err != nil {
		return Stats{}, err
	}
	st := Stats{
		QuizID:                  quizID,
		TotalAttempts:           ag.Total,
		InProgress:              ag.InProgress,
		Submitted:               ag.Submitted,
		AverageScore:            round2(ag.AvgScore),
		HighestScore:            ag.MaxScore,
		LowestScore:             ag.MinScore,
		AveragePercentage:       grading.Percentage(ag.AvgScore, q.TotalPossibleScore),
		TotalPossibleScore:      q.TotalPossibleScore,
		PassingScore:            q.PassingScore,
		AverageTimeSpentSeconds: round2(ag.AvgTimeSpent),
	}
	if q.PassingScore != nil {
		n := ag.Passed
		st.PassCount = &n
		rate := 0.0
		if ag.Submitted > 0 {
			rate = grading.Percentage(float64(n), float64(ag.Submitted))
		}
		st.PassRate = &rate
	}
	return st, nil
}

// Scores lists submitted attempts with their derived percentage and pass flag.
func (s *Service) Scores(ctx context.Context, quizID string) ([]ScoreRow, error) {
	q, err := s.quizzes.Get(ctx, quizID)
	if err != nil {
		return nil, err
	}
	list, _, err := s.store.List(ctx, attempt.ListFilter{QuizID: quizID, Status: attempt.StatusSubmitted})
	if err != nil {
		return nil, err
	}
	return scoreRows(&q, list), nil
}

func (s *Service) ScoresPaged(ctx context.Context, quizID string, page, pageSize int) (Page[ScoreRow], error) {
	q, err := s.quizzes.Get(ctx, quizID)
	if err != nil {
		return Page[ScoreRow]{}, err
	}
	page, pageSize = normalizePage(page, pageSize)
	list, total, err := s.store.List(ctx, attempt.ListFilter{
		QuizID: quizID, Status: attempt.StatusSubmitted, Page: page, PageSize: pageSize,
	})
	if err != nil {
		return Page[ScoreRow]{}, err
	}
	return newPage(scoreRows(&q, list), page, pageSize, total), nil
}

// SaveTeacherFeedback records a teacher's review of a submitted attempt.
// Saving again replaces the previous feedback.
func (s *Service) SaveTeacherFeedback(ctx context.Context, attemptID, feedback, reviewedBy string) (attempt.Attempt, error) {
	feedback = strings.TrimSpace(feedback)
	if reviewedBy == "" {
		return attempt.Attempt{}, fmt.Errorf("teacher feedback: reviewer required")
	}
	if err := s.store.SaveFeedback(ctx, attemptID, feedback, reviewedBy, s.now()); err != nil {
		return attempt.Attempt{}, err
	}
	s.log.Info("teacher feedback saved", "attempt_id", attemptID, "reviewed_by", reviewedBy)
	return s.store.Get(ctx, attemptID)
}

func summarize(q *quiz.Quiz, list []attempt.Attempt) []Summary {
	out := make([]Summary, 0, len(list))
	for _, a := range list {
		sm := Summary{Attempt: a}
		if !a.InProgress() {
			sm.Percentage = grading.Percentage(a.TotalScore, q.TotalPossibleScore)
			sm.Passed = grading.IsPassed(a.TotalScore, q.PassingScore)
		}
		out = append(out, sm)
	}
	return out
}

func scoreRows(q *quiz.Quiz, list []attempt.Attempt) []ScoreRow {
	out := make([]ScoreRow, 0, len(list))
	for _, a := range list {
		row := ScoreRow{
			AttemptID:        a.ID,
			UserID:           a.UserID,
			AttemptNumber:    a.AttemptNumber,
			TotalScore:       a.TotalScore,
			Percentage:       grading.Percentage(a.TotalScore, q.TotalPossibleScore),
			Passed:           grading.IsPassed(a.TotalScore, q.PassingScore),
			TimeSpentSeconds: a.TimeSpentSeconds,
			Reviewed:         a.ReviewedAt != nil,
		}
		if a.SubmittedAt != nil {
			row.SubmittedAt = *a.SubmittedAt
		}
		out = append(out, row)
	}
	return out
}

func normalizePage(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	return page, size
}

func newPage[T any](items []T, page, size, total int) Page[T] {
	pages := 0
	if total > 0 {
		pages = (total + size - 1) / size
	}
	return Page[T]{Items: items, Page: page, PageSize: size, Total: total, TotalPages: pages}
}

func round2(f float64) float64 {
	v, _ := decimal.NewFromFloat(f).Round(2).Float64()
	return v
}
