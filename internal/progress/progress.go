// Package progress records module completion driven by quiz submissions.
package progress

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mind-engage/mindengage-quiz/internal/logger"
)

type ModuleProgress struct {
	UserID      string     `json:"user_id"`
	ModuleID    string     `json:"module_id"`
	QuizID      string     `json:"quiz_id"`
	Passed      bool       `json:"passed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

var ErrNotFound = errors.New("module progress not found")

// Service is notified when a quiz belonging to a module has been submitted.
// A module counts as completed once an attempt passes, or on any submission
// when the quiz has no passing score.
type Service struct {
	db  *sql.DB
	log *logger.Logger
	now func() time.Time
}

func NewService(db *sql.DB, log *logger.Logger) *Service {
	return &Service{db: db, log: log.With("service", "ModuleProgressService"), now: time.Now}
}

// QuizSubmitted upserts the module row. Completion is sticky: a later failed
// attempt does not undo it.
func (s *Service) QuizSubmitted(ctx context.Context, userID, moduleID, quizID string, passed, hasPassingScore bool) error {
	if moduleID == "" {
		return nil
	}
	ts := s.now().Unix()
	var completedAt sql.NullInt64
	complete := passed || !hasPassingScore
	if complete {
		completedAt = sql.NullInt64{Int64: ts, Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO module_progress (user_id,module_id,quiz_id,passed,completed_at,updated_at)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (user_id, module_id) DO UPDATE SET
		  quiz_id=EXCLUDED.quiz_id,
		  passed=(module_progress.passed OR EXCLUDED.passed),
		  completed_at=COALESCE(module_progress.completed_at, EXCLUDED.completed_at),
		  updated_at=EXCLUDED.updated_at`,
		userID, moduleID, quizID, passed, completedAt, ts)
	if err != nil {
		return fmt.Errorf("module progress: %w", err)
	}
	if complete {
		s.log.Info("module completed", "user_id", userID, "module_id", moduleID, "quiz_id", quizID, "passed", passed)
	}
	return nil
}

func (s *Service) Get(ctx context.Context, userID, moduleID string) (ModuleProgress, error) {
	var (
		p         ModuleProgress
		completed sql.NullInt64
		updated   int64
	)
	err := s.db.QueryRowContext(ctx, `SELECT user_id,module_id,quiz_id,passed,completed_at,updated_at
		FROM module_progress WHERE user_id=$1 AND module_id=$2`, userID, moduleID).
		Scan(&p.UserID, &p.ModuleID, &p.QuizID, &p.Passed, &completed, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return ModuleProgress{}, ErrNotFound
	}
	if err != nil {
		return ModuleProgress{}, err
	}
	if completed.Valid {
		t := time.Unix(completed.Int64, 0).UTC()
		p.CompletedAt = &t
	}
	p.UpdatedAt = time.Unix(updated, 0).UTC()
	return p, nil
}
