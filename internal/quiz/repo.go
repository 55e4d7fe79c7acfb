package quiz

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mind-engage/mindengage-quiz/internal/logger"
)

// Repository supplies quiz definitions. Quizzes returned by Get are prepared:
// answer specifications are already decoded.
type Repository interface {
	Get(ctx context.Context, id string) (Quiz, error)
	Put(ctx context.Context, q Quiz) error
}

type SQLStore struct {
	db  *sql.DB
	log *logger.Logger
	now func() time.Time
}

func NewSQLStore(db *sql.DB, log *logger.Logger) *SQLStore {
	return &SQLStore{db: db, log: log.With("repo", "QuizSQLStore"), now: time.Now}
}

func (s *SQLStore) Put(ctx context.Context, q Quiz) error {
	if err := Validate(q); err != nil {
		return err
	}
	if q.TotalQuestions == 0 {
		q.TotalQuestions = len(q.Questions())
	}
	def, err := json.Marshal(q)
	if err != nil {
		return err
	}
	ts := s.now().Unix()
	_, err = s.db.ExecContext(ctx, `INSERT INTO quizzes (id,title,module_id,definition_json,created_at,updated_at)
		VALUES ($1,$2,$3,$4,$5,$5)
		ON CONFLICT (id) DO UPDATE SET title=EXCLUDED.title, module_id=EXCLUDED.module_id,
		  definition_json=EXCLUDED.definition_json, updated_at=EXCLUDED.updated_at`,
		q.ID, q.Title, q.ModuleID, string(def), ts)
	if err != nil {
		return fmt.Errorf("put quiz: %w", err)
	}
	return nil
}

func (s *SQLStore) Get(ctx context.Context, id string) (Quiz, error) {
	raw, err := s.GetRaw(ctx, id)
	if err != nil {
		return Quiz{}, err
	}
	return Decode(raw, s.log)
}

// GetRaw returns the stored definition without decoding it.
func (s *SQLStore) GetRaw(ctx context.Context, id string) ([]byte, error) {
	var def string
	err := s.db.QueryRowContext(ctx, `SELECT definition_json FROM quizzes WHERE id=$1`, id).Scan(&def)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get quiz: %w", err)
	}
	return []byte(def), nil
}

// Decode unmarshals and prepares a stored definition. Questions whose answer
// specification is unusable are logged as data-integrity warnings; they score
// zero for every attempt.
func Decode(raw []byte, log *logger.Logger) (Quiz, error) {
	var q Quiz
	if err := json.Unmarshal(raw, &q); err != nil {
		return Quiz{}, fmt.Errorf("decode quiz: %w", err)
	}
	for _, bad := range q.Prepare() {
		log.Warn("quiz question has an unusable answer specification",
			"quiz_id", q.ID, "question_id", bad.ID, "error", bad.SpecErr)
	}
	return q, nil
}
