package attempt

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mind-engage/mindengage-quiz/internal/answer"
	"github.com/mind-engage/mindengage-quiz/internal/db"
)

type CreateParams struct {
	ID          string
	UserID      string
	QuizID      string
	MaxAttempts int // 0 means unlimited
	StartedAt   time.Time
}

type FinalizeParams struct {
	SubmittedAt      time.Time
	TimeSpentSeconds int64
	TotalScore       float64
	ScoresJSON       string
	AnswersSnapshot  string
}

// ListFilter selects attempts. Empty fields match everything; PageSize 0
// returns all rows.
type ListFilter struct {
	QuizID   string
	UserID   string
	Status   Status
	Page     int
	PageSize int
}

// Aggregate is the raw per-quiz summary. Score and time figures cover
// submitted attempts only.
type Aggregate struct {
	Total        int
	InProgress   int
	Submitted    int
	Passed       int
	AvgScore     float64
	MaxScore     float64
	MinScore     float64
	AvgTimeSpent float64
}

type Store interface {
	// Create inserts a new in-progress attempt. The limit check, the
	// in-progress check and the insert form one atomic unit.
	Create(ctx context.Context, p CreateParams) (Attempt, error)
	Get(ctx context.Context, id string) (Attempt, error)
	FindInProgress(ctx context.Context, userID, quizID string) (Attempt, error)
	// SaveAnswer upserts one answer while the attempt is still in progress.
	SaveAnswer(ctx context.Context, attemptID string, questionID int64, a answer.Answer, at time.Time) error
	Answers(ctx context.Context, attemptID string) (answer.Snapshot, error)
	// Finalize moves an in-progress attempt to submitted. Exactly one
	// concurrent caller wins; the others get ErrAlreadySubmitted.
	Finalize(ctx context.Context, id string, p FinalizeParams) error
	List(ctx context.Context, f ListFilter) ([]Attempt, int, error)
	Aggregate(ctx context.Context, quizID string, passing *float64) (Aggregate, error)
	SaveFeedback(ctx context.Context, id, feedback, reviewedBy string, at time.Time) error
}

type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

const attemptCols = `id,quiz_id,user_id,attempt_number,status,started_at,submitted_at,time_spent_seconds,
	total_score,scores_json,answers_snapshot,reviewed_at,teacher_feedback,reviewed_by`

type scanner interface {
	Scan(dest ...any) error
}

func scanAttempt(r scanner) (Attempt, error) {
	var (
		a                   Attempt
		status              string
		started             int64
		submitted, reviewed sql.NullInt64
		feedback, by        sql.NullString
	)
	if err := r.Scan(&a.ID, &a.QuizID, &a.UserID, &a.AttemptNumber, &status, &started, &submitted,
		&a.TimeSpentSeconds, &a.TotalScore, &a.ScoresJSON, &a.AnswersSnapshot, &reviewed, &feedback, &by); err != nil {
		return Attempt{}, err
	}
	a.Status = Status(status)
	a.StartedAt = time.Unix(started, 0).UTC()
	a.SubmittedAt = unixPtr(submitted)
	a.ReviewedAt = unixPtr(reviewed)
	a.TeacherFeedback = feedback.String
	a.ReviewedBy = by.String
	return a, nil
}

func unixPtr(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.Unix(v.Int64, 0).UTC()
	return &t
}

func (s *SQLStore) Create(ctx context.Context, p CreateParams) (Attempt, error) {
	a := Attempt{
		ID:        p.ID,
		QuizID:    p.QuizID,
		UserID:    p.UserID,
		Status:    StatusInProgress,
		StartedAt: p.StartedAt.UTC().Truncate(time.Second),
	}
	err := db.WithTx(ctx, s.db, nil, func(tx *sql.Tx) error {
		if p.MaxAttempts > 0 {
			var done int
			if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM quiz_attempts
				WHERE user_id=$1 AND quiz_id=$2 AND status=$3`, p.UserID, p.QuizID, string(StatusSubmitted)).Scan(&done); err != nil {
				return err
			}
			if done >= p.MaxAttempts {
				return ErrAttemptLimitExceeded
			}
		}
		var one int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM quiz_attempts
			WHERE user_id=$1 AND quiz_id=$2 AND status=$3`, p.UserID, p.QuizID, string(StatusInProgress)).Scan(&one)
		if err == nil {
			return ErrAttemptAlreadyInProgress
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return err
		}
		var last sql.NullInt64
		if err := tx.QueryRowContext(ctx, `SELECT MAX(attempt_number) FROM quiz_attempts
			WHERE user_id=$1 AND quiz_id=$2`, p.UserID, p.QuizID).Scan(&last); err != nil {
			return err
		}
		a.AttemptNumber = int(last.Int64) + 1
		_, err = tx.ExecContext(ctx, `INSERT INTO quiz_attempts (id,quiz_id,user_id,attempt_number,status,started_at)
			VALUES ($1,$2,$3,$4,$5,$6)`,
			a.ID, a.QuizID, a.UserID, a.AttemptNumber, string(a.Status), a.StartedAt.Unix())
		if db.IsUniqueViolation(err) {
			// lost a race with a concurrent Start for the same user and quiz
			return ErrAttemptAlreadyInProgress
		}
		return err
	})
	if err != nil {
		return Attempt{}, err
	}
	return a, nil
}

func (s *SQLStore) Get(ctx context.Context, id string) (Attempt, error) {
	a, err := scanAttempt(s.db.QueryRowContext(ctx, `SELECT `+attemptCols+` FROM quiz_attempts WHERE id=$1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Attempt{}, ErrNotFound
	}
	return a, err
}

func (s *SQLStore) FindInProgress(ctx context.Context, userID, quizID string) (Attempt, error) {
	a, err := scanAttempt(s.db.QueryRowContext(ctx, `SELECT `+attemptCols+` FROM quiz_attempts
		WHERE user_id=$1 AND quiz_id=$2 AND status=$3`, userID, quizID, string(StatusInProgress)))
	if errors.Is(err, sql.ErrNoRows) {
		return Attempt{}, ErrNotFound
	}
	return a, err
}

func (s *SQLStore) SaveAnswer(ctx context.Context, attemptID string, questionID int64, a answer.Answer, at time.Time) error {
	b, err := json.Marshal(a)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `INSERT INTO attempt_answers (attempt_id,question_id,answer_json,updated_at)
		SELECT CAST($1 AS TEXT), CAST($2 AS BIGINT), CAST($3 AS TEXT), CAST($4 AS BIGINT)
		WHERE EXISTS (SELECT 1 FROM quiz_attempts WHERE id=$1 AND status='in_progress')
		ON CONFLICT (attempt_id, question_id) DO UPDATE SET answer_json=EXCLUDED.answer_json, updated_at=EXCLUDED.updated_at`,
		attemptID, questionID, string(b), at.Unix())
	if err != nil {
		return fmt.Errorf("save answer: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrAttemptNotInProgress
	}
	return nil
}

func (s *SQLStore) Answers(ctx context.Context, attemptID string) (answer.Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT question_id, answer_json FROM attempt_answers WHERE attempt_id=$1`, attemptID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := answer.Snapshot{}
	for rows.Next() {
		var (
			qid int64
			raw string
			a   answer.Answer
		)
		if err := rows.Scan(&qid, &raw); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(raw), &a); err != nil {
			return nil, fmt.Errorf("answer for question %d: %w", qid, err)
		}
		out[qid] = a
	}
	return out, rows.Err()
}

func (s *SQLStore) Finalize(ctx context.Context, id string, p FinalizeParams) error {
	res, err := s.db.ExecContext(ctx, `UPDATE quiz_attempts SET status=$1, submitted_at=$2, time_spent_seconds=$3,
		total_score=$4, scores_json=$5, answers_snapshot=$6
		WHERE id=$7 AND status=$8`,
		string(StatusSubmitted), p.SubmittedAt.Unix(), p.TimeSpentSeconds, p.TotalScore, p.ScoresJSON, p.AnswersSnapshot,
		id, string(StatusInProgress))
	if err != nil {
		return fmt.Errorf("finalize attempt: %w", err)
	}
	return s.expectOne(ctx, res, id, ErrAlreadySubmitted)
}

func (s *SQLStore) SaveFeedback(ctx context.Context, id, feedback, reviewedBy string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `UPDATE quiz_attempts SET reviewed_at=$1, teacher_feedback=$2, reviewed_by=$3
		WHERE id=$4 AND status=$5`, at.Unix(), feedback, reviewedBy, id, string(StatusSubmitted))
	if err != nil {
		return fmt.Errorf("save feedback: %w", err)
	}
	return s.expectOne(ctx, res, id, ErrNotSubmitted)
}

// expectOne turns a conditional update that touched nothing into ErrNotFound
// or the given state error.
func (s *SQLStore) expectOne(ctx context.Context, res sql.Result, id string, stateErr error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}
	var one int
	err = s.db.QueryRowContext(ctx, `SELECT 1 FROM quiz_attempts WHERE id=$1`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return stateErr
}

func (s *SQLStore) List(ctx context.Context, f ListFilter) ([]Attempt, int, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.QuizID != "" {
		add("quiz_id=$%d", f.QuizID)
	}
	if f.UserID != "" {
		add("user_id=$%d", f.UserID)
	}
	if f.Status != "" {
		add("status=$%d", string(f.Status))
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM quiz_attempts`+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	q := `SELECT ` + attemptCols + ` FROM quiz_attempts` + clause + ` ORDER BY started_at DESC, attempt_number DESC, id`
	if f.PageSize > 0 {
		page := f.Page
		if page < 1 {
			page = 1
		}
		args = append(args, f.PageSize, (page-1)*f.PageSize)
		q += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out := []Attempt{}
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, a)
	}
	return out, total, rows.Err()
}

func (s *SQLStore) Aggregate(ctx context.Context, quizID string, passing *float64) (Aggregate, error) {
	threshold := 0.0
	if passing != nil {
		threshold = *passing
	}
	var (
		ag                    Aggregate
		avg, maxS, minS, avgT sql.NullFloat64
		passed                int
	)
	err := s.db.QueryRowContext(ctx, `SELECT
		COUNT(*),
		COALESCE(SUM(CASE WHEN status='in_progress' THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN status='submitted' THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN status='submitted' AND total_score >= $2 THEN 1 ELSE 0 END), 0),
		CAST(AVG(CASE WHEN status='submitted' THEN total_score END) AS DOUBLE PRECISION),
		CAST(MAX(CASE WHEN status='submitted' THEN total_score END) AS DOUBLE PRECISION),
		CAST(MIN(CASE WHEN status='submitted' THEN total_score END) AS DOUBLE PRECISION),
		CAST(AVG(CASE WHEN status='submitted' THEN time_spent_seconds END) AS DOUBLE PRECISION)
		FROM quiz_attempts WHERE quiz_id=$1`, quizID, threshold).
		Scan(&ag.Total, &ag.InProgress, &ag.Submitted, &passed, &avg, &maxS, &minS, &avgT)
	if err != nil {
		return Aggregate{}, fmt.Errorf("aggregate attempts: %w", err)
	}
	if passing != nil {
		ag.Passed = passed
	}
	ag.AvgScore, ag.MaxScore, ag.MinScore, ag.AvgTimeSpent = avg.Float64, maxS.Float64, minS.Float64, avgT.Float64
	return ag, nil
}
