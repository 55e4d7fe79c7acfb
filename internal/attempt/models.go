package attempt

import (
	"errors"
	"time"
)

var (
	ErrNotFound                 = errors.New("attempt not found")
	ErrQuestionNotFound         = errors.New("question not found in quiz")
	ErrAttemptAlreadyInProgress = errors.New("an attempt is already in progress for this quiz")
	ErrAttemptLimitExceeded     = errors.New("attempt limit reached for this quiz")
	ErrAttemptNotInProgress     = errors.New("attempt is not in progress")
	ErrAlreadySubmitted         = errors.New("attempt already submitted")
	ErrNotSubmitted             = errors.New("attempt has not been submitted")
	ErrForbidden                = errors.New("attempt belongs to another user")
	ErrUnsupportedAnswerShape   = errors.New("answer has no usable value for this question type")
	ErrQuizNotAvailable         = errors.New("quiz is not available yet")
)

type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusSubmitted  Status = "submitted"
)

// Attempt is one user's run at a quiz. ScoresJSON and AnswersSnapshot are
// opaque blobs owned by the grading and answer packages.
type Attempt struct {
	ID               string     `json:"id"`
	QuizID           string     `json:"quiz_id"`
	UserID           string     `json:"user_id"`
	AttemptNumber    int        `json:"attempt_number"`
	Status           Status     `json:"status"`
	StartedAt        time.Time  `json:"started_at"`
	SubmittedAt      *time.Time `json:"submitted_at,omitempty"`
	TimeSpentSeconds int64      `json:"time_spent_seconds"`
	TotalScore       float64    `json:"total_score"`
	ScoresJSON       string     `json:"-"`
	AnswersSnapshot  string     `json:"-"`
	ReviewedAt       *time.Time `json:"reviewed_at,omitempty"`
	TeacherFeedback  string     `json:"teacher_feedback,omitempty"`
	ReviewedBy       string     `json:"reviewed_by,omitempty"`
}

func (a Attempt) InProgress() bool { return a.Status == StatusInProgress }

// StudentAttempt is an attempt as its owner sees it. TotalScore shadows the
// embedded field and stays nil unless the quiz shows scores immediately.
type StudentAttempt struct {
	Attempt
	TotalScore *float64 `json:"total_score,omitempty"`
}

// ForStudent hides the score of a until the quiz allows showing it.
func ForStudent(a Attempt, showScore bool) StudentAttempt {
	sa := StudentAttempt{Attempt: a}
	if showScore && a.Status == StatusSubmitted {
		score := a.TotalScore
		sa.TotalScore = &score
	}
	return sa
}

// Deadline is StartedAt plus the quiz duration; ok is false for untimed quizzes.
func (a Attempt) Deadline(d time.Duration) (time.Time, bool) {
	if d <= 0 {
		return time.Time{}, false
	}
	return a.StartedAt.Add(d), true
}
