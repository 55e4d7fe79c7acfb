package attempt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/mind-engage/mindengage-quiz/internal/answer"
	"github.com/mind-engage/mindengage-quiz/internal/grading"
	"github.com/mind-engage/mindengage-quiz/internal/logger"
	"github.com/mind-engage/mindengage-quiz/internal/notify"
	"github.com/mind-engage/mindengage-quiz/internal/quiz"
	syncx "github.com/mind-engage/mindengage-quiz/internal/sync"
)

// ModuleProgress is told about every submission of a quiz that belongs to a module.
type ModuleProgress interface {
	QuizSubmitted(ctx context.Context, userID, moduleID, quizID string, passed, hasPassingScore bool) error
}

type Notifications interface {
	Create(ctx context.Context, n notify.Notification) (notify.Notification, error)
}

type Events interface {
	Append(ctx context.Context, typ, key string, data any) error
}

type Option func(*Service)

func WithModuleProgress(p ModuleProgress) Option { return func(s *Service) { s.progress = p } }
func WithNotifications(n Notifications) Option   { return func(s *Service) { s.notifications = n } }
func WithEvents(e Events) Option                 { return func(s *Service) { s.events = e } }
func WithClock(now func() time.Time) Option      { return func(s *Service) { s.now = now } }
func WithIDs(newID func() string) Option         { return func(s *Service) { s.newID = newID } }

// Service drives an attempt from start to submission. It keeps no state of
// its own between calls; everything lives in the Store.
type Service struct {
	quizzes       quiz.Repository
	store         Store
	grader        grading.Grader
	progress      ModuleProgress
	notifications Notifications
	events        Events
	log           *logger.Logger
	tracer        trace.Tracer
	now           func() time.Time
	newID         func() string
}

func NewService(quizzes quiz.Repository, store Store, grader grading.Grader, log *logger.Logger, opts ...Option) *Service {
	s := &Service{
		quizzes: quizzes,
		store:   store,
		grader:  grader,
		log:     log.With("service", "AttemptService"),
		tracer:  otel.Tracer("mindengage-quiz/attempt"),
		now:     time.Now,
		newID:   uuid.NewString,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// View is an attempt as its owner sees it while taking the quiz.
type View struct {
	Attempt          StudentAttempt `json:"attempt"`
	Presentation     Presentation   `json:"presentation"`
	Answers          map[int64]any  `json:"answers"`
	IsExpired        bool           `json:"is_expired"`
	RemainingSeconds *int64         `json:"remaining_seconds,omitempty"`
}

// Outcome is the result of a submission. Percentage and Passed are derived
// from the attempt and the quiz; ScoreVisible tells callers whether the quiz
// lets the student see them now.
type Outcome struct {
	Attempt      Attempt `json:"attempt"`
	Percentage   float64 `json:"percentage"`
	Passed       bool    `json:"passed"`
	ScoreVisible bool    `json:"score_visible"`
}

func (s *Service) span(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func endSpan(sp trace.Span, err error) {
	if err != nil {
		sp.RecordError(err)
		sp.SetStatus(codes.Error, err.Error())
	}
	sp.End()
}

// Start opens a new attempt. A user with an attempt already in progress must
// resume it instead.
func (s *Service) Start(ctx context.Context, userID, quizID string) (v View, err error) {
	ctx, sp := s.span(ctx, "attempt.Start", attribute.String("quiz_id", quizID), attribute.String("user_id", userID))
	defer func() { endSpan(sp, err) }()

	q, err := s.quizzes.Get(ctx, quizID)
	if err != nil {
		return View{}, err
	}
	now := s.now()
	if q.AvailableFrom != nil && now.Before(*q.AvailableFrom) {
		return View{}, ErrQuizNotAvailable
	}
	limit, _ := q.AttemptLimit()
	a, err := s.store.Create(ctx, CreateParams{
		ID:          s.newID(),
		UserID:      userID,
		QuizID:      quizID,
		MaxAttempts: limit,
		StartedAt:   now,
	})
	if err != nil {
		return View{}, err
	}
	s.log.For(ctx).Info("attempt started", "attempt_id", a.ID, "quiz_id", quizID, "user_id", userID, "attempt_number", a.AttemptNumber)
	s.appendEvent(ctx, syncx.AttemptStarted, a.ID, map[string]any{
		"quiz_id": quizID, "user_id": userID, "attempt_number": a.AttemptNumber,
	})
	return s.view(&q, a, answer.Snapshot{}, now), nil
}

// Resume returns the owner's attempt with the same presentation order it was
// started with and the answers saved so far.
func (s *Service) Resume(ctx context.Context, userID, attemptID string) (v View, err error) {
	ctx, sp := s.span(ctx, "attempt.Resume", attribute.String("attempt_id", attemptID))
	defer func() { endSpan(sp, err) }()

	a, err := s.owned(ctx, userID, attemptID)
	if err != nil {
		return View{}, err
	}
	q, err := s.quizzes.Get(ctx, a.QuizID)
	if err != nil {
		return View{}, err
	}
	answers, err := s.store.Answers(ctx, a.ID)
	if err != nil {
		return View{}, err
	}
	return s.view(&q, a, answers, s.now()), nil
}

// CurrentFor finds the in-progress attempt of a user on a quiz.
func (s *Service) CurrentFor(ctx context.Context, userID, quizID string) (View, error) {
	a, err := s.store.FindInProgress(ctx, userID, quizID)
	if err != nil {
		return View{}, err
	}
	return s.Resume(ctx, userID, a.ID)
}

func (s *Service) view(q *quiz.Quiz, a Attempt, answers answer.Snapshot, now time.Time) View {
	v := View{
		Attempt:      ForStudent(a, q.Settings.ShowScoreImmediately),
		Presentation: Present(q, a.ID),
		Answers:      answers.Values(),
	}
	if deadline, ok := a.Deadline(q.Duration()); ok && a.InProgress() {
		var left int64
		if d := deadline.Sub(now); d > 0 {
			left = int64(d / time.Second)
		} else {
			v.IsExpired = true
		}
		v.RemainingSeconds = &left
	}
	return v
}

// UpdateAnswer normalizes and stores one answer. raw may be a decoded wire
// value or a json.RawMessage. Answers are not scored until submission.
func (s *Service) UpdateAnswer(ctx context.Context, userID, attemptID string, questionID int64, raw any) (a answer.Answer, err error) {
	ctx, sp := s.span(ctx, "attempt.UpdateAnswer",
		attribute.String("attempt_id", attemptID), attribute.Int64("question_id", questionID))
	defer func() { endSpan(sp, err) }()

	at, err := s.owned(ctx, userID, attemptID)
	if err != nil {
		return answer.None(), err
	}
	if !at.InProgress() {
		return answer.None(), ErrAttemptNotInProgress
	}
	q, err := s.quizzes.Get(ctx, at.QuizID)
	if err != nil {
		return answer.None(), err
	}
	question, ok := q.Question(questionID)
	if !ok {
		return answer.None(), ErrQuestionNotFound
	}
	if msg, isRaw := raw.(json.RawMessage); isRaw {
		a = answer.NormalizeJSON(question.Type, msg)
	} else {
		a = answer.Normalize(question.Type, raw)
	}
	if a.IsNone() {
		return answer.None(), ErrUnsupportedAnswerShape
	}
	if err := s.store.SaveAnswer(ctx, at.ID, questionID, a, s.now()); err != nil {
		return answer.None(), err
	}
	return a, nil
}

// Submit scores and closes the owner's attempt. A second submit fails with
// ErrAlreadySubmitted and leaves the stored score alone.
func (s *Service) Submit(ctx context.Context, userID, attemptID string) (o Outcome, err error) {
	ctx, sp := s.span(ctx, "attempt.Submit", attribute.String("attempt_id", attemptID))
	defer func() { endSpan(sp, err) }()

	a, err := s.owned(ctx, userID, attemptID)
	if err != nil {
		return Outcome{}, err
	}
	return s.finalize(ctx, a, "")
}

// ForceSubmit submits any in-progress attempt on behalf of its owner and
// leaves the owner a notification. Whether actorID may do this is decided by
// the caller.
func (s *Service) ForceSubmit(ctx context.Context, actorID, attemptID string) (o Outcome, err error) {
	ctx, sp := s.span(ctx, "attempt.ForceSubmit", attribute.String("attempt_id", attemptID), attribute.String("actor_id", actorID))
	defer func() { endSpan(sp, err) }()

	a, err := s.store.Get(ctx, attemptID)
	if err != nil {
		return Outcome{}, err
	}
	if actorID == "" {
		actorID = "system"
	}
	return s.finalize(ctx, a, actorID)
}

func (s *Service) finalize(ctx context.Context, a Attempt, forcedBy string) (Outcome, error) {
	if !a.InProgress() {
		return Outcome{}, ErrAlreadySubmitted
	}
	q, err := s.quizzes.Get(ctx, a.QuizID)
	if err != nil {
		return Outcome{}, err
	}
	answers, err := s.store.Answers(ctx, a.ID)
	if err != nil {
		return Outcome{}, err
	}
	scores := s.grader.GradeAll(ctx, &q, answers)
	scoresJSON, err := grading.EncodeScores(scores)
	if err != nil {
		return Outcome{}, err
	}
	snapshot, err := answer.EncodeSnapshot(answers)
	if err != nil {
		return Outcome{}, err
	}

	now := s.now().UTC().Truncate(time.Second)
	spent := int64(now.Sub(a.StartedAt) / time.Second)
	if spent < 0 {
		spent = 0
	}
	p := FinalizeParams{
		SubmittedAt:      now,
		TimeSpentSeconds: spent,
		TotalScore:       scores.Total(),
		ScoresJSON:       scoresJSON,
		AnswersSnapshot:  snapshot,
	}
	if err := s.store.Finalize(ctx, a.ID, p); err != nil {
		return Outcome{}, err
	}
	a.Status = StatusSubmitted
	a.SubmittedAt = &now
	a.TimeSpentSeconds = p.TimeSpentSeconds
	a.TotalScore = p.TotalScore
	a.ScoresJSON = p.ScoresJSON
	a.AnswersSnapshot = p.AnswersSnapshot

	out := Outcome{
		Attempt:      a,
		Percentage:   grading.Percentage(a.TotalScore, q.TotalPossibleScore),
		Passed:       grading.IsPassed(a.TotalScore, q.PassingScore),
		ScoreVisible: q.Settings.ShowScoreImmediately,
	}
	s.log.For(ctx).Info("attempt submitted", "attempt_id", a.ID, "quiz_id", a.QuizID, "user_id", a.UserID,
		"total_score", a.TotalScore, "forced_by", forcedBy)

	// Everything below is best effort: the submission is already durable.
	evt := syncx.AttemptSubmitted
	if forcedBy != "" {
		evt = syncx.AttemptForceSubmitted
	}
	s.appendEvent(ctx, evt, a.ID, map[string]any{
		"quiz_id": a.QuizID, "user_id": a.UserID, "total_score": a.TotalScore, "forced_by": forcedBy,
	})
	if s.progress != nil && q.ModuleID != "" {
		if err := s.progress.QuizSubmitted(ctx, a.UserID, q.ModuleID, q.ID, out.Passed, q.PassingScore != nil); err != nil {
			s.log.For(ctx).Error("module progress update failed", "attempt_id", a.ID, "module_id", q.ModuleID, "error", err)
		}
	}
	if forcedBy != "" && s.notifications != nil {
		_, err := s.notifications.Create(ctx, notify.Notification{
			UserID: a.UserID,
			Kind:   notify.KindAttemptForceSubmitted,
			Title:  "Quiz submitted",
			Body:   fmt.Sprintf("Your attempt at %q was submitted by your instructor.", q.Title),
			Data:   map[string]string{"attempt_id": a.ID, "quiz_id": a.QuizID},
		})
		if err != nil {
			s.log.For(ctx).Error("force-submit notification failed", "attempt_id", a.ID, "user_id", a.UserID, "error", err)
		}
	}
	return out, nil
}

// Get returns one of the user's own attempts in any status.
func (s *Service) Get(ctx context.Context, userID, attemptID string) (Attempt, error) {
	return s.owned(ctx, userID, attemptID)
}

// owned loads an attempt and checks it belongs to userID.
func (s *Service) owned(ctx context.Context, userID, attemptID string) (Attempt, error) {
	a, err := s.store.Get(ctx, attemptID)
	if err != nil {
		return Attempt{}, err
	}
	if a.UserID != userID {
		return Attempt{}, ErrForbidden
	}
	return a, nil
}

func (s *Service) appendEvent(ctx context.Context, typ, key string, data map[string]any) {
	if s.events == nil {
		return
	}
	if err := s.events.Append(ctx, typ, key, data); err != nil {
		s.log.For(ctx).Error("event append failed", "type", typ, "key", key, "error", err)
	}
}

// History lists a user's attempts at a quiz, newest first. Scores are
// included only when the quiz shows them immediately.
func (s *Service) History(ctx context.Context, userID, quizID string) ([]StudentAttempt, error) {
	showScore := false
	q, err := s.quizzes.Get(ctx, quizID)
	switch {
	case err == nil:
		showScore = q.Settings.ShowScoreImmediately
	case !errors.Is(err, quiz.ErrNotFound):
		return nil, err
	}
	list, _, err := s.store.List(ctx, ListFilter{UserID: userID, QuizID: quizID})
	if err != nil {
		return nil, fmt.Errorf("attempt history: %w", err)
	}
	out := make([]StudentAttempt, 0, len(list))
	for _, a := range list {
		out = append(out, ForStudent(a, showScore))
	}
	return out, nil
}

// IsNotFound reports whether err means a missing quiz or attempt.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, quiz.ErrNotFound) || errors.Is(err, ErrQuestionNotFound)
}
