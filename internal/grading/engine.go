package grading

import (
	"context"

	"github.com/mind-engage/mindengage-quiz/internal/answer"
	"github.com/mind-engage/mindengage-quiz/internal/quiz"
)

// Result is the outcome of grading a single question response.
type Result struct {
	Awarded   float64  // points awarded
	MaxPoints float64  // the question's points
	Correct   bool     // every type is all-or-nothing
	Feedback  []string // optional notes
}

// Strategy grades a single question. A response of the wrong shape, an
// unanswered question and an unusable answer specification all score zero;
// grading never fails.
type Strategy interface {
	Grade(ctx context.Context, q *quiz.Question, a answer.Answer) Result
}

// Grader routes by question type to the correct Strategy.
type Grader interface {
	Grade(ctx context.Context, q *quiz.Question, a answer.Answer) Result
	// GradeAll scores every question of the quiz, answered or not.
	GradeAll(ctx context.Context, qz *quiz.Quiz, answers answer.Snapshot) Scores
}

type defaultGrader struct {
	strategies map[quiz.QuestionType]Strategy
}

func (g *defaultGrader) Grade(ctx context.Context, q *quiz.Question, a answer.Answer) Result {
	res := Result{MaxPoints: q.Points}
	if q.SpecErr != nil {
		res.Feedback = []string{"question has no usable answer specification"}
		return res
	}
	if a.IsEmpty() {
		res.Feedback = []string{"unanswered"}
		return res
	}
	s, ok := g.strategies[q.Type]
	if !ok {
		res.Feedback = []string{"no strategy available"}
		return res
	}
	return s.Grade(ctx, q, a)
}

func (g *defaultGrader) GradeAll(ctx context.Context, qz *quiz.Quiz, answers answer.Snapshot) Scores {
	out := Scores{}
	for _, q := range qz.Questions() {
		out[q.ID] = g.Grade(ctx, q, answers[q.ID]).Awarded
	}
	return out
}

// Engine options

type Option func(*config)

type config struct {
	overrides map[quiz.QuestionType]Strategy
}

// WithStrategy replaces the built-in strategy for one question type.
func WithStrategy(t quiz.QuestionType, s Strategy) Option {
	return func(c *config) { c.overrides[t] = s }
}

// NewDefaultGrader installs built-in strategies.
func NewDefaultGrader(opts ...Option) Grader {
	cfg := &config{overrides: map[quiz.QuestionType]Strategy{}}
	for _, o := range opts {
		o(cfg)
	}
	strategies := map[quiz.QuestionType]Strategy{
		quiz.MultipleChoice:  singleChoiceStrategy{},
		quiz.TrueFalse:       singleChoiceStrategy{},
		quiz.MultipleAnswers: multiAnswerStrategy{},
		quiz.FillBlank:       fillBlankStrategy{},
		quiz.Matching:        matchingStrategy{},
		quiz.Ordering:        orderingStrategy{},
	}
	for t, s := range cfg.overrides {
		strategies[t] = s
	}
	return &defaultGrader{strategies: strategies}
}

// --- Strategies ---

func full(q *quiz.Question) Result {
	return Result{Awarded: q.Points, MaxPoints: q.Points, Correct: true}
}

type singleChoiceStrategy struct{}

func (singleChoiceStrategy) Grade(_ context.Context, q *quiz.Question, a answer.Answer) Result {
	res := Result{MaxPoints: q.Points}
	id, ok := a.AsInt()
	if !ok {
		return res
	}
	correct := CorrectOptionIDs(q)
	if len(correct) == 1 && correct[0] == id {
		return full(q)
	}
	return res
}

type multiAnswerStrategy struct{}

func (multiAnswerStrategy) Grade(_ context.Context, q *quiz.Question, a answer.Answer) Result {
	res := Result{MaxPoints: q.Points}
	ids, ok := a.AsIntList()
	if !ok {
		return res
	}
	correct := toSet(CorrectOptionIDs(q))
	if len(correct) > 0 && setEqual(correct, toSet(ids)) {
		return full(q)
	}
	return res
}

type fillBlankStrategy struct{}

func (fillBlankStrategy) Grade(_ context.Context, q *quiz.Question, a answer.Answer) Result {
	res := Result{MaxPoints: q.Points}
	s, ok := a.AsString()
	if !ok || q.FillBlank == nil {
		return res
	}
	resp := normalize(s)
	for _, k := range q.FillBlank.Accepted {
		if nk := normalize(k); nk != "" && nk == resp {
			return full(q)
		}
	}
	return res
}

type matchingStrategy struct{}

func (matchingStrategy) Grade(_ context.Context, q *quiz.Question, a answer.Answer) Result {
	res := Result{MaxPoints: q.Points}
	got, ok := a.AsIntMap()
	if !ok {
		return res
	}
	want := ResolveMatching(q)
	if len(want) == 0 || len(got) != len(want) {
		return res
	}
	for left, right := range want {
		if v, ok := got[left]; !ok || v != right {
			return res
		}
	}
	return full(q)
}

type orderingStrategy struct{}

func (orderingStrategy) Grade(_ context.Context, q *quiz.Question, a answer.Answer) Result {
	res := Result{MaxPoints: q.Points}
	got, ok := a.AsIntList()
	if !ok {
		return res
	}
	want := ResolveOrdering(q)
	if len(want) == 0 || len(got) != len(want) {
		return res
	}
	for i := range want {
		if got[i] != want[i] {
			return res
		}
	}
	return full(q)
}

// helpers

func toSet(ids []int64) map[int64]struct{} {
	m := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		m[id] = struct{}{}
	}
	return m
}

func setEqual(a, b map[int64]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}
