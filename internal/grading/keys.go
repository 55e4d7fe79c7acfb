package grading

import (
	"strings"

	"github.com/mind-engage/mindengage-quiz/internal/quiz"
)

// CorrectOptionIDs returns the ids of the options flagged correct, in option order.
func CorrectOptionIDs(q *quiz.Question) []int64 {
	var out []int64
	for _, o := range q.Options {
		if o.IsCorrect {
			out = append(out, o.ID)
		}
	}
	return out
}

// optionByText finds the first option whose trimmed text equals text.
// Duplicate texts are ambiguous; the first one wins.
func optionByText(opts []quiz.AnswerOption, text string) (int64, bool) {
	text = strings.TrimSpace(text)
	for _, o := range opts {
		if strings.TrimSpace(o.Text) == text {
			return o.ID, true
		}
	}
	return 0, false
}

// ResolveOrdering maps the correct text sequence to option ids. Texts with no
// matching option are left out.
func ResolveOrdering(q *quiz.Question) []int64 {
	if q.Ordering == nil {
		return nil
	}
	out := make([]int64, 0, len(q.Ordering.CorrectTextSequence))
	for _, t := range q.Ordering.CorrectTextSequence {
		if id, ok := optionByText(q.Options, t); ok {
			out = append(out, id)
		}
	}
	return out
}

// ResolveMatching maps the correct text pairs to left id → right id. A pair
// whose left or right text has no matching option is left out.
func ResolveMatching(q *quiz.Question) map[int64]int64 {
	if q.Matching == nil {
		return nil
	}
	out := make(map[int64]int64, len(q.Matching.CorrectPairs))
	for l, r := range q.Matching.CorrectPairs {
		lid, ok := optionByText(q.Options, l)
		if !ok {
			continue
		}
		rid, ok := optionByText(q.Options, r)
		if !ok {
			continue
		}
		out[lid] = rid
	}
	return out
}

// MatchingColumns splits a Matching question's options into the declared left
// and right columns, in metadata order.
func MatchingColumns(q *quiz.Question) (left, right []int64) {
	if q.Matching == nil {
		return nil, nil
	}
	for _, t := range q.Matching.LeftTexts {
		if id, ok := optionByText(q.Options, t); ok {
			left = append(left, id)
		}
	}
	for _, t := range q.Matching.RightTexts {
		if id, ok := optionByText(q.Options, t); ok {
			right = append(right, id)
		}
	}
	return left, right
}
