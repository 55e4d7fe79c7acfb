package quiz

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// FillBlankSpec lists the accepted answers of a FillBlank question.
type FillBlankSpec struct {
	Accepted []string
}

// OrderingSpec is the correct sequence of option texts.
type OrderingSpec struct {
	CorrectTextSequence []string
}

// MatchingSpec declares the two option columns by text and the correct
// left→right pairs.
type MatchingSpec struct {
	LeftTexts    []string
	RightTexts   []string
	CorrectPairs map[string]string
}

type matchingMetadata struct {
	Left  []string `json:"left"`
	Right []string `json:"right"`
}

func (q *Question) decodeSpecs() {
	q.FillBlank, q.Ordering, q.Matching, q.SpecErr = nil, nil, nil, nil
	switch q.Type {
	case FillBlank:
		spec, err := decodeFillBlank(q.CorrectAnswersJSON, q.Options)
		q.FillBlank, q.SpecErr = spec, err
	case Ordering:
		spec, err := decodeOrdering(q.CorrectAnswersJSON)
		q.Ordering, q.SpecErr = spec, err
	case Matching:
		spec, err := decodeMatching(q.CorrectAnswersJSON, q.MetadataJSON)
		q.Matching, q.SpecErr = spec, err
	}
	if q.SpecErr != nil {
		q.SpecErr = fmt.Errorf("question %d (%s): %w", q.ID, q.Type, q.SpecErr)
	}
}

// decodeFillBlank accepts a JSON list of strings or a single JSON string.
// Without a specification the texts of the options flagged correct are used.
func decodeFillBlank(raw string, opts []AnswerOption) (*FillBlankSpec, error) {
	raw = strings.TrimSpace(raw)
	spec := &FillBlankSpec{}
	if raw == "" {
		for _, o := range opts {
			if o.IsCorrect {
				spec.Accepted = append(spec.Accepted, o.Text)
			}
		}
		if len(spec.Accepted) == 0 {
			return nil, errors.New("no accepted answers")
		}
		return spec, nil
	}
	var list []string
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		var single string
		if err2 := json.Unmarshal([]byte(raw), &single); err2 != nil {
			return nil, fmt.Errorf("correct answers: %w", err)
		}
		list = []string{single}
	}
	if len(list) == 0 {
		return nil, errors.New("no accepted answers")
	}
	spec.Accepted = list
	return spec, nil
}

func decodeOrdering(raw string) (*OrderingSpec, error) {
	var seq []string
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &seq); err != nil {
		return nil, fmt.Errorf("correct answers: %w", err)
	}
	if len(seq) == 0 {
		return nil, errors.New("empty correct sequence")
	}
	return &OrderingSpec{CorrectTextSequence: seq}, nil
}

func decodeMatching(correctRaw, metaRaw string) (*MatchingSpec, error) {
	var pairs map[string]string
	if err := json.Unmarshal([]byte(strings.TrimSpace(correctRaw)), &pairs); err != nil {
		return nil, fmt.Errorf("correct answers: %w", err)
	}
	if len(pairs) == 0 {
		return nil, errors.New("no correct pairs")
	}
	var meta matchingMetadata
	if err := json.Unmarshal([]byte(strings.TrimSpace(metaRaw)), &meta); err != nil {
		return nil, fmt.Errorf("metadata: %w", err)
	}
	return &MatchingSpec{LeftTexts: meta.Left, RightTexts: meta.Right, CorrectPairs: pairs}, nil
}

// Encode returns the persisted CorrectAnswersJSON form.
func (s OrderingSpec) Encode() string {
	b, _ := json.Marshal(s.CorrectTextSequence)
	return string(b)
}

// Encode returns the persisted CorrectAnswersJSON form.
func (s FillBlankSpec) Encode() string {
	b, _ := json.Marshal(s.Accepted)
	return string(b)
}

// Encode returns the persisted CorrectAnswersJSON and MetadataJSON forms.
func (s MatchingSpec) Encode() (correct, metadata string) {
	c, _ := json.Marshal(s.CorrectPairs)
	m, _ := json.Marshal(matchingMetadata{Left: s.LeftTexts, Right: s.RightTexts})
	return string(c), string(m)
}

// Validate enforces the authoring invariants of a quiz definition.
func Validate(q Quiz) error {
	if strings.TrimSpace(q.ID) == "" {
		return errors.New("id required")
	}
	if strings.TrimSpace(q.Title) == "" {
		return errors.New("title required")
	}
	if q.TotalPossibleScore <= 0 {
		return errors.New("total_possible_score must be positive")
	}
	if limit, ok := q.AttemptLimit(); ok && limit < 1 {
		return errors.New("max_attempts must be at least 1")
	}
	seen := map[int64]bool{}
	qs := q.Questions()
	if len(qs) == 0 {
		return errors.New("quiz has no questions")
	}
	for _, qq := range qs {
		if seen[qq.ID] {
			return fmt.Errorf("duplicate question id %d", qq.ID)
		}
		seen[qq.ID] = true
		if err := validateQuestion(qq); err != nil {
			return err
		}
	}
	return nil
}

func validateQuestion(q *Question) error {
	if err := checkOptions(q); err != nil {
		return fmt.Errorf("question %d: %w", q.ID, err)
	}
	cp := *q
	cp.decodeSpecs()
	return cp.SpecErr
}

func checkOptions(q *Question) error {
	if !q.Type.Valid() {
		return fmt.Errorf("unknown type %q", q.Type)
	}
	if q.Points < 0 {
		return errors.New("points must not be negative")
	}
	optIDs := map[int64]bool{}
	correct := 0
	for _, o := range q.Options {
		if optIDs[o.ID] {
			return fmt.Errorf("duplicate option id %d", o.ID)
		}
		optIDs[o.ID] = true
		if o.IsCorrect {
			correct++
		}
	}
	switch q.Type {
	case MultipleChoice, TrueFalse:
		if correct != 1 {
			return fmt.Errorf("exactly one correct option required, got %d", correct)
		}
	case MultipleAnswers:
		if correct < 1 {
			return errors.New("at least one correct option required")
		}
	}
	return nil
}
