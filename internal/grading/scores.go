package grading

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Scores maps question id to awarded points. Its encoded form is the
// attempt's ScoresJson column.
type Scores map[int64]float64

// Total sums the awarded points. Summation goes through decimal so that a
// quiz of 0.1-point questions totals exactly.
func (s Scores) Total() float64 {
	sum := decimal.Zero
	for _, v := range s {
		sum = sum.Add(decimal.NewFromFloat(v))
	}
	f, _ := sum.Float64()
	return f
}

func EncodeScores(s Scores) (string, error) {
	if s == nil {
		s = Scores{}
	}
	b, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("encode scores: %w", err)
	}
	return string(b), nil
}

func DecodeScores(raw string) (Scores, error) {
	s := Scores{}
	if strings.TrimSpace(raw) == "" {
		return s, nil
	}
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return nil, fmt.Errorf("decode scores: %w", err)
	}
	return s, nil
}

// Percentage is round(total / possible * 100, 2). A non-positive possible
// score yields 0.
func Percentage(total, possible float64) float64 {
	if possible <= 0 {
		return 0
	}
	p := decimal.NewFromFloat(total).
		Div(decimal.NewFromFloat(possible)).
		Mul(decimal.NewFromInt(100)).
		Round(2)
	f, _ := p.Float64()
	return f
}

// IsPassed is false whenever no passing score is configured.
func IsPassed(total float64, passing *float64) bool {
	return passing != nil && total >= *passing
}
