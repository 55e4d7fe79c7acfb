package answer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/mind-engage/mindengage-quiz/internal/quiz"
)

// Normalize converts a loosely-typed submitted value into the canonical shape
// for the question type. Values that do not fit the shape become None (or an
// empty list/map when the container itself was the right kind); they are
// never an error.
func Normalize(t quiz.QuestionType, raw any) Answer {
	switch t {
	case quiz.MultipleChoice, quiz.TrueFalse:
		if id, ok := toInt(raw); ok {
			return Int(id)
		}
		return None()
	case quiz.MultipleAnswers, quiz.Ordering:
		return normalizeList(raw)
	case quiz.FillBlank:
		return String(stringify(raw))
	case quiz.Matching:
		return normalizeMap(raw)
	}
	return None()
}

// NormalizeJSON decodes a wire payload and normalizes it. Numbers keep their
// exact text so large ids are not rounded through float64.
func NormalizeJSON(t quiz.QuestionType, raw json.RawMessage) Answer {
	if len(bytes.TrimSpace(raw)) == 0 {
		return Normalize(t, nil)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return Normalize(t, nil)
	}
	return Normalize(t, v)
}

func toInt(v any) (int64, bool) {
	switch x := v.(type) {
	case int:
		return int64(x), true
	case int32:
		return int64(x), true
	case int64:
		return x, true
	case uint32:
		return int64(x), true
	case float64:
		if x != math.Trunc(x) || math.IsInf(x, 0) || x >= math.MaxInt64 || x < math.MinInt64 {
			return 0, false
		}
		return int64(x), true
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return n, true
		}
		if f, err := x.Float64(); err == nil {
			return toInt(f)
		}
		return 0, false
	case string:
		s := strings.TrimSpace(x)
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n, true
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return toInt(f)
		}
		return 0, false
	}
	return 0, false
}

func normalizeList(v any) Answer {
	switch x := v.(type) {
	case []any:
		out := make([]int64, 0, len(x))
		for _, e := range x {
			if id, ok := toInt(e); ok {
				out = append(out, id)
			}
		}
		return IntList(out)
	case []int64:
		return IntList(x)
	case []int:
		out := make([]int64, len(x))
		for i, e := range x {
			out[i] = int64(e)
		}
		return IntList(out)
	case []string:
		out := make([]int64, 0, len(x))
		for _, e := range x {
			if id, ok := toInt(e); ok {
				out = append(out, id)
			}
		}
		return IntList(out)
	}
	return None()
}

func normalizeMap(v any) Answer {
	out := map[int64]int64{}
	switch x := v.(type) {
	case map[string]any:
		for k, val := range x {
			left, ok := toInt(k)
			if !ok {
				continue
			}
			right, ok := toInt(val)
			if !ok {
				continue
			}
			out[left] = right
		}
	case map[string]int64:
		for k, val := range x {
			if left, ok := toInt(k); ok {
				out[left] = val
			}
		}
	case map[int64]int64:
		for k, val := range x {
			out[k] = val
		}
	default:
		return None()
	}
	return IntMap(out)
}

func stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	case json.Number:
		return x.String()
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case []any, map[string]any:
		b, err := json.Marshal(x)
		if err != nil {
			return ""
		}
		return strings.TrimSpace(string(b))
	}
	return strings.TrimSpace(fmt.Sprint(v))
}

// Snapshot maps question id to normalized answer. Its encoded form is the
// attempt's AnswersSnapshot column; only this package interprets it.
type Snapshot map[int64]Answer

// Values returns the plain wire form of every answer.
func (s Snapshot) Values() map[int64]any {
	out := make(map[int64]any, len(s))
	for id, a := range s {
		out[id] = a.Value()
	}
	return out
}

func EncodeSnapshot(s Snapshot) (string, error) {
	if s == nil {
		s = Snapshot{}
	}
	b, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("encode answers snapshot: %w", err)
	}
	return string(b), nil
}

func DecodeSnapshot(raw string) (Snapshot, error) {
	s := Snapshot{}
	if strings.TrimSpace(raw) == "" {
		return s, nil
	}
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return nil, fmt.Errorf("decode answers snapshot: %w", err)
	}
	return s, nil
}
