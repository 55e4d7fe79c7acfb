// Package answer holds the canonical form of a submitted answer and the codec
// that produces it from loosely-typed wire values.
package answer

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
)

type Kind uint8

const (
	KindNone Kind = iota
	KindInt
	KindIntList
	KindString
	KindIntMap
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindIntList:
		return "int_list"
	case KindString:
		return "string"
	case KindIntMap:
		return "int_map"
	}
	return "none"
}

// Answer is a closed union: exactly one of the payloads is meaningful,
// selected by Kind. The zero value is None.
type Answer struct {
	kind Kind
	i    int64
	list []int64
	s    string
	m    map[int64]int64
}

func None() Answer                  { return Answer{} }
func Int(v int64) Answer            { return Answer{kind: KindInt, i: v} }
func String(v string) Answer        { return Answer{kind: KindString, s: v} }
func IntList(v []int64) Answer      { return Answer{kind: KindIntList, list: append([]int64{}, v...)} }
func IntMap(v map[int64]int64) Answer {
	m := make(map[int64]int64, len(v))
	for k, x := range v {
		m[k] = x
	}
	return Answer{kind: KindIntMap, m: m}
}

func (a Answer) Kind() Kind { return a.kind }

// IsNone reports whether the answer carries no value at all.
func (a Answer) IsNone() bool { return a.kind == KindNone }

// IsEmpty reports whether the answer should be treated as unanswered.
func (a Answer) IsEmpty() bool {
	switch a.kind {
	case KindInt:
		return false
	case KindIntList:
		return len(a.list) == 0
	case KindString:
		return a.s == ""
	case KindIntMap:
		return len(a.m) == 0
	}
	return true
}

func (a Answer) AsInt() (int64, bool) { return a.i, a.kind == KindInt }

func (a Answer) AsIntList() ([]int64, bool) {
	if a.kind != KindIntList {
		return nil, false
	}
	return append([]int64{}, a.list...), true
}

func (a Answer) AsString() (string, bool) { return a.s, a.kind == KindString }

func (a Answer) AsIntMap() (map[int64]int64, bool) {
	if a.kind != KindIntMap {
		return nil, false
	}
	m := make(map[int64]int64, len(a.m))
	for k, v := range a.m {
		m[k] = v
	}
	return m, true
}

// Value is the plain wire form: int64, []int64, string, map[string]int64 or nil.
func (a Answer) Value() any {
	switch a.kind {
	case KindInt:
		return a.i
	case KindIntList:
		return append([]int64{}, a.list...)
	case KindString:
		return a.s
	case KindIntMap:
		m := make(map[string]int64, len(a.m))
		for k, v := range a.m {
			m[strconv.FormatInt(k, 10)] = v
		}
		return m
	}
	return nil
}

func (a Answer) String() string {
	switch a.kind {
	case KindInt:
		return strconv.FormatInt(a.i, 10)
	case KindIntList:
		return fmt.Sprint(a.list)
	case KindString:
		return strconv.Quote(a.s)
	case KindIntMap:
		keys := make([]int64, 0, len(a.m))
		for k := range a.m {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
		out := "map["
		for i, k := range keys {
			if i > 0 {
				out += " "
			}
			out += fmt.Sprintf("%d:%d", k, a.m[k])
		}
		return out + "]"
	}
	return "none"
}

// wire is the persisted form. Exactly one field is set; none means KindNone.
type wire struct {
	Int   *int64           `json:"int,omitempty"`
	Ints  []int64          `json:"ints,omitempty"`
	Text  *string          `json:"text,omitempty"`
	Pairs map[string]int64 `json:"pairs,omitempty"`
	Kind  string           `json:"kind"`
}

func (a Answer) MarshalJSON() ([]byte, error) {
	w := wire{Kind: a.kind.String()}
	switch a.kind {
	case KindInt:
		v := a.i
		w.Int = &v
	case KindIntList:
		w.Ints = a.list
	case KindString:
		v := a.s
		w.Text = &v
	case KindIntMap:
		w.Pairs = make(map[string]int64, len(a.m))
		for k, v := range a.m {
			w.Pairs[strconv.FormatInt(k, 10)] = v
		}
	}
	return json.Marshal(w)
}

func (a *Answer) UnmarshalJSON(b []byte) error {
	var w wire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	switch w.Kind {
	case "none", "":
		*a = None()
	case "int":
		if w.Int == nil {
			return errors.New("answer: int kind without value")
		}
		*a = Int(*w.Int)
	case "int_list":
		*a = IntList(w.Ints)
	case "string":
		if w.Text == nil {
			return errors.New("answer: string kind without value")
		}
		*a = String(*w.Text)
	case "int_map":
		m := make(map[int64]int64, len(w.Pairs))
		for k, v := range w.Pairs {
			id, err := strconv.ParseInt(k, 10, 64)
			if err != nil {
				return fmt.Errorf("answer: pair key %q: %w", k, err)
			}
			m[id] = v
		}
		*a = IntMap(m)
	default:
		return fmt.Errorf("answer: unknown kind %q", w.Kind)
	}
	return nil
}
