package quiz

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("quiz not found")

type QuestionType string

const (
	MultipleChoice  QuestionType = "multiple_choice"
	TrueFalse       QuestionType = "true_false"
	MultipleAnswers QuestionType = "multiple_answers"
	FillBlank       QuestionType = "fill_blank"
	Matching        QuestionType = "matching"
	Ordering        QuestionType = "ordering"
)

func (t QuestionType) Valid() bool {
	switch t {
	case MultipleChoice, TrueFalse, MultipleAnswers, FillBlank, Matching, Ordering:
		return true
	}
	return false
}

type AnswerOption struct {
	ID        int64  `json:"id"`
	Text      string `json:"text"`
	IsCorrect bool   `json:"is_correct,omitempty"`
}

type Question struct {
	ID                 int64          `json:"id"`
	Type               QuestionType   `json:"type"`
	Text               string         `json:"text"`
	Options            []AnswerOption `json:"options,omitempty"`
	CorrectAnswersJSON string         `json:"correct_answers_json,omitempty"`
	MetadataJSON       string         `json:"metadata_json,omitempty"`
	Points             float64        `json:"points"`

	// Decoded from CorrectAnswersJSON/MetadataJSON by Quiz.Prepare.
	FillBlank *FillBlankSpec `json:"-"`
	Ordering  *OrderingSpec  `json:"-"`
	Matching  *MatchingSpec  `json:"-"`
	SpecErr   error          `json:"-"`
}

// QuizGroup is a cluster of questions sharing a passage. Its questions keep
// their authored order.
type QuizGroup struct {
	ID        string     `json:"id"`
	Title     string     `json:"title,omitempty"`
	Passage   string     `json:"passage,omitempty"`
	Questions []Question `json:"questions"`
}

type QuizSection struct {
	ID        string      `json:"id"`
	Title     string      `json:"title,omitempty"`
	Groups    []QuizGroup `json:"groups,omitempty"`
	Questions []Question  `json:"questions,omitempty"` // standalone
}

type Settings struct {
	ShuffleQuestions       bool `json:"shuffle_questions"`
	ShuffleAnswers         bool `json:"shuffle_answers"`
	ShowAnswersAfterSubmit bool `json:"show_answers_after_submit"`
	ShowScoreImmediately   bool `json:"show_score_immediately"`
	AllowUnlimitedAttempts bool `json:"allow_unlimited_attempts"`
	MaxAttempts            *int `json:"max_attempts,omitempty"`
}

type Quiz struct {
	ID                 string        `json:"id"`
	Title              string        `json:"title"`
	ModuleID           string        `json:"module_id,omitempty"`
	Sections           []QuizSection `json:"sections"`
	TotalQuestions     int           `json:"total_questions"`
	TotalPossibleScore float64       `json:"total_possible_score"`
	PassingScore       *float64      `json:"passing_score,omitempty"`
	DurationMinutes    *int          `json:"duration_minutes,omitempty"`
	AvailableFrom      *time.Time    `json:"available_from,omitempty"`
	Settings           Settings      `json:"settings"`
}

// Questions returns every question in authored order: per section, grouped
// questions first, then standalone ones.
func (q *Quiz) Questions() []*Question {
	out := make([]*Question, 0, q.TotalQuestions)
	for si := range q.Sections {
		s := &q.Sections[si]
		for gi := range s.Groups {
			for qi := range s.Groups[gi].Questions {
				out = append(out, &s.Groups[gi].Questions[qi])
			}
		}
		for qi := range s.Questions {
			out = append(out, &s.Questions[qi])
		}
	}
	return out
}

// Question looks a question up by id.
func (q *Quiz) Question(id int64) (*Question, bool) {
	for _, qq := range q.Questions() {
		if qq.ID == id {
			return qq, true
		}
	}
	return nil, false
}

// Duration is the configured time limit, zero when unlimited.
func (q *Quiz) Duration() time.Duration {
	if q.DurationMinutes == nil || *q.DurationMinutes <= 0 {
		return 0
	}
	return time.Duration(*q.DurationMinutes) * time.Minute
}

// AttemptLimit returns the maximum number of attempts and whether one applies.
func (q *Quiz) AttemptLimit() (int, bool) {
	if q.Settings.AllowUnlimitedAttempts || q.Settings.MaxAttempts == nil {
		return 0, false
	}
	return *q.Settings.MaxAttempts, true
}

// Prepare decodes the per-type answer specifications of every question.
// A question whose specification cannot be decoded keeps SpecErr set and
// scores zero; Prepare reports those questions but never fails on them.
func (q *Quiz) Prepare() []*Question {
	var broken []*Question
	for _, qq := range q.Questions() {
		qq.decodeSpecs()
		if qq.SpecErr != nil {
			broken = append(broken, qq)
		}
	}
	if q.TotalQuestions == 0 {
		q.TotalQuestions = len(q.Questions())
	}
	return broken
}

// StudentView returns a deep copy with every correctness hint removed.
func (q Quiz) StudentView() Quiz {
	out := q
	out.Sections = make([]QuizSection, len(q.Sections))
	for si, s := range q.Sections {
		ns := s
		ns.Groups = make([]QuizGroup, len(s.Groups))
		for gi, g := range s.Groups {
			ng := g
			ng.Questions = stripQuestions(g.Questions)
			ns.Groups[gi] = ng
		}
		ns.Questions = stripQuestions(s.Questions)
		out.Sections[si] = ns
	}
	return out
}

func stripQuestions(in []Question) []Question {
	if in == nil {
		return nil
	}
	out := make([]Question, len(in))
	for i, qq := range in {
		n := Question{ID: qq.ID, Type: qq.Type, Text: qq.Text, Points: qq.Points, MetadataJSON: qq.MetadataJSON}
		n.Options = make([]AnswerOption, len(qq.Options))
		for oi, o := range qq.Options {
			n.Options[oi] = AnswerOption{ID: o.ID, Text: o.Text}
		}
		out[i] = n
	}
	return out
}
