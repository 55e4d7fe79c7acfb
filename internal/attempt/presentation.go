package attempt

import (
	"strconv"

	"github.com/mind-engage/mindengage-quiz/internal/grading"
	"github.com/mind-engage/mindengage-quiz/internal/quiz"
	"github.com/mind-engage/mindengage-quiz/internal/shuffle"
)

type PresentedOption struct {
	ID   int64  `json:"id"`
	Text string `json:"text"`
}

// PresentedQuestion never carries correctness. Matching questions list the
// option ids of each column in Left and Right.
type PresentedQuestion struct {
	ID      int64             `json:"id"`
	Type    quiz.QuestionType `json:"type"`
	Text    string            `json:"text"`
	Points  float64           `json:"points"`
	Options []PresentedOption `json:"options,omitempty"`
	Left    []int64           `json:"left,omitempty"`
	Right   []int64           `json:"right,omitempty"`
}

type PresentedGroup struct {
	ID        string              `json:"id"`
	Title     string              `json:"title,omitempty"`
	Passage   string              `json:"passage,omitempty"`
	Questions []PresentedQuestion `json:"questions"`
}

type PresentedSection struct {
	ID        string              `json:"id"`
	Title     string              `json:"title,omitempty"`
	Groups    []PresentedGroup    `json:"groups,omitempty"`
	Questions []PresentedQuestion `json:"questions,omitempty"`
}

type Presentation struct {
	QuizID          string             `json:"quiz_id"`
	Title           string             `json:"title"`
	DurationMinutes *int               `json:"duration_minutes,omitempty"`
	TotalQuestions  int                `json:"total_questions"`
	Sections        []PresentedSection `json:"sections"`
}

// Present lays the quiz out for one attempt. Grouped questions keep their
// authored order; standalone questions of a section and the options of every
// question are shuffled per the quiz settings, seeded by attemptID.
func Present(q *quiz.Quiz, attemptID string) Presentation {
	p := Presentation{
		QuizID:          q.ID,
		Title:           q.Title,
		DurationMinutes: q.DurationMinutes,
		TotalQuestions:  q.TotalQuestions,
		Sections:        make([]PresentedSection, 0, len(q.Sections)),
	}
	for si := range q.Sections {
		s := &q.Sections[si]
		ps := PresentedSection{ID: s.ID, Title: s.Title}
		for gi := range s.Groups {
			g := &s.Groups[gi]
			pg := PresentedGroup{ID: g.ID, Title: g.Title, Passage: g.Passage}
			for qi := range g.Questions {
				pg.Questions = append(pg.Questions, presentQuestion(q, &g.Questions[qi], attemptID))
			}
			ps.Groups = append(ps.Groups, pg)
		}
		standalone := make([]PresentedQuestion, 0, len(s.Questions))
		for qi := range s.Questions {
			standalone = append(standalone, presentQuestion(q, &s.Questions[qi], attemptID))
		}
		if q.Settings.ShuffleQuestions {
			scope := s.ID
			if scope == "" {
				scope = "#" + strconv.Itoa(si)
			}
			standalone = shuffle.Apply(standalone, attemptID, shuffle.SectionScope(scope))
		}
		ps.Questions = standalone
		p.Sections = append(p.Sections, ps)
	}
	return p
}

func presentQuestion(qz *quiz.Quiz, q *quiz.Question, attemptID string) PresentedQuestion {
	pq := PresentedQuestion{ID: q.ID, Type: q.Type, Text: q.Text, Points: q.Points}
	for _, o := range q.Options {
		pq.Options = append(pq.Options, PresentedOption{ID: o.ID, Text: o.Text})
	}
	if qz.Settings.ShuffleAnswers && len(pq.Options) > 1 {
		pq.Options = shuffle.Apply(pq.Options, attemptID, shuffle.OptionsScope(q.ID))
	}
	if q.Type == quiz.Matching {
		left, right := grading.MatchingColumns(q)
		inLeft, inRight := idSet(left), idSet(right)
		// columns follow the presented option order
		for _, o := range pq.Options {
			if inLeft[o.ID] {
				pq.Left = append(pq.Left, o.ID)
			} else if inRight[o.ID] {
				pq.Right = append(pq.Right, o.ID)
			}
		}
	}
	return pq
}

func idSet(ids []int64) map[int64]bool {
	m := make(map[int64]bool, len(ids))
	for _, id := range ids {
		m[id] = true
	}
	return m
}
