package attempt_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/mindengage-quiz/internal/attempt"
	"github.com/mind-engage/mindengage-quiz/internal/quiz/quiztest"
)

func TestPresent_GroupsKeepAuthoredOrder(t *testing.T) {
	q := quiztest.WithStandalone(quiztest.Sample("quiz-1"), 10)
	for _, id := range []string{"a", "b", "c", "d"} {
		p := attempt.Present(&q, id)
		require.Len(t, p.Sections, 1)
		g := p.Sections[0].Groups
		require.Len(t, g, 1)
		assert.Equal(t, "Paris is the capital of France.", g[0].Passage)
		assert.Equal(t, quiztest.QChoice, g[0].Questions[0].ID)
		assert.Equal(t, quiztest.QTrueFalse, g[0].Questions[1].ID)
		assert.Len(t, p.Sections[0].Questions, 14)
	}
}

func TestPresent_NoShuffleWhenDisabled(t *testing.T) {
	q := quiztest.WithStandalone(quiztest.Sample("quiz-1"), 10)
	q.Settings.ShuffleQuestions = false
	q.Settings.ShuffleAnswers = false

	p := attempt.Present(&q, "att-1")
	var ids []int64
	for _, pq := range p.Sections[0].Questions {
		ids = append(ids, pq.ID)
	}
	want := []int64{quiztest.QMulti, quiztest.QBlank, quiztest.QOrdering, quiztest.QMatching}
	for i := int64(100); i < 110; i++ {
		want = append(want, i)
	}
	assert.Equal(t, want, ids)

	ord := p.Sections[0].Questions[2]
	assert.Equal(t, []attempt.PresentedOption{{51, "Eat breakfast"}, {52, "Wake up"}, {53, "Brush teeth"}}, ord.Options)
}

func TestPresent_OptionsShuffledPerAttempt(t *testing.T) {
	q := quiztest.WithStandalone(quiztest.Sample("quiz-1"), 10)
	a := attempt.Present(&q, "att-1")
	b := attempt.Present(&q, "att-1")
	assert.Equal(t, a, b)

	for _, s := range a.Sections {
		for _, pq := range s.Questions {
			seen := map[int64]bool{}
			for _, o := range pq.Options {
				seen[o.ID] = true
			}
			orig, _ := q.Question(pq.ID)
			assert.Len(t, seen, len(orig.Options), "question %d keeps every option", pq.ID)
		}
	}
}

func TestPresent_MatchingColumnsAndNoCorrectness(t *testing.T) {
	q := quiztest.Sample("quiz-1")
	p := attempt.Present(&q, "att-1")

	var matching *attempt.PresentedQuestion
	for i := range p.Sections[0].Questions {
		if p.Sections[0].Questions[i].ID == quiztest.QMatching {
			matching = &p.Sections[0].Questions[i]
		}
	}
	require.NotNil(t, matching)
	assert.ElementsMatch(t, []int64{61, 62}, matching.Left)
	assert.ElementsMatch(t, []int64{63, 64}, matching.Right)

	b, err := json.Marshal(p)
	require.NoError(t, err)
	assert.NotContains(t, string(b), "is_correct")
	assert.NotContains(t, string(b), "correct_answers")
}
