package quiz_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/mindengage-quiz/internal/db"
	"github.com/mind-engage/mindengage-quiz/internal/logger"
	"github.com/mind-engage/mindengage-quiz/internal/quiz"
	"github.com/mind-engage/mindengage-quiz/internal/quiz/quiztest"
)

func TestPrepare_DecodesSpecs(t *testing.T) {
	q := quiztest.Sample("quiz-1")

	blank, ok := q.Question(quiztest.QBlank)
	require.True(t, ok)
	require.NotNil(t, blank.FillBlank)
	assert.Equal(t, []string{"photosynthesis"}, blank.FillBlank.Accepted)

	ord, _ := q.Question(quiztest.QOrdering)
	require.NotNil(t, ord.Ordering)
	assert.Equal(t, []string{"Wake up", "Brush teeth", "Eat breakfast"}, ord.Ordering.CorrectTextSequence)

	m, _ := q.Question(quiztest.QMatching)
	require.NotNil(t, m.Matching)
	assert.Equal(t, []string{"hello", "book"}, m.Matching.LeftTexts)
	assert.Equal(t, "a greeting", m.Matching.CorrectPairs["hello"])

	assert.Equal(t, 6, q.TotalQuestions)
}

func TestPrepare_BrokenSpecIsReportedNotFatal(t *testing.T) {
	q := quiztest.Sample("quiz-1")
	ord, _ := q.Question(quiztest.QOrdering)
	ord.CorrectAnswersJSON = `{"not":"a list"`

	broken := q.Prepare()
	require.Len(t, broken, 1)
	assert.Equal(t, quiztest.QOrdering, broken[0].ID)
	assert.Nil(t, broken[0].Ordering)
	assert.Error(t, broken[0].SpecErr)
}

func TestFillBlank_SingleStringAndOptionFallback(t *testing.T) {
	q := quiz.Quiz{Sections: []quiz.QuizSection{{Questions: []quiz.Question{
		{ID: 1, Type: quiz.FillBlank, CorrectAnswersJSON: `"mitochondria"`},
		{ID: 2, Type: quiz.FillBlank, Options: []quiz.AnswerOption{{ID: 1, Text: "Nile", IsCorrect: true}}},
	}}}}
	require.Empty(t, q.Prepare())

	a, _ := q.Question(1)
	assert.Equal(t, []string{"mitochondria"}, a.FillBlank.Accepted)
	b, _ := q.Question(2)
	assert.Equal(t, []string{"Nile"}, b.FillBlank.Accepted)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(q *quiz.Quiz)
		ok     bool
	}{
		{name: "sample is valid", mutate: func(q *quiz.Quiz) {}, ok: true},
		{name: "missing id", mutate: func(q *quiz.Quiz) { q.ID = "" }},
		{name: "no possible score", mutate: func(q *quiz.Quiz) { q.TotalPossibleScore = 0 }},
		{name: "two correct single choice", mutate: func(q *quiz.Quiz) {
			q.Sections[0].Groups[0].Questions[0].Options[1].IsCorrect = true
		}},
		{name: "multi answers without correct", mutate: func(q *quiz.Quiz) {
			for i := range q.Sections[0].Questions[0].Options {
				q.Sections[0].Questions[0].Options[i].IsCorrect = false
			}
		}},
		{name: "duplicate question id", mutate: func(q *quiz.Quiz) { q.Sections[0].Questions[1].ID = quiztest.QChoice }},
		{name: "unknown type", mutate: func(q *quiz.Quiz) { q.Sections[0].Questions[0].Type = "essay" }},
		{name: "broken matching metadata", mutate: func(q *quiz.Quiz) { q.Sections[0].Questions[3].MetadataJSON = "nope" }},
		{name: "zero max attempts", mutate: func(q *quiz.Quiz) { zero := 0; q.Settings.MaxAttempts = &zero }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			q := quiztest.Sample("quiz-1")
			tc.mutate(&q)
			err := quiz.Validate(q)
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestStudentView_StripsCorrectness(t *testing.T) {
	q := quiztest.Sample("quiz-1")
	v := q.StudentView()

	for _, qq := range v.Questions() {
		assert.Empty(t, qq.CorrectAnswersJSON)
		for _, o := range qq.Options {
			assert.False(t, o.IsCorrect)
		}
	}
	// original untouched
	orig, _ := q.Question(quiztest.QChoice)
	assert.True(t, orig.Options[0].IsCorrect)
}

func TestAttemptLimit(t *testing.T) {
	q := quiztest.Sample("quiz-1")
	n, ok := q.AttemptLimit()
	assert.True(t, ok)
	assert.Equal(t, 3, n)

	q.Settings.AllowUnlimitedAttempts = true
	_, ok = q.AttemptLimit()
	assert.False(t, ok)
}

func openStore(t *testing.T) *quiz.SQLStore {
	t.Helper()
	dsn := fmt.Sprintf("file:quiztest-%d?mode=memory&cache=shared", time.Now().UnixNano())
	d, err := db.Open(context.Background(), db.DriverSQLite, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	return quiz.NewSQLStore(d, logger.Nop())
}

func TestSQLStore_PutGet(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()

	_, err := st.Get(ctx, "missing")
	require.ErrorIs(t, err, quiz.ErrNotFound)

	require.NoError(t, st.Put(ctx, quiztest.Sample("quiz-1")))
	got, err := st.Get(ctx, "quiz-1")
	require.NoError(t, err)
	assert.Equal(t, "Sample quiz", got.Title)
	assert.Len(t, got.Questions(), 6)

	m, _ := got.Question(quiztest.QMatching)
	require.NotNil(t, m.Matching, "specs are decoded on load")

	// upsert
	upd := quiztest.Sample("quiz-1")
	upd.Title = "Renamed"
	require.NoError(t, st.Put(ctx, upd))
	got, err = st.Get(ctx, "quiz-1")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Title)
}

func TestSQLStore_PutRejectsInvalid(t *testing.T) {
	st := openStore(t)
	q := quiztest.Sample("quiz-1")
	q.Title = ""
	require.Error(t, st.Put(context.Background(), q))
}

type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
	gets int
}

func (m *memCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	b, ok := m.data[key]
	return b, ok, nil
}

func (m *memCache) Set(_ context.Context, key string, val []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = val
	return nil
}

func (m *memCache) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func TestCachedRepository_ReadThroughAndInvalidate(t *testing.T) {
	st := openStore(t)
	c := &memCache{data: map[string][]byte{}}
	repo := quiz.NewCachedRepository(st, c, time.Minute, logger.Nop())
	ctx := context.Background()

	require.NoError(t, repo.Put(ctx, quiztest.Sample("quiz-1")))
	_, err := repo.Get(ctx, "quiz-1")
	require.NoError(t, err)
	assert.Contains(t, c.data, "quiz:def:quiz-1")

	upd := quiztest.Sample("quiz-1")
	upd.Title = "Changed"
	require.NoError(t, repo.Put(ctx, upd))
	assert.NotContains(t, c.data, "quiz:def:quiz-1")

	got, err := repo.Get(ctx, "quiz-1")
	require.NoError(t, err)
	assert.Equal(t, "Changed", got.Title)
	m, _ := got.Question(quiztest.QMatching)
	assert.NotNil(t, m.Matching)
}

func TestCachedRepository_MissingQuiz(t *testing.T) {
	st := openStore(t)
	repo := quiz.NewCachedRepository(st, &memCache{data: map[string][]byte{}}, time.Minute, logger.Nop())
	_, err := repo.Get(context.Background(), "nope")
	require.ErrorIs(t, err, quiz.ErrNotFound)
}

// gatedSource pauses the first GetRaw after it has read from the store.
type gatedSource struct {
	quiz.RawSource
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (g *gatedSource) GetRaw(ctx context.Context, id string) ([]byte, error) {
	b, err := g.RawSource.GetRaw(ctx, id)
	g.once.Do(func() {
		close(g.entered)
		<-g.release
	})
	return b, err
}

func TestCachedRepository_PutDuringFillDoesNotRecacheOld(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()
	require.NoError(t, st.Put(ctx, quiztest.Sample("quiz-1")))

	src := &gatedSource{RawSource: st, entered: make(chan struct{}), release: make(chan struct{})}
	c := &memCache{data: map[string][]byte{}}
	repo := quiz.NewCachedRepository(src, c, time.Minute, logger.Nop())

	done := make(chan error, 1)
	go func() {
		_, err := repo.Get(ctx, "quiz-1")
		done <- err
	}()
	<-src.entered

	upd := quiztest.Sample("quiz-1")
	upd.Title = "Changed"
	require.NoError(t, repo.Put(ctx, upd))
	close(src.release)
	require.NoError(t, <-done)

	c.mu.Lock()
	_, cached := c.data["quiz:def:quiz-1"]
	c.mu.Unlock()
	assert.False(t, cached, "a fill that raced a Put must not write the cache")

	got, err := repo.Get(ctx, "quiz-1")
	require.NoError(t, err)
	assert.Equal(t, "Changed", got.Title)
	assert.Contains(t, c.data, "quiz:def:quiz-1")
}
