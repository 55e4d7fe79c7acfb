package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/mindengage-quiz/internal/admin"
	api "github.com/mind-engage/mindengage-quiz/internal/api/http"
	"github.com/mind-engage/mindengage-quiz/internal/attempt"
	authmw "github.com/mind-engage/mindengage-quiz/internal/auth/middleware"
	"github.com/mind-engage/mindengage-quiz/internal/db"
	"github.com/mind-engage/mindengage-quiz/internal/grading"
	"github.com/mind-engage/mindengage-quiz/internal/logger"
	"github.com/mind-engage/mindengage-quiz/internal/notify"
	"github.com/mind-engage/mindengage-quiz/internal/progress"
	"github.com/mind-engage/mindengage-quiz/internal/quiz"
	"github.com/mind-engage/mindengage-quiz/internal/quiz/quiztest"
	syncx "github.com/mind-engage/mindengage-quiz/internal/sync"
)

type server struct {
	t       *testing.T
	srv     *httptest.Server
	auth    *authmw.AuthService
	quizzes *quiz.SQLStore
}

func newServer(t *testing.T) *server {
	t.Helper()
	ctx := context.Background()
	d, err := db.Open(ctx, db.DriverSQLite, fmt.Sprintf("file:api-%d?mode=memory&cache=shared", time.Now().UnixNano()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })

	log := logger.Nop()
	quizzes := quiz.NewSQLStore(d, log)
	require.NoError(t, quizzes.Put(ctx, quiztest.Sample("quiz-1")))

	store := attempt.NewSQLStore(d)
	prog := progress.NewService(d, log)
	notes := notify.NewSQLRepository(d)
	events := syncx.NewEventRepo(d, "test")
	lifecycle := attempt.NewService(quizzes, store, grading.NewDefaultGrader(), log,
		attempt.WithModuleProgress(prog),
		attempt.WithNotifications(notes),
		attempt.WithEvents(events),
	)
	s := &server{t: t, auth: authmw.NewAuthService("test-secret"), quizzes: quizzes}
	s.srv = httptest.NewServer(api.NewRouter(api.Deps{
		Log:           log,
		Auth:          s.auth,
		Quizzes:       quizzes,
		Attempts:      lifecycle,
		Admin:         admin.NewService(quizzes, store, lifecycle, log),
		Progress:      prog,
		Notifications: notes,
		Events:        events,
	}))
	t.Cleanup(s.srv.Close)
	return s
}

func (s *server) token(sub, role string) string {
	tok, err := s.auth.IssueJWT(sub, role)
	require.NoError(s.t, err)
	return tok
}

// do sends a request as sub/role and decodes a JSON response into out when non-nil.
func (s *server) do(method, path, sub, role string, body any, out any) int {
	s.t.Helper()
	var rd io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			rd = bytes.NewBufferString(b)
		default:
			raw, err := json.Marshal(b)
			require.NoError(s.t, err)
			rd = bytes.NewReader(raw)
		}
	}
	req, err := http.NewRequest(method, s.srv.URL+path, rd)
	require.NoError(s.t, err)
	if sub != "" {
		req.Header.Set("Authorization", "Bearer "+s.token(sub, role))
	}
	res, err := http.DefaultClient.Do(req)
	require.NoError(s.t, err)
	defer res.Body.Close()
	if out != nil {
		require.NoError(s.t, json.NewDecoder(res.Body).Decode(out))
	}
	return res.StatusCode
}

type errBody struct {
	Error string `json:"error"`
}

func TestHealth(t *testing.T) {
	s := newServer(t)
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/healthz", "", "", nil, nil))
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/readyz", "", "", nil, nil))
}

func TestAuthAndRBAC(t *testing.T) {
	s := newServer(t)
	var e errBody
	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodGet, "/quizzes/quiz-1", "", "", nil, &e))
	assert.Equal(t, "missing bearer", e.Error)
	assert.Equal(t, http.StatusForbidden, s.do(http.MethodPost, "/quizzes", "u1", "student", quiztest.Sample("q2"), nil))
	assert.Equal(t, http.StatusForbidden, s.do(http.MethodGet, "/admin/quizzes/quiz-1/stats", "u1", "student", nil, nil))
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/admin/quizzes/quiz-1/stats", "t1", "teacher", nil, nil))
}

func TestQuizUploadAndStudentView(t *testing.T) {
	s := newServer(t)
	var created map[string]any
	code := s.do(http.MethodPost, "/quizzes", "t1", "teacher", quiztest.Sample("quiz-2"), &created)
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, "quiz-2", created["id"])
	assert.EqualValues(t, 6, created["total_questions"])

	bad := quiztest.Sample("quiz-3")
	bad.Sections[0].Groups[0].Questions[0].Options[1].IsCorrect = true
	var e errBody
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPost, "/quizzes", "t1", "teacher", bad, &e))
	assert.Contains(t, e.Error, "invalid quiz")

	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPost, "/quizzes", "t1", "teacher", `{`, nil))

	var raw map[string]any
	require.Equal(t, http.StatusOK, s.do(http.MethodGet, "/quizzes/quiz-2", "u1", "student", nil, &raw))
	b, _ := json.Marshal(raw)
	assert.NotContains(t, string(b), "is_correct")
	assert.NotContains(t, string(b), "correct_answers_json")

	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/quizzes/nope", "u1", "student", nil, nil))
}

func TestStudentFlow(t *testing.T) {
	s := newServer(t)

	var v attempt.View
	require.Equal(t, http.StatusCreated, s.do(http.MethodPost, "/quizzes/quiz-1/attempts", "u1", "student", nil, &v))
	id := v.Attempt.ID
	require.NotEmpty(t, id)
	assert.Equal(t, attempt.StatusInProgress, v.Attempt.Status)
	assert.Equal(t, 6, v.Presentation.TotalQuestions)

	var e errBody
	assert.Equal(t, http.StatusConflict, s.do(http.MethodPost, "/quizzes/quiz-1/attempts", "u1", "student", nil, &e))
	assert.Equal(t, attempt.ErrAttemptAlreadyInProgress.Error(), e.Error)

	answers := []string{
		`{"question_id":1,"answer":11}`,
		`{"question_id":2,"answer":"21"}`,
		`{"question_id":3,"answer":[31,32]}`,
		`{"question_id":4,"answer":"Photosynthesis"}`,
		`{"question_id":5,"answer":[52,53,51]}`,
		`{"question_id":6,"answer":{"61":63,"62":64}}`,
	}
	for _, a := range answers {
		require.Equal(t, http.StatusOK, s.do(http.MethodPost, "/attempts/"+id+"/answers", "u1", "student", a, nil), a)
	}
	assert.Equal(t, http.StatusBadRequest,
		s.do(http.MethodPost, "/attempts/"+id+"/answers", "u1", "student", `{"question_id":6,"answer":"x"}`, nil))
	assert.Equal(t, http.StatusNotFound,
		s.do(http.MethodPost, "/attempts/"+id+"/answers", "u1", "student", `{"question_id":99,"answer":1}`, nil))
	assert.Equal(t, http.StatusForbidden,
		s.do(http.MethodPost, "/attempts/"+id+"/answers", "u2", "student", `{"question_id":1,"answer":11}`, nil))

	var resumed attempt.View
	require.Equal(t, http.StatusOK, s.do(http.MethodGet, "/attempts/"+id, "u1", "student", nil, &resumed))
	assert.Equal(t, v.Presentation, resumed.Presentation)
	assert.Len(t, resumed.Answers, 6)

	var current attempt.View
	require.Equal(t, http.StatusOK, s.do(http.MethodGet, "/quizzes/quiz-1/attempts/current", "u1", "student", nil, &current))
	assert.Equal(t, id, current.Attempt.ID)

	assert.Equal(t, http.StatusConflict, s.do(http.MethodGet, "/attempts/"+id+"/review", "u1", "student", nil, nil))

	var sub map[string]any
	require.Equal(t, http.StatusOK, s.do(http.MethodPost, "/attempts/"+id+"/submit", "u1", "student", nil, &sub))
	assert.Equal(t, "submitted", sub["status"])
	assert.Equal(t, true, sub["score_visible"])
	assert.Equal(t, 6.0, sub["total_score"])
	assert.Equal(t, 100.0, sub["percentage"])
	assert.Equal(t, true, sub["passed"])

	assert.Equal(t, http.StatusConflict, s.do(http.MethodPost, "/attempts/"+id+"/submit", "u1", "student", nil, nil))
	assert.Equal(t, http.StatusConflict,
		s.do(http.MethodPost, "/attempts/"+id+"/answers", "u1", "student", `{"question_id":1,"answer":12}`, nil))
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/quizzes/quiz-1/attempts/current", "u1", "student", nil, nil))

	var rv map[string]any
	require.Equal(t, http.StatusOK, s.do(http.MethodGet, "/attempts/"+id+"/review", "u1", "student", nil, &rv))
	assert.Equal(t, true, rv["answers_visible"])
	assert.Len(t, rv["questions"], 6)

	var hist []attempt.StudentAttempt
	require.Equal(t, http.StatusOK, s.do(http.MethodGet, "/quizzes/quiz-1/attempts", "u1", "student", nil, &hist))
	require.Len(t, hist, 1)
	require.NotNil(t, hist[0].TotalScore)
	assert.Equal(t, 6.0, *hist[0].TotalScore)

	var mp progress.ModuleProgress
	require.Equal(t, http.StatusOK, s.do(http.MethodGet, "/me/modules/module-1/progress", "u1", "student", nil, &mp))
	assert.True(t, mp.Passed)
	assert.NotNil(t, mp.CompletedAt)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/me/modules/module-1/progress", "u2", "student", nil, nil))
}

func TestSubmit_HidesScoreWhenConfigured(t *testing.T) {
	s := newServer(t)
	q := quiztest.Sample("quiz-1")
	q.Settings.ShowScoreImmediately = false
	require.NoError(t, s.quizzes.Put(context.Background(), q))

	var v attempt.View
	require.Equal(t, http.StatusCreated, s.do(http.MethodPost, "/quizzes/quiz-1/attempts", "u1", "student", nil, &v))
	var sub map[string]any
	require.Equal(t, http.StatusOK, s.do(http.MethodPost, "/attempts/"+v.Attempt.ID+"/submit", "u1", "student", nil, &sub))
	assert.Equal(t, false, sub["score_visible"])
	assert.NotContains(t, sub, "total_score")
	assert.NotContains(t, sub, "percentage")

	var resumed map[string]any
	require.Equal(t, http.StatusOK, s.do(http.MethodGet, "/attempts/"+v.Attempt.ID, "u1", "student", nil, &resumed))
	ra, ok := resumed["attempt"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "submitted", ra["status"])
	assert.NotContains(t, ra, "total_score")

	var hist []map[string]any
	require.Equal(t, http.StatusOK, s.do(http.MethodGet, "/quizzes/quiz-1/attempts", "u1", "student", nil, &hist))
	require.Len(t, hist, 1)
	assert.NotContains(t, hist[0], "total_score")

	// Admins still see the stored score.
	var list []map[string]any
	require.Equal(t, http.StatusOK, s.do(http.MethodGet, "/admin/quizzes/quiz-1/attempts", "t1", "teacher", nil, &list))
	require.Len(t, list, 1)
	assert.Contains(t, list[0], "total_score")
}

func TestAdminEndpoints(t *testing.T) {
	s := newServer(t)
	var v attempt.View
	require.Equal(t, http.StatusCreated, s.do(http.MethodPost, "/quizzes/quiz-1/attempts", "u1", "student", nil, &v))
	id := v.Attempt.ID
	require.Equal(t, http.StatusOK,
		s.do(http.MethodPost, "/attempts/"+id+"/answers", "u1", "student", `{"question_id":1,"answer":11}`, nil))

	// Teachers may not force-submit.
	assert.Equal(t, http.StatusForbidden, s.do(http.MethodPost, "/admin/attempts/"+id+"/force-submit", "t1", "teacher", nil, nil))

	var out attempt.Outcome
	require.Equal(t, http.StatusOK, s.do(http.MethodPost, "/admin/attempts/"+id+"/force-submit", "root", "admin", nil, &out))
	assert.Equal(t, attempt.StatusSubmitted, out.Attempt.Status)
	assert.Equal(t, 1.0, out.Attempt.TotalScore)
	assert.Equal(t, http.StatusConflict, s.do(http.MethodPost, "/admin/attempts/"+id+"/force-submit", "root", "admin", nil, nil))

	var notes []notify.Notification
	require.Equal(t, http.StatusOK, s.do(http.MethodGet, "/me/notifications", "u1", "student", nil, &notes))
	require.Len(t, notes, 1)
	assert.Equal(t, notify.KindAttemptForceSubmitted, notes[0].Kind)

	var list []admin.Summary
	require.Equal(t, http.StatusOK, s.do(http.MethodGet, "/admin/quizzes/quiz-1/attempts", "t1", "teacher", nil, &list))
	require.Len(t, list, 1)
	assert.Equal(t, 16.67, list[0].Percentage)

	var page admin.Page[admin.Summary]
	require.Equal(t, http.StatusOK,
		s.do(http.MethodGet, "/admin/quizzes/quiz-1/attempts/paged?page=1&page_size=10&status=submitted", "t1", "teacher", nil, &page))
	assert.Equal(t, 1, page.Total)
	assert.Equal(t, http.StatusBadRequest,
		s.do(http.MethodGet, "/admin/quizzes/quiz-1/attempts/paged?status=bogus", "t1", "teacher", nil, nil))

	var st admin.Stats
	require.Equal(t, http.StatusOK, s.do(http.MethodGet, "/admin/quizzes/quiz-1/stats", "t1", "teacher", nil, &st))
	assert.Equal(t, 1, st.Submitted)
	require.NotNil(t, st.PassCount)
	assert.Zero(t, *st.PassCount)

	var rows []admin.ScoreRow
	require.Equal(t, http.StatusOK, s.do(http.MethodGet, "/admin/quizzes/quiz-1/scores", "t1", "teacher", nil, &rows))
	require.Len(t, rows, 1)
	assert.False(t, rows[0].Passed)

	var sp admin.Page[admin.ScoreRow]
	require.Equal(t, http.StatusOK, s.do(http.MethodGet, "/admin/quizzes/quiz-1/scores/paged?page_size=5", "t1", "teacher", nil, &sp))
	assert.Equal(t, 5, sp.PageSize)
	assert.Len(t, sp.Items, 1)

	var rv map[string]any
	require.Equal(t, http.StatusOK, s.do(http.MethodGet, "/admin/attempts/"+id+"/review", "t1", "teacher", nil, &rv))
	assert.Len(t, rv["questions"], 6)

	var fb attempt.Attempt
	require.Equal(t, http.StatusOK,
		s.do(http.MethodPost, "/admin/attempts/"+id+"/feedback", "t1", "teacher", `{"feedback":"See me after class."}`, &fb))
	assert.Equal(t, "See me after class.", fb.TeacherFeedback)
	assert.Equal(t, "t1", fb.ReviewedBy)

	var events []syncx.Event
	assert.Equal(t, http.StatusForbidden, s.do(http.MethodGet, "/admin/events", "t1", "teacher", nil, nil))
	require.Equal(t, http.StatusOK, s.do(http.MethodGet, "/admin/events?after=0", "root", "admin", nil, &events))
	require.Len(t, events, 2)
	assert.Equal(t, syncx.AttemptStarted, events[0].Type)
	assert.Equal(t, syncx.AttemptForceSubmitted, events[1].Type)

	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/admin/attempts/nope/review", "t1", "teacher", nil, nil))
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/admin/quizzes/nope/stats", "t1", "teacher", nil, nil))
}
