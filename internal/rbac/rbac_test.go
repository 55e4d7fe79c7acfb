package rbac

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChecker_DefaultPolicy(t *testing.T) {
	c := NewChecker(nil)
	cases := []struct {
		role, perm string
		want       bool
	}{
		{"student", AttemptCreate, true},
		{"student", AttemptViewOwn, true},
		{"student", AttemptViewAll, false},
		{"student", QuizCreate, false},
		{"teacher", QuizCreate, true},
		{"teacher", QuizStats, true},
		{"teacher", AttemptGrade, true},
		{"teacher", AttemptForceSubmit, false},
		{"admin", AttemptForceSubmit, true},
		{"admin", EventsRead, true},
		{"", QuizView, false},
		{"guest", QuizView, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, c.Has(tc.role, tc.perm), "%s %s", tc.role, tc.perm)
	}
	assert.True(t, c.Any("student", AttemptViewAll, AttemptViewOwn))
	assert.False(t, c.Any("student", AttemptViewAll, AttemptGrade))
}

func TestRequire(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	serve := func(role string, mw func(http.Handler) http.Handler) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if role != "" {
			req = req.WithContext(WithRole(context.Background(), role))
		}
		rec := httptest.NewRecorder()
		mw(ok).ServeHTTP(rec, req)
		return rec.Code
	}
	assert.Equal(t, http.StatusNoContent, serve("teacher", Require(QuizStats)))
	assert.Equal(t, http.StatusForbidden, serve("student", Require(QuizStats)))
	assert.Equal(t, http.StatusForbidden, serve("", Require(QuizView)))
	assert.Equal(t, http.StatusNoContent, serve("student", RequireAny(AttemptViewAll, AttemptViewOwn)))
}
