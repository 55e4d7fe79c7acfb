package http

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/mindengage-quiz/internal/admin"
	"github.com/mind-engage/mindengage-quiz/internal/attempt"
	authmw "github.com/mind-engage/mindengage-quiz/internal/auth/middleware"
	"github.com/mind-engage/mindengage-quiz/internal/logger"
)

// GET /admin/quizzes/{quizID}/attempts
func ListQuizAttemptsHandler(svc *admin.Service, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := svc.ListAttempts(r.Context(), chi.URLParam(r, "quizID"))
		if err != nil {
			respondError(w, r, log, err)
			return
		}
		respondJSON(w, http.StatusOK, list)
	}
}

// GET /admin/quizzes/{quizID}/attempts/paged?page=1&page_size=20&status=submitted
func ListQuizAttemptsPagedHandler(svc *admin.Service, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		qs := r.URL.Query()
		status := attempt.Status(strings.TrimSpace(qs.Get("status")))
		switch status {
		case "", attempt.StatusInProgress, attempt.StatusSubmitted:
		default:
			respondError(w, r, log, badRequest("status must be in_progress or submitted"))
			return
		}
		p, err := svc.ListAttemptsPaged(r.Context(), chi.URLParam(r, "quizID"), status,
			parseIntDefault(qs.Get("page"), 1), parseIntDefault(qs.Get("page_size"), admin.DefaultPageSize))
		if err != nil {
			respondError(w, r, log, err)
			return
		}
		respondJSON(w, http.StatusOK, p)
	}
}

// GET /admin/attempts/{attemptID}/review
func AdminReviewHandler(svc *admin.Service, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rv, err := svc.Review(r.Context(), chi.URLParam(r, "attemptID"))
		if err != nil {
			respondError(w, r, log, err)
			return
		}
		respondJSON(w, http.StatusOK, rv)
	}
}

// POST /admin/attempts/{attemptID}/force-submit
func ForceSubmitHandler(svc *admin.Service, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor := authmw.SubjectFromContext(r.Context())
		out, err := svc.ForceSubmit(r.Context(), actor, chi.URLParam(r, "attemptID"))
		if err != nil {
			respondError(w, r, log, err)
			return
		}
		respondJSON(w, http.StatusOK, out)
	}
}

// POST /admin/attempts/{attemptID}/feedback  {"feedback": "..."}
func SaveFeedbackHandler(svc *admin.Service, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Feedback string `json:"feedback"`
		}
		if err := decodeJSON(r, &req); err != nil {
			respondError(w, r, log, err)
			return
		}
		a, err := svc.SaveTeacherFeedback(r.Context(), chi.URLParam(r, "attemptID"), req.Feedback,
			authmw.SubjectFromContext(r.Context()))
		if err != nil {
			respondError(w, r, log, err)
			return
		}
		respondJSON(w, http.StatusOK, a)
	}
}

// GET /admin/quizzes/{quizID}/stats
func QuizStatsHandler(svc *admin.Service, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := svc.QuizStats(r.Context(), chi.URLParam(r, "quizID"))
		if err != nil {
			respondError(w, r, log, err)
			return
		}
		respondJSON(w, http.StatusOK, st)
	}
}

// GET /admin/quizzes/{quizID}/scores
func QuizScoresHandler(svc *admin.Service, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := svc.Scores(r.Context(), chi.URLParam(r, "quizID"))
		if err != nil {
			respondError(w, r, log, err)
			return
		}
		respondJSON(w, http.StatusOK, rows)
	}
}

// GET /admin/quizzes/{quizID}/scores/paged?page=1&page_size=20
func QuizScoresPagedHandler(svc *admin.Service, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		qs := r.URL.Query()
		p, err := svc.ScoresPaged(r.Context(), chi.URLParam(r, "quizID"),
			parseIntDefault(qs.Get("page"), 1), parseIntDefault(qs.Get("page_size"), admin.DefaultPageSize))
		if err != nil {
			respondError(w, r, log, err)
			return
		}
		respondJSON(w, http.StatusOK, p)
	}
}
