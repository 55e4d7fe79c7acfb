package http

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/mindengage-quiz/internal/logger"
	"github.com/mind-engage/mindengage-quiz/internal/quiz"
)

// POST /quizzes
func UploadQuizHandler(repo quiz.Repository, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var q quiz.Quiz
		if err := decodeJSON(r, &q); err != nil {
			respondError(w, r, log, err)
			return
		}
		q.ID = strings.TrimSpace(q.ID)
		if q.ID == "" || strings.TrimSpace(q.Title) == "" {
			respondError(w, r, log, badRequest("id and title required"))
			return
		}
		if err := quiz.Validate(q); err != nil {
			respondError(w, r, log, badRequest("invalid quiz: %v", err))
			return
		}
		if err := repo.Put(r.Context(), q); err != nil {
			respondError(w, r, log, err)
			return
		}
		respondJSON(w, http.StatusCreated, map[string]any{"id": q.ID, "total_questions": len(q.Questions())})
	}
}

// GET /quizzes/{quizID}
// Correct answers and option correctness are stripped.
func GetQuizHandler(repo quiz.Repository, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q, err := repo.Get(r.Context(), chi.URLParam(r, "quizID"))
		if err != nil {
			respondError(w, r, log, err)
			return
		}
		respondJSON(w, http.StatusOK, q.StudentView())
	}
}
