package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/mindengage-quiz/internal/answer"
	"github.com/mind-engage/mindengage-quiz/internal/attempt"
	authmw "github.com/mind-engage/mindengage-quiz/internal/auth/middleware"
	"github.com/mind-engage/mindengage-quiz/internal/logger"
	"github.com/mind-engage/mindengage-quiz/internal/quiz"
	"github.com/mind-engage/mindengage-quiz/internal/review"
)

// POST /quizzes/{quizID}/attempts
func StartAttemptHandler(svc *attempt.Service, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sub := authmw.SubjectFromContext(r.Context())
		v, err := svc.Start(r.Context(), sub, chi.URLParam(r, "quizID"))
		if err != nil {
			respondError(w, r, log, err)
			return
		}
		respondJSON(w, http.StatusCreated, v)
	}
}

// GET /quizzes/{quizID}/attempts/current
func CurrentAttemptHandler(svc *attempt.Service, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sub := authmw.SubjectFromContext(r.Context())
		v, err := svc.CurrentFor(r.Context(), sub, chi.URLParam(r, "quizID"))
		if err != nil {
			respondError(w, r, log, err)
			return
		}
		respondJSON(w, http.StatusOK, v)
	}
}

// GET /quizzes/{quizID}/attempts
// The caller's own attempts only.
func AttemptHistoryHandler(svc *attempt.Service, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sub := authmw.SubjectFromContext(r.Context())
		list, err := svc.History(r.Context(), sub, chi.URLParam(r, "quizID"))
		if err != nil {
			respondError(w, r, log, err)
			return
		}
		respondJSON(w, http.StatusOK, list)
	}
}

// GET /attempts/{attemptID}
func ResumeAttemptHandler(svc *attempt.Service, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sub := authmw.SubjectFromContext(r.Context())
		v, err := svc.Resume(r.Context(), sub, chi.URLParam(r, "attemptID"))
		if err != nil {
			respondError(w, r, log, err)
			return
		}
		respondJSON(w, http.StatusOK, v)
	}
}

type saveAnswerReq struct {
	QuestionID int64           `json:"question_id"`
	Answer     json.RawMessage `json:"answer"`
}

// POST /attempts/{attemptID}/answers  {"question_id": 3, "answer": [31, 32]}
func SaveAnswerHandler(svc *attempt.Service, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req saveAnswerReq
		if err := decodeJSON(r, &req); err != nil {
			respondError(w, r, log, err)
			return
		}
		if req.QuestionID == 0 {
			respondError(w, r, log, badRequest("question_id required"))
			return
		}
		sub := authmw.SubjectFromContext(r.Context())
		a, err := svc.UpdateAnswer(r.Context(), sub, chi.URLParam(r, "attemptID"), req.QuestionID, req.Answer)
		if err != nil {
			respondError(w, r, log, err)
			return
		}
		respondJSON(w, http.StatusOK, struct {
			QuestionID int64         `json:"question_id"`
			Answer     answer.Answer `json:"answer"`
		}{req.QuestionID, a})
	}
}

type submitResponse struct {
	AttemptID    string         `json:"attempt_id"`
	Status       attempt.Status `json:"status"`
	SubmittedAt  *time.Time     `json:"submitted_at,omitempty"`
	ScoreVisible bool           `json:"score_visible"`
	TotalScore   *float64       `json:"total_score,omitempty"`
	Percentage   *float64       `json:"percentage,omitempty"`
	Passed       *bool          `json:"passed,omitempty"`
}

// POST /attempts/{attemptID}/submit
// The score is only included when the quiz shows scores immediately.
func SubmitAttemptHandler(svc *attempt.Service, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sub := authmw.SubjectFromContext(r.Context())
		out, err := svc.Submit(r.Context(), sub, chi.URLParam(r, "attemptID"))
		if err != nil {
			respondError(w, r, log, err)
			return
		}
		resp := submitResponse{
			AttemptID:    out.Attempt.ID,
			Status:       out.Attempt.Status,
			SubmittedAt:  out.Attempt.SubmittedAt,
			ScoreVisible: out.ScoreVisible,
		}
		if out.ScoreVisible {
			resp.TotalScore = &out.Attempt.TotalScore
			resp.Percentage = &out.Percentage
			resp.Passed = &out.Passed
		}
		respondJSON(w, http.StatusOK, resp)
	}
}

// GET /attempts/{attemptID}/review
// Visibility follows the quiz flags as they are now.
func ReviewAttemptHandler(svc *attempt.Service, quizzes quiz.Repository, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sub := authmw.SubjectFromContext(r.Context())
		a, err := svc.Get(r.Context(), sub, chi.URLParam(r, "attemptID"))
		if err != nil {
			respondError(w, r, log, err)
			return
		}
		q, err := quizzes.Get(r.Context(), a.QuizID)
		if err != nil {
			respondError(w, r, log, err)
			return
		}
		rv, err := review.Build(&q, a, review.Options{})
		if err != nil {
			respondError(w, r, log, err)
			return
		}
		respondJSON(w, http.StatusOK, rv)
	}
}
