package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/mind-engage/mindengage-quiz/internal/attempt"
	"github.com/mind-engage/mindengage-quiz/internal/logger"
	"github.com/mind-engage/mindengage-quiz/internal/progress"
	"github.com/mind-engage/mindengage-quiz/internal/quiz"
)

type badRequestError struct{ msg string }

func (e *badRequestError) Error() string { return e.msg }

func badRequest(format string, args ...any) error {
	return &badRequestError{msg: fmt.Sprintf(format, args...)}
}

func statusFor(err error) int {
	var br *badRequestError
	switch {
	case errors.As(err, &br), errors.Is(err, attempt.ErrUnsupportedAnswerShape):
		return http.StatusBadRequest
	case errors.Is(err, attempt.ErrNotFound), errors.Is(err, quiz.ErrNotFound),
		errors.Is(err, attempt.ErrQuestionNotFound), errors.Is(err, progress.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, attempt.ErrForbidden), errors.Is(err, attempt.ErrQuizNotAvailable):
		return http.StatusForbidden
	case errors.Is(err, attempt.ErrAttemptAlreadyInProgress), errors.Is(err, attempt.ErrAttemptLimitExceeded),
		errors.Is(err, attempt.ErrAttemptNotInProgress), errors.Is(err, attempt.ErrAlreadySubmitted),
		errors.Is(err, attempt.ErrNotSubmitted):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// respondError writes {"error": "..."}. Unmapped errors are logged and their
// text is not sent to the client.
func respondError(w http.ResponseWriter, r *http.Request, log *logger.Logger, err error) {
	code := statusFor(err)
	msg := err.Error()
	if code == http.StatusInternalServerError {
		log.For(r.Context()).Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		msg = "internal error"
	}
	respondJSON(w, code, map[string]string{"error": msg})
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return badRequest("bad json: %v", err)
	}
	return nil
}

func parseIntDefault(s string, def int) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
