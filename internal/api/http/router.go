// Package http exposes the quiz engine over a chi router.
package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/mind-engage/mindengage-quiz/internal/admin"
	"github.com/mind-engage/mindengage-quiz/internal/attempt"
	authmw "github.com/mind-engage/mindengage-quiz/internal/auth/middleware"
	"github.com/mind-engage/mindengage-quiz/internal/logger"
	"github.com/mind-engage/mindengage-quiz/internal/quiz"
	"github.com/mind-engage/mindengage-quiz/internal/rbac"
)

type Deps struct {
	Log *logger.Logger

	Auth            *authmw.AuthService
	Credentials     authmw.Credentials
	EnableLocalAuth bool

	Quizzes       quiz.Repository
	Attempts      *attempt.Service
	Admin         *admin.Service
	Progress      ProgressReader
	Notifications NotificationLister
	Events        EventReader

	CORSOrigins    []string
	RequestTimeout time.Duration
	// Ready backs /readyz; nil means always ready.
	Ready func(ctx context.Context) error
}

func NewRouter(d Deps) http.Handler {
	log := d.Log
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, RequestLogger(log), middleware.Recoverer)
	r.Use(Tracing())
	if d.RequestTimeout > 0 {
		r.Use(middleware.Timeout(d.RequestTimeout))
	}
	if len(d.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   d.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-Id", "Traceparent"},
			ExposedHeaders:   []string{"Content-Length", "X-Request-Id"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if d.Ready != nil {
			if err := d.Ready(r.Context()); err != nil {
				log.Warn("not ready", "error", err)
				respondJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "not ready"})
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	})

	if d.EnableLocalAuth {
		r.Post("/auth/login", authmw.LoginHandler(d.Auth, d.Credentials, log))
	}

	// Protected API (JWT → subject and role in context → RBAC)
	r.Group(func(pr chi.Router) {
		pr.Use(authmw.JWTMiddleware(d.Auth))

		pr.With(rbac.Require(rbac.QuizCreate)).Post("/quizzes", UploadQuizHandler(d.Quizzes, log))
		pr.With(rbac.Require(rbac.QuizView)).Get("/quizzes/{quizID}", GetQuizHandler(d.Quizzes, log))

		// Student flow. Ownership is checked by the attempt service.
		pr.With(rbac.Require(rbac.AttemptCreate)).
			Post("/quizzes/{quizID}/attempts", StartAttemptHandler(d.Attempts, log))
		pr.With(rbac.Require(rbac.AttemptViewOwn)).
			Get("/quizzes/{quizID}/attempts", AttemptHistoryHandler(d.Attempts, log))
		pr.With(rbac.Require(rbac.AttemptViewOwn)).
			Get("/quizzes/{quizID}/attempts/current", CurrentAttemptHandler(d.Attempts, log))
		pr.With(rbac.Require(rbac.AttemptSave)).
			Post("/attempts/{attemptID}/answers", SaveAnswerHandler(d.Attempts, log))
		pr.With(rbac.Require(rbac.AttemptSubmit)).
			Post("/attempts/{attemptID}/submit", SubmitAttemptHandler(d.Attempts, log))
		pr.With(rbac.Require(rbac.AttemptViewOwn)).
			Get("/attempts/{attemptID}", ResumeAttemptHandler(d.Attempts, log))
		pr.With(rbac.Require(rbac.AttemptViewOwn)).
			Get("/attempts/{attemptID}/review", ReviewAttemptHandler(d.Attempts, d.Quizzes, log))

		if d.Progress != nil {
			pr.Get("/me/modules/{moduleID}/progress", ModuleProgressHandler(d.Progress, log))
		}
		if d.Notifications != nil {
			pr.Get("/me/notifications", NotificationsHandler(d.Notifications, log))
		}

		pr.Route("/admin", func(ar chi.Router) {
			ar.With(rbac.Require(rbac.AttemptViewAll)).
				Get("/quizzes/{quizID}/attempts", ListQuizAttemptsHandler(d.Admin, log))
			ar.With(rbac.Require(rbac.AttemptViewAll)).
				Get("/quizzes/{quizID}/attempts/paged", ListQuizAttemptsPagedHandler(d.Admin, log))
			ar.With(rbac.Require(rbac.QuizStats)).
				Get("/quizzes/{quizID}/stats", QuizStatsHandler(d.Admin, log))
			ar.With(rbac.Require(rbac.QuizStats)).
				Get("/quizzes/{quizID}/scores", QuizScoresHandler(d.Admin, log))
			ar.With(rbac.Require(rbac.QuizStats)).
				Get("/quizzes/{quizID}/scores/paged", QuizScoresPagedHandler(d.Admin, log))
			ar.With(rbac.Require(rbac.AttemptViewAll)).
				Get("/attempts/{attemptID}/review", AdminReviewHandler(d.Admin, log))
			ar.With(rbac.Require(rbac.AttemptForceSubmit)).
				Post("/attempts/{attemptID}/force-submit", ForceSubmitHandler(d.Admin, log))
			ar.With(rbac.Require(rbac.AttemptGrade)).
				Post("/attempts/{attemptID}/feedback", SaveFeedbackHandler(d.Admin, log))
			if d.Events != nil {
				ar.With(rbac.Require(rbac.EventsRead)).Get("/events", EventsHandler(d.Events, log))
			}
		})
	})
	return r
}
