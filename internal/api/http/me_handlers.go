package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	authmw "github.com/mind-engage/mindengage-quiz/internal/auth/middleware"
	"github.com/mind-engage/mindengage-quiz/internal/logger"
	"github.com/mind-engage/mindengage-quiz/internal/notify"
	"github.com/mind-engage/mindengage-quiz/internal/progress"
	syncx "github.com/mind-engage/mindengage-quiz/internal/sync"
)

type ProgressReader interface {
	Get(ctx context.Context, userID, moduleID string) (progress.ModuleProgress, error)
}

type NotificationLister interface {
	ListForUser(ctx context.Context, userID string, limit int) ([]notify.Notification, error)
}

type EventReader interface {
	Since(ctx context.Context, after int64, limit int) ([]syncx.Event, error)
}

// GET /me/modules/{moduleID}/progress
func ModuleProgressHandler(p ProgressReader, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mp, err := p.Get(r.Context(), authmw.SubjectFromContext(r.Context()), chi.URLParam(r, "moduleID"))
		if err != nil {
			respondError(w, r, log, err)
			return
		}
		respondJSON(w, http.StatusOK, mp)
	}
}

// GET /me/notifications?limit=50
func NotificationsHandler(n NotificationLister, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := parseIntDefault(r.URL.Query().Get("limit"), 50)
		list, err := n.ListForUser(r.Context(), authmw.SubjectFromContext(r.Context()), limit)
		if err != nil {
			respondError(w, r, log, err)
			return
		}
		respondJSON(w, http.StatusOK, list)
	}
}

// GET /admin/events?after=0&limit=100
func EventsHandler(ev EventReader, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		qs := r.URL.Query()
		after := int64(parseIntDefault(qs.Get("after"), 0))
		list, err := ev.Since(r.Context(), after, parseIntDefault(qs.Get("limit"), 100))
		if err != nil {
			respondError(w, r, log, err)
			return
		}
		respondJSON(w, http.StatusOK, list)
	}
}
