package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mind-engage/mindengage-quiz/internal/admin"
	api "github.com/mind-engage/mindengage-quiz/internal/api/http"
	"github.com/mind-engage/mindengage-quiz/internal/attempt"
	auth "github.com/mind-engage/mindengage-quiz/internal/auth/middleware"
	"github.com/mind-engage/mindengage-quiz/internal/cache"
	"github.com/mind-engage/mindengage-quiz/internal/config"
	"github.com/mind-engage/mindengage-quiz/internal/db"
	"github.com/mind-engage/mindengage-quiz/internal/grading"
	"github.com/mind-engage/mindengage-quiz/internal/logger"
	"github.com/mind-engage/mindengage-quiz/internal/notify"
	"github.com/mind-engage/mindengage-quiz/internal/progress"
	"github.com/mind-engage/mindengage-quiz/internal/quiz"
	syncx "github.com/mind-engage/mindengage-quiz/internal/sync"
	"github.com/mind-engage/mindengage-quiz/internal/tracing"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	lg, err := logger.New(cfg.LogMode)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer lg.Sync()

	if err := run(cfg, lg); err != nil {
		lg.Fatal("gateway stopped", "error", err)
	}
}

func run(cfg config.Config, lg *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, lg, tracing.Config{
		Enabled:     cfg.OTelEnabled,
		ServiceName: "mindengage-quiz",
		Environment: string(cfg.Mode),
		Exporter:    cfg.OTelExporter,
		Endpoint:    cfg.OTelEndpoint,
		SampleRatio: cfg.OTelSampleRatio,
	})
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(sctx)
	}()

	// --- DB ---
	openCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	dbh, err := db.Open(openCtx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	cancel()
	if err != nil {
		return fmt.Errorf("db open: %w", err)
	}
	defer dbh.Close()

	// --- Quiz definitions, optionally behind Redis ---
	sqlQuizzes := quiz.NewSQLStore(dbh, lg)
	var quizzes quiz.Repository = sqlQuizzes
	if cfg.RedisAddr != "" {
		rc, err := cache.NewRedis(ctx, cache.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Prefix:   "mindengage-quiz:",
		})
		if err != nil {
			return err
		}
		defer rc.Close()
		quizzes = quiz.NewCachedRepository(sqlQuizzes, rc, cfg.QuizCacheTTL, lg)
		lg.Info("quiz cache enabled", "redis_addr", cfg.RedisAddr, "ttl", cfg.QuizCacheTTL)
	}

	// --- Services ---
	store := attempt.NewSQLStore(dbh)
	prog := progress.NewService(dbh, lg)
	notes := notify.NewSQLRepository(dbh)
	events := syncx.NewEventRepo(dbh, "")
	attempts := attempt.NewService(quizzes, store, grading.NewDefaultGrader(), lg,
		attempt.WithModuleProgress(prog),
		attempt.WithNotifications(notes),
		attempt.WithEvents(events),
	)

	handler := api.NewRouter(api.Deps{
		Log:  lg,
		Auth: auth.NewAuthService(cfg.AuthHMACSecret),
		Credentials: auth.Credentials{
			AdminUser:     cfg.AdminUser,
			AdminPassHash: cfg.AdminPassHash,
			DevLogin:      cfg.Mode == config.ModeOffline,
		},
		// Local login is enabled in offline mode by default; can be enabled online via env.
		EnableLocalAuth: cfg.EnableLocalAuth,
		Quizzes:         quizzes,
		Attempts:        attempts,
		Admin:           admin.NewService(quizzes, store, attempts, lg),
		Progress:        prog,
		Notifications:   notes,
		Events:          events,
		CORSOrigins:     cfg.CORSOrigins,
		RequestTimeout:  cfg.RequestTimeout,
		Ready:           dbh.PingContext,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		lg.Info("listening", "addr", cfg.HTTPAddr, "mode", cfg.Mode, "db", cfg.DBDriver)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		lg.Info("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(sctx)
	})
	return g.Wait()
}
