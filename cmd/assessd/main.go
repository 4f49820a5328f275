package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	api "github.com/mind-engage/mindengage-assess/internal/api/http"
	"github.com/mind-engage/mindengage-assess/internal/assessment"
	"github.com/mind-engage/mindengage-assess/internal/attempt"
	auth "github.com/mind-engage/mindengage-assess/internal/auth/middleware"
	"github.com/mind-engage/mindengage-assess/internal/clock"
	"github.com/mind-engage/mindengage-assess/internal/config"
	"github.com/mind-engage/mindengage-assess/internal/db"
	"github.com/mind-engage/mindengage-assess/internal/enrollment"
	"github.com/mind-engage/mindengage-assess/internal/notify"
	"github.com/mind-engage/mindengage-assess/internal/quiz"
	"github.com/mind-engage/mindengage-assess/internal/rubric"
	"github.com/mind-engage/mindengage-assess/internal/svcclient"
	"github.com/mind-engage/mindengage-assess/internal/sweeper"
	syncx "github.com/mind-engage/mindengage-assess/internal/sync"
)

func main() {
	cfg := config.Load()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- DB ---
	driver, err := db.ParseDriver(cfg.DBDriver)
	if err != nil {
		log.Fatalf("db driver: %v", err)
	}
	openCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	dbh, err := db.Open(openCtx, driver, cfg.DBDSN)
	cancel()
	if err != nil {
		log.Fatalf("db open failed: %v", err)
	}
	defer dbh.Close()

	// --- Stores ---
	var quizzes quiz.Store = quiz.NewSQLStore(dbh, clock.Real)
	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		quizzes = quiz.NewCachedStore(quizzes, rdb, cfg.QuizCacheTTL, logger)
	}
	ledger := attempt.NewSQLLedger(dbh, driver)

	// --- Collaborators ---
	httpc := svcclient.New(svcclient.Config{
		TokenURL:     cfg.ServiceTokenURL,
		ClientID:     cfg.ServiceClientID,
		ClientSecret: cfg.ServiceClientSecret,
	})
	var checker enrollment.Checker = enrollment.NewSQLChecker(dbh)
	if cfg.EnrollmentURL != "" {
		checker = enrollment.NewHTTPChecker(cfg.EnrollmentURL, httpc)
	}

	sinks := []notify.Sink{syncx.NewEventRepo(dbh, cfg.SiteID)}
	if cfg.AMQPURL != "" {
		pub, err := notify.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			log.Fatalf("amqp: %v", err)
		}
		defer pub.Close()
		sinks = append(sinks, pub)
	}
	if cfg.NotifyURL != "" {
		sinks = append(sinks, notify.NewHTTPNotifier(cfg.NotifyURL, httpc))
	}
	dispatcher := notify.NewDispatcher(logger, cfg.NotifyQueueSize, cfg.NotifyTimeout, sinks...)

	svc := assessment.New(quizzes, ledger, rubric.NewSQLStore(dbh),
		assessment.WithLogger(logger),
		assessment.WithNotifier(dispatcher),
		assessment.WithEnrollment(checker),
	)
	sw := sweeper.New(ledger, svc, clock.Real, cfg.SweepInterval, cfg.SweepBatch, logger)

	// --- Auth ---
	authSvc := auth.NewAuthService(cfg.AuthHMACSecret)
	authSvc.LocalLogins = cfg.EnableLocalAuth
	authSvc.AdminUser, authSvc.AdminPassHash = cfg.AdminUser, cfg.AdminPassHash

	// --- Router ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins(),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Post("/auth/login", auth.LoginHandler(authSvc))

	// Protected API (JWT → role in context → RBAC)
	r.Group(func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(authSvc))
		api.MountAssessment(pr, svc)
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := dbh.PingContext(r.Context()); err != nil {
			http.Error(w, "db: "+err.Error(), http.StatusServiceUnavailable)
			return
		}
		if rdb != nil {
			if err := rdb.Ping(r.Context()).Err(); err != nil {
				http.Error(w, "redis: "+err.Error(), http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	})
	r.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: r, ReadHeaderTimeout: 10 * time.Second}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", "addr", cfg.HTTPAddr, "mode", cfg.Mode, "db", driver, "sinks", len(sinks))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error { return sw.Run(gctx) })
	g.Go(func() error { return dispatcher.Run(gctx) })
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatalf("assessd: %v", err)
	}
	logger.Info("stopped")
}
