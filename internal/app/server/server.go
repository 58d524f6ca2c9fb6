package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"

	"hrcrm/internal/domain/admin"
	"hrcrm/internal/domain/audit"
	"hrcrm/internal/domain/auth"
	"hrcrm/internal/domain/core"
	"hrcrm/internal/domain/crm"
	"hrcrm/internal/domain/documents"
	"hrcrm/internal/domain/finance"
	"hrcrm/internal/domain/leave"
	"hrcrm/internal/domain/notifications"
	"hrcrm/internal/domain/overtime"
	"hrcrm/internal/domain/performance"
	"hrcrm/internal/domain/recruitment"
	"hrcrm/internal/domain/timetracking"
	"hrcrm/internal/platform/config"
	cryptoutil "hrcrm/internal/platform/crypto"
	"hrcrm/internal/platform/db"
	"hrcrm/internal/platform/email"
	"hrcrm/internal/platform/jobs"
	"hrcrm/internal/platform/metrics"
	adminhandler "hrcrm/internal/transport/http/handlers/admin"
	audithandler "hrcrm/internal/transport/http/handlers/audit"
	authhandler "hrcrm/internal/transport/http/handlers/auth"
	corehandler "hrcrm/internal/transport/http/handlers/core"
	crmhandler "hrcrm/internal/transport/http/handlers/crm"
	documentshandler "hrcrm/internal/transport/http/handlers/documents"
	financehandler "hrcrm/internal/transport/http/handlers/finance"
	leavehandler "hrcrm/internal/transport/http/handlers/leave"
	notificationshandler "hrcrm/internal/transport/http/handlers/notifications"
	overtimehandler "hrcrm/internal/transport/http/handlers/overtime"
	performancehandler "hrcrm/internal/transport/http/handlers/performance"
	recruitmenthandler "hrcrm/internal/transport/http/handlers/recruitment"
	timetrackinghandler "hrcrm/internal/transport/http/handlers/timetracking"
	"hrcrm/internal/transport/http/middleware"
	"hrcrm/migrations"
)

const shutdownTimeout = 15 * time.Second

type Server struct {
	Config  config.Config
	DB      *db.Pool
	Jobs    *jobs.Service
	Metrics *metrics.Collector
	Router  http.Handler
}

// New connects to the database, prepares the schema and builds the router.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if cfg.RunMigrations {
		if err := db.Migrate(ctx, pool, migrations.Files); err != nil {
			pool.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}
	if cfg.RunSeed {
		if err := db.Seed(ctx, pool, cfg); err != nil {
			pool.Close()
			return nil, fmt.Errorf("seed database: %w", err)
		}
	}

	crypto, err := cryptoutil.New(cfg.DataEncryptionKey)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("init encryption: %w", err)
	}

	collector := metrics.New()
	jobsSvc := jobs.New(pool, collector)
	s := &Server{Config: cfg, DB: pool, Jobs: jobsSvc, Metrics: collector}
	s.Router = s.routes(crypto)
	return s, nil
}

func (s *Server) routes(crypto *cryptoutil.Service) http.Handler {
	cfg, pool := s.Config, s.DB
	perms := auth.PermissionChecker{}

	notifySvc := notifications.New(notifications.NewStore(pool), email.New(cfg), cfg.EmailEnabled, cfg.EmailFrom)
	auditSvc := audit.New(pool)
	authSvc := auth.NewService(auth.NewStore(pool), crypto, cfg.JWTSecret, cfg.TokenTTL)
	coreSvc := core.NewService(core.NewStore(pool, crypto))
	leaveSvc := leave.NewService(leave.NewStore(pool), notifySvc)
	timeSvc := timetracking.NewService(timetracking.NewStore(pool), notifySvc, timetracking.Rules{
		RegularHoursPerDay: cfg.RegularHoursPerDay,
		NightStartHour:     cfg.NightShiftStartHour,
		NightEndHour:       cfg.NightShiftEndHour,
	}, cfg.TimeEntryAutoCloseAfter)
	overtimeSvc := overtime.NewService(overtime.NewStore(pool), notifySvc)
	financeSvc := finance.NewService(finance.NewStore(pool), notifySvc)
	crmSvc := crm.NewService(crm.NewStore(pool))
	documentsSvc := documents.NewService(documents.NewStore(pool))
	performanceSvc := performance.NewService(performance.NewStore(pool), notifySvc)
	recruitmentSvc := recruitment.NewService(recruitment.NewStore(pool))
	adminSvc := admin.NewService(admin.NewStore(pool), crypto, s.Metrics, notifySvc, cfg.Version, cfg.CredentialTTL)

	s.Jobs.Register(jobs.JobTimeEntryAutoClose, cfg.AutoCloseInterval, timeSvc.AutoClose)
	s.Jobs.Register(jobs.JobLeaveRollover, cfg.LeaveRolloverInterval, leaveSvc.RunRollover)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(s.Metrics))
	router.Use(middleware.Recoverer)
	router.Use(middleware.SecureHeaders(cfg.IsProduction()))
	router.Use(middleware.BodyLimit(cfg.MaxBodyBytes))
	router.Use(middleware.Auth(cfg.JWTSecret))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := pool.Ping(ctx); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})
	if cfg.MetricsEnabled {
		router.Handle("/metrics", s.Metrics.Handler())
	}

	router.Route("/api", func(r chi.Router) {
		r.Use(middleware.RateLimit(cfg.RateLimitPerMinute, time.Minute))
		r.Use(middleware.SensitiveMutationRateLimit(cfg.RateLimitPerMinute, time.Minute))

		authHandler := authhandler.NewHandler(authSvc)
		authHandler.RegisterPublic(r)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth)
			authHandler.RegisterRoutes(r)
			corehandler.NewHandler(coreSvc, perms, auditSvc).RegisterRoutes(r)
			leavehandler.NewHandler(leaveSvc, perms, auditSvc).RegisterRoutes(r)
			timetrackinghandler.NewHandler(timeSvc, perms, auditSvc).RegisterRoutes(r)
			overtimehandler.NewHandler(overtimeSvc, perms, auditSvc).RegisterRoutes(r)
			financehandler.NewHandler(financeSvc, perms, auditSvc).RegisterRoutes(r)
			crmhandler.NewHandler(crmSvc, perms, auditSvc).RegisterRoutes(r)
			documentshandler.NewHandler(documentsSvc, perms, auditSvc).RegisterRoutes(r)
			performancehandler.NewHandler(performanceSvc, perms).RegisterRoutes(r)
			recruitmenthandler.NewHandler(recruitmentSvc, perms, auditSvc).RegisterRoutes(r)
			notificationshandler.NewHandler(notifySvc, perms).RegisterRoutes(r)

			r.Route("/admin", func(r chi.Router) {
				r.Use(middleware.RequireRole(auth.RoleSuperAdmin, auth.RoleDirector))
				adminhandler.NewHandler(adminSvc, coreSvc, s.Jobs, auditSvc).RegisterRoutes(r)
				audithandler.NewHandler(auditSvc, perms).RegisterRoutes(r)
			})
		})
	})

	router.Mount("/", spaHandler{staticPath: cfg.FrontendDir, indexPath: "index.html"})
	return router
}

// Run serves HTTP and the background jobs until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	jobsCtx, stopJobs := context.WithCancel(ctx)
	defer stopJobs()
	s.Jobs.Start(jobsCtx)

	srv := &http.Server{
		Addr:              s.Config.Addr,
		Handler:           s.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", s.Config.Addr, "version", s.Config.Version, "env", s.Config.Environment)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) Close() {
	if s.DB != nil {
		s.DB.Close()
	}
}

type spaHandler struct {
	staticPath string
	indexPath  string
}

func (h spaHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	path := filepath.Join(h.staticPath, filepath.Clean("/"+r.URL.Path))
	info, err := os.Stat(path)
	if err == nil && !info.IsDir() {
		http.FileServer(http.Dir(h.staticPath)).ServeHTTP(w, r)
		return
	}

	if err == nil || os.IsNotExist(err) {
		http.ServeFile(w, r, filepath.Join(h.staticPath, h.indexPath))
		return
	}

	http.NotFound(w, r)
}
