package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mx-space/fpcollector/internal/config"
	"github.com/mx-space/fpcollector/internal/database"
	"github.com/mx-space/fpcollector/internal/middleware"
	"github.com/mx-space/fpcollector/internal/modules/announcement"
	"github.com/mx-space/fpcollector/internal/modules/auth"
	"github.com/mx-space/fpcollector/internal/modules/fingerprint"
	"github.com/mx-space/fpcollector/internal/modules/logs"
	pkgcron "github.com/mx-space/fpcollector/internal/pkg/cron"
	"github.com/mx-space/fpcollector/internal/pkg/jwt"
	"github.com/mx-space/fpcollector/internal/pkg/metrics"
	pkgredis "github.com/mx-space/fpcollector/internal/pkg/redis"
	"github.com/mx-space/fpcollector/internal/store"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// App holds all application dependencies.
type App struct {
	cfg     *config.AppConfig
	router  *gin.Engine
	db      *gorm.DB
	store   *store.SQL
	tokens  *jwt.Service
	metrics *metrics.Metrics
	redis   *pkgredis.Client
	ownsDB  bool
	sched   *pkgcron.Scheduler
	logger  *zap.Logger
	cancel  context.CancelFunc
}

type options struct {
	db  *gorm.DB
	now func() time.Time
}

// Option customises New.
type Option func(*options)

// WithDB uses an already open database instead of connecting from config.
// The schema is still migrated.
func WithDB(db *gorm.DB) Option {
	return func(o *options) { o.db = db }
}

// WithClock overrides time.Now for token issuance and record timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// New initializes the application: DB → token service → Redis → routes.
func New(logger *zap.Logger, cfg *config.AppConfig, opts ...Option) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	db := o.db
	if db == nil {
		var err error
		if db, err = database.Connect(cfg, true); err != nil {
			return nil, fmt.Errorf("database: %w", err)
		}
	} else if err := database.Migrate(db); err != nil {
		return nil, fmt.Errorf("database: migration failed: %w", err)
	}
	gw := store.NewSQL(db, store.WithClock(o.now))
	tokens := jwt.New([]byte(cfg.JWTSecret), jwt.WithClock(o.now))

	var m *metrics.Metrics
	if cfg.MetricsAddr != "" {
		m = metrics.New()
	}

	var ingestOpts []fingerprint.ServiceOption
	var rc *pkgredis.Client
	if cfg.Redis.URL != "" {
		var err error
		if rc, err = pkgredis.Connect(context.Background(), cfg.Redis.URL); err != nil {
			return nil, fmt.Errorf("redis: %w", err)
		}
		ingestOpts = append(ingestOpts, fingerprint.WithNotifier(fingerprint.NewRedisNotifier(rc, cfg.Redis.Channel)))
	}

	scripts, err := fingerprint.NewScriptBuilder(cfg.Fingerprint.MinifyScript)
	if err != nil {
		return nil, fmt.Errorf("collector script: %w", err)
	}
	verifier, err := auth.NewVerifier(cfg.Auth.PasswordScheme, gw)
	if err != nil {
		return nil, fmt.Errorf("auth: %w", err)
	}
	announce, err := announcement.NewHandler(cfg.Announcement)
	if err != nil {
		return nil, fmt.Errorf("announcement: %w", err)
	}

	sched := pkgcron.New(logger)
	if err := registerCronJobs(sched, gw, cfg, logger); err != nil {
		return nil, fmt.Errorf("cron: %w", err)
	}

	if cfg.IsDev() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.RedirectTrailingSlash = false
	router.RedirectFixedPath = false
	router.HandleMethodNotAllowed = false
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(logger))
	router.Use(middleware.Metrics(m))

	app := &App{
		cfg:     cfg,
		router:  router,
		db:      db,
		store:   gw,
		tokens:  tokens,
		metrics: m,
		redis:   rc,
		ownsDB:  o.db == nil,
		sched:   sched,
		logger:  logger,
		cancel:  func() {},
	}
	app.registerRoutes(handlers{
		fingerprint: fingerprint.NewHandler(
			fingerprint.NewService(gw, logger, ingestOpts...),
			scripts, cfg.Fingerprint.EndpointScheme, m, logger,
		),
		auth:         auth.NewHandler(verifier, tokens, m, logger),
		logs:         logs.NewHandler(gw, logger),
		announcement: announce,
	})
	return app, nil
}

// Addr returns the listen address.
func (a *App) Addr() string { return a.cfg.Addr() }

// Router returns the HTTP handler.
func (a *App) Router() http.Handler { return a.router }

// Store returns the persistence gateway.
func (a *App) Store() *store.SQL { return a.store }

// Tokens returns the token service used for sessions.
func (a *App) Tokens() *jwt.Service { return a.tokens }

// Scheduler returns the background job scheduler.
func (a *App) Scheduler() *pkgcron.Scheduler { return a.sched }

// MetricsHandler serves /metrics, or nil when metrics are disabled.
func (a *App) MetricsHandler() http.Handler {
	if a.metrics == nil {
		return nil
	}
	return a.metrics.Handler()
}

// Start launches background jobs. It returns immediately.
func (a *App) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	a.sched.Start(ctx)
}

// Shutdown stops background jobs and releases connections.
func (a *App) Shutdown() {
	a.cancel()
	a.sched.Wait()
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("redis close failed", zap.Error(err))
		}
	}
	if !a.ownsDB {
		return
	}
	if sqlDB, err := a.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
