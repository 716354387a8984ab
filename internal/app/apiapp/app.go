package apiapp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/minio/minio-go/v7"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/samson623/sports-buddy/internal/config"
	s3infra "github.com/samson623/sports-buddy/internal/infra/s3"
	"github.com/samson623/sports-buddy/internal/jobs/cleanup"
	pgrepo "github.com/samson623/sports-buddy/internal/repo/postgres"
	redrepo "github.com/samson623/sports-buddy/internal/repo/redis"
	analysissvc "github.com/samson623/sports-buddy/internal/services/analysis"
	archivesvc "github.com/samson623/sports-buddy/internal/services/archive"
	authsvc "github.com/samson623/sports-buddy/internal/services/auth"
	"github.com/samson623/sports-buddy/internal/services/qna"
	"github.com/samson623/sports-buddy/internal/services/quota"
	ratesvc "github.com/samson623/sports-buddy/internal/services/rate"
	"github.com/samson623/sports-buddy/internal/services/teams"
)

type App struct {
	cfg        config.Config
	logger     *zap.Logger
	server     *http.Server
	postgres   *pgxpool.Pool
	redis      *goredis.Client
	s3         *minio.Client
	httpRouter http.Handler
	cleanupJob *cleanup.Job
}

func New(ctx context.Context, cfg config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	r := chi.NewRouter()
	ApplyMiddlewares(r, log)

	var pool *pgxpool.Pool
	if p, err := pgrepo.NewPool(ctx, cfg.Postgres.DSN); err != nil {
		log.Warn("postgres init failed, continuing in degraded mode", zap.Error(err))
	} else {
		pool = p
	}

	teamRepo := pgrepo.NewTeamRepo(pool)
	depthChartRepo := pgrepo.NewDepthChartRepo(pool)
	gameRepo := pgrepo.NewGameRepo(pool)
	injuryRepo := pgrepo.NewInjuryRepo(pool)
	oddsRepo := pgrepo.NewOddsRepo(pool)
	profileRepo := pgrepo.NewProfileRepo(pool)
	qaLogRepo := pgrepo.NewQALogRepo(pool)
	analysisRepo := pgrepo.NewAnalysisRepo(pool)

	// The distributed sorted-set window is preferred; without redis the
	// limiter falls back to the process-local map, and the cleanup job
	// takes over evicting its expired keys.
	var redisClient *goredis.Client
	var rateStore ratesvc.Store
	var rateSweep *ratesvc.MemoryStore
	if strings.TrimSpace(cfg.Redis.Addr) != "" {
		redisClient = redrepo.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		rateStore = redrepo.NewRateRepo(redisClient)
	} else {
		log.Warn("redis addr is empty, rate limiting falls back to process-local state")
		rateSweep = ratesvc.NewMemoryStore()
		rateStore = rateSweep
	}

	jwtManager := authsvc.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.JWTAccessTTL)
	limiter := ratesvc.NewLimiter(rateStore, cfg.QnA.RateWindow, cfg.QnA.RateMaxRequests, log)
	tracker := quota.NewTracker(profileRepo, quota.Config{
		Period:    cfg.QnA.QuotaPeriod,
		FreeLimit: cfg.QnA.DailyQuota.Free,
		PlusLimit: cfg.QnA.DailyQuota.Plus,
		ProLimit:  cfg.QnA.DailyQuota.Pro,
	}, log)

	resolver := teams.NewResolver(teamRepo)
	router := qna.NewRouter(resolver, depthChartRepo, gameRepo, injuryRepo, oddsRepo)
	contexts := qna.NewContextBuilder(teamRepo, depthChartRepo, gameRepo, injuryRepo, oddsRepo, log)
	fallback := qna.NewFallback(cfg.OpenAI, log)
	qnaService := qna.NewService(limiter, tracker, router, contexts, fallback, qaLogRepo, qna.Config{
		MaxQuestionLen: cfg.QnA.MaxQuestionLen,
		FreeTokens:     cfg.QnA.MaxTokens.Free,
		PlusTokens:     cfg.QnA.MaxTokens.Plus,
		ProTokens:      cfg.QnA.MaxTokens.Pro,
	}, log)
	analysisService := analysissvc.NewService(
		profileRepo, analysisRepo, gameRepo, teamRepo,
		fallback, contexts, cfg.QnA.AnalysisTokens, log,
	)

	var s3Client *minio.Client
	if c, err := s3infra.NewClient(s3infra.Config{
		Endpoint:  cfg.S3.Endpoint,
		AccessKey: cfg.S3.AccessKey,
		SecretKey: cfg.S3.SecretKey,
		UseSSL:    cfg.S3.UseSSL,
	}); err != nil {
		log.Warn("s3 init failed, continuing in degraded mode", zap.Error(err))
	} else {
		s3Client = c
	}

	var archiveStorage *archivesvc.S3Storage
	if s3Client != nil {
		archiveStorage = archivesvc.NewS3Storage(s3Client, cfg.S3.Bucket)
	}
	var cleanupJob *cleanup.Job
	if archiveStorage != nil {
		cleanupJob = cleanup.NewQALogArchiveJob(qaLogRepo, archiveStorage, rateSweep, cfg.QnA.RateWindow, log)
	} else if rateSweep != nil {
		cleanupJob = cleanup.NewQALogArchiveJob(nil, nil, rateSweep, cfg.QnA.RateWindow, log)
	}

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      r,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	RegisterRoutes(r, Dependencies{
		QnAService:      qnaService,
		AnalysisService: analysisService,
		JWTManager:      jwtManager,
		Logger:          log,
		Config:          cfg,
	})

	return &App{
		cfg:        cfg,
		logger:     log,
		server:     server,
		postgres:   pool,
		redis:      redisClient,
		s3:         s3Client,
		httpRouter: r,
		cleanupJob: cleanupJob,
	}, nil
}

func (a *App) Run() error {
	a.logger.Info("api server started", zap.String("addr", a.cfg.HTTP.Addr))
	err := a.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// RunCleanupLoop drives the archive/sweep job until the context ends.
func (a *App) RunCleanupLoop(ctx context.Context) error {
	if a.cleanupJob == nil {
		return nil
	}

	interval := a.cfg.Cleanup.Interval
	if interval <= 0 {
		interval = 6 * time.Hour
	}

	if err := a.cleanupJob.Run(ctx); err != nil {
		a.logger.Warn("cleanup run failed", zap.Error(err))
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := a.cleanupJob.Run(ctx); err != nil {
				a.logger.Warn("cleanup run failed", zap.Error(err))
			}
		}
	}
}

func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error

	if err := a.server.Shutdown(ctx); err != nil {
		shutdownErr = err
	}
	if a.postgres != nil {
		a.postgres.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil && shutdownErr == nil {
			shutdownErr = err
		}
	}

	return shutdownErr
}

func (a *App) Handler() http.Handler {
	return a.httpRouter
}
