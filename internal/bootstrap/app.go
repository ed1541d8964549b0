package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"

	"usely-backend/internal/analytics"
	"usely-backend/internal/apikeys"
	googleauth "usely-backend/internal/auth"
	"usely-backend/internal/billing"
	"usely-backend/internal/dashboard"
	"usely-backend/internal/pricing"
	"usely-backend/internal/queue"
	"usely-backend/internal/quota"
	"usely-backend/internal/services/health"
	"usely-backend/internal/shared/config"
	"usely-backend/internal/shared/ratelimit"
	"usely-backend/internal/shared/server"
	"usely-backend/internal/shared/storage/db"
	"usely-backend/internal/shared/storage/object"
	localstore "usely-backend/internal/shared/storage/object/local"
	s3store "usely-backend/internal/shared/storage/object/s3"
	"usely-backend/internal/shared/telemetry"
	"usely-backend/internal/team"
	"usely-backend/internal/tracking"
	"usely-backend/internal/users"
	"usely-backend/internal/waitlist"
	"usely-backend/internal/webhooks"
)

const memoryQueueBuffer = 1024

// App holds shared dependencies and the assembled router.
type App struct {
	Config  config.Config
	Router  *gin.Engine
	DB      *sql.DB
	Redis   *redis.Client
	Store   object.ObjectStore
	Queue   queue.Client
	Limiter ratelimit.Limiter
	Health  *health.Service

	Pricing   *pricing.Table
	Quota     *quota.Service
	Tracking  *tracking.Service
	Analytics *analytics.Service
	APIKeys   *apikeys.Service
	Billing   *billing.Service
	Team      *team.Service
	Waitlist  *waitlist.Service
	Webhooks  *webhooks.Service
	Deliverer *webhooks.Deliverer
	Dashboard *dashboard.Service
	Users     *users.Service

	GoogleAuth *googleauth.GoogleService

	memQueue    *queue.MemoryQueue
	stopWorkers context.CancelFunc
}

// Build prepares shared dependencies and wires routes.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	ctx := context.Background()

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	redisClient, err := buildRedis(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	table, err := buildPricing(cfg)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config:  cfg,
		DB:      sqlDB,
		Redis:   redisClient,
		Store:   store,
		Pricing: table,
		Health:  health.NewService(),
	}

	if err := buildQueue(ctx, app); err != nil {
		return nil, err
	}
	buildServices(app)
	buildHealth(app)

	app.Router = server.NewRouter(server.RouterDeps{
		Config:           app.Config,
		Limiter:          app.Limiter,
		Health:           app.Health,
		APIKeys:          app.APIKeys,
		TrackingHandler:  tracking.NewHandler(app.Tracking),
		AnalyticsHandler: analytics.NewHandler(app.Analytics),
		PricingHandler:   pricing.NewHandler(app.Pricing),
		KeysHandler:      apikeys.NewHandler(app.APIKeys),
		QuotaHandler:     quota.NewHandler(app.Quota),
		BillingHandler:   billing.NewHandler(app.Billing),
		TeamHandler:      team.NewHandler(app.Team),
		WaitlistHandler:  waitlist.NewHandler(app.Waitlist),
		WebhooksHandler:  webhooks.NewHandler(app.Webhooks),
		DashboardHandler: dashboard.NewHandler(app.Dashboard),
		UserHandler:      users.NewHandler(app.Users),
		GoogleAuth:       app.GoogleAuth,
	})

	return app, nil
}

// Close stops in-process webhook workers and releases connections.
func (a *App) Close() error {
	if a.stopWorkers != nil {
		a.stopWorkers()
		a.memQueue.Wait()
	}
	var errs []error
	if a.Redis != nil {
		errs = append(errs, a.Redis.Close())
	}
	if a.DB != nil && !db.IsLambdaRuntime() {
		errs = append(errs, a.DB.Close())
	}
	return errors.Join(errs...)
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if cfg.IsDevLike() {
			telemetry.Warn("bootstrap.memory_repositories", map[string]any{"reason": "DATABASE_URL empty"})
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	var (
		sqlDB *sql.DB
		err   error
	)
	if db.IsLambdaRuntime() {
		opts := db.OptionsFromEnv(db.DefaultLambdaOptions())
		sqlDB, err = db.GetSingleton(ctx, cfg.DatabaseURL, opts)
	} else {
		opts := db.OptionsFromEnv(db.DefaultServerOptions())
		sqlDB, err = db.Connect(ctx, cfg.DatabaseURL, opts)
	}
	if err != nil {
		if cfg.IsDevLike() {
			telemetry.Warn("bootstrap.memory_repositories", map[string]any{"reason": "database connect failed", "error": err})
			return nil, nil
		}
		return nil, err
	}

	if cfg.IsDevLike() {
		if err := db.RunMigrations(ctx, sqlDB); err != nil {
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}
	return sqlDB, nil
}

func buildRedis(ctx context.Context, cfg config.Config) (*redis.Client, error) {
	if strings.TrimSpace(cfg.RedisURL) == "" {
		return nil, nil
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		if cfg.IsDevLike() {
			telemetry.Warn("bootstrap.redis_unavailable", map[string]any{"error": err})
			_ = client.Close()
			return nil, nil
		}
		// Limiter and guard fail open on Redis errors.
		telemetry.Error("bootstrap.redis_ping_failed", map[string]any{"error": err})
	}
	return client, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, fmt.Errorf("OBJECT_STORE=s3 requires S3_BUCKET")
		}
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildPricing(cfg config.Config) (*pricing.Table, error) {
	table := pricing.NewTable()
	if path := strings.TrimSpace(cfg.PricingFile); path != "" {
		if err := table.LoadFile(path); err != nil {
			return nil, fmt.Errorf("load pricing file: %w", err)
		}
	}
	if raw := strings.TrimSpace(cfg.PricingJSON); raw != "" {
		if err := table.MergeJSON(raw); err != nil {
			return nil, fmt.Errorf("merge PRICING_JSON: %w", err)
		}
	}
	return table, nil
}

// buildQueue selects SQS when a queue URL is configured and an in-process
// worker pool otherwise. The Deliverer is built either way so the worker
// binaries can reuse it.
func buildQueue(ctx context.Context, app *App) error {
	var repo webhooks.Repo
	if app.DB != nil {
		repo = &webhooks.PGRepo{DB: app.DB}
	} else {
		repo = webhooks.NewMemoryRepo()
	}
	app.Deliverer = webhooks.NewDeliverer(repo)
	app.Webhooks = webhooks.NewService(repo, nil)

	if strings.TrimSpace(app.Config.WebhookQueueURL) != "" {
		client, err := queue.NewSQSClient(ctx, app.Config.WebhookQueueURL, app.Config.AWSRegion)
		if err != nil {
			return err
		}
		app.Queue = client
		app.Webhooks.Queue = client
		return nil
	}

	mem := queue.NewMemoryQueue(memoryQueueBuffer)
	workerCtx, cancel := context.WithCancel(context.Background())
	mem.Start(workerCtx, app.Config.WebhookWorkers, app.Deliverer.Deliver)
	app.memQueue = mem
	app.stopWorkers = cancel
	app.Queue = mem
	app.Webhooks.Queue = mem
	return nil
}

func buildServices(app *App) {
	var (
		trackingRepo tracking.Repo
		keyRepo      apikeys.Repo
		billingRepo  billing.Repo
		teamRepo     team.Repo
		waitlistRepo waitlist.Repo
		userRepo     users.Repo
		store        analytics.Store
	)
	if app.DB != nil {
		trackingRepo = &tracking.PGRepo{DB: app.DB}
		keyRepo = &apikeys.PGRepo{DB: app.DB}
		billingRepo = &billing.PGRepo{DB: app.DB}
		teamRepo = &team.PGRepo{DB: app.DB}
		waitlistRepo = &waitlist.PGRepo{DB: app.DB}
		userRepo = &users.PGRepo{DB: app.DB}
		store = &analytics.PGStore{DB: app.DB}
		app.Quota = quota.NewPostgresService(quota.NewPGStore(app.DB, nil))
	} else {
		trackingRepo = tracking.NewMemoryRepo()
		keyRepo = apikeys.NewMemoryRepo()
		billingRepo = billing.NewMemoryRepo()
		teamRepo = team.NewMemoryRepo()
		waitlistRepo = waitlist.NewMemoryRepo()
		userRepo = users.NewMemoryRepo()
		store = analytics.NewMemoryStore(trackingRepo)
		app.Quota = quota.NewService(nil)
	}

	var guard waitlist.Guard
	if app.Redis != nil {
		app.Limiter = ratelimit.NewRedisLimiter(app.Redis, nil)
		guard = waitlist.NewRedisGuard(app.Redis, waitlist.CooldownWindow)
	} else {
		app.Limiter = ratelimit.NewMemoryLimiter(nil)
		guard = waitlist.NewMemoryGuard(waitlist.CooldownWindow, nil)
	}

	app.Tracking = &tracking.Service{
		Repo:      trackingRepo,
		Pricing:   app.Pricing,
		Quota:     app.Quota,
		Publisher: app.Webhooks,
	}
	app.Analytics = analytics.NewService(store)
	app.APIKeys = apikeys.NewService(keyRepo)
	app.Billing = &billing.Service{
		Repo:      billingRepo,
		Quota:     app.Quota,
		Costs:     app.Analytics,
		Publisher: app.Webhooks,
	}
	app.Team = &team.Service{
		Repo:      teamRepo,
		Plans:     app.Billing,
		Quota:     app.Quota,
		Usage:     app.Analytics,
		Publisher: app.Webhooks,
	}
	app.Waitlist = waitlist.NewService(waitlistRepo, guard)
	app.Dashboard = &dashboard.Service{
		Quota:     app.Quota,
		Analytics: app.Analytics,
		Records:   app.Tracking,
		Objects:   app.Store,
	}
	app.Users = users.NewService(userRepo)
	app.GoogleAuth = googleauth.NewGoogleService(
		app.Config.GoogleClientID,
		app.Config.GoogleClientSecret,
		app.Config.GoogleRedirectURL,
		app.Config.UIRedirectURL,
		app.Users,
	)
}

func buildHealth(app *App) {
	var dbCheck, redisCheck health.Check
	if app.DB != nil {
		dbCheck = func(ctx context.Context) error { return db.Ping(ctx, app.DB) }
	}
	if app.Redis != nil {
		redisCheck = func(ctx context.Context) error { return app.Redis.Ping(ctx).Err() }
	}
	app.Health.Add("database", dbCheck)
	app.Health.Add("redis", redisCheck)
}
