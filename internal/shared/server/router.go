package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"usely-backend/internal/analytics"
	"usely-backend/internal/apikeys"
	googleauth "usely-backend/internal/auth"
	"usely-backend/internal/billing"
	"usely-backend/internal/dashboard"
	"usely-backend/internal/pricing"
	"usely-backend/internal/quota"
	"usely-backend/internal/services/health"
	"usely-backend/internal/shared/config"
	"usely-backend/internal/shared/metrics"
	"usely-backend/internal/shared/ratelimit"
	"usely-backend/internal/shared/server/middleware"
	"usely-backend/internal/shared/server/respond"
	"usely-backend/internal/team"
	"usely-backend/internal/tracking"
	"usely-backend/internal/users"
	"usely-backend/internal/waitlist"
	"usely-backend/internal/webhooks"
)

// Rate limit groups.
const (
	GroupTrack     = "TRACK"
	GroupAnalytics = "ANALYTICS"
	GroupWaitlist  = "WAITLIST"
	GroupDefault   = "DEFAULT"
)

// RouterDeps carries the handlers the router mounts. Nil handlers are skipped.
type RouterDeps struct {
	Config  config.Config
	Limiter ratelimit.Limiter
	Health  *health.Service
	APIKeys apikeys.Authenticator

	TrackingHandler  *tracking.Handler
	AnalyticsHandler *analytics.Handler
	PricingHandler   *pricing.Handler
	KeysHandler      *apikeys.Handler
	QuotaHandler     *quota.Handler
	BillingHandler   *billing.Handler
	TeamHandler      *team.Handler
	WaitlistHandler  *waitlist.Handler
	WebhooksHandler  *webhooks.Handler
	DashboardHandler *dashboard.Handler
	UserHandler      *users.Handler
	GoogleAuth       *googleauth.GoogleService
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Metrics(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
	)

	limiter := deps.Limiter
	if limiter == nil {
		limiter = ratelimit.NewMemoryLimiter(nil)
	}
	rules := map[string]ratelimit.Rule{
		GroupTrack:     ratelimit.PerMinute(deps.Config.TrackRatePerMinute),
		GroupAnalytics: ratelimit.PerMinute(deps.Config.AnalyticsRatePerMinute),
		GroupWaitlist:  ratelimit.PerMinute(deps.Config.WaitlistRatePerMinute),
		GroupDefault:   ratelimit.PerMinute(deps.Config.DefaultRatePerMinute),
	}
	limit := func(group string) gin.HandlerFunc {
		return middleware.RateLimit(middleware.RateLimitConfig{
			Rules:    rules,
			GroupFor: func(*gin.Context) string { return group },
			IPGroups: map[string]bool{GroupWaitlist: true},
			Limiter:  limiter,
		})
	}

	healthSvc := deps.Health
	if healthSvc == nil {
		healthSvc = health.NewService()
	}
	r.GET("/healthz", func(c *gin.Context) {
		report := healthSvc.Status(c.Request.Context())
		status := http.StatusOK
		if !report.OK {
			status = http.StatusServiceUnavailable
		}
		respond.JSON(c, status, report)
	})
	r.GET("/metrics", metrics.Handler())

	// SDK surface, authenticated by API key. Mounted at the root and under /v1.
	if deps.APIKeys != nil {
		for _, prefix := range []string{"", "/v1"} {
			sdk := r.Group(prefix, apikeys.RequireAPIKey(deps.APIKeys))
			if deps.TrackingHandler != nil {
				deps.TrackingHandler.RegisterRoutes(sdk.Group("", limit(GroupTrack)))
			}
			if deps.AnalyticsHandler != nil {
				deps.AnalyticsHandler.RegisterRoutes(sdk.Group("", limit(GroupAnalytics)))
			}
		}
		if deps.TrackingHandler != nil {
			v1 := r.Group("/v1", apikeys.RequireAPIKey(deps.APIKeys), limit(GroupDefault))
			deps.TrackingHandler.RegisterListRoutes(v1)
		}
	}
	if deps.PricingHandler != nil {
		deps.PricingHandler.RegisterRoutes(r.Group("/v1", limit(GroupDefault)))
	}

	api := r.Group("/api")

	public := api.Group("", limit(GroupDefault))
	if deps.GoogleAuth != nil {
		deps.GoogleAuth.RegisterRoutes(public)
	}
	if deps.BillingHandler != nil {
		deps.BillingHandler.RegisterPublicRoutes(public)
	}
	if deps.WaitlistHandler != nil {
		deps.WaitlistHandler.RegisterRoutes(public, limit(GroupWaitlist))
	}

	authed := api.Group("", middleware.Auth(), limit(GroupDefault))
	if deps.UserHandler != nil {
		deps.UserHandler.RegisterRoutes(authed)
	}
	if deps.KeysHandler != nil {
		deps.KeysHandler.RegisterRoutes(authed)
	}
	if deps.TeamHandler != nil {
		deps.TeamHandler.RegisterRoutes(authed)
	}
	if deps.WebhooksHandler != nil {
		deps.WebhooksHandler.RegisterRoutes(authed)
	}
	if deps.QuotaHandler != nil {
		deps.QuotaHandler.RegisterRoutes(authed)
	}

	dash := authed.Group("/dashboard")
	if deps.DashboardHandler != nil {
		deps.DashboardHandler.RegisterRoutes(dash)
	}
	if deps.BillingHandler != nil {
		deps.BillingHandler.RegisterRoutes(dash)
	}

	if deps.Config.IsDevLike() && deps.QuotaHandler != nil {
		deps.QuotaHandler.RegisterDevRoutes(authed.Group("/dev"))
	}

	r.NoRoute(func(c *gin.Context) {
		respond.Error(c, http.StatusNotFound, "not_found", "route not found", nil)
	})

	return r
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
