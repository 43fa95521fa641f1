package routes

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/hollowaylabs/gatehouse/internal/admission"
	"github.com/hollowaylabs/gatehouse/internal/api/handlers"
	"github.com/hollowaylabs/gatehouse/internal/api/middleware"
	"github.com/hollowaylabs/gatehouse/internal/config"
	"github.com/hollowaylabs/gatehouse/internal/metrics"
	"github.com/hollowaylabs/gatehouse/internal/models"
	"github.com/hollowaylabs/gatehouse/internal/ratelimit"
	"github.com/hollowaylabs/gatehouse/internal/relay"
	"github.com/hollowaylabs/gatehouse/internal/services"
)

// Deps holds the long-lived pipeline components routes construct, so main
// can schedule their background work and shut them down cleanly.
type Deps struct {
	Relay   *relay.Registry
	Limiter *ratelimit.MemoryCounter // nil when Redis backs the counter
	Events  *services.EventService
	Intel   *services.ThreatIntelService
}

// Register wires up the admission pipeline, API routes, and migrations.
func Register(router *gin.Engine, db *gorm.DB, cfg config.Config) (*Deps, error) {
	if err := db.AutoMigrate(
		&models.SecurityEvent{},
		&models.ThreatIntelEntry{},
	); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}

	registry := relay.New(cfg.RelayListURL)

	var limiter ratelimit.Counter
	var memLimiter *ratelimit.MemoryCounter
	if cfg.RedisAddr != "" {
		limiter = ratelimit.NewRedisCounter(
			redis.NewClient(&redis.Options{Addr: cfg.RedisAddr}),
			cfg.RateLimitMax, cfg.RateLimitWindow,
		)
	} else {
		memLimiter = ratelimit.NewMemoryCounter(cfg.RateLimitMax, cfg.RateLimitWindow)
		limiter = memLimiter
	}

	var vpn admission.VpnLookup = admission.NoopVpnLookup{}
	if cfg.VpnLookupURL != "" {
		vpn = admission.NewHTTPVpnLookup(cfg.VpnLookupURL, cfg.VpnLookupKey, cfg.VpnLookupTimeout)
	}

	intel := services.NewThreatIntelService(db)
	notifier := services.NewNotifierService(cfg.NotifyURLs)
	events := services.NewEventService(db, intel, notifier, cfg.NotableThreshold)
	behavior := services.NewBehaviorService(db)

	engine := admission.NewEngine(registry, limiter, vpn, intel, behavior, events, admission.Options{
		BlockedCountries:      cfg.BlockedCountries,
		RelayHardBlock:        cfg.RelayPolicy == config.RelayPolicyBlock,
		NotableThreshold:      cfg.NotableThreshold,
		BlockThreshold:        cfg.BlockThreshold,
		BehaviorLookback:      cfg.BehaviorLookback,
		BehaviorMaxRequests:   cfg.BehaviorMaxRequests,
		BehaviorMaxPaths:      cfg.BehaviorMaxPaths,
		BehaviorMaxUserAgents: cfg.BehaviorMaxUserAgents,
	})

	promRegistry := prometheus.NewRegistry()
	metrics.Register(promRegistry)

	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.Admission(engine, "/api/health", "/metrics"))

	healthHandler := handlers.NewHealthHandler(registry)
	securityHandler := handlers.NewSecurityHandler(events, intel)

	api := router.Group("/api")
	{
		api.GET("/health", healthHandler.Get)
		api.GET("/security/events", securityHandler.ListEvents)
		api.GET("/security/intel/:address", securityHandler.GetIntel)
	}

	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(promRegistry, promhttp.HandlerOpts{})))

	return &Deps{
		Relay:   registry,
		Limiter: memLimiter,
		Events:  events,
		Intel:   intel,
	}, nil
}
