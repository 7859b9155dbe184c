package serve

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/chirino/social-service/internal/config"
	"github.com/chirino/social-service/internal/conversations"
	routesystem "github.com/chirino/social-service/internal/plugin/route/system"
	storemetrics "github.com/chirino/social-service/internal/plugin/store/metrics"
	registrycache "github.com/chirino/social-service/internal/registry/cache"
	registryevents "github.com/chirino/social-service/internal/registry/events"
	registrymedia "github.com/chirino/social-service/internal/registry/media"
	registrymigrate "github.com/chirino/social-service/internal/registry/migrate"
	registryroute "github.com/chirino/social-service/internal/registry/route"
	registrystore "github.com/chirino/social-service/internal/registry/store"
	"github.com/chirino/social-service/internal/security"
	"github.com/chirino/social-service/internal/service"
	"github.com/gin-gonic/gin"
)

// Server holds the running server and its subsystems.
type Server struct {
	Config          *config.Config
	Store           registrystore.SocialStore
	Router          *gin.Engine
	Running         *RunningServers
	events          registryevents.Publisher
	closeManagement func(context.Context) error
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.closeManagement != nil {
		_ = s.closeManagement(ctx)
	}
	err := s.Running.Close(ctx)
	if s.events != nil {
		if cerr := s.events.Close(); cerr != nil {
			log.Warn("Failed to close event publisher", "err", cerr)
		}
	}
	return err
}

// Components are the subsystems the HTTP routes are built from.
type Components struct {
	Store    registrystore.SocialStore
	Profiles registrycache.ProfileCache
	Media    registrymedia.Encoder
	Events   registryevents.Publisher
	Tokens   *security.TokenResolver
}

// StartServer initializes all subsystems and starts HTTP on a single port.
// Use cfg.Listener.Port=0 for a random port. Actual port: Server.Running.Port.
func StartServer(ctx context.Context, cfg *config.Config) (*Server, error) {
	log.Info("Starting social service",
		"httpPort", cfg.Listener.Port,
		"db", cfg.DatastoreType,
		"cache", cfg.CacheType,
		"media", cfg.MediaType,
		"events", cfg.EventsType,
	)

	// Initialize Prometheus metrics with configured constant labels.
	metricsLabels, err := security.ParseMetricsLabels(cfg.MetricsLabels)
	if err != nil {
		return nil, fmt.Errorf("invalid --metrics-labels: %w", err)
	}
	security.InitMetrics(metricsLabels)

	if err := registrymigrate.RunAll(ctx); err != nil {
		return nil, fmt.Errorf("migrations failed: %w", err)
	}

	// The profile cache is optional; lookups fall through to the store without it.
	var profiles registrycache.ProfileCache
	if cacheLoader, err := registrycache.Select(cfg.CacheType); err != nil {
		log.Warn("Cache not available", "cache", cfg.CacheType, "err", err)
	} else if profiles, err = cacheLoader(ctx); err != nil {
		log.Warn("Failed to initialize cache", "cache", cfg.CacheType, "err", err)
		profiles = nil
	} else {
		ctx = registrycache.WithContext(ctx, profiles)
	}

	storeLoader, err := registrystore.Select(cfg.DatastoreType)
	if err != nil {
		return nil, err
	}
	store, err := storeLoader(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}
	store = storemetrics.Wrap(store)

	mediaLoader, err := registrymedia.Select(cfg.MediaType)
	if err != nil {
		return nil, err
	}
	encoder, err := mediaLoader(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize media encoder: %w", err)
	}

	eventsLoader, err := registryevents.Select(cfg.EventsType)
	if err != nil {
		return nil, err
	}
	publisher, err := eventsLoader(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize event publisher: %w", err)
	}

	tokens, err := security.NewTokenResolver(cfg, store)
	if err != nil {
		_ = publisher.Close()
		return nil, err
	}

	router, err := NewRouter(ctx, cfg, Components{
		Store:    store,
		Profiles: profiles,
		Media:    encoder,
		Events:   publisher,
		Tokens:   tokens,
	})
	if err != nil {
		_ = publisher.Close()
		return nil, err
	}

	retention := service.NewNotificationRetention(store, cfg.NotificationRetention, cfg.NotificationPurgeBatchSize, 0)
	go retention.Start(ctx)

	// Mount management route plugins. If a dedicated management port is configured,
	// run them on a bare gin engine served by the management server. Otherwise,
	// mount them on the main router.
	var closeManagement func(context.Context) error
	if cfg.ManagementListenerEnabled {
		mgmtRouter := gin.New()
		mgmtRouter.Use(gin.Recovery())
		if cfg.ManagementAccessLog {
			mgmtRouter.Use(security.AccessLogMiddleware())
		}
		if err := mountManagementRoutes(mgmtRouter); err != nil {
			_ = publisher.Close()
			return nil, err
		}
		// Management listener shares TLS cert/key with the main listener.
		mgmtCfg := cfg.ManagementListener
		mgmtCfg.TLSCertFile = cfg.Listener.TLSCertFile
		mgmtCfg.TLSKeyFile = cfg.Listener.TLSKeyFile
		_, closeManagement, err = startManagementServer(mgmtCfg, mgmtRouter)
		if err != nil {
			_ = publisher.Close()
			return nil, fmt.Errorf("failed to start management server: %w", err)
		}
	} else if err := mountManagementRoutes(router); err != nil {
		_ = publisher.Close()
		return nil, err
	}

	running, err := StartSinglePortHTTP(ctx, cfg.Listener, router)
	if err != nil {
		if closeManagement != nil {
			_ = closeManagement(ctx)
		}
		_ = publisher.Close()
		return nil, err
	}

	log.Info("Server listening",
		"port", running.Port,
		"plaintext", cfg.Listener.EnablePlainText,
		"tls", cfg.Listener.EnableTLS,
	)

	routesystem.MarkReady()
	return &Server{
		Config:          cfg,
		Store:           store,
		Router:          router,
		Running:         running,
		events:          publisher,
		closeManagement: closeManagement,
	}, nil
}

// NewRouter builds the main gin engine with the middleware chain and every
// registered API route area mounted. Management routes are not included. ctx
// bounds the rate limiter's background sweep.
func NewRouter(ctx context.Context, cfg *config.Config, c Components) (*gin.Engine, error) {
	if c.Store == nil || c.Media == nil || c.Events == nil || c.Tokens == nil {
		return nil, errors.New("router requires a store, media encoder, event publisher and token resolver")
	}

	router := gin.New()
	router.Use(gin.Recovery())
	if cfg.ManagementAccessLog {
		router.Use(security.AccessLogMiddleware())
	} else {
		router.Use(security.AccessLogMiddleware("/health", "/ready", "/metrics"))
	}
	router.Use(security.MetricsMiddleware())
	router.Use(maxBodySizeMiddleware(cfg.MaxBodySize))
	if cfg.CORSEnabled {
		router.Use(corsMiddleware(cfg.CORSOrigins))
	}

	services := registryroute.Services{
		Store:      c.Store,
		Profiles:   c.Profiles,
		Media:      c.Media,
		Events:     c.Events,
		Tokens:     c.Tokens,
		Aggregator: conversations.NewAggregator(c.Store, c.Profiles, cfg.CacheProfileTTL),
		Auth:       security.AuthMiddleware(c.Tokens),
	}
	if cfg.RateLimitPerSecond > 0 {
		services.Limit = security.RateLimitMiddleware(security.NewRateLimiter(ctx, cfg.RateLimitPerSecond, cfg.RateLimitBurst))
	}
	for _, loader := range registryroute.MainRouteLoaders() {
		if err := loader(router, services); err != nil {
			return nil, fmt.Errorf("failed to load routes: %w", err)
		}
	}
	return router, nil
}

func mountManagementRoutes(r *gin.Engine) error {
	for _, loader := range registryroute.ManagementRouteLoaders() {
		if err := loader(r, registryroute.Services{}); err != nil {
			return fmt.Errorf("failed to load management routes: %w", err)
		}
	}
	return nil
}
