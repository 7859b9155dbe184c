package serve

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/chirino/social-service/internal/config"
	registrycache "github.com/chirino/social-service/internal/registry/cache"
	registryevents "github.com/chirino/social-service/internal/registry/events"
	registrymedia "github.com/chirino/social-service/internal/registry/media"
	registrystore "github.com/chirino/social-service/internal/registry/store"
	"github.com/gin-gonic/gin"
	"github.com/urfave/cli/v3"

	// Import all plugins to trigger init() registration
	_ "github.com/chirino/social-service/internal/plugin/cache/memory"
	_ "github.com/chirino/social-service/internal/plugin/cache/noop"
	_ "github.com/chirino/social-service/internal/plugin/cache/redis"
	_ "github.com/chirino/social-service/internal/plugin/events/kafka"
	_ "github.com/chirino/social-service/internal/plugin/events/noop"
	_ "github.com/chirino/social-service/internal/plugin/media/inline"
	_ "github.com/chirino/social-service/internal/plugin/media/s3"
	_ "github.com/chirino/social-service/internal/plugin/route/auth"
	_ "github.com/chirino/social-service/internal/plugin/route/comments"
	_ "github.com/chirino/social-service/internal/plugin/route/groups"
	_ "github.com/chirino/social-service/internal/plugin/route/messages"
	_ "github.com/chirino/social-service/internal/plugin/route/notifications"
	_ "github.com/chirino/social-service/internal/plugin/route/posts"
	_ "github.com/chirino/social-service/internal/plugin/route/system"
	_ "github.com/chirino/social-service/internal/plugin/route/users"
	_ "github.com/chirino/social-service/internal/plugin/store/postgres"
	_ "github.com/chirino/social-service/internal/plugin/store/sqlite"
)

// Command returns the serve sub-command.
func Command() *cli.Command {
	cfg := config.DefaultConfig()
	var readHeaderTimeoutSecs int = 5
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the social service HTTP server",
		Flags: flags(&cfg, &readHeaderTimeoutSecs),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if err := cfg.ApplyEnv(); err != nil {
				return err
			}
			cfg.Listener.ReadHeaderTimeout = time.Duration(readHeaderTimeoutSecs) * time.Second
			cfg.ManagementListener.ReadHeaderTimeout = cfg.Listener.ReadHeaderTimeout
			cfg.ManagementListenerEnabled = cmd.IsSet("management-port")
			return run(config.WithContext(ctx, &cfg), cfg)
		},
	}
}

func flags(cfg *config.Config, readHeaderTimeoutSecs *int) []cli.Flag {
	return []cli.Flag{

		// ── Server ────────────────────────────────────────────────
		&cli.StringFlag{
			Name:        "tls-cert-file",
			Category:    "Server:",
			Sources:     cli.EnvVars("SOCIAL_SERVICE_TLS_CERT_FILE"),
			Destination: &cfg.Listener.TLSCertFile,
			Usage:       "TLS certificate file for single-port TLS mode",
		},
		&cli.StringFlag{
			Name:        "tls-key-file",
			Category:    "Server:",
			Sources:     cli.EnvVars("SOCIAL_SERVICE_TLS_KEY_FILE"),
			Destination: &cfg.Listener.TLSKeyFile,
			Usage:       "TLS private key file for single-port TLS mode",
		},
		&cli.IntFlag{
			Name:        "read-header-timeout-seconds",
			Category:    "Server:",
			Sources:     cli.EnvVars("SOCIAL_SERVICE_READ_HEADER_TIMEOUT_SECONDS"),
			Destination: readHeaderTimeoutSecs,
			Value:       *readHeaderTimeoutSecs,
			Usage:       "HTTP read header timeout in seconds",
		},
		&cli.BoolFlag{
			Name:        "management-access-log",
			Category:    "Server:",
			Sources:     cli.EnvVars("SOCIAL_SERVICE_MANAGEMENT_ACCESS_LOG"),
			Destination: &cfg.ManagementAccessLog,
			Usage:       "Enable HTTP access logging for management endpoints (/health, /ready, /metrics)",
		},

		// ── Network Listener ──────────────────────────────────────
		&cli.IntFlag{
			Name:        "port",
			Category:    "Network Listener:",
			Sources:     cli.EnvVars("SOCIAL_SERVICE_PORT"),
			Destination: &cfg.Listener.Port,
			Value:       cfg.Listener.Port,
			Usage:       "HTTP server port",
		},
		&cli.BoolFlag{
			Name:        "plain-text",
			Category:    "Network Listener:",
			Sources:     cli.EnvVars("SOCIAL_SERVICE_PLAIN_TEXT"),
			Destination: &cfg.Listener.EnablePlainText,
			Value:       cfg.Listener.EnablePlainText,
			Usage:       "Enable plaintext HTTP/1.1 + h2c",
		},
		&cli.BoolFlag{
			Name:        "tls",
			Category:    "Network Listener:",
			Sources:     cli.EnvVars("SOCIAL_SERVICE_TLS"),
			Destination: &cfg.Listener.EnableTLS,
			Value:       cfg.Listener.EnableTLS,
			Usage:       "Enable TLS HTTP/1.1 + HTTP/2",
		},

		// ── Management Network Listener ───────────────────────────
		&cli.IntFlag{
			Name:        "management-port",
			Category:    "Management Network Listener:",
			Sources:     cli.EnvVars("SOCIAL_SERVICE_MANAGEMENT_PORT"),
			Destination: &cfg.ManagementListener.Port,
			Value:       cfg.ManagementListener.Port,
			Usage:       "Dedicated port for health and metrics (0 = OS-assigned random port); when unset, served on the main port",
		},
		&cli.BoolFlag{
			Name:        "management-plain-text",
			Category:    "Management Network Listener:",
			Sources:     cli.EnvVars("SOCIAL_SERVICE_MANAGEMENT_PLAIN_TEXT"),
			Destination: &cfg.ManagementListener.EnablePlainText,
			Value:       cfg.ManagementListener.EnablePlainText,
			Usage:       "Enable plaintext HTTP for management server",
		},
		&cli.BoolFlag{
			Name:        "management-tls",
			Category:    "Management Network Listener:",
			Sources:     cli.EnvVars("SOCIAL_SERVICE_MANAGEMENT_TLS"),
			Destination: &cfg.ManagementListener.EnableTLS,
			Value:       cfg.ManagementListener.EnableTLS,
			Usage:       "Enable TLS for management server",
		},

		// ── Database ───────────────────────────────────────────────
		&cli.StringFlag{
			Name:        "db-kind",
			Category:    "Database:",
			Sources:     cli.EnvVars("SOCIAL_SERVICE_DB_KIND"),
			Destination: &cfg.DatastoreType,
			Value:       cfg.DatastoreType,
			Usage:       "Backend store (" + strings.Join(registrystore.Names(), "|") + ")",
		},
		&cli.StringFlag{
			Name:        "db-url",
			Category:    "Database:",
			Sources:     cli.EnvVars("SOCIAL_SERVICE_DB_URL"),
			Destination: &cfg.DBURL,
			Usage:       "Database connection URL (a file path for sqlite)",
			Required:    true,
		},
		&cli.IntFlag{
			Name:        "db-max-open-conns",
			Category:    "Database:",
			Sources:     cli.EnvVars("SOCIAL_SERVICE_DB_MAX_OPEN_CONNS"),
			Destination: &cfg.DBMaxOpenConns,
			Value:       cfg.DBMaxOpenConns,
			Usage:       "Maximum number of open database connections",
		},
		&cli.IntFlag{
			Name:        "db-max-idle-conns",
			Category:    "Database:",
			Sources:     cli.EnvVars("SOCIAL_SERVICE_DB_MAX_IDLE_CONNS"),
			Destination: &cfg.DBMaxIdleConns,
			Value:       cfg.DBMaxIdleConns,
			Usage:       "Maximum number of idle database connections",
		},

		// ── Cache ─────────────────────────────────────────────────
		&cli.StringFlag{
			Name:        "cache-kind",
			Category:    "Cache:",
			Sources:     cli.EnvVars("SOCIAL_SERVICE_CACHE_KIND"),
			Destination: &cfg.CacheType,
			Value:       cfg.CacheType,
			Usage:       "Profile cache backend (" + strings.Join(registrycache.Names(), "|") + ")",
		},
		&cli.StringFlag{
			Name:        "redis-hosts",
			Category:    "Cache:",
			Sources:     cli.EnvVars("SOCIAL_SERVICE_REDIS_HOSTS"),
			Destination: &cfg.RedisURL,
			Usage:       "Redis connection URL",
		},

		// ── Media ─────────────────────────────────────────────────
		&cli.StringFlag{
			Name:        "media-kind",
			Category:    "Media:",
			Sources:     cli.EnvVars("SOCIAL_SERVICE_MEDIA_KIND"),
			Destination: &cfg.MediaType,
			Value:       cfg.MediaType,
			Usage:       "Media encoder for uploaded images (" + strings.Join(registrymedia.Names(), "|") + ")",
		},
		&cli.StringFlag{
			Name:        "media-s3-bucket",
			Category:    "Media:",
			Sources:     cli.EnvVars("SOCIAL_SERVICE_MEDIA_S3_BUCKET"),
			Destination: &cfg.S3Bucket,
			Usage:       "S3 bucket for uploaded media",
		},
		&cli.BoolFlag{
			Name:        "media-s3-use-path-style",
			Category:    "Media:",
			Sources:     cli.EnvVars("SOCIAL_SERVICE_MEDIA_S3_USE_PATH_STYLE"),
			Destination: &cfg.S3UsePathStyle,
			Usage:       "Use path-style S3 addressing (required for LocalStack/MinIO)",
		},
		&cli.StringFlag{
			Name:        "media-s3-public-base-url",
			Category:    "Media:",
			Sources:     cli.EnvVars("SOCIAL_SERVICE_MEDIA_S3_PUBLIC_BASE_URL"),
			Destination: &cfg.S3PublicBaseURL,
			Usage:       "Base URL clients use to fetch uploaded objects",
		},

		// ── Events ────────────────────────────────────────────────
		&cli.StringFlag{
			Name:        "events-kind",
			Category:    "Events:",
			Sources:     cli.EnvVars("SOCIAL_SERVICE_EVENTS_KIND"),
			Destination: &cfg.EventsType,
			Value:       cfg.EventsType,
			Usage:       "Domain event publisher (" + strings.Join(registryevents.Names(), "|") + ")",
		},
		&cli.StringFlag{
			Name:        "kafka-brokers",
			Category:    "Events:",
			Sources:     cli.EnvVars("SOCIAL_SERVICE_KAFKA_BROKERS"),
			Destination: &cfg.KafkaBrokers,
			Usage:       "Comma-separated Kafka broker addresses",
		},
		&cli.StringFlag{
			Name:        "kafka-topic",
			Category:    "Events:",
			Sources:     cli.EnvVars("SOCIAL_SERVICE_KAFKA_TOPIC"),
			Destination: &cfg.KafkaTopic,
			Value:       cfg.KafkaTopic,
			Usage:       "Kafka topic for domain events",
		},

		// ── Security ──────────────────────────────────────────────
		&cli.StringFlag{
			Name:        "session-secret",
			Category:    "Security:",
			Sources:     cli.EnvVars("SOCIAL_SERVICE_SESSION_SECRET"),
			Destination: &cfg.SessionSecret,
			Usage:       "Secret used to sign session tokens; a random one is generated when unset",
		},
		&cli.DurationFlag{
			Name:        "session-ttl",
			Category:    "Security:",
			Sources:     cli.EnvVars("SOCIAL_SERVICE_SESSION_TTL"),
			Destination: &cfg.SessionTTL,
			Value:       cfg.SessionTTL,
			Usage:       "Lifetime of issued session tokens",
		},
		&cli.StringFlag{
			Name:        "oidc-issuer",
			Category:    "Security:",
			Sources:     cli.EnvVars("SOCIAL_SERVICE_OIDC_ISSUER"),
			Destination: &cfg.OIDCIssuer,
			Usage:       "OIDC issuer URL (also accept IdP tokens for existing accounts)",
		},
		&cli.StringFlag{
			Name:        "oidc-discovery-url",
			Category:    "Security:",
			Sources:     cli.EnvVars("SOCIAL_SERVICE_OIDC_DISCOVERY_URL"),
			Destination: &cfg.OIDCDiscoveryURL,
			Usage:       "OIDC discovery URL (internal URL when issuer is not directly reachable)",
		},

		// ── Limits ────────────────────────────────────────────────
		&cli.FloatFlag{
			Name:        "rate-limit-per-second",
			Category:    "Limits:",
			Sources:     cli.EnvVars("SOCIAL_SERVICE_RATE_LIMIT_PER_SECOND"),
			Destination: &cfg.RateLimitPerSecond,
			Value:       cfg.RateLimitPerSecond,
			Usage:       "Sustained rate of logins, message sends and post creations per user (0 disables)",
		},
		&cli.IntFlag{
			Name:        "rate-limit-burst",
			Category:    "Limits:",
			Sources:     cli.EnvVars("SOCIAL_SERVICE_RATE_LIMIT_BURST"),
			Destination: &cfg.RateLimitBurst,
			Value:       cfg.RateLimitBurst,
			Usage:       "Requests allowed in a burst above the sustained rate",
		},

		// ── Monitoring ────────────────────────────────────────────
		&cli.StringFlag{
			Name:        "metrics-labels",
			Category:    "Monitoring:",
			Sources:     cli.EnvVars("SOCIAL_SERVICE_METRICS_LABELS"),
			Destination: &cfg.MetricsLabels,
			Value:       "service=social-service",
			Usage:       "Comma-separated key=value pairs added as constant labels to all Prometheus metrics. Supports ${VAR} expansion.",
		},
	}
}

func run(ctx context.Context, cfg config.Config) error {
	srv, err := StartServer(ctx, &cfg)
	if err != nil {
		return err
	}

	<-ctx.Done()
	log.Info("Shutting down...")

	drainCtx, drainCancel := context.WithTimeout(context.Background(), time.Duration(cfg.DrainTimeout)*time.Second)
	defer drainCancel()
	if err := srv.Shutdown(drainCtx); err != nil {
		log.Error("Shutdown error", "err", err)
	}
	log.Info("Server stopped")
	return nil
}

func maxBodySizeMiddleware(maxBodySize int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if maxBodySize > 0 && c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodySize)
		}
		c.Next()
	}
}
