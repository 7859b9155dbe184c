package config

import (
	"context"
	"strings"
	"time"
)

// ListenerConfig holds the network/TLS settings for a single listener (main or management).
type ListenerConfig struct {
	Port              int
	EnablePlainText   bool
	EnableTLS         bool
	TLSCertFile       string
	TLSKeyFile        string
	ReadHeaderTimeout time.Duration
}

type contextKey struct{}

// WithContext returns a new context carrying the given Config.
func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, contextKey{}, cfg)
}

// FromContext retrieves the Config from the context.
func FromContext(ctx context.Context) *Config {
	cfg, _ := ctx.Value(contextKey{}).(*Config)
	return cfg
}

// Config holds all configuration for the social service.
type Config struct {
	// Database
	DBURL string

	// Datastore backend type: "postgres" or "sqlite".
	DatastoreType string

	// Run datastore migrations on startup.
	DatastoreMigrateAtStart bool

	// DB pool
	DBMaxOpenConns int
	DBMaxIdleConns int

	// Profile cache backend: "none", "memory" or "redis".
	CacheType string
	RedisURL  string
	// How long cached user summaries stay valid.
	CacheProfileTTL time.Duration
	// Maximum number of user summaries held by the in-process cache.
	CacheMemoryMaxEntries int64

	// Media encoder: "inline" (data URLs) or "s3".
	MediaType string
	// Largest accepted upload per file (bytes).
	MediaMaxSize int64

	// S3
	S3Bucket         string
	S3Prefix         string
	S3UsePathStyle   bool
	S3Endpoint       string
	S3PublicBaseURL  string
	S3UploadsTimeout time.Duration

	// Domain event publisher: "none" or "kafka".
	EventsType   string
	KafkaBrokers string
	KafkaTopic   string

	// Sessions
	// SessionSecret signs the HS256 session tokens issued at login.
	SessionSecret string
	SessionTTL    time.Duration

	// OIDC (optional external identity provider)
	OIDCIssuer       string
	OIDCDiscoveryURL string

	// Per-user rate limit on message sends and post creation.
	RateLimitPerSecond float64
	RateLimitBurst     int

	// MetricsLabels is a comma-separated list of key=value pairs added as
	// constant labels to all Prometheus metrics. Values support ${VAR} expansion.
	// Defaults to "service=social-service".
	MetricsLabels string

	// Server
	Listener           ListenerConfig
	ManagementListener ListenerConfig
	// ManagementListenerEnabled is true when --management-port (or SOCIAL_SERVICE_MANAGEMENT_PORT)
	// was explicitly provided. When false, management endpoints are served on the main port.
	ManagementListenerEnabled bool
	// ManagementAccessLog enables HTTP access logging for management endpoints (/health, /ready, /metrics).
	ManagementAccessLog bool
	CORSEnabled         bool
	CORSOrigins         string

	// Read notifications older than this are purged; 0 disables the sweeper.
	NotificationRetention      time.Duration
	NotificationPurgeBatchSize int

	// Body size limit (bytes)
	MaxBodySize int64

	// Graceful shutdown drain timeout (seconds)
	DrainTimeout int
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		DatastoreType:           "postgres",
		DatastoreMigrateAtStart: true,
		DBMaxOpenConns:          25,
		DBMaxIdleConns:          5,
		CacheType:               "none",
		CacheProfileTTL:         5 * time.Minute,
		CacheMemoryMaxEntries:   10_000,
		MediaType:               "inline",
		MediaMaxSize:            5 * 1024 * 1024, // 5 MB
		S3UploadsTimeout:        30 * time.Second,
		EventsType:              "none",
		KafkaTopic:              "social-events",
		SessionTTL:              7 * 24 * time.Hour,
		RateLimitPerSecond:      5,
		RateLimitBurst:          10,
		Listener: ListenerConfig{
			Port:              8080,
			EnablePlainText:   true,
			EnableTLS:         true,
			ReadHeaderTimeout: 5 * time.Second,
		},
		ManagementListener: ListenerConfig{
			EnablePlainText: true,
			EnableTLS:       true,
		},
		NotificationRetention:      90 * 24 * time.Hour,
		NotificationPurgeBatchSize: 500,
		MaxBodySize:                40 * 1024 * 1024, // room for several images per post
		DrainTimeout:               30,
	}
}

// KafkaBrokerList splits the comma-separated broker list.
func (c *Config) KafkaBrokerList() []string {
	var out []string
	for _, b := range strings.Split(c.KafkaBrokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}
