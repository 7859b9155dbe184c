package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnv reads settings that have no dedicated CLI flag on the serve command.
// Sizes accept K/M/G suffixes and durations accept Go or ISO-8601 (P#DT#H#M#S) syntax.
func (c *Config) ApplyEnv() error {
	if c == nil {
		return nil
	}

	var err error
	if err = applyBoolEnv("SOCIAL_SERVICE_DB_MIGRATE_AT_START", &c.DatastoreMigrateAtStart); err != nil {
		return err
	}
	if err = applySizeEnv("SOCIAL_SERVICE_MEDIA_MAX_SIZE", &c.MediaMaxSize); err != nil {
		return err
	}
	if err = applySizeEnv("SOCIAL_SERVICE_MAX_BODY_SIZE", &c.MaxBodySize); err != nil {
		return err
	}
	applyStringEnv("SOCIAL_SERVICE_MEDIA_S3_PREFIX", &c.S3Prefix)
	applyStringEnv("SOCIAL_SERVICE_MEDIA_S3_ENDPOINT", &c.S3Endpoint)
	if err = applyDurationEnv("SOCIAL_SERVICE_MEDIA_S3_UPLOAD_TIMEOUT", &c.S3UploadsTimeout); err != nil {
		return err
	}
	if err = applyDurationEnv("SOCIAL_SERVICE_CACHE_PROFILE_TTL", &c.CacheProfileTTL); err != nil {
		return err
	}
	if err = applyInt64Env("SOCIAL_SERVICE_CACHE_MEMORY_MAX_ENTRIES", &c.CacheMemoryMaxEntries); err != nil {
		return err
	}
	if err = applyDurationEnv("SOCIAL_SERVICE_NOTIFICATION_RETENTION", &c.NotificationRetention); err != nil {
		return err
	}
	if err = applyIntEnv("SOCIAL_SERVICE_NOTIFICATION_PURGE_BATCH_SIZE", &c.NotificationPurgeBatchSize); err != nil {
		return err
	}
	if err = applyBoolEnv("SOCIAL_SERVICE_CORS_ENABLED", &c.CORSEnabled); err != nil {
		return err
	}
	applyStringEnv("SOCIAL_SERVICE_CORS_ORIGINS", &c.CORSOrigins)
	if err = applyIntEnv("SOCIAL_SERVICE_DRAIN_TIMEOUT_SECONDS", &c.DrainTimeout); err != nil {
		return err
	}
	return nil
}

func applyStringEnv(key string, dest *string) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return
	}
	*dest = raw
}

func applyIntEnv(key string, dest *int) error {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dest = v
	return nil
}

func applyInt64Env(key string, dest *int64) error {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dest = v
	return nil
}

func applyBoolEnv(key string, dest *bool) error {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dest = v
	return nil
}

func applyDurationEnv(key string, dest *time.Duration) error {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return nil
	}
	v, err := parseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dest = v
	return nil
}

func applySizeEnv(key string, dest *int64) error {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return nil
	}
	v, err := parseMemorySize(raw)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dest = v
	return nil
}

func parseDuration(raw string) (time.Duration, error) {
	v := strings.TrimSpace(strings.ToUpper(raw))
	if v == "" {
		return 0, fmt.Errorf("empty duration")
	}

	// Go duration first (e.g. 30s, 5m).
	if d, err := time.ParseDuration(strings.ToLower(v)); err == nil {
		return d, nil
	}

	if !strings.HasPrefix(v, "P") {
		return 0, fmt.Errorf("unsupported format %q", raw)
	}
	rest := strings.TrimPrefix(v, "P")
	inTime := false
	total := time.Duration(0)
	for len(rest) > 0 {
		if rest[0] == 'T' {
			if inTime {
				return 0, fmt.Errorf("invalid format %q", raw)
			}
			inTime = true
			rest = rest[1:]
			continue
		}
		i := 0
		for i < len(rest) && rest[i] >= '0' && rest[i] <= '9' {
			i++
		}
		if i == 0 || i >= len(rest) {
			return 0, fmt.Errorf("invalid format %q", raw)
		}
		n, err := strconv.Atoi(rest[:i])
		if err != nil {
			return 0, fmt.Errorf("invalid format %q", raw)
		}
		switch {
		case rest[i] == 'D' && !inTime:
			total += time.Duration(n) * 24 * time.Hour
		case rest[i] == 'H' && inTime:
			total += time.Duration(n) * time.Hour
		case rest[i] == 'M' && inTime:
			total += time.Duration(n) * time.Minute
		case rest[i] == 'S' && inTime:
			total += time.Duration(n) * time.Second
		default:
			return 0, fmt.Errorf("invalid format %q", raw)
		}
		rest = rest[i+1:]
	}
	if total <= 0 {
		return 0, fmt.Errorf("duration must be positive")
	}
	return total, nil
}

func parseMemorySize(raw string) (int64, error) {
	v := strings.TrimSpace(strings.ToUpper(raw))
	if v == "" {
		return 0, fmt.Errorf("empty size")
	}
	multiplier := int64(1)
	switch {
	case strings.HasSuffix(v, "KB"), strings.HasSuffix(v, "K"):
		multiplier = 1024
		v = strings.TrimSuffix(strings.TrimSuffix(v, "KB"), "K")
	case strings.HasSuffix(v, "MB"), strings.HasSuffix(v, "M"):
		multiplier = 1024 * 1024
		v = strings.TrimSuffix(strings.TrimSuffix(v, "MB"), "M")
	case strings.HasSuffix(v, "GB"), strings.HasSuffix(v, "G"):
		multiplier = 1024 * 1024 * 1024
		v = strings.TrimSuffix(strings.TrimSuffix(v, "GB"), "G")
	case strings.HasSuffix(v, "B"):
		v = strings.TrimSuffix(v, "B")
	}
	n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid size %q", raw)
	}
	return n * multiplier, nil
}
