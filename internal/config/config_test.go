package config

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKafkaBrokerList_TrimsAndSkipsEmpty(t *testing.T) {
	cfg := Config{KafkaBrokers: " kafka-1:9092, ,kafka-2:9092 "}
	require.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokerList())
}

func TestKafkaBrokerList_Empty(t *testing.T) {
	var cfg Config
	require.Empty(t, cfg.KafkaBrokerList())
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.Equal(t, "postgres", cfg.DatastoreType)
	require.Equal(t, "none", cfg.CacheType)
	require.Equal(t, "inline", cfg.MediaType)
	require.Equal(t, "none", cfg.EventsType)
	require.Equal(t, 8080, cfg.Listener.Port)
}

func TestContextRoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	ctx := WithContext(context.Background(), &cfg)
	require.Same(t, &cfg, FromContext(ctx))
	require.Nil(t, FromContext(context.Background()))
}
