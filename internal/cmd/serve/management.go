package serve

import (
	"context"
	"fmt"
	"net"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/chirino/social-service/internal/config"
)

// startManagementServer starts a dedicated listener for management endpoints
// (health, ready, metrics) and returns the bound address and a shutdown function.
// Plaintext is enabled when neither protocol was requested.
func startManagementServer(cfg config.ListenerConfig, handler http.Handler) (net.Addr, func(context.Context) error, error) {
	if !cfg.EnablePlainText && !cfg.EnableTLS {
		cfg.EnablePlainText = true
	}
	running, err := StartSinglePortHTTP(context.Background(), cfg, handler)
	if err != nil {
		return nil, nil, fmt.Errorf("management listener: %w", err)
	}
	log.Info("Management server listening", "addr", running.Addr)
	return running.Addr, running.Close, nil
}
