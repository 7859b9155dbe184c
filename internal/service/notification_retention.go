package service

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	registrystore "github.com/chirino/social-service/internal/registry/store"
)

// NotificationRetention periodically removes read notifications older than the
// retention period.
type NotificationRetention struct {
	store     registrystore.SocialStore
	interval  time.Duration
	retention time.Duration
	batchSize int
	delay     time.Duration
	now       func() time.Time
}

// NewNotificationRetention creates a retention sweeper. A non-positive retention
// disables it.
func NewNotificationRetention(store registrystore.SocialStore, retention time.Duration, batchSize int, delay time.Duration) *NotificationRetention {
	if batchSize <= 0 {
		batchSize = 500
	}
	return &NotificationRetention{
		store:     store,
		interval:  1 * time.Hour,
		retention: retention,
		batchSize: batchSize,
		delay:     delay,
		now:       time.Now,
	}
}

// Start begins the periodic purge loop. Returns when ctx is cancelled.
func (r *NotificationRetention) Start(ctx context.Context) {
	if r.retention <= 0 {
		log.Info("Notification retention disabled")
		return
	}
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.RunOnce(ctx)
		}
	}
}

// RunOnce purges in batches until nothing older than the cutoff remains and
// returns the number of notifications removed.
func (r *NotificationRetention) RunOnce(ctx context.Context) int64 {
	cutoff := r.now().Add(-r.retention)
	var purged int64
	for {
		n, err := r.store.PurgeReadNotifications(ctx, cutoff, r.batchSize)
		if err != nil {
			log.Error("Notification retention: purge failed", "err", err)
			break
		}
		purged += n
		if n < int64(r.batchSize) {
			break
		}
		if r.delay > 0 {
			select {
			case <-ctx.Done():
				return purged
			case <-time.After(r.delay):
			}
		}
	}
	if purged > 0 {
		log.Info("Notification retention: completed", "purged", purged, "cutoff", cutoff)
	}
	return purged
}
