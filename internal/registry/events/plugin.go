package events

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/chirino/social-service/internal/security"
)

// Event types published by the service.
const (
	TypeMessageSent  = "message.sent"
	TypePostLiked    = "post.liked"
	TypeUserFollowed = "user.followed"
)

// Event is a domain event. Key groups related events so consumers see them in order.
type Event struct {
	Type       string    `json:"type"`
	Key        string    `json:"key"`
	OccurredAt time.Time `json:"occurredAt"`
	Payload    any       `json:"payload"`
}

// Publisher delivers domain events to an external stream.
type Publisher interface {
	Publish(ctx context.Context, events ...Event) error
	Close() error
}

type publisherKey struct{}

// WithContext returns a new context carrying the given Publisher.
func WithContext(ctx context.Context, p Publisher) context.Context {
	return context.WithValue(ctx, publisherKey{}, p)
}

// FromContext retrieves the Publisher from the context. Returns nil if none was set.
func FromContext(ctx context.Context) Publisher {
	p, _ := ctx.Value(publisherKey{}).(Publisher)
	return p
}

// Emit publishes ev on a best-effort basis. The triggering request has already
// committed, so failures are logged and counted but never returned.
func Emit(ctx context.Context, p Publisher, ev Event) {
	if p == nil {
		return
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}
	result := "ok"
	if err := p.Publish(ctx, ev); err != nil {
		result = "error"
		log.Warn("Failed to publish event", "type", ev.Type, "key", ev.Key, "err", err)
	}
	if security.EventsPublishedTotal != nil {
		security.EventsPublishedTotal.WithLabelValues(ev.Type, result).Inc()
	}
}

// Loader creates a publisher from config.
type Loader func(ctx context.Context) (Publisher, error)

// Plugin represents an event publisher plugin.
type Plugin struct {
	Name   string
	Loader Loader
}

var plugins []Plugin

// Register adds an event publisher plugin.
func Register(p Plugin) {
	plugins = append(plugins, p)
}

// Names returns all registered event publisher plugin names.
func Names() []string {
	names := make([]string, len(plugins))
	for i, p := range plugins {
		names[i] = p.Name
	}
	return names
}

// Select returns the loader for the named event publisher plugin.
func Select(name string) (Loader, error) {
	for _, p := range plugins {
		if p.Name == name {
			return p.Loader, nil
		}
	}
	return nil, fmt.Errorf("unknown events publisher %q; valid: %v", name, Names())
}
