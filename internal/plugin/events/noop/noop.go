package noop

import (
	"context"

	"github.com/chirino/social-service/internal/registry/events"
)

func init() {
	events.Register(events.Plugin{
		Name: "none",
		Loader: func(ctx context.Context) (events.Publisher, error) {
			return noopPublisher{}, nil
		},
	})
}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, ...events.Event) error { return nil }
func (noopPublisher) Close() error                                  { return nil }

var _ events.Publisher = noopPublisher{}
