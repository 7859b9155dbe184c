package media

import (
	"context"
	"fmt"
	"io"
)

type encoderKey struct{}

// WithContext returns a new context carrying the given Encoder.
func WithContext(ctx context.Context, e Encoder) context.Context {
	return context.WithValue(ctx, encoderKey{}, e)
}

// FromContext retrieves the Encoder from the context. Returns nil if none was set.
func FromContext(ctx context.Context) Encoder {
	e, _ := ctx.Value(encoderKey{}).(Encoder)
	return e
}

// TooLargeError is returned when an upload exceeds the configured maximum size.
type TooLargeError struct {
	MaxSize int64
}

func (e *TooLargeError) Error() string {
	return fmt.Sprintf("file exceeds maximum size of %d bytes", e.MaxSize)
}

// Encoder turns an uploaded blob into a reference that can be embedded in posts,
// avatars and messages.
type Encoder interface {
	// Encode consumes data and returns its reference URL. Uploads larger than the
	// configured maximum fail with *TooLargeError.
	Encode(ctx context.Context, data io.Reader, contentType string) (string, error)
}

// Loader creates an encoder from config.
type Loader func(ctx context.Context) (Encoder, error)

// Plugin represents a media encoder plugin.
type Plugin struct {
	Name   string
	Loader Loader
}

var plugins []Plugin

// Register adds a media encoder plugin.
func Register(p Plugin) {
	plugins = append(plugins, p)
}

// Names returns all registered media encoder plugin names.
func Names() []string {
	names := make([]string, len(plugins))
	for i, p := range plugins {
		names[i] = p.Name
	}
	return names
}

// Select returns the loader for the named media encoder plugin.
func Select(name string) (Loader, error) {
	for _, p := range plugins {
		if p.Name == name {
			return p.Loader, nil
		}
	}
	return nil, fmt.Errorf("unknown media encoder %q; valid: %v", name, Names())
}
