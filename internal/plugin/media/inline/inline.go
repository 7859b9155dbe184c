package inline

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"

	"github.com/chirino/social-service/internal/config"
	registrymedia "github.com/chirino/social-service/internal/registry/media"
)

const defaultMaxSize = 5 << 20

func init() {
	registrymedia.Register(registrymedia.Plugin{
		Name: "inline",
		Loader: func(ctx context.Context) (registrymedia.Encoder, error) {
			maxSize := int64(defaultMaxSize)
			if cfg := config.FromContext(ctx); cfg != nil && cfg.MediaMaxSize > 0 {
				maxSize = cfg.MediaMaxSize
			}
			return New(maxSize), nil
		},
	})
}

// Encoder embeds uploads directly as base64 data URLs.
type Encoder struct {
	maxSize int64
}

// New creates an inline encoder accepting uploads up to maxSize bytes.
func New(maxSize int64) *Encoder {
	return &Encoder{maxSize: maxSize}
}

func (e *Encoder) Encode(_ context.Context, data io.Reader, contentType string) (string, error) {
	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(data, e.maxSize+1))
	if err != nil {
		return "", fmt.Errorf("inline media: read upload: %w", err)
	}
	if n > e.maxSize {
		return "", &registrymedia.TooLargeError{MaxSize: e.maxSize}
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

var _ registrymedia.Encoder = (*Encoder)(nil)
