package s3_test

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/chirino/social-service/internal/config"
	_ "github.com/chirino/social-service/internal/plugin/media/s3"
	registrymedia "github.com/chirino/social-service/internal/registry/media"
	"github.com/chirino/social-service/internal/testutil/tests3"
	"github.com/stretchr/testify/require"
)

func TestS3Encoder_AgainstLocalStack(t *testing.T) {
	endpoint := tests3.StartS3(t)

	cfg := config.DefaultConfig()
	cfg.S3Bucket = tests3.Bucket
	cfg.S3Endpoint = endpoint
	cfg.S3UsePathStyle = true
	cfg.S3Prefix = "posts"
	ctx := config.WithContext(context.Background(), &cfg)

	loader, err := registrymedia.Select("s3")
	require.NoError(t, err)
	enc, err := loader(ctx)
	require.NoError(t, err)

	url, err := enc.Encode(ctx, strings.NewReader("png bytes"), "image/png")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(url, endpoint+"/"+tests3.Bucket+"/posts/"), url)
	require.True(t, strings.HasSuffix(url, ".png"), url)

	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, "png bytes", string(body))
}
