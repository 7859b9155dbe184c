package serve

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/chirino/social-service/internal/config"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func TestMaxBodySizeMiddleware_AllowsSmallBodies(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(maxBodySizeMiddleware(16))
	router.POST("/v1/posts", readBodyLengthHandler)

	req := httptest.NewRequest(http.MethodPost, "/v1/posts", strings.NewReader("0123456789"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "10", rec.Body.String())
}

func TestMaxBodySizeMiddleware_EnforcesLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(maxBodySizeMiddleware(4))
	router.POST("/v1/messages", readBodyLengthHandler)

	req := httptest.NewRequest(http.MethodPost, "/v1/messages", strings.NewReader("0123456789"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestFlags_AllReadSocialServiceEnvVars(t *testing.T) {
	cfg := config.DefaultConfig()
	secs := 5
	for _, f := range flags(&cfg, &secs) {
		ev, ok := f.(interface{ GetEnvVars() []string })
		require.True(t, ok, f.Names()[0])
		envs := ev.GetEnvVars()
		require.Len(t, envs, 1, f.Names()[0])
		require.True(t, strings.HasPrefix(envs[0], "SOCIAL_SERVICE_"), envs[0])
	}
}

func readBodyLengthHandler(c *gin.Context) {
	n, err := io.Copy(io.Discard, c.Request.Body)
	if err != nil {
		c.Status(http.StatusRequestEntityTooLarge)
		return
	}
	c.String(http.StatusOK, "%d", n)
}
