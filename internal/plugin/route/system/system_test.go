package system

import (
	"net/http"
	"net/http/httptest"
	"testing"

	registryroute "github.com/chirino/social-service/internal/registry/route"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func TestReadinessFollowsMarkReady(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	require.NoError(t, mount(r, registryroute.Services{}))

	get := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec
	}

	require.Equal(t, http.StatusOK, get("/health").Code)
	require.Equal(t, http.StatusServiceUnavailable, get("/ready").Code)

	MarkReady()
	t.Cleanup(func() { ready.Store(false) })
	rec := get("/ready")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"ready"}`, rec.Body.String())
	require.Equal(t, http.StatusOK, get("/metrics").Code)
}
