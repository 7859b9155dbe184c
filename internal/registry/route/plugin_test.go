package route

import (
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func TestLoaders_FilteredByTypeInOrder(t *testing.T) {
	var mounted []string
	loader := func(name string) RouterLoader {
		return func(*gin.Engine, Services) error {
			mounted = append(mounted, name)
			return nil
		}
	}
	Register(Plugin{Name: "messages", Order: 70, Loader: loader("messages")})
	Register(Plugin{Name: "system", Order: 0, Type: RouteTypeManagement, Loader: loader("system")})
	Register(Plugin{Name: "auth", Order: 10, Loader: loader("auth")})

	for _, l := range MainRouteLoaders() {
		require.NoError(t, l(nil, Services{}))
	}
	require.Equal(t, []string{"auth", "messages"}, mounted)

	mounted = nil
	for _, l := range ManagementRouteLoaders() {
		require.NoError(t, l(nil, Services{}))
	}
	require.Equal(t, []string{"system"}, mounted)
}
