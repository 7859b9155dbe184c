package route

import (
	"cmp"
	"slices"
	"sync"

	"github.com/chirino/social-service/internal/conversations"
	registrycache "github.com/chirino/social-service/internal/registry/cache"
	registryevents "github.com/chirino/social-service/internal/registry/events"
	registrymedia "github.com/chirino/social-service/internal/registry/media"
	registrystore "github.com/chirino/social-service/internal/registry/store"
	"github.com/chirino/social-service/internal/security"
	"github.com/gin-gonic/gin"
)

// Services are the subsystems an API route area is mounted with. Management
// loaders receive a zero value.
type Services struct {
	Store      registrystore.SocialStore
	Profiles   registrycache.ProfileCache
	Media      registrymedia.Encoder
	Events     registryevents.Publisher
	Tokens     *security.TokenResolver
	Aggregator *conversations.Aggregator
	// Auth requires a session. Limit throttles writes and is nil when rate
	// limiting is off.
	Auth  gin.HandlerFunc
	Limit gin.HandlerFunc
}

// RouterLoader mounts a plugin's routes on the gin engine.
type RouterLoader func(r *gin.Engine, s Services) error

// RouteType selects the listener a plugin's routes are served on.
type RouteType int

const (
	// RouteTypeMain routes make up the public /v1 API.
	RouteTypeMain RouteType = iota
	// RouteTypeManagement routes (health, readiness, metrics) go to the management
	// listener, or to the main listener when no management port is set.
	RouteTypeManagement
)

// Plugin is a route area. Lower Order mounts first.
type Plugin struct {
	Name   string
	Order  int
	Type   RouteType
	Loader RouterLoader
}

var (
	plugins  []Plugin
	sortOnce sync.Once
)

// Register adds a route plugin. Called from init() in plugin packages.
func Register(p Plugin) {
	plugins = append(plugins, p)
}

func loaders(t RouteType) []RouterLoader {
	sortOnce.Do(func() {
		slices.SortStableFunc(plugins, func(a, b Plugin) int { return cmp.Compare(a.Order, b.Order) })
	})
	var out []RouterLoader
	for _, p := range plugins {
		if p.Type == t {
			out = append(out, p.Loader)
		}
	}
	return out
}

// MainRouteLoaders returns the API route loaders in mount order.
func MainRouteLoaders() []RouterLoader {
	return loaders(RouteTypeMain)
}

// ManagementRouteLoaders returns the management route loaders in mount order.
func ManagementRouteLoaders() []RouterLoader {
	return loaders(RouteTypeManagement)
}
