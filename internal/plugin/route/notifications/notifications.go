package notifications

import (
	"net/http"

	"github.com/chirino/social-service/internal/plugin/route/routeutil"
	registryroute "github.com/chirino/social-service/internal/registry/route"
	registrystore "github.com/chirino/social-service/internal/registry/store"
	"github.com/chirino/social-service/internal/security"
	"github.com/gin-gonic/gin"
)

func init() {
	registryroute.Register(registryroute.Plugin{
		Name:  "notifications",
		Order: 60,
		Type:  registryroute.RouteTypeMain,
		Loader: func(r *gin.Engine, s registryroute.Services) error {
			MountRoutes(r, s.Store, s.Auth)
			return nil
		},
	})
}

// MountRoutes mounts the notification inbox routes.
func MountRoutes(r *gin.Engine, store registrystore.SocialStore, auth gin.HandlerFunc) {
	g := r.Group("/v1/notifications", auth)

	g.GET("", func(c *gin.Context) {
		page, err := routeutil.Page(c)
		if err != nil {
			routeutil.HandleError(c, err)
			return
		}
		items, info, err := store.ListNotifications(c.Request.Context(), security.GetUserID(c), page)
		if err != nil {
			routeutil.HandleError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"notifications": items, "pagination": info})
	})
	g.POST("/read", func(c *gin.Context) {
		n, err := store.MarkNotificationsRead(c.Request.Context(), security.GetUserID(c))
		if err != nil {
			routeutil.HandleError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"updated": n})
	})
}
