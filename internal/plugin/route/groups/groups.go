package groups

import (
	"net/http"

	"github.com/chirino/social-service/internal/plugin/route/routeutil"
	registryroute "github.com/chirino/social-service/internal/registry/route"
	registrystore "github.com/chirino/social-service/internal/registry/store"
	"github.com/chirino/social-service/internal/security"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func init() {
	registryroute.Register(registryroute.Plugin{
		Name:  "groups",
		Order: 50,
		Type:  registryroute.RouteTypeMain,
		Loader: func(r *gin.Engine, s registryroute.Services) error {
			MountRoutes(r, s.Store, s.Auth)
			return nil
		},
	})
}

// MountRoutes mounts group chat management routes.
func MountRoutes(r *gin.Engine, store registrystore.SocialStore, auth gin.HandlerFunc) {
	g := r.Group("/v1/groups", auth)

	g.POST("", func(c *gin.Context) {
		createGroup(c, store)
	})
	g.POST("/:groupId/members", func(c *gin.Context) {
		addMember(c, store)
	})
	g.DELETE("/:groupId/members/:userId", func(c *gin.Context) {
		removeMember(c, store)
	})
}

func createGroup(c *gin.Context, store registrystore.SocialStore) {
	var req struct {
		Name      string      `json:"name"`
		MemberIDs []uuid.UUID `json:"memberIds"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		routeutil.HandleError(c, routeutil.BindError(err))
		return
	}
	group, err := store.CreateGroup(c.Request.Context(), security.GetUserID(c), req.Name, req.MemberIDs)
	if err != nil {
		routeutil.HandleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, group)
}

func addMember(c *gin.Context, store registrystore.SocialStore) {
	groupID, err := routeutil.ParamUUID(c, "groupId", "group")
	if err != nil {
		routeutil.HandleError(c, err)
		return
	}
	var req struct {
		UserID uuid.UUID `json:"userId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		routeutil.HandleError(c, routeutil.BindError(err))
		return
	}
	member, err := store.AddGroupMember(c.Request.Context(), security.GetUserID(c), groupID, req.UserID)
	if err != nil {
		routeutil.HandleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, member)
}

func removeMember(c *gin.Context, store registrystore.SocialStore) {
	groupID, err := routeutil.ParamUUID(c, "groupId", "group")
	if err != nil {
		routeutil.HandleError(c, err)
		return
	}
	memberID, err := routeutil.ParamUUID(c, "userId", "group member")
	if err != nil {
		routeutil.HandleError(c, err)
		return
	}
	if err := store.RemoveGroupMember(c.Request.Context(), security.GetUserID(c), groupID, memberID); err != nil {
		routeutil.HandleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
