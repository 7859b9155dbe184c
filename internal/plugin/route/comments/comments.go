package comments

import (
	"context"
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
		Name:  "comments",
		Order: 40,
		Type:  registryroute.RouteTypeMain,
		Loader: func(r *gin.Engine, s registryroute.Services) error {
			MountRoutes(r, s.Store, s.Auth)
			return nil
		},
	})
}

// MountRoutes mounts routes addressing a single comment. Listing and creating
// comments live under the post routes.
func MountRoutes(r *gin.Engine, store registrystore.SocialStore, auth gin.HandlerFunc) {
	g := r.Group("/v1/comments", auth)

	g.GET("/:commentId", func(c *gin.Context) {
		getComment(c, store)
	})
	g.PATCH("/:commentId", func(c *gin.Context) {
		updateComment(c, store)
	})
	g.DELETE("/:commentId", func(c *gin.Context) {
		withComment(c, store.DeleteComment)
	})
	g.POST("/:commentId/like", func(c *gin.Context) {
		withComment(c, store.LikeComment)
	})
	g.DELETE("/:commentId/like", func(c *gin.Context) {
		withComment(c, store.UnlikeComment)
	})
}

func getComment(c *gin.Context, store registrystore.SocialStore) {
	commentID, err := routeutil.ParamUUID(c, "commentId", "comment")
	if err != nil {
		routeutil.HandleError(c, err)
		return
	}
	comment, err := store.GetComment(c.Request.Context(), commentID)
	if err != nil {
		routeutil.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, comment)
}

func updateComment(c *gin.Context, store registrystore.SocialStore) {
	commentID, err := routeutil.ParamUUID(c, "commentId", "comment")
	if err != nil {
		routeutil.HandleError(c, err)
		return
	}
	var req struct {
		Content string `json:"content"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		routeutil.HandleError(c, routeutil.BindError(err))
		return
	}
	comment, err := store.UpdateComment(c.Request.Context(), security.GetUserID(c), commentID, req.Content)
	if err != nil {
		routeutil.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, comment)
}

func withComment(c *gin.Context, action func(ctx context.Context, userID, commentID uuid.UUID) error) {
	commentID, err := routeutil.ParamUUID(c, "commentId", "comment")
	if err != nil {
		routeutil.HandleError(c, err)
		return
	}
	if err := action(c.Request.Context(), security.GetUserID(c), commentID); err != nil {
		routeutil.HandleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
