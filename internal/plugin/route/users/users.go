package users

import (
	"context"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/chirino/social-service/internal/model"
	"github.com/chirino/social-service/internal/plugin/route/routeutil"
	registrycache "github.com/chirino/social-service/internal/registry/cache"
	registryevents "github.com/chirino/social-service/internal/registry/events"
	registrymedia "github.com/chirino/social-service/internal/registry/media"
	registryroute "github.com/chirino/social-service/internal/registry/route"
	registrystore "github.com/chirino/social-service/internal/registry/store"
	"github.com/chirino/social-service/internal/security"
	"github.com/gin-gonic/gin"
)

func init() {
	registryroute.Register(registryroute.Plugin{
		Name:  "users",
		Order: 20,
		Type:  registryroute.RouteTypeMain,
		Loader: func(r *gin.Engine, s registryroute.Services) error {
			MountRoutes(r, s.Store, s.Auth, s.Media, s.Profiles, s.Events)
			return nil
		},
	})
}

// MountRoutes mounts account, profile and follow routes.
func MountRoutes(r *gin.Engine, store registrystore.SocialStore, auth gin.HandlerFunc, encoder registrymedia.Encoder, profiles registrycache.ProfileCache, events registryevents.Publisher) {
	g := r.Group("/v1/users", auth)

	g.GET("/me", func(c *gin.Context) {
		getMe(c, store)
	})
	g.PATCH("/me", func(c *gin.Context) {
		updateMe(c, store, encoder, profiles)
	})
	g.GET("/me/saved", func(c *gin.Context) {
		listSaved(c, store)
	})
	g.GET("/:username", func(c *gin.Context) {
		getProfile(c, store)
	})
	g.POST("/:username/follow", func(c *gin.Context) {
		follow(c, store, events)
	})
	g.DELETE("/:username/follow", func(c *gin.Context) {
		unfollow(c, store)
	})
	g.GET("/:username/followers", func(c *gin.Context) {
		listFollowEdges(c, store.ListFollowers)
	})
	g.GET("/:username/following", func(c *gin.Context) {
		listFollowEdges(c, store.ListFollowing)
	})
}

func getMe(c *gin.Context, store registrystore.SocialStore) {
	u, err := store.GetUser(c.Request.Context(), security.GetUserID(c))
	if err != nil {
		routeutil.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func updateMe(c *gin.Context, store registrystore.SocialStore, encoder registrymedia.Encoder, profiles registrycache.ProfileCache) {
	ctx := c.Request.Context()
	userID := security.GetUserID(c)

	var req struct {
		FullName        *string `json:"fullName" form:"fullName"`
		Bio             *string `json:"bio" form:"bio"`
		CurrentPassword string  `json:"currentPassword" form:"currentPassword"`
		NewPassword     string  `json:"newPassword" form:"newPassword" binding:"omitempty,min=6"`
	}
	var update registrystore.UserUpdate
	if routeutil.IsMultipart(c) {
		if err := c.ShouldBind(&req); err != nil {
			routeutil.HandleError(c, routeutil.BindError(err))
			return
		}
		if fh, err := c.FormFile("avatar"); err == nil {
			if !routeutil.IsImage(fh) {
				routeutil.BadRequest(c, "avatar", "avatar must be an image")
				return
			}
			ref, err := routeutil.EncodeUpload(ctx, encoder, fh)
			if err != nil {
				routeutil.HandleError(c, err)
				return
			}
			update.AvatarURL = &ref
		}
	} else if err := c.ShouldBindJSON(&req); err != nil {
		routeutil.HandleError(c, routeutil.BindError(err))
		return
	}
	update.FullName = req.FullName
	update.Bio = req.Bio

	if req.NewPassword != "" {
		current, err := store.GetUser(ctx, userID)
		if err != nil {
			routeutil.HandleError(c, err)
			return
		}
		if err := security.CheckPassword(current.PasswordHash, req.CurrentPassword); err != nil {
			routeutil.BadRequest(c, "currentPassword", "current password is incorrect")
			return
		}
		hash, err := security.HashPassword(req.NewPassword)
		if err != nil {
			routeutil.HandleError(c, err)
			return
		}
		update.PasswordHash = &hash
	}

	u, err := store.UpdateUser(ctx, userID, update)
	if err != nil {
		routeutil.HandleError(c, err)
		return
	}
	if profiles != nil {
		if err := profiles.Remove(ctx, userID); err != nil {
			log.Warn("Failed to invalidate cached profile", "user", userID, "err", err)
		}
	}
	c.JSON(http.StatusOK, u)
}

func listSaved(c *gin.Context, store registrystore.SocialStore) {
	page, err := routeutil.Page(c)
	if err != nil {
		routeutil.HandleError(c, err)
		return
	}
	posts, info, err := store.ListSavedPosts(c.Request.Context(), security.GetUserID(c), page)
	if err != nil {
		routeutil.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, routeutil.PostsPage{Posts: posts, Pagination: info})
}

func getProfile(c *gin.Context, store registrystore.SocialStore) {
	profile, err := store.GetUserProfile(c.Request.Context(), security.GetUserID(c), c.Param("username"))
	if err != nil {
		routeutil.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

func follow(c *gin.Context, store registrystore.SocialStore, events registryevents.Publisher) {
	ctx := c.Request.Context()
	f, err := store.Follow(ctx, security.GetUserID(c), c.Param("username"))
	if err != nil {
		routeutil.HandleError(c, err)
		return
	}
	registryevents.Emit(ctx, events, registryevents.Event{
		Type: registryevents.TypeUserFollowed,
		Key:  f.FollowingID.String(),
		Payload: gin.H{
			"followerId":  f.FollowerID,
			"followingId": f.FollowingID,
		},
	})
	c.JSON(http.StatusCreated, f)
}

func unfollow(c *gin.Context, store registrystore.SocialStore) {
	if err := store.Unfollow(c.Request.Context(), security.GetUserID(c), c.Param("username")); err != nil {
		routeutil.HandleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type followLister func(ctx context.Context, username string, page registrystore.PageRequest) ([]model.UserSummary, registrystore.PageInfo, error)

func listFollowEdges(c *gin.Context, list followLister) {
	page, err := routeutil.Page(c)
	if err != nil {
		routeutil.HandleError(c, err)
		return
	}
	users, info, err := list(c.Request.Context(), c.Param("username"), page)
	if err != nil {
		routeutil.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users, "pagination": info})
}
