package posts

import (
	"context"
	"maps"
	"net/http"
	"slices"
	"strings"

	"github.com/chirino/social-service/internal/plugin/route/routeutil"
	registryevents "github.com/chirino/social-service/internal/registry/events"
	registrymedia "github.com/chirino/social-service/internal/registry/media"
	registryroute "github.com/chirino/social-service/internal/registry/route"
	registrystore "github.com/chirino/social-service/internal/registry/store"
	"github.com/chirino/social-service/internal/security"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const maxImagesPerPost = 10

func init() {
	registryroute.Register(registryroute.Plugin{
		Name:  "posts",
		Order: 30,
		Type:  registryroute.RouteTypeMain,
		Loader: func(r *gin.Engine, s registryroute.Services) error {
			MountRoutes(r, s.Store, s.Auth, s.Limit, s.Media, s.Events)
			return nil
		},
	})
}

// MountRoutes mounts post, like, save and post-comment routes. limit throttles
// post creation and may be nil.
func MountRoutes(r *gin.Engine, store registrystore.SocialStore, auth gin.HandlerFunc, limit gin.HandlerFunc, encoder registrymedia.Encoder, events registryevents.Publisher) {
	g := r.Group("/v1/posts", auth)

	create := []gin.HandlerFunc{}
	if limit != nil {
		create = append(create, limit)
	}
	create = append(create, func(c *gin.Context) {
		createPost(c, store, encoder)
	})
	g.POST("", create...)
	g.GET("", func(c *gin.Context) {
		listPosts(c, store)
	})
	g.GET("/:postId", func(c *gin.Context) {
		getPost(c, store)
	})
	g.PATCH("/:postId", func(c *gin.Context) {
		updatePost(c, store)
	})
	g.DELETE("/:postId", func(c *gin.Context) {
		deletePost(c, store)
	})
	g.POST("/:postId/like", func(c *gin.Context) {
		likePost(c, store, events)
	})
	g.DELETE("/:postId/like", func(c *gin.Context) {
		withPost(c, store.UnlikePost)
	})
	g.POST("/:postId/save", func(c *gin.Context) {
		withPost(c, store.SavePost)
	})
	g.DELETE("/:postId/save", func(c *gin.Context) {
		withPost(c, store.UnsavePost)
	})
	g.GET("/:postId/comments", func(c *gin.Context) {
		listComments(c, store)
	})
	g.POST("/:postId/comments", func(c *gin.Context) {
		createComment(c, store)
	})
}

func createPost(c *gin.Context, store registrystore.SocialStore, encoder registrymedia.Encoder) {
	ctx := c.Request.Context()
	form, err := c.MultipartForm()
	if err != nil {
		routeutil.BadRequest(c, "images", "multipart form with at least one image is required")
		return
	}

	// Parts keep their upload order within a field; fields are taken in name order.
	var refs []string
	for _, field := range slices.Sorted(maps.Keys(form.File)) {
		for _, fh := range form.File[field] {
			if !routeutil.IsImage(fh) {
				continue
			}
			if len(refs) == maxImagesPerPost {
				routeutil.BadRequest(c, "images", "a post can have at most 10 images")
				return
			}
			ref, err := routeutil.EncodeUpload(ctx, encoder, fh)
			if err != nil {
				routeutil.HandleError(c, err)
				return
			}
			refs = append(refs, ref)
		}
	}
	if len(refs) == 0 {
		routeutil.BadRequest(c, "images", "at least one image is required")
		return
	}

	var caption *string
	if v := strings.TrimSpace(c.PostForm("caption")); v != "" {
		caption = &v
	}
	post, err := store.CreatePost(ctx, security.GetUserID(c), caption, refs)
	if err != nil {
		routeutil.HandleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, post)
}

func listPosts(c *gin.Context, store registrystore.SocialStore) {
	page, err := routeutil.Page(c)
	if err != nil {
		routeutil.HandleError(c, err)
		return
	}
	viewer := security.GetUserID(c)
	authorID := viewer
	if id, err := routeutil.QueryUUID(c, "authorId"); err != nil {
		routeutil.HandleError(c, err)
		return
	} else if id != nil {
		authorID = *id
	}
	posts, info, err := store.ListPostsByAuthor(c.Request.Context(), viewer, authorID, page)
	if err != nil {
		routeutil.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, routeutil.PostsPage{Posts: posts, Pagination: info})
}

func getPost(c *gin.Context, store registrystore.SocialStore) {
	postID, err := routeutil.ParamUUID(c, "postId", "post")
	if err != nil {
		routeutil.HandleError(c, err)
		return
	}
	post, err := store.GetPost(c.Request.Context(), security.GetUserID(c), postID)
	if err != nil {
		routeutil.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

func updatePost(c *gin.Context, store registrystore.SocialStore) {
	postID, err := routeutil.ParamUUID(c, "postId", "post")
	if err != nil {
		routeutil.HandleError(c, err)
		return
	}
	var req struct {
		Caption *string `json:"caption"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		routeutil.HandleError(c, routeutil.BindError(err))
		return
	}
	if req.Caption != nil {
		trimmed := strings.TrimSpace(*req.Caption)
		if trimmed == "" {
			req.Caption = nil
		} else {
			req.Caption = &trimmed
		}
	}
	post, err := store.UpdatePost(c.Request.Context(), security.GetUserID(c), postID, req.Caption)
	if err != nil {
		routeutil.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

func deletePost(c *gin.Context, store registrystore.SocialStore) {
	withPost(c, store.DeletePost)
}

func likePost(c *gin.Context, store registrystore.SocialStore, events registryevents.Publisher) {
	postID, err := routeutil.ParamUUID(c, "postId", "post")
	if err != nil {
		routeutil.HandleError(c, err)
		return
	}
	ctx := c.Request.Context()
	userID := security.GetUserID(c)
	if err := store.LikePost(ctx, userID, postID); err != nil {
		routeutil.HandleError(c, err)
		return
	}
	registryevents.Emit(ctx, events, registryevents.Event{
		Type:    registryevents.TypePostLiked,
		Key:     postID.String(),
		Payload: gin.H{"postId": postID, "userId": userID},
	})
	c.Status(http.StatusNoContent)
}

type postAction func(ctx context.Context, userID, postID uuid.UUID) error

// withPost runs an action that takes the caller and the path's post and answers 204.
func withPost(c *gin.Context, action postAction) {
	postID, err := routeutil.ParamUUID(c, "postId", "post")
	if err != nil {
		routeutil.HandleError(c, err)
		return
	}
	if err := action(c.Request.Context(), security.GetUserID(c), postID); err != nil {
		routeutil.HandleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func listComments(c *gin.Context, store registrystore.SocialStore) {
	postID, err := routeutil.ParamUUID(c, "postId", "post")
	if err != nil {
		routeutil.HandleError(c, err)
		return
	}
	page, err := routeutil.Page(c)
	if err != nil {
		routeutil.HandleError(c, err)
		return
	}
	comments, info, err := store.ListComments(c.Request.Context(), postID, page)
	if err != nil {
		routeutil.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"comments": comments, "pagination": info})
}

func createComment(c *gin.Context, store registrystore.SocialStore) {
	postID, err := routeutil.ParamUUID(c, "postId", "post")
	if err != nil {
		routeutil.HandleError(c, err)
		return
	}
	var req struct {
		Content         string     `json:"content"`
		ParentCommentID *uuid.UUID `json:"parentCommentId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		routeutil.HandleError(c, routeutil.BindError(err))
		return
	}
	comment, err := store.CreateComment(c.Request.Context(), security.GetUserID(c), postID, req.Content, req.ParentCommentID)
	if err != nil {
		routeutil.HandleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, comment)
}
