package auth

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/chirino/social-service/internal/model"
	"github.com/chirino/social-service/internal/plugin/route/routeutil"
	registryroute "github.com/chirino/social-service/internal/registry/route"
	registrystore "github.com/chirino/social-service/internal/registry/store"
	"github.com/chirino/social-service/internal/security"
	"github.com/gin-gonic/gin"
)

func init() {
	registryroute.Register(registryroute.Plugin{
		Name:  "auth",
		Order: 10,
		Type:  registryroute.RouteTypeMain,
		Loader: func(r *gin.Engine, s registryroute.Services) error {
			MountRoutes(r, s.Store, s.Tokens, s.Limit)
			return nil
		},
	})
}

// MountRoutes mounts the signup and login routes. limit guards both against
// credential stuffing and may be nil.
func MountRoutes(r *gin.Engine, store registrystore.SocialStore, tokens *security.TokenResolver, limit gin.HandlerFunc) {
	g := r.Group("/v1/auth")
	if limit != nil {
		g.Use(limit)
	}
	g.POST("/signup", func(c *gin.Context) {
		signup(c, store, tokens)
	})
	g.POST("/login", func(c *gin.Context) {
		login(c, store, tokens)
	})
}

type sessionResponse struct {
	User      *model.User `json:"user"`
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expiresAt"`
}

func respondWithSession(c *gin.Context, status int, u *model.User, tokens *security.TokenResolver) {
	token, exp, err := tokens.Issue(u)
	if err != nil {
		routeutil.HandleError(c, err)
		return
	}
	c.JSON(status, sessionResponse{User: u, Token: token, ExpiresAt: exp.UTC()})
}

func signup(c *gin.Context, store registrystore.SocialStore, tokens *security.TokenResolver) {
	var req struct {
		Username string `json:"username" binding:"required,min=3,max=30,username"`
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required,min=6"`
		FullName string `json:"fullName"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		routeutil.HandleError(c, routeutil.BindError(err))
		return
	}
	req.Email = strings.ToLower(req.Email)

	hash, err := security.HashPassword(req.Password)
	if err != nil {
		routeutil.HandleError(c, err)
		return
	}
	u, err := store.CreateUser(c.Request.Context(), registrystore.NewUser{
		Username:     req.Username,
		Email:        req.Email,
		FullName:     req.FullName,
		PasswordHash: hash,
	})
	if err != nil {
		routeutil.HandleError(c, err)
		return
	}
	log.Info("User signed up", "user", u.ID, "username", u.Username)
	respondWithSession(c, http.StatusCreated, u, tokens)
}

func login(c *gin.Context, store registrystore.SocialStore, tokens *security.TokenResolver) {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		routeutil.HandleError(c, routeutil.BindError(err))
		return
	}
	username := strings.TrimSpace(req.Username)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if username == "" && email == "" {
		routeutil.BadRequest(c, "username", "username or email is required")
		return
	}

	u, err := store.FindUserForLogin(c.Request.Context(), username, email)
	var notFound *registrystore.NotFoundError
	if errors.As(err, &notFound) {
		unauthorized(c)
		return
	}
	if err != nil {
		routeutil.HandleError(c, err)
		return
	}
	if err := security.CheckPassword(u.PasswordHash, req.Password); err != nil {
		unauthorized(c)
		return
	}
	respondWithSession(c, http.StatusOK, u, tokens)
}

func unauthorized(c *gin.Context) {
	c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
}
