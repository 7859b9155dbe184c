package security

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/chirino/social-service/internal/config"
	"github.com/chirino/social-service/internal/model"
	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	// ContextKeyUserID is the gin context key for the authenticated user ID (uuid.UUID).
	ContextKeyUserID = "userID"
	// ContextKeyUsername is the gin context key for the authenticated username.
	ContextKeyUsername = "username"
	// ContextKeyEmail is the gin context key for the authenticated user's email.
	ContextKeyEmail = "email"
)

const sessionIssuer = "social-service"

// Identity is the authenticated principal behind a request.
type Identity struct {
	UserID   uuid.UUID
	Username string
	Email    string
}

// UserLookup finds local accounts for identities asserted by an external IdP.
type UserLookup interface {
	FindUserForLogin(ctx context.Context, username string, email string) (*model.User, error)
}

type sessionClaims struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	jwt.RegisteredClaims
}

// TokenResolver issues session tokens at login and resolves bearer tokens to
// identities. Tokens it issued are HS256 JWTs; when OIDC is configured, tokens
// from the IdP are accepted too and mapped to local users by username or email.
type TokenResolver struct {
	secret   []byte
	ttl      time.Duration
	verifier *oidc.IDTokenVerifier
	users    UserLookup
	now      func() time.Time
}

var (
	errInvalidToken    = errors.New("invalid session token")
	errExpiredToken    = errors.New("session token expired")
	errMissingIdentity = errors.New("token missing identity claims")
	errUnknownUser     = errors.New("no account for token identity")
)

// NewTokenResolver creates a TokenResolver from the application config. It performs
// one-time OIDC provider discovery if OIDCIssuer is configured. users may be nil
// when OIDC is disabled.
func NewTokenResolver(cfg *config.Config, users UserLookup) (*TokenResolver, error) {
	secret := []byte(cfg.SessionSecret)
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, fmt.Errorf("failed to generate session secret: %w", err)
		}
		log.Warn("No session secret configured; using a random one. Sessions will not survive a restart.")
	}
	r := &TokenResolver{
		secret: secret,
		ttl:    cfg.SessionTTL,
		users:  users,
		now:    time.Now,
	}
	if r.ttl <= 0 {
		r.ttl = 24 * time.Hour
	}

	if issuer := cfg.OIDCIssuer; issuer != "" {
		ctx := context.Background()
		discovery := issuer
		if cfg.OIDCDiscoveryURL != "" && cfg.OIDCDiscoveryURL != issuer {
			// The IdP is reachable at a different address than the issuer it advertises.
			ctx = oidc.InsecureIssuerURLContext(ctx, issuer)
			discovery = cfg.OIDCDiscoveryURL
		}
		provider, err := oidc.NewProvider(ctx, discovery)
		if err != nil {
			log.Error("Failed to initialize OIDC provider; only session tokens will be accepted", "issuer", discovery, "err", err)
		} else {
			var providerClaims struct {
				JWKSURI string `json:"jwks_uri"`
			}
			if discovery != issuer {
				if err := provider.Claims(&providerClaims); err == nil && providerClaims.JWKSURI != "" {
					keySet := oidc.NewRemoteKeySet(ctx, providerClaims.JWKSURI)
					r.verifier = oidc.NewVerifier(issuer, keySet, &oidc.Config{SkipClientIDCheck: true})
				}
			}
			if r.verifier == nil {
				r.verifier = provider.Verifier(&oidc.Config{SkipClientIDCheck: true})
			}
			log.Info("OIDC auth enabled", "issuer", issuer)
		}
	}
	return r, nil
}

// Issue signs a session token for the user.
func (r *TokenResolver) Issue(u *model.User) (string, time.Time, error) {
	now := r.now()
	exp := now.Add(r.ttl)
	claims := sessionClaims{
		Username: u.Username,
		Email:    u.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    sessionIssuer,
			Subject:   u.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(r.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, exp, nil
}

// Resolve resolves a bearer token (without the "Bearer " prefix) into an Identity.
func (r *TokenResolver) Resolve(ctx context.Context, token string) (*Identity, error) {
	id, err := r.resolveSession(token)
	if err == nil || r.verifier == nil || errors.Is(err, errExpiredToken) {
		return id, err
	}
	return r.resolveOIDC(ctx, token)
}

func (r *TokenResolver) resolveSession(token string) (*Identity, error) {
	var claims sessionClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return r.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(sessionIssuer),
		jwt.WithTimeFunc(r.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, errExpiredToken
		}
		return nil, errors.Join(errInvalidToken, err)
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, errMissingIdentity
	}
	return &Identity{UserID: userID, Username: claims.Username, Email: claims.Email}, nil
}

func (r *TokenResolver) resolveOIDC(ctx context.Context, token string) (*Identity, error) {
	idToken, err := r.verifier.Verify(ctx, token)
	if err != nil {
		return nil, errors.Join(errInvalidToken, err)
	}
	var claims struct {
		PreferredUsername string `json:"preferred_username"`
		Email             string `json:"email"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return nil, errors.Join(errInvalidToken, err)
	}
	if claims.PreferredUsername == "" && claims.Email == "" {
		return nil, errMissingIdentity
	}
	if r.users == nil {
		return nil, errUnknownUser
	}
	u, err := r.users.FindUserForLogin(ctx, claims.PreferredUsername, claims.Email)
	if err != nil {
		return nil, errors.Join(errUnknownUser, err)
	}
	return &Identity{UserID: u.ID, Username: u.Username, Email: u.Email}, nil
}

// --- Gin HTTP middleware ---

// GetUserID returns the authenticated user ID from the gin context, or uuid.Nil.
func GetUserID(c *gin.Context) uuid.UUID {
	v, ok := c.Get(ContextKeyUserID)
	if !ok {
		return uuid.Nil
	}
	id, _ := v.(uuid.UUID)
	return id
}

// GetIdentity returns the authenticated principal from the gin context, or nil.
func GetIdentity(c *gin.Context) *Identity {
	id := GetUserID(c)
	if id == uuid.Nil {
		return nil
	}
	return &Identity{UserID: id, Username: c.GetString(ContextKeyUsername), Email: c.GetString(ContextKeyEmail)}
}

func bearerToken(c *gin.Context) (string, error) {
	auth := c.GetHeader("Authorization")
	if auth == "" {
		return "", errors.New("missing Authorization header")
	}
	token := strings.TrimPrefix(auth, "Bearer ")
	if token == auth || token == "" {
		return "", errors.New("invalid Authorization header; expected Bearer token")
	}
	return token, nil
}

func setIdentity(c *gin.Context, id *Identity) {
	c.Set(ContextKeyUserID, id.UserID)
	c.Set(ContextKeyUsername, id.Username)
	c.Set(ContextKeyEmail, id.Email)
}

// AuthMiddleware returns a gin middleware that requires a valid bearer token and
// stores the resolved identity in the gin context.
func AuthMiddleware(resolver *TokenResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := bearerToken(c)
		if err != nil {
			log.Info("Auth rejected", "method", c.Request.Method, "path", c.Request.URL.Path, "err", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		id, err := resolver.Resolve(c.Request.Context(), token)
		if err != nil {
			log.Info("Auth rejected", "method", c.Request.Method, "path", c.Request.URL.Path, "err", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		setIdentity(c, id)
		c.Next()
	}
}

// OptionalAuthMiddleware resolves the bearer token when one is present and
// continues anonymously otherwise. Invalid tokens are still rejected.
func OptionalAuthMiddleware(resolver *TokenResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") == "" {
			c.Next()
			return
		}
		token, err := bearerToken(c)
		if err == nil {
			var id *Identity
			if id, err = resolver.Resolve(c.Request.Context(), token); err == nil {
				setIdentity(c, id)
				c.Next()
				return
			}
		}
		log.Info("Auth rejected", "method", c.Request.Method, "path", c.Request.URL.Path, "err", err)
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
	}
}
