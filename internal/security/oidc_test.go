package security

import (
	"context"
	"errors"
	"testing"

	"github.com/chirino/social-service/internal/config"
	"github.com/chirino/social-service/internal/model"
	"github.com/chirino/social-service/internal/testutil/testkeycloak"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type staticUsers map[string]*model.User

func (s staticUsers) FindUserForLogin(_ context.Context, username, email string) (*model.User, error) {
	if u, ok := s[username]; ok {
		return u, nil
	}
	for _, u := range s {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, errors.New("not found")
}

func TestResolve_KeycloakAccessToken(t *testing.T) {
	kc := testkeycloak.StartKeycloak(t)
	ctx := context.Background()

	alice := &model.User{ID: uuid.New(), Username: "alice", Email: "alice@example.com"}
	cfg := config.DefaultConfig()
	cfg.SessionSecret = "test-secret"
	cfg.OIDCIssuer = kc.IssuerURL
	r, err := NewTokenResolver(&cfg, staticUsers{"alice": alice})
	require.NoError(t, err)
	require.NotNil(t, r.verifier)

	token, err := kc.AccessToken(ctx, "alice", "alice")
	require.NoError(t, err)
	id, err := r.Resolve(ctx, token)
	require.NoError(t, err)
	require.Equal(t, alice.ID, id.UserID)
	require.Equal(t, "alice", id.Username)

	// A valid IdP token without a local account is rejected.
	token, err = kc.AccessToken(ctx, "mallory", "mallory")
	require.NoError(t, err)
	_, err = r.Resolve(ctx, token)
	require.ErrorIs(t, err, errUnknownUser)

	// Session tokens keep working alongside OIDC.
	session, _, err := r.Issue(alice)
	require.NoError(t, err)
	id, err = r.Resolve(ctx, session)
	require.NoError(t, err)
	require.Equal(t, alice.ID, id.UserID)
}
