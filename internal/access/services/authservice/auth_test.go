package authservice_test

import (
	"context"
	"testing"
	"time"

	"github.com/accesscore/accessd/internal/access/domain/models"
	"github.com/accesscore/accessd/internal/access/repository/userrepo"
	"github.com/accesscore/accessd/internal/access/services/authservice"
	"github.com/accesscore/accessd/internal/pkg/config"
	"github.com/stretchr/testify/require"
)

type fakeUserRepo struct {
	users  map[string]models.User
	scopes map[string][]string
}

func (f *fakeUserRepo) GetUser(_ context.Context, username string) (models.User, error) {
	u, ok := f.users[username]
	if !ok {
		return models.User{}, userrepo.ErrNotFound
	}

	return u, nil
}

func (f *fakeUserRepo) ScopesForUser(_ context.Context, username string) ([]string, error) {
	return f.scopes[username], nil
}

func testAuthConfig() config.Auth {
	return config.Auth{
		TTL:       time.Minute * 30,
		Algorithm: "HS256",
		Secret:    "test-secret",
	}
}

func newFakeRepo(t *testing.T, username, password string, scopes []string) *fakeUserRepo {
	t.Helper()

	hash, err := authservice.HashPassword(password)
	require.NoError(t, err)

	return &fakeUserRepo{
		users: map[string]models.User{
			username: {ID: 1, Username: username, PasswordHash: hash},
		},
		scopes: map[string][]string{
			username: scopes,
		},
	}
}

func TestLoginAndAuthorize(t *testing.T) {
	repo := newFakeRepo(t, "alice", "qwerty", []string{"user:read", "user:update"})

	as, err := authservice.New(repo, testAuthConfig())
	require.NoError(t, err)

	token, err := as.Login(context.Background(), "alice", "qwerty", nil)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	u, err := as.Authorize(context.Background(), token, []string{"user:read"})
	require.NoError(t, err)
	require.Equal(t, "alice", u.Username)
}

func TestLoginFailures(t *testing.T) {
	repo := newFakeRepo(t, "alice", "qwerty", nil)

	as, err := authservice.New(repo, testAuthConfig())
	require.NoError(t, err)

	_, err = as.Login(context.Background(), "nobody", "qwerty", nil)
	require.ErrorIs(t, err, authservice.ErrInvalidCredentials)

	_, err = as.Login(context.Background(), "alice", "wrong", nil)
	require.ErrorIs(t, err, authservice.ErrInvalidCredentials)
}

func TestAuthorizeInvalidToken(t *testing.T) {
	repo := newFakeRepo(t, "alice", "qwerty", nil)

	as, err := authservice.New(repo, testAuthConfig())
	require.NoError(t, err)

	_, err = as.Authorize(context.Background(), "not-a-token", []string{"user:read"})
	require.ErrorIs(t, err, authservice.ErrInvalidCredentials)
}

func TestAuthorizeMissingScope(t *testing.T) {
	repo := newFakeRepo(t, "alice", "qwerty", []string{"user:read"})

	as, err := authservice.New(repo, testAuthConfig())
	require.NoError(t, err)

	token, err := as.Login(context.Background(), "alice", "qwerty", nil)
	require.NoError(t, err)

	_, err = as.Authorize(context.Background(), token, []string{"admin:read"})
	require.ErrorIs(t, err, authservice.ErrInsufficientScopes)
}

func TestNarrowedTokenDeniesUnrequestedScope(t *testing.T) {
	repo := newFakeRepo(t, "alice", "qwerty", []string{"user:read", "user:update"})

	as, err := authservice.New(repo, testAuthConfig())
	require.NoError(t, err)

	token, err := as.Login(context.Background(), "alice", "qwerty", []string{"user:read"})
	require.NoError(t, err)

	// The user holds user:update live, but the token was narrowed to user:read.
	_, err = as.Authorize(context.Background(), token, []string{"user:update"})
	require.ErrorIs(t, err, authservice.ErrInsufficientGrantedScopes)

	_, err = as.Authorize(context.Background(), token, []string{"user:read"})
	require.NoError(t, err)
}

func TestNarrowedTokenRevalidatesAgainstLiveScopes(t *testing.T) {
	repo := newFakeRepo(t, "alice", "qwerty", []string{"user:read"})

	as, err := authservice.New(repo, testAuthConfig())
	require.NoError(t, err)

	token, err := as.Login(context.Background(), "alice", "qwerty", []string{"user:read"})
	require.NoError(t, err)

	// Revoke the scope after issuance: the embedded claim must not be trusted.
	repo.scopes["alice"] = nil

	_, err = as.Authorize(context.Background(), token, []string{"user:read"})
	require.ErrorIs(t, err, authservice.ErrInsufficientGrantedScopes)
}

func TestRevocationByRoleRemoval(t *testing.T) {
	repo := newFakeRepo(t, "alice", "qwerty", []string{"user:read"})

	as, err := authservice.New(repo, testAuthConfig())
	require.NoError(t, err)

	token, err := as.Login(context.Background(), "alice", "qwerty", nil)
	require.NoError(t, err)

	_, err = as.Authorize(context.Background(), token, []string{"user:read"})
	require.NoError(t, err)

	repo.scopes["alice"] = nil

	_, err = as.Authorize(context.Background(), token, []string{"user:read"})
	require.ErrorIs(t, err, authservice.ErrInsufficientScopes)
}

func TestAuthorizeInactiveUser(t *testing.T) {
	repo := newFakeRepo(t, "alice", "qwerty", []string{"user:read"})

	as, err := authservice.New(repo, testAuthConfig())
	require.NoError(t, err)

	token, err := as.Login(context.Background(), "alice", "qwerty", nil)
	require.NoError(t, err)

	u := repo.users["alice"]
	u.Disabled = true
	repo.users["alice"] = u

	_, err = as.Authorize(context.Background(), token, []string{"user:read"})
	require.ErrorIs(t, err, authservice.ErrInactiveUser)
}

func TestAuthorizeDeletedUser(t *testing.T) {
	repo := newFakeRepo(t, "alice", "qwerty", []string{"user:read"})

	as, err := authservice.New(repo, testAuthConfig())
	require.NoError(t, err)

	token, err := as.Login(context.Background(), "alice", "qwerty", nil)
	require.NoError(t, err)

	delete(repo.users, "alice")

	_, err = as.Authorize(context.Background(), token, []string{"user:read"})
	require.ErrorIs(t, err, authservice.ErrUserNotFound)
}

func TestHashPasswordSaltedOneWay(t *testing.T) {
	first, err := authservice.HashPassword("qwerty")
	require.NoError(t, err)

	second, err := authservice.HashPassword("qwerty")
	require.NoError(t, err)

	require.NotEqual(t, first, second)
	require.NotEqual(t, "qwerty", first)

	require.True(t, authservice.VerifyPassword("qwerty", first))
	require.True(t, authservice.VerifyPassword("qwerty", second))
	require.False(t, authservice.VerifyPassword("wrong", first))
	require.False(t, authservice.VerifyPassword("qwerty", "not-a-hash"))
}
