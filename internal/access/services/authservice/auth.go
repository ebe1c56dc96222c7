package authservice

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/accesscore/accessd/internal/access/domain/models"
	"github.com/accesscore/accessd/internal/access/repository/userrepo"
	"github.com/accesscore/accessd/internal/pkg/config"
	"github.com/accesscore/accessd/internal/pkg/jwtauth"
)

var (
	// ErrInvalidCredentials covers both bad login credentials and
	// unverifiable tokens. Unknown username and wrong password are
	// deliberately indistinguishable to the caller.
	ErrInvalidCredentials = errors.New("invalid authentication credentials")

	ErrUserNotFound = errors.New("user not found")

	ErrInactiveUser = errors.New("inactive user")

	// ErrInsufficientScopes: the user's live roles do not grant a required scope.
	ErrInsufficientScopes = errors.New("not enough permissions")

	// ErrInsufficientGrantedScopes: the token was narrowed at login and the
	// required scope is outside the intersection of the token's scopes with
	// the user's live scopes.
	ErrInsufficientGrantedScopes = errors.New("necessary permissions were not provided")
)

type Repository interface {
	GetUser(context.Context, string) (models.User, error)
	ScopesForUser(context.Context, string) ([]string, error)
}

type AuthService struct {
	userRepo Repository
	codec    jwtauth.Codec
}

func New(userRepo Repository, cfg config.Auth) (*AuthService, error) {
	codec, err := jwtauth.NewCodec(cfg)
	if err != nil {
		return nil, fmt.Errorf("new codec error: %w", err)
	}

	return &AuthService{
		userRepo: userRepo,
		codec:    codec,
	}, nil
}

// Login verifies the credentials and issues a bearer token. A non-empty
// scopes list narrows the token to that subset for its whole lifetime.
func (as *AuthService) Login(ctx context.Context, username, password string, scopes []string) (string, error) {
	u, err := as.userRepo.GetUser(ctx, username)
	if err != nil {
		if errors.Is(err, userrepo.ErrNotFound) {
			// Burn a comparison anyway so a miss costs the same as a mismatch.
			VerifyPassword(password, dummyHash)

			return "", ErrInvalidCredentials
		}

		return "", fmt.Errorf("get user error: %w", err)
	}

	if !VerifyPassword(password, u.PasswordHash) {
		return "", ErrInvalidCredentials
	}

	token, err := as.codec.Issue(u.Username, scopes, time.Now())
	if err != nil {
		return "", fmt.Errorf("can't get token error: %w", err)
	}

	return token, nil
}

// Authorize decodes the token and checks every required scope against the
// subject's live permissions. Scopes embedded in the token are never trusted
// on their own: the role graph is re-read on every call, so a role revoked
// after issuance denies the request even though the token still names the
// scope.
func (as *AuthService) Authorize(ctx context.Context, token string, required []string) (models.User, error) {
	claims, err := as.codec.Decode(token)
	if err != nil {
		return models.User{}, ErrInvalidCredentials
	}

	u, err := as.userRepo.GetUser(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, userrepo.ErrNotFound) {
			return models.User{}, ErrUserNotFound
		}

		return models.User{}, fmt.Errorf("get user error: %w", err)
	}

	if u.Disabled {
		return models.User{}, ErrInactiveUser
	}

	live, err := as.userRepo.ScopesForUser(ctx, u.Username)
	if err != nil {
		return models.User{}, fmt.Errorf("scopes for user error: %w", err)
	}

	liveSet := make(map[string]struct{}, len(live))
	for _, s := range live {
		liveSet[s] = struct{}{}
	}

	for _, s := range required {
		if len(claims.Scopes) != 0 {
			if !inGrantedSubset(s, claims.Scopes, liveSet) {
				return models.User{}, ErrInsufficientGrantedScopes
			}

			continue
		}

		if _, ok := liveSet[s]; !ok {
			return models.User{}, ErrInsufficientScopes
		}
	}

	return u, nil
}

// inGrantedSubset reports whether scope is inside the intersection of the
// token's requested scopes with the live scope set.
func inGrantedSubset(scope string, requested []string, live map[string]struct{}) bool {
	for _, s := range requested {
		if s != scope {
			continue
		}

		_, ok := live[scope]

		return ok
	}

	return false
}
