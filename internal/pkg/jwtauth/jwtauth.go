package jwtauth

import (
	"errors"
	"fmt"
	"time"

	"github.com/accesscore/accessd/internal/pkg/config"
	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned for every decode failure: bad signature,
// malformed structure, unsupported algorithm or expired token. Callers
// must not learn which one it was.
var ErrInvalidToken = errors.New("invalid token")

type Claims struct {
	Scopes []string `json:"scopes"`
	jwt.RegisteredClaims
}

// Codec issues and verifies signed bearer tokens. The secret and the
// signing method are fixed at construction and never change afterwards.
type Codec struct {
	secret []byte
	method jwt.SigningMethod
	ttl    time.Duration
}

func NewCodec(cfg config.Auth) (Codec, error) {
	method := jwt.GetSigningMethod(cfg.Algorithm)
	if method == nil {
		return Codec{}, fmt.Errorf("unknown signing algorithm %q", cfg.Algorithm)
	}

	if _, ok := method.(*jwt.SigningMethodHMAC); !ok {
		return Codec{}, fmt.Errorf("signing algorithm %q is not an HMAC method", cfg.Algorithm)
	}

	return Codec{
		secret: []byte(cfg.Secret),
		method: method,
		ttl:    cfg.TTL,
	}, nil
}

func (c Codec) Issue(subject string, scopes []string, now time.Time) (string, error) {
	claims := Claims{
		Scopes: scopes,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
	}

	token, err := jwt.NewWithClaims(c.method, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign token error: %w", err)
	}

	return token, nil
}

func (c Codec) Decode(tokenString string) (Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{},
		func(*jwt.Token) (interface{}, error) { return c.secret, nil },
		jwt.WithValidMethods([]string{c.method.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return Claims{}, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return Claims{}, ErrInvalidToken
	}

	return *claims, nil
}
