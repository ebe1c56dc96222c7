package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/accesscore/accessd/internal/access/repository/rolerepo"
	"github.com/accesscore/accessd/internal/access/repository/userrepo"
	"github.com/accesscore/accessd/internal/access/services/authservice"
)

var (
	errMissingToken     = errors.New("bearer token required")
	errEmptyCredentials = errors.New("username and password required")
)

type Error struct {
	Err string `json:"error"`
}

func (se Error) ToJSON() []byte {
	b, err := json.Marshal(se)
	if err != nil {
		se.Err = err.Error()

		b, err := json.Marshal(se)
		if err != nil {
			return []byte(`{
				"error": "marshal error"
			  }`)
		}

		return b
	}

	return b
}

func (dr DetailResponse) ToJSON() []byte {
	b, err := json.Marshal(dr)
	if err != nil {
		return Error{Err: err.Error()}.ToJSON()
	}

	return b
}

func handleError(w http.ResponseWriter, err error, code int) {
	w.WriteHeader(code)

	e := Error{err.Error()}

	w.Write(e.ToJSON()) //nolint:errcheck
}

// handleAuthError maps gate rejections to statuses. Authentication and
// permission failures are 401, a disabled account is 400. Every 401 carries
// a challenge header naming the unmet scopes.
func handleAuthError(w http.ResponseWriter, err error, required []string) {
	if errors.Is(err, authservice.ErrInactiveUser) {
		handleError(w, err, http.StatusBadRequest)

		return
	}

	w.Header().Set("WWW-Authenticate", challenge(required))
	handleError(w, err, http.StatusUnauthorized)
}

func challenge(required []string) string {
	if len(required) == 0 {
		return "Bearer"
	}

	return `Bearer scope="` + strings.Join(required, " ") + `"`
}

func handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, authservice.ErrInvalidCredentials):
		handleError(w, err, http.StatusUnauthorized)
	case errors.Is(err, userrepo.ErrNotFound),
		errors.Is(err, rolerepo.ErrRoleNotFound),
		errors.Is(err, rolerepo.ErrScopeNotFound):
		handleError(w, err, http.StatusNotFound)
	case errors.Is(err, userrepo.ErrAlreadyExists),
		errors.Is(err, rolerepo.ErrRoleAlreadyExists),
		errors.Is(err, rolerepo.ErrScopeAlreadyExists):
		handleError(w, err, http.StatusBadRequest)
	default:
		handleError(w, err, http.StatusInternalServerError)
	}
}
