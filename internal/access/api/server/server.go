package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/accesscore/accessd/internal/access/domain/models"
	"github.com/accesscore/accessd/internal/access/services/directoryservice"
	"github.com/accesscore/accessd/internal/pkg/config"
	"github.com/accesscore/accessd/pkg/logger"
	"github.com/go-chi/chi/v5"
)

type Server struct {
	serv             *http.Server
	authService      AuthService
	directoryService DirectoryService
}

type AuthService interface {
	Login(ctx context.Context, username, password string, scopes []string) (string, error)
	Authorize(ctx context.Context, token string, required []string) (models.User, error)
}

type DirectoryService interface {
	RegisterUser(context.Context, directoryservice.RegisterUserRequest) (models.User, error)
	GetUser(context.Context, string) (models.User, error)
	ListUsers(context.Context) ([]models.User, error)
	UpdateUser(context.Context, string, directoryservice.UpdateUserRequest) (models.User, error)
	AdminUpdateUser(context.Context, string, directoryservice.AdminUpdateUserRequest) (models.User, error)
	DeleteUser(context.Context, string) error

	CreateRole(context.Context, directoryservice.CreateRoleRequest) (models.Role, error)
	GetRole(context.Context, int) (models.Role, error)
	ListRoles(context.Context) ([]models.Role, error)
	UpdateRole(context.Context, int, directoryservice.UpdateRoleRequest) (models.Role, error)
	DeleteRole(context.Context, int) error

	CreateScope(context.Context, directoryservice.CreateScopeRequest) (models.Scope, error)
	GetScope(context.Context, int) (models.Scope, error)
	ListScopes(context.Context) ([]models.Scope, error)
	UpdateScope(context.Context, int, directoryservice.UpdateScopeRequest) (models.Scope, error)
	DeleteScope(context.Context, int) error
}

func New(cfg config.Server, authService AuthService, directoryService DirectoryService, lg logger.Logger) *Server {
	s := Server{
		authService:      authService,
		directoryService: directoryService,
	}

	r := chi.NewRouter()
	r.Use(loggingMiddleware(lg))

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", s.registerUser)
		r.Post("/login", s.loginUser)
	})

	r.Route("/users", func(r chi.Router) {
		r.Get("/", s.protected(s.listUsers, "admin:read"))
		r.Get("/me", s.protected(s.readCurrentUser, "user:read"))
		r.Patch("/me", s.protected(s.updateCurrentUser, "user:update"))

		r.Route("/roles", func(r chi.Router) {
			r.Post("/", s.protected(s.createRole, "role:create"))
			r.Get("/", s.protected(s.listRoles, "role:read"))
			r.Get("/{id}", s.protected(s.readRole, "role:read"))
			r.Patch("/{id}", s.protected(s.updateRole, "role:update"))
			r.Delete("/{id}", s.protected(s.deleteRole, "role:delete"))
		})

		r.Route("/scopes", func(r chi.Router) {
			r.Post("/", s.protected(s.createScope, "scope:create"))
			r.Get("/", s.protected(s.listScopes, "scope:read"))
			r.Get("/{id}", s.protected(s.readScope, "scope:read"))
			r.Patch("/{id}", s.protected(s.updateScope, "scope:update"))
			r.Delete("/{id}", s.protected(s.deleteScope, "scope:delete"))
		})

		r.Patch("/{username}", s.protected(s.adminUpdateUser, "admin:update"))
		r.Delete("/{username}", s.protected(s.adminDeleteUser, "admin:delete"))
	})

	serv := &http.Server{ //nolint:exhaustruct
		Addr:         cfg.Addr,
		Handler:      r,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	s.serv = serv

	return &s
}

func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error)

	go func() {
		if err := s.serv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			close(errCh)
		}
	}()

	select {
	case <-ctx.Done():
		ctxS, cancel := context.WithTimeout(context.Background(), time.Second*5) //nolint:gomnd
		defer cancel()

		if err := s.Shutdown(ctxS); err != nil { //nolint:contextcheck
			return fmt.Errorf("context error: %w server error %w", ctxS.Err(), err)
		}

		if !errors.Is(ctx.Err(), context.Canceled) {
			return fmt.Errorf("context cancelled error: %w", ctx.Err())
		}

		return nil
	case err := <-errCh:
		return fmt.Errorf("listen and serve error: %w", err)
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	ctxS, cancel := context.WithTimeout(ctx, s.serv.IdleTimeout)
	defer cancel()

	if err := s.serv.Shutdown(ctxS); err != nil {
		return fmt.Errorf("shutdown server error: %w", err)
	}

	return nil
}

// protected wraps a handler with bearer token authorization for the given
// required scopes. The resolved user is handed to the wrapped handler.
func (s *Server) protected(next func(http.ResponseWriter, *http.Request, models.User), required ...string,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Add("Content-Type", "application/json")

		token, ok := bearerToken(r)
		if !ok {
			handleAuthError(w, errMissingToken, required)

			return
		}

		u, err := s.authService.Authorize(r.Context(), token, required)
		if err != nil {
			handleAuthError(w, err, required)

			return
		}

		next(w, r, u)
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}

	token := strings.TrimSpace(parts[1])

	return token, token != ""
}

// Регистрация пользователя
// (POST /auth/register).
func (s *Server) registerUser(w http.ResponseWriter, r *http.Request) {
	w.Header().Add("Content-Type", "application/json")

	var req directoryservice.RegisterUserRequest

	dec := json.NewDecoder(r.Body)

	if err := dec.Decode(&req); err != nil {
		handleError(w, fmt.Errorf("decode error: %w", err), http.StatusBadRequest)

		return
	}

	if req.Username == "" || req.Password == "" {
		handleError(w, errEmptyCredentials, http.StatusBadRequest)

		return
	}

	if _, err := s.directoryService.RegisterUser(r.Context(), req); err != nil {
		handleServiceError(w, fmt.Errorf("register user error: %w", err))

		return
	}

	w.WriteHeader(http.StatusCreated)
	w.Write(DetailResponse{Detail: "User created successfully"}.ToJSON()) //nolint:errcheck
}

// Аутентификация пользователя, стандартная форма password grant
// (POST /auth/login).
func (s *Server) loginUser(w http.ResponseWriter, r *http.Request) {
	w.Header().Add("Content-Type", "application/json")

	if err := r.ParseForm(); err != nil {
		handleError(w, fmt.Errorf("parse form error: %w", err), http.StatusBadRequest)

		return
	}

	username := r.PostFormValue("username")
	password := r.PostFormValue("password")
	scopes := strings.Fields(r.PostFormValue("scope"))

	if username == "" || password == "" {
		handleError(w, errEmptyCredentials, http.StatusBadRequest)

		return
	}

	token, err := s.authService.Login(r.Context(), username, password, scopes)
	if err != nil {
		handleServiceError(w, err)

		return
	}

	resp := TokenResponse{AccessToken: token, TokenType: "bearer"}

	enc := json.NewEncoder(w)

	if err := enc.Encode(resp); err != nil {
		handleError(w, fmt.Errorf("encode error: %w", err), http.StatusInternalServerError)

		return
	}
}
