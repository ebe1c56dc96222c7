package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/accesscore/accessd/internal/access/domain/models"
	"github.com/accesscore/accessd/internal/access/services/directoryservice"
	"github.com/go-chi/chi/v5"
)

// Текущий пользователь
// (GET /users/me).
func (s *Server) readCurrentUser(w http.ResponseWriter, r *http.Request, u models.User) {
	writeJSON(w, http.StatusOK, toUserResponse(u))
}

// (PATCH /users/me).
func (s *Server) updateCurrentUser(w http.ResponseWriter, r *http.Request, u models.User) {
	var req directoryservice.UpdateUserRequest

	dec := json.NewDecoder(r.Body)

	if err := dec.Decode(&req); err != nil {
		handleError(w, fmt.Errorf("decode error: %w", err), http.StatusBadRequest)

		return
	}

	updated, err := s.directoryService.UpdateUser(r.Context(), u.Username, req)
	if err != nil {
		handleServiceError(w, fmt.Errorf("update user error: %w", err))

		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(updated))
}

// (GET /users).
func (s *Server) listUsers(w http.ResponseWriter, r *http.Request, _ models.User) {
	users, err := s.directoryService.ListUsers(r.Context())
	if err != nil {
		handleServiceError(w, fmt.Errorf("list users error: %w", err))

		return
	}

	resp := make([]UserResponse, 0, len(users))
	for _, u := range users {
		resp = append(resp, toUserResponse(u))
	}

	writeJSON(w, http.StatusOK, resp)
}

// (PATCH /users/{username}).
func (s *Server) adminUpdateUser(w http.ResponseWriter, r *http.Request, _ models.User) {
	username := chi.URLParam(r, "username")

	var req directoryservice.AdminUpdateUserRequest

	dec := json.NewDecoder(r.Body)

	if err := dec.Decode(&req); err != nil {
		handleError(w, fmt.Errorf("decode error: %w", err), http.StatusBadRequest)

		return
	}

	updated, err := s.directoryService.AdminUpdateUser(r.Context(), username, req)
	if err != nil {
		handleServiceError(w, fmt.Errorf("admin update user error: %w", err))

		return
	}

	writeJSON(w, http.StatusOK, toAdminUserResponse(updated))
}

// (DELETE /users/{username}).
func (s *Server) adminDeleteUser(w http.ResponseWriter, r *http.Request, _ models.User) {
	username := chi.URLParam(r, "username")

	if err := s.directoryService.DeleteUser(r.Context(), username); err != nil {
		handleServiceError(w, fmt.Errorf("delete user error: %w", err))

		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// (POST /users/roles).
func (s *Server) createRole(w http.ResponseWriter, r *http.Request, _ models.User) {
	var req directoryservice.CreateRoleRequest

	dec := json.NewDecoder(r.Body)

	if err := dec.Decode(&req); err != nil {
		handleError(w, fmt.Errorf("decode error: %w", err), http.StatusBadRequest)

		return
	}

	role, err := s.directoryService.CreateRole(r.Context(), req)
	if err != nil {
		handleServiceError(w, fmt.Errorf("create role error: %w", err))

		return
	}

	writeJSON(w, http.StatusCreated, toRoleResponse(role))
}

// (GET /users/roles).
func (s *Server) listRoles(w http.ResponseWriter, r *http.Request, _ models.User) {
	roles, err := s.directoryService.ListRoles(r.Context())
	if err != nil {
		handleServiceError(w, fmt.Errorf("list roles error: %w", err))

		return
	}

	resp := make([]RoleResponse, 0, len(roles))
	for _, role := range roles {
		resp = append(resp, toRoleResponse(role))
	}

	writeJSON(w, http.StatusOK, resp)
}

// (GET /users/roles/{id}).
func (s *Server) readRole(w http.ResponseWriter, r *http.Request, _ models.User) {
	id, err := pathID(r)
	if err != nil {
		handleError(w, err, http.StatusBadRequest)

		return
	}

	role, err := s.directoryService.GetRole(r.Context(), id)
	if err != nil {
		handleServiceError(w, fmt.Errorf("get role error: %w", err))

		return
	}

	writeJSON(w, http.StatusOK, toRoleResponse(role))
}

// (PATCH /users/roles/{id}).
func (s *Server) updateRole(w http.ResponseWriter, r *http.Request, _ models.User) {
	id, err := pathID(r)
	if err != nil {
		handleError(w, err, http.StatusBadRequest)

		return
	}

	var req directoryservice.UpdateRoleRequest

	dec := json.NewDecoder(r.Body)

	if err := dec.Decode(&req); err != nil {
		handleError(w, fmt.Errorf("decode error: %w", err), http.StatusBadRequest)

		return
	}

	role, err := s.directoryService.UpdateRole(r.Context(), id, req)
	if err != nil {
		handleServiceError(w, fmt.Errorf("update role error: %w", err))

		return
	}

	writeJSON(w, http.StatusOK, toRoleResponse(role))
}

// (DELETE /users/roles/{id}).
func (s *Server) deleteRole(w http.ResponseWriter, r *http.Request, _ models.User) {
	id, err := pathID(r)
	if err != nil {
		handleError(w, err, http.StatusBadRequest)

		return
	}

	if err := s.directoryService.DeleteRole(r.Context(), id); err != nil {
		handleServiceError(w, fmt.Errorf("delete role error: %w", err))

		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// (POST /users/scopes).
func (s *Server) createScope(w http.ResponseWriter, r *http.Request, _ models.User) {
	var req directoryservice.CreateScopeRequest

	dec := json.NewDecoder(r.Body)

	if err := dec.Decode(&req); err != nil {
		handleError(w, fmt.Errorf("decode error: %w", err), http.StatusBadRequest)

		return
	}

	scope, err := s.directoryService.CreateScope(r.Context(), req)
	if err != nil {
		handleServiceError(w, fmt.Errorf("create scope error: %w", err))

		return
	}

	writeJSON(w, http.StatusCreated, toScopeResponse(scope))
}

// (GET /users/scopes).
func (s *Server) listScopes(w http.ResponseWriter, r *http.Request, _ models.User) {
	scopes, err := s.directoryService.ListScopes(r.Context())
	if err != nil {
		handleServiceError(w, fmt.Errorf("list scopes error: %w", err))

		return
	}

	resp := make([]ScopeResponse, 0, len(scopes))
	for _, scope := range scopes {
		resp = append(resp, toScopeResponse(scope))
	}

	writeJSON(w, http.StatusOK, resp)
}

// (GET /users/scopes/{id}).
func (s *Server) readScope(w http.ResponseWriter, r *http.Request, _ models.User) {
	id, err := pathID(r)
	if err != nil {
		handleError(w, err, http.StatusBadRequest)

		return
	}

	scope, err := s.directoryService.GetScope(r.Context(), id)
	if err != nil {
		handleServiceError(w, fmt.Errorf("get scope error: %w", err))

		return
	}

	writeJSON(w, http.StatusOK, toScopeResponse(scope))
}

// (PATCH /users/scopes/{id}).
func (s *Server) updateScope(w http.ResponseWriter, r *http.Request, _ models.User) {
	id, err := pathID(r)
	if err != nil {
		handleError(w, err, http.StatusBadRequest)

		return
	}

	var req directoryservice.UpdateScopeRequest

	dec := json.NewDecoder(r.Body)

	if err := dec.Decode(&req); err != nil {
		handleError(w, fmt.Errorf("decode error: %w", err), http.StatusBadRequest)

		return
	}

	scope, err := s.directoryService.UpdateScope(r.Context(), id, req)
	if err != nil {
		handleServiceError(w, fmt.Errorf("update scope error: %w", err))

		return
	}

	writeJSON(w, http.StatusOK, toScopeResponse(scope))
}

// (DELETE /users/scopes/{id}).
func (s *Server) deleteScope(w http.ResponseWriter, r *http.Request, _ models.User) {
	id, err := pathID(r)
	if err != nil {
		handleError(w, err, http.StatusBadRequest)

		return
	}

	if err := s.directoryService.DeleteScope(r.Context(), id); err != nil {
		handleServiceError(w, fmt.Errorf("delete scope error: %w", err))

		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func pathID(r *http.Request) (int, error) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		return 0, fmt.Errorf("parse id error: %w", err)
	}

	return id, nil
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	bts, err := json.Marshal(v)
	if err != nil {
		handleError(w, fmt.Errorf("encode error: %w", err), http.StatusInternalServerError)

		return
	}

	w.WriteHeader(code)
	w.Write(bts) //nolint:errcheck
}
