package server

import (
	"time"

	"github.com/accesscore/accessd/internal/access/domain/models"
)

type TokenResponse struct {
	AccessToken string `json:"access_token"` //nolint:tagliatelle
	TokenType   string `json:"token_type"`   //nolint:tagliatelle
}

type DetailResponse struct {
	Detail string `json:"detail"`
}

type UserResponse struct {
	ID        int       `json:"user_id"` //nolint:tagliatelle
	Username  string    `json:"username"`
	FirstName string    `json:"first_name"` //nolint:tagliatelle
	LastName  string    `json:"last_name"`  //nolint:tagliatelle
	Disabled  bool      `json:"disabled"`
	CreatedAt time.Time `json:"created_at"` //nolint:tagliatelle
	UpdatedAt time.Time `json:"updated_at"` //nolint:tagliatelle
}

type AdminUserResponse struct {
	UserResponse
	Roles []RoleResponse `json:"roles"`
}

type RoleResponse struct {
	ID          int             `json:"role_id"` //nolint:tagliatelle
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Scopes      []ScopeResponse `json:"scopes"`
}

type ScopeResponse struct {
	ID          int    `json:"scope_id"` //nolint:tagliatelle
	Name        string `json:"name"`
	Description string `json:"description"`
}

func toUserResponse(u models.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Disabled:  u.Disabled,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func toAdminUserResponse(u models.User) AdminUserResponse {
	roles := make([]RoleResponse, 0, len(u.Roles))
	for _, r := range u.Roles {
		roles = append(roles, toRoleResponse(r))
	}

	return AdminUserResponse{
		UserResponse: toUserResponse(u),
		Roles:        roles,
	}
}

func toRoleResponse(r models.Role) RoleResponse {
	scopes := make([]ScopeResponse, 0, len(r.Scopes))
	for _, s := range r.Scopes {
		scopes = append(scopes, toScopeResponse(s))
	}

	return RoleResponse{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Scopes:      scopes,
	}
}

func toScopeResponse(s models.Scope) ScopeResponse {
	return ScopeResponse{
		ID:          s.ID,
		Name:        s.Name,
		Description: s.Description,
	}
}
