package directoryservice

import (
	"context"
	"errors"
	"fmt"

	"github.com/accesscore/accessd/internal/access/domain/models"
	"github.com/accesscore/accessd/internal/access/repository/rolerepo"
	"github.com/accesscore/accessd/internal/access/services/authservice"
	"github.com/accesscore/accessd/internal/pkg/config"
	"github.com/accesscore/accessd/pkg/logger"
)

type UserRepository interface {
	CreateUser(context.Context, models.User) (models.User, error)
	GetUser(context.Context, string) (models.User, error)
	ListUsers(context.Context) ([]models.User, error)
	UpdateUser(context.Context, models.User) error
	AddUserRoles(context.Context, int, []int) error
	DeleteUser(context.Context, string) error
}

type RoleRepository interface {
	CreateRole(context.Context, models.Role) (models.Role, error)
	GetRole(context.Context, int) (models.Role, error)
	GetRoleByName(context.Context, string) (models.Role, error)
	GetRolesByNames(context.Context, []string) ([]models.Role, error)
	ListRoles(context.Context) ([]models.Role, error)
	UpdateRole(context.Context, models.Role) error
	DeleteRole(context.Context, int) error
	AttachScopes(context.Context, int, []int) error

	CreateScope(context.Context, models.Scope) (models.Scope, error)
	GetScope(context.Context, int) (models.Scope, error)
	GetScopeByName(context.Context, string) (models.Scope, error)
	ListScopes(context.Context) ([]models.Scope, error)
	UpdateScope(context.Context, models.Scope) error
	DeleteScope(context.Context, int) error
}

// DirectoryService manages the user, role and scope records behind the
// authorization core, including the default role bootstrap.
type DirectoryService struct {
	userRepo UserRepository
	roleRepo RoleRepository
	defaults config.Defaults
	lg       logger.Logger
}

func New(userRepo UserRepository, roleRepo RoleRepository, defaults config.Defaults, lg logger.Logger) *DirectoryService {
	return &DirectoryService{
		userRepo: userRepo,
		roleRepo: roleRepo,
		defaults: defaults,
		lg:       lg,
	}
}

// RegisterUser creates an enabled user holding the default basic role.
func (ds *DirectoryService) RegisterUser(ctx context.Context, req RegisterUserRequest) (models.User, error) {
	hash, err := authservice.HashPassword(req.Password)
	if err != nil {
		return models.User{}, fmt.Errorf("hash password error: %w", err)
	}

	u := models.User{
		Username:     req.Username,
		PasswordHash: hash,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
	}

	u, err = ds.userRepo.CreateUser(ctx, u)
	if err != nil {
		return models.User{}, fmt.Errorf("create user error: %w", err)
	}

	basic, err := ds.roleRepo.GetRoleByName(ctx, ds.defaults.BasicRole.Name)
	if err != nil {
		// Registration still succeeds, the user just carries no role yet.
		ds.lg.Warnf("default role %q unavailable: %s", ds.defaults.BasicRole.Name, err.Error())

		return u, nil
	}

	if err := ds.userRepo.AddUserRoles(ctx, u.ID, []int{basic.ID}); err != nil {
		return models.User{}, fmt.Errorf("attach default role error: %w", err)
	}

	return ds.userRepo.GetUser(ctx, u.Username)
}

func (ds *DirectoryService) GetUser(ctx context.Context, username string) (models.User, error) {
	return ds.userRepo.GetUser(ctx, username)
}

func (ds *DirectoryService) ListUsers(ctx context.Context) ([]models.User, error) {
	return ds.userRepo.ListUsers(ctx)
}

// UpdateUser applies a self-service profile update.
func (ds *DirectoryService) UpdateUser(ctx context.Context, username string, req UpdateUserRequest) (models.User, error) {
	u, err := ds.userRepo.GetUser(ctx, username)
	if err != nil {
		return models.User{}, fmt.Errorf("get user error: %w", err)
	}

	if req.FirstName != nil {
		u.FirstName = *req.FirstName
	}

	if req.LastName != nil {
		u.LastName = *req.LastName
	}

	if req.Password != nil {
		hash, err := authservice.HashPassword(*req.Password)
		if err != nil {
			return models.User{}, fmt.Errorf("hash password error: %w", err)
		}

		u.PasswordHash = hash
	}

	if err := ds.userRepo.UpdateUser(ctx, u); err != nil {
		return models.User{}, fmt.Errorf("update user error: %w", err)
	}

	return ds.userRepo.GetUser(ctx, username)
}

// AdminUpdateUser toggles the disabled flag and attaches roles by name.
// Role attachment is additive, mirroring the bootstrap semantics.
func (ds *DirectoryService) AdminUpdateUser(ctx context.Context, username string, req AdminUpdateUserRequest) (models.User, error) {
	u, err := ds.userRepo.GetUser(ctx, username)
	if err != nil {
		return models.User{}, fmt.Errorf("get user error: %w", err)
	}

	if req.FirstName != nil {
		u.FirstName = *req.FirstName
	}

	if req.LastName != nil {
		u.LastName = *req.LastName
	}

	if req.Disabled != nil {
		u.Disabled = *req.Disabled
	}

	if err := ds.userRepo.UpdateUser(ctx, u); err != nil {
		return models.User{}, fmt.Errorf("update user error: %w", err)
	}

	if len(req.Roles) != 0 {
		roles, err := ds.roleRepo.GetRolesByNames(ctx, req.Roles)
		if err != nil {
			return models.User{}, fmt.Errorf("get roles error: %w", err)
		}

		roleIDs := make([]int, 0, len(roles))
		for _, r := range roles {
			roleIDs = append(roleIDs, r.ID)
		}

		if err := ds.userRepo.AddUserRoles(ctx, u.ID, roleIDs); err != nil {
			return models.User{}, fmt.Errorf("attach roles error: %w", err)
		}
	}

	return ds.userRepo.GetUser(ctx, username)
}

func (ds *DirectoryService) DeleteUser(ctx context.Context, username string) error {
	return ds.userRepo.DeleteUser(ctx, username)
}

func (ds *DirectoryService) CreateRole(ctx context.Context, req CreateRoleRequest) (models.Role, error) {
	role, err := ds.roleRepo.CreateRole(ctx, models.Role{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		return models.Role{}, fmt.Errorf("create role error: %w", err)
	}

	if err := ds.attachScopesByName(ctx, role.ID, req.Scopes); err != nil {
		return models.Role{}, err
	}

	return ds.roleRepo.GetRole(ctx, role.ID)
}

func (ds *DirectoryService) GetRole(ctx context.Context, id int) (models.Role, error) {
	return ds.roleRepo.GetRole(ctx, id)
}

func (ds *DirectoryService) ListRoles(ctx context.Context) ([]models.Role, error) {
	return ds.roleRepo.ListRoles(ctx)
}

func (ds *DirectoryService) UpdateRole(ctx context.Context, id int, req UpdateRoleRequest) (models.Role, error) {
	role, err := ds.roleRepo.GetRole(ctx, id)
	if err != nil {
		return models.Role{}, fmt.Errorf("get role error: %w", err)
	}

	if req.Name != nil {
		role.Name = *req.Name
	}

	if req.Description != nil {
		role.Description = *req.Description
	}

	if err := ds.roleRepo.UpdateRole(ctx, role); err != nil {
		return models.Role{}, fmt.Errorf("update role error: %w", err)
	}

	if err := ds.attachScopesByName(ctx, id, req.Scopes); err != nil {
		return models.Role{}, err
	}

	return ds.roleRepo.GetRole(ctx, id)
}

func (ds *DirectoryService) DeleteRole(ctx context.Context, id int) error {
	return ds.roleRepo.DeleteRole(ctx, id)
}

func (ds *DirectoryService) CreateScope(ctx context.Context, req CreateScopeRequest) (models.Scope, error) {
	return ds.roleRepo.CreateScope(ctx, models.Scope{
		Name:        req.Name,
		Description: req.Description,
	})
}

func (ds *DirectoryService) GetScope(ctx context.Context, id int) (models.Scope, error) {
	return ds.roleRepo.GetScope(ctx, id)
}

func (ds *DirectoryService) ListScopes(ctx context.Context) ([]models.Scope, error) {
	return ds.roleRepo.ListScopes(ctx)
}

func (ds *DirectoryService) UpdateScope(ctx context.Context, id int, req UpdateScopeRequest) (models.Scope, error) {
	scope, err := ds.roleRepo.GetScope(ctx, id)
	if err != nil {
		return models.Scope{}, fmt.Errorf("get scope error: %w", err)
	}

	if req.Name != nil {
		scope.Name = *req.Name
	}

	if req.Description != nil {
		scope.Description = *req.Description
	}

	if err := ds.roleRepo.UpdateScope(ctx, scope); err != nil {
		return models.Scope{}, fmt.Errorf("update scope error: %w", err)
	}

	return ds.roleRepo.GetScope(ctx, id)
}

func (ds *DirectoryService) DeleteScope(ctx context.Context, id int) error {
	return ds.roleRepo.DeleteScope(ctx, id)
}

// Bootstrap seeds both default roles. Safe to run on every start.
func (ds *DirectoryService) Bootstrap(ctx context.Context) error {
	if err := ds.EnsureDefaultRole(ctx, ds.defaults.BasicRole); err != nil {
		return fmt.Errorf("ensure role %q error: %w", ds.defaults.BasicRole.Name, err)
	}

	if err := ds.EnsureDefaultRole(ctx, ds.defaults.AdminRole); err != nil {
		return fmt.Errorf("ensure role %q error: %w", ds.defaults.AdminRole.Name, err)
	}

	return nil
}

// EnsureDefaultRole is idempotent: scopes and the role are created only on
// miss, and the role keeps every scope it already had.
func (ds *DirectoryService) EnsureDefaultRole(ctx context.Context, def config.DefaultRole) error {
	scopeIDs := make([]int, 0, len(def.Permissions))

	for _, perm := range def.Permissions {
		scope, err := ds.roleRepo.GetScopeByName(ctx, perm.Name)
		if errors.Is(err, rolerepo.ErrScopeNotFound) {
			scope, err = ds.roleRepo.CreateScope(ctx, models.Scope{
				Name:        perm.Name,
				Description: perm.Description,
			})
		}

		if err != nil {
			return fmt.Errorf("ensure scope %q error: %w", perm.Name, err)
		}

		scopeIDs = append(scopeIDs, scope.ID)
	}

	role, err := ds.roleRepo.GetRoleByName(ctx, def.Name)
	if errors.Is(err, rolerepo.ErrRoleNotFound) {
		role, err = ds.roleRepo.CreateRole(ctx, models.Role{
			Name:        def.Name,
			Description: def.Description,
		})
	}

	if err != nil {
		return fmt.Errorf("ensure role error: %w", err)
	}

	if err := ds.roleRepo.AttachScopes(ctx, role.ID, scopeIDs); err != nil {
		return fmt.Errorf("attach scopes error: %w", err)
	}

	return nil
}

// ScopeCatalog lists every known scope with its description. Best effort:
// an unavailable store yields an empty catalog instead of failing startup.
func (ds *DirectoryService) ScopeCatalog(ctx context.Context) map[string]string {
	scopes, err := ds.roleRepo.ListScopes(ctx)
	if err != nil {
		ds.lg.Warnf("list scopes error: %s", err.Error())

		return map[string]string{}
	}

	catalog := make(map[string]string, len(scopes))
	for _, s := range scopes {
		catalog[s.Name] = s.Description
	}

	return catalog
}

func (ds *DirectoryService) attachScopesByName(ctx context.Context, roleID int, names []string) error {
	if len(names) == 0 {
		return nil
	}

	scopeIDs := make([]int, 0, len(names))

	for _, name := range names {
		scope, err := ds.roleRepo.GetScopeByName(ctx, name)
		if err != nil {
			return fmt.Errorf("get scope %q error: %w", name, err)
		}

		scopeIDs = append(scopeIDs, scope.ID)
	}

	if err := ds.roleRepo.AttachScopes(ctx, roleID, scopeIDs); err != nil {
		return fmt.Errorf("attach scopes error: %w", err)
	}

	return nil
}
