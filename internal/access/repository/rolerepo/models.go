package rolerepo

import "errors"

var (
	ErrRoleNotFound      = errors.New("role not found")
	ErrRoleAlreadyExists = errors.New("role already exists")

	ErrScopeNotFound      = errors.New("scope not found")
	ErrScopeAlreadyExists = errors.New("scope already exists")
)
