package directoryservice

type RegisterUserRequest struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"` //nolint:tagliatelle
	LastName  string `json:"last_name"`  //nolint:tagliatelle
}

type UpdateUserRequest struct {
	FirstName *string `json:"first_name"` //nolint:tagliatelle
	LastName  *string `json:"last_name"`  //nolint:tagliatelle
	Password  *string `json:"password"`
}

type AdminUpdateUserRequest struct {
	FirstName *string  `json:"first_name"` //nolint:tagliatelle
	LastName  *string  `json:"last_name"`  //nolint:tagliatelle
	Disabled  *bool    `json:"disabled"`
	Roles     []string `json:"roles"`
}

type CreateRoleRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Scopes      []string `json:"scopes"`
}

type UpdateRoleRequest struct {
	Name        *string  `json:"name"`
	Description *string  `json:"description"`
	Scopes      []string `json:"scopes"`
}

type CreateScopeRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type UpdateScopeRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}
