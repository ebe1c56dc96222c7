package models

type Role struct {
	ID          int     `json:"role_id"` //nolint:tagliatelle
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Scopes      []Scope `json:"scopes"`
}

type Scope struct {
	ID          int    `json:"scope_id"` //nolint:tagliatelle
	Name        string `json:"name"`
	Description string `json:"description"`
}
