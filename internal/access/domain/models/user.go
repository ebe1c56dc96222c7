package models

import (
	"time"
)

type User struct {
	ID           int       `json:"user_id"` //nolint:tagliatelle
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	FirstName    string    `json:"first_name"` //nolint:tagliatelle
	LastName     string    `json:"last_name"`  //nolint:tagliatelle
	Disabled     bool      `json:"disabled"`
	Roles        []Role    `json:"roles"`
	CreatedAt    time.Time `json:"created_at"` //nolint:tagliatelle
	UpdatedAt    time.Time `json:"updated_at"` //nolint:tagliatelle
}

// HasRole reports whether the user holds the named role.
func (u User) HasRole(name string) bool {
	for _, r := range u.Roles {
		if r.Name == name {
			return true
		}
	}

	return false
}
