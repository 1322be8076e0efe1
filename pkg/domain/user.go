package domain

import "time"

// Staff roles.
const (
	RoleAdmin  = "admin"
	RoleIssuer = "issuer"
)

// User is a staff account that can issue and scan tickets.
type User struct {
	ID        string     `json:"id"`
	Username  string     `json:"username"`
	Email     string     `json:"email"`
	Role      string     `json:"role"`
	CreatedAt time.Time  `json:"createdAt"`
	CreatedBy *UserRef   `json:"createdBy,omitempty"`
	LastLogin *time.Time `json:"lastLogin,omitempty"`
}

// UserRef is the short form of a user embedded in other records.
type UserRef struct {
	ID       string `json:"_id,omitempty"`
	Username string `json:"username"`
	Role     string `json:"role,omitempty"`
}

// IsAdmin reports whether u may manage users and read activity logs.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// ValidRole returns true for the roles the API accepts on registration.
func ValidRole(role string) bool {
	return role == RoleAdmin || role == RoleIssuer
}

// Credentials is the login payload.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResult is returned by a successful login.
type LoginResult struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// NewUser is the registration payload used by admins.
type NewUser struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}
