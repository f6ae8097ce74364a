package db

import "chat-relay/pkg/chat"

// Roles
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// AdminUsername is the seeded account that can be neither deleted nor demoted
const AdminUsername = "admin"

// User represents an account in the credential store.
// Password holds either the plaintext secret or a bcrypt hash.
type User struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	Role      string `json:"role"`
	CreatedAt int64  `json:"createdAt"`
}

// IsAdmin reports whether the user holds the admin role
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Info returns the public view of the user
func (u *User) Info() chat.UserInfo {
	return chat.UserInfo{Username: u.Username, Role: u.Role, CreatedAt: u.CreatedAt}
}

// UserUpdate carries the optional fields of a user edit; nil means unchanged
type UserUpdate struct {
	Password *string
	Role     *string
}

// ValidRole reports whether role is one the system knows
func ValidRole(role string) bool {
	return role == RoleAdmin || role == RoleUser
}
