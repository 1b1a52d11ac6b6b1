// Inventra | 2026
// entity.go

package user

import (
	"time"
)

type User struct {
	ID                  string     `db:"id"`
	Email               string     `db:"email"`
	PasswordHash        string     `db:"password_hash"`
	Name                string     `db:"name"`
	Phone               string     `db:"phone"`
	Role                string     `db:"role"`
	Active              bool       `db:"active"`
	InSession           bool       `db:"in_session"`
	ResetTokenHash      *string    `db:"reset_token_hash"`
	ResetTokenExpiresAt *time.Time `db:"reset_token_expires_at"`
	CreatedAt           time.Time  `db:"created_at"`
	UpdatedAt           time.Time  `db:"updated_at"`
	DeletedAt           *time.Time `db:"deleted_at"`
}

func (u *User) IsDeleted() bool {
	return u.DeletedAt != nil
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// HasResetGrant reports whether an outstanding password-reset grant
// exists. Digest and expiry are always both set or both null.
func (u *User) HasResetGrant() bool {
	return u.ResetTokenHash != nil && u.ResetTokenExpiresAt != nil
}

func (u *User) ResetGrantExpired(now time.Time) bool {
	return u.ResetTokenExpiresAt != nil && now.After(*u.ResetTokenExpiresAt)
}

const (
	RoleAdmin  = "admin"
	RoleSeller = "seller"
)

func ValidRole(role string) bool {
	return role == RoleAdmin || role == RoleSeller
}
