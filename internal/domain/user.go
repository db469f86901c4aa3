package domain

import "time"

// Role is the three-level permission scope of a user.
type Role string

const (
	RoleResident   Role = "resident"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super_admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleResident, RoleAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

// AdminTier reports whether r is admin or super_admin.
func (r Role) AdminTier() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

// User is a platform account. The id equals the external auth identifier,
// so the record is created lazily after the first successful login.
// ConjuntoID is nil until the user joins a conjunto; Unit is free text
// (apartment number) and is cleared whenever the conjunto changes.
type User struct {
	ID          string    `json:"id"`
	AuthID      string    `json:"auth_id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	ConjuntoID  *string   `json:"conjunto_id"`
	Unit        *string   `json:"unit"`
	Role        Role      `json:"role"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// BelongsTo reports whether the user is a member of the given conjunto.
func (u *User) BelongsTo(conjuntoID string) bool {
	return u.ConjuntoID != nil && *u.ConjuntoID == conjuntoID
}
