package domain

import "time"

// Roles form a closed set. Admins span the whole portal; unit admins and
// residents are bound to a single neighborhood unit.
const (
	RoleAdmin     = "admin"
	RoleUnitAdmin = "unit_admin"
	RoleResident  = "resident"
)

// ValidRole reports whether role is one of the closed set.
func ValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleUnitAdmin, RoleResident:
		return true
	}
	return false
}

// Account is a principal able to authenticate. Usernames are case-folded to
// lowercase at write time and unique across all accounts.
type Account struct {
	ID           string
	Username     string
	Name         string
	PasswordHash string // argon2id encoded, never exposed past the store
	Role         string
	UnitID       string // required for unit_admin and resident, empty for admin
	IsActive     bool
	LastLoginAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// AccountSummary is the client-safe projection of an Account. It never
// carries the password hash.
type AccountSummary struct {
	ID          string     `json:"id"`
	Username    string     `json:"username"`
	Name        string     `json:"name"`
	Role        string     `json:"role"`
	UnitID      string     `json:"unit_id,omitempty"`
	IsActive    bool       `json:"is_active"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Summary projects the account into its client-safe form.
func (a Account) Summary() AccountSummary {
	return AccountSummary{
		ID:          a.ID,
		Username:    a.Username,
		Name:        a.Name,
		Role:        a.Role,
		UnitID:      a.UnitID,
		IsActive:    a.IsActive,
		LastLoginAt: a.LastLoginAt,
		CreatedAt:   a.CreatedAt,
	}
}
