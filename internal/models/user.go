package models

import "time"

type Role string

const (
	RoleBuyer    Role = "buyer"
	RoleSupplier Role = "supplier"
	RoleAdmin    Role = "admin"
)

func ValidRole(r Role) bool {
	switch r {
	case RoleBuyer, RoleSupplier, RoleAdmin:
		return true
	default:
		return false
	}
}

// CanQuote reports whether users with the role may answer RFQs.
func (r Role) CanQuote() bool {
	return r == RoleSupplier || r == RoleAdmin
}

type User struct {
	Id        string    `json:"id"`
	Username  string    `json:"username"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"-"`
}
