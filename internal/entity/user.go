package entity

import (
	"github.com/uptrace/bun"
)

// User is an account that signs in to the API: an admin, a dashboard or a
// kiosk device.
type User struct {
	bun.BaseModel `bun:"table:users"`

	BasicEntity
	Login    *string `json:"login"      bun:"login"`
	FullName *string `json:"full_name"  bun:"full_name"`
	Password *string `json:"-"          bun:"password"`
	Role     *string `json:"role"       bun:"role"`
}
