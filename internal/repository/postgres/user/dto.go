package user

import (
	"time"

	"github.com/uptrace/bun"
)

type Filter struct {
	Limit  *int
	Offset *int
	Page   *int
	Search *string
	Role   *string
}

type SignInRequest struct {
	Login    string `json:"login" form:"login"`
	Password string `json:"password" form:"password"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" form:"refresh_token"`
}

type GetListResponse struct {
	ID       int     `json:"id"`
	Login    *string `json:"login"`
	FullName *string `json:"full_name"`
	Role     *string `json:"role"`
}

type GetDetailByIdResponse struct {
	ID        int        `json:"id"`
	Login     *string    `json:"login"`
	FullName  *string    `json:"full_name"`
	Role      *string    `json:"role"`
	CreatedAt *time.Time `json:"created_at"`
}

type CreateRequest struct {
	Login    *string `json:"login"      form:"login"     validate:"omitempty,min=3,max=64"`
	Password *string `json:"password"   form:"password"  validate:"omitempty,min=1,max=72"`
	Role     *string `json:"role"       form:"role"`
	FullName *string `json:"full_name"  form:"full_name"`
}

type CreateResponse struct {
	bun.BaseModel `bun:"table:users"`

	ID        int       `json:"id"         bun:"-"`
	Login     *string   `json:"login"      bun:"login"`
	Password  *string   `json:"-"          bun:"password"`
	Role      *string   `json:"role"       bun:"role"`
	FullName  *string   `json:"full_name"  bun:"full_name"`
	CreatedAt time.Time `json:"-"          bun:"created_at"`
	CreatedBy *int      `json:"-"          bun:"created_by"`
}

type UpdateRequest struct {
	ID       int     `json:"id"         form:"id"`
	Password *string `json:"password"   form:"password"  validate:"omitempty,min=1,max=72"`
	Role     *string `json:"role"       form:"role"`
	FullName *string `json:"full_name"  form:"full_name"`
}
