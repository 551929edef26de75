package worker

import (
	"time"

	"github.com/uptrace/bun"
)

type Filter struct {
	Limit      *int
	Offset     *int
	Page       *int
	Search     *string
	Department *string
	Status     *string
}

type GetListResponse struct {
	ID           int     `json:"id"`
	EmployeeCode *string `json:"employee_code"`
	FullName     *string `json:"full_name"`
	Department   *string `json:"department"`
	Position     *string `json:"position"`
	Status       *string `json:"status"`
	HasFace      bool    `json:"has_face"`
}

type GetDetailByIdResponse struct {
	ID           int        `json:"id"`
	EmployeeCode *string    `json:"employee_code"`
	FullName     *string    `json:"full_name"`
	Department   *string    `json:"department"`
	Position     *string    `json:"position"`
	Status       *string    `json:"status"`
	FaceRef      *string    `json:"face_ref"`
	Photo        *string    `json:"photo"`
	CreatedAt    *time.Time `json:"created_at"`
}

type CreateRequest struct {
	EmployeeCode *string `json:"employee_code"  form:"employee_code"  validate:"omitempty,min=1,max=32"`
	FullName     *string `json:"full_name"      form:"full_name"      validate:"omitempty,max=128"`
	Department   *string `json:"department"     form:"department"`
	Position     *string `json:"position"       form:"position"`
	Status       *string `json:"status"         form:"status"         validate:"omitempty,oneof=active inactive suspended"`
	PinCode      *string `json:"pin_code"       form:"pin_code"       validate:"omitempty,len=4,numeric"`
}

type CreateResponse struct {
	bun.BaseModel `bun:"table:workers"`

	ID           int       `json:"id"             bun:"-"`
	EmployeeCode *string   `json:"employee_code"  bun:"employee_code"`
	FullName     *string   `json:"full_name"      bun:"full_name"`
	Department   *string   `json:"department"     bun:"department"`
	Position     *string   `json:"position"       bun:"position"`
	Status       *string   `json:"status"         bun:"status"`
	PinCode      *string   `json:"-"              bun:"pin_code"`
	CreatedAt    time.Time `json:"-"              bun:"created_at"`
	CreatedBy    *int      `json:"-"              bun:"created_by"`
}

// UpdateRequest has no employee code: the code is the worker's permanent
// business key.
type UpdateRequest struct {
	ID         int     `json:"id"          form:"id"`
	FullName   *string `json:"full_name"   form:"full_name"   validate:"omitempty,max=128"`
	Department *string `json:"department"  form:"department"`
	Position   *string `json:"position"    form:"position"`
	Status     *string `json:"status"      form:"status"      validate:"omitempty,oneof=active inactive suspended"`
	PinCode    *string `json:"pin_code"    form:"pin_code"    validate:"omitempty,len=4,numeric"`
}

type ImportResult struct {
	Created int           `json:"created"`
	Skipped []ImportError `json:"skipped"`
}

type ImportError struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

// ImportRow is one parsed spreadsheet row.
type ImportRow struct {
	Row     int
	Request CreateRequest
}
