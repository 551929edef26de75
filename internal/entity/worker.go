package entity

import (
	"github.com/uptrace/bun"
)

const (
	WorkerActive    = "active"
	WorkerInactive  = "inactive"
	WorkerSuspended = "suspended"
)

type Worker struct {
	bun.BaseModel `bun:"table:workers"`

	BasicEntity
	EmployeeCode *string `json:"employee_code"  bun:"employee_code"`
	FullName     *string `json:"full_name"      bun:"full_name"`
	Department   *string `json:"department"     bun:"department"`
	Position     *string `json:"position"       bun:"position"`
	Status       *string `json:"status"         bun:"status"`
	PinCode      *string `json:"-"              bun:"pin_code"`
	FaceRef      *string `json:"face_ref"       bun:"face_ref"`
	Photo        *string `json:"photo"          bun:"photo"`
}
