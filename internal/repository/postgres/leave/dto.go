package leave

import (
	"time"

	"github.com/Azure/go-autorest/autorest/date"
	"github.com/uptrace/bun"
)

type Filter struct {
	Limit    *int
	Offset   *int
	Page     *int
	WorkerID *int
	Status   *string
	From     *date.Date
	To       *date.Date
}

type GetListResponse struct {
	ID           int       `json:"id"`
	WorkerID     int       `json:"worker_id"`
	EmployeeCode *string   `json:"employee_code"`
	FullName     *string   `json:"full_name"`
	StartDate    date.Date `json:"start_date"`
	EndDate      date.Date `json:"end_date"`
	Days         int       `json:"days"`
	Reason       *string   `json:"reason"`
	Status       string    `json:"status"`
}

type CreateRequest struct {
	WorkerID  *int       `json:"worker_id"   form:"worker_id"`
	StartDate *date.Date `json:"start_date"  form:"start_date"`
	EndDate   *date.Date `json:"end_date"    form:"end_date"`
	Reason    *string    `json:"reason"      form:"reason"   validate:"omitempty,max=255"`
	Status    *string    `json:"status"      form:"status"   validate:"omitempty,oneof=pending approved rejected"`
}

type CreateResponse struct {
	bun.BaseModel `bun:"table:leaves"`

	ID        int       `json:"id"          bun:"-"`
	WorkerID  int       `json:"worker_id"   bun:"worker_id"`
	StartDate time.Time `json:"-"           bun:"start_date"`
	EndDate   time.Time `json:"-"           bun:"end_date"`
	Reason    *string   `json:"reason"      bun:"reason"`
	Status    string    `json:"status"      bun:"status"`
	CreatedAt time.Time `json:"-"           bun:"created_at"`
	CreatedBy *int      `json:"-"           bun:"created_by"`

	Start date.Date `json:"start_date"  bun:"-"`
	End   date.Date `json:"end_date"    bun:"-"`
}

type UpdateStatusRequest struct {
	ID     int     `json:"id"      form:"id"`
	Status *string `json:"status"  form:"status"  validate:"omitempty,oneof=pending approved rejected"`
}
