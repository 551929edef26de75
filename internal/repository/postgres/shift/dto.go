package shift

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
	From     *date.Date
	To       *date.Date
}

type GetListResponse struct {
	ID           int       `json:"id"`
	WorkerID     int       `json:"worker_id"`
	EmployeeCode *string   `json:"employee_code"`
	FullName     *string   `json:"full_name"`
	ShiftDate    date.Date `json:"shift_date"`
	StartTime    string    `json:"start_time"`
	EndTime      string    `json:"end_time"`
	Hours        string    `json:"hours"`
}

type CreateRequest struct {
	WorkerID  *int       `json:"worker_id"   form:"worker_id"`
	ShiftDate *date.Date `json:"shift_date"  form:"shift_date"`
	StartTime *string    `json:"start_time"  form:"start_time"`
	EndTime   *string    `json:"end_time"    form:"end_time"`
}

type CreateResponse struct {
	bun.BaseModel `bun:"table:shifts"`

	ID        int       `json:"id"          bun:"-"`
	WorkerID  int       `json:"worker_id"   bun:"worker_id"`
	Date      time.Time `json:"-"           bun:"shift_date"`
	StartTime string    `json:"start_time"  bun:"start_time"`
	EndTime   string    `json:"end_time"    bun:"end_time"`
	CreatedAt time.Time `json:"-"           bun:"created_at"`
	CreatedBy *int      `json:"-"           bun:"created_by"`

	ShiftDate date.Date `json:"shift_date"  bun:"-"`
}

type UpdateRequest struct {
	ID        int        `json:"id"          form:"id"`
	ShiftDate *date.Date `json:"shift_date"  form:"shift_date"`
	StartTime *string    `json:"start_time"  form:"start_time"`
	EndTime   *string    `json:"end_time"    form:"end_time"`
}
