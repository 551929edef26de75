package entity

import (
	"time"

	"github.com/uptrace/bun"
)

// Shift times are "15:04" clock values on ShiftDate.
type Shift struct {
	bun.BaseModel `bun:"table:shifts"`

	BasicEntity
	WorkerID  *int       `json:"worker_id"   bun:"worker_id"`
	ShiftDate *time.Time `json:"shift_date"  bun:"shift_date"`
	StartTime *string    `json:"start_time"  bun:"start_time"`
	EndTime   *string    `json:"end_time"    bun:"end_time"`
}
