package entity

import (
	"time"

	"github.com/uptrace/bun"
)

// AttendanceEvent rows are only ever inserted.
type AttendanceEvent struct {
	bun.BaseModel `bun:"table:attendance_events"`

	ID         int       `json:"id"          bun:"id,pk,autoincrement"`
	EventUID   string    `json:"event_uid"   bun:"event_uid"`
	WorkerID   int       `json:"worker_id"   bun:"worker_id"`
	EventType  string    `json:"event_type"  bun:"event_type"`
	Timestamp  time.Time `json:"timestamp"   bun:"timestamp"`
	DeviceID   *string   `json:"device_id"   bun:"device_id"`
	Method     string    `json:"method"      bun:"method"`
	Confidence *float64  `json:"confidence"  bun:"confidence"`
	Note       *string   `json:"note"        bun:"note"`
	CreatedAt  time.Time `json:"-"           bun:"created_at"`
	CreatedBy  *int      `json:"-"           bun:"created_by"`
}
