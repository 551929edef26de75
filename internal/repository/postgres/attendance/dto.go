package attendance

import (
	"time"

	"github.com/uptrace/bun"

	"laberion/backend/internal/entity"
	"laberion/backend/internal/ledger"
)

type Filter struct {
	Limit     *int
	Offset    *int
	Page      *int
	WorkerID  *int
	From      *time.Time
	To        *time.Time
	Method    *string
	DeviceID  *string
	EventType *string
}

type GetListResponse struct {
	ID           int       `json:"id"             bun:"id"`
	EventUID     string    `json:"event_uid"      bun:"event_uid"`
	WorkerID     int       `json:"worker_id"      bun:"worker_id"`
	EmployeeCode *string   `json:"employee_code"  bun:"employee_code"`
	FullName     *string   `json:"full_name"      bun:"full_name"`
	EventType    string    `json:"event_type"     bun:"event_type"`
	Timestamp    time.Time `json:"timestamp"      bun:"timestamp"`
	DeviceID     *string   `json:"device_id"      bun:"device_id"`
	Method       string    `json:"method"         bun:"method"`
	Confidence   *float64  `json:"confidence"     bun:"confidence"`
	Note         *string   `json:"note"           bun:"note"`
}

type GetDetailByIdResponse struct {
	GetListResponse
	CreatedAt time.Time `json:"created_at"`
	CreatedBy *int      `json:"created_by"`
}

// RecordRequest is one check in or check out to append. An empty Action is
// resolved from the worker's latest event.
type RecordRequest struct {
	WorkerID   int        `json:"worker_id"   form:"worker_id"`
	Action     *string    `json:"action"      form:"action"      validate:"omitempty,oneof=check_in check_out"`
	Method     string     `json:"method"      form:"method"      validate:"required,oneof=face pin manual"`
	DeviceID   *string    `json:"device_id"   form:"device_id"   validate:"omitempty,max=64"`
	Confidence *float64   `json:"confidence"  form:"confidence"  validate:"omitempty,gte=0,lte=1"`
	Note       *string    `json:"note"        form:"note"        validate:"omitempty,max=255"`
	Timestamp  *time.Time `json:"timestamp"   form:"timestamp"`
}

// ManualRequest is an event an admin enters by hand, e.g. for a worker who
// forgot to check out.
type ManualRequest struct {
	WorkerID  int        `json:"worker_id"  form:"worker_id"`
	Action    *string    `json:"action"     form:"action"     validate:"omitempty,oneof=check_in check_out"`
	Timestamp *time.Time `json:"timestamp"  form:"timestamp"`
	Note      *string    `json:"note"       form:"note"       validate:"omitempty,max=255"`
}

func (m ManualRequest) Record() RecordRequest {
	return RecordRequest{
		WorkerID:  m.WorkerID,
		Action:    m.Action,
		Method:    string(ledger.MethodManual),
		Note:      m.Note,
		Timestamp: m.Timestamp,
	}
}

type RecordResponse struct {
	bun.BaseModel `bun:"table:attendance_events"`

	ID         int       `json:"id"          bun:"-"`
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

// ToEvent converts a stored row into the ledger's event type.
func ToEvent(row entity.AttendanceEvent) ledger.Event {
	return ledger.Event{
		ID:         row.ID,
		WorkerID:   row.WorkerID,
		Type:       ledger.EventType(row.EventType),
		Timestamp:  row.Timestamp,
		DeviceID:   row.DeviceID,
		Method:     ledger.Method(row.Method),
		Confidence: row.Confidence,
	}
}

// PinRequest is a kiosk PIN submission. The worker is identified by id or
// by employee code.
type PinRequest struct {
	WorkerID     *int    `json:"worker_id"      form:"worker_id"`
	EmployeeCode *string `json:"employee_code"  form:"employee_code"  validate:"omitempty,max=32"`
	Pin          string  `json:"pin"            form:"pin"            validate:"omitempty,len=4,numeric"`
	DeviceID     *string `json:"device_id"      form:"device_id"      validate:"omitempty,max=64"`
	Action       *string `json:"action"         form:"action"         validate:"omitempty,oneof=check_in check_out"`
}

// KioskResponse is what a kiosk shows after a successful submission.
type KioskResponse struct {
	Event        RecordResponse `json:"event"`
	EmployeeCode *string        `json:"employee_code"`
	FullName     *string        `json:"full_name"`
}
