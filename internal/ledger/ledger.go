// Package ledger turns raw attendance events into per-day attendance and
// monthly hour totals.
//
// Everything here is pure. Callers load a snapshot of events and approved
// leaves and hand it to an Engine; the Engine never touches storage.
package ledger

import (
	"fmt"
	"time"

	"github.com/Azure/go-autorest/autorest/date"
	"github.com/pkg/errors"
)

// ErrInvalidArgument is returned when a caller breaks the input contract,
// e.g. hands in an event for another worker or a date outside the month.
var ErrInvalidArgument = errors.New("invalid argument")

func invalidf(format string, args ...interface{}) error {
	return errors.Wrapf(ErrInvalidArgument, format, args...)
}

type EventType string

const (
	CheckIn  EventType = "check_in"
	CheckOut EventType = "check_out"
)

func (t EventType) Valid() bool {
	return t == CheckIn || t == CheckOut
}

type Method string

const (
	MethodFace   Method = "face"
	MethodPin    Method = "pin"
	MethodManual Method = "manual"
)

func (m Method) Valid() bool {
	return m == MethodFace || m == MethodPin || m == MethodManual
}

// Event is one recorded check in or check out. Events are never modified
// after they are stored.
type Event struct {
	ID         int
	WorkerID   int
	Type       EventType
	Timestamp  time.Time
	DeviceID   *string
	Method     Method
	Confidence *float64
}

// Trust is the confidence of the event. Pin and manual events without a
// score are fully trusted; a face event without a score is not.
func (e Event) Trust() float64 {
	if e.Confidence != nil {
		return *e.Confidence
	}
	if e.Method == MethodFace {
		return 0
	}
	return 1
}

type DayStatus string

const (
	StatusPresent DayStatus = "present"
	StatusAbsent  DayStatus = "absent"
	StatusOnLeave DayStatus = "on_leave"
)

// DayAttendance is the derived attendance of one worker on one date.
type DayAttendance struct {
	WorkerID int
	Date     date.Date
	CheckIn  *Event
	CheckOut *Event
	Status   DayStatus

	// Present is set when the day has a check in, with or without a check out.
	Present bool
	// Incomplete is set when only one side of the day exists.
	Incomplete bool
	// Anomaly is set when the check out is not after the check in.
	Anomaly bool
	// Malformed counts events of an unknown type that were skipped.
	Malformed int

	Worked time.Duration
}

type LeaveStatus string

const (
	LeavePending  LeaveStatus = "pending"
	LeaveApproved LeaveStatus = "approved"
	LeaveRejected LeaveStatus = "rejected"
)

func (s LeaveStatus) Valid() bool {
	return s == LeavePending || s == LeaveApproved || s == LeaveRejected
}

// Leave is an inclusive date range a worker is away for.
type Leave struct {
	ID        int
	WorkerID  int
	StartDate date.Date
	EndDate   date.Date
	Status    LeaveStatus
}

// Covers reports whether d falls inside the leave range.
func (l Leave) Covers(d date.Date) bool {
	k := dayKey(d)
	return k >= dayKey(l.StartDate) && k <= dayKey(l.EndDate)
}

// MonthReport holds one DayAttendance per calendar day and the totals over
// them. PresentDays + AbsentDays + OnLeaveDays always equals len(Days).
type MonthReport struct {
	WorkerID int
	Year     int
	Month    time.Month
	Days     []DayAttendance

	PresentDays    int
	AbsentDays     int
	OnLeaveDays    int
	IncompleteDays int
	AnomalyDays    int
	Malformed      int

	TotalHours time.Duration
}

// WorkerSnapshot is the input of one worker's month derivation.
type WorkerSnapshot struct {
	WorkerID int
	Events   []Event
	Leaves   []Leave
}

// Hours returns d in fractional hours.
func Hours(d time.Duration) float64 {
	return d.Hours()
}

// FormatHours renders d as HH:MM, truncating seconds.
func FormatHours(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	totalMinutes := int(d / time.Minute)
	return fmt.Sprintf("%02d:%02d", totalMinutes/60, totalMinutes%60)
}

func dayKey(d date.Date) int {
	y, m, day := d.Date()
	return y*10000 + int(m)*100 + day
}

// NewDate returns the calendar date y-m-d.
func NewDate(y int, m time.Month, d int) date.Date {
	return date.Date{Time: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// SameDate reports whether a and b name the same calendar day.
func SameDate(a, b date.Date) bool {
	return dayKey(a) == dayKey(b)
}
