package report

import (
	"time"

	"github.com/Azure/go-autorest/autorest/date"
	"github.com/shopspring/decimal"

	"laberion/backend/internal/entity"
	"laberion/backend/internal/ledger"
)

type Filter struct {
	Year     int
	Month    time.Month
	WorkerID *int
}

type DayResponse struct {
	Date         date.Date       `json:"date"`
	Status       string          `json:"status"`
	CheckIn      *time.Time      `json:"check_in"`
	CheckOut     *time.Time      `json:"check_out"`
	CheckInVia   *string         `json:"check_in_method,omitempty"`
	CheckOutVia  *string         `json:"check_out_method,omitempty"`
	Incomplete   bool            `json:"incomplete"`
	Anomaly      bool            `json:"anomaly"`
	Malformed    int             `json:"malformed,omitempty"`
	Hours        string          `json:"hours"`
	HoursDecimal decimal.Decimal `json:"hours_decimal"`
}

type MonthResponse struct {
	WorkerID       int             `json:"worker_id"`
	EmployeeCode   *string         `json:"employee_code"`
	FullName       *string         `json:"full_name"`
	Department     *string         `json:"department"`
	Position       *string         `json:"position"`
	Year           int             `json:"year"`
	Month          int             `json:"month"`
	PresentDays    int             `json:"present_days"`
	AbsentDays     int             `json:"absent_days"`
	OnLeaveDays    int             `json:"on_leave_days"`
	IncompleteDays int             `json:"incomplete_days"`
	AnomalyDays    int             `json:"anomaly_days"`
	TotalHours     string          `json:"total_hours"`
	TotalDecimal   decimal.Decimal `json:"total_hours_decimal"`
	Days           []DayResponse   `json:"days"`
}

type BoardRow struct {
	WorkerID     int        `json:"worker_id"`
	EmployeeCode *string    `json:"employee_code"`
	FullName     *string    `json:"full_name"`
	Department   *string    `json:"department"`
	CheckIn      *time.Time `json:"check_in,omitempty"`
	CheckOut     *time.Time `json:"check_out,omitempty"`
	ShiftStart   *string    `json:"shift_start,omitempty"`
	ShiftEnd     *string    `json:"shift_end,omitempty"`
}

// BoardResponse is the dashboard view of one day. OnSite lists workers
// checked in and not yet checked out.
type BoardResponse struct {
	Date    date.Date  `json:"date"`
	Present []BoardRow `json:"present"`
	OnSite  []BoardRow `json:"on_site"`
	Absent  []BoardRow `json:"absent"`
	OnLeave []BoardRow `json:"on_leave"`
	Late    []BoardRow `json:"late"`
}

// HoursDecimal rounds d to hundredths of an hour for display.
func HoursDecimal(d time.Duration) decimal.Decimal {
	return decimal.NewFromInt(int64(d)).Div(decimal.NewFromInt(int64(time.Hour))).Round(2)
}

func localTime(ev *ledger.Event, loc *time.Location) *time.Time {
	if ev == nil {
		return nil
	}
	t := ev.Timestamp.In(loc)
	return &t
}

func method(ev *ledger.Event) *string {
	if ev == nil {
		return nil
	}
	m := string(ev.Method)
	return &m
}

// NewDayResponse renders a derived day in loc.
func NewDayResponse(da ledger.DayAttendance, loc *time.Location) DayResponse {
	return DayResponse{
		Date:         da.Date,
		Status:       string(da.Status),
		CheckIn:      localTime(da.CheckIn, loc),
		CheckOut:     localTime(da.CheckOut, loc),
		CheckInVia:   method(da.CheckIn),
		CheckOutVia:  method(da.CheckOut),
		Incomplete:   da.Incomplete,
		Anomaly:      da.Anomaly,
		Malformed:    da.Malformed,
		Hours:        ledger.FormatHours(da.Worked),
		HoursDecimal: HoursDecimal(da.Worked),
	}
}

// NewMonthResponse renders a month report of w in loc.
func NewMonthResponse(w entity.Worker, r ledger.MonthReport, loc *time.Location) MonthResponse {
	days := make([]DayResponse, 0, len(r.Days))
	for _, da := range r.Days {
		days = append(days, NewDayResponse(da, loc))
	}

	return MonthResponse{
		WorkerID:       w.ID,
		EmployeeCode:   w.EmployeeCode,
		FullName:       w.FullName,
		Department:     w.Department,
		Position:       w.Position,
		Year:           r.Year,
		Month:          int(r.Month),
		PresentDays:    r.PresentDays,
		AbsentDays:     r.AbsentDays,
		OnLeaveDays:    r.OnLeaveDays,
		IncompleteDays: r.IncompleteDays,
		AnomalyDays:    r.AnomalyDays,
		TotalHours:     ledger.FormatHours(r.TotalHours),
		TotalDecimal:   HoursDecimal(r.TotalHours),
		Days:           days,
	}
}
