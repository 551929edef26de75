package ledger

import (
	"runtime"
	"time"

	"github.com/Azure/go-autorest/autorest/date"
	"golang.org/x/sync/errgroup"
)

// Engine derives attendance in one fixed deployment timezone.
type Engine struct {
	loc *time.Location
}

// NewEngine returns an Engine for loc. A nil location means UTC.
func NewEngine(loc *time.Location) *Engine {
	if loc == nil {
		loc = time.UTC
	}
	return &Engine{loc: loc}
}

func (e *Engine) Location() *time.Location {
	return e.loc
}

// LocalDate is the calendar date of t in the engine's timezone.
func (e *Engine) LocalDate(t time.Time) date.Date {
	y, m, d := t.In(e.loc).Date()
	return NewDate(y, m, d)
}

// DayBounds returns the half open instant range [from, to) of d.
func (e *Engine) DayBounds(d date.Date) (time.Time, time.Time) {
	y, m, day := d.Date()
	from := time.Date(y, m, day, 0, 0, 0, 0, e.loc)
	return from, time.Date(y, m, day+1, 0, 0, 0, 0, e.loc)
}

// MonthBounds returns the half open instant range [from, to) of the month.
func (e *Engine) MonthBounds(year int, month time.Month) (time.Time, time.Time) {
	from := time.Date(year, month, 1, 0, 0, 0, 0, e.loc)
	return from, from.AddDate(0, 1, 0)
}

// DaysIn returns the number of calendar days of the month.
func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// ComputeHours returns the time worked between a check in and a check out.
// A check out that is not after the check in yields zero and anomaly.
func ComputeHours(checkIn, checkOut Event) (worked time.Duration, anomaly bool) {
	if !checkOut.Timestamp.After(checkIn.Timestamp) {
		return 0, true
	}
	return checkOut.Timestamp.Sub(checkIn.Timestamp), false
}

// DeriveDay picks the earliest check in and the latest check out of the
// given events, which must all belong to workerID and fall on day. Equal
// timestamps are broken by event ID: the lowest ID wins for check in and the
// highest for check out.
func (e *Engine) DeriveDay(workerID int, day date.Date, events []Event) (DayAttendance, error) {
	if workerID <= 0 {
		return DayAttendance{}, invalidf("worker id %d", workerID)
	}
	if day.IsZero() {
		return DayAttendance{}, invalidf("empty date")
	}

	for i := range events {
		if events[i].WorkerID != workerID {
			return DayAttendance{}, invalidf("event %d belongs to worker %d, not %d", events[i].ID, events[i].WorkerID, workerID)
		}
		if !SameDate(e.LocalDate(events[i].Timestamp), day) {
			return DayAttendance{}, invalidf("event %d is not on %s", events[i].ID, day)
		}
	}

	return e.deriveDay(workerID, day, events), nil
}

func (e *Engine) deriveDay(workerID int, day date.Date, events []Event) DayAttendance {
	da := DayAttendance{
		WorkerID: workerID,
		Date:     day,
	}

	for i := range events {
		ev := events[i]

		switch ev.Type {
		case CheckIn:
			if da.CheckIn == nil || earlier(ev, *da.CheckIn) {
				da.CheckIn = &ev
			}
		case CheckOut:
			if da.CheckOut == nil || earlier(*da.CheckOut, ev) {
				da.CheckOut = &ev
			}
		default:
			da.Malformed++
		}
	}

	da.Present = da.CheckIn != nil
	da.Incomplete = (da.CheckIn == nil) != (da.CheckOut == nil)

	if da.CheckIn != nil && da.CheckOut != nil {
		da.Worked, da.Anomaly = ComputeHours(*da.CheckIn, *da.CheckOut)
	}

	if da.Present {
		da.Status = StatusPresent
	} else {
		da.Status = StatusAbsent
	}

	return da
}

// earlier orders events by timestamp, then by ID.
func earlier(a, b Event) bool {
	if a.Timestamp.Equal(b.Timestamp) {
		return a.ID < b.ID
	}
	return a.Timestamp.Before(b.Timestamp)
}

// DeriveMonth derives every calendar day of the month for one worker. Days
// without a check in are on leave when an approved leave of the worker
// covers them, absent otherwise. The leave set is read once up front so the
// whole report sees the same leaves.
func (e *Engine) DeriveMonth(workerID int, year int, month time.Month, events []Event, leaves []Leave) (MonthReport, error) {
	if workerID <= 0 {
		return MonthReport{}, invalidf("worker id %d", workerID)
	}
	if year < 1 || month < time.January || month > time.December {
		return MonthReport{}, invalidf("month %d-%02d", year, month)
	}

	days := DaysIn(year, month)
	byDay := make([][]Event, days+1)

	for i := range events {
		ev := events[i]
		if ev.WorkerID != workerID {
			return MonthReport{}, invalidf("event %d belongs to worker %d, not %d", ev.ID, ev.WorkerID, workerID)
		}

		y, m, d := e.LocalDate(ev.Timestamp).Date()
		if y != year || m != month {
			return MonthReport{}, invalidf("event %d is outside %d-%02d", ev.ID, year, month)
		}
		byDay[d] = append(byDay[d], ev)
	}

	onLeave := make([]bool, days+1)
	for _, l := range leaves {
		if l.WorkerID != workerID || l.Status != LeaveApproved {
			continue
		}
		if dayKey(l.EndDate) < dayKey(l.StartDate) {
			continue
		}
		for d := 1; d <= days; d++ {
			if l.Covers(NewDate(year, month, d)) {
				onLeave[d] = true
			}
		}
	}

	report := MonthReport{
		WorkerID: workerID,
		Year:     year,
		Month:    month,
		Days:     make([]DayAttendance, 0, days),
	}

	for d := 1; d <= days; d++ {
		da := e.deriveDay(workerID, NewDate(year, month, d), byDay[d])

		switch {
		case da.Present:
			report.PresentDays++
		case onLeave[d]:
			da.Status = StatusOnLeave
			report.OnLeaveDays++
		default:
			report.AbsentDays++
		}

		if da.Incomplete {
			report.IncompleteDays++
		}
		if da.Anomaly {
			report.AnomalyDays++
		}
		report.Malformed += da.Malformed
		report.TotalHours += da.Worked

		report.Days = append(report.Days, da)
	}

	return report, nil
}

// DeriveMonths runs DeriveMonth for every snapshot in parallel. Reports come
// back in the order of the snapshots.
func (e *Engine) DeriveMonths(year int, month time.Month, snapshots []WorkerSnapshot) ([]MonthReport, error) {
	reports := make([]MonthReport, len(snapshots))

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))

	for i := range snapshots {
		i := i
		g.Go(func() error {
			s := snapshots[i]
			report, err := e.DeriveMonth(s.WorkerID, year, month, s.Events, s.Leaves)
			if err != nil {
				return err
			}
			reports[i] = report
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return reports, nil
}

// NextEventType decides the direction of a kiosk submission that did not
// name one. latest is the worker's most recent event overall, not just
// today's, so a shift crossing midnight still closes with a check out.
func NextEventType(workerID int, latest *Event) (EventType, error) {
	if workerID <= 0 {
		return "", invalidf("worker id %d", workerID)
	}
	if latest == nil {
		return CheckIn, nil
	}
	if latest.WorkerID != workerID {
		return "", invalidf("event %d belongs to worker %d, not %d", latest.ID, latest.WorkerID, workerID)
	}
	if latest.Type == CheckOut {
		return CheckIn, nil
	}
	return CheckOut, nil
}

// Latest returns the most recent of events, or nil when there are none.
func Latest(events []Event) *Event {
	var latest *Event
	for i := range events {
		if latest == nil || earlier(*latest, events[i]) {
			ev := events[i]
			latest = &ev
		}
	}
	return latest
}
