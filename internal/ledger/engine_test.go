package ledger

import (
	"math/rand"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const worker = 7

func at(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

func ev(id int, typ EventType, ts string) Event {
	return Event{ID: id, WorkerID: worker, Type: typ, Timestamp: at(ts), Method: MethodFace}
}

func TestDeriveDay(t *testing.T) {
	e := NewEngine(time.UTC)
	day := NewDate(2024, time.January, 1)

	t.Run("duplicate taps", func(t *testing.T) {
		events := []Event{
			ev(3, CheckOut, "2024-01-01T14:00:00Z"),
			ev(2, CheckIn, "2024-01-01T06:07:00Z"),
			ev(1, CheckIn, "2024-01-01T06:05:00Z"),
		}

		da, err := e.DeriveDay(worker, day, events)
		require.NoError(t, err)

		require.NotNil(t, da.CheckIn)
		require.NotNil(t, da.CheckOut)
		assert.Equal(t, at("2024-01-01T06:05:00Z"), da.CheckIn.Timestamp)
		assert.Equal(t, at("2024-01-01T14:00:00Z"), da.CheckOut.Timestamp)
		assert.True(t, da.Present)
		assert.False(t, da.Incomplete)
		assert.False(t, da.Anomaly)
		assert.Equal(t, 7*time.Hour+55*time.Minute, da.Worked)
		assert.InDelta(t, 7.92, Hours(da.Worked), 0.01)
		assert.Equal(t, StatusPresent, da.Status)
	})

	t.Run("check in only", func(t *testing.T) {
		da, err := e.DeriveDay(worker, day, []Event{ev(1, CheckIn, "2024-01-01T07:00:00Z")})
		require.NoError(t, err)

		assert.True(t, da.Present)
		assert.True(t, da.Incomplete)
		assert.Zero(t, da.Worked)
		assert.Nil(t, da.CheckOut)
	})

	t.Run("check out only", func(t *testing.T) {
		da, err := e.DeriveDay(worker, day, []Event{ev(1, CheckOut, "2024-01-01T02:00:00Z")})
		require.NoError(t, err)

		assert.False(t, da.Present)
		assert.True(t, da.Incomplete)
		assert.Zero(t, da.Worked)
		assert.Equal(t, StatusAbsent, da.Status)
	})

	t.Run("no events", func(t *testing.T) {
		da, err := e.DeriveDay(worker, day, nil)
		require.NoError(t, err)

		assert.False(t, da.Present)
		assert.False(t, da.Incomplete)
		assert.Equal(t, StatusAbsent, da.Status)
	})

	t.Run("check out before check in", func(t *testing.T) {
		events := []Event{
			ev(1, CheckIn, "2024-01-01T10:00:00Z"),
			ev(2, CheckOut, "2024-01-01T09:00:00Z"),
		}

		da, err := e.DeriveDay(worker, day, events)
		require.NoError(t, err)

		assert.True(t, da.Anomaly)
		assert.Zero(t, da.Worked)
	})

	t.Run("equal timestamps break on id", func(t *testing.T) {
		events := []Event{
			ev(9, CheckIn, "2024-01-01T08:00:00Z"),
			ev(4, CheckIn, "2024-01-01T08:00:00Z"),
			ev(5, CheckOut, "2024-01-01T16:00:00Z"),
			ev(8, CheckOut, "2024-01-01T16:00:00Z"),
		}

		da, err := e.DeriveDay(worker, day, events)
		require.NoError(t, err)

		assert.Equal(t, 4, da.CheckIn.ID)
		assert.Equal(t, 8, da.CheckOut.ID)
	})

	t.Run("unknown type is counted", func(t *testing.T) {
		events := []Event{
			ev(1, CheckIn, "2024-01-01T08:00:00Z"),
			ev(2, EventType("break"), "2024-01-01T12:00:00Z"),
		}

		da, err := e.DeriveDay(worker, day, events)
		require.NoError(t, err)

		assert.Equal(t, 1, da.Malformed)
		assert.True(t, da.Present)
	})

	t.Run("event of another worker", func(t *testing.T) {
		other := ev(1, CheckIn, "2024-01-01T08:00:00Z")
		other.WorkerID = worker + 1

		_, err := e.DeriveDay(worker, day, []Event{other})
		assert.True(t, errors.Is(err, ErrInvalidArgument))
	})

	t.Run("event on another date", func(t *testing.T) {
		_, err := e.DeriveDay(worker, day, []Event{ev(1, CheckIn, "2024-01-02T08:00:00Z")})
		assert.True(t, errors.Is(err, ErrInvalidArgument))
	})

	t.Run("input slice is not modified", func(t *testing.T) {
		events := []Event{
			ev(2, CheckIn, "2024-01-01T08:00:00Z"),
			ev(1, CheckIn, "2024-01-01T07:00:00Z"),
		}
		before := append([]Event(nil), events...)

		_, err := e.DeriveDay(worker, day, events)
		require.NoError(t, err)
		assert.Equal(t, before, events)
	})
}

func TestDeriveDayLocalTimezone(t *testing.T) {
	loc := time.FixedZone("CET", 3600)
	e := NewEngine(loc)

	// 23:30Z on the 1st is 00:30 local on the 2nd.
	in := ev(1, CheckIn, "2024-01-01T23:30:00Z")

	_, err := e.DeriveDay(worker, NewDate(2024, time.January, 1), []Event{in})
	assert.True(t, errors.Is(err, ErrInvalidArgument))

	da, err := e.DeriveDay(worker, NewDate(2024, time.January, 2), []Event{in})
	require.NoError(t, err)
	assert.True(t, da.Present)
}

func TestDeriveDayTieBreakProperty(t *testing.T) {
	e := NewEngine(time.UTC)
	day := NewDate(2024, time.March, 10)
	base := time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC)
	rnd := rand.New(rand.NewSource(42))

	for i := 0; i < 200; i++ {
		n := 2 + rnd.Intn(8)
		events := make([]Event, 0, n)

		var minIn, maxOut time.Time
		for j := 0; j < n; j++ {
			typ := CheckIn
			if rnd.Intn(2) == 0 {
				typ = CheckOut
			}
			ts := base.Add(time.Duration(rnd.Intn(24*60)) * time.Minute)
			events = append(events, Event{ID: j + 1, WorkerID: worker, Type: typ, Timestamp: ts, Method: MethodPin})

			if typ == CheckIn && (minIn.IsZero() || ts.Before(minIn)) {
				minIn = ts
			}
			if typ == CheckOut && ts.After(maxOut) {
				maxOut = ts
			}
		}

		da, err := e.DeriveDay(worker, day, events)
		require.NoError(t, err)

		if !minIn.IsZero() {
			require.NotNil(t, da.CheckIn)
			assert.Equal(t, minIn, da.CheckIn.Timestamp)
		}
		if !maxOut.IsZero() {
			require.NotNil(t, da.CheckOut)
			assert.Equal(t, maxOut, da.CheckOut.Timestamp)
		}
		assert.GreaterOrEqual(t, da.Worked, time.Duration(0))
	}
}

func TestComputeHours(t *testing.T) {
	in := ev(1, CheckIn, "2024-01-01T08:00:00Z")

	worked, anomaly := ComputeHours(in, ev(2, CheckOut, "2024-01-01T16:30:15Z"))
	assert.Equal(t, 8*time.Hour+30*time.Minute+15*time.Second, worked)
	assert.False(t, anomaly)

	worked, anomaly = ComputeHours(in, in)
	assert.Zero(t, worked)
	assert.True(t, anomaly)

	worked, anomaly = ComputeHours(in, ev(2, CheckOut, "2024-01-01T07:00:00Z"))
	assert.Zero(t, worked)
	assert.True(t, anomaly)
}

func TestDeriveMonth(t *testing.T) {
	e := NewEngine(time.UTC)

	events := []Event{
		ev(1, CheckIn, "2024-01-01T06:05:00Z"),
		ev(2, CheckIn, "2024-01-01T06:07:00Z"),
		ev(3, CheckOut, "2024-01-01T14:00:00Z"),
		ev(4, CheckIn, "2024-01-02T07:00:00Z"),
		ev(5, CheckIn, "2024-01-04T08:00:00Z"),
		ev(6, CheckOut, "2024-01-04T12:00:00Z"),
	}
	leaves := []Leave{
		{ID: 1, WorkerID: worker, StartDate: NewDate(2024, 1, 3), EndDate: NewDate(2024, 1, 5), Status: LeaveApproved},
		{ID: 2, WorkerID: worker, StartDate: NewDate(2024, 1, 10), EndDate: NewDate(2024, 1, 12), Status: LeavePending},
		{ID: 3, WorkerID: worker + 1, StartDate: NewDate(2024, 1, 20), EndDate: NewDate(2024, 1, 21), Status: LeaveApproved},
		{ID: 4, WorkerID: worker, StartDate: NewDate(2023, 12, 30), EndDate: NewDate(2024, 1, 1), Status: LeaveApproved},
	}

	report, err := e.DeriveMonth(worker, 2024, time.January, events, leaves)
	require.NoError(t, err)

	require.Len(t, report.Days, 31)
	assert.Equal(t, 31, report.PresentDays+report.AbsentDays+report.OnLeaveDays)

	// present on the 1st beats the leave ending that day
	assert.Equal(t, StatusPresent, report.Days[0].Status)
	assert.Equal(t, StatusPresent, report.Days[1].Status)
	assert.True(t, report.Days[1].Incomplete)
	assert.Equal(t, StatusOnLeave, report.Days[2].Status)
	assert.Equal(t, StatusPresent, report.Days[3].Status)
	assert.Equal(t, StatusOnLeave, report.Days[4].Status)
	assert.Equal(t, StatusAbsent, report.Days[9].Status)
	assert.Equal(t, StatusAbsent, report.Days[19].Status)

	assert.Equal(t, 3, report.PresentDays)
	assert.Equal(t, 2, report.OnLeaveDays)
	assert.Equal(t, 26, report.AbsentDays)
	assert.Equal(t, 1, report.IncompleteDays)
	assert.Equal(t, 7*time.Hour+55*time.Minute+4*time.Hour, report.TotalHours)

	for i, d := range report.Days {
		assert.Equal(t, i+1, d.Date.Day())
	}
}

func TestDeriveMonthLeaveOnly(t *testing.T) {
	e := NewEngine(time.UTC)
	leaves := []Leave{
		{WorkerID: worker, StartDate: NewDate(2024, 1, 3), EndDate: NewDate(2024, 1, 5), Status: LeaveApproved},
	}

	report, err := e.DeriveMonth(worker, 2024, time.January, []Event{ev(1, CheckIn, "2024-01-02T07:00:00Z")}, leaves)
	require.NoError(t, err)

	for _, d := range []int{3, 4, 5} {
		assert.Equal(t, StatusOnLeave, report.Days[d-1].Status, "day %d", d)
	}
	assert.Equal(t, 1, report.PresentDays)
	assert.Equal(t, 3, report.OnLeaveDays)
	assert.Equal(t, 27, report.AbsentDays)
	assert.Zero(t, report.TotalHours)
}

func TestDeriveMonthFebruary(t *testing.T) {
	e := NewEngine(time.UTC)

	report, err := e.DeriveMonth(worker, 2024, time.February, nil, nil)
	require.NoError(t, err)
	assert.Len(t, report.Days, 29)
	assert.Equal(t, 29, report.AbsentDays)

	report, err = e.DeriveMonth(worker, 2023, time.February, nil, nil)
	require.NoError(t, err)
	assert.Len(t, report.Days, 28)
}

func TestDeriveMonthInvalid(t *testing.T) {
	e := NewEngine(time.UTC)

	_, err := e.DeriveMonth(worker, 2024, time.January, []Event{ev(1, CheckIn, "2024-02-01T08:00:00Z")}, nil)
	assert.True(t, errors.Is(err, ErrInvalidArgument))

	_, err = e.DeriveMonth(worker, 2024, time.Month(13), nil, nil)
	assert.True(t, errors.Is(err, ErrInvalidArgument))

	_, err = e.DeriveMonth(0, 2024, time.January, nil, nil)
	assert.True(t, errors.Is(err, ErrInvalidArgument))
}

func TestDeriveMonthClassifiesEveryDayOnce(t *testing.T) {
	e := NewEngine(time.UTC)
	rnd := rand.New(rand.NewSource(7))

	for i := 0; i < 50; i++ {
		var events []Event
		for d := 1; d <= 30; d++ {
			if rnd.Intn(3) == 0 {
				continue
			}
			in := time.Date(2024, time.April, d, 6+rnd.Intn(4), rnd.Intn(60), 0, 0, time.UTC)
			events = append(events, Event{ID: len(events) + 1, WorkerID: worker, Type: CheckIn, Timestamp: in, Method: MethodPin})
			if rnd.Intn(2) == 0 {
				out := in.Add(time.Duration(rnd.Intn(10*60)) * time.Minute)
				if out.Day() == d {
					events = append(events, Event{ID: len(events) + 1, WorkerID: worker, Type: CheckOut, Timestamp: out, Method: MethodPin})
				}
			}
		}

		start := 1 + rnd.Intn(28)
		leaves := []Leave{{
			WorkerID:  worker,
			StartDate: NewDate(2024, time.April, start),
			EndDate:   NewDate(2024, time.April, start+rnd.Intn(3)),
			Status:    LeaveApproved,
		}}

		report, err := e.DeriveMonth(worker, 2024, time.April, events, leaves)
		require.NoError(t, err)
		assert.Len(t, report.Days, 30)
		assert.Equal(t, 30, report.PresentDays+report.AbsentDays+report.OnLeaveDays)
	}
}

func TestDeriveMonths(t *testing.T) {
	e := NewEngine(time.UTC)

	other := ev(10, CheckIn, "2024-01-15T09:00:00Z")
	other.WorkerID = 8

	snapshots := []WorkerSnapshot{
		{WorkerID: worker, Events: []Event{ev(1, CheckIn, "2024-01-01T08:00:00Z"), ev(2, CheckOut, "2024-01-01T12:00:00Z")}},
		{WorkerID: 8, Events: []Event{other}},
		{WorkerID: 9},
	}

	reports, err := e.DeriveMonths(2024, time.January, snapshots)
	require.NoError(t, err)
	require.Len(t, reports, 3)

	assert.Equal(t, worker, reports[0].WorkerID)
	assert.Equal(t, 4*time.Hour, reports[0].TotalHours)
	assert.Equal(t, 8, reports[1].WorkerID)
	assert.Equal(t, 1, reports[1].PresentDays)
	assert.Equal(t, 31, reports[2].AbsentDays)

	snapshots[2].Events = []Event{other}
	_, err = e.DeriveMonths(2024, time.January, snapshots)
	assert.True(t, errors.Is(err, ErrInvalidArgument))
}

func TestNextEventType(t *testing.T) {
	t.Run("no history", func(t *testing.T) {
		next, err := NextEventType(worker, nil)
		require.NoError(t, err)
		assert.Equal(t, CheckIn, next)
	})

	t.Run("after check out", func(t *testing.T) {
		last := ev(1, CheckOut, "2024-01-01T17:00:00Z")
		next, err := NextEventType(worker, &last)
		require.NoError(t, err)
		assert.Equal(t, CheckIn, next)
	})

	t.Run("across midnight", func(t *testing.T) {
		history := []Event{
			ev(1, CheckIn, "2024-01-01T08:00:00Z"),
			ev(2, CheckOut, "2024-01-01T16:00:00Z"),
			ev(3, CheckIn, "2024-01-01T23:50:00Z"),
		}

		// the kiosk asks at 00:10 on the 2nd, nothing recorded that day yet
		next, err := NextEventType(worker, Latest(history))
		require.NoError(t, err)
		assert.Equal(t, CheckOut, next)
	})

	t.Run("alternates", func(t *testing.T) {
		var history []Event
		ts := at("2024-01-01T20:00:00Z")

		for i := 1; i <= 6; i++ {
			next, err := NextEventType(worker, Latest(history))
			require.NoError(t, err)

			want := CheckIn
			if i%2 == 0 {
				want = CheckOut
			}
			assert.Equal(t, want, next)

			history = append(history, Event{ID: i, WorkerID: worker, Type: next, Timestamp: ts, Method: MethodFace})
			ts = ts.Add(3 * time.Hour)
		}
	})

	t.Run("invalid", func(t *testing.T) {
		_, err := NextEventType(0, nil)
		assert.True(t, errors.Is(err, ErrInvalidArgument))

		last := ev(1, CheckIn, "2024-01-01T08:00:00Z")
		last.WorkerID = worker + 1
		_, err = NextEventType(worker, &last)
		assert.True(t, errors.Is(err, ErrInvalidArgument))
	})
}

func TestTrust(t *testing.T) {
	score := 0.83

	assert.Equal(t, 1.0, Event{Method: MethodPin}.Trust())
	assert.Equal(t, 1.0, Event{Method: MethodManual}.Trust())
	assert.Equal(t, 0.0, Event{Method: MethodFace}.Trust())
	assert.Equal(t, 0.83, Event{Method: MethodFace, Confidence: &score}.Trust())
}

func TestFormatHours(t *testing.T) {
	assert.Equal(t, "07:55", FormatHours(7*time.Hour+55*time.Minute+30*time.Second))
	assert.Equal(t, "00:00", FormatHours(0))
	assert.Equal(t, "00:00", FormatHours(-time.Hour))
	assert.Equal(t, "163:20", FormatHours(163*time.Hour+20*time.Minute))
}

func TestBounds(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*3600)
	e := NewEngine(loc)

	from, to := e.MonthBounds(2024, time.December)
	assert.Equal(t, time.Date(2024, time.December, 1, 0, 0, 0, 0, loc), from)
	assert.Equal(t, time.Date(2025, time.January, 1, 0, 0, 0, 0, loc), to)

	from, to = e.DayBounds(NewDate(2024, time.February, 29))
	assert.Equal(t, time.Date(2024, time.February, 29, 0, 0, 0, 0, loc), from)
	assert.Equal(t, time.Date(2024, time.March, 1, 0, 0, 0, 0, loc), to)

	assert.True(t, SameDate(NewDate(2024, 3, 1), e.LocalDate(at("2024-02-29T22:30:00Z"))))
}
