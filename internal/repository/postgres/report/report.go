package report

import (
	"context"
	"net/http"
	"time"

	"github.com/Azure/go-autorest/autorest/date"
	"github.com/pkg/errors"

	"laberion/backend/foundation/web"
	"laberion/backend/internal/auth"
	"laberion/backend/internal/entity"
	"laberion/backend/internal/ledger"
	"laberion/backend/internal/pkg/repository/postgresql"
	"laberion/backend/internal/repository/postgres/attendance"
	"laberion/backend/internal/repository/postgres/leave"
	"laberion/backend/internal/repository/postgres/shift"
	"laberion/backend/internal/repository/postgres/worker"
)

// Repository reads one consistent snapshot of workers, events and approved
// leaves per request and hands it to the ledger engine.
type Repository struct {
	*postgresql.Database

	engine     *ledger.Engine
	workers    *worker.Repository
	attendance *attendance.Repository
	leaves     *leave.Repository
	shifts     *shift.Repository
}

func NewRepository(database *postgresql.Database, engine *ledger.Engine) *Repository {
	return &Repository{
		Database:   database,
		engine:     engine,
		workers:    worker.NewRepository(database),
		attendance: attendance.NewRepository(database),
		leaves:     leave.NewRepository(database),
		shifts:     shift.NewRepository(database),
	}
}

func (r Repository) Monthly(ctx context.Context, filter Filter) ([]MonthResponse, error) {
	if _, err := r.CheckClaims(ctx, auth.RoleAdmin, auth.RoleDashboard); err != nil {
		return nil, err
	}

	return r.Build(ctx, filter)
}

// Build derives the month for one worker, or for every active worker when
// filter.WorkerID is nil. It does not check the caller.
func (r Repository) Build(ctx context.Context, filter Filter) ([]MonthResponse, error) {
	if filter.Year < 1 || filter.Month < time.January || filter.Month > time.December {
		return nil, web.NewRequestError(errors.Errorf("invalid month %d-%02d", filter.Year, filter.Month), http.StatusBadRequest)
	}

	var workers []entity.Worker
	if filter.WorkerID != nil {
		w, err := r.workers.GetById(ctx, *filter.WorkerID)
		if err != nil {
			return nil, err
		}
		workers = []entity.Worker{w}
	} else {
		list, err := r.workers.ListActive(ctx)
		if err != nil {
			return nil, err
		}
		workers = list
	}
	if len(workers) == 0 {
		return []MonthResponse{}, nil
	}

	ids := make([]int, 0, len(workers))
	for _, w := range workers {
		ids = append(ids, w.ID)
	}

	from, to := r.engine.MonthBounds(filter.Year, filter.Month)

	events, err := r.attendance.ListRange(ctx, ids, from, to)
	if err != nil {
		return nil, err
	}

	first := ledger.NewDate(filter.Year, filter.Month, 1)
	last := ledger.NewDate(filter.Year, filter.Month, ledger.DaysIn(filter.Year, filter.Month))

	approved, err := r.leaves.ApprovedOverlapping(ctx, ids, first, last)
	if err != nil {
		return nil, err
	}

	leavesByWorker := make(map[int][]ledger.Leave, len(ids))
	for _, l := range approved {
		leavesByWorker[l.WorkerID] = append(leavesByWorker[l.WorkerID], l)
	}

	snapshots := make([]ledger.WorkerSnapshot, 0, len(workers))
	for _, w := range workers {
		snapshots = append(snapshots, ledger.WorkerSnapshot{
			WorkerID: w.ID,
			Events:   events[w.ID],
			Leaves:   leavesByWorker[w.ID],
		})
	}

	reports, err := r.engine.DeriveMonths(filter.Year, filter.Month, snapshots)
	if err != nil {
		return nil, web.NewRequestError(errors.Wrap(err, "deriving month"), http.StatusInternalServerError)
	}

	list := make([]MonthResponse, 0, len(reports))
	for i, rep := range reports {
		list = append(list, NewMonthResponse(workers[i], rep, r.engine.Location()))
	}

	return list, nil
}

// Day derives one worker's attendance on day.
func (r Repository) Day(ctx context.Context, workerID int, day date.Date) (DayResponse, error) {
	if _, err := r.CheckClaims(ctx, auth.RoleAdmin, auth.RoleDashboard); err != nil {
		return DayResponse{}, err
	}

	if _, err := r.workers.GetById(ctx, workerID); err != nil {
		return DayResponse{}, err
	}

	from, to := r.engine.DayBounds(day)

	events, err := r.attendance.ListByWorkerRange(ctx, workerID, from, to)
	if err != nil {
		return DayResponse{}, err
	}

	da, err := r.engine.DeriveDay(workerID, day, events)
	if err != nil {
		return DayResponse{}, web.NewRequestError(errors.Wrap(err, "deriving day"), http.StatusInternalServerError)
	}

	if !da.Present {
		approved, err := r.leaves.ApprovedOverlapping(ctx, []int{workerID}, day, day)
		if err != nil {
			return DayResponse{}, err
		}
		if len(approved) > 0 {
			da.Status = ledger.StatusOnLeave
		}
	}

	return NewDayResponse(da, r.engine.Location()), nil
}

// Board groups the active workers by their attendance on day.
func (r Repository) Board(ctx context.Context, day date.Date) (BoardResponse, error) {
	if _, err := r.CheckClaims(ctx, auth.RoleAdmin, auth.RoleDashboard); err != nil {
		return BoardResponse{}, err
	}

	workers, err := r.workers.ListActive(ctx)
	if err != nil {
		return BoardResponse{}, err
	}

	from, to := r.engine.DayBounds(day)

	events, err := r.attendance.ListRange(ctx, nil, from, to)
	if err != nil {
		return BoardResponse{}, err
	}

	approved, err := r.leaves.ApprovedOverlapping(ctx, nil, day, day)
	if err != nil {
		return BoardResponse{}, err
	}
	onLeave := make(map[int]bool, len(approved))
	for _, l := range approved {
		onLeave[l.WorkerID] = true
	}

	shifts, err := r.shifts.ListDay(ctx, day)
	if err != nil {
		return BoardResponse{}, err
	}
	shiftOf := make(map[int]shift.GetListResponse, len(shifts))
	for _, s := range shifts {
		shiftOf[s.WorkerID] = s
	}

	board := BoardResponse{
		Date:    day,
		Present: []BoardRow{},
		OnSite:  []BoardRow{},
		Absent:  []BoardRow{},
		OnLeave: []BoardRow{},
		Late:    []BoardRow{},
	}

	loc := r.engine.Location()

	for _, w := range workers {
		da, err := r.engine.DeriveDay(w.ID, day, events[w.ID])
		if err != nil {
			return BoardResponse{}, web.NewRequestError(errors.Wrap(err, "deriving day"), http.StatusInternalServerError)
		}

		row := BoardRow{
			WorkerID:     w.ID,
			EmployeeCode: w.EmployeeCode,
			FullName:     w.FullName,
			Department:   w.Department,
			CheckIn:      localTime(da.CheckIn, loc),
			CheckOut:     localTime(da.CheckOut, loc),
		}
		s, hasShift := shiftOf[w.ID]
		if hasShift {
			row.ShiftStart, row.ShiftEnd = &s.StartTime, &s.EndTime
		}

		switch {
		case da.Present:
			board.Present = append(board.Present, row)
			if da.CheckOut == nil {
				board.OnSite = append(board.OnSite, row)
			}
			if hasShift && late(*row.CheckIn, s.StartTime) {
				board.Late = append(board.Late, row)
			}
		case onLeave[w.ID]:
			board.OnLeave = append(board.OnLeave, row)
		default:
			board.Absent = append(board.Absent, row)
		}
	}

	return board, nil
}

// late reports whether checkIn, in its own location, is after the shift
// start clock.
func late(checkIn time.Time, start string) bool {
	offset, err := shift.ParseClock(start)
	if err != nil {
		return false
	}
	y, m, d := checkIn.Date()
	return checkIn.After(time.Date(y, m, d, 0, 0, 0, 0, checkIn.Location()).Add(offset))
}
