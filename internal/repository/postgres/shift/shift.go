package shift

import (
	"context"
	"database/sql"
	"net/http"
	"strings"
	"time"

	"github.com/Azure/go-autorest/autorest/date"
	"github.com/pkg/errors"

	"laberion/backend/foundation/web"
	"laberion/backend/internal/auth"
	"laberion/backend/internal/ledger"
	"laberion/backend/internal/pkg/repository/postgresql"
	"laberion/backend/internal/repository/postgres"
)

var ErrShiftTaken = errors.Wrap(postgres.ErrAlreadyExists, "worker already has a shift on this day")

type Repository struct {
	*postgresql.Database
}

func NewRepository(database *postgresql.Database) *Repository {
	return &Repository{Database: database}
}

// ParseClock parses "15:04" or "15:04:05" into an offset from midnight.
func ParseClock(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)

	layout := "15:04"
	if strings.Count(s, ":") == 2 {
		layout = "15:04:05"
	}

	t, err := time.Parse(layout, s)
	if err != nil {
		return 0, errors.Errorf("invalid time %q, expected HH:MM", s)
	}

	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute + time.Duration(t.Second())*time.Second, nil
}

// ValidateTimes checks both clocks parse and the shift ends after it
// starts on the same day.
func ValidateTimes(start, end string) (time.Duration, error) {
	from, err := ParseClock(start)
	if err != nil {
		return 0, web.NewFieldsError(errors.New("validation failed"), http.StatusBadRequest, []web.FieldError{{Field: "start_time", Error: err.Error()}})
	}

	to, err := ParseClock(end)
	if err != nil {
		return 0, web.NewFieldsError(errors.New("validation failed"), http.StatusBadRequest, []web.FieldError{{Field: "end_time", Error: err.Error()}})
	}

	if to <= from {
		return 0, web.NewFieldsError(errors.New("validation failed"), http.StatusBadRequest, []web.FieldError{{Field: "end_time", Error: "must be after start_time"}})
	}

	return to - from, nil
}

func clock(s string) string {
	if len(s) >= 5 {
		return s[:5]
	}
	return s
}

const selectShift = `
	SELECT
		s.id,
		s.worker_id,
		w.employee_code,
		w.full_name,
		s.shift_date,
		s.start_time::text,
		s.end_time::text
	FROM shifts s
	JOIN workers w ON w.id = s.worker_id
`

func scanShift(scan func(dest ...interface{}) error) (GetListResponse, error) {
	var (
		detail GetListResponse
		day    time.Time
	)

	if err := scan(
		&detail.ID,
		&detail.WorkerID,
		&detail.EmployeeCode,
		&detail.FullName,
		&day,
		&detail.StartTime,
		&detail.EndTime,
	); err != nil {
		return GetListResponse{}, err
	}

	detail.ShiftDate = ledger.NewDate(day.Date())
	detail.StartTime = clock(detail.StartTime)
	detail.EndTime = clock(detail.EndTime)
	if d, err := ValidateTimes(detail.StartTime, detail.EndTime); err == nil {
		detail.Hours = ledger.FormatHours(d)
	}

	return detail, nil
}

func (r Repository) GetList(ctx context.Context, filter Filter) ([]GetListResponse, int, error) {
	if _, err := r.CheckClaims(ctx, auth.RoleAdmin, auth.RoleDashboard); err != nil {
		return nil, 0, err
	}

	where := " WHERE s.deleted_at IS NULL"
	var args []interface{}

	if filter.WorkerID != nil {
		where += " AND s.worker_id = ?"
		args = append(args, *filter.WorkerID)
	}
	if filter.From != nil {
		where += " AND s.shift_date >= ?"
		args = append(args, filter.From.String())
	}
	if filter.To != nil {
		where += " AND s.shift_date <= ?"
		args = append(args, filter.To.String())
	}

	var count int
	if err := r.QueryRowContext(ctx, "SELECT count(s.id) FROM shifts s"+where, args...).Scan(&count); err != nil {
		return nil, 0, web.NewRequestError(errors.Wrap(err, "counting shifts"), http.StatusInternalServerError)
	}

	query := selectShift + where + " ORDER BY s.shift_date ASC, s.start_time ASC, s.id ASC"

	if filter.Page != nil && filter.Limit != nil {
		offset := (*filter.Page - 1) * (*filter.Limit)
		filter.Offset = &offset
	}
	if filter.Limit != nil {
		query += " LIMIT ?"
		args = append(args, *filter.Limit)
	}
	if filter.Offset != nil {
		query += " OFFSET ?"
		args = append(args, *filter.Offset)
	}

	rows, err := r.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, web.NewRequestError(errors.Wrap(err, "selecting shifts"), http.StatusInternalServerError)
	}
	defer rows.Close()

	list := make([]GetListResponse, 0)
	for rows.Next() {
		detail, err := scanShift(rows.Scan)
		if err != nil {
			return nil, 0, web.NewRequestError(errors.Wrap(err, "scanning shift list"), http.StatusInternalServerError)
		}
		list = append(list, detail)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, web.NewRequestError(errors.Wrap(err, "reading shift list"), http.StatusInternalServerError)
	}

	return list, count, nil
}

// ListDay returns every shift scheduled on day.
func (r Repository) ListDay(ctx context.Context, day date.Date) ([]GetListResponse, error) {
	rows, err := r.QueryContext(ctx, selectShift+" WHERE s.deleted_at IS NULL AND s.shift_date = ? ORDER BY s.start_time ASC", day.String())
	if err != nil {
		return nil, web.NewRequestError(errors.Wrap(err, "selecting shifts of the day"), http.StatusInternalServerError)
	}
	defer rows.Close()

	list := make([]GetListResponse, 0)
	for rows.Next() {
		detail, err := scanShift(rows.Scan)
		if err != nil {
			return nil, web.NewRequestError(errors.Wrap(err, "scanning shift"), http.StatusInternalServerError)
		}
		list = append(list, detail)
	}

	return list, rows.Err()
}

func (r Repository) GetDetailById(ctx context.Context, id int) (GetListResponse, error) {
	if _, err := r.CheckClaims(ctx, auth.RoleAdmin, auth.RoleDashboard); err != nil {
		return GetListResponse{}, err
	}

	return r.detail(ctx, id)
}

func (r Repository) detail(ctx context.Context, id int) (GetListResponse, error) {
	detail, err := scanShift(r.QueryRowContext(ctx, selectShift+" WHERE s.deleted_at IS NULL AND s.id = ?", id).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return GetListResponse{}, web.NewRequestError(postgres.ErrNotFound, http.StatusNotFound)
	}
	if err != nil {
		return GetListResponse{}, web.NewRequestError(errors.Wrap(err, "selecting shift detail"), http.StatusInternalServerError)
	}

	return detail, nil
}

func (r Repository) taken(ctx context.Context, workerID int, day date.Date, exceptID int) error {
	exists, err := r.NewSelect().Table("shifts").
		Where("deleted_at IS NULL AND worker_id = ? AND shift_date = ? AND id <> ?", workerID, day.String(), exceptID).
		Exists(ctx)
	if err != nil {
		return web.NewRequestError(errors.Wrap(err, "shift check"), http.StatusInternalServerError)
	}
	if exists {
		return web.NewRequestError(ErrShiftTaken, http.StatusConflict)
	}
	return nil
}

func (r Repository) Create(ctx context.Context, request CreateRequest) (CreateResponse, error) {
	claims, err := r.CheckClaims(ctx, auth.RoleAdmin)
	if err != nil {
		return CreateResponse{}, err
	}

	if err := r.ValidateStruct(&request, "WorkerID", "ShiftDate", "StartTime", "EndTime"); err != nil {
		return CreateResponse{}, err
	}
	if _, err := ValidateTimes(*request.StartTime, *request.EndTime); err != nil {
		return CreateResponse{}, err
	}

	day := ledger.NewDate(request.ShiftDate.Date())

	exists, err := r.NewSelect().Table("workers").Where("id = ? AND deleted_at IS NULL", *request.WorkerID).Exists(ctx)
	if err != nil {
		return CreateResponse{}, web.NewRequestError(errors.Wrap(err, "worker check"), http.StatusInternalServerError)
	}
	if !exists {
		return CreateResponse{}, web.NewRequestError(errors.Wrap(postgres.ErrNotFound, "worker"), http.StatusNotFound)
	}

	if err := r.taken(ctx, *request.WorkerID, day, 0); err != nil {
		return CreateResponse{}, err
	}

	response := CreateResponse{
		WorkerID:  *request.WorkerID,
		Date:      day.Time,
		StartTime: strings.TrimSpace(*request.StartTime),
		EndTime:   strings.TrimSpace(*request.EndTime),
		CreatedAt: time.Now(),
		CreatedBy: &claims.UserId,
		ShiftDate: day,
	}

	_, err = r.NewInsert().Model(&response).Returning("id").Exec(ctx, &response.ID)
	if err != nil {
		return CreateResponse{}, web.NewRequestError(errors.Wrap(err, "creating shift"), http.StatusInternalServerError)
	}

	return response, nil
}

func (r Repository) UpdateColumns(ctx context.Context, request UpdateRequest) error {
	claims, err := r.CheckClaims(ctx, auth.RoleAdmin)
	if err != nil {
		return err
	}

	if err := r.ValidateStruct(&request, "ID"); err != nil {
		return err
	}

	current, err := r.detail(ctx, request.ID)
	if err != nil {
		return err
	}

	day := current.ShiftDate
	if request.ShiftDate != nil {
		day = ledger.NewDate(request.ShiftDate.Date())
	}
	start, end := current.StartTime, current.EndTime
	if request.StartTime != nil {
		start = strings.TrimSpace(*request.StartTime)
	}
	if request.EndTime != nil {
		end = strings.TrimSpace(*request.EndTime)
	}

	if _, err := ValidateTimes(start, end); err != nil {
		return err
	}
	if err := r.taken(ctx, current.WorkerID, day, request.ID); err != nil {
		return err
	}

	_, err = r.NewUpdate().Table("shifts").
		Where("deleted_at IS NULL AND id = ?", request.ID).
		Set("shift_date = ?", day.String()).
		Set("start_time = ?", start).
		Set("end_time = ?", end).
		Set("updated_at = ?", time.Now()).
		Set("updated_by = ?", claims.UserId).
		Exec(ctx)
	if err != nil {
		return web.NewRequestError(errors.Wrap(err, "updating shift"), http.StatusInternalServerError)
	}

	return nil
}

func (r Repository) Delete(ctx context.Context, id int) error {
	claims, err := r.CheckClaims(ctx, auth.RoleAdmin)
	if err != nil {
		return err
	}

	return r.DeleteRow(ctx, "shifts", id, claims.UserId)
}
