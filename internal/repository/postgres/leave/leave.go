package leave

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/Azure/go-autorest/autorest/date"
	"github.com/pkg/errors"
	"github.com/uptrace/bun"

	"laberion/backend/foundation/web"
	"laberion/backend/internal/auth"
	"laberion/backend/internal/ledger"
	"laberion/backend/internal/pkg/repository/postgresql"
	"laberion/backend/internal/repository/postgres"
)

type Repository struct {
	*postgresql.Database
}

func NewRepository(database *postgresql.Database) *Repository {
	return &Repository{Database: database}
}

const selectLeave = `
	SELECT
		l.id,
		l.worker_id,
		w.employee_code,
		w.full_name,
		l.start_date,
		l.end_date,
		l.reason,
		l.status
	FROM leaves l
	JOIN workers w ON w.id = l.worker_id
`

func scanLeave(scan func(dest ...interface{}) error) (GetListResponse, error) {
	var (
		detail     GetListResponse
		start, end time.Time
	)

	if err := scan(
		&detail.ID,
		&detail.WorkerID,
		&detail.EmployeeCode,
		&detail.FullName,
		&start,
		&end,
		&detail.Reason,
		&detail.Status,
	); err != nil {
		return GetListResponse{}, err
	}

	detail.StartDate = ledger.NewDate(start.Date())
	detail.EndDate = ledger.NewDate(end.Date())
	detail.Days = int(detail.EndDate.Sub(detail.StartDate.Time).Hours()/24) + 1

	return detail, nil
}

func (r Repository) GetList(ctx context.Context, filter Filter) ([]GetListResponse, int, error) {
	if _, err := r.CheckClaims(ctx, auth.RoleAdmin, auth.RoleDashboard); err != nil {
		return nil, 0, err
	}

	where := " WHERE l.deleted_at IS NULL"
	var args []interface{}

	if filter.WorkerID != nil {
		where += " AND l.worker_id = ?"
		args = append(args, *filter.WorkerID)
	}
	if filter.Status != nil {
		where += " AND l.status = ?"
		args = append(args, *filter.Status)
	}
	if filter.From != nil {
		where += " AND l.end_date >= ?"
		args = append(args, filter.From.String())
	}
	if filter.To != nil {
		where += " AND l.start_date <= ?"
		args = append(args, filter.To.String())
	}

	var count int
	if err := r.QueryRowContext(ctx, "SELECT count(l.id) FROM leaves l"+where, args...).Scan(&count); err != nil {
		return nil, 0, web.NewRequestError(errors.Wrap(err, "counting leaves"), http.StatusInternalServerError)
	}

	query := selectLeave + where + " ORDER BY l.start_date DESC, l.id DESC"

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
		return nil, 0, web.NewRequestError(errors.Wrap(err, "selecting leaves"), http.StatusInternalServerError)
	}
	defer rows.Close()

	list := make([]GetListResponse, 0)
	for rows.Next() {
		detail, err := scanLeave(rows.Scan)
		if err != nil {
			return nil, 0, web.NewRequestError(errors.Wrap(err, "scanning leave list"), http.StatusInternalServerError)
		}
		list = append(list, detail)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, web.NewRequestError(errors.Wrap(err, "reading leave list"), http.StatusInternalServerError)
	}

	return list, count, nil
}

func (r Repository) GetDetailById(ctx context.Context, id int) (GetListResponse, error) {
	if _, err := r.CheckClaims(ctx, auth.RoleAdmin, auth.RoleDashboard); err != nil {
		return GetListResponse{}, err
	}

	detail, err := scanLeave(r.QueryRowContext(ctx, selectLeave+" WHERE l.deleted_at IS NULL AND l.id = ?", id).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return GetListResponse{}, web.NewRequestError(postgres.ErrNotFound, http.StatusNotFound)
	}
	if err != nil {
		return GetListResponse{}, web.NewRequestError(errors.Wrap(err, "selecting leave detail"), http.StatusInternalServerError)
	}

	return detail, nil
}

func (r Repository) Create(ctx context.Context, request CreateRequest) (CreateResponse, error) {
	claims, err := r.CheckClaims(ctx, auth.RoleAdmin)
	if err != nil {
		return CreateResponse{}, err
	}

	if err := r.ValidateStruct(&request, "WorkerID", "StartDate", "EndDate"); err != nil {
		return CreateResponse{}, err
	}

	start := ledger.NewDate(request.StartDate.Date())
	end := ledger.NewDate(request.EndDate.Date())
	if end.Before(start.Time) {
		return CreateResponse{}, web.NewFieldsError(errors.New("validation failed"), http.StatusBadRequest, []web.FieldError{
			{Field: "end_date", Error: "must not be before start_date"},
		})
	}

	exists, err := r.NewSelect().Table("workers").Where("id = ? AND deleted_at IS NULL", *request.WorkerID).Exists(ctx)
	if err != nil {
		return CreateResponse{}, web.NewRequestError(errors.Wrap(err, "worker check"), http.StatusInternalServerError)
	}
	if !exists {
		return CreateResponse{}, web.NewRequestError(errors.Wrap(postgres.ErrNotFound, "worker"), http.StatusNotFound)
	}

	status := string(ledger.LeavePending)
	if request.Status != nil {
		status = *request.Status
	}

	response := CreateResponse{
		WorkerID:  *request.WorkerID,
		StartDate: start.Time,
		EndDate:   end.Time,
		Reason:    request.Reason,
		Status:    status,
		CreatedAt: time.Now(),
		CreatedBy: &claims.UserId,
		Start:     start,
		End:       end,
	}

	_, err = r.NewInsert().Model(&response).Returning("id").Exec(ctx, &response.ID)
	if err != nil {
		return CreateResponse{}, web.NewRequestError(errors.Wrap(err, "creating leave"), http.StatusInternalServerError)
	}

	return response, nil
}

func (r Repository) UpdateStatus(ctx context.Context, request UpdateStatusRequest) error {
	claims, err := r.CheckClaims(ctx, auth.RoleAdmin)
	if err != nil {
		return err
	}

	if err := r.ValidateStruct(&request, "ID", "Status"); err != nil {
		return err
	}

	res, err := r.NewUpdate().Table("leaves").
		Where("deleted_at IS NULL AND id = ?", request.ID).
		Set("status = ?", *request.Status).
		Set("updated_at = ?", time.Now()).
		Set("updated_by = ?", claims.UserId).
		Exec(ctx)
	if err != nil {
		return web.NewRequestError(errors.Wrap(err, "updating leave status"), http.StatusInternalServerError)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return web.NewRequestError(postgres.ErrNotFound, http.StatusNotFound)
	}

	return nil
}

func (r Repository) Delete(ctx context.Context, id int) error {
	claims, err := r.CheckClaims(ctx, auth.RoleAdmin)
	if err != nil {
		return err
	}

	return r.DeleteRow(ctx, "leaves", id, claims.UserId)
}

// ApprovedOverlapping returns the approved leaves touching [from, to]. An
// empty workerIDs means every worker.
func (r Repository) ApprovedOverlapping(ctx context.Context, workerIDs []int, from, to date.Date) ([]ledger.Leave, error) {
	var rows []struct {
		ID        int       `bun:"id"`
		WorkerID  int       `bun:"worker_id"`
		StartDate time.Time `bun:"start_date"`
		EndDate   time.Time `bun:"end_date"`
		Status    string    `bun:"status"`
	}

	q := r.NewSelect().
		Table("leaves").
		Column("id", "worker_id", "start_date", "end_date", "status").
		Where("deleted_at IS NULL AND status = ?", string(ledger.LeaveApproved)).
		Where("start_date <= ? AND end_date >= ?", to.String(), from.String())
	if len(workerIDs) > 0 {
		q.Where("worker_id IN (?)", bun.In(workerIDs))
	}

	if err := q.Scan(ctx, &rows); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, web.NewRequestError(errors.Wrap(err, "selecting approved leaves"), http.StatusInternalServerError)
	}

	leaves := make([]ledger.Leave, 0, len(rows))
	for _, row := range rows {
		leaves = append(leaves, ledger.Leave{
			ID:        row.ID,
			WorkerID:  row.WorkerID,
			StartDate: ledger.NewDate(row.StartDate.Date()),
			EndDate:   ledger.NewDate(row.EndDate.Date()),
			Status:    ledger.LeaveStatus(row.Status),
		})
	}

	return leaves, nil
}
