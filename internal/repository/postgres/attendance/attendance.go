package attendance

import (
	"context"
	"crypto/rand"
	"database/sql"
	"net/http"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/pkg/errors"
	"github.com/uptrace/bun"

	"laberion/backend/foundation/web"
	"laberion/backend/internal/auth"
	"laberion/backend/internal/entity"
	"laberion/backend/internal/ledger"
	"laberion/backend/internal/pkg/repository/postgresql"
	"laberion/backend/internal/repository/postgres"
	"laberion/backend/internal/repository/postgres/worker"
)

// clockSkew is how far in the future a manual timestamp may lie.
const clockSkew = time.Minute

type Repository struct {
	*postgresql.Database
}

func NewRepository(database *postgresql.Database) *Repository {
	return &Repository{Database: database}
}

func (r Repository) GetList(ctx context.Context, filter Filter) ([]GetListResponse, int, error) {
	if _, err := r.CheckClaims(ctx, auth.RoleAdmin, auth.RoleDashboard); err != nil {
		return nil, 0, err
	}

	q := r.NewSelect().
		TableExpr("attendance_events AS a").
		Join("JOIN workers AS w ON w.id = a.worker_id").
		ColumnExpr("a.id, a.event_uid, a.worker_id, w.employee_code, w.full_name").
		ColumnExpr("a.event_type, a.timestamp, a.device_id, a.method, a.confidence, a.note")

	if filter.WorkerID != nil {
		q.Where("a.worker_id = ?", *filter.WorkerID)
	}
	if filter.From != nil {
		q.Where("a.timestamp >= ?", *filter.From)
	}
	if filter.To != nil {
		q.Where("a.timestamp < ?", *filter.To)
	}
	if filter.Method != nil {
		q.Where("a.method = ?", *filter.Method)
	}
	if filter.DeviceID != nil {
		q.Where("a.device_id = ?", *filter.DeviceID)
	}
	if filter.EventType != nil {
		q.Where("a.event_type = ?", *filter.EventType)
	}

	if filter.Page != nil && filter.Limit != nil {
		offset := (*filter.Page - 1) * (*filter.Limit)
		filter.Offset = &offset
	}
	if filter.Limit != nil {
		q.Limit(*filter.Limit)
	}
	if filter.Offset != nil {
		q.Offset(*filter.Offset)
	}

	var list []GetListResponse
	count, err := q.OrderExpr("a.timestamp DESC, a.id DESC").ScanAndCount(ctx, &list)
	if err != nil {
		return nil, 0, web.NewRequestError(errors.Wrap(err, "selecting attendance"), http.StatusInternalServerError)
	}

	return list, count, nil
}

func (r Repository) GetDetailById(ctx context.Context, id int) (GetDetailByIdResponse, error) {
	if _, err := r.CheckClaims(ctx, auth.RoleAdmin, auth.RoleDashboard); err != nil {
		return GetDetailByIdResponse{}, err
	}

	var detail GetDetailByIdResponse

	err := r.QueryRowContext(ctx, `
		SELECT
			a.id,
			a.event_uid,
			a.worker_id,
			w.employee_code,
			w.full_name,
			a.event_type,
			a.timestamp,
			a.device_id,
			a.method,
			a.confidence,
			a.note,
			a.created_at,
			a.created_by
		FROM attendance_events a
		JOIN workers w ON w.id = a.worker_id
		WHERE a.id = ?
	`, id).Scan(
		&detail.ID,
		&detail.EventUID,
		&detail.WorkerID,
		&detail.EmployeeCode,
		&detail.FullName,
		&detail.EventType,
		&detail.Timestamp,
		&detail.DeviceID,
		&detail.Method,
		&detail.Confidence,
		&detail.Note,
		&detail.CreatedAt,
		&detail.CreatedBy,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return GetDetailByIdResponse{}, web.NewRequestError(postgres.ErrNotFound, http.StatusNotFound)
	}
	if err != nil {
		return GetDetailByIdResponse{}, web.NewRequestError(errors.Wrap(err, "selecting attendance detail"), http.StatusInternalServerError)
	}

	return detail, nil
}

// ListRange returns the events in [from, to) grouped by worker. An empty
// workerIDs means every worker.
func (r Repository) ListRange(ctx context.Context, workerIDs []int, from, to time.Time) (map[int][]ledger.Event, error) {
	var rows []entity.AttendanceEvent

	q := r.NewSelect().Model(&rows).
		Where("timestamp >= ? AND timestamp < ?", from, to)
	if len(workerIDs) > 0 {
		q.Where("worker_id IN (?)", bun.In(workerIDs))
	}

	if err := q.Scan(ctx); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, web.NewRequestError(errors.Wrap(err, "selecting attendance range"), http.StatusInternalServerError)
	}

	grouped := make(map[int][]ledger.Event)
	for _, row := range rows {
		grouped[row.WorkerID] = append(grouped[row.WorkerID], ToEvent(row))
	}

	return grouped, nil
}

// ListByWorkerRange returns one worker's events in [from, to).
func (r Repository) ListByWorkerRange(ctx context.Context, workerID int, from, to time.Time) ([]ledger.Event, error) {
	grouped, err := r.ListRange(ctx, []int{workerID}, from, to)
	if err != nil {
		return nil, err
	}
	return grouped[workerID], nil
}

// Latest returns the worker's most recent event, or nil when there is none.
func (r Repository) Latest(ctx context.Context, workerID int) (*ledger.Event, error) {
	return latest(ctx, r.DB, workerID)
}

func latest(ctx context.Context, db bun.IDB, workerID int) (*ledger.Event, error) {
	var row entity.AttendanceEvent

	err := db.NewSelect().Model(&row).
		Where("worker_id = ?", workerID).
		OrderExpr("timestamp DESC, id DESC").
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, web.NewRequestError(errors.Wrap(err, "selecting latest event"), http.StatusInternalServerError)
	}

	ev := ToEvent(row)
	return &ev, nil
}

// Record appends one event. The worker row is locked for the duration of
// the transaction so concurrent submissions for the same worker see each
// other's events when resolving the direction.
func (r Repository) Record(ctx context.Context, request RecordRequest) (RecordResponse, error) {
	claims, err := r.CheckClaims(ctx, auth.RoleAdmin, auth.RoleKiosk)
	if err != nil {
		return RecordResponse{}, err
	}

	if err := r.ValidateStruct(&request, "WorkerID"); err != nil {
		return RecordResponse{}, err
	}

	now := time.Now()
	ts := now
	if request.Timestamp != nil {
		if !claims.Authorized(auth.RoleAdmin) || request.Method != string(ledger.MethodManual) {
			return RecordResponse{}, web.NewRequestError(errors.New("only manual events may carry a timestamp"), http.StatusForbidden)
		}
		if request.Timestamp.After(now.Add(clockSkew)) {
			return RecordResponse{}, web.NewRequestError(errors.New("timestamp is in the future"), http.StatusBadRequest)
		}
		ts = *request.Timestamp
	}

	if request.Method == string(ledger.MethodFace) && request.Confidence == nil {
		return RecordResponse{}, web.NewRequestError(errors.New("face events need a confidence"), http.StatusBadRequest)
	}

	response := RecordResponse{
		EventUID:   ulid.MustNew(ulid.Timestamp(ts), ulid.Monotonic(rand.Reader, 0)).String(),
		WorkerID:   request.WorkerID,
		Timestamp:  ts,
		DeviceID:   request.DeviceID,
		Method:     request.Method,
		Confidence: request.Confidence,
		Note:       request.Note,
		CreatedAt:  now,
		CreatedBy:  &claims.UserId,
	}

	err = r.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var status string

		err := tx.NewSelect().
			Table("workers").
			Column("status").
			Where("id = ? AND deleted_at IS NULL", request.WorkerID).
			For("UPDATE").
			Scan(ctx, &status)
		if errors.Is(err, sql.ErrNoRows) {
			return web.NewRequestError(errors.Wrap(postgres.ErrNotFound, "worker"), http.StatusNotFound)
		}
		if err != nil {
			return web.NewRequestError(errors.Wrap(err, "locking worker"), http.StatusInternalServerError)
		}
		if status != entity.WorkerActive {
			return web.NewRequestError(worker.ErrInactive, http.StatusForbidden)
		}

		if request.Action != nil {
			response.EventType = *request.Action
		} else {
			last, err := latest(ctx, tx, request.WorkerID)
			if err != nil {
				return err
			}

			next, err := ledger.NextEventType(request.WorkerID, last)
			if err != nil {
				return web.NewRequestError(err, http.StatusBadRequest)
			}
			response.EventType = string(next)
		}

		if _, err := tx.NewInsert().Model(&response).Returning("id").Exec(ctx, &response.ID); err != nil {
			return web.NewRequestError(errors.Wrap(err, "creating attendance event"), http.StatusInternalServerError)
		}

		return nil
	})
	if err != nil {
		return RecordResponse{}, err
	}

	return response, nil
}
