package worker

import (
	"context"
	"database/sql"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/uptrace/bun"
	"golang.org/x/crypto/bcrypt"

	"laberion/backend/foundation/web"
	"laberion/backend/internal/auth"
	"laberion/backend/internal/entity"
	"laberion/backend/internal/pkg/repository/postgresql"
	"laberion/backend/internal/repository/postgres"
)

var (
	ErrInactive  = errors.New("worker is not active")
	ErrWrongPin  = errors.New("incorrect pin")
	ErrCodeTaken = errors.Wrap(postgres.ErrAlreadyExists, "employee_code is used")
)

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
		TableExpr("workers AS w").
		ColumnExpr("w.id, w.employee_code, w.full_name, w.department, w.position, w.status").
		ColumnExpr("w.face_ref IS NOT NULL AS has_face").
		Where("w.deleted_at IS NULL")

	if filter.Search != nil {
		search := "%" + strings.TrimSpace(*filter.Search) + "%"
		q.Where("(w.employee_code ILIKE ? OR w.full_name ILIKE ?)", search, search)
	}
	if filter.Department != nil {
		q.Where("w.department = ?", *filter.Department)
	}
	if filter.Status != nil {
		q.Where("w.status = ?", *filter.Status)
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
	count, err := q.OrderExpr("w.full_name ASC, w.id ASC").ScanAndCount(ctx, &list)
	if err != nil {
		return nil, 0, web.NewRequestError(errors.Wrap(err, "selecting workers"), http.StatusInternalServerError)
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
			w.id,
			w.employee_code,
			w.full_name,
			w.department,
			w.position,
			w.status,
			w.face_ref,
			w.photo,
			w.created_at
		FROM workers w
		WHERE w.deleted_at IS NULL AND w.id = ?
	`, id).Scan(
		&detail.ID,
		&detail.EmployeeCode,
		&detail.FullName,
		&detail.Department,
		&detail.Position,
		&detail.Status,
		&detail.FaceRef,
		&detail.Photo,
		&detail.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return GetDetailByIdResponse{}, web.NewRequestError(postgres.ErrNotFound, http.StatusNotFound)
	}
	if err != nil {
		return GetDetailByIdResponse{}, web.NewRequestError(errors.Wrap(err, "selecting worker detail"), http.StatusInternalServerError)
	}

	return detail, nil
}

// GetById loads a worker for internal use, e.g. the kiosk flow.
func (r Repository) GetById(ctx context.Context, id int) (entity.Worker, error) {
	var detail entity.Worker

	err := r.NewSelect().Model(&detail).Where("id = ? AND deleted_at IS NULL", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return entity.Worker{}, web.NewRequestError(errors.Wrap(postgres.ErrNotFound, "worker"), http.StatusNotFound)
	}
	if err != nil {
		return entity.Worker{}, web.NewRequestError(errors.Wrap(err, "selecting worker"), http.StatusInternalServerError)
	}

	return detail, nil
}

func (r Repository) GetByCode(ctx context.Context, code string) (entity.Worker, error) {
	var detail entity.Worker

	err := r.NewSelect().Model(&detail).Where("employee_code = ? AND deleted_at IS NULL", strings.TrimSpace(code)).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return entity.Worker{}, web.NewRequestError(errors.Wrap(postgres.ErrNotFound, "worker"), http.StatusNotFound)
	}
	if err != nil {
		return entity.Worker{}, web.NewRequestError(errors.Wrap(err, "selecting worker"), http.StatusInternalServerError)
	}

	return detail, nil
}

// ListActive returns the active workers ordered by name. A non empty ids
// narrows the result to those workers.
func (r Repository) ListActive(ctx context.Context, ids ...int) ([]entity.Worker, error) {
	var list []entity.Worker

	q := r.NewSelect().Model(&list).
		Where("deleted_at IS NULL AND status = ?", entity.WorkerActive).
		OrderExpr("full_name ASC, id ASC")
	if len(ids) > 0 {
		q.Where("id IN (?)", bun.In(ids))
	}

	if err := q.Scan(ctx); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, web.NewRequestError(errors.Wrap(err, "selecting active workers"), http.StatusInternalServerError)
	}

	return list, nil
}

func (r Repository) Create(ctx context.Context, request CreateRequest) (CreateResponse, error) {
	claims, err := r.CheckClaims(ctx, auth.RoleAdmin)
	if err != nil {
		return CreateResponse{}, err
	}

	if err := r.ValidateStruct(&request, "EmployeeCode", "FullName", "PinCode"); err != nil {
		return CreateResponse{}, err
	}

	response, err := r.insert(ctx, r.DB, request, &claims.UserId)
	if err != nil {
		return CreateResponse{}, err
	}

	return response, nil
}

func (r Repository) insert(ctx context.Context, db bun.IDB, request CreateRequest, createdBy *int) (CreateResponse, error) {
	code := strings.TrimSpace(*request.EmployeeCode)

	exists, err := db.NewSelect().Table("workers").Where("employee_code = ?", code).Exists(ctx)
	if err != nil {
		return CreateResponse{}, web.NewRequestError(errors.Wrap(err, "employee_code check"), http.StatusInternalServerError)
	}
	if exists {
		return CreateResponse{}, web.NewRequestError(ErrCodeTaken, http.StatusConflict)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(*request.PinCode), bcrypt.DefaultCost)
	if err != nil {
		return CreateResponse{}, web.NewRequestError(errors.Wrap(err, "hashing pin"), http.StatusInternalServerError)
	}
	hashedPin := string(hash)

	status := entity.WorkerActive
	if request.Status != nil {
		status = *request.Status
	}

	response := CreateResponse{
		EmployeeCode: &code,
		FullName:     request.FullName,
		Department:   request.Department,
		Position:     request.Position,
		Status:       &status,
		PinCode:      &hashedPin,
		CreatedAt:    time.Now(),
		CreatedBy:    createdBy,
	}

	_, err = db.NewInsert().Model(&response).Returning("id").Exec(ctx, &response.ID)
	if err != nil {
		return CreateResponse{}, web.NewRequestError(errors.Wrap(err, "creating worker"), http.StatusInternalServerError)
	}

	return response, nil
}

// CreateMany inserts imported rows in one transaction. Invalid rows and rows
// with a taken employee code are skipped and reported.
func (r Repository) CreateMany(ctx context.Context, rows []ImportRow) (ImportResult, error) {
	claims, err := r.CheckClaims(ctx, auth.RoleAdmin)
	if err != nil {
		return ImportResult{}, err
	}

	result := ImportResult{Skipped: []ImportError{}}

	err = r.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for _, row := range rows {
			request := row.Request

			if err := r.ValidateStruct(&request, "EmployeeCode", "FullName", "PinCode"); err != nil {
				result.Skipped = append(result.Skipped, ImportError{Row: row.Row, Reason: describe(err)})
				continue
			}

			if _, err := r.insert(ctx, tx, request, &claims.UserId); err != nil {
				if errors.Is(err, postgres.ErrAlreadyExists) {
					result.Skipped = append(result.Skipped, ImportError{Row: row.Row, Reason: err.Error()})
					continue
				}
				return err
			}

			result.Created++
		}

		return nil
	})
	if err != nil {
		return ImportResult{}, err
	}

	return result, nil
}

func describe(err error) string {
	var webErr *web.Error
	if errors.As(err, &webErr) && len(webErr.Fields) > 0 {
		parts := make([]string, 0, len(webErr.Fields))
		for _, f := range webErr.Fields {
			parts = append(parts, f.Field+": "+f.Error)
		}
		return strings.Join(parts, "; ")
	}
	return err.Error()
}

func (r Repository) UpdateColumns(ctx context.Context, request UpdateRequest) error {
	claims, err := r.CheckClaims(ctx, auth.RoleAdmin)
	if err != nil {
		return err
	}

	if err := r.ValidateStruct(&request, "ID"); err != nil {
		return err
	}

	q := r.NewUpdate().Table("workers").Where("deleted_at IS NULL AND id = ?", request.ID)

	if request.FullName != nil {
		q.Set("full_name = ?", request.FullName)
	}
	if request.Department != nil {
		q.Set("department = ?", request.Department)
	}
	if request.Position != nil {
		q.Set("position = ?", request.Position)
	}
	if request.Status != nil {
		q.Set("status = ?", request.Status)
	}
	if request.PinCode != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*request.PinCode), bcrypt.DefaultCost)
		if err != nil {
			return web.NewRequestError(errors.Wrap(err, "hashing pin"), http.StatusInternalServerError)
		}
		q.Set("pin_code = ?", string(hash))
	}

	q.Set("updated_at = ?", time.Now())
	q.Set("updated_by = ?", claims.UserId)

	res, err := q.Exec(ctx)
	if err != nil {
		return web.NewRequestError(errors.Wrap(err, "updating worker"), http.StatusInternalServerError)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return web.NewRequestError(postgres.ErrNotFound, http.StatusNotFound)
	}

	return nil
}

// SetFaceRef stores the reference returned by the recognition service, or
// clears it when ref is nil.
func (r Repository) SetFaceRef(ctx context.Context, id int, ref *string, photo *string) error {
	claims, err := r.CheckClaims(ctx, auth.RoleAdmin)
	if err != nil {
		return err
	}

	q := r.NewUpdate().Table("workers").
		Where("deleted_at IS NULL AND id = ?", id).
		Set("face_ref = ?", ref).
		Set("updated_at = ?", time.Now()).
		Set("updated_by = ?", claims.UserId)
	if photo != nil {
		q.Set("photo = ?", photo)
	}

	if _, err = q.Exec(ctx); err != nil {
		return web.NewRequestError(errors.Wrap(err, "updating face reference"), http.StatusInternalServerError)
	}

	return nil
}

// VerifyPin compares pin with the stored hash.
func (r Repository) VerifyPin(w entity.Worker, pin string) error {
	if w.PinCode == nil {
		return web.NewRequestError(ErrWrongPin, http.StatusUnauthorized)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*w.PinCode), []byte(pin)); err != nil {
		return web.NewRequestError(ErrWrongPin, http.StatusUnauthorized)
	}
	return nil
}

func (r Repository) Delete(ctx context.Context, id int) error {
	claims, err := r.CheckClaims(ctx, auth.RoleAdmin)
	if err != nil {
		return err
	}

	return r.DeleteRow(ctx, "workers", id, claims.UserId)
}
