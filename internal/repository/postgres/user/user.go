package user

import (
	"context"
	"database/sql"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"

	"laberion/backend/foundation/web"
	"laberion/backend/internal/auth"
	"laberion/backend/internal/entity"
	"laberion/backend/internal/pkg/repository/postgresql"
	"laberion/backend/internal/repository/postgres"
)

type Repository struct {
	*postgresql.Database
}

func NewRepository(database *postgresql.Database) *Repository {
	return &Repository{Database: database}
}

func (r Repository) GetByLogin(ctx context.Context, login string) (entity.User, error) {
	var detail entity.User

	err := r.NewSelect().Model(&detail).Where("login = ? AND deleted_at IS NULL", login).Scan(ctx)
	if err != nil {
		return entity.User{}, &web.Error{
			Err:    errors.New("account not found"),
			Status: http.StatusUnauthorized,
		}
	}

	return detail, nil
}

func (r Repository) GetList(ctx context.Context, filter Filter) ([]GetListResponse, int, error) {
	if _, err := r.CheckClaims(ctx, auth.RoleAdmin); err != nil {
		return nil, 0, err
	}

	q := r.NewSelect().
		TableExpr("users AS u").
		ColumnExpr("u.id, u.login, u.full_name, u.role").
		Where("u.deleted_at IS NULL")

	if filter.Search != nil {
		search := "%" + strings.TrimSpace(*filter.Search) + "%"
		q.Where("(u.login ILIKE ? OR u.full_name ILIKE ?)", search, search)
	}
	if filter.Role != nil {
		q.Where("u.role = ?", strings.ToUpper(*filter.Role))
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
	count, err := q.OrderExpr("u.created_at DESC").ScanAndCount(ctx, &list)
	if err != nil {
		return nil, 0, web.NewRequestError(errors.Wrap(err, "selecting users"), http.StatusInternalServerError)
	}

	return list, count, nil
}

func (r Repository) GetDetailById(ctx context.Context, id int) (GetDetailByIdResponse, error) {
	if _, err := r.CheckClaims(ctx, auth.RoleAdmin); err != nil {
		return GetDetailByIdResponse{}, err
	}

	var detail GetDetailByIdResponse

	err := r.QueryRowContext(ctx, `
		SELECT
			u.id,
			u.login,
			u.full_name,
			u.role,
			u.created_at
		FROM users u
		WHERE u.deleted_at IS NULL AND u.id = ?
	`, id).Scan(
		&detail.ID,
		&detail.Login,
		&detail.FullName,
		&detail.Role,
		&detail.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return GetDetailByIdResponse{}, web.NewRequestError(postgres.ErrNotFound, http.StatusNotFound)
	}
	if err != nil {
		return GetDetailByIdResponse{}, web.NewRequestError(errors.Wrap(err, "selecting user detail"), http.StatusInternalServerError)
	}

	return detail, nil
}

func (r Repository) Create(ctx context.Context, request CreateRequest) (CreateResponse, error) {
	claims, err := r.CheckClaims(ctx, auth.RoleAdmin)
	if err != nil {
		return CreateResponse{}, err
	}

	return r.create(ctx, request, &claims.UserId)
}

// Bootstrap creates an account without an authenticated caller. It is used
// by the admin command line.
func (r Repository) Bootstrap(ctx context.Context, request CreateRequest) (CreateResponse, error) {
	return r.create(ctx, request, nil)
}

func (r Repository) create(ctx context.Context, request CreateRequest, createdBy *int) (CreateResponse, error) {
	if err := r.ValidateStruct(&request, "Login", "Password", "Role"); err != nil {
		return CreateResponse{}, err
	}

	role := strings.ToUpper(*request.Role)
	if !auth.ValidRole(role) {
		return CreateResponse{}, web.NewRequestError(errors.Errorf("incorrect role. role should be one of %s", strings.Join(auth.Roles, ", ")), http.StatusBadRequest)
	}

	exists, err := r.NewSelect().Table("users").Where("login = ? AND deleted_at IS NULL", *request.Login).Exists(ctx)
	if err != nil {
		return CreateResponse{}, web.NewRequestError(errors.Wrap(err, "login check"), http.StatusInternalServerError)
	}
	if exists {
		return CreateResponse{}, web.NewRequestError(errors.Wrap(postgres.ErrAlreadyExists, "login is used"), http.StatusConflict)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(*request.Password), bcrypt.DefaultCost)
	if err != nil {
		return CreateResponse{}, web.NewRequestError(errors.Wrap(err, "hashing password"), http.StatusInternalServerError)
	}
	hashedPassword := string(hash)

	response := CreateResponse{
		Login:     request.Login,
		Password:  &hashedPassword,
		Role:      &role,
		FullName:  request.FullName,
		CreatedAt: time.Now(),
		CreatedBy: createdBy,
	}

	_, err = r.NewInsert().Model(&response).Returning("id").Exec(ctx, &response.ID)
	if err != nil {
		return CreateResponse{}, web.NewRequestError(errors.Wrap(err, "creating user"), http.StatusInternalServerError)
	}

	response.Password = nil

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

	q := r.NewUpdate().Table("users").Where("deleted_at IS NULL AND id = ?", request.ID)

	if request.Role != nil {
		role := strings.ToUpper(*request.Role)
		if !auth.ValidRole(role) {
			return web.NewRequestError(errors.Errorf("incorrect role. role should be one of %s", strings.Join(auth.Roles, ", ")), http.StatusBadRequest)
		}
		q.Set("role = ?", role)
	}
	if request.FullName != nil {
		q.Set("full_name = ?", request.FullName)
	}
	if request.Password != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*request.Password), bcrypt.DefaultCost)
		if err != nil {
			return web.NewRequestError(errors.Wrap(err, "hashing password"), http.StatusInternalServerError)
		}
		q.Set("password = ?", string(hash))
	}

	q.Set("updated_at = ?", time.Now())
	q.Set("updated_by = ?", claims.UserId)

	res, err := q.Exec(ctx)
	if err != nil {
		return web.NewRequestError(errors.Wrap(err, "updating user"), http.StatusInternalServerError)
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

	if id == claims.UserId {
		return web.NewRequestError(errors.New("cannot delete the signed in account"), http.StatusBadRequest)
	}

	return r.DeleteRow(ctx, "users", id, claims.UserId)
}
