// Package department lists and renames the departments named on worker
// records. There is no separate department table.
package department

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"

	"laberion/backend/foundation/web"
	"laberion/backend/internal/auth"
	"laberion/backend/internal/pkg/repository/postgresql"
	"laberion/backend/internal/repository/postgres"
)

type Repository struct {
	*postgresql.Database
}

func NewRepository(database *postgresql.Database) *Repository {
	return &Repository{Database: database}
}

func (r Repository) GetList(ctx context.Context, filter Filter) ([]GetListResponse, int, error) {
	_, err := r.CheckClaims(ctx, auth.RoleAdmin, auth.RoleDashboard)
	if err != nil {
		return nil, 0, err
	}

	q := r.NewSelect().
		TableExpr("workers AS w").
		ColumnExpr("w.department AS name").
		ColumnExpr("count(*) AS workers").
		ColumnExpr("count(*) FILTER (WHERE w.status = 'active') AS active").
		ColumnExpr("count(*) FILTER (WHERE w.face_ref IS NOT NULL) AS enrolled").
		Where("w.deleted_at IS NULL AND w.department IS NOT NULL AND w.department <> ''").
		GroupExpr("w.department")

	if filter.Search != nil {
		q = q.Where("w.department ILIKE ?", "%"+strings.TrimSpace(*filter.Search)+"%")
	}

	count, err := r.NewSelect().TableExpr("(?) AS d", q).Count(ctx)
	if err != nil {
		return nil, 0, web.NewRequestError(errors.Wrap(err, "counting departments"), http.StatusInternalServerError)
	}

	if filter.Page != nil && filter.Limit != nil {
		offset := (*filter.Page - 1) * (*filter.Limit)
		filter.Offset = &offset
	}
	if filter.Limit != nil {
		q = q.Limit(*filter.Limit)
	}
	if filter.Offset != nil {
		q = q.Offset(*filter.Offset)
	}

	list := make([]GetListResponse, 0)
	if err := q.OrderExpr("w.department").Scan(ctx, &list); err != nil {
		return nil, 0, web.NewRequestError(errors.Wrap(err, "selecting departments"), http.StatusInternalServerError)
	}

	return list, count, nil
}

// Rename moves every worker of one department to another name. Renaming
// onto an existing department merges the two.
func (r Repository) Rename(ctx context.Context, request RenameRequest) (RenameResponse, error) {
	claims, err := r.CheckClaims(ctx, auth.RoleAdmin)
	if err != nil {
		return RenameResponse{}, err
	}

	if err := r.ValidateStruct(&request, "From", "To"); err != nil {
		return RenameResponse{}, err
	}

	from, to := strings.TrimSpace(*request.From), strings.TrimSpace(*request.To)
	if from == "" || to == "" {
		return RenameResponse{}, web.NewRequestError(errors.New("department names must not be blank"), http.StatusBadRequest)
	}

	res, err := r.NewUpdate().
		Table("workers").
		Set("department = ?", to).
		Set("updated_at = ?", time.Now()).
		Set("updated_by = ?", claims.UserId).
		Where("department = ? AND deleted_at IS NULL", from).
		Exec(ctx)
	if err != nil {
		return RenameResponse{}, web.NewRequestError(errors.Wrap(err, "renaming department"), http.StatusInternalServerError)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return RenameResponse{}, web.NewRequestError(errors.Wrap(err, "renaming department"), http.StatusInternalServerError)
	}
	if n == 0 {
		return RenameResponse{}, web.NewRequestError(postgres.ErrNotFound, http.StatusNotFound)
	}

	return RenameResponse{Name: to, Workers: int(n)}, nil
}
