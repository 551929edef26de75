package department

import (
	"context"

	"laberion/backend/internal/repository/postgres/department"
)

type Department interface {
	GetList(ctx context.Context, filter department.Filter) ([]department.GetListResponse, int, error)
	Rename(ctx context.Context, request department.RenameRequest) (department.RenameResponse, error)
}
