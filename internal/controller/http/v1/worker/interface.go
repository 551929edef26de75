package worker

import (
	"context"

	"laberion/backend/internal/recognition"
	"laberion/backend/internal/repository/postgres/worker"
)

type Worker interface {
	GetList(ctx context.Context, filter worker.Filter) ([]worker.GetListResponse, int, error)
	GetDetailById(ctx context.Context, id int) (worker.GetDetailByIdResponse, error)
	Create(ctx context.Context, request worker.CreateRequest) (worker.CreateResponse, error)
	CreateMany(ctx context.Context, rows []worker.ImportRow) (worker.ImportResult, error)
	UpdateColumns(ctx context.Context, request worker.UpdateRequest) error
	SetFaceRef(ctx context.Context, id int, ref *string, photo *string) error
	Delete(ctx context.Context, id int) error
}

type Faces interface {
	Enroll(ctx context.Context, workerID int, image []byte, filename string) (recognition.Result, error)
	DeleteFaces(ctx context.Context, workerID int) error
}
