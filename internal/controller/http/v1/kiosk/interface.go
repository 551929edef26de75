package kiosk

import (
	"context"
	"time"

	"laberion/backend/internal/entity"
	"laberion/backend/internal/recognition"
	"laberion/backend/internal/repository/postgres/attendance"
)

type Worker interface {
	GetById(ctx context.Context, id int) (entity.Worker, error)
	GetByCode(ctx context.Context, code string) (entity.Worker, error)
	VerifyPin(w entity.Worker, pin string) error
}

type Attendance interface {
	Record(ctx context.Context, request attendance.RecordRequest) (attendance.RecordResponse, error)
}

type Recognizer interface {
	Recognize(ctx context.Context, image []byte, filename string) (recognition.Result, error)
}

type TapGuard interface {
	Allow(ctx context.Context, workerID int) bool
	Release(ctx context.Context, workerID int)
	Retry(ctx context.Context, workerID int) time.Duration
}
