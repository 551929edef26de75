package attendance

import (
	"context"

	"github.com/Azure/go-autorest/autorest/date"

	"laberion/backend/internal/repository/postgres/attendance"
	"laberion/backend/internal/repository/postgres/report"
)

type Attendance interface {
	GetList(ctx context.Context, filter attendance.Filter) ([]attendance.GetListResponse, int, error)
	GetDetailById(ctx context.Context, id int) (attendance.GetDetailByIdResponse, error)
	Record(ctx context.Context, request attendance.RecordRequest) (attendance.RecordResponse, error)
}

type Report interface {
	Day(ctx context.Context, workerID int, day date.Date) (report.DayResponse, error)
	Monthly(ctx context.Context, filter report.Filter) ([]report.MonthResponse, error)
}
