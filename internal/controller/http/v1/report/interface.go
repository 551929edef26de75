package report

import (
	"context"

	"github.com/Azure/go-autorest/autorest/date"

	"laberion/backend/internal/repository/postgres/report"
)

type Report interface {
	Monthly(ctx context.Context, filter report.Filter) ([]report.MonthResponse, error)
	Board(ctx context.Context, day date.Date) (report.BoardResponse, error)
}
