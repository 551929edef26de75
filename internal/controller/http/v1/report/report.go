package report

import (
	"net/http"
	"reflect"
	"time"

	"github.com/pkg/errors"

	"laberion/backend/foundation/web"
	"laberion/backend/internal/ledger"
	"laberion/backend/internal/repository/postgres/report"
	"laberion/backend/internal/service"
)

type Controller struct {
	report Report
	engine *ledger.Engine
}

func NewController(report Report, engine *ledger.Engine) *Controller {
	return &Controller{report: report, engine: engine}
}

func (uc Controller) filter(c *web.Context) report.Filter {
	var filter report.Filter

	filter.Year, filter.Month = c.GetMonthQuery(uc.engine.Location())
	if workerId, ok := c.GetQueryFunc(reflect.Int, "worker_id").(*int); ok {
		filter.WorkerID = workerId
	}

	return filter
}

// GetMonthly returns the month of one worker, or of every active worker.
func (uc Controller) GetMonthly(c *web.Context) error {
	filter := uc.filter(c)

	if err := c.ValidQuery(); err != nil {
		return c.RespondError(err)
	}

	list, err := uc.report.Monthly(c.Ctx, filter)
	if err != nil {
		return c.RespondError(err)
	}

	return c.Respond(map[string]interface{}{
		"data": map[string]interface{}{
			"year":    filter.Year,
			"month":   int(filter.Month),
			"results": list,
			"count":   len(list),
		},
		"status": true,
	}, http.StatusOK)
}

func (uc Controller) ExportMonthly(c *web.Context) error {
	filter := uc.filter(c)

	if err := c.ValidQuery(); err != nil {
		return c.RespondError(err)
	}

	list, err := uc.report.Monthly(c.Ctx, filter)
	if err != nil {
		return c.RespondError(err)
	}

	f, err := service.MonthlyReport(filter.Year, filter.Month, list)
	if err != nil {
		return c.RespondError(web.NewRequestError(err, http.StatusInternalServerError))
	}
	defer f.Close()

	c.Header("Content-Type", service.ContentXLSX)
	c.Header("Content-Disposition", `attachment; filename="`+service.MonthlyReportName(filter.Year, filter.Month)+`"`)
	c.Status(http.StatusOK)

	if err := f.Write(c.Writer); err != nil {
		return errors.Wrap(err, "writing monthly report")
	}

	return nil
}

// GetBoard groups workers by their attendance on a day, today by default.
func (uc Controller) GetBoard(c *web.Context) error {
	day := c.GetDateQuery("date")

	if err := c.ValidQuery(); err != nil {
		return c.RespondError(err)
	}
	if day == nil {
		today := uc.engine.LocalDate(time.Now())
		day = &today
	}

	board, err := uc.report.Board(c.Ctx, *day)
	if err != nil {
		return c.RespondError(err)
	}

	return c.Respond(map[string]interface{}{
		"data":   board,
		"status": true,
	}, http.StatusOK)
}
