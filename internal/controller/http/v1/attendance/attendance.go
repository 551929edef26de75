package attendance

import (
	"net/http"
	"reflect"
	"time"

	"github.com/pkg/errors"

	"laberion/backend/foundation/web"
	"laberion/backend/internal/ledger"
	"laberion/backend/internal/repository/postgres"
	"laberion/backend/internal/repository/postgres/attendance"
	"laberion/backend/internal/repository/postgres/report"
)

type Controller struct {
	attendance Attendance
	report     Report
	engine     *ledger.Engine
}

func NewController(attendance Attendance, report Report, engine *ledger.Engine) *Controller {
	return &Controller{attendance: attendance, report: report, engine: engine}
}

func (uc Controller) GetList(c *web.Context) error {
	var filter attendance.Filter

	if limit, ok := c.GetQueryFunc(reflect.Int, "limit").(*int); ok {
		filter.Limit = limit
	}
	if offset, ok := c.GetQueryFunc(reflect.Int, "offset").(*int); ok {
		filter.Offset = offset
	}
	if page, ok := c.GetQueryFunc(reflect.Int, "page").(*int); ok {
		filter.Page = page
	}
	if workerId, ok := c.GetQueryFunc(reflect.Int, "worker_id").(*int); ok {
		filter.WorkerID = workerId
	}
	if method, ok := c.GetQueryFunc(reflect.String, "method").(*string); ok {
		filter.Method = method
	}
	if deviceId, ok := c.GetQueryFunc(reflect.String, "device_id").(*string); ok {
		filter.DeviceID = deviceId
	}
	if eventType, ok := c.GetQueryFunc(reflect.String, "event_type").(*string); ok {
		filter.EventType = eventType
	}
	if from := c.GetDateQuery("from"); from != nil {
		start, _ := uc.engine.DayBounds(*from)
		filter.From = &start
	}
	if to := c.GetDateQuery("to"); to != nil {
		_, end := uc.engine.DayBounds(*to)
		filter.To = &end
	}

	if err := c.ValidQuery(); err != nil {
		return c.RespondError(err)
	}

	list, count, err := uc.attendance.GetList(c.Ctx, filter)
	if err != nil {
		return c.RespondError(err)
	}

	return c.Respond(map[string]interface{}{
		"data": map[string]interface{}{
			"results": list,
			"count":   count,
		},
		"status": true,
	}, http.StatusOK)
}

func (uc Controller) GetDetailById(c *web.Context) error {
	id := c.GetParam(reflect.Int, "id").(int)

	if err := c.ValidParam(); err != nil {
		return c.RespondError(err)
	}

	response, err := uc.attendance.GetDetailById(c.Ctx, id)
	if err != nil {
		return c.RespondError(err)
	}

	return c.Respond(map[string]interface{}{
		"data":   response,
		"status": true,
	}, http.StatusOK)
}

// CreateManual appends an event entered by an admin. Without an action the
// direction follows the worker's latest event.
func (uc Controller) CreateManual(c *web.Context) error {
	var request attendance.ManualRequest

	if err := c.BindFunc(&request, "WorkerID"); err != nil {
		return c.RespondError(err)
	}

	response, err := uc.attendance.Record(c.Ctx, request.Record())
	if err != nil {
		return c.RespondError(err)
	}

	return c.Respond(map[string]interface{}{
		"data":   response,
		"status": true,
	}, http.StatusOK)
}

func (uc Controller) GetDay(c *web.Context) error {
	workerId, _ := c.GetQueryFunc(reflect.Int, "worker_id").(*int)
	day := c.GetDateQuery("date")

	if err := c.ValidQuery(); err != nil {
		return c.RespondError(err)
	}
	if workerId == nil {
		return c.RespondError(web.NewFieldsError(errors.New("required fields are missing"), http.StatusBadRequest, []web.FieldError{{Field: "worker_id", Error: "required"}}))
	}
	if day == nil {
		today := uc.engine.LocalDate(time.Now())
		day = &today
	}

	response, err := uc.report.Day(c.Ctx, *workerId, *day)
	if err != nil {
		return c.RespondError(err)
	}

	return c.Respond(map[string]interface{}{
		"data":   response,
		"status": true,
	}, http.StatusOK)
}

func (uc Controller) GetMonth(c *web.Context) error {
	workerId, _ := c.GetQueryFunc(reflect.Int, "worker_id").(*int)
	year, month := c.GetMonthQuery(uc.engine.Location())

	if err := c.ValidQuery(); err != nil {
		return c.RespondError(err)
	}
	if workerId == nil {
		return c.RespondError(web.NewFieldsError(errors.New("required fields are missing"), http.StatusBadRequest, []web.FieldError{{Field: "worker_id", Error: "required"}}))
	}

	list, err := uc.report.Monthly(c.Ctx, report.Filter{Year: year, Month: month, WorkerID: workerId})
	if err != nil {
		return c.RespondError(err)
	}
	if len(list) == 0 {
		return c.RespondError(web.NewRequestError(postgres.ErrNotFound, http.StatusNotFound))
	}

	return c.Respond(map[string]interface{}{
		"data":   list[0],
		"status": true,
	}, http.StatusOK)
}
