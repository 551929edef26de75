package kiosk

import (
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"laberion/backend/foundation/web"
	"laberion/backend/internal/entity"
	"laberion/backend/internal/ledger"
	"laberion/backend/internal/recognition"
	"laberion/backend/internal/repository/postgres/attendance"
	"laberion/backend/internal/service"
)

var (
	ErrTooSoon    = errors.New("already recorded, try again later")
	ErrIdentifier = errors.New("worker_id or employee_code is required")
)

type Controller struct {
	worker     Worker
	attendance Attendance
	recognizer Recognizer
	tap        TapGuard
}

func NewController(worker Worker, attendance Attendance, recognizer Recognizer, tap TapGuard) *Controller {
	return &Controller{
		worker:     worker,
		attendance: attendance,
		recognizer: recognizer,
		tap:        tap,
	}
}

// respondError maps engine argument errors to 400 before the default
// handling.
func respondError(c *web.Context, err error) error {
	if web.StatusOf(err) == 0 && errors.Is(err, ledger.ErrInvalidArgument) {
		err = web.NewRequestError(err, http.StatusBadRequest)
	}
	return c.RespondError(err)
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// Face records an event for the worker recognised on the uploaded image.
// Any failed recognition is answered with 422 and the service's code.
func (uc Controller) Face(c *web.Context) error {
	action := optional(c.PostForm("action"))
	if action != nil && !ledger.EventType(*action).Valid() {
		return c.RespondError(web.NewFieldsError(errors.New("validation failed"), http.StatusBadRequest, []web.FieldError{
			{Field: "action", Error: "oneof=check_in check_out"},
		}))
	}

	file, err := c.FormFile("image")
	if err != nil {
		return c.RespondError(web.NewRequestError(service.ErrNoFile, http.StatusBadRequest))
	}

	data, _, err := service.Read(file, service.ImageTypes)
	if err != nil {
		return c.RespondError(service.RequestError(err))
	}

	data, err = service.Downscale(data, service.MaxImageSide)
	if err != nil {
		return c.RespondError(service.RequestError(err))
	}

	res, err := uc.recognizer.Recognize(c.Ctx, data, file.Filename)
	if err != nil {
		c.Logf("kiosk face: %v", err)
		return c.Respond(map[string]interface{}{
			"error":  "recognition service unavailable",
			"code":   recognition.CodeInternal,
			"status": false,
		}, http.StatusServiceUnavailable)
	}
	if !res.Success {
		return c.Respond(map[string]interface{}{
			"error":  res.Message,
			"code":   res.Code,
			"status": false,
		}, http.StatusUnprocessableEntity)
	}

	w, err := uc.worker.GetById(c.Ctx, res.WorkerID)
	if err != nil {
		return c.RespondError(err)
	}

	return uc.record(c, w, attendance.RecordRequest{
		Action:     action,
		Method:     string(ledger.MethodFace),
		DeviceID:   optional(c.PostForm("device_id")),
		Confidence: res.Confidence,
	})
}

// Pin records an event for a worker identified by id or employee code and
// a matching PIN.
func (uc Controller) Pin(c *web.Context) error {
	var request attendance.PinRequest

	if err := c.BindFunc(&request, "Pin"); err != nil {
		return c.RespondError(err)
	}

	var (
		w   entity.Worker
		err error
	)
	switch {
	case request.WorkerID != nil:
		w, err = uc.worker.GetById(c.Ctx, *request.WorkerID)
	case request.EmployeeCode != nil && strings.TrimSpace(*request.EmployeeCode) != "":
		w, err = uc.worker.GetByCode(c.Ctx, *request.EmployeeCode)
	default:
		return c.RespondError(web.NewRequestError(ErrIdentifier, http.StatusBadRequest))
	}
	if err != nil {
		return c.RespondError(err)
	}

	if err := uc.worker.VerifyPin(w, request.Pin); err != nil {
		return c.RespondError(err)
	}

	return uc.record(c, w, attendance.RecordRequest{
		Action:   request.Action,
		Method:   string(ledger.MethodPin),
		DeviceID: request.DeviceID,
	})
}

// record appends the event behind the duplicate tap window.
func (uc Controller) record(c *web.Context, w entity.Worker, request attendance.RecordRequest) error {
	if !uc.tap.Allow(c.Ctx, w.ID) {
		retry := int(math.Ceil(uc.tap.Retry(c.Ctx, w.ID).Seconds()))
		c.Header("Retry-After", strconv.Itoa(retry))
		return c.Respond(map[string]interface{}{
			"error":       ErrTooSoon.Error(),
			"retry_after": retry,
			"status":      false,
		}, http.StatusTooManyRequests)
	}

	request.WorkerID = w.ID

	event, err := uc.attendance.Record(c.Ctx, request)
	if err != nil {
		uc.tap.Release(c.Ctx, w.ID)
		return respondError(c, err)
	}

	return c.Respond(map[string]interface{}{
		"data": attendance.KioskResponse{
			Event:        event,
			EmployeeCode: w.EmployeeCode,
			FullName:     w.FullName,
		},
		"status": true,
	}, http.StatusOK)
}
