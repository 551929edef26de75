package web

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newApp(mw ...Middleware) *App {
	gin.SetMode(gin.TestMode)
	return NewApp(log.New(io.Discard, "", 0), mw...)
}

func serve(app *App, method, url string, body io.Reader) (*httptest.ResponseRecorder, ErrorResponse) {
	req := httptest.NewRequest(method, url, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, req)

	var resp ErrorResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	return rec, resp
}

func TestRespondError(t *testing.T) {
	app := newApp()
	app.Get("/missing", func(c *Context) error {
		return c.RespondError(NewRequestError(errors.New("worker not found"), http.StatusNotFound))
	})
	app.Get("/wrapped", func(c *Context) error {
		err := NewFieldsError(errors.New("validation failed"), http.StatusBadRequest, []FieldError{{Field: "pin", Error: "len=4"}})
		return c.RespondError(errors.Wrap(err, "creating worker"))
	})
	app.Get("/internal", func(c *Context) error {
		return c.RespondError(errors.New("pq: connection refused"))
	})
	app.Get("/ok", func(c *Context) error {
		return c.Respond(map[string]interface{}{"status": true}, http.StatusOK)
	})
	app.Delete("/ok", func(c *Context) error {
		return c.Respond(nil, http.StatusNoContent)
	})

	rec, resp := serve(app, http.MethodGet, "/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "worker not found", resp.Error)
	assert.False(t, resp.Status)

	rec, resp = serve(app, http.MethodGet, "/wrapped", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, []FieldError{{Field: "pin", Error: "len=4"}}, resp.Fields)

	rec, resp = serve(app, http.MethodGet, "/internal", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, resp.Error, "pq:")

	rec, _ = serve(app, http.MethodGet, "/ok", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":true}`, rec.Body.String())

	rec, _ = serve(app, http.MethodDelete, "/ok", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestStatusOf(t *testing.T) {
	assert.Equal(t, http.StatusConflict, StatusOf(errors.Wrap(NewRequestError(errors.New("dup"), http.StatusConflict), "insert")))
	assert.Zero(t, StatusOf(errors.New("plain")))
	assert.Zero(t, StatusOf(nil))
}

func TestMiddlewareOrder(t *testing.T) {
	var order []string
	mark := func(name string) Middleware {
		return func(next Handler) Handler {
			return func(c *Context) error {
				order = append(order, name)
				return next(c)
			}
		}
	}

	app := newApp(mark("app"))
	app.Get("/", func(c *Context) error {
		order = append(order, "handler")
		return c.Respond(nil, http.StatusNoContent)
	}, mark("route-1"), mark("route-2"))

	serve(app, http.MethodGet, "/", nil)
	assert.Equal(t, []string{"app", "route-1", "route-2", "handler"}, order)
}

func TestQueryHelpers(t *testing.T) {
	type result struct {
		limit  *int
		search *string
		active *bool
		from   string
		err    error
	}

	var got result
	app := newApp()
	app.Get("/list", func(c *Context) error {
		got = result{}
		got.limit, _ = c.GetQueryFunc(reflect.Int, "limit").(*int)
		got.search, _ = c.GetQueryFunc(reflect.String, "search").(*string)
		got.active, _ = c.GetQueryFunc(reflect.Bool, "active").(*bool)
		if d := c.GetDateQuery("from"); d != nil {
			got.from = d.String()
		}
		got.err = c.ValidQuery()
		if got.err != nil {
			return c.RespondError(got.err)
		}
		return c.Respond(nil, http.StatusNoContent)
	})

	rec, _ := serve(app, http.MethodGet, "/list?limit=20&search=arben&active=true&from=2024-02-29", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	require.NotNil(t, got.limit)
	assert.Equal(t, 20, *got.limit)
	assert.Equal(t, "arben", *got.search)
	assert.True(t, *got.active)
	assert.Equal(t, "2024-02-29", got.from)

	rec, _ = serve(app, http.MethodGet, "/list?search=", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Nil(t, got.limit)
	assert.Nil(t, got.search)

	rec, resp := serve(app, http.MethodGet, "/list?limit=ten&from=2024-02-30", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Len(t, resp.Fields, 2)
	assert.Equal(t, "limit", resp.Fields[0].Field)
	assert.Equal(t, "from", resp.Fields[1].Field)
}

func TestGetMonthQuery(t *testing.T) {
	var (
		year  int
		month time.Month
	)

	app := newApp()
	app.Get("/month", func(c *Context) error {
		year, month = c.GetMonthQuery(time.UTC)
		if err := c.ValidQuery(); err != nil {
			return c.RespondError(err)
		}
		return c.Respond(nil, http.StatusNoContent)
	})

	rec, _ := serve(app, http.MethodGet, "/month?year=2023&month=12", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 2023, year)
	assert.Equal(t, time.December, month)

	rec, _ = serve(app, http.MethodGet, "/month", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	now := time.Now().UTC()
	assert.Equal(t, now.Year(), year)
	assert.Equal(t, now.Month(), month)

	for _, q := range []string{"month=0", "month=13", "year=0", "year=10000"} {
		rec, _ = serve(app, http.MethodGet, "/month?"+q, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}
}

func TestGetParam(t *testing.T) {
	var id int

	app := newApp()
	app.Get("/worker/:id", func(c *Context) error {
		id = c.GetParam(reflect.Int, "id").(int)
		if err := c.ValidParam(); err != nil {
			return c.RespondError(err)
		}
		return c.Respond(nil, http.StatusNoContent)
	})

	rec, _ := serve(app, http.MethodGet, "/worker/42", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 42, id)

	rec, resp := serve(app, http.MethodGet, "/worker/abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, []FieldError{{Field: "id", Error: "must be an integer"}}, resp.Fields)
}

type pinRequest struct {
	WorkerID *int    `json:"worker_id"`
	Pin      string  `json:"pin"     validate:"omitempty,len=4,numeric"`
	Action   *string `json:"action"  validate:"omitempty,oneof=check_in check_out"`
}

func TestBindFunc(t *testing.T) {
	app := newApp()
	app.Post("/pin", func(c *Context) error {
		var req pinRequest
		if err := c.BindFunc(&req, "WorkerID", "Pin"); err != nil {
			return c.RespondError(err)
		}
		return c.Respond(req, http.StatusOK)
	})

	tests := []struct {
		name   string
		body   string
		status int
		fields []FieldError
	}{
		{"ok", `{"worker_id":1,"pin":"0042","action":"check_in"}`, http.StatusOK, nil},
		{"missing", `{}`, http.StatusBadRequest, []FieldError{{Field: "worker_id", Error: "required"}, {Field: "pin", Error: "required"}}},
		{"short pin", `{"worker_id":1,"pin":"12"}`, http.StatusBadRequest, []FieldError{{Field: "pin", Error: "len=4"}}},
		{"bad action", `{"worker_id":1,"pin":"1234","action":"lunch"}`, http.StatusBadRequest, []FieldError{{Field: "action", Error: "oneof=check_in check_out"}}},
		{"not json", `{"worker_id":`, http.StatusBadRequest, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, resp := serve(app, http.MethodPost, "/pin", strings.NewReader(tt.body))
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			if tt.fields != nil {
				assert.Equal(t, tt.fields, resp.Fields)
			}
		})
	}
}
