package department

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"laberion/backend/foundation/web"
	"laberion/backend/internal/repository/postgres"
	"laberion/backend/internal/repository/postgres/department"
)

type fakeDepartments struct {
	filter  department.Filter
	renamed []department.RenameRequest
}

func (f *fakeDepartments) GetList(_ context.Context, filter department.Filter) ([]department.GetListResponse, int, error) {
	f.filter = filter
	return []department.GetListResponse{{Name: "Warehouse", Workers: 4, Active: 3, Enrolled: 2}}, 1, nil
}

func (f *fakeDepartments) Rename(_ context.Context, request department.RenameRequest) (department.RenameResponse, error) {
	if *request.From == "Nowhere" {
		return department.RenameResponse{}, web.NewRequestError(postgres.ErrNotFound, http.StatusNotFound)
	}
	f.renamed = append(f.renamed, request)
	return department.RenameResponse{Name: *request.To, Workers: 4}, nil
}

func setup() (*web.App, *fakeDepartments) {
	gin.SetMode(gin.TestMode)

	repo := &fakeDepartments{}
	ctrl := NewController(repo)

	app := web.NewApp(log.New(io.Discard, "", 0))
	app.Get("/department/list", ctrl.GetList)
	app.Patch("/department/rename", ctrl.Rename)

	return app, repo
}

func do(app *web.App, method, url, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, url, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, req)
	return rec
}

func TestGetList(t *testing.T) {
	app, repo := setup()

	rec := do(app, http.MethodGet, "/department/list?search=ware&page=2&limit=5", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "ware", *repo.filter.Search)
	assert.Equal(t, 2, *repo.filter.Page)
	assert.Equal(t, 5, *repo.filter.Limit)

	var body struct {
		Data struct {
			Count   int                          `json:"count"`
			Results []department.GetListResponse `json:"results"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Data.Count)
	assert.Equal(t, "Warehouse", body.Data.Results[0].Name)
	assert.Equal(t, 2, body.Data.Results[0].Enrolled)

	rec = do(app, http.MethodGet, "/department/list?page=first", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRename(t *testing.T) {
	app, repo := setup()

	rec := do(app, http.MethodPatch, "/department/rename", `{"from":"Warehouse","to":"Logistics"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Len(t, repo.renamed, 1)
	assert.Equal(t, "Logistics", *repo.renamed[0].To)

	rec = do(app, http.MethodPatch, "/department/rename", `{"from":"Warehouse"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(app, http.MethodPatch, "/department/rename", `{"from":"Nowhere","to":"Office"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
