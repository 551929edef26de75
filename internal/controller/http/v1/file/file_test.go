package file

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"laberion/backend/foundation/web"
	"laberion/backend/internal/auth"
)

const export = "exports/attendance-2024-01.xlsx"

func asAdmin(next web.Handler) web.Handler {
	return func(c *web.Context) error {
		c.Ctx = context.WithValue(c.Ctx, auth.Key, auth.Claims{UserId: 1, Role: auth.RoleAdmin, Type: auth.TokenAccess})
		return next(c)
	}
}

func setup(t *testing.T) (*web.App, *auth.Auth) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dir := t.TempDir()
	for name, body := range map[string]string{
		export:                            "workbook",
		"exports/attendance-2023-12.xlsx": "older",
		"exports/notes.txt":               "ignored",
		"faces/1.jpg":                     "jpeg",
	} {
		p := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	}

	a, err := auth.New("test-key")
	require.NoError(t, err)

	ctrl := NewController(a, dir)
	app := web.NewApp(log.New(io.Discard, "", 0))
	app.GET("/media/*filepath", ctrl.File)
	app.Get("/media-link", ctrl.Link, asAdmin)
	app.Get("/exports", ctrl.Exports, asAdmin)
	app.Get("/exports-anonymous", ctrl.Exports)

	return app, a
}

func get(app *web.App, url string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, url, nil))
	return rec
}

func TestClean(t *testing.T) {
	assert.Equal(t, "etc/passwd", clean("/../../etc/passwd"))
	assert.Equal(t, "exports/a.xlsx", clean("/exports/./a.xlsx"))
	assert.Equal(t, "exports/a.xlsx", clean("exports//a.xlsx"))
	assert.Equal(t, "", clean("/"))
}

func TestFile(t *testing.T) {
	app, a := setup(t)

	token, err := a.MediaToken(1, export)
	require.NoError(t, err)

	rec := get(app, "/media/"+export+"?token="+token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "workbook", rec.Body.String())

	rec = get(app, "/media/"+export)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = get(app, "/media/faces/1.jpg?token="+token)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	access, _, err := a.GenerateTokens(1, auth.RoleAdmin)
	require.NoError(t, err)
	rec = get(app, "/media/"+export+"?token="+access)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	dirToken, err := a.MediaToken(1, "exports")
	require.NoError(t, err)
	rec = get(app, "/media/exports?token="+dirToken)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	goneToken, err := a.MediaToken(1, "exports/missing.xlsx")
	require.NoError(t, err)
	rec = get(app, "/media/exports/missing.xlsx?token="+goneToken)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLink(t *testing.T) {
	app, _ := setup(t)

	rec := get(app, "/media-link?path=/"+export)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		Data struct {
			URL string `json:"url"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, strings.HasPrefix(body.Data.URL, "/media/"+export+"?token="))

	rec = get(app, body.Data.URL)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "workbook", rec.Body.String())

	assert.Equal(t, http.StatusNotFound, get(app, "/media-link?path=exports/missing.xlsx").Code)
	assert.Equal(t, http.StatusBadRequest, get(app, "/media-link").Code)
}

func TestExports(t *testing.T) {
	app, _ := setup(t)

	rec := get(app, "/exports")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		Data struct {
			Count   int      `json:"count"`
			Results []Export `json:"results"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, 2, body.Data.Count)
	assert.Equal(t, "attendance-2024-01.xlsx", body.Data.Results[0].Name)
	assert.Equal(t, "attendance-2023-12.xlsx", body.Data.Results[1].Name)
	assert.Equal(t, int64(len("workbook")), body.Data.Results[0].Size)

	rec = get(app, body.Data.Results[1].URL)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "older", rec.Body.String())

	assert.Equal(t, http.StatusUnauthorized, get(app, "/exports-anonymous").Code)
}
