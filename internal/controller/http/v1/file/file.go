package file

import (
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"laberion/backend/foundation/web"
	"laberion/backend/internal/auth"
	"laberion/backend/internal/service"
)

type Controller struct {
	signer   Signer
	mediaDir string
}

type Export struct {
	Name       string    `json:"name"`
	Size       int64     `json:"size"`
	ModifiedAt time.Time `json:"modified_at"`
	URL        string    `json:"url"`
}

func NewController(signer Signer, mediaDir string) *Controller {
	return &Controller{signer: signer, mediaDir: mediaDir}
}

// clean turns a request path into a slash separated path relative to the
// media dir. It never climbs above the media dir.
func clean(p string) string {
	return strings.TrimPrefix(path.Clean("/"+p), "/")
}

// File serves /media/*filepath for a valid media token.
func (cf Controller) File(c *gin.Context) {
	file := clean(c.Param("filepath"))
	if file == "" {
		c.JSON(http.StatusNotFound, web.ErrorResponse{Error: "file not found"})
		return
	}

	if err := cf.signer.ValidateMediaToken(c.Query("token"), file); err != nil {
		c.JSON(http.StatusForbidden, web.ErrorResponse{Error: "incorrect or expired link"})
		return
	}

	fs := gin.Dir(cf.mediaDir, false)
	f, err := fs.Open("/" + file)
	if err != nil {
		c.JSON(http.StatusNotFound, web.ErrorResponse{Error: "file not found"})
		return
	}
	stat, err := f.Stat()
	f.Close()
	if err != nil || stat.IsDir() {
		c.JSON(http.StatusNotFound, web.ErrorResponse{Error: "file not found"})
		return
	}

	c.File(filepath.Join(cf.mediaDir, filepath.FromSlash(file)))
}

func (cf Controller) link(c *web.Context, file string) (string, error) {
	claims, ok := c.Ctx.Value(auth.Key).(auth.Claims)
	if !ok {
		return "", web.NewRequestError(errors.New("missing claims"), http.StatusUnauthorized)
	}

	tok, err := cf.signer.MediaToken(claims.UserId, file)
	if err != nil {
		return "", web.NewRequestError(errors.Wrap(err, "signing media link"), http.StatusInternalServerError)
	}

	return "/media/" + file + "?token=" + url.QueryEscape(tok), nil
}

// Link returns a short lived download link for one media file.
func (cf Controller) Link(c *web.Context) error {
	file := clean(c.Query("path"))
	if file == "" {
		return c.RespondError(web.NewFieldsError(errors.New("required fields are missing"), http.StatusBadRequest, []web.FieldError{{Field: "path", Error: "required"}}))
	}

	if _, err := os.Stat(filepath.Join(cf.mediaDir, filepath.FromSlash(file))); err != nil {
		return c.RespondError(web.NewRequestError(errors.New("file not found"), http.StatusNotFound))
	}

	link, err := cf.link(c, file)
	if err != nil {
		return c.RespondError(err)
	}

	return c.Respond(map[string]interface{}{
		"data":   map[string]string{"url": link},
		"status": true,
	}, http.StatusOK)
}

// Exports lists the workbooks written by the monthly export job, newest
// first.
func (cf Controller) Exports(c *web.Context) error {
	entries, err := os.ReadDir(filepath.Join(cf.mediaDir, service.ExportFolder))
	if err != nil && !os.IsNotExist(err) {
		return c.RespondError(web.NewRequestError(errors.Wrap(err, "reading exports"), http.StatusInternalServerError))
	}

	list := make([]Export, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".xlsx" {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}

		link, err := cf.link(c, path.Join(service.ExportFolder, e.Name()))
		if err != nil {
			return c.RespondError(err)
		}

		list = append(list, Export{Name: e.Name(), Size: info.Size(), ModifiedAt: info.ModTime(), URL: link})
	}

	sort.Slice(list, func(i, j int) bool { return list[i].Name > list[j].Name })

	return c.Respond(map[string]interface{}{
		"data": map[string]interface{}{
			"results": list,
			"count":   len(list),
		},
		"status": true,
	}, http.StatusOK)
}
