package worker

import (
	"fmt"
	"net/http"
	"reflect"
	"sort"

	"github.com/pkg/errors"

	"laberion/backend/foundation/web"
	"laberion/backend/internal/recognition"
	"laberion/backend/internal/repository/postgres/worker"
	"laberion/backend/internal/service"
)

const PhotoFolder = "faces"

type Controller struct {
	worker   Worker
	faces    Faces
	mediaDir string
}

func NewController(worker Worker, faces Faces, mediaDir string) *Controller {
	return &Controller{worker: worker, faces: faces, mediaDir: mediaDir}
}

func listFilter(c *web.Context) worker.Filter {
	var filter worker.Filter

	if limit, ok := c.GetQueryFunc(reflect.Int, "limit").(*int); ok {
		filter.Limit = limit
	}
	if offset, ok := c.GetQueryFunc(reflect.Int, "offset").(*int); ok {
		filter.Offset = offset
	}
	if page, ok := c.GetQueryFunc(reflect.Int, "page").(*int); ok {
		filter.Page = page
	}
	if search, ok := c.GetQueryFunc(reflect.String, "search").(*string); ok {
		filter.Search = search
	}
	if department, ok := c.GetQueryFunc(reflect.String, "department").(*string); ok {
		filter.Department = department
	}
	if status, ok := c.GetQueryFunc(reflect.String, "status").(*string); ok {
		filter.Status = status
	}

	return filter
}

func (uc Controller) GetList(c *web.Context) error {
	filter := listFilter(c)

	if err := c.ValidQuery(); err != nil {
		return c.RespondError(err)
	}

	list, count, err := uc.worker.GetList(c.Ctx, filter)
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

	response, err := uc.worker.GetDetailById(c.Ctx, id)
	if err != nil {
		return c.RespondError(err)
	}

	return c.Respond(map[string]interface{}{
		"data":   response,
		"status": true,
	}, http.StatusOK)
}

func (uc Controller) Create(c *web.Context) error {
	var request worker.CreateRequest

	if err := c.BindFunc(&request, "EmployeeCode", "FullName", "PinCode"); err != nil {
		return c.RespondError(err)
	}

	response, err := uc.worker.Create(c.Ctx, request)
	if err != nil {
		return c.RespondError(err)
	}

	return c.Respond(map[string]interface{}{
		"data":   response,
		"status": true,
	}, http.StatusOK)
}

func (uc Controller) UpdateColumns(c *web.Context) error {
	id := c.GetParam(reflect.Int, "id").(int)

	if err := c.ValidParam(); err != nil {
		return c.RespondError(err)
	}

	var request worker.UpdateRequest

	if err := c.BindFunc(&request); err != nil {
		return c.RespondError(err)
	}

	request.ID = id

	if err := uc.worker.UpdateColumns(c.Ctx, request); err != nil {
		return c.RespondError(err)
	}

	return c.Respond(map[string]interface{}{
		"data":   "ok!",
		"status": true,
	}, http.StatusOK)
}

// Delete soft deletes the worker and drops its faces from the recognition
// service. A recognition failure is logged, the worker stays deleted.
func (uc Controller) Delete(c *web.Context) error {
	id := c.GetParam(reflect.Int, "id").(int)

	if err := c.ValidParam(); err != nil {
		return c.RespondError(err)
	}

	if err := uc.worker.Delete(c.Ctx, id); err != nil {
		return c.RespondError(err)
	}

	faces := true
	if err := uc.faces.DeleteFaces(c.Ctx, id); err != nil {
		c.Logf("deleting faces of worker %d: %v", id, err)
		faces = false
	}

	return c.Respond(map[string]interface{}{
		"data":          "ok!",
		"faces_removed": faces,
		"status":        true,
	}, http.StatusOK)
}

func (uc Controller) Import(c *web.Context) error {
	file, err := c.FormFile("file")
	if err != nil {
		return c.RespondError(web.NewRequestError(service.ErrNoFile, http.StatusBadRequest))
	}

	data, _, err := service.Read(file, service.SheetTypes)
	if err != nil {
		return c.RespondError(service.RequestError(err))
	}

	rows, skipped, err := service.ReadWorkers(data)
	if err != nil {
		return c.RespondError(service.RequestError(err))
	}

	result, err := uc.worker.CreateMany(c.Ctx, rows)
	if err != nil {
		return c.RespondError(err)
	}

	result.Skipped = append(result.Skipped, skipped...)
	sort.SliceStable(result.Skipped, func(i, j int) bool {
		return result.Skipped[i].Row < result.Skipped[j].Row
	})

	return c.Respond(map[string]interface{}{
		"data":   result,
		"status": true,
	}, http.StatusOK)
}

func (uc Controller) Export(c *web.Context) error {
	filter := listFilter(c)
	filter.Limit, filter.Offset, filter.Page = nil, nil, nil

	if err := c.ValidQuery(); err != nil {
		return c.RespondError(err)
	}

	list, _, err := uc.worker.GetList(c.Ctx, filter)
	if err != nil {
		return c.RespondError(err)
	}

	f, err := service.WorkersSheet(list)
	if err != nil {
		return c.RespondError(web.NewRequestError(err, http.StatusInternalServerError))
	}
	defer f.Close()

	c.Header("Content-Type", service.ContentXLSX)
	c.Header("Content-Disposition", `attachment; filename="workers.xlsx"`)
	c.Status(http.StatusOK)

	if err := f.Write(c.Writer); err != nil {
		return errors.Wrap(err, "writing workers sheet")
	}

	return nil
}

func (uc Controller) Badge(c *web.Context) error {
	id := c.GetParam(reflect.Int, "id").(int)

	if err := c.ValidParam(); err != nil {
		return c.RespondError(err)
	}

	detail, err := uc.worker.GetDetailById(c.Ctx, id)
	if err != nil {
		return c.RespondError(err)
	}
	if detail.EmployeeCode == nil {
		return c.RespondError(web.NewRequestError(errors.New("worker has no employee code"), http.StatusConflict))
	}

	png, err := service.QRCode(*detail.EmployeeCode, 512)
	if err != nil {
		return c.RespondError(web.NewRequestError(err, http.StatusInternalServerError))
	}

	c.Header("Content-Disposition", fmt.Sprintf(`inline; filename="%s.png"`, *detail.EmployeeCode))
	c.Data(http.StatusOK, "image/png", png)

	return nil
}

func (uc Controller) Badges(c *web.Context) error {
	filter := listFilter(c)
	filter.Limit, filter.Offset, filter.Page = nil, nil, nil

	if err := c.ValidQuery(); err != nil {
		return c.RespondError(err)
	}

	list, _, err := uc.worker.GetList(c.Ctx, filter)
	if err != nil {
		return c.RespondError(err)
	}

	badges := make([]service.Badge, 0, len(list))
	for _, w := range list {
		if w.EmployeeCode == nil {
			continue
		}
		b := service.Badge{Code: *w.EmployeeCode}
		if w.FullName != nil {
			b.Name = *w.FullName
		}
		if w.Department != nil {
			b.Department = *w.Department
		}
		badges = append(badges, b)
	}

	pdf, err := service.BadgeSheet(badges)
	if err != nil {
		return c.RespondError(web.NewRequestError(err, http.StatusInternalServerError))
	}

	c.Header("Content-Disposition", `attachment; filename="badges.pdf"`)
	c.Data(http.StatusOK, "application/pdf", pdf)

	return nil
}

// EnrollFace sends one image to the recognition service and keeps a copy
// as the worker photo.
func (uc Controller) EnrollFace(c *web.Context) error {
	id := c.GetParam(reflect.Int, "id").(int)

	if err := c.ValidParam(); err != nil {
		return c.RespondError(err)
	}

	if _, err := uc.worker.GetDetailById(c.Ctx, id); err != nil {
		return c.RespondError(err)
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

	res, err := uc.faces.Enroll(c.Ctx, id, data, file.Filename)
	if err != nil {
		return c.RespondError(web.NewRequestError(err, http.StatusServiceUnavailable))
	}
	if !res.Success {
		return c.Respond(map[string]interface{}{
			"error":  res.Message,
			"code":   res.Code,
			"status": false,
		}, http.StatusUnprocessableEntity)
	}

	photo, err := service.Save(uc.mediaDir, PhotoFolder, ".jpg", data)
	if err != nil {
		return c.RespondError(web.NewRequestError(err, http.StatusInternalServerError))
	}

	ref := fmt.Sprintf("worker/%d/faces", id)
	if err := uc.worker.SetFaceRef(c.Ctx, id, &ref, &photo); err != nil {
		return c.RespondError(err)
	}

	return c.Respond(map[string]interface{}{
		"data": map[string]interface{}{
			"face_index":  res.FaceIndex,
			"total_faces": res.FaceCount,
			"photo":       photo,
		},
		"status": true,
	}, http.StatusOK)
}

func (uc Controller) DeleteFaces(c *web.Context) error {
	id := c.GetParam(reflect.Int, "id").(int)

	if err := c.ValidParam(); err != nil {
		return c.RespondError(err)
	}

	if _, err := uc.worker.GetDetailById(c.Ctx, id); err != nil {
		return c.RespondError(err)
	}

	if err := uc.faces.DeleteFaces(c.Ctx, id); err != nil {
		if errors.Is(err, recognition.ErrUnavailable) {
			return c.RespondError(web.NewRequestError(err, http.StatusServiceUnavailable))
		}
		return c.RespondError(web.NewRequestError(err, http.StatusBadGateway))
	}

	if err := uc.worker.SetFaceRef(c.Ctx, id, nil, nil); err != nil {
		return c.RespondError(err)
	}

	return c.Respond(map[string]interface{}{
		"data":   "ok!",
		"status": true,
	}, http.StatusOK)
}
