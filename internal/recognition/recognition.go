// Package recognition talks to the face recognition service. The service
// owns face detection and matching; this client only uploads images and
// reads the JSON it answers with.
package recognition

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Codes sent by the service, plus the ones the client adds itself.
const (
	CodeNoFace        = "NO_FACE_DETECTED"
	CodeMultipleFaces = "MULTIPLE_FACES"
	CodeNotRecognized = "FACE_NOT_RECOGNIZED"
	CodeMaxFaces      = "MAX_FACES_REACHED"
	CodeInternal      = "INTERNAL_ERROR"
	CodeLowConfidence = "LOW_CONFIDENCE"
	CodeBadResponse   = "BAD_RESPONSE"
	CodeNoWorker      = "NO_WORKER_ID"
)

// ErrUnavailable wraps transport failures and unreadable answers.
var ErrUnavailable = errors.New("recognition service unavailable")

// Result is the answer to a recognise or enrol call. Success is false for
// every outcome other than a confident match.
type Result struct {
	Success    bool     `json:"success"`
	WorkerID   int      `json:"worker_id"`
	Confidence *float64 `json:"confidence"`
	Message    string   `json:"message"`
	Code       string   `json:"code"`
	FaceIndex  *int     `json:"face_index,omitempty"`
	FaceCount  int      `json:"total_faces_for_worker,omitempty"`
	Status     int      `json:"-"`
}

type Health struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Service   string `json:"service"`
}

type Client struct {
	baseURL   string
	threshold float64
	http      *http.Client
}

func New(baseURL string, timeout time.Duration, threshold float64) *Client {
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		threshold: threshold,
		http:      &http.Client{Timeout: timeout},
	}
}

func (c *Client) Threshold() float64 {
	return c.threshold
}

// Recognize uploads one image and returns the matched worker. A match under
// the configured threshold is reported as a failed recognition.
func (c *Client) Recognize(ctx context.Context, image []byte, filename string) (Result, error) {
	body, contentType, err := form(image, filename, nil)
	if err != nil {
		return Result{}, err
	}

	res, err := c.do(ctx, http.MethodPost, "/recognize", body, contentType)
	if err != nil {
		return Result{}, err
	}

	if res.Success {
		switch {
		case res.WorkerID <= 0:
			res.Success = false
			res.Code = CodeNoWorker
			res.Message = "service matched a face without a worker id"
		case res.Confidence == nil || *res.Confidence < c.threshold:
			res.Success = false
			res.Code = CodeLowConfidence
			res.Message = "confidence below threshold"
		}
	}

	return res, nil
}

// Enroll adds a face image for workerID.
func (c *Client) Enroll(ctx context.Context, workerID int, image []byte, filename string) (Result, error) {
	body, contentType, err := form(image, filename, map[string]string{"worker_id": strconv.Itoa(workerID)})
	if err != nil {
		return Result{}, err
	}

	return c.do(ctx, http.MethodPost, "/enroll", body, contentType)
}

// DeleteFaces removes every face of workerID. A worker without faces is not
// an error.
func (c *Client) DeleteFaces(ctx context.Context, workerID int) error {
	res, err := c.do(ctx, http.MethodDelete, "/worker/"+strconv.Itoa(workerID)+"/faces", nil, "")
	if err != nil {
		return err
	}
	if !res.Success && res.Status != http.StatusNotFound {
		return errors.Errorf("deleting faces of worker %d: %s", workerID, res.Message)
	}
	return nil
}

func (c *Client) Health(ctx context.Context) (Health, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return Health{}, errors.Wrap(err, "building health request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Health{}, errors.Wrap(ErrUnavailable, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Health{}, errors.Wrapf(ErrUnavailable, "health status %d", resp.StatusCode)
	}

	var h Health
	if err := json.NewDecoder(resp.Body).Decode(&h); err != nil {
		return Health{}, errors.Wrap(ErrUnavailable, err.Error())
	}

	return h, nil
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string) (Result, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return Result{}, errors.Wrap(err, "building request")
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Result{}, errors.Wrap(ErrUnavailable, err.Error())
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Result{}, errors.Wrap(ErrUnavailable, err.Error())
	}

	var res Result
	if err := json.Unmarshal(raw, &res); err != nil {
		if resp.StatusCode >= http.StatusInternalServerError {
			return Result{}, errors.Wrapf(ErrUnavailable, "status %d", resp.StatusCode)
		}
		return Result{Status: resp.StatusCode, Code: CodeBadResponse, Message: "unreadable response"}, nil
	}
	res.Status = resp.StatusCode

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		res.Success = false
		if res.Code == "" {
			res.Code = CodeInternal
		}
	}

	return res, nil
}

func form(image []byte, filename string, fields map[string]string) (io.Reader, string, error) {
	if len(image) == 0 {
		return nil, "", errors.New("empty image")
	}
	if filename == "" {
		filename = "capture.jpg"
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return nil, "", errors.Wrap(err, "writing form field")
		}
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="image"; filename="`+strings.ReplaceAll(filename, `"`, "")+`"`)
	h.Set("Content-Type", http.DetectContentType(image))

	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", errors.Wrap(err, "creating image part")
	}
	if _, err := part.Write(image); err != nil {
		return nil, "", errors.Wrap(err, "writing image part")
	}
	if err := w.Close(); err != nil {
		return nil, "", errors.Wrap(err, "closing form")
	}

	return &buf, w.FormDataContentType(), nil
}
