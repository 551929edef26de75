package service

import (
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"laberion/backend/foundation/web"
)

const (
	ContentJPEG = "image/jpeg"
	ContentPNG  = "image/png"
	ContentXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	// MaxUpload caps every uploaded file.
	MaxUpload = 10 << 20
)

var (
	ImageTypes = []string{ContentJPEG, ContentPNG}
	SheetTypes = []string{ContentXLSX, "application/octet-stream", "application/zip"}

	ErrFileType = errors.New("invalid file type")
	ErrTooLarge = errors.New("file is too large")
	ErrNoFile   = errors.New("file is required")
)

func InArray[T comparable](val T, array []T) bool {
	for _, v := range array {
		if val == v {
			return true
		}
	}
	return false
}

// RequestError gives upload errors their HTTP status.
func RequestError(err error) error {
	switch {
	case errors.Is(err, ErrTooLarge):
		return web.NewRequestError(err, http.StatusRequestEntityTooLarge)
	case errors.Is(err, ErrFileType), errors.Is(err, ErrNoFile):
		return web.NewRequestError(err, http.StatusBadRequest)
	}
	return web.NewRequestError(err, http.StatusInternalServerError)
}

// contentType prefers the declared type and falls back to sniffing.
func contentType(header *multipart.FileHeader, data []byte) string {
	declared := strings.TrimSpace(strings.Split(header.Header.Get("Content-Type"), ";")[0])
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}
	return http.DetectContentType(data)
}

// Read loads an uploaded file into memory after checking its size and type.
func Read(file *multipart.FileHeader, expected []string) ([]byte, string, error) {
	if file == nil {
		return nil, "", ErrNoFile
	}
	if file.Size > MaxUpload {
		return nil, "", ErrTooLarge
	}

	src, err := file.Open()
	if err != nil {
		return nil, "", errors.Wrap(err, "opening upload")
	}
	defer func() {
		if closeErr := src.Close(); closeErr != nil {
			log.Println("file upload src.Close() error:", closeErr)
		}
	}()

	data, err := io.ReadAll(io.LimitReader(src, MaxUpload+1))
	if err != nil {
		return nil, "", errors.Wrap(err, "reading upload")
	}
	if len(data) > MaxUpload {
		return nil, "", ErrTooLarge
	}
	if len(data) == 0 {
		return nil, "", ErrNoFile
	}

	ct := contentType(file, data)
	if !InArray(ct, expected) {
		return nil, "", errors.Wrapf(ErrFileType, "expected: %v, got: %s", expected, ct)
	}

	return data, ct, nil
}

// Save writes data under baseDir/folder with a random name and returns the
// path relative to baseDir.
func Save(baseDir, folder, ext string, data []byte) (string, error) {
	targetPath := filepath.Join(baseDir, folder)

	if err := os.MkdirAll(targetPath, os.ModePerm); err != nil {
		return "", errors.Wrap(err, "creating upload folder")
	}

	name := uuid.NewString() + ext
	if err := os.WriteFile(filepath.Join(targetPath, name), data, 0o644); err != nil {
		return "", errors.Wrap(err, "writing upload")
	}

	return filepath.ToSlash(filepath.Join(folder, name)), nil
}
