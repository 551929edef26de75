package service

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"log"
	"mime/multipart"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"laberion/backend/internal/repository/postgres/report"
	"laberion/backend/internal/repository/postgres/worker"
)

func fileHeader(t *testing.T, name, contentType string, data []byte) *multipart.FileHeader {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	h := make(map[string][]string)
	h["Content-Disposition"] = []string{`form-data; name="file"; filename="` + name + `"`}
	if contentType != "" {
		h["Content-Type"] = []string{contentType}
	}
	part, err := w.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	form, err := multipart.NewReader(&buf, w.Boundary()).ReadForm(1 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { _ = form.RemoveAll() })

	return form.File["file"][0]
}

func pngImage(t *testing.T, w, h int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x += 10 {
		img.Set(x, h/2, color.RGBA{R: 200, A: 255})
	}

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestRead(t *testing.T) {
	data := pngImage(t, 20, 10)

	got, ct, err := Read(fileHeader(t, "face.png", ContentPNG, data), ImageTypes)
	require.NoError(t, err)
	assert.Equal(t, ContentPNG, ct)
	assert.Equal(t, data, got)

	// sniffed when the client sends no type
	_, ct, err = Read(fileHeader(t, "face", "", data), ImageTypes)
	require.NoError(t, err)
	assert.Equal(t, ContentPNG, ct)

	_, _, err = Read(fileHeader(t, "notes.txt", "text/plain", []byte("hello")), ImageTypes)
	assert.True(t, errors.Is(err, ErrFileType))

	_, _, err = Read(nil, ImageTypes)
	assert.True(t, errors.Is(err, ErrNoFile))
}

func TestSave(t *testing.T) {
	dir := t.TempDir()

	rel, err := Save(dir, "faces", ".jpg", []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, "faces", filepath.Dir(rel))
	assert.Equal(t, ".jpg", filepath.Ext(rel))

	stored, err := os.ReadFile(filepath.Join(dir, rel))
	require.NoError(t, err)
	assert.Equal(t, []byte("x"), stored)

	other, err := Save(dir, "faces", ".jpg", []byte("y"))
	require.NoError(t, err)
	assert.NotEqual(t, rel, other)
}

func TestDownscale(t *testing.T) {
	small := pngImage(t, 400, 300)
	out, err := Downscale(small, MaxImageSide)
	require.NoError(t, err)
	assert.Equal(t, small, out)

	out, err = Downscale(pngImage(t, 2000, 1000), MaxImageSide)
	require.NoError(t, err)
	cfg, format, err := image.DecodeConfig(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, 1000, cfg.Width)
	assert.Equal(t, 500, cfg.Height)

	out, err = Downscale(pngImage(t, 600, 1500), MaxImageSide)
	require.NoError(t, err)
	cfg, _, err = image.DecodeConfig(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 400, cfg.Width)
	assert.Equal(t, 1000, cfg.Height)

	_, err = Downscale([]byte("not an image"), MaxImageSide)
	assert.True(t, errors.Is(err, ErrFileType))
}

func workbook(t *testing.T, rows [][]interface{}) []byte {
	t.Helper()

	f := excelize.NewFile()
	require.NoError(t, f.SetSheetName("Sheet1", WorkerSheet))
	for i, r := range rows {
		r := r
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(WorkerSheet, cell, &r))
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestReadWorkers(t *testing.T) {
	data := workbook(t, [][]interface{}{
		{"Employee code", "Full name", "Department", "Position", "PIN", "Status"},
		{"E-001", "  Arben Hoxha ", "Warehouse", "Loader", "1234", ""},
		{"E-002", "Bärbara", "", "", "0007", "Suspended"},
		{"E-003", "Drita Kola", "Office", "", "", "active"},
		{"E-001", "Arben Again", "", "", "1111", ""},
		{"", "", "", "", "", ""},
		{"E 004", "Gent Shala", "", "", "1234", ""},
		{"E-005", "Ilir Berisha", "", "", "12a4", ""},
		{"E-006", "Mira Dervishi", "", "", "1234", "retired"},
	})

	rows, skipped, err := ReadWorkers(data)
	require.NoError(t, err)

	require.Len(t, rows, 2)
	assert.Equal(t, 2, rows[0].Row)
	assert.Equal(t, "E-001", *rows[0].Request.EmployeeCode)
	assert.Equal(t, "Arben Hoxha", *rows[0].Request.FullName)
	assert.Equal(t, "Warehouse", *rows[0].Request.Department)
	assert.Nil(t, rows[0].Request.Status)

	assert.Equal(t, "Bärbara", *rows[1].Request.FullName)
	assert.Equal(t, "suspended", *rows[1].Request.Status)
	assert.Nil(t, rows[1].Request.Department)

	var skippedRows []int
	for _, s := range skipped {
		skippedRows = append(skippedRows, s.Row)
		assert.NotEmpty(t, s.Reason)
	}
	assert.Equal(t, []int{4, 5, 7, 8, 9}, skippedRows)
}

func TestReadWorkersNotAWorkbook(t *testing.T) {
	_, _, err := ReadWorkers([]byte("plain text"))
	assert.True(t, errors.Is(err, ErrFileType))
}

func month() []report.MonthResponse {
	code, name, dept := "E-001", "Arben Hoxha", "Warehouse"

	days := make([]report.DayResponse, 0, 31)
	for d := 1; d <= 31; d++ {
		day := report.DayResponse{Status: "absent", Hours: "00:00"}
		switch d {
		case 1:
			day = report.DayResponse{Status: "present", Hours: "07:55"}
		case 2:
			day = report.DayResponse{Status: "present", Incomplete: true, Hours: "00:00"}
		case 3:
			day = report.DayResponse{Status: "on_leave", Hours: "00:00"}
		}
		days = append(days, day)
	}

	return []report.MonthResponse{{
		WorkerID:     1,
		EmployeeCode: &code,
		FullName:     &name,
		Department:   &dept,
		Year:         2024,
		Month:        1,
		PresentDays:  2,
		AbsentDays:   28,
		OnLeaveDays:  1,
		TotalHours:   "07:55",
		TotalDecimal: decimal.RequireFromString("7.92"),
		Days:         days,
	}}
}

func TestMonthlyReport(t *testing.T) {
	f, err := MonthlyReport(2024, time.January, month())
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SummarySheet, DailySheet}, f.GetSheetList())

	get := func(sheet, cell string) string {
		v, err := f.GetCellValue(sheet, cell)
		require.NoError(t, err)
		return v
	}

	assert.Equal(t, "E-001", get(SummarySheet, "A2"))
	assert.Equal(t, "2", get(SummarySheet, "D2"))
	assert.Equal(t, "28", get(SummarySheet, "E2"))
	assert.Equal(t, "1", get(SummarySheet, "F2"))
	assert.Equal(t, "07:55", get(SummarySheet, "I2"))
	assert.Equal(t, "7.92", get(SummarySheet, "J2"))

	assert.Equal(t, "01", get(DailySheet, "C1"))
	assert.Equal(t, "31", get(DailySheet, "AG1"))
	assert.Equal(t, "Total", get(DailySheet, "AH1"))
	assert.Equal(t, "07:55", get(DailySheet, "C2"))
	assert.Equal(t, "?", get(DailySheet, "D2"))
	assert.Equal(t, "L", get(DailySheet, "E2"))
	assert.Equal(t, "A", get(DailySheet, "F2"))

	assert.Equal(t, "attendance-2024-01.xlsx", MonthlyReportName(2024, time.January))
}

func TestWorkersSheet(t *testing.T) {
	code, name, status := "E-001", "Arben Hoxha", "active"

	f, err := WorkersSheet([]worker.GetListResponse{{ID: 1, EmployeeCode: &code, FullName: &name, Status: &status}})
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(WorkerSheet)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, WorkerColumns, rows[0])
	assert.Equal(t, "E-001", rows[1][0])
	assert.Equal(t, "active", rows[1][5])
}

func TestBadges(t *testing.T) {
	png, err := QRCode("E-001", 256)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))

	_, err = QRCode("", 256)
	assert.Error(t, err)

	badges := make([]Badge, 0, 13)
	for i := 0; i < 13; i++ {
		badges = append(badges, Badge{Code: "E-00" + string(rune('A'+i)), Name: "Ëndrit Çela", Department: "Zyra"})
	}

	pdf, err := BadgeSheet(badges)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF")))

	empty, err := BadgeSheet(nil)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(empty, []byte("%PDF")))
}

type builder struct {
	filter  report.Filter
	reports []report.MonthResponse
	err     error
}

func (b *builder) Build(_ context.Context, filter report.Filter) ([]report.MonthResponse, error) {
	b.filter = filter
	return b.reports, b.err
}

func TestPreviousMonth(t *testing.T) {
	y, m := PreviousMonth(time.Date(2024, 1, 1, 2, 0, 0, 0, time.UTC))
	assert.Equal(t, 2023, y)
	assert.Equal(t, time.December, m)

	y, m = PreviousMonth(time.Date(2024, 3, 31, 23, 0, 0, 0, time.UTC))
	assert.Equal(t, 2024, y)
	assert.Equal(t, time.February, m)
}

func TestExportJobRun(t *testing.T) {
	dir := t.TempDir()
	b := &builder{reports: month()}

	j := NewExportJob(b, dir, time.UTC, log.New(os.Stderr, "", 0))
	j.now = func() time.Time { return time.Date(2024, 2, 1, 2, 0, 0, 0, time.UTC) }

	rel, err := j.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "exports/attendance-2024-01.xlsx", rel)
	assert.Equal(t, report.Filter{Year: 2024, Month: time.January}, b.filter)

	f, err := excelize.OpenFile(filepath.Join(dir, rel))
	require.NoError(t, err)
	defer f.Close()
	v, err := f.GetCellValue(SummarySheet, "B2")
	require.NoError(t, err)
	assert.Equal(t, "Arben Hoxha", v)

	b.err = errors.New("db down")
	_, err = j.Run(context.Background())
	assert.Error(t, err)
}

func TestExportJobStart(t *testing.T) {
	j := NewExportJob(&builder{}, t.TempDir(), nil, log.New(os.Stderr, "", 0))

	assert.Error(t, j.Start("not a schedule"))
	require.NoError(t, j.Start("0 2 1 * *"))
	j.Stop()
}
