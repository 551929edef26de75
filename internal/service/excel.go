package service

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/unicode/norm"

	"laberion/backend/internal/entity"
	"laberion/backend/internal/repository/postgres/worker"
)

// Worker sheet columns, shared by import and export.
var WorkerColumns = []string{"Employee code", "Full name", "Department", "Position", "PIN", "Status"}

const WorkerSheet = "Workers"

var (
	codeRegex = regexp.MustCompile(`^[A-Za-z0-9_-]{1,32}$`)
	pinRegex  = regexp.MustCompile(`^\d{4}$`)
)

// clean trims s and puts it in NFC so names typed on different keyboards
// compare equal.
func clean(s string) string {
	return strings.TrimSpace(norm.NFC.String(s))
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func cell(row []string, i int) string {
	if i < len(row) {
		return clean(row[i])
	}
	return ""
}

// ReadWorkers parses an uploaded worker sheet. Rows with missing or malformed
// values are returned as skipped with their 1-based row number; blank rows
// are ignored.
func ReadWorkers(data []byte) ([]worker.ImportRow, []worker.ImportError, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, nil, errors.Wrap(ErrFileType, "not an xlsx workbook")
	}
	defer f.Close()

	sheet := WorkerSheet
	if idx, _ := f.GetSheetIndex(sheet); idx == -1 {
		sheet = f.GetSheetName(0)
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, nil, errors.Wrap(err, "reading worker sheet")
	}

	var (
		valid   []worker.ImportRow
		skipped = []worker.ImportError{}
		seen    = make(map[string]int)
	)

	for i, row := range rows {
		rowNumber := i + 1
		if i == 0 {
			continue
		}

		code := cell(row, 0)
		name := cell(row, 1)
		department := cell(row, 2)
		position := cell(row, 3)
		pin := cell(row, 4)
		status := strings.ToLower(cell(row, 5))

		if code == "" && name == "" && department == "" && position == "" && pin == "" && status == "" {
			continue
		}

		var reason string
		switch {
		case code == "" || name == "" || pin == "":
			reason = "employee code, full name and PIN are required"
		case !codeRegex.MatchString(code):
			reason = fmt.Sprintf("invalid employee code %q", code)
		case !pinRegex.MatchString(pin):
			reason = "PIN must be 4 digits"
		case status != "" && status != entity.WorkerActive && status != entity.WorkerInactive && status != entity.WorkerSuspended:
			reason = fmt.Sprintf("unknown status %q", status)
		}
		if reason == "" {
			if prev, ok := seen[code]; ok {
				reason = fmt.Sprintf("employee code %s repeats row %d", code, prev)
			}
		}
		if reason != "" {
			skipped = append(skipped, worker.ImportError{Row: rowNumber, Reason: reason})
			continue
		}

		seen[code] = rowNumber

		valid = append(valid, worker.ImportRow{
			Row: rowNumber,
			Request: worker.CreateRequest{
				EmployeeCode: &code,
				FullName:     &name,
				Department:   optional(department),
				Position:     optional(position),
				Status:       optional(status),
				PinCode:      &pin,
			},
		})
	}

	return valid, skipped, nil
}
