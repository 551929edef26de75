package service

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"laberion/backend/internal/ledger"
	"laberion/backend/internal/repository/postgres/report"
	"laberion/backend/internal/repository/postgres/worker"
)

const (
	SummarySheet = "Summary"
	DailySheet   = "Daily"
)

func str(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func header(f *excelize.File, sheet string, titles []string) error {
	style, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
	})
	if err != nil {
		return err
	}

	values := make([]interface{}, len(titles))
	for i, t := range titles {
		values[i] = t
	}
	if err := f.SetSheetRow(sheet, "A1", &values); err != nil {
		return err
	}

	last, err := excelize.CoordinatesToCellName(len(titles), 1)
	if err != nil {
		return err
	}
	return f.SetCellStyle(sheet, "A1", last, style)
}

func row(f *excelize.File, sheet string, n int, values []interface{}) error {
	start, err := excelize.CoordinatesToCellName(1, n)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, start, &values)
}

// dayMark is what a daily cell shows: worked hours, or a status letter.
func dayMark(d report.DayResponse) string {
	switch {
	case d.Status == string(ledger.StatusOnLeave):
		return "L"
	case d.Status == string(ledger.StatusAbsent):
		return "A"
	case d.Incomplete:
		return "?"
	case d.Anomaly:
		return "!"
	}
	return d.Hours
}

// MonthlyReport builds the workbook for one month: a summary row per worker
// and a worker by day grid.
func MonthlyReport(year int, month time.Month, reports []report.MonthResponse) (*excelize.File, error) {
	f := excelize.NewFile()

	if err := f.SetSheetName("Sheet1", SummarySheet); err != nil {
		return nil, errors.Wrap(err, "naming summary sheet")
	}
	if _, err := f.NewSheet(DailySheet); err != nil {
		return nil, errors.Wrap(err, "creating daily sheet")
	}

	summary := []string{"Employee code", "Full name", "Department", "Present", "Absent", "On leave", "Incomplete", "Anomalies", "Hours", "Hours (decimal)"}
	if err := header(f, SummarySheet, summary); err != nil {
		return nil, errors.Wrap(err, "writing summary header")
	}

	days := ledger.DaysIn(year, month)
	daily := []string{"Employee code", "Full name"}
	for d := 1; d <= days; d++ {
		daily = append(daily, fmt.Sprintf("%02d", d))
	}
	daily = append(daily, "Total")
	if err := header(f, DailySheet, daily); err != nil {
		return nil, errors.Wrap(err, "writing daily header")
	}

	for i, rep := range reports {
		n := i + 2

		hours, _ := rep.TotalDecimal.Float64()
		err := row(f, SummarySheet, n, []interface{}{
			str(rep.EmployeeCode),
			str(rep.FullName),
			str(rep.Department),
			rep.PresentDays,
			rep.AbsentDays,
			rep.OnLeaveDays,
			rep.IncompleteDays,
			rep.AnomalyDays,
			rep.TotalHours,
			hours,
		})
		if err != nil {
			return nil, errors.Wrap(err, "writing summary row")
		}

		values := []interface{}{str(rep.EmployeeCode), str(rep.FullName)}
		for _, d := range rep.Days {
			values = append(values, dayMark(d))
		}
		values = append(values, rep.TotalHours)
		if err := row(f, DailySheet, n, values); err != nil {
			return nil, errors.Wrap(err, "writing daily row")
		}
	}

	_ = f.SetColWidth(SummarySheet, "A", "C", 22)
	_ = f.SetColWidth(DailySheet, "B", "B", 26)

	return f, nil
}

// MonthlyReportName is the download name of a month workbook.
func MonthlyReportName(year int, month time.Month) string {
	return fmt.Sprintf("attendance-%04d-%02d.xlsx", year, month)
}

// WorkersSheet exports workers in the import layout, PIN left blank.
func WorkersSheet(workers []worker.GetListResponse) (*excelize.File, error) {
	f := excelize.NewFile()

	if err := f.SetSheetName("Sheet1", WorkerSheet); err != nil {
		return nil, errors.Wrap(err, "naming worker sheet")
	}
	if err := header(f, WorkerSheet, WorkerColumns); err != nil {
		return nil, errors.Wrap(err, "writing worker header")
	}

	for i, w := range workers {
		err := row(f, WorkerSheet, i+2, []interface{}{
			str(w.EmployeeCode),
			str(w.FullName),
			str(w.Department),
			str(w.Position),
			"",
			str(w.Status),
		})
		if err != nil {
			return nil, errors.Wrap(err, "writing worker row")
		}
	}

	_ = f.SetColWidth(WorkerSheet, "A", "D", 22)

	return f, nil
}
