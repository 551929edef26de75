package service

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"

	"laberion/backend/internal/repository/postgres/report"
)

// MonthBuilder derives month reports without checking the caller.
type MonthBuilder interface {
	Build(ctx context.Context, filter report.Filter) ([]report.MonthResponse, error)
}

const ExportFolder = "exports"

// ExportJob writes last month's workbook into the media dir on a cron
// schedule.
type ExportJob struct {
	builder  MonthBuilder
	mediaDir string
	loc      *time.Location
	log      *log.Logger
	now      func() time.Time
	cron     *cron.Cron
}

func NewExportJob(builder MonthBuilder, mediaDir string, loc *time.Location, logger *log.Logger) *ExportJob {
	if loc == nil {
		loc = time.UTC
	}
	return &ExportJob{
		builder:  builder,
		mediaDir: mediaDir,
		loc:      loc,
		log:      logger,
		now:      time.Now,
	}
}

// Start schedules the job. The schedule is a standard five field cron
// expression evaluated in the job's location.
func (j *ExportJob) Start(schedule string) error {
	c := cron.New(
		cron.WithLocation(j.loc),
		cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)),
	)

	_, err := c.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		path, err := j.Run(ctx)
		if err != nil {
			j.log.Printf("export job: %v", err)
			return
		}
		j.log.Printf("export job: wrote %s", path)
	})
	if err != nil {
		return errors.Wrapf(err, "scheduling export %q", schedule)
	}

	j.cron = c
	c.Start()
	j.log.Printf("export job: started schedule=%q", schedule)

	return nil
}

// Stop waits for a running export to finish.
func (j *ExportJob) Stop() {
	if j.cron == nil {
		return
	}
	<-j.cron.Stop().Done()
}

// PreviousMonth returns the month before the one containing now.
func PreviousMonth(now time.Time) (int, time.Month) {
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	prev := first.AddDate(0, -1, 0)
	return prev.Year(), prev.Month()
}

// Run exports the previous month and returns the written path relative to
// the media dir.
func (j *ExportJob) Run(ctx context.Context) (string, error) {
	year, month := PreviousMonth(j.now().In(j.loc))

	reports, err := j.builder.Build(ctx, report.Filter{Year: year, Month: month})
	if err != nil {
		return "", errors.Wrap(err, "building month")
	}

	f, err := MonthlyReport(year, month, reports)
	if err != nil {
		return "", err
	}
	defer f.Close()

	dir := filepath.Join(j.mediaDir, ExportFolder)
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return "", errors.Wrap(err, "creating export folder")
	}

	name := MonthlyReportName(year, month)
	if err := f.SaveAs(filepath.Join(dir, name)); err != nil {
		return "", errors.Wrap(err, "saving export")
	}

	return filepath.ToSlash(filepath.Join(ExportFolder, name)), nil
}
