package commands

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/pkg/errors"
	"github.com/uptrace/bun"
	"golang.org/x/crypto/bcrypt"

	"laberion/backend/internal/entity"
	"laberion/backend/internal/ledger"
	"laberion/backend/internal/pkg/repository/postgresql"
)

var (
	firstNames = []string{"Arben", "Besnik", "Blerina", "Dritan", "Elira", "Fatmir", "Gentiana", "Ilir", "Jonida", "Klodian", "Luljeta", "Mirela", "Ndriçim", "Orjela", "Petrit", "Rezarta", "Shpëtim", "Teuta", "Valbona", "Ëndrit"}
	lastNames  = []string{"Hoxha", "Berisha", "Kola", "Shala", "Krasniqi", "Gashi", "Dervishi", "Çela", "Leka", "Marku", "Basha", "Toska", "Bregu", "Meta", "Prifti"}

	departments = []string{"Warehouse", "Production", "Logistics", "Office"}
	positions   = []string{"Operator", "Loader", "Driver", "Supervisor", "Clerk"}
)

const (
	ShiftStart = "08:00"
	ShiftEnd   = "16:00"
)

type SeedOptions struct {
	Workers int
	Pin     string
	Now     time.Time
	Loc     *time.Location
	Rand    *rand.Rand
}

// Workers builds count active workers numbered from offset+1. Every worker
// gets the same PIN hash.
func Workers(rng *rand.Rand, offset, count int, pinHash string) []entity.Worker {
	workers := make([]entity.Worker, 0, count)
	for i := 1; i <= count; i++ {
		code := fmt.Sprintf("W-%03d", offset+i)
		name := firstNames[rng.Intn(len(firstNames))] + " " + lastNames[rng.Intn(len(lastNames))]
		department := departments[rng.Intn(len(departments))]
		position := positions[rng.Intn(len(positions))]
		status := entity.WorkerActive
		pin := pinHash

		workers = append(workers, entity.Worker{
			EmployeeCode: &code,
			FullName:     &name,
			Department:   &department,
			Position:     &position,
			Status:       &status,
			PinCode:      &pin,
		})
	}
	return workers
}

func clock(day time.Time, hm string, loc *time.Location) time.Time {
	t, _ := time.ParseInLocation("15:04", hm, loc)
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), 0, 0, loc)
}

// Schedule gives every worker a weekday shift for the month of now and the
// events of the days up to now. Some days are skipped to leave absences in
// the data.
func Schedule(rng *rand.Rand, workerIDs []int, now time.Time, loc *time.Location) ([]entity.Shift, []entity.AttendanceEvent) {
	now = now.In(loc)
	year, month := now.Year(), now.Month()
	entropy := ulid.Monotonic(rng, 0)

	var (
		shifts []entity.Shift
		events []entity.AttendanceEvent
	)

	for _, id := range workerIDs {
		for d := 1; d <= ledger.DaysIn(year, month); d++ {
			day := time.Date(year, month, d, 0, 0, 0, 0, loc)
			if day.Weekday() == time.Saturday || day.Weekday() == time.Sunday {
				continue
			}

			workerID, shiftDate := id, day
			start, end := ShiftStart, ShiftEnd
			shifts = append(shifts, entity.Shift{
				WorkerID:  &workerID,
				ShiftDate: &shiftDate,
				StartTime: &start,
				EndTime:   &end,
			})

			if day.After(now) || rng.Intn(100) < 8 {
				continue
			}

			in := clock(day, ShiftStart, loc).Add(time.Duration(rng.Intn(35)-15) * time.Minute)
			out := clock(day, ShiftEnd, loc).Add(time.Duration(rng.Intn(50)-10) * time.Minute)

			for _, e := range []struct {
				typ ledger.EventType
				ts  time.Time
			}{{ledger.CheckIn, in}, {ledger.CheckOut, out}} {
				if e.ts.After(now) {
					break
				}
				events = append(events, event(rng, entropy, id, e.typ, e.ts))
			}
		}
	}

	return shifts, events
}

func event(rng *rand.Rand, entropy *ulid.MonotonicEntropy, workerID int, typ ledger.EventType, ts time.Time) entity.AttendanceEvent {
	device := "seed-kiosk"
	e := entity.AttendanceEvent{
		EventUID:  ulid.MustNew(ulid.Timestamp(ts), entropy).String(),
		WorkerID:  workerID,
		EventType: string(typ),
		Timestamp: ts,
		DeviceID:  &device,
		Method:    string(ledger.MethodPin),
		CreatedAt: ts,
	}

	if rng.Intn(10) < 7 {
		confidence := 0.65 + rng.Float64()*0.34
		e.Method = string(ledger.MethodFace)
		e.Confidence = &confidence
	}

	return e
}

// Seed fills the database with a development fixture: workers, their
// shifts for the current month and check-in/out events up to now.
func Seed(ctx context.Context, db *postgresql.Database, opt SeedOptions) error {
	if opt.Workers <= 0 {
		opt.Workers = 10
	}
	if opt.Pin == "" {
		opt.Pin = "1234"
	}
	if opt.Loc == nil {
		opt.Loc = time.UTC
	}
	if opt.Now.IsZero() {
		opt.Now = time.Now()
	}
	if opt.Rand == nil {
		opt.Rand = rand.New(rand.NewSource(opt.Now.UnixNano()))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(opt.Pin), bcrypt.DefaultCost)
	if err != nil {
		return errors.Wrap(err, "hashing pin")
	}

	return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		offset, err := tx.NewSelect().Table("workers").Count(ctx)
		if err != nil {
			return errors.Wrap(err, "counting workers")
		}

		workers := Workers(opt.Rand, offset, opt.Workers, string(hash))
		for i := range workers {
			workers[i].CreatedAt = opt.Now
		}
		if _, err := tx.NewInsert().Model(&workers).Returning("id").Exec(ctx); err != nil {
			return errors.Wrap(err, "inserting workers")
		}

		ids := make([]int, 0, len(workers))
		for _, w := range workers {
			ids = append(ids, w.ID)
		}

		shifts, events := Schedule(opt.Rand, ids, opt.Now, opt.Loc)
		for i := range shifts {
			shifts[i].CreatedAt = opt.Now
		}
		if len(shifts) > 0 {
			if _, err := tx.NewInsert().Model(&shifts).Exec(ctx); err != nil {
				return errors.Wrap(err, "inserting shifts")
			}
		}
		if len(events) > 0 {
			if _, err := tx.NewInsert().Model(&events).Exec(ctx); err != nil {
				return errors.Wrap(err, "inserting events")
			}
		}

		log.Printf("seed: %d workers (PIN %s), %d shifts, %d events", len(workers), opt.Pin, len(shifts), len(events))
		return nil
	})
}
