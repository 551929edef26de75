package commands

import (
	"context"
	"log"
	"strings"

	"github.com/pkg/errors"

	"laberion/backend/internal/pkg/repository/postgresql"
)

// ErrHelp provides context that help was given.
var ErrHelp = errors.New("provided help")

type Scheme struct {
	Index       int
	Description string
	Query       string
}

var scheme = []Scheme{
	{
		Index:       1,
		Description: "CREATE TYPE \"user_role\" AS ENUM",
		Query: `
        CREATE TYPE "user_role" AS ENUM ('ADMIN', 'KIOSK', 'DASHBOARD');`,
	},
	{
		Index:       2,
		Description: "Create table: users.",
		Query: `
        CREATE TABLE IF NOT EXISTS users (
            id serial primary key,
            login text not null,
            full_name text,
            password text not null,
            role user_role not null,
            created_at timestamp default now(),
            created_by int references users(id),
            updated_at timestamp,
            updated_by int references users(id),
            deleted_at timestamp,
            deleted_by int references users(id)
        );
        CREATE UNIQUE INDEX IF NOT EXISTS users_login_uq ON users(login) WHERE deleted_at IS NULL;`,
	},
	{
		Index:       3,
		Description: "Create user with login: admin, password: 1",
		Query: `
        INSERT INTO users(login, full_name, role, password)
        SELECT 'admin', 'Administrator', 'ADMIN', '$2a$10$NKtnMwDPFSQLG6uOi4Zqheru5Ygbj9TWFHjpl478rRSaO5cJ9QuH2'
        WHERE NOT EXISTS (SELECT login FROM users WHERE login = 'admin');`,
	},
	{
		Index:       4,
		Description: "CREATE TYPE \"worker_status\" AS ENUM",
		Query: `
        CREATE TYPE "worker_status" AS ENUM ('active', 'inactive', 'suspended');`,
	},
	{
		Index:       5,
		Description: "Create table: workers.",
		Query: `
        CREATE TABLE IF NOT EXISTS workers (
            id serial primary key,
            employee_code text not null,
            full_name text not null,
            department text,
            position text,
            status worker_status not null default 'active',
            pin_code text not null,
            face_ref text,
            photo text,
            created_at timestamp default now(),
            created_by int references users(id),
            updated_at timestamp,
            updated_by int references users(id),
            deleted_at timestamp,
            deleted_by int references users(id)
        );
        CREATE UNIQUE INDEX IF NOT EXISTS workers_employee_code_uq ON workers(employee_code);`,
	},
	{
		Index:       6,
		Description: "CREATE TYPE \"event_type\", \"attendance_method\" AS ENUM",
		Query: `
        CREATE TYPE "event_type" AS ENUM ('check_in', 'check_out');
        CREATE TYPE "attendance_method" AS ENUM ('face', 'pin', 'manual');`,
	},
	{
		Index:       7,
		Description: "Create table: attendance_events.",
		Query: `
        CREATE TABLE IF NOT EXISTS attendance_events (
            id serial primary key,
            event_uid text not null unique,
            worker_id int not null references workers(id) ON DELETE CASCADE,
            event_type event_type not null,
            timestamp timestamptz not null,
            device_id text,
            method attendance_method not null,
            confidence double precision CHECK (confidence IS NULL OR (confidence >= 0 AND confidence <= 1)),
            note text,
            created_at timestamp default now(),
            created_by int references users(id)
        );
        CREATE INDEX IF NOT EXISTS attendance_events_worker_ts_idx ON attendance_events(worker_id, timestamp DESC, id DESC);
        CREATE INDEX IF NOT EXISTS attendance_events_ts_idx ON attendance_events(timestamp);`,
	},
	{
		Index:       8,
		Description: "Forbid updates on attendance_events.",
		Query: `
        CREATE OR REPLACE FUNCTION attendance_events_immutable() RETURNS trigger AS $$
        BEGIN
            RAISE EXCEPTION 'attendance events are append-only';
        END;
        $$ LANGUAGE plpgsql;

        CREATE TRIGGER attendance_events_no_update
            BEFORE UPDATE ON attendance_events
            FOR EACH ROW EXECUTE FUNCTION attendance_events_immutable();`,
	},
	{
		Index:       9,
		Description: "Create table: leaves.",
		Query: `
        CREATE TYPE "leave_status" AS ENUM ('pending', 'approved', 'rejected');
        CREATE TABLE IF NOT EXISTS leaves (
            id serial primary key,
            worker_id int not null references workers(id) ON DELETE CASCADE,
            start_date date not null,
            end_date date not null,
            reason text,
            status leave_status not null default 'pending',
            created_at timestamp default now(),
            created_by int references users(id),
            updated_at timestamp,
            updated_by int references users(id),
            deleted_at timestamp,
            deleted_by int references users(id),
            CHECK (end_date >= start_date)
        );
        CREATE INDEX IF NOT EXISTS leaves_worker_range_idx ON leaves(worker_id, start_date, end_date);`,
	},
	{
		Index:       10,
		Description: "Create table: shifts.",
		Query: `
        CREATE TABLE IF NOT EXISTS shifts (
            id serial primary key,
            worker_id int not null references workers(id) ON DELETE CASCADE,
            shift_date date not null,
            start_time time not null,
            end_time time not null,
            created_at timestamp default now(),
            created_by int references users(id),
            updated_at timestamp,
            updated_by int references users(id),
            deleted_at timestamp,
            deleted_by int references users(id),
            CHECK (end_time > start_time)
        );
        CREATE UNIQUE INDEX IF NOT EXISTS shifts_worker_day_uq ON shifts(worker_id, shift_date) WHERE deleted_at IS NULL;`,
	},
}

// Migrate runs every statement of the scheme regardless of the recorded
// version.
func Migrate(ctx context.Context, db *postgresql.Database) error {
	for _, s := range scheme {
		if _, err := db.ExecContext(ctx, s.Query); err != nil {
			return errors.Wrapf(err, "migrate %d (%s)", s.Index, s.Description)
		}
	}
	return nil
}

// MigrateUP applies the scheme entries newer than the version stored in
// schema_migrations. A failed entry marks the table dirty and is retried
// first on the next run.
func MigrateUP(ctx context.Context, db *postgresql.Database) error {
	var (
		version int
		dirty   bool
		er      *string
	)

	err := db.QueryRowContext(ctx, "SELECT version, dirty, error FROM schema_migrations").Scan(&version, &dirty, &er)
	if err != nil {
		if !strings.Contains(err.Error(), "42P01") {
			return errors.Wrap(err, "migrate schema_migrations scan")
		}

		if _, err = db.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS schema_migrations (version int not null, dirty bool not null, error text);
				DELETE FROM schema_migrations;
				INSERT INTO schema_migrations (version, dirty) values (0, false);
			`); err != nil {
			return errors.Wrap(err, "migrate schema_migrations create")
		}
		version = 0
		dirty = false
	}

	if dirty {
		for _, v := range scheme {
			if v.Index != version {
				continue
			}

			log.Printf("migrate: retrying dirty version %d (%s)", v.Index, v.Description)
			if _, err = db.ExecContext(ctx, v.Query); err != nil {
				if _, uerr := db.ExecContext(ctx, `UPDATE schema_migrations SET error = ?`, err.Error()); uerr != nil {
					return errors.Wrap(uerr, "migrate error")
				}
				return errors.Wrapf(err, "migrate error version: %d", version)
			}
			if _, err = db.ExecContext(ctx, `UPDATE schema_migrations SET dirty = false, error = null`); err != nil {
				return errors.Wrap(err, "migrate error")
			}
		}
	}

	for _, s := range scheme {
		if s.Index <= version {
			continue
		}

		log.Printf("migrate: applying %d (%s)", s.Index, s.Description)
		if _, err = db.ExecContext(ctx, s.Query); err != nil {
			if _, uerr := db.ExecContext(ctx, `UPDATE schema_migrations SET error = ?, version = ?, dirty = true`, err.Error(), s.Index); uerr != nil {
				return errors.Wrap(uerr, "migrate error")
			}
			return errors.Wrapf(err, "migrate error version: %d", s.Index)
		}
		if _, err = db.ExecContext(ctx, `UPDATE schema_migrations SET version = ?`, s.Index); err != nil {
			return errors.Wrap(err, "migrate error")
		}
	}

	return nil
}
