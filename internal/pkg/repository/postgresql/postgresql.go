// Package postgresql holds the database handle every repository embeds.
package postgresql

import (
	"context"
	"database/sql"
	"net"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"

	"laberion/backend/foundation/web"
	"laberion/backend/internal/auth"
)

type Options struct {
	User       string
	Password   string
	Host       string
	Port       string
	Name       string
	DisableTLS bool
	Debug      bool
}

type Database struct {
	*bun.DB
}

// New opens a connection pool and checks the server answers.
func New(ctx context.Context, opt Options) (*Database, error) {
	connector := pgdriver.NewConnector(
		pgdriver.WithAddr(net.JoinHostPort(opt.Host, opt.Port)),
		pgdriver.WithUser(opt.User),
		pgdriver.WithPassword(opt.Password),
		pgdriver.WithDatabase(opt.Name),
		pgdriver.WithInsecure(opt.DisableTLS),
		pgdriver.WithTimeout(5*time.Second),
		pgdriver.WithApplicationName("attendance"),
	)

	sqldb := sql.OpenDB(connector)
	sqldb.SetMaxOpenConns(25)
	sqldb.SetMaxIdleConns(25)
	sqldb.SetConnMaxIdleTime(5 * time.Minute)

	db := bun.NewDB(sqldb, pgdialect.New())
	if opt.Debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "pinging database")
	}

	return &Database{DB: db}, nil
}

// NewFromDB wraps an already open bun handle.
func NewFromDB(db *bun.DB) *Database {
	return &Database{DB: db}
}

// CheckClaims returns the claims of the authenticated account. When roles
// are given the account must hold one of them.
func (d Database) CheckClaims(ctx context.Context, roles ...string) (auth.Claims, error) {
	claims, ok := ctx.Value(auth.Key).(auth.Claims)
	if !ok {
		return auth.Claims{}, web.NewRequestError(errors.New("claims missing from context"), http.StatusUnauthorized)
	}

	if len(roles) > 0 && !claims.Authorized(roles...) {
		return auth.Claims{}, web.NewRequestError(errors.New("attempted action is not allowed"), http.StatusForbidden)
	}

	return claims, nil
}

// ValidateStruct checks the named fields of s are set and its validate tags
// hold.
func (d Database) ValidateStruct(s interface{}, fields ...string) error {
	if errs := web.RequiredFields(s, fields...); len(errs) > 0 {
		return web.NewFieldsError(errors.New("required fields are missing"), http.StatusBadRequest, errs)
	}

	if errs := web.ValidateFields(s); len(errs) > 0 {
		return web.NewFieldsError(errors.New("validation failed"), http.StatusBadRequest, errs)
	}

	return nil
}

// DeleteRow soft deletes the row with the given id.
func (d Database) DeleteRow(ctx context.Context, table string, id int, deletedBy int) error {
	res, err := d.NewUpdate().
		Table(table).
		Set("deleted_at = ?", time.Now()).
		Set("deleted_by = ?", deletedBy).
		Where("deleted_at IS NULL AND id = ?", id).
		Exec(ctx)
	if err != nil {
		return web.NewRequestError(errors.Wrapf(err, "deleting %s", table), http.StatusInternalServerError)
	}

	if n, _ := res.RowsAffected(); n == 0 {
		return web.NewRequestError(errors.Errorf("%s %d not found", table, id), http.StatusNotFound)
	}

	return nil
}
