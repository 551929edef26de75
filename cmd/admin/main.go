// This program performs administrative tasks for the attendance service.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ardanlabs/conf"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"

	"laberion/backend/internal/commands"
	"laberion/backend/internal/pkg/config"
	"laberion/backend/internal/pkg/repository/postgresql"
	"laberion/backend/internal/repository/postgres/user"
)

// build is the git version of this program. It is set using build flags in
// the makefile.
var build = "develop"

func main() {
	if err := run(); err != nil {
		if errors.Cause(err) != commands.ErrHelp {
			log.Printf("error: %s", err)
		}
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	var cfg struct {
		conf.Version
		Args   conf.Args
		Config string `conf:"default:config.yaml"`
		DB     struct {
			Debug bool `conf:"default:false"`
		}
		Seed struct {
			Workers int    `conf:"default:10"`
			Pin     string `conf:"default:1234"`
		}
	}
	cfg.Version.SVN = build
	cfg.Version.Desc = "attendance admin: migrate | seed | useradd <login> <password> <role> [full name]"

	const prefix = "ATTENDANCE"
	if err := conf.Parse(os.Args[1:], prefix, &cfg); err != nil {
		switch err {
		case conf.ErrHelpWanted:
			usage, err := conf.Usage(prefix, &cfg)
			if err != nil {
				return errors.Wrap(err, "generating config usage")
			}
			fmt.Println(usage)
			return nil
		case conf.ErrVersionWanted:
			version, err := conf.VersionString(prefix, &cfg)
			if err != nil {
				return errors.Wrap(err, "generating config version")
			}
			fmt.Println(version)
			return nil
		}
		return errors.Wrap(err, "parsing config")
	}

	settings, err := config.NewConfig(cfg.Config)
	if err != nil {
		return errors.Wrap(err, "loading settings")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	db, err := postgresql.New(ctx, postgresql.Options{
		User:       settings.DBUsername,
		Password:   settings.DBPassword,
		Host:       settings.DBHost,
		Port:       settings.DBPort,
		Name:       settings.DBName,
		DisableTLS: settings.DisableTLS,
		Debug:      cfg.DB.Debug,
	})
	if err != nil {
		return errors.Wrap(err, "connecting to db")
	}
	defer db.Close()

	switch cfg.Args.Num(0) {
	case "migrate":
		if err := commands.MigrateUP(ctx, db); err != nil {
			return errors.Wrap(err, "migrating database")
		}
		log.Println("migrations complete")

	case "seed":
		if err := commands.MigrateUP(ctx, db); err != nil {
			return errors.Wrap(err, "migrating database")
		}
		err := commands.Seed(ctx, db, commands.SeedOptions{
			Workers: cfg.Seed.Workers,
			Pin:     cfg.Seed.Pin,
			Loc:     settings.Location(),
		})
		if err != nil {
			return errors.Wrap(err, "seeding database")
		}

	case "useradd":
		login, password, role := cfg.Args.Num(1), cfg.Args.Num(2), cfg.Args.Num(3)
		if login == "" || password == "" || role == "" {
			fmt.Println("usage: admin useradd <login> <password> <role> [full name]")
			return commands.ErrHelp
		}

		request := user.CreateRequest{Login: &login, Password: &password, Role: &role}
		if name := cfg.Args.Num(4); name != "" {
			request.FullName = &name
		}

		created, err := user.NewRepository(db).Bootstrap(ctx, request)
		if err != nil {
			return errors.Wrap(err, "adding user")
		}
		log.Printf("user %s created with id %d", login, created.ID)

	default:
		fmt.Println("migrate: create or update the database schema")
		fmt.Println("seed: add demo workers, shifts and attendance for the current month")
		fmt.Println("useradd: add an ADMIN, KIOSK or DASHBOARD account")
		fmt.Println("provide a command to get more help.")
		return commands.ErrHelp
	}

	return nil
}
