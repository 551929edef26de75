package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ardanlabs/conf"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"laberion/backend/foundation/web"
	"laberion/backend/internal/auth"
	"laberion/backend/internal/ledger"
	"laberion/backend/internal/pkg/config"
	"laberion/backend/internal/pkg/repository/postgresql"
	"laberion/backend/internal/recognition"
	"laberion/backend/internal/repository/postgres/report"
	"laberion/backend/internal/repository/redis/tap"
	"laberion/backend/internal/router"
	"laberion/backend/internal/service"
)

// build is the git version of this program. It is set using build flags in
// the makefile.
var build = "develop"

func main() {
	logger := log.New(os.Stdout, "ATTENDANCE : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	if err := run(logger); err != nil {
		logger.Println("main: error:", err)
		os.Exit(1)
	}
}

func run(log *log.Logger) error {

	// =========================================================================
	// Configuration

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("main: .env: %v", err)
	}

	var cfg struct {
		conf.Version
		Web struct {
			APIHost         string        `conf:"default:0.0.0.0:8080"`
			ReadTimeout     time.Duration `conf:"default:30s"`
			WriteTimeout    time.Duration `conf:"default:60s"`
			ShutdownTimeout time.Duration `conf:"default:20s"`
		}
		Config   string `conf:"default:config.yaml"`
		MediaDir string `conf:"default:media"`
		DB       struct {
			Debug bool `conf:"default:false"`
		}
	}
	cfg.Version.SVN = build
	cfg.Version.Desc = "worker attendance and shift management"

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

	// =========================================================================
	// App Starting

	log.Printf("main: Started : Application initializing : version %q", build)
	defer log.Println("main: Completed")

	out, err := conf.String(&cfg)
	if err != nil {
		return errors.Wrap(err, "generating config for output")
	}
	log.Printf("main: Config :\n%v\n", out)

	settings, err := config.NewConfig(cfg.Config)
	if err != nil {
		return errors.Wrap(err, "loading settings")
	}

	if err := os.MkdirAll(cfg.MediaDir, os.ModePerm); err != nil {
		return errors.Wrap(err, "creating media dir")
	}

	// =========================================================================
	// Start Database

	log.Println("main: Initializing database support")

	ctx := context.Background()

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
	defer func() {
		log.Printf("main: Database Stopping : %s", settings.DBHost)
		db.Close()
	}()

	var redisDB *redis.Client
	if settings.Redis.Addr != "" {
		redisDB = redis.NewClient(&redis.Options{
			Addr:     settings.Redis.Addr,
			Password: settings.Redis.Password,
			DB:       settings.Redis.DB,
		})
		defer redisDB.Close()
	} else {
		log.Println("main: redis is not configured, duplicate taps are not filtered")
	}

	// =========================================================================
	// Start Services

	authenticator, err := auth.New(settings.JWTKey)
	if err != nil {
		return errors.Wrap(err, "constructing authenticator")
	}

	engine := ledger.NewEngine(settings.Location())
	recognizer := recognition.New(settings.Recognition.URL, settings.RecognitionTimeout(), settings.Recognition.Threshold)
	guard := tap.New(redisDB, settings.TapWindowDuration(), log)

	exports := service.NewExportJob(report.NewRepository(db, engine), cfg.MediaDir, settings.Location(), log)
	if err := exports.Start(settings.ExportSchedule); err != nil {
		return errors.Wrap(err, "starting export job")
	}
	defer exports.Stop()

	// =========================================================================
	// Start API Service

	log.Println("main: Initializing API support")

	app := web.NewApp(log)
	router.NewRouter(app, db, redisDB, authenticator, cfg.MediaDir, settings.AllowedOrigins, engine, recognizer, guard).Init()

	api := http.Server{
		Addr:         cfg.Web.APIHost,
		Handler:      app,
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		log.Printf("main: API listening on %s", api.Addr)
		serverErrors <- api.ListenAndServe()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err := <-serverErrors:
		return errors.Wrap(err, "server error")

	case sig := <-shutdown:
		log.Printf("main: %v : Start shutdown", sig)

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
		defer cancel()

		if err := api.Shutdown(ctx); err != nil {
			api.Close()
			return errors.Wrap(err, "could not stop server gracefully")
		}
	}

	return nil
}
