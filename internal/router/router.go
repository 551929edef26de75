package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"laberion/backend/foundation/web"
	"laberion/backend/internal/auth"
	"laberion/backend/internal/ledger"
	"laberion/backend/internal/middleware"
	"laberion/backend/internal/pkg/repository/postgresql"
	"laberion/backend/internal/recognition"
	"laberion/backend/internal/repository/postgres/attendance"
	"laberion/backend/internal/repository/postgres/department"
	"laberion/backend/internal/repository/postgres/leave"
	"laberion/backend/internal/repository/postgres/report"
	"laberion/backend/internal/repository/postgres/shift"
	"laberion/backend/internal/repository/postgres/user"
	"laberion/backend/internal/repository/postgres/worker"
	"laberion/backend/internal/repository/redis/tap"

	attendance_controller "laberion/backend/internal/controller/http/v1/attendance"
	auth_controller "laberion/backend/internal/controller/http/v1/auth"
	department_controller "laberion/backend/internal/controller/http/v1/department"
	file_controller "laberion/backend/internal/controller/http/v1/file"
	kiosk_controller "laberion/backend/internal/controller/http/v1/kiosk"
	leave_controller "laberion/backend/internal/controller/http/v1/leave"
	report_controller "laberion/backend/internal/controller/http/v1/report"
	shift_controller "laberion/backend/internal/controller/http/v1/shift"
	user_controller "laberion/backend/internal/controller/http/v1/user"
	worker_controller "laberion/backend/internal/controller/http/v1/worker"
)

type Router struct {
	*web.App
	postgresDB     *postgresql.Database
	redisDB        *redis.Client
	auth           *auth.Auth
	mediaDir       string
	allowedOrigins []string
	engine         *ledger.Engine
	recognition    *recognition.Client
	tap            *tap.Guard
}

func NewRouter(
	app *web.App,
	postgresDB *postgresql.Database,
	redisDB *redis.Client,
	auth *auth.Auth,
	mediaDir string,
	allowedOrigins []string,
	engine *ledger.Engine,
	recognition *recognition.Client,
	tap *tap.Guard,
) *Router {
	return &Router{
		app,
		postgresDB,
		redisDB,
		auth,
		mediaDir,
		allowedOrigins,
		engine,
		recognition,
		tap,
	}
}

// Init mounts every route on the app.
func (r Router) Init() {

	r.HandleMethodNotAllowed = true
	r.Use(middleware.CORSMiddleware(r.allowedOrigins))

	// - postgresql
	userPostgres := user.NewRepository(r.postgresDB)
	workerPostgres := worker.NewRepository(r.postgresDB)
	attendancePostgres := attendance.NewRepository(r.postgresDB)
	leavePostgres := leave.NewRepository(r.postgresDB)
	shiftPostgres := shift.NewRepository(r.postgresDB)
	reportPostgres := report.NewRepository(r.postgresDB, r.engine)
	departmentPostgres := department.NewRepository(r.postgresDB)

	// controller
	authController := auth_controller.NewController(userPostgres, r.auth)
	userController := user_controller.NewController(userPostgres)
	workerController := worker_controller.NewController(workerPostgres, r.recognition, r.mediaDir)
	attendanceController := attendance_controller.NewController(attendancePostgres, reportPostgres, r.engine)
	reportController := report_controller.NewController(reportPostgres, r.engine)
	leaveController := leave_controller.NewController(leavePostgres)
	shiftController := shift_controller.NewController(shiftPostgres)
	kioskController := kiosk_controller.NewController(workerPostgres, attendancePostgres, r.recognition, r.tap)
	fileController := file_controller.NewController(r.auth, r.mediaDir)
	departmentController := department_controller.NewController(departmentPostgres)

	admin := middleware.Authenticate(r.auth, auth.RoleAdmin)
	board := middleware.Authenticate(r.auth, auth.RoleAdmin, auth.RoleDashboard)
	kiosk := middleware.Authenticate(r.auth, auth.RoleKiosk)

	r.GET("/healthz", r.health)

	r.GET("/media/*filepath", fileController.File)
	r.HEAD("/media/*filepath", fileController.File)

	// #auth
	r.Post("/api/v1/sign-in", authController.SignIn)
	r.Post("/api/v1/refresh-token", authController.RefreshToken)

	// #user
	r.Get("/api/v1/user/list", userController.GetUserList, admin)
	r.Get("/api/v1/user/:id", userController.GetUserDetailById, admin)
	r.Post("/api/v1/user/create", userController.CreateUser, admin)
	r.Patch("/api/v1/user/:id", userController.UpdateUserColumns, admin)
	r.Delete("/api/v1/user/:id", userController.DeleteUser, admin)

	// #worker
	r.Get("/api/v1/worker/list", workerController.GetList, admin)
	r.Get("/api/v1/worker/export", workerController.Export, admin)
	r.Get("/api/v1/worker/badges", workerController.Badges, admin)
	r.Get("/api/v1/worker/:id", workerController.GetDetailById, admin)
	r.Get("/api/v1/worker/:id/badge", workerController.Badge, admin)
	r.Post("/api/v1/worker/create", workerController.Create, admin)
	r.Post("/api/v1/worker/import", workerController.Import, admin)
	r.Post("/api/v1/worker/:id/face", workerController.EnrollFace, admin)
	r.Delete("/api/v1/worker/:id/face", workerController.DeleteFaces, admin)
	r.Patch("/api/v1/worker/:id", workerController.UpdateColumns, admin)
	r.Delete("/api/v1/worker/:id", workerController.Delete, admin)

	// #department
	r.Get("/api/v1/department/list", departmentController.GetList, board)
	r.Patch("/api/v1/department/rename", departmentController.Rename, admin)

	// #attendance
	r.Get("/api/v1/attendance/list", attendanceController.GetList, board)
	r.Get("/api/v1/attendance/day", attendanceController.GetDay, board)
	r.Get("/api/v1/attendance/month", attendanceController.GetMonth, board)
	r.Get("/api/v1/attendance/:id", attendanceController.GetDetailById, admin)
	r.Post("/api/v1/attendance/manual", attendanceController.CreateManual, admin)

	// #report
	r.Get("/api/v1/report/monthly", reportController.GetMonthly, board)
	r.Get("/api/v1/report/monthly/export", reportController.ExportMonthly, board)
	r.Get("/api/v1/report/board", reportController.GetBoard, board)
	r.Get("/api/v1/report/exports", fileController.Exports, admin)

	// #media
	r.Get("/api/v1/media/link", fileController.Link, admin)

	// #leave
	r.Get("/api/v1/leave/list", leaveController.GetList, admin)
	r.Get("/api/v1/leave/:id", leaveController.GetDetailById, admin)
	r.Post("/api/v1/leave/create", leaveController.Create, admin)
	r.Patch("/api/v1/leave/:id/status", leaveController.UpdateStatus, admin)
	r.Delete("/api/v1/leave/:id", leaveController.Delete, admin)

	// #shift
	r.Get("/api/v1/shift/list", shiftController.GetList, board)
	r.Get("/api/v1/shift/:id", shiftController.GetDetailById, admin)
	r.Post("/api/v1/shift/create", shiftController.Create, admin)
	r.Patch("/api/v1/shift/:id", shiftController.UpdateColumns, admin)
	r.Delete("/api/v1/shift/:id", shiftController.Delete, admin)

	// #kiosk
	r.Post("/api/v1/kiosk/face", kioskController.Face, kiosk)
	r.Post("/api/v1/kiosk/pin", kioskController.Pin, kiosk)
}

// health reports the database state. Redis and the recognition service are
// reported but do not fail the check: kiosks still work with PIN entry.
func (r Router) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	status := http.StatusOK
	result := gin.H{"database": "ok", "redis": "ok", "recognition": "ok"}

	if err := r.postgresDB.PingContext(ctx); err != nil {
		status = http.StatusServiceUnavailable
		result["database"] = err.Error()
	}

	if r.redisDB == nil {
		result["redis"] = "disabled"
	} else if err := r.redisDB.Ping(ctx).Err(); err != nil {
		result["redis"] = err.Error()
	}

	if _, err := r.recognition.Health(ctx); err != nil {
		result["recognition"] = err.Error()
	}

	result["status"] = status == http.StatusOK
	c.JSON(status, result)
}
