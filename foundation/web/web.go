// Package web is a thin layer over gin that lets handlers return errors and
// share one response format.
package web

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Handler handles a request and returns an error the app can log.
type Handler func(c *Context) error

// Middleware wraps a Handler with extra behaviour (auth, metrics, ...).
type Middleware func(Handler) Handler

// App is the entrypoint of the http application. It embeds the gin engine
// so plain gin routes (static files, health checks) can live next to
// web handlers.
type App struct {
	*gin.Engine
	log *log.Logger
	mw  []Middleware
}

// NewApp builds an App with request logging and panic recovery installed.
func NewApp(logger *log.Logger, mw ...Middleware) *App {
	engine := gin.New()

	app := App{
		Engine: engine,
		log:    logger,
		mw:     mw,
	}

	engine.Use(gin.Recovery(), app.requestLogger())

	return &app
}

// Log returns the application logger.
func (a *App) Log() *log.Logger {
	return a.log
}

// Handle mounts handler for the given method and path. Route middleware runs
// after the application wide middleware.
func (a *App) Handle(method string, path string, handler Handler, mw ...Middleware) {
	handler = wrapMiddleware(mw, handler)
	handler = wrapMiddleware(a.mw, handler)

	h := func(gc *gin.Context) {
		c := NewContext(gc, a.log)

		if err := handler(c); err != nil {
			a.log.Printf("%s %s : unhandled error: %+v", method, path, err)
		}
	}

	a.Engine.Handle(method, path, h)
}

func (a *App) Get(path string, handler Handler, mw ...Middleware) {
	a.Handle(http.MethodGet, path, handler, mw...)
}

func (a *App) Post(path string, handler Handler, mw ...Middleware) {
	a.Handle(http.MethodPost, path, handler, mw...)
}

func (a *App) Put(path string, handler Handler, mw ...Middleware) {
	a.Handle(http.MethodPut, path, handler, mw...)
}

func (a *App) Patch(path string, handler Handler, mw ...Middleware) {
	a.Handle(http.MethodPatch, path, handler, mw...)
}

func (a *App) Delete(path string, handler Handler, mw ...Middleware) {
	a.Handle(http.MethodDelete, path, handler, mw...)
}

func (a *App) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		a.log.Printf("%s %s -> %d (%s) %s",
			c.Request.Method,
			c.Request.URL.Path,
			c.Writer.Status(),
			time.Since(start),
			c.ClientIP(),
		)
	}
}

// wrapMiddleware wraps handler so that mw[0] is the outermost layer.
func wrapMiddleware(mw []Middleware, handler Handler) Handler {
	for i := len(mw) - 1; i >= 0; i-- {
		if mw[i] != nil {
			handler = mw[i](handler)
		}
	}

	return handler
}

// Context carries the gin context together with the request context that
// middleware enrich (claims, deadlines).
type Context struct {
	*gin.Context
	Ctx context.Context

	log       *log.Logger
	paramErrs []FieldError
	queryErrs []FieldError
}

// NewContext wraps a gin context.
func NewContext(gc *gin.Context, logger *log.Logger) *Context {
	ctx := context.Background()
	if gc.Request != nil {
		ctx = gc.Request.Context()
	}

	return &Context{
		Context: gc,
		Ctx:     ctx,
		log:     logger,
	}
}

// Logf logs through the application logger.
func (c *Context) Logf(format string, args ...interface{}) {
	if c.log != nil {
		c.log.Printf(format, args...)
	}
}

// Respond writes data as JSON with the given status.
func (c *Context) Respond(data interface{}, statusCode int) error {
	if statusCode == http.StatusNoContent || data == nil {
		c.Status(statusCode)
		return nil
	}

	c.JSON(statusCode, data)

	return nil
}

// RespondError converts err into the error response. Errors that are not a
// *Error are hidden behind a 500.
func (c *Context) RespondError(err error) error {
	var webErr *Error
	if ok := asError(err, &webErr); ok {
		if webErr.Status >= http.StatusInternalServerError && c.log != nil {
			c.log.Printf("%s %s : %+v", c.Request.Method, c.Request.URL.Path, webErr.Err)
		}

		c.AbortWithStatusJSON(webErr.Status, ErrorResponse{
			Error:  webErr.Error(),
			Fields: webErr.Fields,
			Status: false,
		})

		return nil
	}

	if c.log != nil {
		c.log.Printf("%s %s : %+v", c.Request.Method, c.Request.URL.Path, err)
	}

	c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{
		Error:  http.StatusText(http.StatusInternalServerError),
		Status: false,
	})

	return nil
}
