package httpapp

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/google/uuid"
	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
	"github.com/open-gsa/gsa/internal/config"
	"github.com/open-gsa/gsa/internal/gmp"
	"github.com/open-gsa/gsa/internal/http/handlers"
	"github.com/open-gsa/gsa/internal/listview"
	"github.com/open-gsa/gsa/internal/logging"
	"github.com/open-gsa/gsa/internal/refresh"
)

const maxRequestIDLength = 128

// EchoServer is the HTTP server wrapper.
type EchoServer struct {
	h *handlers.Handlers
	e *echo.Echo
}

// Options carries the dependencies of the console server.
type Options struct {
	Config   config.Config
	Client   *gmp.Client
	Sessions *scs.SessionManager
	Hub      *refresh.Hub
	// Scheduler drives live views; nil uses wall-clock timers.
	Scheduler refresh.Scheduler
	Logger    *slog.Logger
}

// NewEchoServer creates a new HTTP server.
func NewEchoServer(opts Options) (*EchoServer, error) {
	if opts.Client == nil {
		return nil, errors.New("http: gmp client is required")
	}
	if opts.Sessions == nil {
		return nil, errors.New("http: session manager is required")
	}
	logger := logging.Component(opts.Logger, "http")
	hub := opts.Hub
	if hub == nil {
		hub = refresh.NewHub(opts.Logger)
	}

	h := &handlers.Handlers{
		Cfg:       opts.Config,
		Client:    opts.Client,
		Sessions:  opts.Sessions,
		Lists:     listview.NewStateStore(opts.Sessions),
		Hub:       hub,
		Scheduler: opts.Scheduler,
		Logger:    opts.Logger,
	}
	e := echo.New()
	e.Logger = logger
	es := &EchoServer{h: h, e: e}
	e.HTTPErrorHandler = es.httpErrorHandler
	e.Use(requestIDMiddleware)
	e.Use(middleware.Recover())
	es.registerRoutes()
	return es, nil
}

func (es *EchoServer) registerRoutes() {
	es.e.GET("/healthz", es.h.HandleHealthz)

	app := es.e.Group("")
	app.Use(middleware.CSRFWithConfig(middleware.CSRFConfig{
		TokenLookup:    "header:" + echo.HeaderXCSRFToken + ",form:csrf",
		CookiePath:     "/",
		CookieHTTPOnly: true,
		CookieSameSite: http.SameSiteLaxMode,
	}))
	app.GET("/", func(c *echo.Context) error {
		return c.Redirect(http.StatusFound, "/reports")
	})
	app.GET("/vulns/dashboard", es.h.HandleVulnsDashboard)

	for _, page := range handlers.Pages() {
		base := page.BaseURL()
		app.GET(base, es.h.HandleList(page))
		app.POST(base+"/details/toggle-all", es.h.HandleToggleAll(page))
		app.POST(base+"/details/:id/toggle", es.h.HandleToggleDetails(page))
		app.GET(base+"/:id", es.h.HandleEntity(page))
		app.GET(base+"/:id/live", es.h.HandleEntityLive(page))
		app.POST(base+"/:id/reload", es.h.HandleEntityReload(page))
		app.POST(base+"/:id/delete", es.h.HandleEntityDelete(page))
		app.POST(base+"/:id/clone", es.h.HandleEntityClone(page))
		if page.EntityType == gmp.TypeTag {
			app.POST(base+"/:id/enable", es.h.HandleTagActive(page, true))
			app.POST(base+"/:id/disable", es.h.HandleTagActive(page, false))
		}
	}

	es.e.Static("/static", "web/static")
}

// Handler is the console with session loading and saving around every
// request, wrapped in the access log.
func (es *EchoServer) Handler() http.Handler {
	return accessLog(es.e.Logger, es.h.Sessions.LoadAndSave(es.e))
}

// Hub is the registry of live detail views.
func (es *EchoServer) Hub() *refresh.Hub {
	return es.h.Hub
}

func (es *EchoServer) httpErrorHandler(c *echo.Context, err error) {
	if err == nil {
		return
	}

	status := httpStatusFromError(err)
	var writeErr error
	switch status {
	case http.StatusNotFound:
		writeErr = handlers.RenderNotFound(c)
	case http.StatusInternalServerError:
		writeErr = es.h.RenderError(c, err)
	default:
		if status >= http.StatusInternalServerError {
			requestID, _ := c.Get(handlers.ContextKeyRequestID).(string)
			c.Logger().Error("http error", "request_id", requestID, "status", status, "error", err)
		}
		writeErr = c.String(status, http.StatusText(status))
	}
	if writeErr != nil {
		c.Logger().Error("write error response", "error", writeErr)
	}
}

type statusCoder interface {
	StatusCode() int
}

func httpStatusFromError(err error) int {
	var sc statusCoder
	if errors.As(err, &sc) {
		if code := sc.StatusCode(); code >= 400 && code <= 599 {
			return code
		}
	}
	if gmp.IsNotFound(err) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func requestIDMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c *echo.Context) error {
		id := strings.TrimSpace(c.Request().Header.Get(echo.HeaderXRequestID))
		if id == "" || len(id) > maxRequestIDLength {
			id = uuid.NewString()
		}
		c.Set(handlers.ContextKeyRequestID, id)
		c.Response().Header().Set(echo.HeaderXRequestID, id)
		return next(c)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (r *statusRecorder) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(b)
	r.bytes += n
	return n, err
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

func accessLog(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)

		status := rec.status
		if status == 0 {
			status = http.StatusOK
		}
		level := slog.LevelInfo
		if status >= http.StatusInternalServerError {
			level = slog.LevelError
		} else if r.URL.Path == "/healthz" {
			level = slog.LevelDebug
		}
		logger.Log(r.Context(), level, "http request",
			"request_id", w.Header().Get(echo.HeaderXRequestID),
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"bytes", rec.bytes,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}
