package echoapi

import (
	"context"
	"net/http"
	"os"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/dkamau/elimu/core"
	"github.com/dkamau/elimu/core/auth"
	"github.com/dkamau/elimu/core/course"
	"github.com/dkamau/elimu/core/enroll"
	"github.com/dkamau/elimu/core/user"
)

type (
	// Deps holds what the handlers need.
	Deps struct {
		Conf       *core.Config
		Logger     core.Logger
		UserSvc    *user.Service
		CourseSvc  *course.Service
		EnrollSvc  *enroll.Service
		Broker     *auth.Broker
		Sessions   *auth.SessionManager
		Tokens     *auth.TokenAuthority
		Validate   *validator.Validate
		Translator ut.Translator
	}

	Server interface {
		http.Handler
		Start() error
		Stop(context.Context) error
	}

	server struct {
		addr     string
		shutdown chan os.Signal
		deps     *Deps
		app      *echo.Echo
	}
)

var _ Server = (*server)(nil)

func NewServer(addr string, shutdown chan os.Signal, deps *Deps) Server {
	s := &server{
		addr:     addr,
		shutdown: shutdown,
		deps:     deps,
		app:      echo.New(),
	}
	s.setup()
	return s
}

func (s *server) setup() {
	conf := s.deps.Conf

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !conf.TestMode {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.signalShutdown)
	s.app.Debug = conf.Debug
	s.app.HideBanner = true

	s.app.GET("/", home)

	api := s.app.Group("/api")
	authed := authMiddleware(s.deps.Broker)

	registerAuthAPI(api, s.deps)
	registerUserAPI(api, authed, s.deps)
	registerCourseAPI(api, authed, s.deps)
}

func (s *server) Start() error {
	return s.app.Start(s.addr)
}

func (s *server) Stop(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

// signalShutdown asks main to gracefully bring the app down.
func (s *server) signalShutdown() {
	if s.shutdown != nil {
		s.shutdown <- syscall.SIGTERM
	}
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to Elimu API!")
}
