package tests

import (
	"os"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	echoapi "github.com/dkamau/elimu/apps/api/echo"
	"github.com/dkamau/elimu/core"
	"github.com/dkamau/elimu/core/auth"
	"github.com/dkamau/elimu/core/course"
	"github.com/dkamau/elimu/core/enroll"
	"github.com/dkamau/elimu/core/user"
	emailsvc "github.com/dkamau/elimu/services/email"
	"github.com/dkamau/elimu/storage/database/inmem"
	sessionstore "github.com/dkamau/elimu/storage/session"
)

var (
	conf *core.Config
	app  echoapi.Server

	usrRepo   = inmem.NewUserRepository()
	crsRepo   = inmem.NewCourseRepository()
	enrRepo   = inmem.NewEnrollRepository()
	sessStore = sessionstore.NewInMemStore()

	usrSvc   *user.Service
	crsSvc   *course.Service
	enrSvc   *enroll.Service
	tokens   *auth.TokenAuthority
	sessions *auth.SessionManager

	errUnauthorized = httpErr{Error: "authentication required"}
	errForbidden    = httpErr{Error: "permission denied"}
)

func TestMain(m *testing.M) {
	conf = &core.Config{
		Env:                           "TEST",
		TestMode:                      true,
		AppName:                       "Elimu",
		SecretKey:                     "secret-test-key",
		FrontendBaseURL:               "http://localhost:3000",
		DefaultFromName:               "Elimu",
		DefaultFromAddress:            "noreply@localhost",
		TokenExpirationDelta:          30 * 24 * time.Hour,
		SessionExpirationDelta:        14 * 24 * time.Hour,
		PasswordResetTimeoutDelta:     3 * 24 * time.Hour,
		EmailVerificationTimeoutDelta: 7 * 24 * time.Hour,
		Server:                        core.ServerConfig{StoreTimeout: 3 * time.Second},
	}

	// set up validation
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	validate := validator.New()
	core.InitValidators(validate, translator)

	// set up services
	mailSvc := emailsvc.NewConsoleServiceMock(conf)
	usrSvc = user.NewService(usrRepo, mailSvc, nopLogger{}, conf)
	crsSvc = course.NewService(crsRepo)
	enrSvc = enroll.NewService(enrRepo, crsSvc, conf.Server.StoreTimeout)

	// set up auth
	tokens = auth.NewTokenAuthority([]byte(conf.SecretKey), conf.TokenIssuer(), conf.TokenAudience(), conf.TokenExpirationDelta)
	sessions = auth.NewSessionManager(sessStore, conf.SessionExpirationDelta, conf.Server.StoreTimeout)
	broker := auth.NewBroker(tokens, sessions)

	// set up server
	app = echoapi.NewServer(
		"",  /* addr */
		nil, /* shutdown */
		&echoapi.Deps{
			Conf:       conf,
			Logger:     nopLogger{},
			UserSvc:    usrSvc,
			CourseSvc:  crsSvc,
			EnrollSvc:  enrSvc,
			Broker:     broker,
			Sessions:   sessions,
			Tokens:     tokens,
			Validate:   validate,
			Translator: translator,
		},
	)

	os.Exit(m.Run())
}
