package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
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
	logsvc "github.com/dkamau/elimu/services/logger"
	"github.com/dkamau/elimu/storage/database"
	"github.com/dkamau/elimu/storage/database/pgxrepos"
	sessionstore "github.com/dkamau/elimu/storage/session"
)

func main() {
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	conf, err := core.NewConfig()
	if err != nil {
		stdLogger.Fatalf("loading config: %v", err)
	}

	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	defer logger.Close()

	if err := run(conf, logger); err != nil {
		logger.Fatal("", err)
	}
}

func run(conf *core.Config, logger core.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// set up DB
	db, err := database.Open(ctx, conf)
	if err != nil {
		return err
	}
	defer db.Close()

	// set up validation
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	validate := validator.New()
	core.InitValidators(validate, translator)

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf)
	} else {
		mailSvc = emailsvc.NewSendgridService(logger, conf)
	}
	usrSvc := user.NewService(pgxrepos.NewUserRepository(db), mailSvc, logger, conf)
	crsSvc := course.NewService(pgxrepos.NewCourseRepository(db))
	enrSvc := enroll.NewService(pgxrepos.NewEnrollRepository(db), crsSvc, conf.Server.StoreTimeout)

	// set up auth
	tokens := auth.NewTokenAuthority([]byte(conf.SecretKey), conf.TokenIssuer(), conf.TokenAudience(), conf.TokenExpirationDelta)
	redisClient := sessionstore.NewRedisClient(conf)
	defer redisClient.Close()
	sessions := auth.NewSessionManager(sessionstore.NewRedisStore(redisClient), conf.SessionExpirationDelta, conf.Server.StoreTimeout)
	broker := auth.NewBroker(tokens, sessions)

	// start API server
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	app := echoapi.NewServer(conf.Server.Address(), shutdown, &echoapi.Deps{
		Conf:       conf,
		Logger:     logger,
		UserSvc:    usrSvc,
		CourseSvc:  crsSvc,
		EnrollSvc:  enrSvc,
		Broker:     broker,
		Sessions:   sessions,
		Tokens:     tokens,
		Validate:   validate,
		Translator: translator,
	})

	serverErrs := make(chan error, 1)
	go func() {
		logger.Info("server listening on " + conf.Server.Address())
		serverErrs <- app.Start()
	}()

	select {
	case err := <-serverErrs:
		return err
	case sig := <-shutdown:
		logger.Info("shutting down: " + sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()
		if err := app.Stop(ctx); err != nil {
			logger.Error("could not stop server gracefully", err)
			return err
		}
	}
	return nil
}
