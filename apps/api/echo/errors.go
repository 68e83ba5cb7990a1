package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	ut "github.com/go-playground/universal-translator"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/dkamau/elimu/core"
	"github.com/dkamau/elimu/core/auth"
)

// Each failure kind maps to a distinct, non-overlapping message: a
// consumer can always tell "please log in" from "you lack permission"
// from "you already did this".
var (
	errUnauthorized         = echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	errAuthenticationFailed = echo.NewHTTPError(http.StatusBadRequest, "invalid credentials")
	errEmailNotVerified     = echo.NewHTTPError(http.StatusForbidden, "email address not verified")
	errAccountDeactivated   = echo.NewHTTPError(http.StatusForbidden, "account deactivated")
	errHttpForbidden        = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	errHttpNotFound         = echo.NewHTTPError(http.StatusNotFound, "not found")
	errCourseNotFound       = echo.NewHTTPError(http.StatusNotFound, "course not found")
	errAlreadyEnrolled      = echo.NewHTTPError(http.StatusBadRequest, "already enrolled in this course")
	errNotEnrolled          = echo.NewHTTPError(http.StatusNotFound, "not enrolled in this course")
	errProgressNotEnrolled  = echo.NewHTTPError(http.StatusForbidden, "not enrolled in this course")
)

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shut down the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			message = origErr.Message
		case validator.ValidationErrors:
			fldErrs := make(map[string]string, len(origErr))
			for _, vErr := range origErr {
				fldErrs[vErr.Field()] = vErr.Translate(translator)
			}
			code = http.StatusBadRequest
			message = fldErrs
		case *core.ValidationError:
			if origErr.Fields != nil {
				fldErrs := make(map[string]string, len(origErr.Fields))
				for _, fErr := range origErr.Fields {
					fldErrs[fErr.Field] = fErr.Error
				}
				message = fldErrs
			} else {
				message = origErr.Error()
			}
			code = http.StatusBadRequest
		default:
			// leftover taxonomy errors not mapped by a handler
			switch origErr {
			case auth.ErrUnauthenticated, auth.ErrInvalidToken, auth.ErrNoSession:
				code = http.StatusUnauthorized
				message = errUnauthorized.Message
			case auth.ErrForbidden:
				code = http.StatusForbidden
				message = errHttpForbidden.Message
			default: // any other error is a server error
				code = http.StatusInternalServerError
				msg := http.StatusText(http.StatusInternalServerError)
				message = msg

				args := []interface{}{errors.Wrap(err, msg)}
				if ident := getContextIdentity(ctx); !ident.IsZero() {
					args = append(args, ident)
				}
				logger.Error(msg, args...)

				// shutting down...
				if core.IsShutdown(err) {
					signalShutdown()
				}
			}
		}

		if ctx.Echo().Debug {
			message = err.Error()
		}
		if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}
