package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/dkamau/elimu/core/auth"
)

// authMiddleware routes each request through the credential broker and
// stores the normalized identity in the request context. Every failure
// surfaces as 401: invalid tokens, missing sessions and unreachable
// stores all fail closed.
func authMiddleware(broker *auth.Broker) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			ident, err := broker.Authenticate(ctx.Request().Context(), credentialsFromRequest(ctx))
			if err != nil {
				switch errors.Cause(err) {
				case auth.ErrInvalidToken, auth.ErrNoSession, auth.ErrUnauthenticated:
					return errUnauthorized
				}
				return errors.Wrap(err, "authenticating request")
			}
			ctx.Set(contextIdentityKey, ident)
			return next(ctx)
		}
	}
}

// requireRoles applies the authorization gate; an empty role list allows
// any authenticated identity.
func requireRoles(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			switch auth.Authorize(getContextIdentity(ctx), roles...) {
			case auth.Allow:
				return next(ctx)
			case auth.Unauthenticated:
				return errUnauthorized
			default:
				return errHttpForbidden
			}
		}
	}
}
