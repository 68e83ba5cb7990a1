package echoapi

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/dkamau/elimu/core"
	"github.com/dkamau/elimu/core/auth"
	"github.com/dkamau/elimu/core/user"
)

const (
	// ClientProfileHeader carries the declared client-capability signal
	// the broker classifies on.
	ClientProfileHeader = "X-Client-Profile"

	// SessionCookieName holds the opaque session handle on the session path.
	SessionCookieName = "elimu_session"

	contextIdentityKey = "identity"
)

type authApi struct {
	usrSvc   *user.Service
	sessions *auth.SessionManager
	tokens   *auth.TokenAuthority
	validate *validator.Validate
	conf     *core.Config
}

func registerAuthAPI(g *echo.Group, deps *Deps) {
	api := authApi{
		usrSvc:   deps.UserSvc,
		sessions: deps.Sessions,
		tokens:   deps.Tokens,
		validate: deps.Validate,
		conf:     deps.Conf,
	}

	ag := g.Group("/auth")
	ag.POST("/login", api.login)
	ag.POST("/logout", api.logout)
}

// Handlers

func (api *authApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := api.usrSvc.Authenticate(ctx.Request().Context(), data.Email, data.Password)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return errAuthenticationFailed
		}
		return errors.Wrap(err, "authenticating")
	}
	if !usr.IsActive {
		return errAccountDeactivated
	}
	if !usr.EmailVerified {
		return errEmailNotVerified
	}

	usr, err = api.usrSvc.SetLastLogin(ctx.Request().Context(), usr)
	if err != nil {
		return errors.Wrap(err, "setting lastLogin")
	}
	ident := usr.Identity()

	// exactly one of the two mechanisms serves this client
	switch auth.ClassifyClient(ctx.Request().Header.Get(ClientProfileHeader)) {
	case auth.TokenPath:
		token, err := api.tokens.Issue(ident)
		if err != nil {
			return errors.Wrap(err, "issuing token")
		}
		return ctx.JSON(http.StatusOK, LoginResponse{Token: token, User: ident})

	default: // auth.SessionPath
		s, err := api.sessions.Create(ctx.Request().Context(), ident)
		if err != nil {
			return errors.Wrap(err, "creating session")
		}
		setSessionCookie(ctx, s.ID, s.ExpiresAt, api.conf)
		return ctx.JSON(http.StatusOK, LoginResponse{User: ident})
	}
}

// logout destroys the server-held session; on the token path the
// credential stays valid until expiry and is discarded client-side.
func (api *authApi) logout(ctx echo.Context) error {
	if auth.ClassifyClient(ctx.Request().Header.Get(ClientProfileHeader)) == auth.SessionPath {
		if cookie, err := ctx.Cookie(SessionCookieName); err == nil {
			if err := api.sessions.Destroy(ctx.Request().Context(), cookie.Value); err != nil {
				return errors.Wrap(err, "destroying session")
			}
		}
		clearSessionCookie(ctx, api.conf)
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Logged out."})
}

// Helpers

// credentialsFromRequest collects the request metadata the broker
// classifies; it never verifies anything itself.
func credentialsFromRequest(ctx echo.Context) auth.Credentials {
	creds := auth.Credentials{
		ClientProfile: ctx.Request().Header.Get(ClientProfileHeader),
	}
	if h := ctx.Request().Header.Get(echo.HeaderAuthorization); len(h) > len("Bearer ") && h[:len("Bearer ")] == "Bearer " {
		creds.Token = h[len("Bearer "):]
	}
	if cookie, err := ctx.Cookie(SessionCookieName); err == nil {
		creds.SessionID = cookie.Value
	}
	return creds
}

func getContextIdentity(ctx echo.Context) auth.Identity {
	if ident, ok := ctx.Get(contextIdentityKey).(auth.Identity); ok {
		return ident
	}
	return auth.Identity{}
}

func setSessionCookie(ctx echo.Context, sessionID string, expiresAt time.Time, conf *core.Config) {
	ctx.SetCookie(&http.Cookie{
		Name:     SessionCookieName,
		Value:    sessionID,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   !conf.Debug,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearSessionCookie(ctx echo.Context, conf *core.Config) {
	ctx.SetCookie(&http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   !conf.Debug,
		SameSite: http.SameSiteLaxMode,
	})
}

type (
	LoginRequest struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}

	LoginResponse struct {
		Token string        `json:"token,omitempty"`
		User  auth.Identity `json:"user"`
	}

	SuccessResponse struct {
		Success string `json:"success"`
	}
)

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.Email = core.CleanString(lr.Email, true /* lower */)
	return validate.Struct(lr)
}
