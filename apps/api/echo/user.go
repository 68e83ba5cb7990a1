package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/dkamau/elimu/core"
	"github.com/dkamau/elimu/core/user"
)

type userApi struct {
	svc      *user.Service
	validate *validator.Validate
}

func registerUserAPI(g *echo.Group, authed echo.MiddlewareFunc, deps *Deps) {
	api := userApi{
		svc:      deps.UserSvc,
		validate: deps.Validate,
	}

	ug := g.Group("/users")

	// un-authed endpoints
	ug.POST("/register", api.register)
	ug.POST("/verify-email", api.verifyEmail)
	ug.POST("/password-reset", api.resetPassword)
	ug.POST("/password-reset-confirm", api.confirmPasswordReset)

	// authed endpoints
	ag := ug.Group("", authed)
	ag.GET("/me", api.me)
	ag.PUT("/me", api.updateMe)
	ag.GET("", api.query, requireRoles(user.RoleAdmin))
	ag.GET("/roles", api.queryRoles, requireRoles(user.RoleAdmin))
	ag.PUT("/:id/role", api.elevateRole, requireRoles(user.RoleAdmin))
}

// Handlers

func (api *userApi) register(ctx echo.Context) error {
	var data user.NewUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUser")
	}
	if err := data.Validate(api.validate, api.svc); err != nil {
		return err
	}

	usr, err := api.svc.Register(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "registering user")
	}
	return ctx.JSON(http.StatusCreated, usr)
}

func (api *userApi) verifyEmail(ctx echo.Context) error {
	var data user.VerifyUserEmail
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to VerifyUserEmail")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := api.svc.VerifyEmail(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "verifying email")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *userApi) resetPassword(ctx echo.Context) error {
	var data PasswordResetRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PasswordResetRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := api.svc.RequestPasswordReset(ctx.Request().Context(), data.Email); !(err == nil || errors.Cause(err) == user.ErrNotFound) {
		// do not return errors to attackers
		ctx.Logger().Errorf("%+v", errors.Wrap(err, "requesting password reset"))
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{
		Success: "If the email address supplied is associated with an active account on this system, " +
			"an email will arrive in your inbox shortly with instructions to reset your password.",
	})
}

func (api *userApi) confirmPasswordReset(ctx echo.Context) error {
	var data user.ResetUserPassword
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ResetUserPassword")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := api.svc.ResetPassword(ctx.Request().Context(), data); err != nil {
		return errors.Wrap(err, "resetting password")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Password has been reset with the new password."})
}

func (api *userApi) me(ctx echo.Context) error {
	usr, err := api.svc.GetByID(ctx.Request().Context(), getContextIdentity(ctx).ID)
	if err != nil {
		return errors.Wrap(err, "finding user by ID")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *userApi) updateMe(ctx echo.Context) error {
	ident := getContextIdentity(ctx)
	usr, err := api.svc.GetByID(ctx.Request().Context(), ident.ID)
	if err != nil {
		return errors.Wrap(err, "finding user by ID")
	}

	var data user.UpdateUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateUser")
	}
	if err := data.Validate(usr, api.validate); err != nil {
		return err
	}

	usr, err = api.svc.UpdateProfile(ctx.Request().Context(), usr.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating profile")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *userApi) query(ctx echo.Context) error {
	users, err := api.svc.QueryAll(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying users")
	}
	if users == nil {
		users = []user.User{}
	}
	return ctx.JSON(http.StatusOK, users)
}

func (api *userApi) queryRoles(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, user.Roles)
}

func (api *userApi) elevateRole(ctx echo.Context) error {
	var data ElevateRoleRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ElevateRoleRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := api.svc.ElevateRole(ctx.Request().Context(), getContextIdentity(ctx).ID, ctx.Param("id"), data.Role)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "elevating role")
	}
	return ctx.JSON(http.StatusOK, usr)
}

type (
	PasswordResetRequest struct {
		Email string `json:"email" validate:"required,email"`
	}

	ElevateRoleRequest struct {
		Role string `json:"role" validate:"required"`
	}
)

func (pr *PasswordResetRequest) Validate(validate *validator.Validate) error {
	pr.Email = core.CleanString(pr.Email, true /* lower */)
	return validate.Struct(pr)
}

func (er *ElevateRoleRequest) Validate(validate *validator.Validate) error {
	er.Role = core.CleanString(er.Role, true /* lower */)
	return validate.Struct(er)
}
