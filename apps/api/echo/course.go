package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/dkamau/elimu/core/course"
	"github.com/dkamau/elimu/core/enroll"
	"github.com/dkamau/elimu/core/user"
)

type courseApi struct {
	svc       *course.Service
	enrollSvc *enroll.Service
	validate  *validator.Validate
}

func registerCourseAPI(g *echo.Group, authed echo.MiddlewareFunc, deps *Deps) {
	api := courseApi{
		svc:       deps.CourseSvc,
		enrollSvc: deps.EnrollSvc,
		validate:  deps.Validate,
	}

	cg := g.Group("/courses")

	// public catalog
	cg.GET("", api.query)
	cg.GET("/:id", api.get)

	// authed endpoints
	ag := cg.Group("", authed)
	ag.POST("", api.create, requireRoles(user.RoleInstructor, user.RoleAdmin))
	ag.PUT("/:id", api.update, requireRoles(user.RoleInstructor, user.RoleAdmin))
	ag.POST("/:id/enroll", api.enroll)
	ag.DELETE("/:id/enroll", api.unenroll)
	ag.GET("/:id/progress", api.getProgress)
	ag.PUT("/:id/progress", api.updateProgress)
}

// Handlers

func (api *courseApi) query(ctx echo.Context) error {
	courses, err := api.svc.QueryAll(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying courses")
	}
	if courses == nil {
		courses = []course.Course{}
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *courseApi) get(ctx echo.Context) error {
	crs, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == course.ErrNotFound {
			return errCourseNotFound
		}
		return errors.Wrap(err, "finding course by ID")
	}
	return ctx.JSON(http.StatusOK, crs)
}

func (api *courseApi) create(ctx echo.Context) error {
	var data course.NewCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}
	if err := data.Validate(api.validate, api.svc); err != nil {
		return err
	}

	crs, err := api.svc.Create(ctx.Request().Context(), data, getContextIdentity(ctx).ID)
	if err != nil {
		return errors.Wrap(err, "creating course")
	}
	return ctx.JSON(http.StatusCreated, crs)
}

func (api *courseApi) update(ctx echo.Context) error {
	crs, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == course.ErrNotFound {
			return errCourseNotFound
		}
		return errors.Wrap(err, "finding course by ID")
	}

	var data course.UpdateCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateCourse")
	}
	if err := data.Validate(crs, api.validate); err != nil {
		return err
	}

	crs, err = api.svc.Update(ctx.Request().Context(), crs.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating course")
	}
	return ctx.JSON(http.StatusOK, crs)
}

func (api *courseApi) enroll(ctx echo.Context) error {
	mb, pg, err := api.enrollSvc.Enroll(ctx.Request().Context(), ctx.Param("id"), getContextIdentity(ctx).ID)
	if err != nil {
		switch errors.Cause(err) {
		case course.ErrNotFound:
			return errCourseNotFound
		case enroll.ErrAlreadyEnrolled:
			return errAlreadyEnrolled
		}
		return errors.Wrap(err, "enrolling in course")
	}
	return ctx.JSON(http.StatusOK, EnrollResponse{Membership: mb, Progress: pg})
}

func (api *courseApi) unenroll(ctx echo.Context) error {
	if err := api.enrollSvc.Unenroll(ctx.Request().Context(), ctx.Param("id"), getContextIdentity(ctx).ID); err != nil {
		if errors.Cause(err) == enroll.ErrNotEnrolled {
			return errNotEnrolled
		}
		return errors.Wrap(err, "unenrolling from course")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Unenrolled."})
}

func (api *courseApi) getProgress(ctx echo.Context) error {
	pg, err := api.enrollSvc.GetProgress(ctx.Request().Context(), ctx.Param("id"), getContextIdentity(ctx).ID)
	if err != nil {
		if errors.Cause(err) == course.ErrNotFound {
			return errCourseNotFound
		}
		return errors.Wrap(err, "finding progress")
	}
	return ctx.JSON(http.StatusOK, pg)
}

func (api *courseApi) updateProgress(ctx echo.Context) error {
	var data enroll.ProgressUpdate
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ProgressUpdate")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	pg, err := api.enrollSvc.UpdateProgress(ctx.Request().Context(), ctx.Param("id"), getContextIdentity(ctx).ID, data)
	if err != nil {
		switch errors.Cause(err) {
		case course.ErrNotFound:
			return errCourseNotFound
		case enroll.ErrNotEnrolled:
			return errProgressNotEnrolled
		}
		return errors.Wrap(err, "updating progress")
	}
	return ctx.JSON(http.StatusOK, pg)
}

type EnrollResponse struct {
	Membership enroll.Membership `json:"membership"`
	Progress   enroll.Progress   `json:"progress"`
}
