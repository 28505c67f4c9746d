package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/workill/worknote/core/activity"
	"github.com/workill/worknote/core/course"
	"github.com/workill/worknote/core/student"
)

type courseApi struct {
	deps ServerDeps
}

func registerCourseAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := courseApi{deps: deps}

	cg := g.Group("/courses", jwt)
	cg.POST("", api.create, teacherMiddleware())
	cg.GET("", api.query)
	cg.POST("/join", api.join)
	cg.GET("/lookup", api.lookup)
	cg.GET("/:id", api.retrieve)
	cg.POST("/:id/share-code", api.ensureShareCode, teacherMiddleware())
	cg.GET("/:id/students", api.queryStudents)
	cg.GET("/:id/activities", api.queryActivities)
}

// Handlers

func (api *courseApi) create(ctx echo.Context) error {
	var data course.NewCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.deps.UserSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	crs, err := api.deps.CourseSvc.Create(ctx.Request().Context(), ctxUsr, data)
	if err != nil {
		if errors.Cause(err) == course.ErrCodeGenerationExhausted {
			return errCodeUnavailable
		}
		return errors.Wrap(err, "creating course")
	}

	return ctx.JSON(http.StatusCreated, crs)
}

func (api *courseApi) query(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	courses, err := api.deps.CourseSvc.Query(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "querying courses")
	}
	if courses == nil {
		courses = []course.Course{}
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *courseApi) retrieve(ctx echo.Context) error {
	crs, err := api.deps.CourseSvc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding course by ID")
	}
	return ctx.JSON(http.StatusOK, crs)
}

// lookup resolves a share code to its course without joining.
func (api *courseApi) lookup(ctx echo.Context) error {
	data := JoinCourseRequest{Code: ctx.QueryParam("code")}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	crs, err := api.deps.CourseSvc.GetByShareCode(ctx.Request().Context(), data.Code)
	if err != nil {
		return errors.Wrap(err, "finding course by share code")
	}
	return ctx.JSON(http.StatusOK, crs)
}

func (api *courseApi) join(ctx echo.Context) error {
	var data JoinCourseRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to JoinCourseRequest")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.deps.UserSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	crs, err := api.deps.CourseSvc.JoinByShareCode(ctx.Request().Context(), data.Code, ctxUsr)
	if err != nil {
		return errors.Wrap(err, "joining course")
	}
	return ctx.JSON(http.StatusOK, crs)
}

func (api *courseApi) ensureShareCode(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	courseID := ctx.Param("id")
	if !(claims.IsAdmin || api.deps.CourseSvc.IsAuthorized(ctx.Request().Context(), courseID, claims.Subject)) {
		return errHttpNotFound
	}

	code, err := api.deps.CourseSvc.EnsureShareCode(ctx.Request().Context(), courseID)
	if err != nil {
		if errors.Cause(err) == course.ErrCodeGenerationExhausted {
			return errCodeUnavailable
		}
		return errors.Wrap(err, "ensuring share code")
	}
	return ctx.JSON(http.StatusOK, ShareCodeResponse{Code: code})
}

func (api *courseApi) queryStudents(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	students, err := api.deps.StudentSvc.ListByCourse(ctx.Request().Context(), ctx.Param("id"), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "querying course students")
	}
	if students == nil {
		students = []student.Student{}
	}
	return ctx.JSON(http.StatusOK, students)
}

func (api *courseApi) queryActivities(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	activities, err := api.deps.ActivitySvc.ListByCourse(ctx.Request().Context(), ctx.Param("id"), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "querying course activities")
	}
	if activities == nil {
		activities = []activity.Activity{}
	}
	return ctx.JSON(http.StatusOK, activities)
}

type (
	JoinCourseRequest struct {
		Code string `json:"code" query:"code" validate:"required,sharecode"`
	}

	ShareCodeResponse struct {
		Code string `json:"code"`
	}
)

func (jr *JoinCourseRequest) Validate(validate *validator.Validate) error {
	jr.Code = course.NormalizeCode(jr.Code)
	return validate.Struct(jr)
}
