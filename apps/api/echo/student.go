package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/workill/worknote/core/student"
)

type studentApi struct {
	deps ServerDeps
}

func registerStudentAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := studentApi{deps: deps}

	sg := g.Group("/students", jwt)
	sg.POST("", api.create)
	sg.GET("", api.queryOwned)
	sg.DELETE("", api.destroyMultiple)

	dg := sg.Group("/:id", ownedStudentMiddleware(deps))
	dg.GET("", api.retrieve)
	dg.PUT("", api.update)
	dg.DELETE("", api.destroy)
}

// Handlers

func (api *studentApi) create(ctx echo.Context) error {
	var data student.NewStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStudent")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.deps.UserSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	std, err := api.deps.StudentSvc.Create(ctx.Request().Context(), ctxUsr, data)
	if err != nil {
		return errors.Wrap(err, "creating student")
	}
	return ctx.JSON(http.StatusCreated, std)
}

func (api *studentApi) queryOwned(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	students, err := api.deps.StudentSvc.QueryOwned(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	if students == nil {
		students = []student.Student{}
	}
	return ctx.JSON(http.StatusOK, students)
}

func (api *studentApi) retrieve(ctx echo.Context) error {
	std, ok := ctx.Get("object").(student.Student)
	if !ok {
		return errors.New("student object not found in echo.Context")
	}
	return ctx.JSON(http.StatusOK, std)
}

func (api *studentApi) update(ctx echo.Context) error {
	std, ok := ctx.Get("object").(student.Student)
	if !ok {
		return errors.New("student object not found in echo.Context")
	}

	var data student.UpdateStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateStudent")
	}
	if err := data.Validate(std, api.deps.Validate); err != nil {
		return err
	}

	std, err := api.deps.StudentSvc.Update(ctx.Request().Context(), std.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating student")
	}
	return ctx.JSON(http.StatusOK, std)
}

func (api *studentApi) destroy(ctx echo.Context) error {
	std, ok := ctx.Get("object").(student.Student)
	if !ok {
		return errors.New("student object not found in echo.Context")
	}
	if err := api.deps.StudentSvc.Delete(ctx.Request().Context(), std.ID); err != nil {
		return errors.Wrap(err, "deleting student")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *studentApi) destroyMultiple(ctx echo.Context) error {
	var query DestroyMultipleRequest
	if err := ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to DestroyMultipleRequest")
	}
	if query.IDs == nil {
		return ctx.NoContent(http.StatusNoContent)
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	// silently skip records the caller does not own
	owned := make([]string, 0, len(query.IDs))
	for _, id := range query.IDs {
		std, err := api.deps.StudentSvc.GetByID(ctx.Request().Context(), id)
		if err != nil {
			if errors.Cause(err) == student.ErrNotFound {
				continue
			}
			return errors.Wrap(err, "finding student by ID")
		}
		if std.OwnerID == claims.Subject || claims.IsAdmin {
			owned = append(owned, id)
		}
	}
	if len(owned) == 0 {
		return ctx.NoContent(http.StatusNoContent)
	}

	if err := api.deps.StudentSvc.Delete(ctx.Request().Context(), owned...); err != nil {
		return errors.Wrap(err, "deleting students")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func ownedStudentMiddleware(deps ServerDeps) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}

			std, err := deps.StudentSvc.GetByID(ctx.Request().Context(), ctx.Param("id"))
			if err != nil {
				if errors.Cause(err) == student.ErrNotFound {
					return errHttpNotFound
				}
				return errors.Wrap(err, "finding student by ID")
			}
			if std.OwnerID == claims.Subject || claims.IsAdmin {
				ctx.Set("object", std)
				return next(ctx)
			}
			return errHttpNotFound
		}
	}
}
