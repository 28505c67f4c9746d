package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/workill/worknote/core/activity"
)

type activityApi struct {
	deps ServerDeps
}

func registerActivityAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := activityApi{deps: deps}

	ag := g.Group("/activities", jwt)
	ag.POST("", api.create)
	ag.GET("", api.queryOwned)

	dg := ag.Group("/:id", ownedActivityMiddleware(deps))
	dg.GET("", api.retrieve)
	dg.PUT("", api.update)
	dg.DELETE("", api.destroy)
}

// Handlers

func (api *activityApi) create(ctx echo.Context) error {
	var data activity.NewActivity
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewActivity")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.deps.UserSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	act, err := api.deps.ActivitySvc.Create(ctx.Request().Context(), ctxUsr, data)
	if err != nil {
		return errors.Wrap(err, "creating activity")
	}
	return ctx.JSON(http.StatusCreated, act)
}

func (api *activityApi) queryOwned(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	activities, err := api.deps.ActivitySvc.QueryOwned(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "querying activities")
	}
	if activities == nil {
		activities = []activity.Activity{}
	}
	return ctx.JSON(http.StatusOK, activities)
}

func (api *activityApi) retrieve(ctx echo.Context) error {
	act, ok := ctx.Get("object").(activity.Activity)
	if !ok {
		return errors.New("activity object not found in echo.Context")
	}
	return ctx.JSON(http.StatusOK, act)
}

func (api *activityApi) update(ctx echo.Context) error {
	act, ok := ctx.Get("object").(activity.Activity)
	if !ok {
		return errors.New("activity object not found in echo.Context")
	}

	var data activity.UpdateActivity
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateActivity")
	}
	if err := data.Validate(act, api.deps.Validate); err != nil {
		return err
	}

	act, err := api.deps.ActivitySvc.Update(ctx.Request().Context(), act.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating activity")
	}
	return ctx.JSON(http.StatusOK, act)
}

func (api *activityApi) destroy(ctx echo.Context) error {
	act, ok := ctx.Get("object").(activity.Activity)
	if !ok {
		return errors.New("activity object not found in echo.Context")
	}
	if err := api.deps.ActivitySvc.Delete(ctx.Request().Context(), act.ID); err != nil {
		return errors.Wrap(err, "deleting activity")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func ownedActivityMiddleware(deps ServerDeps) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}

			act, err := deps.ActivitySvc.GetByID(ctx.Request().Context(), ctx.Param("id"))
			if err != nil {
				if errors.Cause(err) == activity.ErrNotFound {
					return errHttpNotFound
				}
				return errors.Wrap(err, "finding activity by ID")
			}
			if act.OwnerID == claims.Subject || claims.IsAdmin {
				ctx.Set("object", act)
				return next(ctx)
			}
			return errHttpNotFound
		}
	}
}
