package activity

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/workill/worknote/core/user"
)

var ErrNotFound = errors.New("activity not found")

type (
	Repository interface {
		CreateActivity(ctx context.Context, act Activity) (Activity, error)
		GetActivityByID(ctx context.Context, id string) (Activity, error)
		// QueryActivitiesByCourse returns every activity associated with the
		// course, via courseID equality or courseIDs membership, deduplicated
		// by id, most recently created first (missing timestamps last).
		QueryActivitiesByCourse(ctx context.Context, courseID string) ([]Activity, error)
		QueryActivitiesByOwner(ctx context.Context, ownerID string) ([]Activity, error)
		UpdateActivity(ctx context.Context, act Activity) (Activity, error)
		DeleteActivitiesByID(ctx context.Context, ids ...string) error
	}

	// Authorizer decides whether a user may see a course's data.
	// Implemented by course.Service.
	Authorizer interface {
		IsAuthorized(ctx context.Context, courseID, userID string) bool
	}

	ServiceInterface interface {
		Create(ctx context.Context, owner user.User, na NewActivity) (Activity, error)
		GetByID(ctx context.Context, id string) (Activity, error)
		ListByCourse(ctx context.Context, courseID, currentUserID string) ([]Activity, error)
		QueryOwned(ctx context.Context, ownerID string) ([]Activity, error)
		Update(ctx context.Context, id string, ua UpdateActivity) (Activity, error)
		Delete(ctx context.Context, ids ...string) error
	}

	service struct {
		repo  Repository
		authz Authorizer
	}
)

var _ ServiceInterface = (*service)(nil)

func NewService(repo Repository, authz Authorizer) ServiceInterface {
	return &service{repo: repo, authz: authz}
}

func (svc *service) Create(ctx context.Context, owner user.User, na NewActivity) (Activity, error) {
	now := time.Now().UTC()
	act := Activity{
		Title:       na.Title,
		Description: null.NewString(na.Description, na.Description != ""),
		CourseID:    null.NewString(na.CourseID, na.CourseID != ""),
		CourseIDs:   na.CourseIDs,
		WorkshopID:  null.NewString(na.WorkshopID, na.WorkshopID != ""),
		OwnerID:     owner.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if na.DueDate != nil {
		act.DueDate = null.TimeFrom(na.DueDate.UTC())
	}
	return svc.repo.CreateActivity(ctx, act)
}

func (svc *service) GetByID(ctx context.Context, id string) (Activity, error) {
	return svc.repo.GetActivityByID(ctx, id)
}

// ListByCourse returns the course's activities. Owners and collaborators see
// every record; anyone else falls back to the subset they authored themselves.
func (svc *service) ListByCourse(ctx context.Context, courseID, currentUserID string) ([]Activity, error) {
	activities, err := svc.repo.QueryActivitiesByCourse(ctx, courseID)
	if err != nil {
		return nil, errors.Wrap(err, "querying activities by course")
	}
	if svc.authz.IsAuthorized(ctx, courseID, currentUserID) {
		return activities, nil
	}
	return filterOwned(activities, currentUserID), nil
}

func (svc *service) QueryOwned(ctx context.Context, ownerID string) ([]Activity, error) {
	return svc.repo.QueryActivitiesByOwner(ctx, ownerID)
}

func (svc *service) Update(ctx context.Context, id string, ua UpdateActivity) (Activity, error) {
	act, err := svc.repo.GetActivityByID(ctx, id)
	if err != nil {
		return Activity{}, err
	}
	act.Title = ua.Title
	act.Description = null.NewString(ua.Description, ua.Description != "")
	if ua.DueDate != nil {
		act.DueDate = null.TimeFrom(ua.DueDate.UTC())
	}
	if ua.CourseIDs != nil {
		act.CourseIDs = ua.CourseIDs
	}
	act.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateActivity(ctx, act)
}

func (svc *service) Delete(ctx context.Context, ids ...string) error {
	return svc.repo.DeleteActivitiesByID(ctx, ids...)
}

func filterOwned(activities []Activity, userID string) []Activity {
	owned := make([]Activity, 0, len(activities))
	for _, act := range activities {
		if act.OwnerID == userID {
			owned = append(owned, act)
		}
	}
	return owned
}
