package dummydb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/workill/worknote/core/activity"
)

type activityRepository struct {
	db *activityTable
}

var _ activity.Repository = (*activityRepository)(nil) // interface compliance check

func NewActivityRepository(db *DB) *activityRepository {
	return &activityRepository{db: db.activity}
}

func copyActivity(act *activity.Activity) activity.Activity {
	cp := *act
	cp.CourseIDs = append([]string(nil), act.CourseIDs...)
	return cp
}

func (repo *activityRepository) CreateActivity(ctx context.Context, act activity.Activity) (activity.Activity, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	act.ID = uuid.New().String()
	repo.db.table[act.ID] = &act
	return copyActivity(&act), nil
}

func (repo *activityRepository) GetActivityByID(ctx context.Context, id string) (activity.Activity, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if act, ok := repo.db.table[id]; ok {
		return copyActivity(act), nil
	}
	return activity.Activity{}, activity.ErrNotFound
}

func (repo *activityRepository) QueryActivitiesByCourse(ctx context.Context, courseID string) ([]activity.Activity, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	activities := make([]activity.Activity, 0)
	for _, act := range repo.db.table {
		if act.BelongsToCourse(courseID) {
			activities = append(activities, copyActivity(act))
		}
	}
	sortActivitiesByCreatedDesc(activities)
	return activities, nil
}

func (repo *activityRepository) QueryActivitiesByOwner(ctx context.Context, ownerID string) ([]activity.Activity, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	activities := make([]activity.Activity, 0)
	for _, act := range repo.db.table {
		if act.OwnerID == ownerID {
			activities = append(activities, copyActivity(act))
		}
	}
	sortActivitiesByCreatedDesc(activities)
	return activities, nil
}

func (repo *activityRepository) UpdateActivity(ctx context.Context, act activity.Activity) (activity.Activity, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[act.ID]; !ok {
		return activity.Activity{}, activity.ErrNotFound
	}
	repo.db.table[act.ID] = &act
	return copyActivity(&act), nil
}

func (repo *activityRepository) DeleteActivitiesByID(ctx context.Context, ids ...string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, id := range ids {
		delete(repo.db.table, id)
	}
	return nil
}

func sortActivitiesByCreatedDesc(activities []activity.Activity) {
	sort.SliceStable(activities, func(i, j int) bool {
		ci, cj := activities[i].CreatedAt, activities[j].CreatedAt
		if ci.IsZero() {
			return false
		}
		if cj.IsZero() {
			return true
		}
		return ci.After(cj)
	})
}
