package dummydb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/workill/worknote/core/course"
)

type courseRepository struct {
	courses      *courseTable
	reservations *reservationTable
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *DB) *courseRepository {
	return &courseRepository{courses: db.course, reservations: db.reservation}
}

func copyCourse(crs *course.Course) course.Course {
	cp := *crs
	cp.CollaboratorIDs = append([]string(nil), crs.CollaboratorIDs...)
	return cp
}

func (repo *courseRepository) CreateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	repo.reservations.Lock()
	defer repo.reservations.Unlock()

	code := crs.ShareCode.String
	if code != "" {
		if _, taken := repo.reservations.table[code]; taken {
			return course.Course{}, course.ErrCodeTaken
		}
	}

	crs.ID = uuid.New().String()
	if code != "" {
		repo.reservations.table[code] = &course.CodeReservation{
			Code:      code,
			CourseID:  crs.ID,
			CreatedAt: crs.CreatedAt,
		}
	}

	repo.courses.Lock()
	defer repo.courses.Unlock()
	repo.courses.table[crs.ID] = &crs
	return copyCourse(&crs), nil
}

func (repo *courseRepository) GetCourseByID(ctx context.Context, id string) (course.Course, error) {
	repo.courses.RLock()
	defer repo.courses.RUnlock()

	if crs, ok := repo.courses.table[id]; ok {
		return copyCourse(crs), nil
	}
	return course.Course{}, course.ErrNotFound
}

func (repo *courseRepository) GetReservation(ctx context.Context, code string) (course.CodeReservation, error) {
	repo.reservations.Lock()
	defer repo.reservations.Unlock()

	if res, ok := repo.reservations.table[code]; ok {
		return *res, nil
	}
	return course.CodeReservation{}, course.ErrNotFound
}

func (repo *courseRepository) ClaimCode(ctx context.Context, res course.CodeReservation) error {
	repo.reservations.Lock()
	defer repo.reservations.Unlock()

	if _, taken := repo.reservations.table[res.Code]; taken {
		return course.ErrCodeTaken
	}
	repo.reservations.table[res.Code] = &res
	return nil
}

func (repo *courseRepository) FindCourseByShareCode(ctx context.Context, code string) (course.Course, error) {
	repo.courses.RLock()
	defer repo.courses.RUnlock()

	for _, crs := range repo.courses.table {
		if crs.ShareCode.Valid && crs.ShareCode.String == code {
			return copyCourse(crs), nil
		}
	}
	return course.Course{}, course.ErrNotFound
}

func (repo *courseRepository) QueryCoursesByMember(ctx context.Context, userID string) ([]course.Course, error) {
	repo.courses.RLock()
	defer repo.courses.RUnlock()

	courses := make([]course.Course, 0, len(repo.courses.table))
	for _, crs := range repo.courses.table {
		if crs.IsOwner(userID) || crs.HasCollaborator(userID) {
			courses = append(courses, copyCourse(crs))
		}
	}
	sortCoursesByCreatedDesc(courses)
	return courses, nil
}

func (repo *courseRepository) QueryCoursesMissingShareCode(ctx context.Context) ([]course.Course, error) {
	repo.courses.RLock()
	defer repo.courses.RUnlock()

	courses := make([]course.Course, 0)
	for _, crs := range repo.courses.table {
		if !crs.ShareCode.Valid || crs.ShareCode.String == "" {
			courses = append(courses, copyCourse(crs))
		}
	}
	sortCoursesByCreatedDesc(courses)
	return courses, nil
}

func (repo *courseRepository) AddCollaborator(ctx context.Context, courseID, userID string) error {
	repo.courses.Lock()
	defer repo.courses.Unlock()

	crs, ok := repo.courses.table[courseID]
	if !ok {
		return course.ErrNotFound
	}
	if !crs.HasCollaborator(userID) {
		crs.CollaboratorIDs = append(crs.CollaboratorIDs, userID)
	}
	return nil
}

func (repo *courseRepository) SetShareCode(ctx context.Context, courseID, code string) error {
	repo.courses.Lock()
	defer repo.courses.Unlock()

	crs, ok := repo.courses.table[courseID]
	if !ok {
		return course.ErrNotFound
	}
	crs.ShareCode.SetValid(code)
	return nil
}

func sortCoursesByCreatedDesc(courses []course.Course) {
	sort.SliceStable(courses, func(i, j int) bool {
		ci, cj := courses[i].CreatedAt, courses[j].CreatedAt
		if ci.IsZero() {
			return false
		}
		if cj.IsZero() {
			return true
		}
		return ci.After(cj)
	})
}
