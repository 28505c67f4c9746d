package student

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/workill/worknote/core/user"
)

var ErrNotFound = errors.New("student not found")

type (
	Repository interface {
		CreateStudent(ctx context.Context, st Student) (Student, error)
		GetStudentByID(ctx context.Context, id string) (Student, error)
		// QueryStudentsByCourse returns every student whose courseID equals the
		// given id, most recently created first (missing timestamps last).
		QueryStudentsByCourse(ctx context.Context, courseID string) ([]Student, error)
		QueryStudentsByOwner(ctx context.Context, ownerID string) ([]Student, error)
		UpdateStudent(ctx context.Context, st Student) (Student, error)
		DeleteStudentsByID(ctx context.Context, ids ...string) error
	}

	// Authorizer decides whether a user may see a course's data.
	// Implemented by course.Service.
	Authorizer interface {
		IsAuthorized(ctx context.Context, courseID, userID string) bool
	}

	ServiceInterface interface {
		Create(ctx context.Context, owner user.User, ns NewStudent) (Student, error)
		GetByID(ctx context.Context, id string) (Student, error)
		ListByCourse(ctx context.Context, courseID, currentUserID string) ([]Student, error)
		QueryOwned(ctx context.Context, ownerID string) ([]Student, error)
		Update(ctx context.Context, id string, us UpdateStudent) (Student, error)
		Delete(ctx context.Context, ids ...string) error
		EnsureSelfStudent(ctx context.Context, courseID string, usr user.User) error
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

func (svc *service) Create(ctx context.Context, owner user.User, ns NewStudent) (Student, error) {
	now := time.Now().UTC()
	st := Student{
		FirstName:  ns.FirstName,
		LastName:   ns.LastName,
		Email:      null.NewString(ns.Email, ns.Email != ""),
		ClassLabel: ns.ClassLabel,
		CourseID:   null.NewString(ns.CourseID, ns.CourseID != ""),
		WorkshopID: null.NewString(ns.WorkshopID, ns.WorkshopID != ""),
		OwnerID:    owner.ID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	return svc.repo.CreateStudent(ctx, st)
}

func (svc *service) GetByID(ctx context.Context, id string) (Student, error) {
	return svc.repo.GetStudentByID(ctx, id)
}

// ListByCourse returns the course's students. Owners and collaborators see every
// record; anyone else falls back to the subset they created themselves.
func (svc *service) ListByCourse(ctx context.Context, courseID, currentUserID string) ([]Student, error) {
	students, err := svc.repo.QueryStudentsByCourse(ctx, courseID)
	if err != nil {
		return nil, errors.Wrap(err, "querying students by course")
	}
	if svc.authz.IsAuthorized(ctx, courseID, currentUserID) {
		return students, nil
	}
	return filterOwned(students, currentUserID), nil
}

func (svc *service) QueryOwned(ctx context.Context, ownerID string) ([]Student, error) {
	return svc.repo.QueryStudentsByOwner(ctx, ownerID)
}

func (svc *service) Update(ctx context.Context, id string, us UpdateStudent) (Student, error) {
	st, err := svc.repo.GetStudentByID(ctx, id)
	if err != nil {
		return Student{}, err
	}
	st.FirstName = us.FirstName
	st.LastName = us.LastName
	st.Email = null.NewString(us.Email, us.Email != "")
	st.ClassLabel = us.ClassLabel
	st.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateStudent(ctx, st)
}

func (svc *service) Delete(ctx context.Context, ids ...string) error {
	return svc.repo.DeleteStudentsByID(ctx, ids...)
}

// EnsureSelfStudent makes sure the joining user has their own student record in
// the course. The existence check filters client-side on ownerID; the store only
// indexes the courseID equality.
func (svc *service) EnsureSelfStudent(ctx context.Context, courseID string, usr user.User) error {
	students, err := svc.repo.QueryStudentsByCourse(ctx, courseID)
	if err != nil {
		return errors.Wrap(err, "querying students by course")
	}
	for _, st := range students {
		if st.OwnerID == usr.ID {
			return nil
		}
	}

	first := usr.DisplayName()
	if first == "" {
		first = "Student"
	}
	now := time.Now().UTC()
	_, err = svc.repo.CreateStudent(ctx, Student{
		FirstName:  first,
		Email:      null.NewString(usr.Email, usr.Email != ""),
		ClassLabel: DefaultClassLabel,
		CourseID:   null.StringFrom(courseID),
		OwnerID:    usr.ID,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	return errors.Wrap(err, "creating self student record")
}

func filterOwned(students []Student, userID string) []Student {
	owned := make([]Student, 0, len(students))
	for _, st := range students {
		if st.OwnerID == userID {
			owned = append(owned, st)
		}
	}
	return owned
}
