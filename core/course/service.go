package course

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/workill/worknote/core"
	"github.com/workill/worknote/core/user"
)

var (
	// errors
	ErrNotFound                = errors.New("course not found")
	ErrCodeTaken               = errors.New("share code already reserved")
	ErrCodeGenerationExhausted = errors.New("could not generate a unique share code")
)

type (
	Repository interface {
		// CreateCourse assigns a new course id and persists the course together
		// with the reservation for its share code as a single atomic unit.
		// Returns ErrCodeTaken if the code is already reserved; neither record
		// is persisted in that case.
		CreateCourse(ctx context.Context, crs Course) (Course, error)
		GetCourseByID(ctx context.Context, id string) (Course, error)
		// GetReservation looks up the code→course binding; ErrNotFound if absent.
		GetReservation(ctx context.Context, code string) (CodeReservation, error)
		// ClaimCode atomically checks-and-claims a reservation.
		// The read and write are indivisible; ErrCodeTaken on collision.
		ClaimCode(ctx context.Context, res CodeReservation) error
		// FindCourseByShareCode scans course records by their share code field.
		// Slow path for data predating the reservation table; ErrNotFound if absent.
		FindCourseByShareCode(ctx context.Context, code string) (Course, error)
		// QueryCoursesByMember returns courses owned by or shared with the user,
		// deduplicated, most recently created first (missing timestamps last).
		QueryCoursesByMember(ctx context.Context, userID string) ([]Course, error)
		QueryCoursesMissingShareCode(ctx context.Context) ([]Course, error)
		// AddCollaborator set-union-adds the user to the course's collaborators.
		// Adding an already-present id is a no-op; safe under concurrent calls.
		AddCollaborator(ctx context.Context, courseID, userID string) error
		SetShareCode(ctx context.Context, courseID, code string) error
	}

	// Enroller creates the joining user's own student record in a course.
	// Implemented by student.Service; wired after construction to break the
	// course↔student dependency loop.
	Enroller interface {
		EnsureSelfStudent(ctx context.Context, courseID string, usr user.User) error
	}

	ServiceInterface interface {
		SetEnroller(enroller Enroller)
		Create(ctx context.Context, owner user.User, nc NewCourse) (Course, error)
		Query(ctx context.Context, userID string) ([]Course, error)
		GetByID(ctx context.Context, id string) (Course, error)
		GetByShareCode(ctx context.Context, code string) (Course, error)
		JoinByShareCode(ctx context.Context, code string, joiner user.User) (Course, error)
		EnsureShareCode(ctx context.Context, courseID string) (string, error)
		IsAuthorized(ctx context.Context, courseID, userID string) bool
		QueryMissingShareCode(ctx context.Context) ([]Course, error)
	}

	service struct {
		repo     Repository
		enroller Enroller
		mailSvc  core.EmailService
		logger   core.Logger
		conf     *core.Config
	}
)

var _ ServiceInterface = (*service)(nil)

func NewService(repo Repository, mailSvc core.EmailService, logger core.Logger, conf *core.Config) ServiceInterface {
	return &service{repo: repo, mailSvc: mailSvc, logger: logger, conf: conf}
}

func (svc *service) SetEnroller(enroller Enroller) {
	svc.enroller = enroller
}

func (svc *service) Create(ctx context.Context, owner user.User, nc NewCourse) (Course, error) {
	now := time.Now().UTC()
	crs := Course{
		Title:           nc.Title,
		Description:     null.NewString(nc.Description, nc.Description != ""),
		Classroom:       null.NewString(nc.Classroom, nc.Classroom != ""),
		Schedule:        null.NewString(nc.Schedule, nc.Schedule != ""),
		Semester:        null.NewString(nc.Semester, nc.Semester != ""),
		OwnerID:         owner.ID,
		CollaboratorIDs: []string{},
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	created, err := svc.createWithCode(ctx, crs)
	if err != nil {
		return Course{}, err
	}

	svc.emailShareCode(owner, created)
	return created, nil
}

// createWithCode runs the reservation algorithm: up to maxShortAttempts short
// draws, then one long draw, each claimed atomically together with the course
// record. A collision on the final draw fails the whole create.
func (svc *service) createWithCode(ctx context.Context, crs Course) (Course, error) {
	for attempt := 0; attempt <= maxShortAttempts; attempt++ {
		size := shortCodeLen
		if attempt == maxShortAttempts {
			size = longCodeLen
		}
		code, err := codeRandFunc(size)
		if err != nil {
			return Course{}, errors.Wrap(err, "drawing share code")
		}
		crs.ShareCode = null.StringFrom(code)

		created, err := svc.repo.CreateCourse(ctx, crs)
		if err != nil {
			if errors.Cause(err) == ErrCodeTaken {
				continue
			}
			return Course{}, errors.Wrap(err, "creating course")
		}
		return created, nil
	}
	return Course{}, ErrCodeGenerationExhausted
}

func (svc *service) Query(ctx context.Context, userID string) ([]Course, error) {
	return svc.repo.QueryCoursesByMember(ctx, userID)
}

func (svc *service) GetByID(ctx context.Context, id string) (Course, error) {
	return svc.repo.GetCourseByID(ctx, id)
}

func (svc *service) GetByShareCode(ctx context.Context, code string) (Course, error) {
	code = NormalizeCode(code)

	res, err := svc.repo.GetReservation(ctx, code)
	if err == nil {
		return svc.repo.GetCourseByID(ctx, res.CourseID)
	}
	if errors.Cause(err) != ErrNotFound {
		return Course{}, errors.Wrap(err, "looking up code reservation")
	}

	// data predating the reservation table: scan by the share code field
	crs, err := svc.repo.FindCourseByShareCode(ctx, code)
	if err != nil {
		return Course{}, err
	}

	// backfill the missing reservation; the lookup succeeds regardless
	backfill := CodeReservation{Code: code, CourseID: crs.ID, CreatedAt: time.Now().UTC()}
	if err := svc.repo.ClaimCode(ctx, backfill); err != nil && errors.Cause(err) != ErrCodeTaken {
		svc.logger.Warn(fmt.Sprintf("backfilling reservation %s -> %s: %v", code, crs.ID, err), err)
	}
	return crs, nil
}

func (svc *service) JoinByShareCode(ctx context.Context, code string, joiner user.User) (Course, error) {
	crs, err := svc.GetByShareCode(ctx, code)
	if err != nil {
		return Course{}, err
	}

	if err = svc.repo.AddCollaborator(ctx, crs.ID, joiner.ID); err != nil {
		return Course{}, errors.Wrap(err, "adding collaborator")
	}

	// the joiner's own student record; join still succeeds without it
	if svc.enroller != nil {
		if err := svc.enroller.EnsureSelfStudent(ctx, crs.ID, joiner); err != nil {
			svc.logger.Warn(fmt.Sprintf("creating self student record in course %s: %v", crs.ID, err), err)
		}
	}

	if !crs.HasCollaborator(joiner.ID) {
		crs.CollaboratorIDs = append(crs.CollaboratorIDs, joiner.ID)
	}
	return crs, nil
}

func (svc *service) EnsureShareCode(ctx context.Context, courseID string) (string, error) {
	crs, err := svc.repo.GetCourseByID(ctx, courseID)
	if err != nil {
		return "", err
	}
	if crs.ShareCode.Valid && crs.ShareCode.String != "" {
		return crs.ShareCode.String, nil
	}

	for attempt := 0; attempt <= maxShortAttempts; attempt++ {
		size := shortCodeLen
		if attempt == maxShortAttempts {
			size = longCodeLen
		}
		code, err := codeRandFunc(size)
		if err != nil {
			return "", errors.Wrap(err, "drawing share code")
		}

		err = svc.repo.ClaimCode(ctx, CodeReservation{Code: code, CourseID: crs.ID, CreatedAt: time.Now().UTC()})
		if err != nil {
			if errors.Cause(err) == ErrCodeTaken {
				continue
			}
			return "", errors.Wrap(err, "claiming share code")
		}
		if err = svc.repo.SetShareCode(ctx, crs.ID, code); err != nil {
			return "", errors.Wrap(err, "persisting share code")
		}
		return code, nil
	}
	return "", ErrCodeGenerationExhausted
}

// IsAuthorized reports whether the user may see the course's data:
// the owner or any collaborator. A missing course or store failure reads as no.
func (svc *service) IsAuthorized(ctx context.Context, courseID, userID string) bool {
	crs, err := svc.repo.GetCourseByID(ctx, courseID)
	if err != nil {
		return false
	}
	return crs.IsOwner(userID) || crs.HasCollaborator(userID)
}

func (svc *service) QueryMissingShareCode(ctx context.Context) ([]Course, error) {
	return svc.repo.QueryCoursesMissingShareCode(ctx)
}

func (svc *service) emailShareCode(owner user.User, crs Course) {
	if svc.mailSvc == nil || owner.Email == "" {
		return
	}
	body := fmt.Sprintf(
		"Hi %s,\n\nYour course %q is ready.\n\nStudents and co-teachers can join it with the code: %s",
		owner.DisplayName(), crs.Title, crs.ShareCode.String,
	)
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:      []mail.Address{{Name: owner.Name, Address: owner.Email}},
		Subject: fmt.Sprintf("Share code for %q", crs.Title),
		BodyStr: body,
	})
}
