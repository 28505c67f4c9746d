package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/workill/worknote/core"
	"github.com/workill/worknote/core/course"
)

type courseRepository struct {
	db *sqlx.DB
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *sqlx.DB) *courseRepository {
	return &courseRepository{db: db}
}

type courseRow struct {
	ID              string         `db:"id"`
	Title           string         `db:"title"`
	Description     null.String    `db:"description"`
	Classroom       null.String    `db:"classroom"`
	Schedule        null.String    `db:"schedule"`
	Semester        null.String    `db:"semester"`
	OwnerID         string         `db:"owner_id"`
	ShareCode       null.String    `db:"share_code"`
	CollaboratorIDs pq.StringArray `db:"collaborator_ids"`
	CreatedAt       null.Time      `db:"created_at"`
	UpdatedAt       null.Time      `db:"updated_at"`
}

func (r courseRow) toCourse() course.Course {
	return course.Course{
		ID:              r.ID,
		Title:           r.Title,
		Description:     r.Description,
		Classroom:       r.Classroom,
		Schedule:        r.Schedule,
		Semester:        r.Semester,
		OwnerID:         r.OwnerID,
		ShareCode:       r.ShareCode,
		CollaboratorIDs: []string(r.CollaboratorIDs),
		CreatedAt:       r.CreatedAt.Time,
		UpdatedAt:       r.UpdatedAt.Time,
	}
}

func toCourses(rows []courseRow) []course.Course {
	courses := make([]course.Course, 0, len(rows))
	for _, r := range rows {
		courses = append(courses, r.toCourse())
	}
	return courses
}

// trapNoRowsErr maps psql "no rows" err to course.ErrNotFound
func trapNoRowsErr(err error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return course.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

const courseColumns = `id, title, description, classroom, schedule, semester, owner_id, share_code, collaborator_ids, created_at, updated_at`

func (repo *courseRepository) CreateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	crs.ID = uuid.New().String()

	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return course.Course{}, errors.Wrap(err, "beginning tx")
	}
	defer func() { _ = tx.Rollback() }()

	claimed, err := claimCodeTx(ctx, tx, crs.ShareCode.String, crs.ID, crs.CreatedAt)
	if err != nil {
		return course.Course{}, err
	}
	if !claimed {
		return course.Course{}, course.ErrCodeTaken
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO courses (`+courseColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		crs.ID, crs.Title, crs.Description, crs.Classroom, crs.Schedule, crs.Semester,
		crs.OwnerID, crs.ShareCode, pq.StringArray(crs.CollaboratorIDs), crs.CreatedAt, crs.UpdatedAt,
	)
	if err != nil {
		return course.Course{}, errors.Wrap(err, "inserting course")
	}

	if err = tx.Commit(); err != nil {
		return course.Course{}, errors.Wrap(err, "committing tx")
	}
	return crs, nil
}

func (repo *courseRepository) GetCourseByID(ctx context.Context, id string) (course.Course, error) {
	var row courseRow
	err := repo.db.GetContext(ctx, &row, `SELECT `+courseColumns+` FROM courses WHERE id = $1`, id)
	if err != nil {
		return course.Course{}, trapNoRowsErr(err, "getting course by id")
	}
	return row.toCourse(), nil
}

func (repo *courseRepository) GetReservation(ctx context.Context, code string) (course.CodeReservation, error) {
	var row struct {
		Code      string    `db:"code"`
		CourseID  string    `db:"course_id"`
		CreatedAt null.Time `db:"created_at"`
	}
	err := repo.db.GetContext(ctx, &row, `SELECT code, course_id, created_at FROM course_codes WHERE code = $1`, code)
	if err != nil {
		return course.CodeReservation{}, trapNoRowsErr(err, "getting code reservation")
	}
	return course.CodeReservation{Code: row.Code, CourseID: row.CourseID, CreatedAt: row.CreatedAt.Time}, nil
}

func (repo *courseRepository) ClaimCode(ctx context.Context, res course.CodeReservation) error {
	claimed, err := claimCodeTx(ctx, repo.db, res.Code, res.CourseID, res.CreatedAt)
	if err != nil {
		return err
	}
	if !claimed {
		return course.ErrCodeTaken
	}
	return nil
}

// claimCodeTx check-and-claims a code in one indivisible statement:
// the conflict target makes concurrent claims of the same code serialize.
func claimCodeTx(ctx context.Context, exec sqlx.ExecerContext, code, courseID string, createdAt interface{}) (bool, error) {
	res, err := exec.ExecContext(ctx,
		`INSERT INTO course_codes (code, course_id, created_at) VALUES ($1, $2, $3)
		 ON CONFLICT (code) DO NOTHING`,
		code, courseID, createdAt,
	)
	if err != nil {
		return false, errors.Wrap(err, "claiming share code")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "claiming share code")
	}
	return n > 0, nil
}

func (repo *courseRepository) FindCourseByShareCode(ctx context.Context, code string) (course.Course, error) {
	var row courseRow
	err := repo.db.GetContext(ctx, &row, `SELECT `+courseColumns+` FROM courses WHERE share_code = $1 LIMIT 1`, code)
	if err != nil {
		return course.Course{}, trapNoRowsErr(err, "finding course by share code")
	}
	return row.toCourse(), nil
}

func (repo *courseRepository) QueryCoursesByMember(ctx context.Context, userID string) ([]course.Course, error) {
	var rows []courseRow
	err := repo.db.SelectContext(ctx, &rows,
		`SELECT `+courseColumns+` FROM courses
		 WHERE owner_id = $1 OR $1 = ANY(collaborator_ids)
		 ORDER BY `+core.CreatedDescOrdering.String(),
		userID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "querying courses by member")
	}
	return toCourses(rows), nil
}

func (repo *courseRepository) QueryCoursesMissingShareCode(ctx context.Context) ([]course.Course, error) {
	var rows []courseRow
	err := repo.db.SelectContext(ctx, &rows,
		`SELECT `+courseColumns+` FROM courses
		 WHERE share_code IS NULL OR share_code = ''
		 ORDER BY `+core.CreatedDescOrdering.String(),
	)
	if err != nil {
		return nil, errors.Wrap(err, "querying courses missing share code")
	}
	return toCourses(rows), nil
}

func (repo *courseRepository) AddCollaborator(ctx context.Context, courseID, userID string) error {
	// guarded array_append keeps the add idempotent and commutative
	res, err := repo.db.ExecContext(ctx,
		`UPDATE courses
		 SET collaborator_ids = array_append(collaborator_ids, $2), updated_at = now()
		 WHERE id = $1 AND NOT ($2 = ANY(collaborator_ids))`,
		courseID, userID,
	)
	if err != nil {
		return errors.Wrap(err, "adding collaborator")
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		return nil
	}

	// no row touched: either already a collaborator (fine) or no such course
	_, err = repo.GetCourseByID(ctx, courseID)
	return err
}

func (repo *courseRepository) SetShareCode(ctx context.Context, courseID, code string) error {
	res, err := repo.db.ExecContext(ctx,
		`UPDATE courses SET share_code = $2, updated_at = now() WHERE id = $1`,
		courseID, code,
	)
	if err != nil {
		return errors.Wrap(err, "setting share code")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return course.ErrNotFound
	}
	return nil
}
