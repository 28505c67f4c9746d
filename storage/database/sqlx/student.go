package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/workill/worknote/core"
	"github.com/workill/worknote/core/student"
)

type studentRepository struct {
	db *sqlx.DB
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(db *sqlx.DB) *studentRepository {
	return &studentRepository{db: db}
}

type studentRow struct {
	ID         string      `db:"id"`
	FirstName  string      `db:"first_name"`
	LastName   string      `db:"last_name"`
	Email      null.String `db:"email"`
	ClassLabel string      `db:"class_label"`
	CourseID   null.String `db:"course_id"`
	WorkshopID null.String `db:"workshop_id"`
	OwnerID    string      `db:"owner_id"`
	CreatedAt  null.Time   `db:"created_at"`
	UpdatedAt  null.Time   `db:"updated_at"`
}

func (r studentRow) toStudent() student.Student {
	return student.Student{
		ID:         r.ID,
		FirstName:  r.FirstName,
		LastName:   r.LastName,
		Email:      r.Email,
		ClassLabel: r.ClassLabel,
		CourseID:   r.CourseID,
		WorkshopID: r.WorkshopID,
		OwnerID:    r.OwnerID,
		CreatedAt:  r.CreatedAt.Time,
		UpdatedAt:  r.UpdatedAt.Time,
	}
}

func toStudents(rows []studentRow) []student.Student {
	students := make([]student.Student, 0, len(rows))
	for _, r := range rows {
		students = append(students, r.toStudent())
	}
	return students
}

const studentColumns = `id, first_name, last_name, email, class_label, course_id, workshop_id, owner_id, created_at, updated_at`

func (repo *studentRepository) CreateStudent(ctx context.Context, st student.Student) (student.Student, error) {
	st.ID = uuid.New().String()
	_, err := repo.db.ExecContext(ctx,
		`INSERT INTO students (`+studentColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		st.ID, st.FirstName, st.LastName, st.Email, st.ClassLabel,
		st.CourseID, st.WorkshopID, st.OwnerID, st.CreatedAt, st.UpdatedAt,
	)
	if err != nil {
		return student.Student{}, errors.Wrap(err, "inserting student")
	}
	return st, nil
}

func (repo *studentRepository) GetStudentByID(ctx context.Context, id string) (student.Student, error) {
	var row studentRow
	err := repo.db.GetContext(ctx, &row, `SELECT `+studentColumns+` FROM students WHERE id = $1`, id)
	if err != nil {
		if errors.Cause(err) == sql.ErrNoRows {
			return student.Student{}, student.ErrNotFound
		}
		return student.Student{}, errors.Wrap(err, "getting student by id")
	}
	return row.toStudent(), nil
}

func (repo *studentRepository) QueryStudentsByCourse(ctx context.Context, courseID string) ([]student.Student, error) {
	var rows []studentRow
	err := repo.db.SelectContext(ctx, &rows,
		`SELECT `+studentColumns+` FROM students WHERE course_id = $1 ORDER BY `+core.CreatedDescOrdering.String(),
		courseID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "querying students by course")
	}
	return toStudents(rows), nil
}

func (repo *studentRepository) QueryStudentsByOwner(ctx context.Context, ownerID string) ([]student.Student, error) {
	var rows []studentRow
	err := repo.db.SelectContext(ctx, &rows,
		`SELECT `+studentColumns+` FROM students WHERE owner_id = $1 ORDER BY `+core.CreatedDescOrdering.String(),
		ownerID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "querying students by owner")
	}
	return toStudents(rows), nil
}

func (repo *studentRepository) UpdateStudent(ctx context.Context, st student.Student) (student.Student, error) {
	res, err := repo.db.ExecContext(ctx,
		`UPDATE students
		 SET first_name = $2, last_name = $3, email = $4, class_label = $5, updated_at = $6
		 WHERE id = $1`,
		st.ID, st.FirstName, st.LastName, st.Email, st.ClassLabel, st.UpdatedAt,
	)
	if err != nil {
		return student.Student{}, errors.Wrap(err, "updating student")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return student.Student{}, student.ErrNotFound
	}
	return st, nil
}

func (repo *studentRepository) DeleteStudentsByID(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	query, args, err := sqlx.In(`DELETE FROM students WHERE id IN (?)`, ids)
	if err != nil {
		return errors.Wrap(err, "building delete query")
	}
	if _, err = repo.db.ExecContext(ctx, repo.db.Rebind(query), args...); err != nil {
		return errors.Wrap(err, "deleting students")
	}
	return nil
}
