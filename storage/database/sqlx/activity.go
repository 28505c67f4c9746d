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
	"github.com/workill/worknote/core/activity"
)

type activityRepository struct {
	db *sqlx.DB
}

var _ activity.Repository = (*activityRepository)(nil) // interface compliance check

func NewActivityRepository(db *sqlx.DB) *activityRepository {
	return &activityRepository{db: db}
}

type activityRow struct {
	ID          string         `db:"id"`
	Title       string         `db:"title"`
	Description null.String    `db:"description"`
	DueDate     null.Time      `db:"due_date"`
	CourseID    null.String    `db:"course_id"`
	CourseIDs   pq.StringArray `db:"course_ids"`
	WorkshopID  null.String    `db:"workshop_id"`
	OwnerID     string         `db:"owner_id"`
	CreatedAt   null.Time      `db:"created_at"`
	UpdatedAt   null.Time      `db:"updated_at"`
}

func (r activityRow) toActivity() activity.Activity {
	return activity.Activity{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		DueDate:     r.DueDate,
		CourseID:    r.CourseID,
		CourseIDs:   []string(r.CourseIDs),
		WorkshopID:  r.WorkshopID,
		OwnerID:     r.OwnerID,
		CreatedAt:   r.CreatedAt.Time,
		UpdatedAt:   r.UpdatedAt.Time,
	}
}

func toActivities(rows []activityRow) []activity.Activity {
	activities := make([]activity.Activity, 0, len(rows))
	for _, r := range rows {
		activities = append(activities, r.toActivity())
	}
	return activities
}

const activityColumns = `id, title, description, due_date, course_id, course_ids, workshop_id, owner_id, created_at, updated_at`

func (repo *activityRepository) CreateActivity(ctx context.Context, act activity.Activity) (activity.Activity, error) {
	act.ID = uuid.New().String()
	_, err := repo.db.ExecContext(ctx,
		`INSERT INTO activities (`+activityColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		act.ID, act.Title, act.Description, act.DueDate, act.CourseID,
		pq.StringArray(act.CourseIDs), act.WorkshopID, act.OwnerID, act.CreatedAt, act.UpdatedAt,
	)
	if err != nil {
		return activity.Activity{}, errors.Wrap(err, "inserting activity")
	}
	return act, nil
}

func (repo *activityRepository) GetActivityByID(ctx context.Context, id string) (activity.Activity, error) {
	var row activityRow
	err := repo.db.GetContext(ctx, &row, `SELECT `+activityColumns+` FROM activities WHERE id = $1`, id)
	if err != nil {
		if errors.Cause(err) == sql.ErrNoRows {
			return activity.Activity{}, activity.ErrNotFound
		}
		return activity.Activity{}, errors.Wrap(err, "getting activity by id")
	}
	return row.toActivity(), nil
}

func (repo *activityRepository) QueryActivitiesByCourse(ctx context.Context, courseID string) ([]activity.Activity, error) {
	// matches either the legacy single-course column or the array membership;
	// a single query keeps results deduplicated by construction
	var rows []activityRow
	err := repo.db.SelectContext(ctx, &rows,
		`SELECT `+activityColumns+` FROM activities
		 WHERE course_id = $1 OR $1 = ANY(course_ids)
		 ORDER BY `+core.CreatedDescOrdering.String(),
		courseID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "querying activities by course")
	}
	return toActivities(rows), nil
}

func (repo *activityRepository) QueryActivitiesByOwner(ctx context.Context, ownerID string) ([]activity.Activity, error) {
	var rows []activityRow
	err := repo.db.SelectContext(ctx, &rows,
		`SELECT `+activityColumns+` FROM activities WHERE owner_id = $1 ORDER BY `+core.CreatedDescOrdering.String(),
		ownerID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "querying activities by owner")
	}
	return toActivities(rows), nil
}

func (repo *activityRepository) UpdateActivity(ctx context.Context, act activity.Activity) (activity.Activity, error) {
	res, err := repo.db.ExecContext(ctx,
		`UPDATE activities
		 SET title = $2, description = $3, due_date = $4, course_ids = $5, updated_at = $6
		 WHERE id = $1`,
		act.ID, act.Title, act.Description, act.DueDate, pq.StringArray(act.CourseIDs), act.UpdatedAt,
	)
	if err != nil {
		return activity.Activity{}, errors.Wrap(err, "updating activity")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return activity.Activity{}, activity.ErrNotFound
	}
	return act, nil
}

func (repo *activityRepository) DeleteActivitiesByID(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	query, args, err := sqlx.In(`DELETE FROM activities WHERE id IN (?)`, ids)
	if err != nil {
		return errors.Wrap(err, "building delete query")
	}
	if _, err = repo.db.ExecContext(ctx, repo.db.Rebind(query), args...); err != nil {
		return errors.Wrap(err, "deleting activities")
	}
	return nil
}
