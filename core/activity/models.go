package activity

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/workill/worknote/core"
)

type Activity struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Description null.String `json:"description,omitempty"`
	DueDate     null.Time   `json:"due_date,omitempty"`

	// CourseID is the legacy single-course association; CourseIDs is the
	// multi-course one. An activity may carry either or both.
	CourseID  null.String `json:"course_id,omitempty"`
	CourseIDs []string    `json:"course_ids,omitempty"`

	WorkshopID null.String `json:"workshop_id,omitempty"`
	OwnerID    string      `json:"owner_id"`
	CreatedAt  time.Time   `json:"created_at"` // UTC
	UpdatedAt  time.Time   `json:"updated_at"` // UTC
}

// BelongsToCourse reports whether the activity is associated with the course
// via either association.
func (a *Activity) BelongsToCourse(courseID string) bool {
	if a.CourseID.Valid && a.CourseID.String == courseID {
		return true
	}
	for _, id := range a.CourseIDs {
		if id == courseID {
			return true
		}
	}
	return false
}

// NewActivity contains information needed to author a new Activity.
type NewActivity struct {
	Title       string     `json:"title" validate:"required"`
	Description string     `json:"description"`
	DueDate     *time.Time `json:"due_date"`
	CourseID    string     `json:"course_id"`
	CourseIDs   []string   `json:"course_ids"`
	WorkshopID  string     `json:"workshop_id"`
}

func (na *NewActivity) Validate(validate *validator.Validate) error {
	na.Title = core.CleanString(na.Title)
	na.Description = core.CleanString(na.Description)
	return validate.Struct(na)
}

// UpdateActivity defines what information may be provided to modify an existing Activity.
type UpdateActivity struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	DueDate     *time.Time `json:"due_date"`
	CourseIDs   []string   `json:"course_ids"`
}

func (ua *UpdateActivity) Validate(orig Activity, validate *validator.Validate) error {
	if title := core.CleanString(ua.Title); title != "" {
		ua.Title = title
	} else {
		ua.Title = orig.Title
	}
	ua.Description = core.CleanString(ua.Description)
	return validate.Struct(ua)
}
