package course

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/workill/worknote/core"
)

type Course struct {
	ID              string      `json:"id"`
	Title           string      `json:"title"`
	Description     null.String `json:"description,omitempty"`
	Classroom       null.String `json:"classroom,omitempty"`
	Schedule        null.String `json:"schedule,omitempty"`
	Semester        null.String `json:"semester,omitempty"`
	OwnerID         string      `json:"owner_id"`
	ShareCode       null.String `json:"share_code,omitempty"`
	CollaboratorIDs []string    `json:"collaborator_ids"`
	CreatedAt       time.Time   `json:"created_at"` // UTC
	UpdatedAt       time.Time   `json:"updated_at"` // UTC
}

func (c *Course) IsOwner(userID string) bool {
	return userID != "" && c.OwnerID == userID
}

func (c *Course) HasCollaborator(userID string) bool {
	for _, id := range c.CollaboratorIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// CodeReservation binds a share code to exactly one course id.
// Created once, never mutated, never deleted.
type CodeReservation struct {
	Code      string    `json:"code"`
	CourseID  string    `json:"course_id"`
	CreatedAt time.Time `json:"created_at"` // UTC
}

// NewCourse contains information needed to create a new Course.
type NewCourse struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
	Classroom   string `json:"classroom"`
	Schedule    string `json:"schedule"`
	Semester    string `json:"semester"`
}

func (nc *NewCourse) Validate(validate *validator.Validate) error {
	nc.Title = core.CleanString(nc.Title)
	nc.Description = core.CleanString(nc.Description)
	nc.Classroom = core.CleanString(nc.Classroom)
	nc.Schedule = core.CleanString(nc.Schedule)
	nc.Semester = core.CleanString(nc.Semester)
	return validate.Struct(nc)
}
