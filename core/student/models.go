package student

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/workill/worknote/core"
)

// DefaultClassLabel is assigned to auto-created student records.
const DefaultClassLabel = "General"

type Student struct {
	ID         string      `json:"id"`
	FirstName  string      `json:"first_name"`
	LastName   string      `json:"last_name"`
	Email      null.String `json:"email,omitempty"`
	ClassLabel string      `json:"class_label"`
	CourseID   null.String `json:"course_id,omitempty"`
	WorkshopID null.String `json:"workshop_id,omitempty"`
	OwnerID    string      `json:"owner_id"`
	CreatedAt  time.Time   `json:"created_at"` // UTC
	UpdatedAt  time.Time   `json:"updated_at"` // UTC
}

// NewStudent contains information needed to register a new Student.
type NewStudent struct {
	FirstName  string `json:"first_name" validate:"required"`
	LastName   string `json:"last_name"`
	Email      string `json:"email" validate:"omitempty,email"`
	ClassLabel string `json:"class_label"`
	CourseID   string `json:"course_id"`
	WorkshopID string `json:"workshop_id"`
}

func (ns *NewStudent) Validate(validate *validator.Validate) error {
	ns.FirstName = core.CleanString(ns.FirstName)
	ns.LastName = core.CleanString(ns.LastName)
	ns.Email = core.CleanString(ns.Email, true /* lower */)
	ns.ClassLabel = core.CleanString(ns.ClassLabel)
	if ns.ClassLabel == "" {
		ns.ClassLabel = DefaultClassLabel
	}
	return validate.Struct(ns)
}

// UpdateStudent defines what information may be provided to modify an existing Student.
type UpdateStudent struct {
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Email      string `json:"email" validate:"omitempty,email"`
	ClassLabel string `json:"class_label"`
}

func (us *UpdateStudent) Validate(orig Student, validate *validator.Validate) error {
	if first := core.CleanString(us.FirstName); first != "" {
		us.FirstName = first
	} else {
		us.FirstName = orig.FirstName
	}
	us.LastName = core.CleanString(us.LastName)
	us.Email = core.CleanString(us.Email, true /* lower */)
	if label := core.CleanString(us.ClassLabel); label != "" {
		us.ClassLabel = label
	} else {
		us.ClassLabel = orig.ClassLabel
	}
	return validate.Struct(us)
}
