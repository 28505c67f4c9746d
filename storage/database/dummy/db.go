package dummydb

import (
	"sync"

	"github.com/workill/worknote/core/activity"
	"github.com/workill/worknote/core/course"
	"github.com/workill/worknote/core/student"
	"github.com/workill/worknote/core/user"
)

type (
	DB struct {
		user        *userTable
		course      *courseTable
		reservation *reservationTable
		student     *studentTable
		activity    *activityTable
	}

	userTable struct {
		sync.RWMutex
		table map[string]*user.User
	}

	courseTable struct {
		sync.RWMutex
		table map[string]*course.Course
	}

	// reservationTable is keyed by upper-cased code. Its mutex also guards the
	// course table during course+reservation writes so the claim stays atomic.
	reservationTable struct {
		sync.Mutex
		table map[string]*course.CodeReservation
	}

	studentTable struct {
		sync.RWMutex
		table map[string]*student.Student
	}

	activityTable struct {
		sync.RWMutex
		table map[string]*activity.Activity
	}
)

func Open() (*DB, error) {
	db := &DB{
		user:        &userTable{table: make(map[string]*user.User)},
		course:      &courseTable{table: make(map[string]*course.Course)},
		reservation: &reservationTable{table: make(map[string]*course.CodeReservation)},
		student:     &studentTable{table: make(map[string]*student.Student)},
		activity:    &activityTable{table: make(map[string]*activity.Activity)},
	}
	return db, nil
}
