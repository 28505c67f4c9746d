package dummydb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/workill/worknote/core/student"
)

type studentRepository struct {
	db *studentTable
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(db *DB) *studentRepository {
	return &studentRepository{db: db.student}
}

func (repo *studentRepository) CreateStudent(ctx context.Context, st student.Student) (student.Student, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	st.ID = uuid.New().String()
	repo.db.table[st.ID] = &st
	return st, nil
}

func (repo *studentRepository) GetStudentByID(ctx context.Context, id string) (student.Student, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if st, ok := repo.db.table[id]; ok {
		return *st, nil
	}
	return student.Student{}, student.ErrNotFound
}

func (repo *studentRepository) QueryStudentsByCourse(ctx context.Context, courseID string) ([]student.Student, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	students := make([]student.Student, 0)
	for _, st := range repo.db.table {
		if st.CourseID.Valid && st.CourseID.String == courseID {
			students = append(students, *st)
		}
	}
	sortStudentsByCreatedDesc(students)
	return students, nil
}

func (repo *studentRepository) QueryStudentsByOwner(ctx context.Context, ownerID string) ([]student.Student, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	students := make([]student.Student, 0)
	for _, st := range repo.db.table {
		if st.OwnerID == ownerID {
			students = append(students, *st)
		}
	}
	sortStudentsByCreatedDesc(students)
	return students, nil
}

func (repo *studentRepository) UpdateStudent(ctx context.Context, st student.Student) (student.Student, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[st.ID]; !ok {
		return student.Student{}, student.ErrNotFound
	}
	repo.db.table[st.ID] = &st
	return st, nil
}

func (repo *studentRepository) DeleteStudentsByID(ctx context.Context, ids ...string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, id := range ids {
		delete(repo.db.table, id)
	}
	return nil
}

func sortStudentsByCreatedDesc(students []student.Student) {
	sort.SliceStable(students, func(i, j int) bool {
		ci, cj := students[i].CreatedAt, students[j].CreatedAt
		if ci.IsZero() {
			return false
		}
		if cj.IsZero() {
			return true
		}
		return ci.After(cj)
	})
}
