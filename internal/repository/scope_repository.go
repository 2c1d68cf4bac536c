package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// ScopeRepository resolves teacher class assignments.
type ScopeRepository struct {
	db *sqlx.DB
}

// NewScopeRepository instantiates the repository.
func NewScopeRepository(db *sqlx.DB) *ScopeRepository {
	return &ScopeRepository{db: db}
}

// AssignedClassIDs lists the classes a teacher holds an active assignment for.
func (r *ScopeRepository) AssignedClassIDs(ctx context.Context, teacherID int64) ([]int64, error) {
	const query = "SELECT DISTINCT class_id FROM teacher_assignments WHERE teacher_id = $1 AND is_active = TRUE ORDER BY class_id"
	var ids []int64
	if err := r.db.SelectContext(ctx, &ids, query, teacherID); err != nil {
		return nil, fmt.Errorf("list teacher assignments: %w", err)
	}
	return ids, nil
}

// StudentClassID returns the class of a student or sql.ErrNoRows.
func (r *ScopeRepository) StudentClassID(ctx context.Context, studentID int64) (int64, error) {
	var classID int64
	if err := r.db.GetContext(ctx, &classID, "SELECT class_id FROM students WHERE id = $1", studentID); err != nil {
		return 0, err
	}
	return classID, nil
}
