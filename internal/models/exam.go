package models

import "time"

// ExamType enumerates supported exam kinds.
type ExamType string

const (
	ExamTypeUnit      ExamType = "Unit"
	ExamTypeMid       ExamType = "Mid"
	ExamTypeFinal     ExamType = "Final"
	ExamTypePractical ExamType = "Practical"
)

// Exam is an assessment window. Exams without a start date sort last in chronological orderings.
type Exam struct {
	ID        int64      `db:"id" json:"id"`
	Name      string     `db:"name" json:"name"`
	ExamType  ExamType   `db:"exam_type" json:"exam_type"`
	StartDate *time.Time `db:"start_date" json:"start_date"`
	EndDate   *time.Time `db:"end_date" json:"end_date"`
}
