package models

import "time"

// MarksEntry is a student's result for one subject of an exam, joined with exam and subject metadata.
// An absent entry keeps its max marks in the totals with nothing obtained. An entry with no
// obtained marks that is not absent is missing and is left out of both totals.
type MarksEntry struct {
	ID            int64      `db:"id" json:"id"`
	ExamID        int64      `db:"exam_id" json:"exam_id"`
	ExamName      string     `db:"exam_name" json:"exam_name"`
	ExamStartDate *time.Time `db:"exam_start_date" json:"exam_start_date"`
	ClassID       int64      `db:"class_id" json:"class_id"`
	SubjectID     int64      `db:"subject_id" json:"subject_id"`
	SubjectName   string     `db:"subject_name" json:"subject_name"`
	StudentID     int64      `db:"student_id" json:"student_id"`
	MaxMarks      float64    `db:"max_marks" json:"max_marks"`
	MarksObtained *float64   `db:"marks_obtained" json:"marks_obtained"`
	IsAbsent      bool       `db:"is_absent" json:"is_absent"`
}

// MarksEntryFilter scopes marks reads. ExamFrom/ExamTo bound the exam start date inclusively.
type MarksEntryFilter struct {
	ExamID    *int64
	ClassID   *int64
	SubjectID *int64
	StudentID *int64
	ExamFrom  *time.Time
	ExamTo    *time.Time
}
