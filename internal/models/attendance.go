package models

import "time"

// AttendanceStatus represents the status recorded for a student in a session.
type AttendanceStatus string

const (
	AttendanceStatusPresent AttendanceStatus = "present"
	AttendanceStatusAbsent  AttendanceStatus = "absent"
	AttendanceStatusLate    AttendanceStatus = "late"
	AttendanceStatusExcused AttendanceStatus = "excused"
)

// Valid returns true when the status is a supported value.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendanceStatusPresent, AttendanceStatusAbsent, AttendanceStatusLate, AttendanceStatusExcused:
		return true
	default:
		return false
	}
}

// AttendanceEntry is one student's mark in an attendance session, joined with the session date.
type AttendanceEntry struct {
	ID          int64            `db:"id" json:"id"`
	SessionDate time.Time        `db:"session_date" json:"date"`
	ClassID     int64            `db:"class_id" json:"class_id"`
	SubjectID   *int64           `db:"subject_id" json:"subject_id,omitempty"`
	StudentID   int64            `db:"student_id" json:"student_id"`
	Status      AttendanceStatus `db:"status" json:"status"`
}

// AttendanceEntryFilter scopes attendance reads. Date bounds are inclusive. ClassIDs further
// restricts ClassID when both are set.
type AttendanceEntryFilter struct {
	ClassID   *int64
	ClassIDs  []int64
	StudentID *int64
	DateFrom  *time.Time
	DateTo    *time.Time
}
