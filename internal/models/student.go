package models

// StudentStatusActive marks students that take part in class reports.
const StudentStatusActive = "active"

// Student represents a learner with their class placement.
type Student struct {
	ID        int64  `db:"id" json:"id"`
	FirstName string `db:"first_name" json:"first_name"`
	LastName  string `db:"last_name" json:"last_name"`
	RollNo    *int   `db:"roll_no" json:"roll_no"`
	ClassID   int64  `db:"class_id" json:"class_id"`
	ClassName string `db:"class_name" json:"class_name"`
	Status    string `db:"status" json:"status"`
}

// RosterStudent is an active student row as listed for a class, ordered by roll number then first name.
type RosterStudent struct {
	ID        int64  `db:"id" json:"student_id"`
	FirstName string `db:"first_name" json:"first_name"`
	LastName  string `db:"last_name" json:"last_name"`
	RollNo    *int   `db:"roll_no" json:"roll_no"`
}

// FullName joins first and last name.
func (s RosterStudent) FullName() string {
	if s.LastName == "" {
		return s.FirstName
	}
	return s.FirstName + " " + s.LastName
}
