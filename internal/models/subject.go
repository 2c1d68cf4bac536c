package models

// Subject is a taught subject.
type Subject struct {
	ID   int64  `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
	Code string `db:"code" json:"code"`
}

// ClassSubjectOption describes the class/subject pairing. When IsOptional is set, students
// listed in OptedOutStudentIDs are not enrolled and are left out of that subject's aggregates.
type ClassSubjectOption struct {
	ClassSubjectID     int64   `db:"id" json:"class_subject_id"`
	IsOptional         bool    `db:"is_optional" json:"is_optional"`
	OptedOutStudentIDs []int64 `db:"-" json:"opted_out_student_ids"`
}

// OptedOut returns the opted-out students as a set. It is empty for compulsory subjects.
func (o *ClassSubjectOption) OptedOut() map[int64]struct{} {
	set := make(map[int64]struct{})
	if o == nil || !o.IsOptional {
		return set
	}
	for _, id := range o.OptedOutStudentIDs {
		set[id] = struct{}{}
	}
	return set
}
