package dto

// ClassExamRequest holds the query of the class-wise exam report and its export.
type ClassExamRequest struct {
	ClassID   int64  `form:"classId" validate:"required,gt=0"`
	ExamID    int64  `form:"examId" validate:"required,gt=0"`
	SubjectID *int64 `form:"subjectId" validate:"omitempty,gt=0"`
	Format    string `form:"format" validate:"omitempty,oneof=csv pdf CSV PDF"`
}

// StudentReportRequest holds the query of the student timeline. Dates are YYYY-MM-DD.
type StudentReportRequest struct {
	StudentID int64  `form:"studentId" validate:"required,gt=0"`
	StartDate string `form:"startDate" validate:"omitempty,datetime=2006-01-02"`
	EndDate   string `form:"endDate" validate:"omitempty,datetime=2006-01-02"`
}

// ClassMonthlyRequest holds the query of the class dashboard. Month is YYYY-MM.
type ClassMonthlyRequest struct {
	ClassID int64  `form:"classId" validate:"required,gt=0"`
	Month   string `form:"month" validate:"omitempty,datetime=2006-01"`
}
