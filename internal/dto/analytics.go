package dto

import (
	"time"

	"github.com/noah-isme/sma-analytics-api/internal/models"
)

// RiskLevel classifies a student's combined attendance and marks standing.
type RiskLevel string

const (
	RiskLow     RiskLevel = "low"
	RiskMedium  RiskLevel = "medium"
	RiskHigh    RiskLevel = "high"
	RiskUnknown RiskLevel = "unknown"
)

// TrendDirection describes the movement between a student's last two scored exams.
type TrendDirection string

const (
	TrendImproving TrendDirection = "improving"
	TrendDeclining TrendDirection = "declining"
	TrendSteady    TrendDirection = "steady"
	TrendUnknown   TrendDirection = "unknown"
)

// DistributionBucket counts percents falling into a labelled range.
type DistributionBucket struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// SubjectAverage is a subject's mean per-entry percent. AvgPercent is nil when no entry was scored.
type SubjectAverage struct {
	SubjectID   int64    `json:"subject_id"`
	SubjectName string   `json:"subject_name"`
	AvgPercent  *float64 `json:"avg_percent"`
}

// ClassExamReport is the class-wise drill-down for one exam, optionally narrowed to a subject.
type ClassExamReport struct {
	Class            models.Class         `json:"class"`
	Exam             models.Exam          `json:"exam"`
	Subject          *models.Subject      `json:"subject"`
	Summary          ClassExamSummary     `json:"summary"`
	Distribution     []DistributionBucket `json:"distribution"`
	SubjectBreakdown []SubjectAverage     `json:"subject_breakdown"`
	TopPerformers    []StudentResult      `json:"top_performers"`
	BottomPerformers []StudentResult      `json:"bottom_performers"`
	Students         []StudentResult      `json:"students"`
}

// ClassExamSummary holds scored-student statistics and the absent/missing accounting.
type ClassExamSummary struct {
	AveragePercent *float64 `json:"average_percent"`
	HighestPercent *float64 `json:"highest_percent"`
	LowestPercent  *float64 `json:"lowest_percent"`
	PassCount      int      `json:"pass_count"`
	FailCount      int      `json:"fail_count"`
	AbsentCount    int      `json:"absent_count"`
	MissingCount   int      `json:"missing_count"`
	TotalStudents  int      `json:"total_students"`
}

// StudentResult is one roster student's totals for an exam scope.
type StudentResult struct {
	StudentID     int64    `json:"student_id"`
	FirstName     string   `json:"first_name"`
	LastName      string   `json:"last_name"`
	RollNo        *int     `json:"roll_no"`
	MaxTotal      float64  `json:"max_total"`
	ObtainedTotal float64  `json:"obtained_total"`
	EntryCount    int      `json:"entry_count"`
	AbsentCount   int      `json:"absent_count"`
	MissingCount  int      `json:"missing_count"`
	Percent       *float64 `json:"percent"`
	IsAbsent      bool     `json:"is_absent"`
}

// AttendanceTrendPoint is the present rate of a single session date.
type AttendanceTrendPoint struct {
	Date        string  `json:"date"`
	PresentRate float64 `json:"present_rate"`
}

// RiskCounts tallies students per risk level.
type RiskCounts struct {
	Low     int `json:"low"`
	Medium  int `json:"medium"`
	High    int `json:"high"`
	Unknown int `json:"unknown"`
}

// Add increments the counter for level.
func (r *RiskCounts) Add(level RiskLevel) {
	switch level {
	case RiskLow:
		r.Low++
	case RiskMedium:
		r.Medium++
	case RiskHigh:
		r.High++
	default:
		r.Unknown++
	}
}

// ClassMonthlyReport is the dashboard view of a class for one month.
type ClassMonthlyReport struct {
	Class              models.Class           `json:"class"`
	Month              string                 `json:"month"`
	LatestExam         *models.Exam           `json:"latest_exam"`
	Summary            ClassMonthlySummary    `json:"summary"`
	AttendanceTrend    []AttendanceTrendPoint `json:"attendance_trend"`
	SubjectAverages    []SubjectAverage       `json:"subject_averages"`
	MarksDistribution  []DistributionBucket   `json:"marks_distribution"`
	StudentPerformance []StudentPerformance   `json:"student_performance"`
}

// ClassMonthlySummary aggregates the per-student performance rows.
type ClassMonthlySummary struct {
	AverageAttendance *float64   `json:"average_attendance"`
	AverageMarks      *float64   `json:"average_marks"`
	Correlation       *float64   `json:"correlation"`
	RiskCounts        RiskCounts `json:"risk_counts"`
}

// StudentPerformance pairs a student's attendance rate with their latest exam percent.
type StudentPerformance struct {
	StudentID        int64     `json:"student_id"`
	FirstName        string    `json:"first_name"`
	LastName         string    `json:"last_name"`
	RollNo           *int      `json:"roll_no"`
	AttendanceRate   *float64  `json:"attendance_rate"`
	MarksPercent     *float64  `json:"marks_percent"`
	PerformanceScore *float64  `json:"performance_score"`
	RiskLevel        RiskLevel `json:"risk_level"`
	MissingMarks     int       `json:"missing_marks"`
}

// StudentReport is the per-student analytics timeline.
type StudentReport struct {
	Student     models.Student    `json:"student"`
	Attendance  AttendanceSummary `json:"attendance"`
	Marks       MarksTimeline     `json:"marks"`
	Trend       Trend             `json:"trend"`
	Correlation *float64          `json:"correlation"`
}

// AttendanceSummary counts a student's attendance by status.
type AttendanceSummary struct {
	Total   int                  `json:"total"`
	Present int                  `json:"present"`
	Absent  int                  `json:"absent"`
	Late    int                  `json:"late"`
	Excused int                  `json:"excused"`
	Rate    *float64             `json:"rate"`
	Log     []AttendanceLogEntry `json:"log"`
}

// AttendanceLogEntry is one dated status in the audit log.
type AttendanceLogEntry struct {
	Date   string                  `json:"date"`
	Status models.AttendanceStatus `json:"status"`
}

// MarksTimeline groups a student's marks per exam and per subject.
type MarksTimeline struct {
	OverallPercent *float64        `json:"overall_percent"`
	Exams          []ExamResult    `json:"exams"`
	Subjects       []SubjectResult `json:"subjects"`
	Strengths      []SubjectResult `json:"strengths"`
	Gaps           []SubjectResult `json:"gaps"`
	AbsentExams    []AbsentExam    `json:"absent_exams"`
}

// ExamResult is one exam row of the timeline.
type ExamResult struct {
	ExamID        int64      `json:"exam_id"`
	ExamName      string     `json:"exam_name"`
	StartDate     *time.Time `json:"start_date"`
	MaxTotal      float64    `json:"max_total"`
	ObtainedTotal float64    `json:"obtained_total"`
	AbsentCount   int        `json:"absent_count"`
	MissingCount  int        `json:"missing_count"`
	Percent       *float64   `json:"percent"`
}

// SubjectResult is a subject's totals across the exams in range.
type SubjectResult struct {
	SubjectID     int64    `json:"subject_id"`
	SubjectName   string   `json:"subject_name"`
	MaxTotal      float64  `json:"max_total"`
	ObtainedTotal float64  `json:"obtained_total"`
	AvgPercent    *float64 `json:"avg_percent"`
}

// AbsentExam names an exam subject the student was marked absent for.
type AbsentExam struct {
	ExamID      int64  `json:"exam_id"`
	ExamName    string `json:"exam_name"`
	SubjectID   int64  `json:"subject_id"`
	SubjectName string `json:"subject_name"`
}

// Trend is the direction and size of the latest change in exam percent.
type Trend struct {
	Direction TrendDirection `json:"direction"`
	Delta     *float64       `json:"delta"`
}

// AttendanceAlert flags a student whose present rate fell below the alert threshold.
type AttendanceAlert struct {
	StudentID   int64   `json:"student_id"`
	FirstName   string  `json:"first_name"`
	LastName    string  `json:"last_name"`
	RollNo      *int    `json:"roll_no"`
	ClassID     int64   `json:"class_id"`
	ClassName   string  `json:"class_name"`
	PresentRate float64 `json:"present_rate"`
}
