package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/sma-analytics-api/internal/models"
)

const marksEntryColumns = `me.id, me.exam_id, e.name AS exam_name, e.start_date AS exam_start_date, me.class_id,
        me.subject_id, sb.name AS subject_name, me.student_id, me.max_marks, me.marks_obtained, me.is_absent`

// AnalyticsRepository reads the raw rows the report builders aggregate.
type AnalyticsRepository struct {
	db *sqlx.DB
}

// NewAnalyticsRepository instantiates the repository.
func NewAnalyticsRepository(db *sqlx.DB) *AnalyticsRepository {
	return &AnalyticsRepository{db: db}
}

// FindClass returns the class by id or sql.ErrNoRows.
func (r *AnalyticsRepository) FindClass(ctx context.Context, id int64) (*models.Class, error) {
	var class models.Class
	if err := r.db.GetContext(ctx, &class, "SELECT id, name, grade, section FROM classes WHERE id = $1", id); err != nil {
		return nil, err
	}
	return &class, nil
}

// FindExam returns the exam by id or sql.ErrNoRows.
func (r *AnalyticsRepository) FindExam(ctx context.Context, id int64) (*models.Exam, error) {
	var exam models.Exam
	if err := r.db.GetContext(ctx, &exam, "SELECT id, name, exam_type, start_date, end_date FROM exams WHERE id = $1", id); err != nil {
		return nil, err
	}
	return &exam, nil
}

// FindSubject returns the subject by id or sql.ErrNoRows.
func (r *AnalyticsRepository) FindSubject(ctx context.Context, id int64) (*models.Subject, error) {
	var subject models.Subject
	if err := r.db.GetContext(ctx, &subject, "SELECT id, name, code FROM subjects WHERE id = $1", id); err != nil {
		return nil, err
	}
	return &subject, nil
}

// FindStudent returns the student with their class name or sql.ErrNoRows.
func (r *AnalyticsRepository) FindStudent(ctx context.Context, id int64) (*models.Student, error) {
	const query = `SELECT st.id, st.first_name, st.last_name, st.roll_no, st.class_id, c.name AS class_name, st.status
        FROM students st JOIN classes c ON c.id = st.class_id WHERE st.id = $1`
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		return nil, err
	}
	return &student, nil
}

// ListActiveStudents returns the active roster of a class ordered by roll number then first name.
func (r *AnalyticsRepository) ListActiveStudents(ctx context.Context, classID int64) ([]models.RosterStudent, error) {
	const query = `SELECT id, first_name, last_name, roll_no FROM students
        WHERE class_id = $1 AND status = $2 ORDER BY roll_no ASC NULLS FIRST, first_name ASC, id ASC`
	var students []models.RosterStudent
	if err := r.db.SelectContext(ctx, &students, query, classID, models.StudentStatusActive); err != nil {
		return nil, fmt.Errorf("list active students: %w", err)
	}
	return students, nil
}

// ListStudents returns active students with class names. A nil classIDs lists every class.
func (r *AnalyticsRepository) ListStudents(ctx context.Context, classIDs []int64) ([]models.Student, error) {
	var builder strings.Builder
	builder.WriteString(`SELECT st.id, st.first_name, st.last_name, st.roll_no, st.class_id, c.name AS class_name, st.status
        FROM students st JOIN classes c ON c.id = st.class_id WHERE st.status = $1`)
	args := []interface{}{models.StudentStatusActive}
	if classIDs != nil {
		args = append(args, pq.Array(classIDs))
		builder.WriteString(fmt.Sprintf(" AND st.class_id = ANY($%d)", len(args)))
	}
	builder.WriteString(" ORDER BY c.name ASC, st.roll_no ASC NULLS FIRST, st.first_name ASC")

	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	return students, nil
}

// ListMarksEntries returns marks rows joined with exam and subject metadata.
func (r *AnalyticsRepository) ListMarksEntries(ctx context.Context, filter models.MarksEntryFilter) ([]models.MarksEntry, error) {
	var builder strings.Builder
	builder.WriteString("SELECT " + marksEntryColumns + `
        FROM marks_entries me
        JOIN exams e ON e.id = me.exam_id
        JOIN subjects sb ON sb.id = me.subject_id
        WHERE 1=1`)
	var args []interface{}
	if filter.ExamID != nil {
		args = append(args, *filter.ExamID)
		builder.WriteString(fmt.Sprintf(" AND me.exam_id = $%d", len(args)))
	}
	if filter.ClassID != nil {
		args = append(args, *filter.ClassID)
		builder.WriteString(fmt.Sprintf(" AND me.class_id = $%d", len(args)))
	}
	if filter.SubjectID != nil {
		args = append(args, *filter.SubjectID)
		builder.WriteString(fmt.Sprintf(" AND me.subject_id = $%d", len(args)))
	}
	if filter.StudentID != nil {
		args = append(args, *filter.StudentID)
		builder.WriteString(fmt.Sprintf(" AND me.student_id = $%d", len(args)))
	}
	if filter.ExamFrom != nil {
		args = append(args, *filter.ExamFrom)
		builder.WriteString(fmt.Sprintf(" AND e.start_date >= $%d", len(args)))
	}
	if filter.ExamTo != nil {
		args = append(args, *filter.ExamTo)
		builder.WriteString(fmt.Sprintf(" AND e.start_date <= $%d", len(args)))
	}
	builder.WriteString(" ORDER BY e.start_date ASC NULLS LAST, me.exam_id ASC, sb.name ASC, me.id ASC")

	var entries []models.MarksEntry
	if err := r.db.SelectContext(ctx, &entries, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("query marks entries: %w", err)
	}
	return entries, nil
}

// ListAttendanceEntries returns attendance rows joined with their session date.
func (r *AnalyticsRepository) ListAttendanceEntries(ctx context.Context, filter models.AttendanceEntryFilter) ([]models.AttendanceEntry, error) {
	var builder strings.Builder
	builder.WriteString(`SELECT ae.id, s.date AS session_date, s.class_id, s.subject_id, ae.student_id, ae.status
        FROM attendance_entries ae
        JOIN attendance_sessions s ON s.id = ae.session_id
        WHERE 1=1`)
	var args []interface{}
	if filter.ClassID != nil {
		args = append(args, *filter.ClassID)
		builder.WriteString(fmt.Sprintf(" AND s.class_id = $%d", len(args)))
	}
	if filter.ClassIDs != nil {
		args = append(args, pq.Array(filter.ClassIDs))
		builder.WriteString(fmt.Sprintf(" AND s.class_id = ANY($%d)", len(args)))
	}
	if filter.StudentID != nil {
		args = append(args, *filter.StudentID)
		builder.WriteString(fmt.Sprintf(" AND ae.student_id = $%d", len(args)))
	}
	if filter.DateFrom != nil {
		args = append(args, *filter.DateFrom)
		builder.WriteString(fmt.Sprintf(" AND s.date >= $%d", len(args)))
	}
	if filter.DateTo != nil {
		args = append(args, *filter.DateTo)
		builder.WriteString(fmt.Sprintf(" AND s.date <= $%d", len(args)))
	}
	builder.WriteString(" ORDER BY s.date ASC, ae.id ASC")

	var entries []models.AttendanceEntry
	if err := r.db.SelectContext(ctx, &entries, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("query attendance entries: %w", err)
	}
	return entries, nil
}

// LatestExamForClass returns the most recent exam with marks recorded for the class. Ties on
// start date go to the highest exam id and undated exams come last. It returns sql.ErrNoRows
// when the class has no marks.
func (r *AnalyticsRepository) LatestExamForClass(ctx context.Context, classID int64) (*models.Exam, error) {
	const query = `SELECT e.id, e.name, e.exam_type, e.start_date, e.end_date FROM exams e
        WHERE EXISTS (SELECT 1 FROM marks_entries me WHERE me.exam_id = e.id AND me.class_id = $1)
        ORDER BY e.start_date DESC NULLS LAST, e.id DESC LIMIT 1`
	var exam models.Exam
	if err := r.db.GetContext(ctx, &exam, query, classID); err != nil {
		return nil, err
	}
	return &exam, nil
}

// ClassSubjectOption returns the optional flag of a class/subject pairing together with the
// students who opted out. It returns sql.ErrNoRows when the subject is not taught in the class.
func (r *AnalyticsRepository) ClassSubjectOption(ctx context.Context, classID, subjectID int64) (*models.ClassSubjectOption, error) {
	var option models.ClassSubjectOption
	if err := r.db.GetContext(ctx, &option, "SELECT id, is_optional FROM class_subjects WHERE class_id = $1 AND subject_id = $2", classID, subjectID); err != nil {
		return nil, err
	}
	if !option.IsOptional {
		return &option, nil
	}

	var optedOut []int64
	if err := r.db.SelectContext(ctx, &optedOut, "SELECT student_id FROM student_subjects WHERE class_subject_id = $1 AND is_enrolled = FALSE ORDER BY student_id", option.ClassSubjectID); err != nil {
		return nil, fmt.Errorf("list opted out students: %w", err)
	}
	option.OptedOutStudentIDs = optedOut
	return &option, nil
}
