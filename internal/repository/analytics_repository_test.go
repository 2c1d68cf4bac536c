package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-analytics-api/internal/models"
)

func newAnalyticsMock(t *testing.T) (*AnalyticsRepository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return NewAnalyticsRepository(sqlx.NewDb(db, "sqlmock")), mock, func() { db.Close() }
}

func TestAnalyticsRepositoryFindClassNotFound(t *testing.T) {
	repo, mock, cleanup := newAnalyticsMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, grade, section FROM classes WHERE id = $1")).
		WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "grade", "section"}))

	class, err := repo.FindClass(context.Background(), 9)
	assert.Nil(t, class)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAnalyticsRepositoryFindStudent(t *testing.T) {
	repo, mock, cleanup := newAnalyticsMock(t)
	defer cleanup()

	rows := sqlmock.NewRows([]string{"id", "first_name", "last_name", "roll_no", "class_id", "class_name", "status"}).
		AddRow(int64(3), "Asha", "Rao", 4, int64(1), "Grade 8 A", "active")
	mock.ExpectQuery(regexp.QuoteMeta("FROM students st JOIN classes c ON c.id = st.class_id WHERE st.id = $1")).
		WithArgs(int64(3)).
		WillReturnRows(rows)

	student, err := repo.FindStudent(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, "Grade 8 A", student.ClassName)
	require.NotNil(t, student.RollNo)
	assert.Equal(t, 4, *student.RollNo)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAnalyticsRepositoryListActiveStudents(t *testing.T) {
	repo, mock, cleanup := newAnalyticsMock(t)
	defer cleanup()

	rows := sqlmock.NewRows([]string{"id", "first_name", "last_name", "roll_no"}).
		AddRow(int64(2), "Ben", "Cole", nil).
		AddRow(int64(1), "Asha", "Rao", 1)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE class_id = $1 AND status = $2 ORDER BY roll_no ASC NULLS FIRST, first_name ASC, id ASC")).
		WithArgs(int64(1), models.StudentStatusActive).
		WillReturnRows(rows)

	students, err := repo.ListActiveStudents(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, students, 2)
	assert.Nil(t, students[0].RollNo)
	require.NotNil(t, students[1].RollNo)
	assert.Equal(t, 1, *students[1].RollNo)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAnalyticsRepositoryListStudentsForClasses(t *testing.T) {
	repo, mock, cleanup := newAnalyticsMock(t)
	defer cleanup()

	rows := sqlmock.NewRows([]string{"id", "first_name", "last_name", "roll_no", "class_id", "class_name", "status"}).
		AddRow(int64(5), "Dara", "Ng", nil, int64(2), "Grade 8 A", "active").
		AddRow(int64(3), "Chen", "Li", 4, int64(2), "Grade 8 A", "active")
	mock.ExpectQuery(regexp.QuoteMeta("AND st.class_id = ANY($2) ORDER BY c.name ASC, st.roll_no ASC NULLS FIRST, st.first_name ASC")).
		WithArgs(models.StudentStatusActive, sqlmock.AnyArg()).
		WillReturnRows(rows)

	students, err := repo.ListStudents(context.Background(), []int64{2})
	require.NoError(t, err)
	require.Len(t, students, 2)
	assert.Nil(t, students[0].RollNo)
	assert.Equal(t, "Grade 8 A", students[1].ClassName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAnalyticsRepositoryListMarksEntriesFilters(t *testing.T) {
	repo, mock, cleanup := newAnalyticsMock(t)
	defer cleanup()

	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	start := time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "exam_id", "exam_name", "exam_start_date", "class_id", "subject_id", "subject_name", "student_id", "max_marks", "marks_obtained", "is_absent"}).
		AddRow(int64(1), int64(2), "Unit Test", start, int64(1), int64(5), "Mathematics", int64(7), 100.0, 80.0, false).
		AddRow(int64(2), int64(2), "Unit Test", start, int64(1), int64(6), "English", int64(7), 100.0, nil, true)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE 1=1 AND me.student_id = $1 AND e.start_date >= $2 ORDER BY e.start_date ASC NULLS LAST, me.exam_id ASC, sb.name ASC, me.id ASC")).
		WithArgs(int64(7), from).
		WillReturnRows(rows)

	studentID := int64(7)
	entries, err := repo.ListMarksEntries(context.Background(), models.MarksEntryFilter{StudentID: &studentID, ExamFrom: &from})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.NotNil(t, entries[0].MarksObtained)
	assert.Equal(t, 80.0, *entries[0].MarksObtained)
	assert.Nil(t, entries[1].MarksObtained)
	assert.True(t, entries[1].IsAbsent)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAnalyticsRepositoryListMarksEntriesError(t *testing.T) {
	repo, mock, cleanup := newAnalyticsMock(t)
	defer cleanup()

	mock.ExpectQuery("FROM marks_entries me").WillReturnError(assert.AnError)

	examID, classID := int64(1), int64(2)
	_, err := repo.ListMarksEntries(context.Background(), models.MarksEntryFilter{ExamID: &examID, ClassID: &classID})
	assert.ErrorIs(t, err, assert.AnError)
}

func TestAnalyticsRepositoryListAttendanceEntries(t *testing.T) {
	repo, mock, cleanup := newAnalyticsMock(t)
	defer cleanup()

	day := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "session_date", "class_id", "subject_id", "student_id", "status"}).
		AddRow(int64(1), day, int64(1), nil, int64(7), "present")
	mock.ExpectQuery(regexp.QuoteMeta("WHERE 1=1 AND s.class_id = ANY($1) ORDER BY s.date ASC, ae.id ASC")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(rows)

	entries, err := repo.ListAttendanceEntries(context.Background(), models.AttendanceEntryFilter{ClassIDs: []int64{1, 2}})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, models.AttendanceStatusPresent, entries[0].Status)
	assert.Nil(t, entries[0].SubjectID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAnalyticsRepositoryLatestExamForClass(t *testing.T) {
	repo, mock, cleanup := newAnalyticsMock(t)
	defer cleanup()

	rows := sqlmock.NewRows([]string{"id", "name", "exam_type", "start_date", "end_date"}).
		AddRow(int64(5), "Mid Term", "Mid", time.Date(2024, 3, 12, 0, 0, 0, 0, time.UTC), nil)
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY e.start_date DESC NULLS LAST, e.id DESC LIMIT 1")).
		WithArgs(int64(1)).
		WillReturnRows(rows)

	exam, err := repo.LatestExamForClass(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(5), exam.ID)
	assert.Equal(t, models.ExamTypeMid, exam.ExamType)
	assert.Nil(t, exam.EndDate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAnalyticsRepositoryClassSubjectOption(t *testing.T) {
	repo, mock, cleanup := newAnalyticsMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, is_optional FROM class_subjects WHERE class_id = $1 AND subject_id = $2")).
		WithArgs(int64(1), int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "is_optional"}).AddRow(int64(9), true))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT student_id FROM student_subjects WHERE class_subject_id = $1 AND is_enrolled = FALSE")).
		WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"student_id"}).AddRow(int64(2)).AddRow(int64(4)))

	option, err := repo.ClassSubjectOption(context.Background(), 1, 3)
	require.NoError(t, err)
	assert.True(t, option.IsOptional)
	assert.Equal(t, []int64{2, 4}, option.OptedOutStudentIDs)
	assert.Len(t, option.OptedOut(), 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAnalyticsRepositoryClassSubjectOptionCompulsory(t *testing.T) {
	repo, mock, cleanup := newAnalyticsMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta("FROM class_subjects")).
		WithArgs(int64(1), int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "is_optional"}).AddRow(int64(4), false))

	option, err := repo.ClassSubjectOption(context.Background(), 1, 1)
	require.NoError(t, err)
	assert.False(t, option.IsOptional)
	assert.Empty(t, option.OptedOut())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScopeRepository(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()
	repo := NewScopeRepository(sqlx.NewDb(db, "sqlmock"))

	mock.ExpectQuery(regexp.QuoteMeta("SELECT DISTINCT class_id FROM teacher_assignments WHERE teacher_id = $1 AND is_active = TRUE")).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"class_id"}).AddRow(int64(1)).AddRow(int64(3)))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT class_id FROM students WHERE id = $1")).
		WithArgs(int64(99)).
		WillReturnRows(sqlmock.NewRows([]string{"class_id"}))

	ids, err := repo.AssignedClassIDs(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 3}, ids)

	_, err = repo.StudentClassID(context.Background(), 99)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
