package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/sma-analytics-api/internal/analytics"
	"github.com/noah-isme/sma-analytics-api/internal/dto"
	"github.com/noah-isme/sma-analytics-api/internal/models"
)

const (
	reportClassExam    = "class_exam"
	reportClassMonthly = "class_monthly"
	reportStudent      = "student"
	reportAlerts       = "alerts"
)

// AnalyticsStore is the read-only data access the report builders depend on. Lookups of a
// single row return sql.ErrNoRows when nothing matches.
type AnalyticsStore interface {
	FindClass(ctx context.Context, id int64) (*models.Class, error)
	FindExam(ctx context.Context, id int64) (*models.Exam, error)
	FindSubject(ctx context.Context, id int64) (*models.Subject, error)
	FindStudent(ctx context.Context, id int64) (*models.Student, error)
	ListActiveStudents(ctx context.Context, classID int64) ([]models.RosterStudent, error)
	ListStudents(ctx context.Context, classIDs []int64) ([]models.Student, error)
	ListMarksEntries(ctx context.Context, filter models.MarksEntryFilter) ([]models.MarksEntry, error)
	ListAttendanceEntries(ctx context.Context, filter models.AttendanceEntryFilter) ([]models.AttendanceEntry, error)
	LatestExamForClass(ctx context.Context, classID int64) (*models.Exam, error)
	ClassSubjectOption(ctx context.Context, classID, subjectID int64) (*models.ClassSubjectOption, error)
}

// AnalyticsConfig tunes report caching and attendance alerts.
type AnalyticsConfig struct {
	ReportTTL      time.Duration
	DashboardTTL   time.Duration
	AlertThreshold float64
	AlertLimit     int
}

// ClassExamQuery selects the class-wise exam drill-down.
type ClassExamQuery struct {
	ClassID   int64
	ExamID    int64
	SubjectID *int64
}

// StudentQuery selects a student's timeline. Date bounds are inclusive and optional.
type StudentQuery struct {
	StudentID int64
	StartDate *time.Time
	EndDate   *time.Time
}

// AnalyticsService assembles class and student reports from raw attendance and marks rows.
type AnalyticsService struct {
	store   AnalyticsStore
	cache   *CacheService
	metrics *MetricsService
	logger  *zap.Logger
	config  AnalyticsConfig
	now     func() time.Time
}

// NewAnalyticsService constructs an analytics service.
func NewAnalyticsService(store AnalyticsStore, cache *CacheService, metrics *MetricsService, logger *zap.Logger, cfg AnalyticsConfig) *AnalyticsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.AlertThreshold <= 0 {
		cfg.AlertThreshold = 0.75
	}
	if cfg.AlertLimit <= 0 {
		cfg.AlertLimit = 20
	}
	return &AnalyticsService{
		store:   store,
		cache:   cache,
		metrics: metrics,
		logger:  logger,
		config:  cfg,
		now:     time.Now,
	}
}

// ClassExam builds the class-wise report for one exam, optionally narrowed to a subject. A nil
// report means the class, exam or subject does not exist. The boolean reports a cache hit.
func (s *AnalyticsService) ClassExam(ctx context.Context, query ClassExamQuery) (*dto.ClassExamReport, bool, error) {
	subjectKey := ""
	if query.SubjectID != nil {
		subjectKey = formatID(*query.SubjectID)
	}
	cacheKey := makeAnalyticsCacheKey(reportClassExam, formatID(query.ClassID), formatID(query.ExamID), subjectKey)
	var cached dto.ClassExamReport
	if s.fromCache(ctx, cacheKey, &cached) {
		return &cached, true, nil
	}

	start := time.Now()
	report, err := s.buildClassExam(ctx, query)
	if err != nil {
		return nil, false, err
	}
	if report == nil {
		s.metrics.RecordReportNotFound(reportClassExam)
		return nil, false, nil
	}
	s.metrics.ObserveReport(reportClassExam, time.Since(start))
	s.toCache(ctx, cacheKey, report, s.config.ReportTTL)
	return report, false, nil
}

func (s *AnalyticsService) buildClassExam(ctx context.Context, query ClassExamQuery) (*dto.ClassExamReport, error) {
	class, err := s.store.FindClass(ctx, query.ClassID)
	if err != nil {
		return nil, notFoundAsNil("find class", err)
	}
	if class == nil {
		return nil, nil
	}
	exam, err := s.store.FindExam(ctx, query.ExamID)
	if err != nil {
		return nil, notFoundAsNil("find exam", err)
	}
	if exam == nil {
		return nil, nil
	}

	var subject *models.Subject
	optedOut := map[int64]struct{}{}
	if query.SubjectID != nil {
		subject, err = s.store.FindSubject(ctx, *query.SubjectID)
		if err != nil {
			return nil, notFoundAsNil("find subject", err)
		}
		if subject == nil {
			return nil, nil
		}
		option, err := s.store.ClassSubjectOption(ctx, query.ClassID, *query.SubjectID)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("class subject option: %w", err)
		}
		optedOut = option.OptedOut()
	}

	var (
		students []models.RosterStudent
		entries  []models.MarksEntry
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		students, err = s.timedStudents(gctx, query.ClassID)
		return err
	})
	g.Go(func() error {
		var err error
		entries, err = s.timedMarks(gctx, models.MarksEntryFilter{
			ExamID:    &query.ExamID,
			ClassID:   &query.ClassID,
			SubjectID: query.SubjectID,
		})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := analytics.BuildClassExamReport(students, entries, optedOut, query.SubjectID == nil)
	report.Class = *class
	report.Exam = *exam
	report.Subject = subject
	return &report, nil
}

// ClassMonthly builds the dashboard report of a class for month (YYYY-MM, empty for the
// current month). A nil report means the class does not exist.
func (s *AnalyticsService) ClassMonthly(ctx context.Context, classID int64, month string) (*dto.ClassMonthlyReport, bool, error) {
	period := analytics.MonthOf(s.now().UTC())
	if strings.TrimSpace(month) != "" {
		parsed, err := analytics.ParseMonth(month)
		if err != nil {
			return nil, false, err
		}
		period = parsed
	}

	cacheKey := makeAnalyticsCacheKey(reportClassMonthly, formatID(classID), period.String())
	var cached dto.ClassMonthlyReport
	if s.fromCache(ctx, cacheKey, &cached) {
		return &cached, true, nil
	}

	start := time.Now()
	report, err := s.buildClassMonthly(ctx, classID, period)
	if err != nil {
		return nil, false, err
	}
	if report == nil {
		s.metrics.RecordReportNotFound(reportClassMonthly)
		return nil, false, nil
	}
	s.metrics.ObserveReport(reportClassMonthly, time.Since(start))
	s.toCache(ctx, cacheKey, report, s.config.DashboardTTL)
	return report, false, nil
}

func (s *AnalyticsService) buildClassMonthly(ctx context.Context, classID int64, period analytics.Month) (*dto.ClassMonthlyReport, error) {
	class, err := s.store.FindClass(ctx, classID)
	if err != nil {
		return nil, notFoundAsNil("find class", err)
	}
	if class == nil {
		return nil, nil
	}

	var (
		students   []models.RosterStudent
		attendance []models.AttendanceEntry
		latest     *models.Exam
		marks      []models.MarksEntry
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		students, err = s.timedStudents(gctx, classID)
		return err
	})
	g.Go(func() error {
		var err error
		attendance, err = s.timedAttendance(gctx, models.AttendanceEntryFilter{ClassID: &classID})
		return err
	})
	g.Go(func() error {
		exam, err := s.store.LatestExamForClass(gctx, classID)
		if err != nil {
			return notFoundAsNil("latest exam", err)
		}
		if exam == nil {
			return nil
		}
		latest = exam
		marks, err = s.timedMarks(gctx, models.MarksEntryFilter{ExamID: &exam.ID, ClassID: &classID})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	tallies := make(map[int64]*analytics.Tally)
	for _, entry := range marks {
		t, ok := tallies[entry.StudentID]
		if !ok {
			t = &analytics.Tally{}
			tallies[entry.StudentID] = t
		}
		t.Add(entry)
	}
	rates := analytics.PresentRatesByStudent(attendance)

	report := &dto.ClassMonthlyReport{
		Class:              *class,
		Month:              period.String(),
		LatestExam:         latest,
		AttendanceTrend:    analytics.ClassAttendanceTrend(attendance, period),
		SubjectAverages:    []dto.SubjectAverage{},
		StudentPerformance: make([]dto.StudentPerformance, 0, len(students)),
	}
	if latest != nil {
		report.SubjectAverages = analytics.SubjectBreakdown(marks)
	}

	attendanceRates := make([]*float64, 0, len(students))
	marksPercents := make([]*float64, 0, len(students))
	pairs := make([]analytics.Pair, 0, len(students))
	for _, student := range students {
		row := dto.StudentPerformance{
			StudentID:      student.ID,
			FirstName:      student.FirstName,
			LastName:       student.LastName,
			RollNo:         student.RollNo,
			AttendanceRate: rates[student.ID],
		}
		if t, ok := tallies[student.ID]; ok {
			row.MarksPercent = t.Percent()
			row.MissingMarks = t.Missing
		}
		row.PerformanceScore = analytics.Score(row.AttendanceRate, row.MarksPercent)
		row.RiskLevel = analytics.Risk(row.AttendanceRate, row.MarksPercent)

		report.Summary.RiskCounts.Add(row.RiskLevel)
		attendanceRates = append(attendanceRates, row.AttendanceRate)
		marksPercents = append(marksPercents, row.MarksPercent)
		if row.AttendanceRate != nil && row.MarksPercent != nil {
			pairs = append(pairs, analytics.Pair{X: *row.AttendanceRate, Y: *row.MarksPercent})
		}
		report.StudentPerformance = append(report.StudentPerformance, row)
	}

	report.Summary.AverageAttendance = analytics.Average(attendanceRates)
	report.Summary.AverageMarks = analytics.Average(marksPercents)
	report.Summary.Correlation = analytics.Correlation(pairs)
	report.MarksDistribution = analytics.BucketDistribution(marksPercents)
	return report, nil
}

// Student builds the per-student timeline. A nil report means the student does not exist.
func (s *AnalyticsService) Student(ctx context.Context, query StudentQuery) (*dto.StudentReport, bool, error) {
	cacheKey := makeAnalyticsCacheKey(reportStudent, formatID(query.StudentID), formatTime(query.StartDate), formatTime(query.EndDate))
	var cached dto.StudentReport
	if s.fromCache(ctx, cacheKey, &cached) {
		return &cached, true, nil
	}

	start := time.Now()
	report, err := s.buildStudent(ctx, query)
	if err != nil {
		return nil, false, err
	}
	if report == nil {
		s.metrics.RecordReportNotFound(reportStudent)
		return nil, false, nil
	}
	s.metrics.ObserveReport(reportStudent, time.Since(start))
	s.toCache(ctx, cacheKey, report, s.config.ReportTTL)
	return report, false, nil
}

func (s *AnalyticsService) buildStudent(ctx context.Context, query StudentQuery) (*dto.StudentReport, error) {
	student, err := s.store.FindStudent(ctx, query.StudentID)
	if err != nil {
		return nil, notFoundAsNil("find student", err)
	}
	if student == nil {
		return nil, nil
	}

	var (
		attendance []models.AttendanceEntry
		marks      []models.MarksEntry
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		attendance, err = s.timedAttendance(gctx, models.AttendanceEntryFilter{StudentID: &query.StudentID})
		return err
	})
	g.Go(func() error {
		var err error
		marks, err = s.timedMarks(gctx, models.MarksEntryFilter{
			StudentID: &query.StudentID,
			ExamFrom:  query.StartDate,
			ExamTo:    query.EndDate,
		})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	timeline := analytics.BuildMarksTimeline(marks)
	monthly := analytics.MonthlyPresentRates(attendance)

	pairs := make([]analytics.Pair, 0, len(timeline.Exams))
	for _, exam := range timeline.Exams {
		if exam.Percent == nil || exam.StartDate == nil {
			continue
		}
		rate := monthly[analytics.MonthOf(*exam.StartDate).String()]
		if rate == nil {
			continue
		}
		pairs = append(pairs, analytics.Pair{X: *rate, Y: *exam.Percent})
	}

	return &dto.StudentReport{
		Student:     *student,
		Attendance:  analytics.SummarizeStudentAttendance(attendance, analytics.DateRange{From: query.StartDate, To: query.EndDate}),
		Marks:       timeline,
		Trend:       analytics.Trend(timeline.Exams),
		Correlation: analytics.Correlation(pairs),
	}, nil
}

// AttendanceAlerts lists students whose overall present rate is below the alert threshold,
// lowest first. A nil classIDs covers every class; an empty one yields no alerts.
func (s *AnalyticsService) AttendanceAlerts(ctx context.Context, classIDs []int64) ([]dto.AttendanceAlert, error) {
	alerts := []dto.AttendanceAlert{}
	if classIDs != nil && len(classIDs) == 0 {
		return alerts, nil
	}

	start := time.Now()
	var (
		students   []models.Student
		attendance []models.AttendanceEntry
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		queryStart := time.Now()
		var err error
		students, err = s.store.ListStudents(gctx, classIDs)
		if err != nil {
			return fmt.Errorf("list students: %w", err)
		}
		s.metrics.ObserveDBQuery("analytics_students", time.Since(queryStart))
		return nil
	})
	g.Go(func() error {
		var err error
		attendance, err = s.timedAttendance(gctx, models.AttendanceEntryFilter{ClassIDs: classIDs})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	rates := analytics.PresentRatesByStudent(attendance)
	for _, student := range students {
		rate := rates[student.ID]
		if rate == nil || *rate >= s.config.AlertThreshold {
			continue
		}
		alerts = append(alerts, dto.AttendanceAlert{
			StudentID:   student.ID,
			FirstName:   student.FirstName,
			LastName:    student.LastName,
			RollNo:      student.RollNo,
			ClassID:     student.ClassID,
			ClassName:   student.ClassName,
			PresentRate: *rate,
		})
	}
	sort.SliceStable(alerts, func(i, j int) bool {
		return alerts[i].PresentRate < alerts[j].PresentRate
	})
	if len(alerts) > s.config.AlertLimit {
		alerts = alerts[:s.config.AlertLimit]
	}

	s.metrics.ObserveReport(reportAlerts, time.Since(start))
	return alerts, nil
}

// SystemMetrics returns system instrumentation snapshot.
func (s *AnalyticsService) SystemMetrics() models.AnalyticsSystemMetrics {
	if s.metrics == nil {
		return models.AnalyticsSystemMetrics{}
	}
	return s.metrics.Snapshot()
}

func (s *AnalyticsService) timedStudents(ctx context.Context, classID int64) ([]models.RosterStudent, error) {
	start := time.Now()
	students, err := s.store.ListActiveStudents(ctx, classID)
	if err != nil {
		return nil, fmt.Errorf("list active students: %w", err)
	}
	s.metrics.ObserveDBQuery("analytics_roster", time.Since(start))
	return students, nil
}

func (s *AnalyticsService) timedMarks(ctx context.Context, filter models.MarksEntryFilter) ([]models.MarksEntry, error) {
	start := time.Now()
	entries, err := s.store.ListMarksEntries(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list marks entries: %w", err)
	}
	s.metrics.ObserveDBQuery("analytics_marks", time.Since(start))
	return entries, nil
}

func (s *AnalyticsService) timedAttendance(ctx context.Context, filter models.AttendanceEntryFilter) ([]models.AttendanceEntry, error) {
	start := time.Now()
	entries, err := s.store.ListAttendanceEntries(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list attendance entries: %w", err)
	}
	s.metrics.ObserveDBQuery("analytics_attendance", time.Since(start))
	return entries, nil
}

// fromCache loads key into dest. Cache failures are logged and treated as misses.
func (s *AnalyticsService) fromCache(ctx context.Context, key string, dest interface{}) bool {
	if s.cache == nil {
		return false
	}
	hit, err := s.cache.Get(ctx, key, dest)
	if err != nil {
		s.logger.Warn("analytics cache read", zap.String("key", key), zap.Error(err))
		return false
	}
	return hit
}

func (s *AnalyticsService) toCache(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, value, ttl); err != nil {
		s.logger.Warn("analytics cache write", zap.String("key", key), zap.Error(err))
	}
}

// notFoundAsNil maps sql.ErrNoRows to a nil error so callers can return a nil report.
func notFoundAsNil(op string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}

func makeAnalyticsCacheKey(parts ...string) string {
	var builder strings.Builder
	builder.Grow(len(parts) * 16)
	builder.WriteString("analytics")
	for _, part := range parts {
		if part == "" {
			part = "-"
		}
		builder.WriteByte(':')
		builder.WriteString(strings.ReplaceAll(part, ":", "|"))
	}
	return builder.String()
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format("2006-01-02")
}
