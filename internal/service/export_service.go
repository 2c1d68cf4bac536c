package service

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-analytics-api/internal/analytics"
	"github.com/noah-isme/sma-analytics-api/internal/dto"
	appErrors "github.com/noah-isme/sma-analytics-api/pkg/errors"
	"github.com/noah-isme/sma-analytics-api/pkg/export"
)

// ExportFormat names a rendered export encoding.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

const noDataCell = "--"

type classExamReporter interface {
	ClassExam(ctx context.Context, query ClassExamQuery) (*dto.ClassExamReport, bool, error)
}

type tableRenderer interface {
	Render(table export.Table) ([]byte, error)
}

// ExportFile is a rendered export ready to be sent as an attachment.
type ExportFile struct {
	Filename    string
	ContentType string
	Body        []byte
}

// ExportService renders class exam reports as CSV or PDF.
type ExportService struct {
	reports classExamReporter
	csv     tableRenderer
	pdf     tableRenderer
	logger  *zap.Logger
	enabled bool
	now     func() time.Time
}

// NewExportService constructs an ExportService. Nil renderers fall back to the defaults.
func NewExportService(reports classExamReporter, logger *zap.Logger, enabled bool, csv, pdf tableRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{reports: reports, csv: csv, pdf: pdf, logger: logger, enabled: enabled, now: time.Now}
}

// ParseExportFormat validates a requested format, defaulting to CSV.
func ParseExportFormat(raw string) (ExportFormat, error) {
	switch ExportFormat(strings.ToLower(strings.TrimSpace(raw))) {
	case "", ExportFormatCSV:
		return ExportFormatCSV, nil
	case ExportFormatPDF:
		return ExportFormatPDF, nil
	default:
		return "", appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
}

// ClassExam renders the class exam report in format. A missing class, exam or subject yields
// a not found error.
func (s *ExportService) ClassExam(ctx context.Context, query ClassExamQuery, format ExportFormat) (*ExportFile, error) {
	if !s.enabled {
		return nil, appErrors.Clone(appErrors.ErrUnavailable, "report exports are disabled")
	}

	report, _, err := s.reports.ClassExam(ctx, query)
	if err != nil {
		return nil, err
	}
	if report == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "class exam report not found")
	}

	table := ClassExamTable(report)
	file := &ExportFile{Filename: s.filename(report, format)}
	switch format {
	case ExportFormatCSV:
		file.ContentType = "text/csv"
		file.Body, err = s.csv.Render(table)
	case ExportFormatPDF:
		file.ContentType = "application/pdf"
		file.Body, err = s.pdf.Render(table)
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported format %s", format))
	}
	if err != nil {
		return nil, fmt.Errorf("render %s export: %w", format, err)
	}

	s.logger.Info("class exam export rendered",
		zap.Int64("class_id", query.ClassID),
		zap.Int64("exam_id", query.ExamID),
		zap.String("format", string(format)),
		zap.Int("bytes", len(file.Body)),
	)
	return file, nil
}

// ClassExamTable flattens the report into one row per student. Percents are shown as whole
// numbers with "--" for no data.
func ClassExamTable(report *dto.ClassExamReport) export.Table {
	title := fmt.Sprintf("%s - %s", report.Class.Name, report.Exam.Name)
	if report.Subject != nil {
		title = fmt.Sprintf("%s (%s)", title, report.Subject.Name)
	}

	summary := report.Summary
	table := export.Table{
		Title: title,
		Summary: []string{
			fmt.Sprintf("Average: %s  Highest: %s  Lowest: %s", formatPercent(summary.AveragePercent), formatPercent(summary.HighestPercent), formatPercent(summary.LowestPercent)),
			fmt.Sprintf("Pass: %d  Fail: %d  Absent: %d  Missing: %d  Students: %d", summary.PassCount, summary.FailCount, summary.AbsentCount, summary.MissingCount, summary.TotalStudents),
		},
		Headers: []string{"Roll", "Student", "Obtained", "Max", "Percent", "Status"},
		Rows:    make([][]string, 0, len(report.Students)),
	}

	for _, student := range report.Students {
		roll := ""
		if student.RollNo != nil {
			roll = strconv.Itoa(*student.RollNo)
		}
		name := strings.TrimSpace(student.FirstName + " " + student.LastName)
		table.Rows = append(table.Rows, []string{
			roll,
			name,
			formatMarks(student.ObtainedTotal),
			formatMarks(student.MaxTotal),
			formatPercent(student.Percent),
			studentStatus(student),
		})
	}
	return table
}

func studentStatus(student dto.StudentResult) string {
	switch {
	case student.IsAbsent:
		return "Absent"
	case student.Percent == nil:
		return "Missing"
	case analytics.Passed(*student.Percent):
		return "Pass"
	default:
		return "Fail"
	}
}

func formatPercent(v *float64) string {
	if v == nil {
		return noDataCell
	}
	return fmt.Sprintf("%d%%", int(math.Round(*v*100)))
}

func formatMarks(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func (s *ExportService) filename(report *dto.ClassExamReport, format ExportFormat) string {
	name := fmt.Sprintf("class_%d_exam_%d", report.Class.ID, report.Exam.ID)
	if report.Subject != nil {
		name = fmt.Sprintf("%s_subject_%d", name, report.Subject.ID)
	}
	return fmt.Sprintf("%s_%s.%s", name, s.now().UTC().Format("20060102"), format)
}
