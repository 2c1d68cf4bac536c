package analytics

import (
	"sort"
	"strings"
	"time"

	"github.com/noah-isme/sma-analytics-api/internal/dto"
	"github.com/noah-isme/sma-analytics-api/internal/models"
	appErrors "github.com/noah-isme/sma-analytics-api/pkg/errors"
)

const (
	dateLayout  = "2006-01-02"
	monthLayout = "2006-01"
)

// Month is a calendar month. Start is the first day and End the last day, both at midnight UTC.
type Month struct {
	Start time.Time
	End   time.Time
}

// ParseMonth parses a YYYY-MM string.
func ParseMonth(raw string) (Month, error) {
	t, err := time.ParseInLocation(monthLayout, strings.TrimSpace(raw), time.UTC)
	if err != nil {
		return Month{}, appErrors.Clone(appErrors.ErrValidation, "month must be formatted as YYYY-MM")
	}
	return MonthOf(t), nil
}

// MonthOf returns the calendar month containing t.
func MonthOf(t time.Time) Month {
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	return Month{Start: start, End: start.AddDate(0, 1, -1)}
}

// String formats the month as YYYY-MM.
func (m Month) String() string {
	return m.Start.Format(monthLayout)
}

// Contains reports whether the calendar day of t falls inside the month.
func (m Month) Contains(t time.Time) bool {
	return t.Year() == m.Start.Year() && t.Month() == m.Start.Month()
}

// DateRange bounds a report by calendar day. Nil bounds are open and set bounds are inclusive.
type DateRange struct {
	From *time.Time
	To   *time.Time
}

// Contains reports whether the calendar day of t lies within the range.
func (r DateRange) Contains(t time.Time) bool {
	day := truncateDay(t)
	if r.From != nil && day.Before(truncateDay(*r.From)) {
		return false
	}
	if r.To != nil && day.After(truncateDay(*r.To)) {
		return false
	}
	return true
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ClassAttendanceTrend returns the present rate of each distinct session date inside month,
// ordered by date. Dates without entries are not emitted.
func ClassAttendanceTrend(entries []models.AttendanceEntry, month Month) []dto.AttendanceTrendPoint {
	type dayTally struct {
		present int
		total   int
	}

	tallies := make(map[string]*dayTally)
	for _, entry := range entries {
		if !month.Contains(entry.SessionDate) {
			continue
		}
		key := entry.SessionDate.Format(dateLayout)
		t, ok := tallies[key]
		if !ok {
			t = &dayTally{}
			tallies[key] = t
		}
		t.total++
		if entry.Status == models.AttendanceStatusPresent {
			t.present++
		}
	}

	dates := make([]string, 0, len(tallies))
	for date := range tallies {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	trend := make([]dto.AttendanceTrendPoint, 0, len(dates))
	for _, date := range dates {
		t := tallies[date]
		trend = append(trend, dto.AttendanceTrendPoint{
			Date:        date,
			PresentRate: float64(t.present) / float64(t.total),
		})
	}
	return trend
}

// SummarizeStudentAttendance counts entries in the range by status and keeps a date-ordered log.
func SummarizeStudentAttendance(entries []models.AttendanceEntry, window DateRange) dto.AttendanceSummary {
	inRange := make([]models.AttendanceEntry, 0, len(entries))
	for _, entry := range entries {
		if window.Contains(entry.SessionDate) {
			inRange = append(inRange, entry)
		}
	}
	sort.SliceStable(inRange, func(i, j int) bool {
		return inRange[i].SessionDate.Before(inRange[j].SessionDate)
	})

	summary := dto.AttendanceSummary{Log: make([]dto.AttendanceLogEntry, 0, len(inRange))}
	for _, entry := range inRange {
		summary.Total++
		switch entry.Status {
		case models.AttendanceStatusPresent:
			summary.Present++
		case models.AttendanceStatusAbsent:
			summary.Absent++
		case models.AttendanceStatusLate:
			summary.Late++
		case models.AttendanceStatusExcused:
			summary.Excused++
		}
		summary.Log = append(summary.Log, dto.AttendanceLogEntry{
			Date:   entry.SessionDate.Format(dateLayout),
			Status: entry.Status,
		})
	}
	summary.Rate = Percent(float64(summary.Present), float64(summary.Total))
	return summary
}

// PresentRate is the share of entries marked present, or nil for no entries.
func PresentRate(entries []models.AttendanceEntry) *float64 {
	present := 0
	for _, entry := range entries {
		if entry.Status == models.AttendanceStatusPresent {
			present++
		}
	}
	return Percent(float64(present), float64(len(entries)))
}

// PresentRatesByStudent computes PresentRate for every student appearing in entries.
func PresentRatesByStudent(entries []models.AttendanceEntry) map[int64]*float64 {
	grouped := make(map[int64][]models.AttendanceEntry)
	for _, entry := range entries {
		grouped[entry.StudentID] = append(grouped[entry.StudentID], entry)
	}

	rates := make(map[int64]*float64, len(grouped))
	for studentID, list := range grouped {
		rates[studentID] = PresentRate(list)
	}
	return rates
}

// MonthlyPresentRates groups entries by YYYY-MM and returns the present rate of each month.
func MonthlyPresentRates(entries []models.AttendanceEntry) map[string]*float64 {
	grouped := make(map[string][]models.AttendanceEntry)
	for _, entry := range entries {
		key := entry.SessionDate.Format(monthLayout)
		grouped[key] = append(grouped[key], entry)
	}

	rates := make(map[string]*float64, len(grouped))
	for month, list := range grouped {
		rates[month] = PresentRate(list)
	}
	return rates
}
