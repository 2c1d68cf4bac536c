package analytics

import (
	"math"

	"github.com/noah-isme/sma-analytics-api/internal/dto"
)

const (
	attendanceWeight = 0.4
	marksWeight      = 0.6

	highRiskAttendance   = 0.75
	highRiskMarks        = 0.4
	mediumRiskAttendance = 0.85
	mediumRiskMarks      = 0.6

	steadyDelta = 0.02
)

// Score blends attendance and marks into one performance value. A missing input drops out and
// the remaining weight is renormalised, so marks alone score at full weight.
func Score(attendance, marks *float64) *float64 {
	var total, weight float64
	if attendance != nil {
		total += *attendance * attendanceWeight
		weight += attendanceWeight
	}
	if marks != nil {
		total += *marks * marksWeight
		weight += marksWeight
	}
	if weight == 0 {
		return nil
	}
	return Float(total / weight)
}

// Risk classifies a student. Missing inputs read as zero for the thresholds; with neither
// input the level is unknown.
func Risk(attendance, marks *float64) dto.RiskLevel {
	if attendance == nil && marks == nil {
		return dto.RiskUnknown
	}
	att := valueOrZero(attendance)
	mk := valueOrZero(marks)

	switch {
	case att < highRiskAttendance || mk < highRiskMarks:
		return dto.RiskHigh
	case att < mediumRiskAttendance || mk < mediumRiskMarks:
		return dto.RiskMedium
	default:
		return dto.RiskLow
	}
}

// Trend compares the last two exam rows that carry a percent. Rows must already be in
// chronological order.
func Trend(rows []dto.ExamResult) dto.Trend {
	scored := make([]float64, 0, len(rows))
	for _, row := range rows {
		if row.Percent != nil {
			scored = append(scored, *row.Percent)
		}
	}
	if len(scored) < 2 {
		return dto.Trend{Direction: dto.TrendUnknown}
	}

	delta := scored[len(scored)-1] - scored[len(scored)-2]
	trend := dto.Trend{Delta: Float(delta)}
	switch {
	case math.Abs(delta) < steadyDelta:
		trend.Direction = dto.TrendSteady
	case delta > 0:
		trend.Direction = dto.TrendImproving
	default:
		trend.Direction = dto.TrendDeclining
	}
	return trend
}

func valueOrZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
