// Package analytics holds the pure aggregation engine behind the class and student reports.
// Nothing in this package performs I/O; the service layer fetches rows and passes them in.
package analytics

import (
	"math"

	"github.com/noah-isme/sma-analytics-api/internal/dto"
)

// PassThreshold is the minimum percent counted as a pass.
const PassThreshold = 0.4

// NoDataLabel names the trailing distribution bucket for nil values.
const NoDataLabel = "No data"

type bucket struct {
	label string
	lower float64
	upper float64
}

var buckets = []bucket{
	{label: "<40%", lower: 0, upper: 0.4},
	{label: "40-60%", lower: 0.4, upper: 0.6},
	{label: "60-75%", lower: 0.6, upper: 0.75},
	{label: "75-90%", lower: 0.75, upper: 0.9},
	{label: "90-100%", lower: 0.9, upper: 1.01},
}

// Pair is an (x, y) observation for Correlation.
type Pair struct {
	X float64
	Y float64
}

// Float returns a pointer to v.
func Float(v float64) *float64 {
	return &v
}

// Average returns the mean of the non-nil, non-NaN values, or nil when none remain.
func Average(values []*float64) *float64 {
	var sum float64
	var count int
	for _, v := range values {
		if v == nil || math.IsNaN(*v) {
			continue
		}
		sum += *v
		count++
	}
	if count == 0 {
		return nil
	}
	return Float(sum / float64(count))
}

// Percent returns numerator/denominator, or nil when the denominator is zero.
func Percent(numerator, denominator float64) *float64 {
	if denominator == 0 {
		return nil
	}
	return Float(numerator / denominator)
}

// Correlation computes the Pearson coefficient of pairs. It returns nil for fewer than two
// pairs or when either variable has zero variance.
func Correlation(pairs []Pair) *float64 {
	n := len(pairs)
	if n < 2 {
		return nil
	}

	var sumX, sumY float64
	constX, constY := true, true
	for _, p := range pairs {
		sumX += p.X
		sumY += p.Y
		constX = constX && p.X == pairs[0].X
		constY = constY && p.Y == pairs[0].Y
	}
	// The mean of equal values can carry rounding error, so a constant series is detected
	// from the raw values rather than from the variance.
	if constX || constY {
		return nil
	}
	meanX := sumX / float64(n)
	meanY := sumY / float64(n)

	var cov, varX, varY float64
	for _, p := range pairs {
		dx := p.X - meanX
		dy := p.Y - meanY
		cov += dx * dy
		varX += dx * dx
		varY += dy * dy
	}

	denominator := math.Sqrt(varX * varY)
	if denominator == 0 || math.IsNaN(denominator) {
		return nil
	}
	return Float(cov / denominator)
}

// BucketDistribution counts values into the fixed half-open percent buckets. A trailing
// "No data" bucket is appended only when at least one value is nil.
func BucketDistribution(values []*float64) []dto.DistributionBucket {
	result := make([]dto.DistributionBucket, len(buckets), len(buckets)+1)
	for i, b := range buckets {
		result[i] = dto.DistributionBucket{Label: b.label}
	}

	noData := 0
	for _, v := range values {
		if v == nil || math.IsNaN(*v) {
			noData++
			continue
		}
		for i, b := range buckets {
			if *v >= b.lower && *v < b.upper {
				result[i].Count++
				break
			}
		}
	}

	if noData > 0 {
		result = append(result, dto.DistributionBucket{Label: NoDataLabel, Count: noData})
	}
	return result
}

// Passed reports whether percent meets PassThreshold.
func Passed(percent float64) bool {
	return percent >= PassThreshold
}
