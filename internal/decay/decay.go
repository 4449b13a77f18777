package decay

import (
	"fmt"
	"math"
	"slices"
	"time"
)

const (
	// DefaultLambda is the decay rate applied when none is configured.
	DefaultLambda = 0.08

	// DaysPerMonth is the average month length used to convert ages.
	DaysPerMonth = 30.44

	// MinWeight is the floor below which no event decays further.
	MinWeight = 0.01
)

// Trend directions reported by Trend.
const (
	TrendIncreasing       = "increasing"
	TrendDecreasing       = "decreasing"
	TrendStable           = "stable"
	TrendInsufficientData = "insufficient_data"
)

// Calculator computes exponential time-decay weights w = e^(-lambda*months).
type Calculator struct {
	Lambda float64
}

// NewCalculator returns a Calculator for the given decay rate. A zero or
// negative lambda falls back to DefaultLambda.
func NewCalculator(lambda float64) *Calculator {
	if lambda <= 0 {
		lambda = DefaultLambda
	}
	return &Calculator{Lambda: lambda}
}

// Point is one dated observation for trend analysis.
type Point struct {
	Value float64
	Date  time.Time
}

// TrendResult describes how a metric moved between the older and newer
// halves of an observation window.
type TrendResult struct {
	Direction     string  `json:"trend_direction"`
	Strength      float64 `json:"trend_strength"`
	Confidence    float64 `json:"confidence"`
	RecentAverage float64 `json:"recent_average,omitempty"`
	OlderAverage  float64 `json:"older_average,omitempty"`
	RecentSamples int     `json:"recent_samples,omitempty"`
	OlderSamples  int     `json:"older_samples,omitempty"`
}

// CurvePoint is one sample of the decay function for visualization.
type CurvePoint struct {
	MonthsAgo        int     `json:"months_ago"`
	Weight           float64 `json:"weight"`
	WeightPercentage float64 `json:"weight_percentage"`
}

// Weight returns the decay weight of an event dated at the given time,
// clamped to [MinWeight, 1.0].
func (c *Calculator) Weight(date time.Time) float64 {
	return c.WeightAt(date, time.Now().UTC())
}

// WeightAt is Weight evaluated against an explicit current time.
func (c *Calculator) WeightAt(date, now time.Time) float64 {
	ageMonths := now.Sub(date).Hours() / 24 / DaysPerMonth
	if ageMonths < 0 {
		ageMonths = 0
	}
	weight := math.Exp(-c.Lambda * ageMonths)
	return math.Max(weight, MinWeight)
}

// BatchWeights computes weights for a slice of dates.
func (c *Calculator) BatchWeights(dates []time.Time) []float64 {
	weights := make([]float64, len(dates))
	now := time.Now().UTC()
	for i, date := range dates {
		weights[i] = c.WeightAt(date, now)
	}
	return weights
}

// WeightedAverage computes the decay-weighted average of values paired
// with their observation dates.
func (c *Calculator) WeightedAverage(values []float64, dates []time.Time) (float64, error) {
	return c.weightedAverageAt(values, dates, time.Now().UTC())
}

func (c *Calculator) weightedAverageAt(values []float64, dates []time.Time, now time.Time) (float64, error) {
	if len(values) != len(dates) {
		return 0, fmt.Errorf("values and dates must have the same length: %d != %d", len(values), len(dates))
	}

	var weightedSum, totalWeight float64
	for i, value := range values {
		w := c.WeightAt(dates[i], now)
		weightedSum += value * w
		totalWeight += w
	}
	if totalWeight == 0 {
		return 0, nil
	}
	return weightedSum / totalWeight, nil
}

// Trend splits dated observations at the midpoint of their time span and
// compares decay-weighted averages of the two halves.
func (c *Calculator) Trend(points []Point) TrendResult {
	return c.TrendAt(points, time.Now().UTC())
}

// TrendAt is Trend evaluated against an explicit current time.
func (c *Calculator) TrendAt(points []Point, now time.Time) TrendResult {
	if len(points) < 3 {
		return TrendResult{Direction: TrendInsufficientData}
	}

	// 1. Sort by date and split at the midpoint of the covered span.
	sorted := make([]Point, len(points))
	copy(sorted, points)
	slices.SortFunc(sorted, func(a, b Point) int {
		return a.Date.Compare(b.Date)
	})

	span := sorted[len(sorted)-1].Date.Sub(sorted[0].Date)
	midpoint := sorted[0].Date.Add(span / 2)

	var older, recent []Point
	for _, p := range sorted {
		if p.Date.Before(midpoint) {
			older = append(older, p)
		} else {
			recent = append(recent, p)
		}
	}
	if len(older) == 0 || len(recent) == 0 {
		return TrendResult{Direction: TrendInsufficientData}
	}

	// 2. Weighted average per half.
	recentAvg, _ := c.weightedAverageAt(pointValues(recent), pointDates(recent), now)
	olderAvg, _ := c.weightedAverageAt(pointValues(older), pointDates(older), now)

	// 3. Relative change with a +-10% stability band.
	var strength float64
	if olderAvg != 0 {
		strength = (recentAvg - olderAvg) / olderAvg
	}

	direction := TrendStable
	if math.Abs(strength) >= 0.1 {
		if strength > 0 {
			direction = TrendIncreasing
		} else {
			direction = TrendDecreasing
		}
	}

	return TrendResult{
		Direction:     direction,
		Strength:      math.Abs(strength),
		Confidence:    trendConfidence(recent, older, strength),
		RecentAverage: recentAvg,
		OlderAverage:  olderAvg,
		RecentSamples: len(recent),
		OlderSamples:  len(older),
	}
}

// trendConfidence blends half sizes, trend strength, and value variance
// into one score in [0, 1].
func trendConfidence(recent, older []Point, strength float64) float64 {
	minHalf := min(len(recent), len(older))
	sizeConfidence := math.Min(float64(minHalf)/5.0, 1.0)
	strengthConfidence := math.Min(math.Abs(strength)*2, 1.0)

	avgVariance := (variance(pointValues(recent)) + variance(pointValues(older))) / 2
	varianceConfidence := 1.0
	if avgVariance > 0 {
		varianceConfidence = 1 / (1 + avgVariance)
	}

	overall := (sizeConfidence + strengthConfidence + varianceConfidence) / 3
	return math.Round(overall*100) / 100
}

func variance(values []float64) float64 {
	if len(values) <= 1 {
		return 0
	}
	var mean float64
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	var sum float64
	for _, v := range values {
		sum += (v - mean) * (v - mean)
	}
	return sum / float64(len(values))
}

// CurvePoints samples the decay function month by month for charts.
func (c *Calculator) CurvePoints(monthsRange int) []CurvePoint {
	now := time.Now().UTC()
	points := make([]CurvePoint, 0, monthsRange+1)
	for month := 0; month <= monthsRange; month++ {
		date := now.Add(-time.Duration(float64(month) * DaysPerMonth * 24 * float64(time.Hour)))
		weight := c.WeightAt(date, now)
		points = append(points, CurvePoint{
			MonthsAgo:        month,
			Weight:           weight,
			WeightPercentage: weight * 100,
		})
	}
	return points
}

func pointValues(points []Point) []float64 {
	values := make([]float64, len(points))
	for i, p := range points {
		values[i] = p.Value
	}
	return values
}

func pointDates(points []Point) []time.Time {
	dates := make([]time.Time, len(points))
	for i, p := range points {
		dates[i] = p.Date
	}
	return dates
}
