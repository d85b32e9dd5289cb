package advisory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"
)

/* =================================================================================
						PREDICTIVE ANALYTICS
	Read-only consumer of archived results: daily aggregates over the last
	week, a least-squares projection of the energy trend for the next seven
	days, and anomaly flags for days that deviate hard from the user's own
	baseline. Never on the critical request path.
=================================================================================*/

const (
	trendWindowDays     = 7
	projectionDays      = 7
	anomalySigmaCutoff  = 2.0
	minSamplesForTrends = 2
)

// TrendPoint is one day's aggregate.
type TrendPoint struct {
	Day           time.Time `json:"day"`
	AvgEnergy     float64   `json:"avg_energy"`
	AvgConfidence float64   `json:"avg_confidence"`
	Samples       int       `json:"samples"`
}

// Anomaly flags one day whose readings fall outside the user's baseline.
type Anomaly struct {
	Day     time.Time `json:"day"`
	Metric  string    `json:"metric"`
	Value   float64   `json:"value"`
	Message string    `json:"message"`
}

// TrendReport is the weekly trend projection for one user.
type TrendReport struct {
	Points          []TrendPoint `json:"points"`
	ProjectedEnergy []float64    `json:"projected_energy"`
	Anomalies       []Anomaly    `json:"anomalies"`
}

// PredictiveAnalytics projects trends from the analysis history.
type PredictiveAnalytics struct {
	history HistoryStore
	now     func() time.Time
}

// NewPredictiveAnalytics wraps a history store; a nil store yields empty
// reports rather than errors.
func NewPredictiveAnalytics(history HistoryStore) *PredictiveAnalytics {
	return &PredictiveAnalytics{history: history, now: time.Now}
}

// WeeklyTrends aggregates the last week and projects the next one.
func (pa *PredictiveAnalytics) WeeklyTrends(ctx context.Context, userID string) (TrendReport, error) {
	if pa.history == nil {
		return TrendReport{}, nil
	}

	since := pa.now().UTC().AddDate(0, 0, -trendWindowDays)
	records, err := pa.history.ListAnalysesSince(ctx, userID, since)
	if err != nil {
		return TrendReport{}, fmt.Errorf("list analysis history: %w", err)
	}

	points := dailyAggregates(records)
	report := TrendReport{Points: points}
	if len(points) < minSamplesForTrends {
		return report, nil
	}

	report.ProjectedEnergy = projectEnergy(points)
	report.Anomalies = flagAnomalies(points)
	return report, nil
}

func dailyAggregates(records []HistoryRecord) []TrendPoint {
	type acc struct {
		energy     float64
		confidence float64
		n          int
	}
	days := map[string]*acc{}
	for _, rec := range records {
		day := rec.CreatedAt.UTC().Format("2006-01-02")
		a, ok := days[day]
		if !ok {
			a = &acc{}
			days[day] = a
		}
		a.energy += float64(rec.Request.EnergyLevel)
		a.confidence += rec.Result.Confidence
		a.n++
	}

	keys := make([]string, 0, len(days))
	for k := range days {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	points := make([]TrendPoint, 0, len(keys))
	for _, k := range keys {
		a := days[k]
		day, _ := time.Parse("2006-01-02", k)
		points = append(points, TrendPoint{
			Day:           day,
			AvgEnergy:     a.energy / float64(a.n),
			AvgConfidence: a.confidence / float64(a.n),
			Samples:       a.n,
		})
	}
	return points
}

// projectEnergy fits a least-squares line over the daily energy averages and
// extends it forward, clamped to the valid energy band.
func projectEnergy(points []TrendPoint) []float64 {
	n := float64(len(points))
	var sumX, sumY, sumXY, sumXX float64
	for i, p := range points {
		x := float64(i)
		sumX += x
		sumY += p.AvgEnergy
		sumXY += x * p.AvgEnergy
		sumXX += x * x
	}

	denom := n*sumXX - sumX*sumX
	slope := 0.0
	if denom != 0 {
		slope = (n*sumXY - sumX*sumY) / denom
	}
	intercept := (sumY - slope*sumX) / n

	projected := make([]float64, projectionDays)
	for d := 0; d < projectionDays; d++ {
		x := float64(len(points) + d)
		v := intercept + slope*x
		projected[d] = math.Min(100, math.Max(0, v))
	}
	return projected
}

// flagAnomalies marks days whose average energy sits more than the sigma
// cutoff away from the window mean.
func flagAnomalies(points []TrendPoint) []Anomaly {
	n := float64(len(points))
	var mean float64
	for _, p := range points {
		mean += p.AvgEnergy
	}
	mean /= n

	var variance float64
	for _, p := range points {
		variance += (p.AvgEnergy - mean) * (p.AvgEnergy - mean)
	}
	stddev := math.Sqrt(variance / n)
	if stddev == 0 {
		return nil
	}

	var anomalies []Anomaly
	for _, p := range points {
		deviation := math.Abs(p.AvgEnergy-mean) / stddev
		if deviation >= anomalySigmaCutoff {
			anomalies = append(anomalies, Anomaly{
				Day:     p.Day,
				Metric:  "energy",
				Value:   p.AvgEnergy,
				Message: fmt.Sprintf("daily energy average %.0f deviates %.1f sigma from the weekly baseline %.0f", p.AvgEnergy, deviation, mean),
			})
		}
	}
	return anomalies
}
