package putt

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// SessionDetail extends SessionSummary with distribution statistics over the
// completed putts. Quantile fields are 0 when the session is empty.
type SessionDetail struct {
	SessionSummary

	MedianLaunchSpeed float32 `json:"median_launch_speed"`
	P95LaunchSpeed    float32 `json:"p95_launch_speed"`
	MedianDistance    float32 `json:"median_distance"`
	P95Distance       float32 `json:"p95_distance"`
}

// SessionDetail computes the extended session statistics.
func (s *Stats) SessionDetail() SessionDetail {
	summary := s.Session()
	detail := SessionDetail{SessionSummary: summary}
	if summary.TotalPutts == 0 {
		return detail
	}

	history := s.History()
	launches := make([]float64, len(history))
	distances := make([]float64, len(history))
	for i, p := range history {
		launches[i] = float64(p.LaunchSpeed)
		distances[i] = float64(p.TotalDistance)
	}
	sort.Float64s(launches)
	sort.Float64s(distances)

	detail.MedianLaunchSpeed = float32(stat.Quantile(0.5, stat.Empirical, launches, nil))
	detail.P95LaunchSpeed = float32(stat.Quantile(0.95, stat.Empirical, launches, nil))
	detail.MedianDistance = float32(stat.Quantile(0.5, stat.Empirical, distances, nil))
	detail.P95Distance = float32(stat.Quantile(0.95, stat.Empirical, distances, nil))
	return detail
}
