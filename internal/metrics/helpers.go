package metrics

import (
	"errors"
	"fmt"
	"time"

	"github.com/GoSim-25-26J-441/infra-scaler/pkg/models"
)

// Series recorded for every state a session passes through
const (
	MetricActiveUsers  = "active_users"
	MetricBudget       = "budget"
	MetricStability    = "stability"
	MetricSatisfaction = "satisfaction"
	MetricLatency      = "latency_ms"
	MetricUtilization  = "utilization"
	MetricTierIndex    = "tier_index"
)

// MetricNames lists the session series in display order
var MetricNames = []string{
	MetricActiveUsers,
	MetricBudget,
	MetricStability,
	MetricSatisfaction,
	MetricLatency,
	MetricUtilization,
	MetricTierIndex,
}

// ErrUnknownMetric is returned for a name outside MetricNames
var ErrUnknownMetric = errors.New("unknown metric")

// ValidateMetricName rejects names that are not session series
func ValidateMetricName(name string) error {
	for _, n := range MetricNames {
		if n == name {
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrUnknownMetric, name)
}

// RecordState records one point of every session series for s
func RecordState(collector *Collector, s models.State, utilization float64, timestamp time.Time) {
	collector.Record(MetricActiveUsers, s.Round, float64(s.ActiveUsers), timestamp, nil)
	collector.Record(MetricBudget, s.Round, float64(s.Budget), timestamp, nil)
	collector.Record(MetricStability, s.Round, s.Stability, timestamp, nil)
	collector.Record(MetricSatisfaction, s.Round, s.Satisfaction, timestamp, nil)
	collector.Record(MetricLatency, s.Round, float64(s.LatencyMs), timestamp, nil)
	collector.Record(MetricUtilization, s.Round, utilization, timestamp, nil)
	collector.Record(MetricTierIndex, s.Round, float64(s.TierIndex), timestamp, nil)
}
