package metrics

import (
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/GoSim-25-26J-441/infra-scaler/pkg/models"
)

func TestNewCollector(t *testing.T) {
	c := NewCollector()
	if c == nil {
		t.Fatalf("expected non-nil collector")
	}
	if c.StartTime().IsZero() {
		t.Fatalf("expected start time to be set")
	}
}

func TestCollectorRecordAndGetTimeSeries(t *testing.T) {
	c := NewCollector()

	now := time.Now()
	c.Record(MetricActiveUsers, 1, 40, now, nil)
	c.Record(MetricActiveUsers, 2, 51, now.Add(time.Second), nil)
	c.Record(MetricActiveUsers, 3, 62, now.Add(2*time.Second), nil)

	points := c.GetTimeSeries(MetricActiveUsers, nil)
	if len(points) != 3 {
		t.Fatalf("expected 3 points, got %d", len(points))
	}
	for i, want := range []float64{40, 51, 62} {
		if points[i].Value != want || points[i].Round != i+1 {
			t.Fatalf("point %d: expected round %d value %v, got round %d value %v", i, i+1, want, points[i].Round, points[i].Value)
		}
	}

	// Returned points are copies
	points[0].Value = 999
	if c.GetTimeSeries(MetricActiveUsers, nil)[0].Value != 40 {
		t.Fatalf("expected stored series to be unaffected by caller changes")
	}

	if c.GetTimeSeries("missing", nil) != nil {
		t.Fatalf("expected nil for unknown metric")
	}
}

func TestCollectorRecordWithLabels(t *testing.T) {
	c := NewCollector()
	labels := map[string]string{"tier": "Micro", "scenario": "Launch Week"}

	c.Record(MetricLatency, 1, 200, time.Now(), labels)

	points := c.GetTimeSeries(MetricLatency, map[string]string{"scenario": "Launch Week", "tier": "Micro"})
	if len(points) != 1 {
		t.Fatalf("expected 1 point regardless of label order, got %d", len(points))
	}
	if points[0].Labels["tier"] != "Micro" {
		t.Fatalf("expected tier label Micro, got %s", points[0].Labels["tier"])
	}
	if c.GetTimeSeries(MetricLatency, nil) != nil {
		t.Fatalf("expected unlabelled series to be separate")
	}
}

func TestCollectorGetAggregation(t *testing.T) {
	c := NewCollector()
	now := time.Now()
	for i, v := range []float64{30, 10, 20} {
		c.Record(MetricBudget, i+1, v, now, nil)
	}

	agg := c.GetAggregation(MetricBudget, nil)
	if agg == nil {
		t.Fatalf("expected non-nil aggregation")
	}
	if agg.Count != 3 || agg.Sum != 60 || agg.Min != 10 || agg.Max != 30 || agg.Mean != 20 {
		t.Fatalf("unexpected aggregation: %+v", agg)
	}
	if agg.Last != 20 {
		t.Fatalf("expected last to follow recording order, got %v", agg.Last)
	}
}

func TestCollectorPercentiles(t *testing.T) {
	c := NewCollector()
	now := time.Now()
	for i := 1; i <= 100; i++ {
		c.Record(MetricLatency, i, float64(i), now, nil)
	}

	agg := c.GetAggregation(MetricLatency, nil)
	if agg.P50 < 50.0 || agg.P50 > 51.0 {
		t.Fatalf("expected P50 around 50.5, got %f", agg.P50)
	}
	if agg.P95 < 95.0 || agg.P95 > 96.0 {
		t.Fatalf("expected P95 around 95.5, got %f", agg.P95)
	}
}

func TestCollectorGetOrComputeAggregation(t *testing.T) {
	c := NewCollector()
	now := time.Now()
	c.Record(MetricStability, 1, 100, now, nil)
	c.Record(MetricStability, 2, 90, now, nil)

	agg1 := c.GetOrComputeAggregation(MetricStability, nil)
	agg2 := c.GetOrComputeAggregation(MetricStability, nil)
	if agg1 == nil || agg1 != agg2 {
		t.Fatalf("expected the cached aggregation to be returned")
	}

	// A new point invalidates the cache
	c.Record(MetricStability, 3, 60, now, nil)
	agg3 := c.GetOrComputeAggregation(MetricStability, nil)
	if agg3.Count != 3 || agg3.Last != 60 {
		t.Fatalf("expected fresh aggregation after record, got %+v", agg3)
	}

	if c.GetOrComputeAggregation("missing", nil) != nil {
		t.Fatalf("expected nil aggregation for unknown metric")
	}
}

func TestCollectorSummary(t *testing.T) {
	c := NewCollector()
	now := time.Now()
	c.Record(MetricActiveUsers, 1, 40, now, nil)
	c.Record(MetricActiveUsers, 2, 50, now, nil)
	c.Record(MetricBudget, 1, 5400, now, nil)

	summary := c.Summary()
	if summary.Rounds != 2 {
		t.Fatalf("expected 2 rounds, got %d", summary.Rounds)
	}
	if len(summary.Aggregations) != 2 {
		t.Fatalf("expected 2 aggregations, got %d", len(summary.Aggregations))
	}
	if summary.Aggregations[MetricActiveUsers].Mean != 45 {
		t.Fatalf("unexpected users aggregation: %+v", summary.Aggregations[MetricActiveUsers])
	}
}

func TestCollectorGetMetricNames(t *testing.T) {
	c := NewCollector()
	now := time.Now()
	c.Record(MetricUtilization, 1, 0.5, now, nil)
	c.Record(MetricBudget, 1, 5400, now, nil)

	got := c.GetMetricNames()
	want := []string{MetricBudget, MetricUtilization}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("GetMetricNames() = %v, want %v", got, want)
	}
}

func TestCollectorGetLabelsForMetric(t *testing.T) {
	c := NewCollector()
	now := time.Now()
	c.Record(MetricLatency, 1, 200, now, map[string]string{"tier": "Micro"})
	c.Record(MetricLatency, 5, 180, now, map[string]string{"tier": "Standard"})

	if got := len(c.GetLabelsForMetric(MetricLatency)); got != 2 {
		t.Fatalf("expected 2 label sets, got %d", got)
	}
	if c.GetLabelsForMetric("missing") != nil {
		t.Fatalf("expected nil for unknown metric")
	}
}

func TestCollectorClear(t *testing.T) {
	c := NewCollector()
	c.Record(MetricBudget, 1, 5400, time.Now(), nil)
	c.GetOrComputeAggregation(MetricBudget, nil)

	c.Clear()

	if len(c.GetMetricNames()) != 0 {
		t.Fatalf("expected no metrics after clear")
	}
	if c.GetOrComputeAggregation(MetricBudget, nil) != nil {
		t.Fatalf("expected cached aggregation to be cleared")
	}
}

func TestCollectorConcurrentRecord(t *testing.T) {
	c := NewCollector()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(round int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				c.Record(MetricActiveUsers, round, float64(j), time.Now(), nil)
				c.GetAggregation(MetricActiveUsers, nil)
			}
		}(i)
	}
	wg.Wait()

	if got := c.GetAggregation(MetricActiveUsers, nil).Count; got != 400 {
		t.Fatalf("expected 400 points, got %d", got)
	}
}

func TestPercentileCalculation(t *testing.T) {
	tests := []struct {
		values []float64
		p      float64
		want   float64
	}{
		{nil, 0.5, 0},
		{[]float64{7}, 0.95, 7},
		{[]float64{1, 2, 3, 4, 5}, 0.5, 3},
		{[]float64{1, 2, 3, 4, 5}, 1.0, 5},
		{[]float64{10, 20}, 0.5, 15},
	}

	for _, tt := range tests {
		if got := calculatePercentile(tt.values, tt.p); got != tt.want {
			t.Errorf("calculatePercentile(%v, %v) = %v, want %v", tt.values, tt.p, got, tt.want)
		}
	}
}

func TestRecordState(t *testing.T) {
	c := NewCollector()
	s := models.State{
		Round:        3,
		TierIndex:    1,
		ActiveUsers:  62,
		Budget:       6700,
		Satisfaction: 0.97,
		Stability:    100,
		LatencyMs:    195,
	}
	RecordState(c, s, 0.3875, time.Now())

	names := c.GetMetricNames()
	if len(names) != len(MetricNames) {
		t.Fatalf("expected %d series, got %v", len(MetricNames), names)
	}

	want := map[string]float64{
		MetricActiveUsers:  62,
		MetricBudget:       6700,
		MetricStability:    100,
		MetricSatisfaction: 0.97,
		MetricLatency:      195,
		MetricUtilization:  0.3875,
		MetricTierIndex:    1,
	}
	for name, v := range want {
		points := c.GetTimeSeries(name, nil)
		if len(points) != 1 || points[0].Value != v || points[0].Round != 3 {
			t.Errorf("%s: unexpected points %+v", name, points)
		}
	}
}

func TestValidateMetricName(t *testing.T) {
	for _, name := range MetricNames {
		if err := ValidateMetricName(name); err != nil {
			t.Errorf("expected %s to be valid: %v", name, err)
		}
	}
	if err := ValidateMetricName("request_latency_ms"); err == nil {
		t.Error("expected unknown metric to be rejected")
	}
}
