package metrics

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/GoSim-25-26J-441/infra-scaler/pkg/models"
)

// Collector keeps the per-round time series of one session
type Collector struct {
	mu sync.RWMutex

	startTime time.Time

	// metric name -> label key -> points in recording order
	timeSeries map[string]map[string][]*models.MetricPoint

	// metric name -> label key -> cached aggregation
	aggregations map[string]map[string]*models.Aggregation
}

// NewCollector creates a new metrics collector
func NewCollector() *Collector {
	return &Collector{
		startTime:    time.Now(),
		timeSeries:   make(map[string]map[string][]*models.MetricPoint),
		aggregations: make(map[string]map[string]*models.Aggregation),
	}
}

// StartTime returns when collection started or was last cleared
func (c *Collector) StartTime() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.startTime
}

// Record appends a value observed at the end of round
func (c *Collector) Record(name string, round int, value float64, timestamp time.Time, labels map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := labelKey(labels)
	if c.timeSeries[name] == nil {
		c.timeSeries[name] = make(map[string][]*models.MetricPoint)
	}

	point := &models.MetricPoint{
		Round:     round,
		Timestamp: timestamp,
		Name:      name,
		Value:     value,
		Labels:    copyLabels(labels),
	}
	c.timeSeries[name][key] = append(c.timeSeries[name][key], point)

	// Any cached aggregation for the series is stale now
	if c.aggregations[name] != nil {
		delete(c.aggregations[name], key)
	}
}

// GetTimeSeries returns a copy of the points of a series
func (c *Collector) GetTimeSeries(name string, labels map[string]string) []*models.MetricPoint {
	c.mu.RLock()
	defer c.mu.RUnlock()

	points := c.getPointsUnsafe(name, labelKey(labels))
	if points == nil {
		return nil
	}

	result := make([]*models.MetricPoint, len(points))
	for i, p := range points {
		cp := *p
		cp.Labels = copyLabels(p.Labels)
		result[i] = &cp
	}
	return result
}

// GetAggregation computes statistics for a series, or nil when it is empty
func (c *Collector) GetAggregation(name string, labels map[string]string) *models.Aggregation {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return calculateAggregation(c.getPointsUnsafe(name, labelKey(labels)))
}

// GetOrComputeAggregation returns the cached aggregation, computing it on a miss
func (c *Collector) GetOrComputeAggregation(name string, labels map[string]string) *models.Aggregation {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := labelKey(labels)
	if agg, ok := c.aggregations[name][key]; ok {
		return agg
	}

	agg := calculateAggregation(c.getPointsUnsafe(name, key))
	if agg == nil {
		return nil
	}
	if c.aggregations[name] == nil {
		c.aggregations[name] = make(map[string]*models.Aggregation)
	}
	c.aggregations[name][key] = agg
	return agg
}

// Summary aggregates every unlabelled series
func (c *Collector) Summary() *models.RunSummary {
	names := c.GetMetricNames()

	summary := &models.RunSummary{
		Aggregations: make(map[string]*models.Aggregation, len(names)),
	}
	for _, name := range names {
		agg := c.GetOrComputeAggregation(name, nil)
		if agg == nil {
			continue
		}
		summary.Aggregations[name] = agg
		if n := int(agg.Count); n > summary.Rounds {
			summary.Rounds = n
		}
	}
	return summary
}

// GetMetricNames returns the recorded metric names, sorted
func (c *Collector) GetMetricNames() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.timeSeries))
	for name := range c.timeSeries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetLabelsForMetric returns all label combinations for a metric
func (c *Collector) GetLabelsForMetric(name string) []map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.timeSeries[name] == nil {
		return nil
	}

	labelsList := make([]map[string]string, 0, len(c.timeSeries[name]))
	for _, points := range c.timeSeries[name] {
		if len(points) > 0 {
			labelsList = append(labelsList, copyLabels(points[0].Labels))
		}
	}
	return labelsList
}

// Clear drops every series
func (c *Collector) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.timeSeries = make(map[string]map[string][]*models.MetricPoint)
	c.aggregations = make(map[string]map[string]*models.Aggregation)
	c.startTime = time.Now()
}

// getPointsUnsafe returns points without locking (caller must hold lock)
func (c *Collector) getPointsUnsafe(name, key string) []*models.MetricPoint {
	if c.timeSeries[name] == nil {
		return nil
	}
	return c.timeSeries[name][key]
}

// labelKey creates a key from labels for map lookup
func labelKey(labels map[string]string) string {
	if len(labels) == 0 {
		return ""
	}

	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(labels[k])
		b.WriteByte(',')
	}
	return b.String()
}

func copyLabels(labels map[string]string) map[string]string {
	if labels == nil {
		return nil
	}
	out := make(map[string]string, len(labels))
	for k, v := range labels {
		out[k] = v
	}
	return out
}

// calculateAggregation calculates aggregated statistics from metric points
func calculateAggregation(points []*models.MetricPoint) *models.Aggregation {
	if len(points) == 0 {
		return nil
	}

	values := make([]float64, len(points))
	for i, p := range points {
		values[i] = p.Value
	}
	last := values[len(values)-1]

	sort.Float64s(values)

	sum := 0.0
	for _, v := range values {
		sum += v
	}
	count := int64(len(values))

	return &models.Aggregation{
		Count: count,
		Sum:   sum,
		Min:   values[0],
		Max:   values[len(values)-1],
		Mean:  sum / float64(count),
		P50:   calculatePercentile(values, 0.50),
		P95:   calculatePercentile(values, 0.95),
		Last:  last,
	}
}

// calculatePercentile interpolates a percentile from a sorted slice
func calculatePercentile(sortedValues []float64, p float64) float64 {
	if len(sortedValues) == 0 {
		return 0.0
	}
	if len(sortedValues) == 1 {
		return sortedValues[0]
	}

	index := p * float64(len(sortedValues)-1)
	lower := int(index)
	upper := lower + 1

	if upper >= len(sortedValues) {
		return sortedValues[len(sortedValues)-1]
	}

	weight := index - float64(lower)
	return sortedValues[lower]*(1-weight) + sortedValues[upper]*weight
}
