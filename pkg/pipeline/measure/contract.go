package measure

import "time"

// Measure holds a Metric per step.
type Measure interface {
	AddMetric(name string, concurrent int) Metric
	GetMetric(name string) Metric
	AllMetrics() map[string]Metric
}

// Metric collects the timings of a step.
type Metric interface {
	// AddDuration records the time spent processing one element.
	AddDuration(elapsed time.Duration)
	// AddTransportDuration records the time spent waiting for an element from inputStepName.
	AddTransportDuration(inputStepName string, elapsed time.Duration)
	AVGDuration() time.Duration
	AVGTransportDuration() map[string]*TransportInfo
	SetTotalDuration(endDuration time.Duration)
	GetTotalDuration() time.Duration
	AllTransports() map[string]*TransportInfo
	// Total returns the number of elements processed.
	Total() int64
}
