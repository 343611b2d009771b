package measure

import (
	"sync"
	"time"
)

// TransportInfo is the time a step spent waiting for the elements of one of its inputs.
type TransportInfo struct {
	Elapsed time.Duration
	total   int64
}

// durations accumulates durations to average them.
type durations struct {
	sum   time.Duration
	count int64
}

func (d *durations) add(elapsed time.Duration) {
	d.sum += elapsed
	d.count++
}

func (d durations) avg(divisor int) time.Duration {
	if d.count == 0 {
		return 0
	}

	return round(time.Duration(float64(d.sum) / float64(d.count) / float64(divisor)))
}

// DefaultMetric is safe for concurrent use by the goroutines of a step.
type DefaultMetric struct {
	mu          sync.Mutex
	concurrent  int
	processing  durations
	transports  map[string]*durations
	endDuration time.Duration
}

func newDefaultMetric(concurrent int) *DefaultMetric {
	return &DefaultMetric{
		concurrent: max(concurrent, 1),
		transports: make(map[string]*durations),
	}
}

func (mt *DefaultMetric) AddDuration(elapsed time.Duration) {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	mt.processing.add(elapsed)
}

func (mt *DefaultMetric) AddTransportDuration(inputStepName string, elapsed time.Duration) {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	transport, ok := mt.transports[inputStepName]
	if !ok {
		transport = &durations{}
		mt.transports[inputStepName] = transport
	}
	transport.add(elapsed)
}

func (mt *DefaultMetric) Total() int64 {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	return mt.processing.count
}

func (mt *DefaultMetric) SetTotalDuration(endDuration time.Duration) {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	mt.endDuration = endDuration
}

func (mt *DefaultMetric) GetTotalDuration() time.Duration {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	return mt.endDuration
}

// AVGDuration is the average processing time of an element.
func (mt *DefaultMetric) AVGDuration() time.Duration {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	return mt.processing.avg(1)
}

// AVGTransportDuration returns, per input step, the average wait for an element divided by
// the concurrency of the step.
func (mt *DefaultMetric) AVGTransportDuration() map[string]*TransportInfo {
	return mt.transportInfos(func(d durations) time.Duration { return d.avg(mt.concurrent) })
}

// AllTransports returns, per input step, the cumulated wait for elements.
func (mt *DefaultMetric) AllTransports() map[string]*TransportInfo {
	return mt.transportInfos(func(d durations) time.Duration { return d.sum })
}

func (mt *DefaultMetric) transportInfos(elapsed func(durations) time.Duration) map[string]*TransportInfo {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	infos := make(map[string]*TransportInfo, len(mt.transports))
	for name, transport := range mt.transports {
		infos[name] = &TransportInfo{Elapsed: elapsed(*transport), total: transport.count}
	}

	return infos
}

var roundings = []struct {
	above, to time.Duration
}{
	{time.Hour, time.Minute},
	{time.Second, time.Second},
	{time.Millisecond, time.Millisecond},
	{time.Microsecond, time.Microsecond},
}

// round drops the precision nobody reads on a graph.
func round(d time.Duration) time.Duration {
	for _, r := range roundings {
		if d > r.above {
			return d.Round(r.to)
		}
	}

	return d
}

var _ Metric = (*DefaultMetric)(nil)
