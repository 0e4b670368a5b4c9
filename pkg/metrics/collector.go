package metrics

import "time"

// StatusSource is anything that can report a snapshot of step statuses and
// the number of tasks a launcher currently considers active. The
// orchestrator satisfies this without metrics needing to import it.
type StatusSource interface {
	StatusCounts() map[string]int
	ActiveTaskCount() int
}

// Collector periodically pulls a StatusSource's state into the
// StepsTotal/ActiveTasks gauges, the way a reconciliation loop's internal
// counters get exposed without every call site touching prometheus
// directly.
type Collector struct {
	source   StatusSource
	interval time.Duration
	stopCh   chan struct{}
}

// NewCollector creates a new metrics collector polling source every interval.
func NewCollector(source StatusSource, interval time.Duration) *Collector {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &Collector{
		source:   source,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins collecting metrics in a background goroutine.
func (c *Collector) Start() {
	ticker := time.NewTicker(c.interval)
	go func() {
		c.collect()
		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop stops the collector.
func (c *Collector) Stop() {
	close(c.stopCh)
}

func (c *Collector) collect() {
	for status, count := range c.source.StatusCounts() {
		StepsTotal.WithLabelValues(status).Set(float64(count))
	}
	ActiveTasks.Set(float64(c.source.ActiveTaskCount()))
}
