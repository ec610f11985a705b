package metrics

import (
	"context"
	"time"

	"media-share/internal/logging"
)

// StatsProvider supplies library counters to the collector.
type StatsProvider interface {
	LibraryStats(ctx context.Context) (Stats, error)
}

// Stats holds the current library statistics
type Stats struct {
	Users          int
	Directories    int
	ActiveLinks    int
	ExpiredLinks   int
	ActiveSessions int
}

// Collector periodically collects and updates metrics
type Collector struct {
	statsProvider StatsProvider
	interval      time.Duration
	stopChan      chan struct{}
}

// NewCollector creates a new metrics collector
func NewCollector(provider StatsProvider, interval time.Duration) *Collector {
	return &Collector{
		statsProvider: provider,
		interval:      interval,
		stopChan:      make(chan struct{}),
	}
}

// Start begins the metrics collection loop
func (c *Collector) Start() {
	go c.collectLoop()
}

// Stop stops the metrics collection
func (c *Collector) Stop() {
	close(c.stopChan)
}

func (c *Collector) collectLoop() {
	// Collect immediately on start
	c.collect()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.collect()
		case <-c.stopChan:
			return
		}
	}
}

func (c *Collector) collect() {
	if c.statsProvider == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	stats, err := c.statsProvider.LibraryStats(ctx)
	if err != nil {
		logging.Warn("Metrics collection failed: %v", err)
		return
	}

	LibraryUsers.Set(float64(stats.Users))
	LibraryDirectories.Set(float64(stats.Directories))
	LibraryLinks.WithLabelValues("active").Set(float64(stats.ActiveLinks))
	LibraryLinks.WithLabelValues("expired").Set(float64(stats.ExpiredLinks))
	ActiveSessions.Set(float64(stats.ActiveSessions))

	logging.Debug("Metrics collected: users=%d, directories=%d, links=%d/%d, sessions=%d",
		stats.Users, stats.Directories, stats.ActiveLinks, stats.ExpiredLinks, stats.ActiveSessions)
}
