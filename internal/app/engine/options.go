package engine

import "time"

// Options represents configuration options for the Engine.
type Options struct {
	// QueueSize is the number of orders that may wait for each symbol's worker.
	QueueSize int
	// SnapshotInterval is how often each worker stores its order cache. Zero
	// disables periodic snapshots.
	SnapshotInterval time.Duration
	// SnapshotOnStop stores a final snapshot when a worker drains on Stop.
	SnapshotOnStop bool
	// ReadRetryDelay is the pause after a failed read from the order reader.
	ReadRetryDelay time.Duration
}

// DefaultEngineOptions returns the default engine options.
func DefaultEngineOptions() *Options {
	return &Options{
		QueueSize:        1024,
		SnapshotInterval: 30 * time.Second,
		SnapshotOnStop:   true,
		ReadRetryDelay:   100 * time.Millisecond,
	}
}
