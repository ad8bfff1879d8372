// Package decay runs the daily licence decay sweep as a River periodic
// job. The sweep itself reconciles by elapsed wall-clock time, so the
// queue only has to fire roughly on schedule: missed firings catch up
// and duplicate firings are no-ops.
package decay

import (
	"strings"
	"time"
)

// QueueConfig holds the tunable parameters for the decay job queue.
type QueueConfig struct {
	// MaxWorkers is the number of concurrent workers. The sweep is one
	// bulk statement; one worker is enough.
	MaxWorkers int

	// JobTimeout bounds a single sweep run.
	JobTimeout time.Duration

	// Timezone is the IANA location whose midnight triggers the sweep.
	// Empty or "Local" means the server's local time, matching the
	// behaviour of a conventional midnight cron entry.
	Timezone string

	// RunOnStart enqueues a reconciling sweep immediately on startup,
	// so downtime across day boundaries is repaired without waiting
	// for the next midnight.
	RunOnStart bool
}

func DefaultQueueConfig() *QueueConfig {
	return &QueueConfig{
		MaxWorkers: 1,
		JobTimeout: 2 * time.Minute,
		RunOnStart: true,
	}
}

// Location resolves the configured timezone.
func (c *QueueConfig) Location() (*time.Location, error) {
	if c.Timezone == "" || strings.EqualFold(c.Timezone, "Local") {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}
