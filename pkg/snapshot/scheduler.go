package snapshot

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"k8s.io/apimachinery/pkg/util/wait"
)

// DefaultInterval is the time between scheduled creator runs
const DefaultInterval = 24 * time.Hour

// Job is a unit of scheduled work
type Job func(ctx context.Context) error

// Schedule runs job once per interval, measured from the end of the previous
// run, until ctx is cancelled. The first run happens after one interval, or
// immediately when runNow is set. Runs never overlap. A failed run is logged
// and retried at the next tick.
func Schedule(ctx context.Context, interval time.Duration, runNow bool, job Job, logger *log.Entry) {
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	if !runNow {
		logger.WithField("first", time.Now().Add(interval).Format(time.RFC3339)).Info("waiting for first scheduled run")
		timer := time.NewTimer(interval)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
	}
	run := 0
	wait.JitterUntilWithContext(ctx, func(ctx context.Context) {
		run++
		start := time.Now()
		entry := logger.WithField("run", run)
		if err := job(ctx); err != nil {
			entry.WithError(err).Error("scheduled run failed")
			return
		}
		entry.WithFields(log.Fields{
			"elapsed": time.Since(start),
			"next":    time.Now().Add(interval).Format(time.RFC3339),
		}).Info("scheduled run finished")
	}, interval, 0.0, true)
}
