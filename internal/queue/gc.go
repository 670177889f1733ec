package queue

import (
	"context"
	"fmt"
	"time"
)

// GarbageCollector periodically drains expired messages from the dead
// letter queue so failed polish and analysis jobs do not pile up forever
type GarbageCollector struct {
	purger    DLQPurger
	interval  time.Duration
	retention time.Duration
}

// NewGarbageCollector creates a collector that purges DLQ messages older
// than retention every interval
func NewGarbageCollector(purger DLQPurger, interval, retention time.Duration) *GarbageCollector {
	return &GarbageCollector{
		purger:    purger,
		interval:  interval,
		retention: retention,
	}
}

// Start runs the purge loop until ctx is cancelled
func (gc *GarbageCollector) Start(ctx context.Context) error {
	ticker := time.NewTicker(gc.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := gc.purgeOnce(ctx); err != nil {
				fmt.Printf("DLQ GC error: %v\n", err)
			}
		}
	}
}

func (gc *GarbageCollector) purgeOnce(ctx context.Context) error {
	if gc.purger == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()
	n, err := gc.purger.PurgeOlderThan(ctx, gc.retention)
	if err != nil {
		return fmt.Errorf("DLQ purge: %w", err)
	}
	if n > 0 {
		fmt.Printf("DLQ GC purged %d message(s) older than %v\n", n, gc.retention)
	}
	return nil
}
