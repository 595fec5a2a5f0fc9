package duckdb

import (
	"log"
	"sync"
	"time"
)

const defaultRetentionInterval = time.Hour

// RetentionConfig holds configuration for the retention cleaner.
type RetentionConfig struct {
	RetentionDays int
	Interval      time.Duration // between sweeps, default 1h
}

// eventPruner is the slice of Store the cleaner needs.
type eventPruner interface {
	DeleteBefore(cutoff time.Time) (int64, error)
}

// RetentionCleaner drops recorded events once they are older than the
// retention window.
type RetentionCleaner struct {
	store    eventPruner
	maxAge   time.Duration
	interval time.Duration
	now      func() time.Time

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// NewRetentionCleaner sweeps once immediately and then every interval.
// It returns nil when retention is disabled (0 days).
func NewRetentionCleaner(store *Store, cfg RetentionConfig) *RetentionCleaner {
	rc := newRetentionCleaner(store, cfg, time.Now)
	if rc == nil {
		return nil
	}
	rc.Sweep()
	go rc.loop()
	return rc
}

func newRetentionCleaner(store eventPruner, cfg RetentionConfig, now func() time.Time) *RetentionCleaner {
	if cfg.RetentionDays <= 0 {
		return nil
	}
	interval := cfg.Interval
	if interval <= 0 {
		interval = defaultRetentionInterval
	}
	return &RetentionCleaner{
		store:    store,
		maxAge:   time.Duration(cfg.RetentionDays) * 24 * time.Hour,
		interval: interval,
		now:      now,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (rc *RetentionCleaner) loop() {
	defer close(rc.done)
	ticker := time.NewTicker(rc.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rc.Sweep()
		case <-rc.stop:
			return
		}
	}
}

// Sweep deletes every event recorded before now minus the retention window
// and returns how many rows went.
func (rc *RetentionCleaner) Sweep() int64 {
	cutoff := rc.now().Add(-rc.maxAge)
	rows, err := rc.store.DeleteBefore(cutoff)
	if err != nil {
		log.Printf("duckdb: retention: %v", err)
		return 0
	}
	if rows > 0 {
		log.Printf("duckdb: retention dropped %d events before %s", rows, cutoff.Format(time.RFC3339))
	}
	return rows
}

// Stop ends the sweep loop. Safe to call more than once.
func (rc *RetentionCleaner) Stop() {
	rc.stopOnce.Do(func() {
		close(rc.stop)
		<-rc.done
	})
}
