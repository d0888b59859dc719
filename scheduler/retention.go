package scheduler

import (
	"log"
	"time"

	"shelfwatch/services"

	"github.com/robfig/cron/v3"
)

// RetentionJob prunes catalog entries that have not been observed for the
// configured number of days. Price history rows follow their entry through
// the cascading foreign key.
type RetentionJob struct {
	store    services.CatalogStore
	days     int
	schedule string
	cron     *cron.Cron
}

// NewRetentionJob creates the retention job.
func NewRetentionJob(store services.CatalogStore, days int, schedule string) *RetentionJob {
	return &RetentionJob{
		store:    store,
		days:     days,
		schedule: schedule,
		cron:     cron.New(cron.WithSeconds()),
	}
}

// Start schedules the cleanup.
func (rj *RetentionJob) Start() {
	if _, err := rj.cron.AddFunc(rj.schedule, rj.RunOnce); err != nil {
		log.Printf("Failed to schedule retention cleanup: %v", err)
		return
	}
	rj.cron.Start()
	log.Printf("Retention cleanup scheduled (%s), threshold %d days", rj.schedule, rj.days)
}

// Stop stops the schedule.
func (rj *RetentionJob) Stop() {
	if rj.cron != nil {
		rj.cron.Stop()
	}
}

// RunOnce deletes entries whose last update is older than the threshold.
func (rj *RetentionJob) RunOnce() {
	threshold := time.Now().AddDate(0, 0, -rj.days)

	count, err := rj.store.DeleteOlderThan(threshold)
	if err != nil {
		log.Printf("Retention cleanup failed: %v", err)
		return
	}
	if count > 0 {
		log.Printf("Retention cleanup removed %d stale entries", count)
	}
}
