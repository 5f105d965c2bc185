package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// DefaultRetentionDays keeps audit rows for 90 days.
const DefaultRetentionDays = 90

// Purger deletes audit rows past the retention window on a cron schedule.
// The authorization layer itself never deletes entries; this is the only
// component allowed to trim the log.
type Purger struct {
	db            *sql.DB
	retentionDays int
	log           logrus.FieldLogger
	cron          *cron.Cron
}

// NewPurger creates a purger. Non-positive retention falls back to the
// default.
func NewPurger(db *sql.DB, retentionDays int, log logrus.FieldLogger) *Purger {
	if retentionDays <= 0 {
		retentionDays = DefaultRetentionDays
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Purger{
		db:            db,
		retentionDays: retentionDays,
		log:           log,
		cron:          cron.New(),
	}
}

// Start schedules a daily purge. Returns an error only for an invalid
// schedule, which would be a programming mistake.
func (p *Purger) Start() error {
	_, err := p.cron.AddFunc("@daily", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		deleted, err := p.Purge(ctx)
		if err != nil {
			p.log.WithError(err).Error("audit retention purge failed")
			return
		}
		if deleted > 0 {
			p.log.WithField("deleted", deleted).Info("purged expired audit rows")
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule audit purge: %w", err)
	}

	p.cron.Start()
	return nil
}

// Stop halts the schedule and waits for a running purge to finish.
func (p *Purger) Stop() {
	<-p.cron.Stop().Done()
}

// Purge deletes rows older than the retention window and reports how many.
func (p *Purger) Purge(ctx context.Context) (int64, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -p.retentionDays)

	res, err := p.db.ExecContext(ctx, "DELETE FROM audit_logs WHERE created_at < $1", cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired audit rows: %w", err)
	}
	return res.RowsAffected()
}
