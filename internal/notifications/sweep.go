package notifications

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/gatherly/api/internal/models"
)

const staleEventAge = 30 * 24 * time.Hour

// Sweeper periodically reports events that ended more than 30 days ago.
// This is maintenance work, never part of the request path.
type Sweeper struct {
	db       *gorm.DB
	log      zerolog.Logger
	interval time.Duration
}

func NewSweeper(db *gorm.DB, log zerolog.Logger, interval time.Duration) *Sweeper {
	return &Sweeper{db: db, log: log, interval: interval}
}

// Run sweeps on a fixed interval until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.SweepOnce(); err != nil {
				s.log.Error().Err(err).Msg("stale event sweep failed")
			}
		}
	}
}

// SweepOnce counts and reports stale events. They are kept, not deleted;
// operators decide what to archive.
func (s *Sweeper) SweepOnce() (int64, error) {
	cutoff := time.Now().UTC().Add(-staleEventAge)

	var count int64
	err := s.db.Model(&models.Event{}).Where("end_time < ?", cutoff).Count(&count).Error
	if err != nil {
		return 0, err
	}

	if count > 0 {
		s.log.Info().
			Int64("count", count).
			Time("cutoff", cutoff).
			Msg("events ended more than 30 days ago")
	}
	return count, nil
}
