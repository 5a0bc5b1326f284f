package notifications

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/gatherly/api/internal/models"
)

// Config tunes the notification worker pool.
type Config struct {
	Workers      int
	PollInterval time.Duration
	MaxAttempts  int
	RetryBackoff time.Duration
	LeaseTTL     time.Duration
}

// DefaultConfig matches the delivery contract: three attempts with a fixed
// backoff between them.
func DefaultConfig() Config {
	return Config{
		Workers:      2,
		PollInterval: 2 * time.Second,
		MaxAttempts:  3,
		RetryBackoff: 30 * time.Second,
		LeaseTTL:     time.Minute,
	}
}

// Dispatcher drains the notification job queue. It runs in its own
// concurrency domain: nothing in the request path ever waits on it, and no
// delivery failure can affect a request's outcome.
type Dispatcher struct {
	db     *gorm.DB
	sender Sender
	log    zerolog.Logger
	cfg    Config
}

func NewDispatcher(db *gorm.DB, sender Sender, log zerolog.Logger, cfg Config) *Dispatcher {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	return &Dispatcher{db: db, sender: sender, log: log, cfg: cfg}
}

// Run starts the worker pool and blocks until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for i := 0; i < d.cfg.Workers; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			d.work(ctx, worker)
		}(i)
	}
	wg.Wait()
}

func (d *Dispatcher) work(ctx context.Context, worker int) {
	log := d.log.With().Int("worker", worker).Logger()
	for {
		processed, err := d.RunOnce(ctx)
		if err != nil {
			log.Error().Err(err).Msg("job queue poll failed")
		}
		if processed {
			continue
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(d.cfg.PollInterval):
		}
	}
}

// RunOnce claims and processes a single due job. It reports whether a job
// was processed so callers can poll eagerly while the queue has work.
func (d *Dispatcher) RunOnce(ctx context.Context) (bool, error) {
	job, err := d.claim()
	if err != nil || job == nil {
		return false, err
	}

	deliverErr := d.process(ctx, job)
	if deliverErr == nil {
		return true, d.markDelivered(job)
	}
	return true, d.markFailed(job, deliverErr)
}

// claim picks the oldest due job and bumps its attempt counter, guarded by
// the previous counter value so two workers never take the same row.
func (d *Dispatcher) claim() (*models.NotificationJob, error) {
	now := time.Now().UTC()

	var job models.NotificationJob
	err := d.db.
		Where("status IN ? AND next_attempt_at <= ?", []string{models.JobStatusPending, models.JobStatusRetrying}, now).
		Order("next_attempt_at").
		First(&job).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	res := d.db.Model(&models.NotificationJob{}).
		Where("id = ? AND attempts = ?", job.ID, job.Attempts).
		Updates(map[string]interface{}{
			"attempts":        job.Attempts + 1,
			"next_attempt_at": now.Add(d.cfg.LeaseTTL),
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		// Another worker won the race.
		return nil, nil
	}
	job.Attempts++
	return &job, nil
}

func (d *Dispatcher) markDelivered(job *models.NotificationJob) error {
	return d.db.Model(job).Updates(map[string]interface{}{
		"status":     models.JobStatusDelivered,
		"last_error": "",
	}).Error
}

func (d *Dispatcher) markFailed(job *models.NotificationJob, deliverErr error) error {
	if job.Attempts >= d.cfg.MaxAttempts {
		d.log.Error().
			Str("job_id", job.ID.String()).
			Str("kind", job.Kind).
			Int("attempts", job.Attempts).
			Err(deliverErr).
			Msg("notification dead-lettered")
		return d.db.Model(job).Updates(map[string]interface{}{
			"status":     models.JobStatusDeadLetter,
			"last_error": deliverErr.Error(),
		}).Error
	}

	d.log.Warn().
		Str("job_id", job.ID.String()).
		Str("kind", job.Kind).
		Int("attempts", job.Attempts).
		Err(deliverErr).
		Msg("notification delivery failed, will retry")
	return d.db.Model(job).Updates(map[string]interface{}{
		"status":          models.JobStatusRetrying,
		"next_attempt_at": time.Now().UTC().Add(d.cfg.RetryBackoff),
		"last_error":      deliverErr.Error(),
	}).Error
}

// process resolves recipients and sends the notification for one job.
// Recipients are resolved at delivery time so the "going" set is current.
// Jobs whose subject rows have since been deleted complete as no-ops.
func (d *Dispatcher) process(ctx context.Context, job *models.NotificationJob) error {
	var event models.Event
	err := d.db.Preload("Organizer").Where("id = ?", job.EventID).First(&event).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			d.log.Info().Str("job_id", job.ID.String()).Msg("event gone, nothing to notify")
			return nil
		}
		return err
	}

	switch job.Kind {
	case models.NotificationKindEventCreated:
		return d.notifyOrganizer(ctx, &event,
			fmt.Sprintf("Event Created: %s", event.Title),
			fmt.Sprintf("Your event %q has been created. It runs from %s to %s at %s.",
				event.Title, event.StartTime.Format(time.RFC1123), event.EndTime.Format(time.RFC1123), event.Location))

	case models.NotificationKindEventUpdated:
		return d.notifyAttendees(ctx, &event, job.ChangedFields)

	case models.NotificationKindRSVPSubmitted:
		var rsvp models.RSVP
		err := d.db.Preload("User").Where("id = ?", job.SubjectID).First(&rsvp).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				d.log.Info().Str("job_id", job.ID.String()).Msg("rsvp gone, nothing to notify")
				return nil
			}
			return err
		}
		return d.notifyOrganizer(ctx, &event,
			fmt.Sprintf("New RSVP for %s", event.Title),
			fmt.Sprintf("%s has RSVP'd to your event %q with status %q.",
				rsvp.User.Email, event.Title, rsvp.Status))

	case models.NotificationKindReviewCreated:
		var review models.Review
		err := d.db.Preload("User").Where("id = ?", job.SubjectID).First(&review).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				d.log.Info().Str("job_id", job.ID.String()).Msg("review gone, nothing to notify")
				return nil
			}
			return err
		}
		return d.notifyOrganizer(ctx, &event,
			fmt.Sprintf("New Review for %s", event.Title),
			fmt.Sprintf("%s rated your event %q %d/5.\n\n%s",
				review.User.Email, event.Title, review.Rating, review.Comment))

	default:
		// Unknown kinds are a deploy-skew artifact; dead-letter them via
		// the normal failure path.
		return fmt.Errorf("unknown notification kind %q", job.Kind)
	}
}

func (d *Dispatcher) notifyOrganizer(ctx context.Context, event *models.Event, subject, body string) error {
	if event.Organizer == nil || event.Organizer.Email == "" {
		d.log.Info().Str("event_id", event.ID.String()).Msg("organizer has no email, nothing to notify")
		return nil
	}
	return d.sender.Send(ctx, []string{event.Organizer.Email}, subject, body)
}

func (d *Dispatcher) notifyAttendees(ctx context.Context, event *models.Event, changedFields string) error {
	var rsvps []models.RSVP
	err := d.db.Preload("User").
		Where("event_id = ? AND status = ?", event.ID, models.RSVPStatusGoing).
		Find(&rsvps).Error
	if err != nil {
		return err
	}

	var recipients []string
	for _, rsvp := range rsvps {
		if rsvp.User != nil && rsvp.User.Email != "" {
			recipients = append(recipients, rsvp.User.Email)
		}
	}
	if len(recipients) == 0 {
		// No attendees is a successful no-op, not an error.
		d.log.Info().Str("event_id", event.ID.String()).Msg("no attendees to notify")
		return nil
	}

	changed := changedFields
	if changed == "" {
		changed = "event details"
	} else {
		changed = strings.ReplaceAll(changed, ",", ", ")
	}

	return d.sender.Send(ctx, recipients,
		fmt.Sprintf("Event Updated: %s", event.Title),
		fmt.Sprintf("The event %q you're attending has been updated (%s). It now runs from %s to %s at %s.",
			event.Title, changed, event.StartTime.Format(time.RFC1123), event.EndTime.Format(time.RFC1123), event.Location))
}
