package services

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/gatherly/api/internal/models"
	"github.com/gatherly/api/internal/policy"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	err = db.AutoMigrate(
		&models.User{},
		&models.UserProfile{},
		&models.Event{},
		&models.RSVP{},
		&models.Review{},
		&models.NotificationJob{},
	)
	if err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}

func createTestUser(t *testing.T, db *gorm.DB, email string) policy.Actor {
	t.Helper()
	user := models.User{Email: email, Password: "hashed"}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("failed to create test user %s: %v", email, err)
	}
	return policy.Actor{ID: user.ID, Authenticated: true}
}

func futureEventInput(isPublic bool) EventInput {
	return EventInput{
		Title:       "Go Meetup",
		Description: "Monthly meetup",
		Location:    "Community Hall",
		StartTime:   time.Now().Add(48 * time.Hour),
		EndTime:     time.Now().Add(50 * time.Hour),
		IsPublic:    isPublic,
	}
}

func jobCount(t *testing.T, db *gorm.DB, kind string) int64 {
	t.Helper()
	var count int64
	if err := db.Model(&models.NotificationJob{}).Where("kind = ?", kind).Count(&count).Error; err != nil {
		t.Fatalf("failed to count jobs: %v", err)
	}
	return count
}

func TestCreateEventValidation(t *testing.T) {
	db := openTestDB(t)
	lifecycle := NewLifecycle(db, OutboxSink{})
	organizer := createTestUser(t, db, "org@example.com")

	tests := []struct {
		name   string
		mutate func(*EventInput)
		field  string
	}{
		{
			name: "end before start",
			mutate: func(in *EventInput) {
				in.EndTime = in.StartTime.Add(-time.Hour)
			},
			field: "end_time",
		},
		{
			name: "end equals start",
			mutate: func(in *EventInput) {
				in.EndTime = in.StartTime
			},
			field: "end_time",
		},
		{
			name: "start in the past",
			mutate: func(in *EventInput) {
				in.StartTime = time.Now().Add(-time.Hour)
				in.EndTime = time.Now().Add(time.Hour)
			},
			field: "start_time",
		},
		{
			name: "missing title",
			mutate: func(in *EventInput) {
				in.Title = ""
			},
			field: "title",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := futureEventInput(true)
			tt.mutate(&input)

			_, err := lifecycle.CreateEvent(organizer, input)
			var validationErr *ValidationError
			if !errors.As(err, &validationErr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if _, ok := validationErr.Fields[tt.field]; !ok {
				t.Errorf("expected field %q in %v", tt.field, validationErr.Fields)
			}
		})
	}

	// Nothing may be persisted by failed creates.
	var count int64
	db.Model(&models.Event{}).Count(&count)
	if count != 0 {
		t.Errorf("expected no events persisted, got %d", count)
	}
	if n := jobCount(t, db, models.NotificationKindEventCreated); n != 0 {
		t.Errorf("expected no jobs enqueued, got %d", n)
	}
}

func TestCreateEventEnqueuesNotification(t *testing.T) {
	db := openTestDB(t)
	lifecycle := NewLifecycle(db, OutboxSink{})
	organizer := createTestUser(t, db, "org@example.com")

	event, err := lifecycle.CreateEvent(organizer, futureEventInput(true))
	if err != nil {
		t.Fatalf("CreateEvent failed: %v", err)
	}
	if event.OrganizerID != organizer.ID {
		t.Errorf("organizer not set from actor: got %s", event.OrganizerID)
	}

	var job models.NotificationJob
	if err := db.Where("kind = ?", models.NotificationKindEventCreated).First(&job).Error; err != nil {
		t.Fatalf("expected a pending job: %v", err)
	}
	if job.EventID != event.ID || job.Status != models.JobStatusPending {
		t.Errorf("unexpected job %+v", job)
	}
}

func TestUpdateEventMergedValidation(t *testing.T) {
	db := openTestDB(t)
	lifecycle := NewLifecycle(db, OutboxSink{})
	organizer := createTestUser(t, db, "org@example.com")

	event, err := lifecycle.CreateEvent(organizer, futureEventInput(true))
	if err != nil {
		t.Fatalf("CreateEvent failed: %v", err)
	}

	// Patching only end_time must be validated against the existing start.
	badEnd := event.StartTime.Add(-time.Minute)
	_, err = lifecycle.UpdateEvent(organizer, event.ID, EventPatch{EndTime: &badEnd})
	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}

	// A consistent patch goes through and reports changed fields.
	newTitle := "Go Meetup (rescheduled)"
	newStart := event.StartTime.Add(time.Hour)
	updated, err := lifecycle.UpdateEvent(organizer, event.ID, EventPatch{Title: &newTitle, StartTime: &newStart})
	if err != nil {
		t.Fatalf("UpdateEvent failed: %v", err)
	}
	if updated.Title != newTitle {
		t.Errorf("title not updated: %q", updated.Title)
	}

	var job models.NotificationJob
	if err := db.Where("kind = ?", models.NotificationKindEventUpdated).First(&job).Error; err != nil {
		t.Fatalf("expected an update job: %v", err)
	}
	if job.ChangedFields != "title,start_time" {
		t.Errorf("unexpected changed fields %q", job.ChangedFields)
	}
}

func TestUpdateEventNonOrganizerDenied(t *testing.T) {
	db := openTestDB(t)
	lifecycle := NewLifecycle(db, OutboxSink{})
	organizer := createTestUser(t, db, "org@example.com")
	stranger := createTestUser(t, db, "stranger@example.com")

	event, err := lifecycle.CreateEvent(organizer, futureEventInput(true))
	if err != nil {
		t.Fatalf("CreateEvent failed: %v", err)
	}

	newTitle := "Hijacked"
	_, err = lifecycle.UpdateEvent(stranger, event.ID, EventPatch{Title: &newTitle})
	var permErr *PermissionError
	if !errors.As(err, &permErr) {
		t.Fatalf("expected PermissionError, got %v", err)
	}

	// Event fields must be unchanged after the denial.
	var stored models.Event
	if err := db.Where("id = ?", event.ID).First(&stored).Error; err != nil {
		t.Fatalf("failed to reload event: %v", err)
	}
	if stored.Title != event.Title {
		t.Errorf("event mutated by denied update: %q", stored.Title)
	}
}

func TestSetRSVPUpsert(t *testing.T) {
	db := openTestDB(t)
	lifecycle := NewLifecycle(db, OutboxSink{})
	organizer := createTestUser(t, db, "org@example.com")
	attendee := createTestUser(t, db, "attendee@example.com")

	event, err := lifecycle.CreateEvent(organizer, futureEventInput(true))
	if err != nil {
		t.Fatalf("CreateEvent failed: %v", err)
	}

	first, created, err := lifecycle.SetRSVP(attendee, event.ID, models.RSVPStatusGoing)
	if err != nil {
		t.Fatalf("first SetRSVP failed: %v", err)
	}
	if !created {
		t.Error("first RSVP should be reported as created")
	}

	second, created, err := lifecycle.SetRSVP(attendee, event.ID, models.RSVPStatusMaybe)
	if err != nil {
		t.Fatalf("second SetRSVP failed: %v", err)
	}
	if created {
		t.Error("second RSVP should be an update, not a create")
	}
	if second.ID != first.ID {
		t.Errorf("upsert produced a new row: %s vs %s", second.ID, first.ID)
	}
	if second.Status != models.RSVPStatusMaybe {
		t.Errorf("status not updated: %q", second.Status)
	}

	var count int64
	db.Model(&models.RSVP{}).Where("event_id = ? AND user_id = ?", event.ID, attendee.ID).Count(&count)
	if count != 1 {
		t.Errorf("expected exactly one RSVP row, got %d", count)
	}

	// Both submissions emit, at-least-once by design.
	if n := jobCount(t, db, models.NotificationKindRSVPSubmitted); n != 2 {
		t.Errorf("expected 2 rsvp jobs, got %d", n)
	}
}

func TestSetRSVPInvalidStatus(t *testing.T) {
	db := openTestDB(t)
	lifecycle := NewLifecycle(db, OutboxSink{})
	attendee := createTestUser(t, db, "attendee@example.com")

	_, _, err := lifecycle.SetRSVP(attendee, uuid.New(), "attending")
	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestPrivateEventAccess(t *testing.T) {
	db := openTestDB(t)
	lifecycle := NewLifecycle(db, OutboxSink{})
	organizer := createTestUser(t, db, "org@example.com")
	invitee := createTestUser(t, db, "invitee@example.com")
	stranger := createTestUser(t, db, "stranger@example.com")

	event, err := lifecycle.CreateEvent(organizer, futureEventInput(false))
	if err != nil {
		t.Fatalf("CreateEvent failed: %v", err)
	}

	// Nobody can self-invite.
	_, _, err = lifecycle.SetRSVP(stranger, event.ID, models.RSVPStatusGoing)
	var permErr *PermissionError
	if !errors.As(err, &permErr) {
		t.Fatalf("expected PermissionError for stranger RSVP, got %v", err)
	}
	if _, err := lifecycle.GetEvent(stranger, event.ID); !errors.As(err, &permErr) {
		t.Fatalf("expected PermissionError for stranger read, got %v", err)
	}
	if _, err := lifecycle.AddReview(stranger, event.ID, 5, ""); !errors.As(err, &permErr) {
		t.Fatalf("expected PermissionError for stranger review, got %v", err)
	}

	// The organizer bootstraps the invitation by creating the first RSVP
	// row for the invitee.
	seed := models.RSVP{EventID: event.ID, UserID: invitee.ID, Status: models.RSVPStatusNotGoing}
	if err := db.Create(&seed).Error; err != nil {
		t.Fatalf("failed to seed invitation RSVP: %v", err)
	}

	// Any RSVP row counts as invited, even not_going.
	if _, err := lifecycle.GetEvent(invitee, event.ID); err != nil {
		t.Fatalf("invitee read failed: %v", err)
	}
	if _, _, err := lifecycle.SetRSVP(invitee, event.ID, models.RSVPStatusGoing); err != nil {
		t.Fatalf("invitee re-RSVP failed: %v", err)
	}
}

func TestAddReviewRules(t *testing.T) {
	db := openTestDB(t)
	lifecycle := NewLifecycle(db, OutboxSink{})
	organizer := createTestUser(t, db, "org@example.com")
	attendee := createTestUser(t, db, "attendee@example.com")

	event, err := lifecycle.CreateEvent(organizer, futureEventInput(true))
	if err != nil {
		t.Fatalf("CreateEvent failed: %v", err)
	}

	// No RSVP yet: review is rejected.
	_, err = lifecycle.AddReview(attendee, event.ID, 4, "great")
	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected ValidationError without going RSVP, got %v", err)
	}

	// A maybe RSVP is not enough.
	if _, _, err := lifecycle.SetRSVP(attendee, event.ID, models.RSVPStatusMaybe); err != nil {
		t.Fatalf("SetRSVP failed: %v", err)
	}
	if _, err := lifecycle.AddReview(attendee, event.ID, 4, "great"); !errors.As(err, &validationErr) {
		t.Fatalf("expected ValidationError with maybe RSVP, got %v", err)
	}

	if _, _, err := lifecycle.SetRSVP(attendee, event.ID, models.RSVPStatusGoing); err != nil {
		t.Fatalf("SetRSVP failed: %v", err)
	}

	// Rating bounds.
	for _, rating := range []int{0, 6, -1} {
		if _, err := lifecycle.AddReview(attendee, event.ID, rating, ""); !errors.As(err, &validationErr) {
			t.Errorf("rating %d: expected ValidationError, got %v", rating, err)
		}
	}

	review, err := lifecycle.AddReview(attendee, event.ID, 5, "excellent")
	if err != nil {
		t.Fatalf("AddReview failed: %v", err)
	}
	if review.Rating != 5 {
		t.Errorf("unexpected rating %d", review.Rating)
	}
	if n := jobCount(t, db, models.NotificationKindReviewCreated); n != 1 {
		t.Errorf("expected 1 review job, got %d", n)
	}

	// Second review by the same user conflicts.
	_, err = lifecycle.AddReview(attendee, event.ID, 3, "changed my mind")
	var conflictErr *ConflictError
	if !errors.As(err, &conflictErr) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
}

func TestAttendeeCountIsLive(t *testing.T) {
	db := openTestDB(t)
	lifecycle := NewLifecycle(db, OutboxSink{})
	organizer := createTestUser(t, db, "org@example.com")
	a := createTestUser(t, db, "a@example.com")
	b := createTestUser(t, db, "b@example.com")

	event, err := lifecycle.CreateEvent(organizer, futureEventInput(true))
	if err != nil {
		t.Fatalf("CreateEvent failed: %v", err)
	}

	for _, actor := range []policy.Actor{a, b} {
		if _, _, err := lifecycle.SetRSVP(actor, event.ID, models.RSVPStatusGoing); err != nil {
			t.Fatalf("SetRSVP failed: %v", err)
		}
	}

	count, err := lifecycle.AttendeeCount(event.ID)
	if err != nil {
		t.Fatalf("AttendeeCount failed: %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2 attendees, got %d", count)
	}

	// Flipping one RSVP away from going decrements without any recount.
	if _, _, err := lifecycle.SetRSVP(b, event.ID, models.RSVPStatusMaybe); err != nil {
		t.Fatalf("SetRSVP failed: %v", err)
	}
	count, err = lifecycle.AttendeeCount(event.ID)
	if err != nil {
		t.Fatalf("AttendeeCount failed: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 attendee after status change, got %d", count)
	}
}

func TestDeleteEventCascades(t *testing.T) {
	db := openTestDB(t)
	lifecycle := NewLifecycle(db, OutboxSink{})
	organizer := createTestUser(t, db, "org@example.com")
	attendee := createTestUser(t, db, "attendee@example.com")

	event, err := lifecycle.CreateEvent(organizer, futureEventInput(true))
	if err != nil {
		t.Fatalf("CreateEvent failed: %v", err)
	}
	if _, _, err := lifecycle.SetRSVP(attendee, event.ID, models.RSVPStatusGoing); err != nil {
		t.Fatalf("SetRSVP failed: %v", err)
	}
	if _, err := lifecycle.AddReview(attendee, event.ID, 4, ""); err != nil {
		t.Fatalf("AddReview failed: %v", err)
	}

	if err := lifecycle.DeleteEvent(attendee, event.ID); err == nil {
		t.Fatal("non-organizer delete should fail")
	}
	if err := lifecycle.DeleteEvent(organizer, event.ID); err != nil {
		t.Fatalf("DeleteEvent failed: %v", err)
	}

	var rsvps, reviews int64
	db.Model(&models.RSVP{}).Where("event_id = ?", event.ID).Count(&rsvps)
	db.Model(&models.Review{}).Where("event_id = ?", event.ID).Count(&reviews)
	if rsvps != 0 || reviews != 0 {
		t.Errorf("cascade incomplete: %d rsvps, %d reviews left", rsvps, reviews)
	}

	var notFoundErr *NotFoundError
	if _, err := lifecycle.GetEvent(organizer, event.ID); !errors.As(err, &notFoundErr) {
		t.Errorf("expected NotFoundError after delete, got %v", err)
	}
}

func TestListEventsVisibility(t *testing.T) {
	db := openTestDB(t)
	lifecycle := NewLifecycle(db, OutboxSink{})
	organizer := createTestUser(t, db, "org@example.com")
	invitee := createTestUser(t, db, "invitee@example.com")

	public, err := lifecycle.CreateEvent(organizer, futureEventInput(true))
	if err != nil {
		t.Fatalf("CreateEvent failed: %v", err)
	}
	private, err := lifecycle.CreateEvent(organizer, futureEventInput(false))
	if err != nil {
		t.Fatalf("CreateEvent failed: %v", err)
	}

	seed := models.RSVP{EventID: private.ID, UserID: invitee.ID, Status: models.RSVPStatusMaybe}
	if err := db.Create(&seed).Error; err != nil {
		t.Fatalf("failed to seed invitation RSVP: %v", err)
	}

	// Anonymous callers see only public events.
	events, total, err := lifecycle.ListEvents(policy.Actor{}, EventFilter{Page: 1, Limit: 10})
	if err != nil {
		t.Fatalf("ListEvents failed: %v", err)
	}
	if total != 1 || len(events) != 1 || events[0].ID != public.ID {
		t.Errorf("anonymous list wrong: total=%d", total)
	}

	// The invitee sees the union of public and invited.
	_, total, err = lifecycle.ListEvents(invitee, EventFilter{Page: 1, Limit: 10})
	if err != nil {
		t.Fatalf("ListEvents failed: %v", err)
	}
	if total != 2 {
		t.Errorf("invitee should see 2 events, got %d", total)
	}

	// The organizer sees both of their events.
	_, total, err = lifecycle.ListEvents(organizer, EventFilter{Page: 1, Limit: 10})
	if err != nil {
		t.Fatalf("ListEvents failed: %v", err)
	}
	if total != 2 {
		t.Errorf("organizer should see 2 events, got %d", total)
	}
}
