package policy

import (
	"testing"

	"github.com/google/uuid"
)

func TestCanReadEvent(t *testing.T) {
	organizer := uuid.New()
	stranger := uuid.New()

	tests := []struct {
		name  string
		actor Actor
		event EventSnapshot
		want  bool
	}{
		{
			name:  "public event anonymous",
			actor: Actor{},
			event: EventSnapshot{OrganizerID: organizer, IsPublic: true},
			want:  true,
		},
		{
			name:  "private event anonymous",
			actor: Actor{},
			event: EventSnapshot{OrganizerID: organizer},
			want:  false,
		},
		{
			name:  "private event organizer",
			actor: Actor{ID: organizer, Authenticated: true},
			event: EventSnapshot{OrganizerID: organizer},
			want:  true,
		},
		{
			name:  "private event stranger",
			actor: Actor{ID: stranger, Authenticated: true},
			event: EventSnapshot{OrganizerID: organizer},
			want:  false,
		},
		{
			name:  "private event invited via rsvp",
			actor: Actor{ID: stranger, Authenticated: true},
			event: EventSnapshot{OrganizerID: organizer, ActorHasRSVP: true},
			want:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CanReadEvent(tt.actor, tt.event)
			if got.Allowed != tt.want {
				t.Errorf("CanReadEvent() = %v, want allowed=%v (reason %q)", got.Allowed, tt.want, got.Reason)
			}
			if !got.Allowed && got.Reason == "" {
				t.Error("denial without a reason")
			}
		})
	}
}

func TestCanWriteEvent(t *testing.T) {
	organizer := uuid.New()
	stranger := uuid.New()
	event := EventSnapshot{OrganizerID: organizer, IsPublic: true}

	if d := CanWriteEvent(Actor{ID: organizer, Authenticated: true}, event); !d.Allowed {
		t.Errorf("organizer denied: %q", d.Reason)
	}
	if d := CanWriteEvent(Actor{ID: stranger, Authenticated: true}, event); d.Allowed {
		t.Error("non-organizer allowed to write")
	}
	if d := CanWriteEvent(Actor{}, event); d.Allowed {
		t.Error("anonymous allowed to write")
	}

	// Read access never implies write access, even with an RSVP.
	invited := EventSnapshot{OrganizerID: organizer, ActorHasRSVP: true}
	if d := CanWriteEvent(Actor{ID: stranger, Authenticated: true}, invited); d.Allowed {
		t.Error("invited user allowed to write")
	}
}

func TestCanCreateRSVP(t *testing.T) {
	organizer := uuid.New()
	stranger := uuid.New()

	tests := []struct {
		name  string
		actor Actor
		event EventSnapshot
		want  bool
	}{
		{
			name:  "anonymous denied even for public",
			actor: Actor{},
			event: EventSnapshot{OrganizerID: organizer, IsPublic: true},
			want:  false,
		},
		{
			name:  "public event any user",
			actor: Actor{ID: stranger, Authenticated: true},
			event: EventSnapshot{OrganizerID: organizer, IsPublic: true},
			want:  true,
		},
		{
			name:  "private event organizer bootstraps",
			actor: Actor{ID: organizer, Authenticated: true},
			event: EventSnapshot{OrganizerID: organizer},
			want:  true,
		},
		{
			name:  "private event stranger cannot self-invite",
			actor: Actor{ID: stranger, Authenticated: true},
			event: EventSnapshot{OrganizerID: organizer},
			want:  false,
		},
		{
			// Any RSVP row counts as an invitation, including not_going.
			name:  "private event existing rsvp re-responds",
			actor: Actor{ID: stranger, Authenticated: true},
			event: EventSnapshot{OrganizerID: organizer, ActorHasRSVP: true},
			want:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CanCreateRSVP(tt.actor, tt.event)
			if got.Allowed != tt.want {
				t.Errorf("CanCreateRSVP() = %v, want allowed=%v (reason %q)", got.Allowed, tt.want, got.Reason)
			}
		})
	}
}

func TestCanModifyOwned(t *testing.T) {
	owner := uuid.New()
	other := uuid.New()

	if d := CanModifyOwned(Actor{ID: owner, Authenticated: true}, owner); !d.Allowed {
		t.Errorf("owner denied: %q", d.Reason)
	}
	if d := CanModifyOwned(Actor{ID: other, Authenticated: true}, owner); d.Allowed {
		t.Error("non-owner allowed")
	}
	if d := CanModifyOwned(Actor{}, owner); d.Allowed {
		t.Error("anonymous allowed")
	}
}
