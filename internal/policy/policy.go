// Package policy decides who may read or write which resource. Every check
// is a pure function of the actor and a snapshot of the target's state, so
// the rules are testable without a database.
package policy

import "github.com/google/uuid"

// Actor identifies the caller of an operation. Anonymous callers have
// Authenticated == false and a nil ID.
type Actor struct {
	ID            uuid.UUID
	Authenticated bool
}

// EventSnapshot captures the event state a policy decision depends on.
// ActorHasRSVP is true when the actor holds an RSVP row for the event with
// any status; that row is what stands in for an invitation.
type EventSnapshot struct {
	OrganizerID  uuid.UUID
	IsPublic     bool
	ActorHasRSVP bool
}

// Decision is the outcome of a policy check. Reason is set only on denial.
type Decision struct {
	Allowed bool
	Reason  string
}

func allow() Decision {
	return Decision{Allowed: true}
}

func deny(reason string) Decision {
	return Decision{Reason: reason}
}

// CanReadEvent allows anyone, including anonymous callers, to read public
// events. Private events are readable only by the organizer and holders of
// an RSVP row.
func CanReadEvent(actor Actor, event EventSnapshot) Decision {
	if event.IsPublic {
		return allow()
	}
	if actor.Authenticated && actor.ID == event.OrganizerID {
		return allow()
	}
	if actor.Authenticated && event.ActorHasRSVP {
		return allow()
	}
	return deny("You don't have access to this private event.")
}

// CanWriteEvent allows only the organizer to update or delete an event.
func CanWriteEvent(actor Actor, event EventSnapshot) Decision {
	if actor.Authenticated && actor.ID == event.OrganizerID {
		return allow()
	}
	return deny("You must be the event organizer to perform this action.")
}

// CanCreateRSVP allows any authenticated actor to RSVP to a public event.
// For private events only the organizer and already-invited actors (those
// holding an RSVP row, whatever its status) may respond; nobody can
// self-invite.
func CanCreateRSVP(actor Actor, event EventSnapshot) Decision {
	if !actor.Authenticated {
		return deny("Authentication required.")
	}
	if event.IsPublic {
		return allow()
	}
	if actor.ID == event.OrganizerID {
		return allow()
	}
	if event.ActorHasRSVP {
		return allow()
	}
	return deny("You cannot RSVP to this private event.")
}

// CanModifyOwned allows only the owning user to update or delete an RSVP or
// review row.
func CanModifyOwned(actor Actor, ownerID uuid.UUID) Decision {
	if actor.Authenticated && actor.ID == ownerID {
		return allow()
	}
	return deny("You can only modify your own RSVPs and reviews.")
}
