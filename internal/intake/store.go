package intake

import (
	"context"

	"calhook/internal/models"
)

// Store is the entity-graph capability the intake pipeline mutates. The
// remote transport, schema, and auth live behind the implementation; the
// pipeline only sequences typed operations against it.
//
// Store errors are propagated to the caller unmodified (wrapped with the
// failing stage). The pipeline never retries or compensates.
type Store interface {
	// FindPersonByEmail returns the person whose primary email equals email,
	// or (nil, nil) when no such person exists.
	FindPersonByEmail(ctx context.Context, email string) (*models.Person, error)

	// CreatePerson creates a person and returns its new identifier.
	CreatePerson(ctx context.Context, name models.PersonName, email string) (string, error)

	// CreateCalendarEvent creates a calendar event and returns its new
	// identifier. The event's ID field is ignored on input.
	CreateCalendarEvent(ctx context.Context, ev models.CalendarEvent) (string, error)

	// CreateParticipant links a person to an event and returns the link's
	// new identifier. Both referenced records must already exist.
	CreateParticipant(ctx context.Context, p models.Participant) (string, error)
}
