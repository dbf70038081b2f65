package intake

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"calhook/internal/models"
)

const (
	defaultTitle         = "Meeting"
	defaultEventDuration = time.Hour
	unknownName          = "Unknown"
)

// Formats accepted for startTime/endTime, tried in order. Values without a
// zone are interpreted as UTC. Anything that matches none of these falls
// back to the invocation-time default.
var timeFormats = []string{
	time.RFC3339,
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

// Processor runs the appointment intake pipeline: resolve or create a
// person, create a calendar event, link the person as a participant. It
// owns no persistent state; everything lives in the Store.
type Processor struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time

	// resolveGroup collapses concurrent in-process resolutions for the same
	// email into a single find-or-create, so two simultaneous bookings for a
	// brand-new address share one person. Races across processes are only
	// prevented if the store enforces email uniqueness itself.
	resolveGroup singleflight.Group
}

// NewProcessor creates a Processor backed by the given store.
func NewProcessor(store Store, logger *slog.Logger) *Processor {
	return &Processor{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// Process runs one intake end to end. Any stage's failure is returned
// immediately with the stage name wrapped in; records written by earlier
// stages are NOT rolled back. There is no compensation phase: the store
// offers no cross-entity transaction, so a failed intake can leave a person
// or event behind.
func (p *Processor) Process(ctx context.Context, payload models.AppointmentPayload) (*models.IntakeResult, error) {
	p.logger.Info("Processing appointment.",
		"name", payload.Name, "email", payload.Email, "title", payload.Title, "startTime", payload.StartTime)

	personID, err := p.ResolvePerson(ctx, payload.Name, payload.Email)
	if err != nil {
		return nil, fmt.Errorf("resolve person: %w", err)
	}

	eventID, event, err := p.CreateEvent(ctx, payload)
	if err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}

	participantID, err := p.LinkParticipant(ctx, eventID, personID)
	if err != nil {
		return nil, fmt.Errorf("link participant: %w", err)
	}

	p.logger.Info("Appointment processed.",
		"personId", personID, "eventId", eventID, "participantId", participantID)

	event.ID = eventID
	return &models.IntakeResult{
		Success:       true,
		PersonID:      personID,
		EventID:       eventID,
		ParticipantID: participantID,
		Event:         event,
	}, nil
}

// ResolvePerson finds the person with the given primary email, creating one
// when none exists. Email is mandatory; the name is only consulted on the
// create path, substituting "Unknown" when blank. Repeated calls for an
// existing email return the same identifier and never write.
func (p *Processor) ResolvePerson(ctx context.Context, name, email string) (string, error) {
	if email == "" {
		return "", missingEmail()
	}

	id, err, _ := p.resolveGroup.Do(email, func() (interface{}, error) {
		return p.resolvePerson(ctx, name, email)
	})
	if err != nil {
		return "", err
	}
	return id.(string), nil
}

func (p *Processor) resolvePerson(ctx context.Context, name, email string) (string, error) {
	person, err := p.store.FindPersonByEmail(ctx, email)
	if err != nil {
		return "", fmt.Errorf("failed to look up person by email: %w", err)
	}
	if person != nil {
		p.logger.Info("Found existing person.", "personId", person.ID, "email", email)
		return person.ID, nil
	}

	if name == "" {
		name = unknownName
	}
	personID, err := p.store.CreatePerson(ctx, models.SplitName(name), email)
	if err != nil {
		return "", fmt.Errorf("failed to create person: %w", err)
	}
	p.logger.Info("Created new person.", "personId", personID, "email", email)
	return personID, nil
}

// CreateEvent creates a calendar event from the payload, filling defaults
// for absent fields, and returns the new identifier along with the event as
// submitted. Every call writes a new event; there is no lookup or
// deduplication at this layer.
//
// When endTime is absent the default is one hour after the invocation
// instant, independent of whatever startTime resolved to. A supplied start
// with no end therefore does not shift the end.
func (p *Processor) CreateEvent(ctx context.Context, payload models.AppointmentPayload) (string, models.CalendarEvent, error) {
	now := p.now().UTC()

	title := payload.Title
	if title == "" {
		title = defaultTitle
	}

	startsAt := now
	if t, ok := parseEventTime(payload.StartTime); ok {
		startsAt = t
	}
	endsAt := now.Add(defaultEventDuration)
	if t, ok := parseEventTime(payload.EndTime); ok {
		endsAt = t
	}

	description := payload.Description
	if description == "" {
		description = fmt.Sprintf("Appointment booked via calhook for %s", payload.Email)
	}

	event := models.CalendarEvent{
		Title:       title,
		StartsAt:    startsAt,
		EndsAt:      endsAt,
		IsFullDay:   false,
		IsCanceled:  false,
		Location:    payload.Location,
		Description: description,
	}
	eventID, err := p.store.CreateCalendarEvent(ctx, event)
	if err != nil {
		return "", models.CalendarEvent{}, fmt.Errorf("failed to create calendar event: %w", err)
	}
	p.logger.Info("Created calendar event.", "eventId", eventID, "title", title, "startsAt", startsAt)
	return eventID, event, nil
}

// LinkParticipant links the person to the event. The booking itself is
// treated as acceptance, so the response status is always ACCEPTED and the
// booked person is never the organizer.
func (p *Processor) LinkParticipant(ctx context.Context, eventID, personID string) (string, error) {
	participantID, err := p.store.CreateParticipant(ctx, models.Participant{
		EventID:        eventID,
		PersonID:       personID,
		ResponseStatus: models.ParticipantStatusAccepted,
		IsOrganizer:    false,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create participant: %w", err)
	}
	p.logger.Info("Added participant.", "participantId", participantID, "eventId", eventID, "personId", personID)
	return participantID, nil
}

// parseEventTime parses a payload timestamp, normalized to UTC. The second
// return is false for empty or unparsable input.
func parseEventTime(value string) (time.Time, bool) {
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range timeFormats {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
