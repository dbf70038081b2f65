package models

import (
	"strings"
	"time"
)

// AppointmentPayload is the inbound webhook payload. Every field is optional
// at the transport level; Email is functionally required and enforced by the
// intake pipeline before any store access.
type AppointmentPayload struct {
	Name        string `json:"name,omitempty"`
	Email       string `json:"email,omitempty"`
	Title       string `json:"title,omitempty"`
	StartTime   string `json:"startTime,omitempty"`
	EndTime     string `json:"endTime,omitempty"`
	Location    string `json:"location,omitempty"`
	Description string `json:"description,omitempty"`
}

// PersonName is a display name split into its stored parts.
type PersonName struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// Person is a CRM person record. The ID is opaque and store-assigned; the
// primary email is the lookup key for this workflow.
type Person struct {
	ID           string     `json:"id"`
	Name         PersonName `json:"name"`
	PrimaryEmail string     `json:"primaryEmail"`
}

// CalendarEvent is a CRM calendar event record.
type CalendarEvent struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	StartsAt    time.Time `json:"startsAt"`
	EndsAt      time.Time `json:"endsAt"`
	IsFullDay   bool      `json:"isFullDay"`
	IsCanceled  bool      `json:"isCanceled"`
	Location    string    `json:"location"`
	Description string    `json:"description"`
}

// ParticipantStatus is a participant's response to an event invitation.
type ParticipantStatus string

const (
	ParticipantStatusAccepted    ParticipantStatus = "ACCEPTED"
	ParticipantStatusDeclined    ParticipantStatus = "DECLINED"
	ParticipantStatusPending     ParticipantStatus = "PENDING"
	ParticipantStatusNeedsAction ParticipantStatus = "NEEDS_ACTION"
)

// Participant links a person to a calendar event. Both referenced records
// must already exist in the store when the link is created.
type Participant struct {
	ID             string            `json:"id"`
	EventID        string            `json:"calendarEventId"`
	PersonID       string            `json:"personId"`
	ResponseStatus ParticipantStatus `json:"responseStatus"`
	IsOrganizer    bool              `json:"isOrganizer"`
}

// IntakeResult holds the identifiers produced by a completed intake. Event
// carries the created event for invite rendering and stays off the wire.
type IntakeResult struct {
	Success       bool          `json:"success"`
	PersonID      string        `json:"personId"`
	EventID       string        `json:"eventId"`
	ParticipantID string        `json:"participantId"`
	Event         CalendarEvent `json:"-"`
}

// SplitName derives the stored name parts from a free-text display name:
// the first whitespace-separated token is the first name, the remaining
// tokens joined by single spaces are the last name (empty if there are none).
func SplitName(full string) PersonName {
	parts := strings.Fields(strings.TrimSpace(full))
	if len(parts) == 0 {
		return PersonName{}
	}
	return PersonName{
		FirstName: parts[0],
		LastName:  strings.Join(parts[1:], " "),
	}
}
