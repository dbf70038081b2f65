// Package ical renders booked appointments as iCalendar invites.
package ical

import (
	"fmt"
	"strings"
	"time"

	goical "github.com/emersion/go-ical"
	"github.com/google/uuid"

	"calhook/internal/models"
)

// Invite renders the event as a single-VEVENT iCalendar REQUEST with the
// booked person as attendee. The returned string is ready to serve as
// text/calendar.
func Invite(ev models.CalendarEvent, attendeeEmail string, status models.ParticipantStatus) (string, error) {
	vevent := goical.NewComponent(goical.CompEvent)

	uid := ev.ID
	if uid == "" {
		uid = uuid.New().String()
	}
	vevent.Props.SetText(goical.PropUID, uid)
	vevent.Props.SetText(goical.PropSummary, ev.Title)
	vevent.Props.SetDateTime(goical.PropDateTimeStamp, time.Now().UTC())
	vevent.Props.SetDateTime(goical.PropDateTimeStart, ev.StartsAt.UTC())
	vevent.Props.SetDateTime(goical.PropDateTimeEnd, ev.EndsAt.UTC())
	if ev.Location != "" {
		vevent.Props.SetText(goical.PropLocation, ev.Location)
	}
	if ev.Description != "" {
		vevent.Props.SetText(goical.PropDescription, ev.Description)
	}
	if ev.IsCanceled {
		vevent.Props.SetText(goical.PropStatus, "CANCELLED")
	}

	attendee := goical.NewProp(goical.PropAttendee)
	attendee.Params.Set("PARTSTAT", participationStatus(status))
	attendee.SetText(fmt.Sprintf("mailto:%s", attendeeEmail))
	vevent.Props.Add(attendee)

	cal := goical.NewCalendar()
	cal.Props.SetText(goical.PropVersion, "2.0")
	cal.Props.SetText(goical.PropProductID, "-//calhook//EN")
	cal.Props.SetText(goical.PropMethod, "REQUEST")
	cal.Children = append(cal.Children, vevent)

	var buf strings.Builder
	if err := goical.NewEncoder(&buf).Encode(cal); err != nil {
		return "", fmt.Errorf("failed to encode invite: %w", err)
	}
	return buf.String(), nil
}

// participationStatus maps a participant status to its iCalendar PARTSTAT
// value.
func participationStatus(status models.ParticipantStatus) string {
	switch status {
	case models.ParticipantStatusAccepted:
		return "ACCEPTED"
	case models.ParticipantStatusDeclined:
		return "DECLINED"
	case models.ParticipantStatusPending:
		return "TENTATIVE"
	default:
		return "NEEDS-ACTION"
	}
}
