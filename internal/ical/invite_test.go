package ical

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"calhook/internal/models"
)

func TestInvite(t *testing.T) {
	ev := models.CalendarEvent{
		ID:       "event-7",
		Title:    "Checkup",
		StartsAt: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		EndsAt:   time.Date(2026, 3, 1, 11, 0, 0, 0, time.UTC),
		Location: "Room 4",
	}

	invite, err := Invite(ev, "jane@x.com", models.ParticipantStatusAccepted)

	require.NoError(t, err)
	assert.Contains(t, invite, "BEGIN:VCALENDAR")
	assert.Contains(t, invite, "METHOD:REQUEST")
	assert.Contains(t, invite, "BEGIN:VEVENT")
	assert.Contains(t, invite, "UID:event-7")
	assert.Contains(t, invite, "SUMMARY:Checkup")
	assert.Contains(t, invite, "DTSTART:20260301T100000Z")
	assert.Contains(t, invite, "DTEND:20260301T110000Z")
	assert.Contains(t, invite, "LOCATION:Room 4")
	assert.Contains(t, invite, "PARTSTAT=ACCEPTED")
	assert.Contains(t, invite, "mailto:jane@x.com")
}

func TestInvite_GeneratesUIDWhenMissing(t *testing.T) {
	ev := models.CalendarEvent{
		Title:    "Meeting",
		StartsAt: time.Now().UTC(),
		EndsAt:   time.Now().UTC().Add(time.Hour),
	}

	invite, err := Invite(ev, "jane@x.com", models.ParticipantStatusPending)

	require.NoError(t, err)
	assert.Contains(t, invite, "UID:")
	assert.Contains(t, invite, "PARTSTAT=TENTATIVE")
}

func TestParticipationStatus(t *testing.T) {
	assert.Equal(t, "ACCEPTED", participationStatus(models.ParticipantStatusAccepted))
	assert.Equal(t, "DECLINED", participationStatus(models.ParticipantStatusDeclined))
	assert.Equal(t, "TENTATIVE", participationStatus(models.ParticipantStatusPending))
	assert.Equal(t, "NEEDS-ACTION", participationStatus(models.ParticipantStatusNeedsAction))
}
