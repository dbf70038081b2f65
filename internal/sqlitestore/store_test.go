package sqlitestore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"calhook/internal/models"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir() + "/test.db")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestFindPersonByEmail_Absent(t *testing.T) {
	s := setupTestStore(t)

	person, err := s.FindPersonByEmail(context.Background(), "nobody@x.com")

	require.NoError(t, err)
	assert.Nil(t, person)
}

func TestCreatePerson_RoundTrip(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	id, err := s.CreatePerson(ctx, models.PersonName{FirstName: "Jane", LastName: "Doe"}, "jane@x.com")
	require.NoError(t, err)
	require.NotEmpty(t, id)

	person, err := s.FindPersonByEmail(ctx, "jane@x.com")
	require.NoError(t, err)
	require.NotNil(t, person)
	assert.Equal(t, id, person.ID)
	assert.Equal(t, "Jane", person.Name.FirstName)
	assert.Equal(t, "Doe", person.Name.LastName)
	assert.Equal(t, "jane@x.com", person.PrimaryEmail)
}

func TestCreatePerson_DuplicateEmail(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	_, err := s.CreatePerson(ctx, models.PersonName{FirstName: "Jane", LastName: "Doe"}, "jane@x.com")
	require.NoError(t, err)

	_, err = s.CreatePerson(ctx, models.PersonName{FirstName: "Janet", LastName: "Doe"}, "jane@x.com")
	assert.Error(t, err, "second person with the same primary email must hit the unique index")
}

func TestCreateCalendarEvent_RoundTrip(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	want := models.CalendarEvent{
		Title:       "Checkup",
		StartsAt:    time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		EndsAt:      time.Date(2026, 3, 1, 11, 0, 0, 0, time.UTC),
		Location:    "Room 4",
		Description: "Appointment booked via calhook for jane@x.com",
	}
	id, err := s.CreateCalendarEvent(ctx, want)
	require.NoError(t, err)

	got, err := s.GetCalendarEvent(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, want.Title, got.Title)
	assert.True(t, want.StartsAt.Equal(got.StartsAt))
	assert.True(t, want.EndsAt.Equal(got.EndsAt))
	assert.False(t, got.IsFullDay)
	assert.False(t, got.IsCanceled)
	assert.Equal(t, want.Location, got.Location)
	assert.Equal(t, want.Description, got.Description)
}

func TestCreateParticipant(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	personID, err := s.CreatePerson(ctx, models.PersonName{FirstName: "Jane"}, "jane@x.com")
	require.NoError(t, err)
	eventID, err := s.CreateCalendarEvent(ctx, models.CalendarEvent{
		Title:    "Checkup",
		StartsAt: time.Now().UTC(),
		EndsAt:   time.Now().UTC().Add(time.Hour),
	})
	require.NoError(t, err)

	id, err := s.CreateParticipant(ctx, models.Participant{
		EventID:        eventID,
		PersonID:       personID,
		ResponseStatus: models.ParticipantStatusAccepted,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, id)
}

func TestCreateParticipant_MissingReferences(t *testing.T) {
	s := setupTestStore(t)

	_, err := s.CreateParticipant(context.Background(), models.Participant{
		EventID:        "no-such-event",
		PersonID:       "no-such-person",
		ResponseStatus: models.ParticipantStatusAccepted,
	})

	assert.Error(t, err, "foreign keys require both records to exist")
}
