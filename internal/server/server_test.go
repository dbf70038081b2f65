package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"calhook/internal/intake"
	"calhook/internal/models"
)

type stubStore struct {
	calls           int
	failCreateEvent error
}

func (s *stubStore) FindPersonByEmail(ctx context.Context, email string) (*models.Person, error) {
	s.calls++
	return nil, nil
}

func (s *stubStore) CreatePerson(ctx context.Context, name models.PersonName, email string) (string, error) {
	s.calls++
	return "person-1", nil
}

func (s *stubStore) CreateCalendarEvent(ctx context.Context, ev models.CalendarEvent) (string, error) {
	s.calls++
	if s.failCreateEvent != nil {
		return "", s.failCreateEvent
	}
	return "event-1", nil
}

func (s *stubStore) CreateParticipant(ctx context.Context, p models.Participant) (string, error) {
	s.calls++
	return "participant-1", nil
}

func newTestServer(store intake.Store) *Server {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(intake.NewProcessor(store, logger), logger, "127.0.0.1", 0)
}

func TestHandleProcess_GET(t *testing.T) {
	srv := newTestServer(&stubStore{})

	req := httptest.NewRequest(http.MethodGet,
		"/appointment/process?name=Jane+Doe&email=jane%40x.com&title=Checkup", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var result models.IntakeResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.True(t, result.Success)
	assert.Equal(t, "person-1", result.PersonID)
	assert.Equal(t, "event-1", result.EventID)
	assert.Equal(t, "participant-1", result.ParticipantID)
}

func TestHandleProcess_POST(t *testing.T) {
	srv := newTestServer(&stubStore{})

	body := strings.NewReader(`{"name":"Jane Doe","email":"jane@x.com","title":"Checkup"}`)
	req := httptest.NewRequest(http.MethodPost, "/appointment/process", body)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var result models.IntakeResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.True(t, result.Success)
}

func TestHandleProcess_MissingEmail(t *testing.T) {
	store := &stubStore{}
	srv := newTestServer(store)

	req := httptest.NewRequest(http.MethodGet, "/appointment/process?name=Jane+Doe", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, store.calls, "validation must fail before any store call")
	assert.Contains(t, rec.Body.String(), "email")
}

func TestHandleProcess_UpstreamFailure(t *testing.T) {
	srv := newTestServer(&stubStore{failCreateEvent: errors.New("graph store unavailable")})

	req := httptest.NewRequest(http.MethodGet, "/appointment/process?email=jane%40x.com", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "graph store unavailable")
}

func TestHandleProcess_MethodNotAllowed(t *testing.T) {
	srv := newTestServer(&stubStore{})

	req := httptest.NewRequest(http.MethodDelete, "/appointment/process", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHandleProcess_MalformedJSON(t *testing.T) {
	srv := newTestServer(&stubStore{})

	req := httptest.NewRequest(http.MethodPost, "/appointment/process", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleProcess_CalendarResponse(t *testing.T) {
	srv := newTestServer(&stubStore{})

	req := httptest.NewRequest(http.MethodGet, "/appointment/process?email=jane%40x.com&title=Checkup", nil)
	req.Header.Set("Accept", "text/calendar")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/calendar; charset=utf-8", rec.Header().Get("Content-Type"))
	body := rec.Body.String()
	assert.Contains(t, body, "BEGIN:VCALENDAR")
	assert.Contains(t, body, "METHOD:REQUEST")
	assert.Contains(t, body, "mailto:jane@x.com")
	assert.Contains(t, body, "SUMMARY:Checkup")
}
