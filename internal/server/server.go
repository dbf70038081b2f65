package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"calhook/internal/ical"
	"calhook/internal/intake"
	"calhook/internal/models"
)

// Server hosts the appointment webhook over HTTP. It translates transport
// concerns (methods, bodies, status codes) and leaves all booking semantics
// to the intake processor.
type Server struct {
	processor *intake.Processor
	logger    *slog.Logger
	host      string
	port      int
}

// New creates a new server instance.
func New(processor *intake.Processor, logger *slog.Logger, host string, port int) *Server {
	return &Server{
		processor: processor,
		logger:    logger,
		host:      host,
		port:      port,
	}
}

// Handler returns the server's HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/appointment/process", s.handleProcess)
	return mux
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.host, s.port)
	s.logger.Info("Starting server.", "addr", addr)
	return http.ListenAndServe(addr, s.Handler())
}

// handleProcess accepts the booking payload via GET query parameters or a
// POST JSON body. GET is kept for easy browser testing.
func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	var payload models.AppointmentPayload

	switch r.Method {
	case http.MethodGet:
		payload = payloadFromQuery(r)
	case http.MethodPost:
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid JSON body: %w", err))
			return
		}
	default:
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	result, err := s.processor.Process(r.Context(), payload)
	if err != nil {
		// Validation failures are the client's fault; everything else comes
		// from the store and surfaces as a bad gateway.
		status := http.StatusBadGateway
		if intake.IsValidation(err) {
			status = http.StatusBadRequest
		}
		s.logger.Error("Failed to process appointment.", "error", err, "status", status)
		s.writeError(w, status, err)
		return
	}

	if wantsCalendar(r) {
		invite, err := ical.Invite(result.Event, payload.Email, models.ParticipantStatusAccepted)
		if err != nil {
			s.logger.Error("Failed to render invite.", "error", err)
			s.writeError(w, http.StatusInternalServerError, err)
			return
		}
		w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
		if _, err := w.Write([]byte(invite)); err != nil {
			s.logger.Error("Error writing invite response.", "error", err)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(result); err != nil {
		s.logger.Error("Error writing response.", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if encErr := json.NewEncoder(w).Encode(map[string]string{"error": err.Error()}); encErr != nil {
		s.logger.Error("Error writing error response.", "error", encErr)
	}
}

func payloadFromQuery(r *http.Request) models.AppointmentPayload {
	q := r.URL.Query()
	return models.AppointmentPayload{
		Name:        q.Get("name"),
		Email:       q.Get("email"),
		Title:       q.Get("title"),
		StartTime:   q.Get("startTime"),
		EndTime:     q.Get("endTime"),
		Location:    q.Get("location"),
		Description: q.Get("description"),
	}
}

func wantsCalendar(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "text/calendar")
}
