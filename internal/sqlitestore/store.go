// Package sqlitestore is a SQLite-backed implementation of the intake store
// capability, used for local development and the one-shot process command.
// It gives the email-uniqueness guarantee the workflow otherwise only gets
// from a well-behaved remote CRM.
package sqlitestore

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"calhook/internal/models"
)

//go:embed schema.sql
var schemaSQL string

// Store persists people, calendar events, and participant links in a local
// SQLite database.
type Store struct {
	db *sql.DB
}

// Open creates or opens a SQLite database at the given path and applies the
// schema. Safe to call on an existing database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite supports one writer at a time; keep the pool to a single
	// connection to avoid SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// FindPersonByEmail returns the person with the given primary email, or
// (nil, nil) when none exists.
func (s *Store) FindPersonByEmail(ctx context.Context, email string) (*models.Person, error) {
	var person models.Person
	err := s.db.QueryRowContext(ctx, `
		SELECT id, first_name, last_name, primary_email
		FROM people
		WHERE primary_email = ?
		LIMIT 1
	`, email).Scan(&person.ID, &person.Name.FirstName, &person.Name.LastName, &person.PrimaryEmail)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find person: %w", err)
	}
	return &person, nil
}

// CreatePerson inserts a person and returns its new identifier. Inserting a
// second person with the same primary email fails on the unique index.
func (s *Store) CreatePerson(ctx context.Context, name models.PersonName, email string) (string, error) {
	id := uuid.New().String()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO people (id, first_name, last_name, primary_email)
		VALUES (?, ?, ?, ?)
	`, id, name.FirstName, name.LastName, email)
	if err != nil {
		return "", fmt.Errorf("create person: %w", err)
	}
	return id, nil
}

// CreateCalendarEvent inserts a calendar event and returns its new
// identifier. Timestamps are stored as RFC 3339 UTC strings.
func (s *Store) CreateCalendarEvent(ctx context.Context, ev models.CalendarEvent) (string, error) {
	id := uuid.New().String()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO calendar_events (id, title, starts_at, ends_at, is_full_day, is_canceled, location, description)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		id,
		ev.Title,
		ev.StartsAt.UTC().Format(time.RFC3339),
		ev.EndsAt.UTC().Format(time.RFC3339),
		ev.IsFullDay,
		ev.IsCanceled,
		ev.Location,
		ev.Description,
	)
	if err != nil {
		return "", fmt.Errorf("create calendar event: %w", err)
	}
	return id, nil
}

// CreateParticipant inserts a participant link and returns its new
// identifier. Foreign keys require both the event and the person to exist.
func (s *Store) CreateParticipant(ctx context.Context, p models.Participant) (string, error) {
	id := uuid.New().String()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO calendar_event_participants (id, calendar_event_id, person_id, response_status, is_organizer)
		VALUES (?, ?, ?, ?, ?)
	`, id, p.EventID, p.PersonID, string(p.ResponseStatus), p.IsOrganizer)
	if err != nil {
		return "", fmt.Errorf("create participant: %w", err)
	}
	return id, nil
}

// GetCalendarEvent loads a stored event by identifier.
func (s *Store) GetCalendarEvent(ctx context.Context, id string) (*models.CalendarEvent, error) {
	var ev models.CalendarEvent
	var startsAt, endsAt string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, title, starts_at, ends_at, is_full_day, is_canceled, location, description
		FROM calendar_events
		WHERE id = ?
	`, id).Scan(&ev.ID, &ev.Title, &startsAt, &endsAt, &ev.IsFullDay, &ev.IsCanceled, &ev.Location, &ev.Description)
	if err != nil {
		return nil, fmt.Errorf("get calendar event: %w", err)
	}

	if ev.StartsAt, err = time.Parse(time.RFC3339, startsAt); err != nil {
		return nil, fmt.Errorf("get calendar event: bad starts_at: %w", err)
	}
	if ev.EndsAt, err = time.Parse(time.RFC3339, endsAt); err != nil {
		return nil, fmt.Errorf("get calendar event: bad ends_at: %w", err)
	}
	return &ev, nil
}
