package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"calhook/internal/models"
)

const requestTimeout = 30 * time.Second

// userAgentTransport adds the client's User-Agent to each request. Bearer
// auth is layered on top by the oauth2 transport.
type userAgentTransport struct {
	Transport http.RoundTripper
}

// RoundTrip implements http.RoundTripper.
func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.Header.Set("User-Agent", "calhook/1.0")
	return t.Transport.RoundTrip(req)
}

// Client talks to a CRM entity graph over its GraphQL endpoint. It
// implements the intake store capability: one people lookup and three
// creation mutations. Transport failures and GraphQL errors are returned
// wrapped but otherwise untranslated.
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	endpoint   string
}

// New creates a CRM client for the workspace at baseURL, authenticating
// every request with apiKey as a bearer token.
func New(logger *slog.Logger, baseURL, apiKey string) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("CRM base URL is required")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("CRM API key is required")
	}

	httpClient := &http.Client{
		Transport: &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: apiKey}),
			Base:   &userAgentTransport{Transport: http.DefaultTransport},
		},
		Timeout: requestTimeout,
	}

	return &Client{
		httpClient: httpClient,
		logger:     logger,
		endpoint:   strings.TrimSuffix(baseURL, "/") + "/graphql",
	}, nil
}

const queryPeopleByEmail = `query PeopleByEmail($email: String!) {
  people(filter: {emails: {primaryEmail: {eq: $email}}}, first: 1) {
    edges {
      node {
        id
        name { firstName lastName }
        emails { primaryEmail }
      }
    }
  }
}`

// FindPersonByEmail returns the person whose primary email equals email, or
// (nil, nil) when the CRM has no such person.
func (c *Client) FindPersonByEmail(ctx context.Context, email string) (*models.Person, error) {
	var resp struct {
		People struct {
			Edges []struct {
				Node struct {
					ID     string            `json:"id"`
					Name   models.PersonName `json:"name"`
					Emails struct {
						PrimaryEmail string `json:"primaryEmail"`
					} `json:"emails"`
				} `json:"node"`
			} `json:"edges"`
		} `json:"people"`
	}

	err := c.do(ctx, queryPeopleByEmail, map[string]interface{}{"email": email}, &resp)
	if err != nil {
		return nil, fmt.Errorf("people query failed: %w", err)
	}
	if len(resp.People.Edges) == 0 {
		return nil, nil
	}

	node := resp.People.Edges[0].Node
	return &models.Person{
		ID:           node.ID,
		Name:         node.Name,
		PrimaryEmail: node.Emails.PrimaryEmail,
	}, nil
}

const mutationCreatePerson = `mutation CreatePerson($data: PersonCreateInput!) {
  createPerson(data: $data) { id }
}`

// CreatePerson creates a person record and returns its identifier.
func (c *Client) CreatePerson(ctx context.Context, name models.PersonName, email string) (string, error) {
	var resp struct {
		CreatePerson struct {
			ID string `json:"id"`
		} `json:"createPerson"`
	}

	data := map[string]interface{}{
		"name": map[string]string{
			"firstName": name.FirstName,
			"lastName":  name.LastName,
		},
		"emails": map[string]string{
			"primaryEmail": email,
		},
	}
	if err := c.do(ctx, mutationCreatePerson, map[string]interface{}{"data": data}, &resp); err != nil {
		return "", fmt.Errorf("createPerson mutation failed: %w", err)
	}
	return resp.CreatePerson.ID, nil
}

const mutationCreateCalendarEvent = `mutation CreateCalendarEvent($data: CalendarEventCreateInput!) {
  createCalendarEvent(data: $data) { id }
}`

// CreateCalendarEvent creates a calendar event record and returns its
// identifier. Timestamps are submitted as RFC 3339 UTC.
func (c *Client) CreateCalendarEvent(ctx context.Context, ev models.CalendarEvent) (string, error) {
	var resp struct {
		CreateCalendarEvent struct {
			ID string `json:"id"`
		} `json:"createCalendarEvent"`
	}

	data := map[string]interface{}{
		"title":       ev.Title,
		"startsAt":    ev.StartsAt.UTC().Format(time.RFC3339),
		"endsAt":      ev.EndsAt.UTC().Format(time.RFC3339),
		"isFullDay":   ev.IsFullDay,
		"isCanceled":  ev.IsCanceled,
		"location":    ev.Location,
		"description": ev.Description,
	}
	if err := c.do(ctx, mutationCreateCalendarEvent, map[string]interface{}{"data": data}, &resp); err != nil {
		return "", fmt.Errorf("createCalendarEvent mutation failed: %w", err)
	}
	return resp.CreateCalendarEvent.ID, nil
}

const mutationCreateParticipant = `mutation CreateCalendarEventParticipant($data: CalendarEventParticipantCreateInput!) {
  createCalendarEventParticipant(data: $data) { id }
}`

// CreateParticipant links a person to a calendar event and returns the
// link's identifier.
func (c *Client) CreateParticipant(ctx context.Context, p models.Participant) (string, error) {
	var resp struct {
		CreateCalendarEventParticipant struct {
			ID string `json:"id"`
		} `json:"createCalendarEventParticipant"`
	}

	data := map[string]interface{}{
		"calendarEventId": p.EventID,
		"personId":        p.PersonID,
		"responseStatus":  string(p.ResponseStatus),
		"isOrganizer":     p.IsOrganizer,
	}
	if err := c.do(ctx, mutationCreateParticipant, map[string]interface{}{"data": data}, &resp); err != nil {
		return "", fmt.Errorf("createCalendarEventParticipant mutation failed: %w", err)
	}
	return resp.CreateCalendarEventParticipant.ID, nil
}

type graphQLRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables,omitempty"`
}

type graphQLError struct {
	Message string `json:"message"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphQLError  `json:"errors,omitempty"`
}

// do executes one GraphQL operation and decodes its data into out.
func (c *Client) do(ctx context.Context, query string, variables map[string]interface{}, out interface{}) error {
	body, err := json.Marshal(graphQLRequest{Query: query, Variables: variables})
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	c.logger.Debug("Sending CRM request.", "endpoint", c.endpoint)
	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return fmt.Errorf("CRM returned status %d: %s", httpResp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var envelope graphQLResponse
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if len(envelope.Errors) > 0 {
		messages := make([]string, 0, len(envelope.Errors))
		for _, gqlErr := range envelope.Errors {
			messages = append(messages, gqlErr.Message)
		}
		return fmt.Errorf("CRM returned errors: %s", strings.Join(messages, "; "))
	}

	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return fmt.Errorf("failed to decode response data: %w", err)
	}
	return nil
}
