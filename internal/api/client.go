// Package api implements the HTTP client for the booking backend.
// Every response arrives wrapped in the backend's envelope
// {statusCode, message, data}; the transport status is usually 200
// even for business failures, so callers branch on the envelope's
// statusCode rather than the HTTP one.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ajasta/booking-client/internal/model"
)

// Envelope is the backend's uniform response wrapper.
type Envelope struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
}

// OK reports whether the backend accepted the request.
func (e *Envelope) OK() bool { return e.StatusCode == http.StatusOK }

// Slot is one booked interval on a unit, as the backend expects it.
type Slot struct {
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
	Unit      int    `json:"unit"`
}

// Day groups the slots booked on one date.
type Day struct {
	Date  string `json:"date"`
	Slots []Slot `json:"slots"`
}

// Profile is the subset of the user profile this client needs.
type Profile struct {
	Email string `json:"email"`
}

// Client talks to the booking backend.  The token source supplies the
// current bearer token ("" when unauthenticated); each request gets a
// fresh X-Request-ID for correlation with backend logs.
type Client struct {
	base  string
	http  *http.Client
	token func() string
}

// New builds a client for the given base URL.
func New(base string, token func() string) *Client {
	if token == nil {
		token = func() string { return "" }
	}
	return &Client{
		base:  strings.TrimRight(base, "/"),
		http:  &http.Client{Timeout: 15 * time.Second},
		token: token,
	}
}

// GetResource fetches a resource by id.  A non-200 envelope becomes an
// error carrying the backend's message.
func (c *Client) GetResource(ctx context.Context, id uint64) (*model.Resource, error) {
	var out struct {
		Envelope
		Data model.Resource `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/resources/%d", id), nil, &out); err != nil {
		return nil, err
	}
	if !out.OK() {
		return nil, fmt.Errorf("get resource %d: %s", id, messageOr(out.Message, "failed to load resource"))
	}
	return &out.Data, nil
}

// BookBatch books several slots on a single date.
func (c *Client) BookBatch(ctx context.Context, resourceID uint64, day Day) (*Envelope, error) {
	var out Envelope
	path := fmt.Sprintf("/resources/%d/book-batch", resourceID)
	if err := c.do(ctx, http.MethodPost, path, day, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// BookMulti books slots spanning several dates in one request.
func (c *Client) BookMulti(ctx context.Context, resourceID uint64, days []Day) (*Envelope, error) {
	var out Envelope
	body := struct {
		Days []Day `json:"days"`
	}{Days: days}
	path := fmt.Sprintf("/resources/%d/book-multi", resourceID)
	if err := c.do(ctx, http.MethodPost, path, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SavedEmails lists the caller's remembered participant emails.
func (c *Client) SavedEmails(ctx context.Context) ([]string, error) {
	var out struct {
		Envelope
		Data []string `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/saved-emails", nil, &out); err != nil {
		return nil, err
	}
	if !out.OK() {
		return nil, fmt.Errorf("saved emails: %s", messageOr(out.Message, "request failed"))
	}
	return out.Data, nil
}

// AddSavedEmail remembers a participant email for future bookings.
func (c *Client) AddSavedEmail(ctx context.Context, email string) error {
	var out Envelope
	body := struct {
		Email string `json:"email"`
	}{Email: email}
	if err := c.do(ctx, http.MethodPost, "/saved-emails", body, &out); err != nil {
		return err
	}
	if !out.OK() {
		return fmt.Errorf("add saved email: %s", messageOr(out.Message, "request failed"))
	}
	return nil
}

// MyProfile fetches the caller's profile.
func (c *Client) MyProfile(ctx context.Context) (*Profile, error) {
	var out struct {
		Envelope
		Data Profile `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/my-profile", nil, &out); err != nil {
		return nil, err
	}
	if !out.OK() {
		return nil, fmt.Errorf("my profile: %s", messageOr(out.Message, "request failed"))
	}
	return &out.Data, nil
}

// do executes one request and decodes the JSON response into out.
// When the HTTP status is an error and the body still decodes into an
// envelope, the envelope wins so the backend's message reaches the
// user; otherwise the status line itself becomes the error.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if tok := c.token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	dec := json.NewDecoder(resp.Body)
	if err := dec.Decode(out); err != nil {
		if resp.StatusCode >= 400 {
			return fmt.Errorf("%s %s: %s", method, path, resp.Status)
		}
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func messageOr(msg, fallback string) string {
	if msg != "" {
		return msg
	}
	return fallback
}
