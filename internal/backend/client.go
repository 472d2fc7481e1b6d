package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"velora/internal/config"
	"velora/internal/models"

	"github.com/rs/zerolog"
)

type actorTokenKey struct{}

// WithActorToken attaches the caller's identity token to the context. When
// absent the booking is made anonymously.
func WithActorToken(ctx context.Context, token string) context.Context {
	token = strings.TrimSpace(token)
	if token == "" {
		return ctx
	}
	return context.WithValue(ctx, actorTokenKey{}, token)
}

func actorTokenFrom(ctx context.Context) string {
	token, _ := ctx.Value(actorTokenKey{}).(string)
	return token
}

// Client talks to the hosted data backend over its generic CRUD REST
// surface (select/insert/update with order and filter parameters).
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	logger  *zerolog.Logger
}

func New(cfg config.BackendConfig, logger *zerolog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.URL, "/"),
		apiKey:  cfg.APIKey,
		http: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
		logger: logger,
	}
}

func (c *Client) ListCategories(ctx context.Context) ([]models.ServiceCategory, error) {
	var out []models.ServiceCategory
	if err := c.do(ctx, "list_categories", http.MethodGet,
		"/rest/v1/service_categories?select=*&order=name", nil, &out, nil); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ListServices(ctx context.Context, categoryID string) ([]models.Service, error) {
	path := fmt.Sprintf("/rest/v1/services?select=*&category_id=eq.%s&order=name", url.QueryEscape(categoryID))
	var out []models.Service
	if err := c.do(ctx, "list_services", http.MethodGet, path, nil, &out, nil); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetService(ctx context.Context, id string) (*models.Service, error) {
	path := fmt.Sprintf("/rest/v1/services?select=*&id=eq.%s&limit=1", url.QueryEscape(id))
	var out []models.Service
	if err := c.do(ctx, "get_service", http.MethodGet, path, nil, &out, nil); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, ErrNotFound
	}
	return &out[0], nil
}

// CreateBooking inserts the primary record. The backend assigns id, order
// number and the initial pending status.
func (c *Client) CreateBooking(ctx context.Context, record models.BookingRecord) (*models.Booking, error) {
	created, err := c.insertBookings(ctx, "create_booking", []models.BookingRecord{record})
	if err != nil {
		return nil, err
	}
	if len(created) == 0 {
		return nil, &Error{Op: "create_booking", Message: "insert returned no rows"}
	}
	return &created[0], nil
}

// CreateBookings batch-inserts secondary records. Any reported error is a
// total failure; partial results are never returned.
func (c *Client) CreateBookings(ctx context.Context, records []models.BookingRecord) ([]models.Booking, error) {
	return c.insertBookings(ctx, "create_bookings", records)
}

func (c *Client) insertBookings(ctx context.Context, op string, records []models.BookingRecord) ([]models.Booking, error) {
	headers := map[string]string{"Prefer": "return=representation"}
	var out []models.Booking
	if err := c.do(ctx, op, http.MethodPost, "/rest/v1/bookings", records, &out, headers); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) UpdateBookingStatus(ctx context.Context, id string, status string) error {
	path := fmt.Sprintf("/rest/v1/bookings?id=eq.%s", url.QueryEscape(id))
	body := map[string]string{"status": status}
	headers := map[string]string{"Prefer": "return=minimal"}
	return c.do(ctx, "update_booking_status", http.MethodPatch, path, body, nil, headers)
}

// ListBookings returns all bookings joined with a service summary, newest
// appointment first.
func (c *Client) ListBookings(ctx context.Context) ([]models.Booking, error) {
	path := "/rest/v1/bookings?select=*,services(name,price,duration)" +
		"&order=booking_date.desc,booking_time.desc"
	var out []models.Booking
	if err := c.do(ctx, "list_bookings", http.MethodGet, path, nil, &out, nil); err != nil {
		return nil, err
	}
	return out, nil
}

// CurrentActorID resolves the authenticated actor, if any. An absent or
// rejected token means an anonymous booking, not an error.
func (c *Client) CurrentActorID(ctx context.Context) (string, error) {
	token := actorTokenFrom(ctx)
	if token == "" {
		return "", nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/auth/v1/user", nil)
	if err != nil {
		return "", &Error{Op: "current_actor", Message: err.Error()}
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", &Error{Op: "current_actor", Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		c.logger.Debug().Int("status", resp.StatusCode).Msg("actor token rejected, booking anonymously")
		return "", nil
	}
	if resp.StatusCode >= 400 {
		return "", c.asError("current_actor", resp)
	}

	var user struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return "", &Error{Op: "current_actor", Message: fmt.Sprintf("decode response: %v", err)}
	}
	return user.ID, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, body, out any, headers map[string]string) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return &Error{Op: op, Message: fmt.Sprintf("encode request: %v", err)}
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return &Error{Op: op, Message: err.Error()}
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error().Err(err).Str("op", op).Msg("backend request failed")
		return &Error{Op: op, Message: err.Error()}
	}
	defer resp.Body.Close()

	c.logger.Debug().
		Str("op", op).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("backend request")

	if resp.StatusCode >= 400 {
		return c.asError(op, resp)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return &Error{Op: op, Message: fmt.Sprintf("decode response: %v", err)}
		}
	}
	return nil
}

func (c *Client) asError(op string, resp *http.Response) error {
	var payload struct {
		Message string `json:"message"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err := json.Unmarshal(raw, &payload); err != nil || payload.Message == "" {
		payload.Message = strings.TrimSpace(string(raw))
	}
	if payload.Message == "" {
		payload.Message = http.StatusText(resp.StatusCode)
	}
	return &Error{Op: op, StatusCode: resp.StatusCode, Message: payload.Message}
}
