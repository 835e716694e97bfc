package boatsync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"github.com/uyirkavalan/uyirkavalan/internal/api/models"
	"github.com/uyirkavalan/uyirkavalan/internal/provider/resilience"
)

// ProviderName identifies the API client in the resilience registry.
const ProviderName = "uyirkavalan-api"

// ClientConfig holds configuration for the API client.
type ClientConfig struct {
	// BaseURL is the API root, e.g. https://api.uyirkavalan.in (required).
	BaseURL string

	// Token is the boat's bearer token (required).
	Token string

	// HTTPClient is the HTTP client to use (optional).
	HTTPClient *resilience.Client

	Logger zerolog.Logger
}

// Client talks to the Uyir Kavalan API on behalf of one boat.
type Client struct {
	baseURL    string
	token      string
	httpClient *resilience.Client
	logger     zerolog.Logger
}

// NewClient creates an API client.
func NewClient(cfg ClientConfig) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = resilience.NewClient(resilience.DefaultClientConfig(ProviderName))
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		token:      cfg.Token,
		httpClient: httpClient,
		logger:     cfg.Logger,
	}
}

// FetchBackup returns the boat's offline message queue, oldest first.
func (c *Client) FetchBackup(ctx context.Context, boat string) ([]Message, error) {
	var list models.ChatBackupList
	if err := c.call(ctx, http.MethodGet, "/v1/chat/boats/"+url.PathEscape(boat)+"/backup", &list); err != nil {
		return nil, fmt.Errorf("fetch backup: %w", err)
	}

	out := make([]Message, 0, len(list.Items))
	for _, e := range list.Items {
		out = append(out, Message{
			ID:              e.ID,
			ThreadID:        e.ThreadID,
			FromBoat:        e.FromBoatID,
			ToBoat:          e.ToBoatID,
			Body:            e.Message,
			Kind:            e.MessageType,
			SentAt:          e.Timestamp.Time(),
			BackedUpAt:      e.BackedUpAt.Time(),
			TransportStatus: e.TransportStatus,
		})
	}
	return out, nil
}

// AckBackup removes the named messages from the boat's queue on the server
// and returns how many entries were removed.
func (c *Client) AckBackup(ctx context.Context, boat string, messageIDs []string) (int, error) {
	body, err := json.Marshal(models.ChatBackupAckRequest{MessageIDs: messageIDs})
	if err != nil {
		return 0, fmt.Errorf("encoding ack: %w", err)
	}

	var acked models.ChatBackupAcked
	if err := c.send(ctx, http.MethodPost, "/v1/chat/boats/"+url.PathEscape(boat)+"/backup/ack", body, &acked); err != nil {
		return 0, fmt.Errorf("ack backup: %w", err)
	}
	return acked.Acked, nil
}

// FetchInbox returns the boat's active alert inbox.
func (c *Client) FetchInbox(ctx context.Context, boat string) ([]InboxEntry, error) {
	var list models.InboxList
	if err := c.call(ctx, http.MethodGet, "/v1/alerts/boats/"+url.PathEscape(boat), &list); err != nil {
		return nil, fmt.Errorf("fetch inbox: %w", err)
	}

	out := make([]InboxEntry, 0, len(list.Items))
	for _, e := range list.Items {
		entry := InboxEntry{
			ID:           e.ID,
			Kind:         e.Kind,
			SourceID:     e.SourceID,
			Title:        e.Title,
			Body:         e.Body,
			Severity:     e.Severity,
			VoiceText:    e.VoiceText,
			VoiceURL:     e.VoiceURL,
			Active:       e.IsActive,
			Acknowledged: e.IsAcknowledged,
			ReceivedAt:   e.ReceivedAt.Time(),
		}
		if e.Location != nil {
			lat, lon := e.Location.Lat, e.Location.Lon
			entry.Lat, entry.Lon = &lat, &lon
		}
		out = append(out, entry)
	}
	return out, nil
}

// StatusError is a non-2xx answer from the API.
type StatusError struct {
	StatusCode int
	Detail     string
}

func (e *StatusError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("api returned %d: %s", e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("api returned %d", e.StatusCode)
}

func (c *Client) call(ctx context.Context, method, path string, out any) error {
	return c.send(ctx, method, path, nil, out)
}

func (c *Client) send(ctx context.Context, method, path string, body []byte, out any) error {
	var reqBody io.Reader = http.NoBody
	if body != nil {
		reqBody = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	c.logger.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Msg("api call")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var problem models.Problem
		_ = json.NewDecoder(resp.Body).Decode(&problem) //nolint:errcheck // detail is best-effort
		return &StatusError{StatusCode: resp.StatusCode, Detail: problem.Detail}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
