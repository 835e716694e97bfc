// Package twilio sends SMS through the Twilio REST API.
package twilio

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"github.com/uyirkavalan/uyirkavalan/internal/notify"
	"github.com/uyirkavalan/uyirkavalan/internal/provider/resilience"
)

const (
	// ProviderName identifies this SMS provider.
	ProviderName = "twilio"

	// DefaultBaseURL is the Twilio REST API base URL.
	DefaultBaseURL = "https://api.twilio.com/2010-04-01"
)

// ClientConfig holds configuration for the Twilio client.
type ClientConfig struct {
	AccountSID string
	AuthToken  string
	FromNumber string

	// BaseURL is the API base URL (optional, defaults to Twilio).
	BaseURL string

	// HTTPClient is the HTTP client to use (optional).
	// If nil, uses a resilient client with defaults.
	HTTPClient *resilience.Client

	Logger zerolog.Logger
}

// Client is a Twilio SMS client.
type Client struct {
	accountSID string
	authToken  string
	fromNumber string
	baseURL    string
	httpClient *resilience.Client
	logger     zerolog.Logger
}

// NewClient creates a new Twilio client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = resilience.NewClient(resilience.DefaultClientConfig(ProviderName))
	}

	return &Client{
		accountSID: cfg.AccountSID,
		authToken:  cfg.AuthToken,
		fromNumber: cfg.FromNumber,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		logger:     cfg.Logger,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// SendSMS sends body to the given number and returns the Twilio message SID.
func (c *Client) SendSMS(ctx context.Context, to, body string) (string, error) {
	if to == "" {
		return "", notify.ErrInvalidRecipient
	}

	form := url.Values{}
	form.Set("To", to)
	form.Set("From", c.fromNumber)
	form.Set("Body", body)

	endpoint := fmt.Sprintf("%s/Accounts/%s/Messages.json", c.baseURL, c.accountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.SetBasicAuth(c.accountSID, c.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	var msgResp messageResponse
	if err := json.NewDecoder(resp.Body).Decode(&msgResp); err != nil {
		return "", fmt.Errorf("decoding response (status %d): %w", resp.StatusCode, err)
	}

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return "", &APIError{StatusCode: resp.StatusCode, Code: msgResp.Code, Message: msgResp.Message}
	}

	c.logger.Debug().Str("to", to).Str("sid", msgResp.SID).Msg("sms sent")
	return msgResp.SID, nil
}

// APIError is an error reported by the Twilio API.
type APIError struct {
	StatusCode int
	Code       int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("twilio: status %d code %d: %s", e.StatusCode, e.Code, e.Message)
}

// messageResponse covers both the success and error payloads.
type messageResponse struct {
	SID     string `json:"sid"`
	Status  string `json:"status"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

var _ notify.SMSSender = (*Client)(nil)
