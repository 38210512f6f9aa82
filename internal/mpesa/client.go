// Package mpesa initiates Lipa Na M-Pesa Online (STK push) payments against the Safaricom Daraja API.
package mpesa

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

const (
	EnvironmentSandbox = "sandbox"

	sandboxBaseURL    = "https://sandbox.safaricom.co.ke"
	productionBaseURL = "https://api.safaricom.co.ke"

	tokenPath = "/oauth/v1/generate?grant_type=client_credentials"
	pushPath  = "/mpesa/stkpush/v1/processrequest"

	timestampLayout    = "20060102150405"
	transactionType    = "CustomerPayBillOnline"
	defaultDescription = "Payment"

	tokenTimeout = 10 * time.Second
	pushTimeout  = 15 * time.Second
)

var (
	// ErrNotConfigured is returned before any network call when credentials are missing.
	ErrNotConfigured = errors.New("mpesa: credentials are not configured")
	// ErrProvider marks a failed or unusable response from the payment provider.
	ErrProvider = errors.New("mpesa: provider request failed")
	// ErrInvalidRequest marks a push request missing required values.
	ErrInvalidRequest = errors.New("mpesa: invalid push request")
)

// Config holds client configuration. BaseURL overrides the environment-derived endpoint.
type Config struct {
	Environment    string
	ConsumerKey    string
	ConsumerSecret string
	ShortCode      string
	PassKey        string
	BaseURL        string
	HTTPClient     *http.Client
	Clock          func() time.Time
}

// Client talks to the Daraja OAuth and STK push endpoints.
type Client struct {
	baseURL        string
	consumerKey    string
	consumerSecret string
	shortCode      string
	passKey        string
	httpClient     *http.Client
	clock          func() time.Time
}

// NewClient creates a client. Missing credentials are reported per call as ErrNotConfigured.
func NewClient(cfg Config) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = productionBaseURL
		if cfg.Environment == "" || cfg.Environment == EnvironmentSandbox {
			baseURL = sandboxBaseURL
		}
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Client{
		baseURL:        baseURL,
		consumerKey:    cfg.ConsumerKey,
		consumerSecret: cfg.ConsumerSecret,
		shortCode:      cfg.ShortCode,
		passKey:        cfg.PassKey,
		httpClient:     httpClient,
		clock:          clock,
	}
}

// Configured reports whether all credentials are present.
func (c *Client) Configured() bool {
	return c.consumerKey != "" && c.consumerSecret != "" && c.shortCode != "" && c.passKey != ""
}

// BaseURL returns the endpoint the client targets.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// STKPushRequest describes a customer payment prompt.
type STKPushRequest struct {
	Phone            string
	Amount           int64
	AccountReference string
	CallbackURL      string
	Description      string
}

type stkPushPayload struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	TransactionType   string `json:"TransactionType"`
	Amount            int64  `json:"Amount"`
	PartyA            string `json:"PartyA"`
	PartyB            string `json:"PartyB"`
	PhoneNumber       string `json:"PhoneNumber"`
	CallBackURL       string `json:"CallBackURL"`
	AccountReference  string `json:"AccountReference"`
	TransactionDesc   string `json:"TransactionDesc"`
}

// Timestamp formats moment the way the provider expects (YYYYMMDDHHMMSS, UTC).
func Timestamp(moment time.Time) string {
	return moment.UTC().Format(timestampLayout)
}

// Password derives the request password: base64(shortcode + passkey + timestamp).
func Password(shortCode, passKey, timestamp string) string {
	return base64.StdEncoding.EncodeToString([]byte(shortCode + passKey + timestamp))
}

// AccessToken obtains an OAuth bearer token using the consumer credentials.
func (c *Client) AccessToken(ctx context.Context) (string, error) {
	if !c.Configured() {
		return "", ErrNotConfigured
	}

	ctx, cancel := context.WithTimeout(ctx, tokenTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+tokenPath, nil)
	if err != nil {
		return "", fmt.Errorf("create token request: %w", err)
	}
	httpReq.SetBasicAuth(c.consumerKey, c.consumerSecret)

	respBody, err := c.do(httpReq)
	if err != nil {
		return "", err
	}

	token := gjson.GetBytes(respBody, "access_token")
	if !token.Exists() || token.String() == "" {
		return "", fmt.Errorf("%w: access_token missing from token response", ErrProvider)
	}
	return token.String(), nil
}

// STKPush fetches a token and submits the payment prompt, returning the provider's JSON response.
func (c *Client) STKPush(ctx context.Context, req STKPushRequest) (json.RawMessage, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}
	if req.Phone == "" || req.AccountReference == "" || req.CallbackURL == "" || req.Amount <= 0 {
		return nil, ErrInvalidRequest
	}

	token, err := c.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	timestamp := Timestamp(c.clock())
	description := req.Description
	if description == "" {
		description = defaultDescription
	}
	payload := stkPushPayload{
		BusinessShortCode: c.shortCode,
		Password:          Password(c.shortCode, c.passKey, timestamp),
		Timestamp:         timestamp,
		TransactionType:   transactionType,
		Amount:            req.Amount,
		PartyA:            req.Phone,
		PartyB:            c.shortCode,
		PhoneNumber:       req.Phone,
		CallBackURL:       req.CallbackURL,
		AccountReference:  req.AccountReference,
		TransactionDesc:   description,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal push request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, pushTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+pushPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create push request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("Content-Type", "application/json")

	respBody, err := c.do(httpReq)
	if err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(respBody) {
		return nil, fmt.Errorf("%w: push response is not valid JSON", ErrProvider)
	}
	return json.RawMessage(respBody), nil
}

func (c *Client) do(httpReq *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: send request: %v", ErrProvider, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrProvider, err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}
	return respBody, nil
}

// StatusError reports a non-success HTTP status from the provider.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("mpesa: provider returned %d: %s", e.StatusCode, e.Body)
}

// Is lets callers match any status failure with ErrProvider.
func (e *StatusError) Is(target error) bool {
	return target == ErrProvider
}
