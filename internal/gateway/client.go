// Package gateway implements the HTTP client for the spreadsheet-backed
// persistence API. The backend is a single action-dispatched endpoint that
// answers every call with a {success, data, error} envelope; this package owns
// turning those answers, including the malformed ones, into Go errors the rest
// of the app can dispatch on.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// ErrorKind classifies gateway failures.
type ErrorKind int

const (
	// KindTransport covers network failures and non-2xx statuses.
	KindTransport ErrorKind = iota

	// KindPayload covers empty, non-JSON, or HTML response bodies.
	KindPayload

	// KindApplication covers explicit success:false answers; the message
	// is the server-supplied reason, passed through verbatim.
	KindApplication
)

// Error is a classified gateway failure.
type Error struct {
	Kind    ErrorKind
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e.Kind == KindTransport && e.Status != 0 {
		return fmt.Sprintf("gateway: status %d: %s", e.Status, e.Message)
	}
	return "gateway: " + e.Message
}

// IsApplication reports whether err is a server-reported application failure.
func IsApplication(err error) bool {
	var gerr *Error
	return errors.As(err, &gerr) && gerr.Kind == KindApplication
}

// The Apps-Script style backend answers with its login page when the
// deployment is not set to anonymous access. Surfacing that as a generic
// parse error sends operators down the wrong path, so it gets its own
// diagnostic.
const htmlDiagnostic = "gateway returned HTML instead of JSON; check that the " +
	"script deployment allows access to anyone, even anonymous"

// Client talks to the persistence gateway. It is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New constructs a Client for the given endpoint URL.
func New(baseURL string) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("gateway url is required")
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: http.DefaultClient,
	}, nil
}

// NewWithHTTPClient constructs a Client using the provided http.Client.
func NewWithHTTPClient(baseURL string, httpClient *http.Client) (*Client, error) {
	client, err := New(baseURL)
	if err != nil {
		return nil, err
	}
	if httpClient != nil {
		client.httpClient = httpClient
	}
	return client, nil
}

// Get performs a read, dispatched by action name via the query string.
// The returned message is the envelope's data field and may be JSON null.
func (c *Client) Get(ctx context.Context, action string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?action="+action, nil)
	if err != nil {
		return nil, err
	}
	return c.do(req)
}

// Post performs a write, sending {action, payload} as the body. The content
// type is declared as plain text so browser clients sharing this contract
// never trigger a CORS preflight the script backend cannot answer.
func (c *Client) Post(ctx context.Context, action string, payload any) (json.RawMessage, error) {
	body, err := json.Marshal(struct {
		Action  string `json:"action"`
		Payload any    `json:"payload"`
	}{Action: action, Payload: payload})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "text/plain;charset=utf-8")
	return c.do(req)
}

func (c *Client) do(req *http.Request) (json.RawMessage, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &Error{Kind: KindTransport, Message: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Kind: KindTransport, Status: resp.StatusCode, Message: "failed to read response body"}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &Error{
			Kind:    KindTransport,
			Status:  resp.StatusCode,
			Message: strings.TrimSpace(string(body)),
		}
	}

	return decodeEnvelope(body)
}

type envelope struct {
	Success *bool           `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func decodeEnvelope(body []byte) (json.RawMessage, error) {
	text := strings.TrimSpace(string(body))
	if text == "" {
		return nil, &Error{Kind: KindPayload, Message: "gateway returned an empty response"}
	}

	if isHTML(text) {
		return nil, &Error{Kind: KindPayload, Message: htmlDiagnostic}
	}

	var env envelope
	if err := json.Unmarshal([]byte(text), &env); err != nil {
		return nil, &Error{Kind: KindPayload, Message: "gateway response was not valid JSON"}
	}

	// Only an explicit false counts as failure; an absent success field is
	// tolerated and the data field is still extracted.
	if env.Success != nil && !*env.Success {
		message := env.Error
		if message == "" {
			message = "gateway reported an unspecified error"
		}
		return nil, &Error{Kind: KindApplication, Message: message}
	}

	return env.Data, nil
}

func isHTML(text string) bool {
	lower := strings.ToLower(text)
	return strings.HasPrefix(lower, "<!doctype html") || strings.HasPrefix(lower, "<html")
}

// IsNull reports whether the data field is absent or a JSON null literal.
// loginUser signals bad credentials this way rather than with success:false.
func IsNull(data json.RawMessage) bool {
	return len(data) == 0 || strings.TrimSpace(string(data)) == "null"
}
