// ABOUTME: HTTP client for the rune backend REST API
// ABOUTME: Handles auth headers, realm scoping, and typed error mapping

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// RealmHeader carries the active realm on every scoped request.
const RealmHeader = "X-Rune-Realm"

// DefaultTimeout bounds a single backend call when the caller's context
// carries no deadline of its own.
const DefaultTimeout = 30 * time.Second

// Client talks to the rune backend. The zero value is not usable; use
// New. Token and realm are bound with WithToken/WithRealm, which return
// shallow copies so a single base client can serve many sessions.
type Client struct {
	baseURL string
	http    *http.Client
	token   string
	realmID string
	logger  *slog.Logger
}

// New creates a client for the backend at baseURL. A nil httpClient
// falls back to one with DefaultTimeout.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		logger:  slog.Default().With("component", "api"),
	}
}

// WithToken returns a copy of the client that authenticates with the
// given session or personal access token.
func (c *Client) WithToken(token string) *Client {
	cp := *c
	cp.token = token
	return &cp
}

// WithRealm returns a copy of the client scoped to the given realm.
// An empty id clears the scope.
func (c *Client) WithRealm(realmID string) *Client {
	cp := *c
	cp.realmID = realmID
	return &cp
}

// BaseURL returns the backend base URL the client was built with.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// do issues one request. in (when non-nil) is JSON-encoded as the body;
// out (when non-nil) receives the decoded JSON response. Responses with
// no body (204, empty 200) leave out untouched. Any non-2xx status or
// transport failure is returned as *Error.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.realmID != "" {
		req.Header.Set(RealmHeader, c.realmID)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		// Status 0 marks a transport-level failure: DNS, refused
		// connection, timeout.
		return &Error{Status: 0, Message: transportMessage(err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{Status: 0, Message: fmt.Sprintf("reading response: %v", err)}
	}
	if len(data) == 0 {
		return nil
	}

	if !isJSON(resp.Header.Get("Content-Type")) {
		return &Error{
			Status:  resp.StatusCode,
			Message: fmt.Sprintf("unexpected content type %q", resp.Header.Get("Content-Type")),
		}
	}

	if err := json.Unmarshal(data, out); err != nil {
		return &Error{Status: resp.StatusCode, Message: fmt.Sprintf("decoding response: %v", err)}
	}
	return nil
}

// decodeError maps a non-2xx response to *Error, preferring the
// backend's JSON error body when it has one.
func decodeError(resp *http.Response) error {
	apiErr := &Error{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil || len(data) == 0 {
		return apiErr
	}

	if isJSON(resp.Header.Get("Content-Type")) {
		var body struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		if json.Unmarshal(data, &body) == nil {
			switch {
			case body.Error != "":
				apiErr.Message = body.Error
			case body.Message != "":
				apiErr.Message = body.Message
			}
		}
	}
	return apiErr
}

// isJSON reports whether a Content-Type header denotes a JSON body.
func isJSON(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mt == "application/json" || strings.HasSuffix(mt, "+json")
}

// transportMessage trims the noisy url.Error wrapper down to the cause.
func transportMessage(err error) string {
	if ue, ok := err.(*url.Error); ok && ue.Err != nil {
		return ue.Err.Error()
	}
	return err.Error()
}
