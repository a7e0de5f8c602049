// ABOUTME: Rune CRUD and state-transition operations against the backend
// ABOUTME: All rune calls are realm-scoped via the realm header

package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Rune states as the backend defines them. The state machine itself is
// backend-owned; the console only names the states for display and for
// requesting transitions.
const (
	RuneStateOpen     = "open"
	RuneStateTriaged  = "triaged"
	RuneStateWorking  = "working"
	RuneStateResolved = "resolved"
	RuneStateClosed   = "closed"
)

// RuneStates lists all states in display order.
var RuneStates = []string{
	RuneStateOpen, RuneStateTriaged, RuneStateWorking, RuneStateResolved, RuneStateClosed,
}

// Rune is a tracked issue within a realm. Description is markdown.
type Rune struct {
	ID          string    `json:"id"`
	RealmID     string    `json:"realm_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	State       string    `json:"state"`
	Severity    string    `json:"severity"`
	Assignee    string    `json:"assignee"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// RuneFilter narrows ListRunes. Zero values mean no constraint.
type RuneFilter struct {
	State    string
	Assignee string
	Limit    int
}

// CreateRuneRequest carries the fields for rune creation.
type CreateRuneRequest struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Severity    string `json:"severity,omitempty"`
}

// UpdateRuneRequest carries the mutable rune fields. Nil fields are
// left unchanged by the backend.
type UpdateRuneRequest struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Severity    *string `json:"severity,omitempty"`
	Assignee    *string `json:"assignee,omitempty"`
}

// ListRunes returns runes in the bound realm matching the filter.
func (c *Client) ListRunes(ctx context.Context, filter RuneFilter) ([]Rune, error) {
	q := url.Values{}
	if filter.State != "" {
		q.Set("state", filter.State)
	}
	if filter.Assignee != "" {
		q.Set("assignee", filter.Assignee)
	}
	if filter.Limit > 0 {
		q.Set("limit", fmt.Sprintf("%d", filter.Limit))
	}
	path := "/v1/runes"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var out struct {
		Runes []Rune `json:"runes"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Runes, nil
}

// GetRune returns a single rune by id.
func (c *Client) GetRune(ctx context.Context, id string) (*Rune, error) {
	var rune_ Rune
	if err := c.do(ctx, http.MethodGet, "/v1/runes/"+url.PathEscape(id), nil, &rune_); err != nil {
		return nil, err
	}
	return &rune_, nil
}

// CreateRune creates a rune in the bound realm.
func (c *Client) CreateRune(ctx context.Context, req CreateRuneRequest) (*Rune, error) {
	var rune_ Rune
	if err := c.do(ctx, http.MethodPost, "/v1/runes", req, &rune_); err != nil {
		return nil, err
	}
	return &rune_, nil
}

// UpdateRune patches the mutable fields of a rune.
func (c *Client) UpdateRune(ctx context.Context, id string, req UpdateRuneRequest) (*Rune, error) {
	var rune_ Rune
	if err := c.do(ctx, http.MethodPatch, "/v1/runes/"+url.PathEscape(id), req, &rune_); err != nil {
		return nil, err
	}
	return &rune_, nil
}

// TransitionRune asks the backend to move a rune to the given state.
// Illegal transitions come back as 409.
func (c *Client) TransitionRune(ctx context.Context, id, state string) (*Rune, error) {
	req := struct {
		State string `json:"state"`
	}{State: state}

	var rune_ Rune
	if err := c.do(ctx, http.MethodPost, "/v1/runes/"+url.PathEscape(id)+"/transition", req, &rune_); err != nil {
		return nil, err
	}
	return &rune_, nil
}

// DeleteRune removes a rune. The backend returns 204 on success.
func (c *Client) DeleteRune(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/v1/runes/"+url.PathEscape(id), nil, nil)
}
