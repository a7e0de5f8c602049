// ABOUTME: Realm and account operations against the backend
// ABOUTME: Listing realms, creating realms/accounts, operator provisioning

package api

import (
	"context"
	"net/http"
	"time"
)

// Realm is a tenant partition on the backend. Role is the calling
// principal's role within it.
type Realm struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// Account is a backend principal created through the console.
type Account struct {
	ID          string    `json:"id"`
	Username    string    `json:"username"`
	DisplayName string    `json:"display_name"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

// CreateAccountRequest carries the fields for account creation.
type CreateAccountRequest struct {
	Username    string `json:"username"`
	DisplayName string `json:"display_name,omitempty"`
	RealmID     string `json:"realm_id,omitempty"`
	Role        string `json:"role,omitempty"`
}

// ProvisionRequest creates an operator account together with its first
// realm in a single backend transaction. Used by the onboarding flow.
type ProvisionRequest struct {
	Username    string `json:"username"`
	DisplayName string `json:"display_name,omitempty"`
	RealmName   string `json:"realm_name"`
}

// ProvisionResult is the outcome of a ProvisionOperator call.
type ProvisionResult struct {
	Account Account `json:"account"`
	Realm   Realm   `json:"realm"`
	// Token is a freshly minted PAT for the new account, shown once.
	Token string `json:"token"`
}

// ListRealms returns the realms the session may access, with the
// caller's role in each.
func (c *Client) ListRealms(ctx context.Context) ([]Realm, error) {
	var out struct {
		Realms []Realm `json:"realms"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/realms", nil, &out); err != nil {
		return nil, err
	}
	return out.Realms, nil
}

// CreateRealm creates a new realm with the given name.
func (c *Client) CreateRealm(ctx context.Context, name string) (*Realm, error) {
	req := struct {
		Name string `json:"name"`
	}{Name: name}

	var realm Realm
	if err := c.do(ctx, http.MethodPost, "/v1/realms", req, &realm); err != nil {
		return nil, err
	}
	return &realm, nil
}

// CreateAccount creates a backend account, optionally bound to a realm
// with a role.
func (c *Client) CreateAccount(ctx context.Context, req CreateAccountRequest) (*Account, error) {
	var account Account
	if err := c.do(ctx, http.MethodPost, "/v1/accounts", req, &account); err != nil {
		return nil, err
	}
	return &account, nil
}

// ListAccounts returns the accounts visible in the bound realm.
func (c *Client) ListAccounts(ctx context.Context) ([]Account, error) {
	var out struct {
		Accounts []Account `json:"accounts"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/accounts", nil, &out); err != nil {
		return nil, err
	}
	return out.Accounts, nil
}

// ProvisionOperator performs the onboarding commit: account plus first
// realm in one call. The backend makes this atomic; repeating it with
// the same username is a 409.
func (c *Client) ProvisionOperator(ctx context.Context, req ProvisionRequest) (*ProvisionResult, error) {
	var result ProvisionResult
	if err := c.do(ctx, http.MethodPost, "/v1/provision", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
