// ABOUTME: Server-side wizard flows: onboarding and account creation
// ABOUTME: Holds flow state in a uuid-keyed registry with TTL expiry

package console

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/runeforge/rune-console/internal/api"
	"github.com/runeforge/rune-console/internal/wizard"
)

// Flow kinds.
const (
	flowKindOnboarding = "onboarding"
	flowKindAccount    = "account"
)

// flowTTL is how long an abandoned flow survives before the registry
// drops it.
const flowTTL = time.Hour

// minUsernameLen is the cheapest gate in the account flows: usernames
// shorter than this never reach the backend.
const minUsernameLen = 2

// flow is one in-progress wizard instance bound to a console session.
type flow struct {
	id        string
	kind      string
	sessionID string
	wiz       *wizard.Wizard
	createdAt time.Time

	mu   sync.Mutex
	done bool

	// onboarding fields
	username    string
	displayName string
	realmName   string
	provisioned *api.ProvisionResult

	// account fields
	role    string
	created *api.Account
}

func (f *flow) markDone() {
	f.mu.Lock()
	f.done = true
	f.mu.Unlock()
}

func (f *flow) isDone() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.done
}

// flowRegistry tracks live flows. Flows are bound to the session that
// created them; other sessions cannot see or drive them.
type flowRegistry struct {
	mu    sync.Mutex
	flows map[string]*flow
}

func newFlowRegistry() *flowRegistry {
	return &flowRegistry{flows: make(map[string]*flow)}
}

func (r *flowRegistry) add(f *flow) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.flows[f.id] = f
}

func (r *flowRegistry) get(id, sessionID string) (*flow, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.flows[id]
	if !ok || f.sessionID != sessionID {
		return nil, false
	}
	if time.Since(f.createdAt) > flowTTL {
		delete(r.flows, id)
		return nil, false
	}
	return f, true
}

func (r *flowRegistry) remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.flows, id)
}

// sweep drops expired flows. Called opportunistically on flow creation;
// the registry is small enough not to need its own goroutine.
func (r *flowRegistry) sweep() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, f := range r.flows {
		if time.Since(f.createdAt) > flowTTL {
			delete(r.flows, id)
		}
	}
}

// newOnboardingFlow builds the four-step operator onboarding wizard.
// The provision commit runs when leaving the review step and is gated
// on the cached result, so a repeated Advance cannot double-provision.
func newOnboardingFlow(sessionID string, client *api.Client, notify Notifier) *flow {
	f := &flow{
		id:        uuid.New().String(),
		kind:      flowKindOnboarding,
		sessionID: sessionID,
		createdAt: time.Now(),
	}

	steps := []wizard.Step{
		{Title: "Welcome", Content: "welcome"},
		{Title: "Operator details", Content: "details"},
		{Title: "Provision", Content: "provision"},
		{Title: "Finish", Content: "finish"},
	}

	validate := func(ctx context.Context, index int) (bool, error) {
		switch index {
		case 1:
			return f.validateDetails(notify)
		case 2:
			return f.commitProvision(ctx, client, notify)
		default:
			return true, nil
		}
	}

	wiz, err := wizard.New(steps, f.markDone,
		wizard.WithValidate(validate),
		wizard.WithLabels("Next", "Back", "Finish"))
	if err != nil {
		// Step list is static and non-empty; this cannot happen.
		panic(err)
	}
	f.wiz = wiz
	return f
}

// validateDetails gates the details step. Failures toast and block.
func (f *flow) validateDetails(notify Notifier) (bool, error) {
	f.mu.Lock()
	username, realmName := f.username, f.realmName
	f.mu.Unlock()

	if len(username) < minUsernameLen {
		notify.Notify(ToastError, fmt.Sprintf("Username must be at least %d characters", minUsernameLen))
		return false, nil
	}
	if f.kind == flowKindOnboarding && strings.TrimSpace(realmName) == "" {
		notify.Notify(ToastError, "Realm name is required")
		return false, nil
	}
	return true, nil
}

// commitProvision performs the onboarding side effect exactly once.
// The cached result, not the button state, is the idempotence guard.
func (f *flow) commitProvision(ctx context.Context, client *api.Client, notify Notifier) (bool, error) {
	f.mu.Lock()
	already := f.provisioned != nil
	req := api.ProvisionRequest{
		Username:    f.username,
		DisplayName: f.displayName,
		RealmName:   f.realmName,
	}
	f.mu.Unlock()

	if already {
		return true, nil
	}

	result, err := client.ProvisionOperator(ctx, req)
	if err != nil {
		notify.Notify(ToastError, "Provisioning failed: "+errMessage(err))
		return false, err
	}

	f.mu.Lock()
	f.provisioned = result
	f.mu.Unlock()
	notify.Notify(ToastSuccess, fmt.Sprintf("Provisioned %s with realm %s", result.Account.Username, result.Realm.Name))
	return true, nil
}

// newAccountFlow builds the two-step account creation wizard. The
// username length gate runs before any backend call; the create commit
// runs when confirming the final step.
func newAccountFlow(sessionID string, client *api.Client, notify Notifier) *flow {
	f := &flow{
		id:        uuid.New().String(),
		kind:      flowKindAccount,
		sessionID: sessionID,
		createdAt: time.Now(),
	}

	steps := []wizard.Step{
		{Title: "Account details", Content: "details"},
		{Title: "Confirm", Content: "confirm"},
	}

	validate := func(ctx context.Context, index int) (bool, error) {
		switch index {
		case 0:
			return f.validateDetails(notify)
		case 1:
			return f.commitAccount(ctx, client, notify)
		default:
			return true, nil
		}
	}

	wiz, err := wizard.New(steps, f.markDone,
		wizard.WithValidate(validate),
		wizard.WithLabels("Next", "Back", "Create account"))
	if err != nil {
		panic(err)
	}
	f.wiz = wiz
	return f
}

// commitAccount creates the account exactly once, mirroring the
// provisioning guard.
func (f *flow) commitAccount(ctx context.Context, client *api.Client, notify Notifier) (bool, error) {
	f.mu.Lock()
	already := f.created != nil
	req := api.CreateAccountRequest{
		Username:    f.username,
		DisplayName: f.displayName,
		Role:        f.role,
	}
	f.mu.Unlock()

	if already {
		return true, nil
	}

	account, err := client.CreateAccount(ctx, req)
	if err != nil {
		notify.Notify(ToastError, "Account creation failed: "+errMessage(err))
		return false, err
	}

	f.mu.Lock()
	f.created = account
	f.mu.Unlock()
	notify.Notify(ToastSuccess, "Created account "+account.Username)
	return true, nil
}

// setFields updates the flow's form data from a submitted step. Empty
// submissions leave prior values so Back/Next round trips keep state.
func (f *flow) setFields(username, displayName, realmName, role string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if username != "" {
		f.username = username
	}
	if displayName != "" {
		f.displayName = displayName
	}
	if realmName != "" {
		f.realmName = realmName
	}
	if role != "" {
		f.role = role
	}
}

// errMessage extracts a display message from an API error.
func errMessage(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return err.Error()
}
