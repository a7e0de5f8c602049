// ABOUTME: HTTP handlers binding wizard flows to console routes
// ABOUTME: Maps form submissions to Advance/Retreat and renders step pages

package console

import (
	"net/http"

	"github.com/runeforge/rune-console/internal/wizard"
)

// flowPath returns the base URL for a flow's pages.
func flowPath(f *flow) string {
	if f.kind == flowKindAccount {
		return "/console/accounts/flow/" + f.id
	}
	return "/console/onboarding/" + f.id
}

// handleOnboardingStart creates a new onboarding flow and redirects to
// its first step.
func (c *Console) handleOnboardingStart(w http.ResponseWriter, r *http.Request) {
	if !c.validateCSRF(r) {
		http.Error(w, "Invalid request", http.StatusForbidden)
		return
	}

	session := sessionFromContext(r)
	f := newOnboardingFlow(session.ID, c.client(session), c.notifier(session))
	c.flows.add(f)
	c.flows.sweep()

	c.logger.Info("onboarding flow started", "flow", f.id, "principal", session.PrincipalID)
	http.Redirect(w, r, flowPath(f), http.StatusSeeOther)
}

// handleAccountFlowStart creates a new account creation flow scoped to
// the active realm.
func (c *Console) handleAccountFlowStart(w http.ResponseWriter, r *http.Request) {
	if !c.validateCSRF(r) {
		http.Error(w, "Invalid request", http.StatusForbidden)
		return
	}

	session := sessionFromContext(r)
	sel := c.selector(session)
	if err := sel.Refresh(r.Context()); err != nil {
		http.Error(w, "Failed to load realms", http.StatusBadGateway)
		return
	}
	client, err := sel.Client()
	if err != nil {
		c.toasts.Push(session.ID, ToastError, "Select a realm before creating accounts")
		http.Redirect(w, r, "/console/", http.StatusSeeOther)
		return
	}

	f := newAccountFlow(session.ID, client, c.notifier(session))
	c.flows.add(f)
	c.flows.sweep()

	c.logger.Info("account flow started", "flow", f.id, "realm", sel.Active())
	http.Redirect(w, r, flowPath(f), http.StatusSeeOther)
}

// handleFlowPage renders the current step of a flow.
func (c *Console) handleFlowPage(w http.ResponseWriter, r *http.Request) {
	session := sessionFromContext(r)
	f, ok := c.flows.get(r.PathValue("flow"), session.ID)
	if !ok {
		c.toasts.Push(session.ID, ToastInfo, "That wizard has expired, start again")
		http.Redirect(w, r, "/console/", http.StatusSeeOther)
		return
	}
	if f.isDone() {
		http.Redirect(w, r, "/console/", http.StatusSeeOther)
		return
	}

	r, csrfToken := c.ensureCSRFToken(w, r)
	c.renderFlowPage(w, session, f, c.toasts.Drain(session.ID), csrfToken)
}

// handleFlowAdvance records submitted form fields and moves the flow
// forward. The engine handles busy and stale submissions; we just map
// outcomes to redirects.
func (c *Console) handleFlowAdvance(w http.ResponseWriter, r *http.Request) {
	if !c.validateCSRF(r) {
		http.Error(w, "Invalid request", http.StatusForbidden)
		return
	}

	session := sessionFromContext(r)
	f, ok := c.flows.get(r.PathValue("flow"), session.ID)
	if !ok {
		c.toasts.Push(session.ID, ToastInfo, "That wizard has expired, start again")
		http.Redirect(w, r, "/console/", http.StatusSeeOther)
		return
	}

	if err := r.ParseForm(); err == nil {
		f.setFields(
			r.FormValue("username"),
			r.FormValue("display_name"),
			r.FormValue("realm_name"),
			r.FormValue("role"),
		)
	}

	result := f.wiz.Advance(r.Context())
	switch result.Outcome {
	case wizard.Completed:
		c.flows.remove(f.id)
		// Provisioning may have added a realm; drop the cached list so
		// the dashboard refetches.
		c.selector(session).Invalidate()
		http.Redirect(w, r, "/console/", http.StatusSeeOther)
		return
	case wizard.Busy:
		c.toasts.Push(session.ID, ToastInfo, "Still working, hold on")
	case wizard.Stale:
		// A Back raced the validation; the earlier position wins.
	case wizard.Rejected:
		if result.Err != nil {
			c.logger.Warn("wizard step rejected", "flow", f.id, "error", result.Err)
		}
	}

	http.Redirect(w, r, flowPath(f), http.StatusSeeOther)
}

// handleFlowBack moves the flow one step back.
func (c *Console) handleFlowBack(w http.ResponseWriter, r *http.Request) {
	if !c.validateCSRF(r) {
		http.Error(w, "Invalid request", http.StatusForbidden)
		return
	}

	session := sessionFromContext(r)
	f, ok := c.flows.get(r.PathValue("flow"), session.ID)
	if !ok {
		http.Redirect(w, r, "/console/", http.StatusSeeOther)
		return
	}

	f.wiz.Retreat()
	http.Redirect(w, r, flowPath(f), http.StatusSeeOther)
}
