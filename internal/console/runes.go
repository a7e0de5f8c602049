// ABOUTME: Console handlers for rune browsing and lifecycle actions
// ABOUTME: Renders rune lists, markdown detail pages, and transition forms

package console

import (
	"bytes"
	"html/template"
	"net/http"
	"strings"

	"github.com/yuin/goldmark"
	gmhtml "github.com/yuin/goldmark/renderer/html"

	"github.com/runeforge/rune-console/internal/api"
)

// runeMarkdown renders rune descriptions. Raw HTML in descriptions is
// escaped, not passed through.
var runeMarkdown = goldmark.New(
	goldmark.WithRendererOptions(gmhtml.WithHardWraps()),
)

// renderDescription converts a rune's markdown description to HTML.
func renderDescription(md string) template.HTML {
	if strings.TrimSpace(md) == "" {
		return ""
	}
	var buf bytes.Buffer
	if err := runeMarkdown.Convert([]byte(md), &buf); err != nil {
		// Fall back to escaped plain text on conversion failure.
		return template.HTML(template.HTMLEscapeString(md))
	}
	return template.HTML(buf.String())
}

// realmClient resolves the realm-scoped client for a request, or
// redirects to the dashboard with a toast when no realm is active.
func (c *Console) realmClient(w http.ResponseWriter, r *http.Request) (*api.Client, bool) {
	session := sessionFromContext(r)
	sel := c.selector(session)
	if err := sel.Refresh(r.Context()); err != nil {
		c.toasts.Push(session.ID, ToastError, "Failed to load realms: "+errMessage(err))
		http.Redirect(w, r, "/console/", http.StatusSeeOther)
		return nil, false
	}
	client, err := sel.Client()
	if err != nil {
		c.toasts.Push(session.ID, ToastInfo, "Select a realm first")
		http.Redirect(w, r, "/console/", http.StatusSeeOther)
		return nil, false
	}
	return client, true
}

// handleRunesPage renders the rune list page.
func (c *Console) handleRunesPage(w http.ResponseWriter, r *http.Request) {
	session := sessionFromContext(r)
	client, ok := c.realmClient(w, r)
	if !ok {
		return
	}
	r, csrfToken := c.ensureCSRFToken(w, r)

	state := r.URL.Query().Get("state")
	runes, err := client.ListRunes(r.Context(), api.RuneFilter{State: state})
	if err != nil {
		c.logger.Error("failed to list runes", "error", err)
		c.toasts.Push(session.ID, ToastError, "Failed to load runes: "+errMessage(err))
	}

	c.renderRunesPage(w, session, runes, state, c.toasts.Drain(session.ID), csrfToken)
}

// handleRunesList renders just the rune table fragment, for htmx
// filter swaps.
func (c *Console) handleRunesList(w http.ResponseWriter, r *http.Request) {
	client, ok := c.realmClient(w, r)
	if !ok {
		return
	}

	state := r.URL.Query().Get("state")
	runes, err := client.ListRunes(r.Context(), api.RuneFilter{State: state})
	if err != nil {
		http.Error(w, "Failed to load runes", http.StatusBadGateway)
		return
	}

	c.renderRunesList(w, runes, state)
}

// handleRuneNewPage renders the rune creation form.
func (c *Console) handleRuneNewPage(w http.ResponseWriter, r *http.Request) {
	session := sessionFromContext(r)
	r, csrfToken := c.ensureCSRFToken(w, r)
	c.renderRuneForm(w, session, c.toasts.Drain(session.ID), csrfToken)
}

// handleRuneCreate creates a rune in the active realm.
func (c *Console) handleRuneCreate(w http.ResponseWriter, r *http.Request) {
	if !c.validateCSRF(r) {
		http.Error(w, "Invalid request", http.StatusForbidden)
		return
	}

	session := sessionFromContext(r)
	client, ok := c.realmClient(w, r)
	if !ok {
		return
	}

	title := strings.TrimSpace(r.FormValue("title"))
	if title == "" {
		c.toasts.Push(session.ID, ToastError, "Title is required")
		http.Redirect(w, r, "/console/runes/new", http.StatusSeeOther)
		return
	}

	created, err := client.CreateRune(r.Context(), api.CreateRuneRequest{
		Title:       title,
		Description: r.FormValue("description"),
		Severity:    r.FormValue("severity"),
	})
	if err != nil {
		c.logger.Error("failed to create rune", "error", err)
		c.toasts.Push(session.ID, ToastError, "Failed to create rune: "+errMessage(err))
		http.Redirect(w, r, "/console/runes/new", http.StatusSeeOther)
		return
	}

	c.logger.Info("rune created", "rune", created.ID, "principal", session.PrincipalID)
	c.toasts.Push(session.ID, ToastSuccess, "Created "+created.Title)
	http.Redirect(w, r, "/console/runes/"+created.ID, http.StatusSeeOther)
}

// handleRuneDetail renders one rune with its rendered description.
func (c *Console) handleRuneDetail(w http.ResponseWriter, r *http.Request) {
	session := sessionFromContext(r)
	client, ok := c.realmClient(w, r)
	if !ok {
		return
	}
	r, csrfToken := c.ensureCSRFToken(w, r)

	rn, err := client.GetRune(r.Context(), r.PathValue("id"))
	if err != nil {
		if api.IsNotFound(err) {
			http.Error(w, "Rune not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Failed to load rune", http.StatusBadGateway)
		return
	}

	c.renderRuneDetail(w, session, rn, renderDescription(rn.Description), c.toasts.Drain(session.ID), csrfToken)
}

// handleRuneTransition asks the backend to move a rune to a new state.
// The backend owns the state machine and rejects illegal moves.
func (c *Console) handleRuneTransition(w http.ResponseWriter, r *http.Request) {
	if !c.validateCSRF(r) {
		http.Error(w, "Invalid request", http.StatusForbidden)
		return
	}

	session := sessionFromContext(r)
	client, ok := c.realmClient(w, r)
	if !ok {
		return
	}

	id := r.PathValue("id")
	target := r.FormValue("state")

	rn, err := client.TransitionRune(r.Context(), id, target)
	if err != nil {
		msg := "Transition failed: " + errMessage(err)
		if api.IsConflict(err) {
			msg = "That move is not allowed from the rune's current state"
		}
		c.toasts.Push(session.ID, ToastError, msg)
	} else {
		c.toasts.Push(session.ID, ToastSuccess, "Moved to "+rn.State)
	}

	http.Redirect(w, r, "/console/runes/"+id, http.StatusSeeOther)
}

// handleRuneDelete removes a rune.
func (c *Console) handleRuneDelete(w http.ResponseWriter, r *http.Request) {
	if !c.validateCSRF(r) {
		http.Error(w, "Invalid request", http.StatusForbidden)
		return
	}

	session := sessionFromContext(r)
	client, ok := c.realmClient(w, r)
	if !ok {
		return
	}

	id := r.PathValue("id")
	if err := client.DeleteRune(r.Context(), id); err != nil {
		c.logger.Error("failed to delete rune", "rune", id, "error", err)
		c.toasts.Push(session.ID, ToastError, "Failed to delete rune: "+errMessage(err))
		http.Redirect(w, r, "/console/runes/"+id, http.StatusSeeOther)
		return
	}

	c.toasts.Push(session.ID, ToastSuccess, "Rune deleted")
	http.Redirect(w, r, "/console/runes", http.StatusSeeOther)
}
