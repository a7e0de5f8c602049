// ABOUTME: Template rendering functions for the console UI
// ABOUTME: Loads templates from the embedded filesystem and renders them

package console

import (
	"html/template"
	"net/http"

	"github.com/runeforge/rune-console/internal/api"
	"github.com/runeforge/rune-console/internal/store"
)

// Template data types
type loginData struct {
	Title     string
	Session   *store.ConsoleSession // always nil, keeps base header hidden
	Error     string
	Toasts    []Toast
	CSRFToken string
}

type dashboardData struct {
	Title       string
	Session     *store.ConsoleSession
	Realms      []api.Realm
	ActiveRealm string
	Role        string
	Runes       []api.Rune
	Toasts      []Toast
	CSRFToken   string
}

type runesPageData struct {
	Title       string
	Session     *store.ConsoleSession
	Runes       []api.Rune
	StateFilter string
	States      []string
	Toasts      []Toast
	CSRFToken   string
}

type runesListData struct {
	Runes       []api.Rune
	StateFilter string
}

type runeFormData struct {
	Title     string
	Session   *store.ConsoleSession
	Toasts    []Toast
	CSRFToken string
}

type runeDetailData struct {
	Title       string
	Session     *store.ConsoleSession
	Rune        *api.Rune
	Description template.HTML
	States      []string
	Toasts      []Toast
	CSRFToken   string
}

type flowStepData struct {
	Index   int
	Name    string
	Current bool
	Done    bool
}

type flowPageData struct {
	Title       string
	Session     *store.ConsoleSession
	FlowKind    string
	BasePath    string
	Steps       []flowStepData
	Content     string
	NextLabel   string
	BackLabel   string
	IsFirst     bool
	IsLast      bool
	Validating  bool
	Username    string
	DisplayName string
	RealmName   string
	Role        string
	Toasts      []Toast
	CSRFToken   string
}

// renderLoginPage renders the login page
func (c *Console) renderLoginPage(w http.ResponseWriter, errorMsg, csrfToken string) {
	tmpl := template.Must(template.ParseFS(templateFS, "templates/base.html", "templates/login.html"))

	data := loginData{
		Title:     "Login",
		Error:     errorMsg,
		CSRFToken: csrfToken,
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.Execute(w, data); err != nil {
		c.logger.Error("failed to render login page", "error", err)
	}
}

// renderDashboard renders the main dashboard
func (c *Console) renderDashboard(w http.ResponseWriter, session *store.ConsoleSession, sel selectorView, runes []api.Rune, toasts []Toast, csrfToken string) {
	tmpl := template.Must(template.ParseFS(templateFS, "templates/base.html", "templates/dashboard.html"))

	data := dashboardData{
		Title:       "Dashboard",
		Session:     session,
		Realms:      sel.Available(),
		ActiveRealm: sel.Active(),
		Role:        sel.Role(),
		Runes:       runes,
		Toasts:      toasts,
		CSRFToken:   csrfToken,
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.Execute(w, data); err != nil {
		c.logger.Error("failed to render dashboard", "error", err)
	}
}

// selectorView is the read side of the realm selector the templates need.
type selectorView interface {
	Available() []api.Realm
	Active() string
	Role() string
}

// renderRunesPage renders the rune list page
func (c *Console) renderRunesPage(w http.ResponseWriter, session *store.ConsoleSession, runes []api.Rune, stateFilter string, toasts []Toast, csrfToken string) {
	tmpl := template.Must(template.ParseFS(templateFS,
		"templates/base.html", "templates/runes.html", "templates/partials/runes_list.html"))

	data := runesPageData{
		Title:       "Runes",
		Session:     session,
		Runes:       runes,
		StateFilter: stateFilter,
		States:      api.RuneStates,
		Toasts:      toasts,
		CSRFToken:   csrfToken,
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.Execute(w, data); err != nil {
		c.logger.Error("failed to render runes page", "error", err)
	}
}

// renderRunesList renders the rune table partial (htmx response)
func (c *Console) renderRunesList(w http.ResponseWriter, runes []api.Rune, stateFilter string) {
	tmpl := template.Must(template.ParseFS(templateFS, "templates/partials/runes_list.html"))

	data := runesListData{
		Runes:       runes,
		StateFilter: stateFilter,
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.ExecuteTemplate(w, "runes_list", data); err != nil {
		c.logger.Error("failed to render runes list", "error", err)
	}
}

// renderRuneForm renders the rune creation form
func (c *Console) renderRuneForm(w http.ResponseWriter, session *store.ConsoleSession, toasts []Toast, csrfToken string) {
	tmpl := template.Must(template.ParseFS(templateFS, "templates/base.html", "templates/rune_new.html"))

	data := runeFormData{
		Title:     "New Rune",
		Session:   session,
		Toasts:    toasts,
		CSRFToken: csrfToken,
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.Execute(w, data); err != nil {
		c.logger.Error("failed to render rune form", "error", err)
	}
}

// renderRuneDetail renders one rune with rendered description
func (c *Console) renderRuneDetail(w http.ResponseWriter, session *store.ConsoleSession, rn *api.Rune, description template.HTML, toasts []Toast, csrfToken string) {
	tmpl := template.Must(template.ParseFS(templateFS, "templates/base.html", "templates/rune_detail.html"))

	data := runeDetailData{
		Title:       rn.Title,
		Session:     session,
		Rune:        rn,
		Description: description,
		States:      api.RuneStates,
		Toasts:      toasts,
		CSRFToken:   csrfToken,
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.Execute(w, data); err != nil {
		c.logger.Error("failed to render rune detail", "error", err)
	}
}

// renderFlowPage renders the current step of a wizard flow
func (c *Console) renderFlowPage(w http.ResponseWriter, session *store.ConsoleSession, f *flow, toasts []Toast, csrfToken string) {
	tmpl := template.Must(template.ParseFS(templateFS, "templates/base.html", "templates/wizard.html"))

	current := f.wiz.CurrentIndex()
	titles := f.wiz.Titles()
	steps := make([]flowStepData, len(titles))
	for i, title := range titles {
		steps[i] = flowStepData{
			Index:   i,
			Name:    title,
			Current: i == current,
			Done:    i < current,
		}
	}

	content, _ := f.wiz.Current().Content.(string)

	f.mu.Lock()
	username, displayName := f.username, f.displayName
	realmName, role := f.realmName, f.role
	f.mu.Unlock()

	title := "Onboarding"
	if f.kind == flowKindAccount {
		title = "New Account"
	}

	data := flowPageData{
		Title:       title,
		Session:     session,
		FlowKind:    f.kind,
		BasePath:    flowPath(f),
		Steps:       steps,
		Content:     content,
		NextLabel:   f.wiz.NextLabel(),
		BackLabel:   f.wiz.BackLabel(),
		IsFirst:     f.wiz.IsFirstStep(),
		IsLast:      f.wiz.IsLastStep(),
		Validating:  f.wiz.IsValidating(),
		Username:    username,
		DisplayName: displayName,
		RealmName:   realmName,
		Role:        role,
		Toasts:      toasts,
		CSRFToken:   csrfToken,
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.Execute(w, data); err != nil {
		c.logger.Error("failed to render wizard page", "error", err)
	}
}
