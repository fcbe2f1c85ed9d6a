// Package handler contains the HTTP request handlers. Handlers parse the
// request, call a service, and render a template or redirect — no business
// logic lives here.
package handler

import (
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"path/filepath"

	"github.com/gorilla/sessions"
)

// flashSession is the cookie session carrying one-shot flash messages.
const flashSession = "devconnect_flash"

// pages are the content templates under the template directory. Each is
// parsed together with base.html so {{template "content" .}} resolves.
var pages = []string{
	"register", "login", "home", "profile", "connections", "feed",
	"help", "about", "error",
}

// Renderer executes html/template pages and manages flash messages.
// Templates are parsed once at startup; each page gets its own template
// set so every page can define its own "content" block.
type Renderer struct {
	templates map[string]*template.Template
	store     *sessions.CookieStore
	logger    *slog.Logger
}

// NewRenderer parses all page templates from templateDir.
func NewRenderer(templateDir, sessionSecret string, logger *slog.Logger) (*Renderer, error) {
	templates := make(map[string]*template.Template, len(pages))
	base := filepath.Join(templateDir, "base.html")

	funcs := template.FuncMap{
		"add": func(a, b int) int { return a + b },
		"sub": func(a, b int) int { return a - b },
	}

	for _, page := range pages {
		tmpl, err := template.New("base.html").Funcs(funcs).
			ParseFiles(base, filepath.Join(templateDir, page+".html"))
		if err != nil {
			return nil, fmt.Errorf("handler: parsing template %q: %w", page, err)
		}
		templates[page] = tmpl
	}

	return &Renderer{
		templates: templates,
		store:     sessions.NewCookieStore([]byte(sessionSecret)),
		logger:    logger,
	}, nil
}

// Render executes the named page inside the base layout. Pending flash
// messages are popped into the template data under "Flashes".
func (rn *Renderer) Render(w http.ResponseWriter, r *http.Request, page string, data map[string]any) {
	tmpl, ok := rn.templates[page]
	if !ok {
		rn.logger.Error("unknown template", slog.String("page", page))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	if data == nil {
		data = map[string]any{}
	}
	data["Flashes"] = rn.popFlashes(w, r)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.ExecuteTemplate(w, "base", data); err != nil {
		rn.logger.Error("failed to render template",
			slog.String("page", page),
			slog.String("error", err.Error()),
		)
	}
}

// Flash queues a one-shot message shown on the next rendered page.
func (rn *Renderer) Flash(w http.ResponseWriter, r *http.Request, message string) {
	session, _ := rn.store.Get(r, flashSession)
	session.AddFlash(message)
	if err := session.Save(r, w); err != nil {
		rn.logger.Warn("failed to save flash session", slog.String("error", err.Error()))
	}
}

func (rn *Renderer) popFlashes(w http.ResponseWriter, r *http.Request) []string {
	session, _ := rn.store.Get(r, flashSession)
	raw := session.Flashes()
	if len(raw) == 0 {
		return nil
	}
	// Flashes() consumed them; persist the now-empty session.
	if err := session.Save(r, w); err != nil {
		rn.logger.Warn("failed to clear flash session", slog.String("error", err.Error()))
	}

	messages := make([]string, 0, len(raw))
	for _, f := range raw {
		if msg, ok := f.(string); ok {
			messages = append(messages, msg)
		}
	}
	return messages
}
