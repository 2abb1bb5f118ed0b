package web

import (
	"html"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

func writeHTML(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func hello(name string) string {
	return "Hello " + html.EscapeString(name) + "!"
}

// handleHello serves /hello?name=<name>; name defaults to World.
func (h *Handler) handleHello(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.URL.Query().Get("name"))
	if name == "" {
		name = "World"
	}
	writeHTML(w, http.StatusOK, hello(name))
}

func (h *Handler) handleHello2(w http.ResponseWriter, r *http.Request) {
	writeHTML(w, http.StatusOK, hello(chi.URLParam(r, "name")))
}
