package httpapi

import (
	"net/http"

	"github.com/portmail/portmail/internal/templates"
)

type templateHandler struct {
	templates []templates.Template
}

type templatesResponse struct {
	Templates []templates.Template `json:"templates"`
}

// list returns the built-in port templates. With ship_name or port query
// parameters the placeholders are filled in.
func (h *templateHandler) list(w http.ResponseWriter, r *http.Request) {
	shipName := r.URL.Query().Get("ship_name")
	port := r.URL.Query().Get("port")

	out := make([]templates.Template, 0, len(h.templates))
	for _, t := range h.templates {
		if shipName != "" || port != "" {
			t = t.Render(shipName, port)
		}
		out = append(out, t)
	}
	writeJSON(w, http.StatusOK, templatesResponse{Templates: out})
}
