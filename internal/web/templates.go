package web

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"net/url"
	"strconv"

	"github.com/example/tubeview/internal/watchstate"
)

//go:embed templates/*.html
var templateFS embed.FS

var funcs = template.FuncMap{
	"clock": func(seconds float64) string {
		s := int(seconds)
		if s >= 3600 {
			return fmt.Sprintf("%d:%02d:%02d", s/3600, s%3600/60, s%60)
		}
		return fmt.Sprintf("%d:%02d", s/60, s%60)
	},
	// watchlink builds a watch-page URL carrying the listing order so the
	// player can offer a "Next" hop through the session queue.
	"watchlink": func(id, queue string, idx int) string {
		if queue == "" {
			return "/watch/" + id
		}
		q := url.Values{}
		q.Set("list", queue)
		q.Set("idx", strconv.Itoa(idx))
		return "/watch/" + id + "?" + q.Encode()
	},
	// progress returns nil for unwatched videos so templates can use it
	// directly in a with block.
	"progress": func(m map[string]watchstate.Record, id string) *watchstate.Record {
		if rec, ok := m[id]; ok {
			return &rec
		}
		return nil
	},
}

func parseTemplates() (*template.Template, error) {
	return template.New("").Funcs(funcs).ParseFS(templateFS, "templates/*.html")
}

func (h *Handler) render(w io.Writer, name string, data any) error {
	return h.tmpl.ExecuteTemplate(w, name, data)
}
