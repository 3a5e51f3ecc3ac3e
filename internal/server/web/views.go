package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"

	"github.com/dmitrijs2005/userdir/internal/server/models"
)

//go:embed templates/*.html
var templatesFS embed.FS

const (
	viewIndex  = "index"
	viewShow   = "show"
	viewNew    = "new"
	viewEdit   = "edit"
	viewSearch = "search"
)

// page is the data handed to every view.
type page struct {
	Title  string
	Users  []*models.User
	User   *models.User
	Errors []string
	Query  string
}

type views map[string]*template.Template

// loadViews parses the layout once and clones it for every page so each
// page can define its own "content" block.
func loadViews() (views, error) {
	base, err := template.ParseFS(templatesFS, "templates/layout.html")
	if err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}

	v := views{}
	for _, name := range []string{viewIndex, viewShow, viewNew, viewEdit, viewSearch} {
		t, err := base.Clone()
		if err != nil {
			return nil, err
		}
		if _, err := t.ParseFS(templatesFS, "templates/"+name+".html"); err != nil {
			return nil, fmt.Errorf("parse view %s: %w", name, err)
		}
		v[name] = t
	}
	return v, nil
}

// render executes the view into memory so nothing is written to the
// client until the whole page rendered.
func (v views) render(name string, p page) ([]byte, error) {
	t, ok := v[name]
	if !ok {
		return nil, fmt.Errorf("unknown view %q", name)
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", p); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
