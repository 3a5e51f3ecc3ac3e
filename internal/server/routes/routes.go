// Package routes declares the HTTP surface of the directory as data: a
// fixed table mapping method and path patterns to named actions. The
// table can be resolved without an HTTP stack and mounted on a chi router.
package routes

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

// Action names.
const (
	ActionIndex     = "index"
	ActionNew       = "new"
	ActionCreate    = "create"
	ActionNewSearch = "new_search"
	ActionSearch    = "search"
	ActionShow      = "show"
	ActionEdit      = "edit"
	ActionUpdate    = "update"
	ActionDestroy   = "destroy"
	ActionExport    = "export"
)

// ParamID is the path parameter carrying a user id.
const ParamID = "id"

// Route maps a method and a path pattern to an action. Pattern segments
// of the form {name} capture one path segment.
type Route struct {
	Name    string
	Method  string
	Pattern string
	Action  string
}

// Table is an ordered, read-only list of routes.
type Table struct {
	routes []Route
}

// Actions maps action names to handlers.
type Actions map[string]http.Handler

// Default returns the directory's routes.
func Default() Table {
	return New(
		Route{Name: "root", Method: http.MethodGet, Pattern: "/", Action: ActionIndex},
		Route{Name: "index", Method: http.MethodGet, Pattern: "/users", Action: ActionIndex},
		Route{Name: "create", Method: http.MethodPost, Pattern: "/users", Action: ActionCreate},
		Route{Name: "new", Method: http.MethodGet, Pattern: "/users/new", Action: ActionNew},
		Route{Name: "search_form", Method: http.MethodGet, Pattern: "/users/search", Action: ActionNewSearch},
		Route{Name: "search", Method: http.MethodGet, Pattern: "/users/results", Action: ActionSearch},
		Route{Name: "export", Method: http.MethodPost, Pattern: "/users/export", Action: ActionExport},
		Route{Name: "show", Method: http.MethodGet, Pattern: "/users/{id}", Action: ActionShow},
		Route{Name: "edit", Method: http.MethodGet, Pattern: "/users/{id}/edit", Action: ActionEdit},
		Route{Name: "update", Method: http.MethodPatch, Pattern: "/users/{id}", Action: ActionUpdate},
		Route{Name: "update_put", Method: http.MethodPut, Pattern: "/users/{id}", Action: ActionUpdate},
		Route{Name: "destroy", Method: http.MethodDelete, Pattern: "/users/{id}", Action: ActionDestroy},
	)
}

// New builds a table from routes. The slice is copied.
func New(routes ...Route) Table {
	return Table{routes: append([]Route(nil), routes...)}
}

// Routes returns a copy of the table's routes in declaration order.
func (t Table) Routes() []Route {
	return append([]Route(nil), t.routes...)
}

// Resolve finds the route for method and path. When several patterns
// match, the one with the most literal segments wins, so /users/search
// never resolves to show. Paths match exactly as the mounted router
// matches them: /users/ is not /users.
func (t Table) Resolve(method, path string) (Route, map[string]string, bool) {
	segs := split(path)

	var (
		best       Route
		bestParams map[string]string
		bestScore  = -1
	)
	for _, r := range t.routes {
		if r.Method != method {
			continue
		}
		params, score, ok := match(split(r.Pattern), segs)
		if !ok || score <= bestScore {
			continue
		}
		best, bestParams, bestScore = r, params, score
	}
	if bestScore < 0 {
		return Route{}, nil, false
	}
	return best, bestParams, true
}

// Path expands r's pattern with params. Missing parameters are an error.
func (r Route) Path(params map[string]string) (string, error) {
	segs := split(r.Pattern)
	for i, s := range segs {
		if name, ok := paramName(s); ok {
			v, found := params[name]
			if !found || v == "" {
				return "", fmt.Errorf("route %s: missing parameter %q", r.Name, name)
			}
			segs[i] = v
		}
	}
	return "/" + strings.Join(segs, "/"), nil
}

// Mount registers every route on r using the handler for its action.
// Every action must have a handler.
func (t Table) Mount(r chi.Router, actions Actions) error {
	var errs []error
	for _, rt := range t.routes {
		h, ok := actions[rt.Action]
		if !ok || h == nil {
			errs = append(errs, fmt.Errorf("route %s: no handler for action %q", rt.Name, rt.Action))
			continue
		}
		r.Method(rt.Method, rt.Pattern, h)
	}
	return errors.Join(errs...)
}

func match(pattern, segs []string) (map[string]string, int, bool) {
	if len(pattern) != len(segs) {
		return nil, 0, false
	}
	params := map[string]string{}
	literal := 0
	for i, p := range pattern {
		if name, ok := paramName(p); ok {
			if segs[i] == "" {
				return nil, 0, false
			}
			params[name] = segs[i]
			continue
		}
		if p != segs[i] {
			return nil, 0, false
		}
		literal++
	}
	return params, literal, true
}

func paramName(seg string) (string, bool) {
	if len(seg) > 2 && seg[0] == '{' && seg[len(seg)-1] == '}' {
		return seg[1 : len(seg)-1], true
	}
	return "", false
}

// split keeps a trailing empty segment so "/users/" differs from "/users".
func split(path string) []string {
	path = strings.TrimPrefix(path, "/")
	if path == "" {
		return []string{}
	}
	return strings.Split(path, "/")
}
