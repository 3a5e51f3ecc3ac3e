// Package web serves the user directory over HTTP. Handlers are plain
// net/http handlers keyed by action name and mounted through the route
// table on a chi router. Every action answers in HTML, JSON or XML.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"mime"
	"net/http"

	"github.com/dmitrijs2005/userdir/internal/common"
	"github.com/dmitrijs2005/userdir/internal/logging"
	"github.com/dmitrijs2005/userdir/internal/server/models"
	"github.com/dmitrijs2005/userdir/internal/server/routes"
	"github.com/dmitrijs2005/userdir/internal/server/services"
	"github.com/go-chi/chi/v5"
)

// UserStore is the part of services.UserService used by the handlers.
type UserStore interface {
	List(ctx context.Context) ([]*models.User, error)
	Search(ctx context.Context, query string) ([]*models.User, error)
	Get(ctx context.Context, id string) (*models.User, error)
	Create(ctx context.Context, in services.UserInput) (*models.User, error)
	Update(ctx context.Context, id string, in services.UserInput) (*models.User, error)
	Delete(ctx context.Context, id string) error
}

// Exporter writes directory snapshots to object storage.
type Exporter interface {
	Export(ctx context.Context) (*models.Export, error)
}

type Handler struct {
	users   UserStore
	exports Exporter
	views   views
	logger  logging.Logger
}

// NewHandler parses the embedded views. exports may be nil, in which case
// the export action answers 503.
func NewHandler(us UserStore, ex Exporter, l logging.Logger) (*Handler, error) {
	v, err := loadViews()
	if err != nil {
		return nil, err
	}
	if l == nil {
		l = logging.Nop{}
	}
	return &Handler{users: us, exports: ex, views: v, logger: l.With("module", "web")}, nil
}

// Actions returns the handler for every action name in the route table.
func (h *Handler) Actions() routes.Actions {
	return routes.Actions{
		routes.ActionIndex:     http.HandlerFunc(h.index),
		routes.ActionNew:       http.HandlerFunc(h.newUser),
		routes.ActionCreate:    http.HandlerFunc(h.create),
		routes.ActionNewSearch: http.HandlerFunc(h.newSearch),
		routes.ActionSearch:    http.HandlerFunc(h.search),
		routes.ActionShow:      http.HandlerFunc(h.show),
		routes.ActionEdit:      http.HandlerFunc(h.edit),
		routes.ActionUpdate:    http.HandlerFunc(h.update),
		routes.ActionDestroy:   http.HandlerFunc(h.destroy),
		routes.ActionExport:    http.HandlerFunc(h.export),
	}
}

func (h *Handler) index(w http.ResponseWriter, r *http.Request) {
	list, err := h.users.List(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respondList(w, r, page{Title: "Users", Users: list})
}

func (h *Handler) search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		q = r.URL.Query().Get("name")
	}
	list, err := h.users.Search(r.Context(), q)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respondList(w, r, page{Title: "Search results", Users: list, Query: q})
}

func (h *Handler) newSearch(w http.ResponseWriter, r *http.Request) {
	h.html(w, r, http.StatusOK, viewSearch, page{Title: "Search users", Query: r.URL.Query().Get("q")})
}

func (h *Handler) newUser(w http.ResponseWriter, r *http.Request) {
	h.html(w, r, http.StatusOK, viewNew, page{Title: "New user", User: &models.User{}})
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	u, err := h.users.Get(r.Context(), chi.URLParam(r, routes.ParamID))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respondUser(w, r, http.StatusOK, u, viewShow, "User")
}

func (h *Handler) edit(w http.ResponseWriter, r *http.Request) {
	u, err := h.users.Get(r.Context(), chi.URLParam(r, routes.ParamID))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.html(w, r, http.StatusOK, viewEdit, page{Title: "Editing user", User: u})
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	in, err := readInput(r)
	if err != nil {
		h.badRequest(w, r, err)
		return
	}
	if in.Name == nil {
		blank := ""
		in.Name = &blank
	}

	u, err := h.users.Create(r.Context(), in)
	if err != nil {
		if errors.Is(err, common.ErrorValidation) {
			h.invalid(w, r, viewNew, "New user", u, err)
			return
		}
		h.fail(w, r, err)
		return
	}

	location := "/users/" + u.ID
	if negotiate(r) == formatHTML {
		http.Redirect(w, r, location, http.StatusSeeOther)
		return
	}
	w.Header().Set("Location", location)
	h.respondUser(w, r, http.StatusCreated, u, viewShow, "User")
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, routes.ParamID)
	in, err := readInput(r)
	if err != nil {
		h.badRequest(w, r, err)
		return
	}

	u, err := h.users.Update(r.Context(), id, in)
	if err != nil {
		if errors.Is(err, common.ErrorValidation) {
			h.invalid(w, r, viewEdit, "Editing user", u, err)
			return
		}
		h.fail(w, r, err)
		return
	}

	if negotiate(r) == formatHTML {
		http.Redirect(w, r, "/users/"+u.ID, http.StatusSeeOther)
		return
	}
	h.respondUser(w, r, http.StatusOK, u, viewShow, "User")
}

func (h *Handler) destroy(w http.ResponseWriter, r *http.Request) {
	if err := h.users.Delete(r.Context(), chi.URLParam(r, routes.ParamID)); err != nil {
		h.fail(w, r, err)
		return
	}
	if negotiate(r) == formatHTML {
		http.Redirect(w, r, "/users", http.StatusSeeOther)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) export(w http.ResponseWriter, r *http.Request) {
	if h.exports == nil {
		writeError(w, formatJSON, http.StatusServiceUnavailable)
		return
	}
	exp, err := h.exports.Export(r.Context())
	if err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			h.logger.Error(r.Context(), "export failed", "error", err)
		}
		writeError(w, formatJSON, status)
		return
	}
	writeJSON(w, http.StatusCreated, exp)
}

func (h *Handler) respondList(w http.ResponseWriter, r *http.Request, p page) {
	switch negotiate(r) {
	case formatJSON:
		writeJSON(w, http.StatusOK, p.Users)
	case formatXML:
		body, err := models.UsersXML(p.Users)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		writeXML(w, http.StatusOK, body)
	default:
		h.html(w, r, http.StatusOK, viewIndex, p)
	}
}

func (h *Handler) respondUser(w http.ResponseWriter, r *http.Request, status int, u *models.User, view, title string) {
	switch negotiate(r) {
	case formatJSON:
		writeJSON(w, status, u)
	case formatXML:
		body, err := userXML(u)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		writeXML(w, status, body)
	default:
		h.html(w, r, status, view, page{Title: title, User: u})
	}
}

// invalid answers 422: HTML re-renders the form with the messages.
func (h *Handler) invalid(w http.ResponseWriter, r *http.Request, view, title string, u *models.User, err error) {
	messages := validationMessages(err)
	switch negotiate(r) {
	case formatJSON:
		writeJSON(w, http.StatusUnprocessableEntity, map[string][]string{"errors": messages})
	case formatXML:
		body, xerr := errorsXML(messages)
		if xerr != nil {
			h.fail(w, r, xerr)
			return
		}
		writeXML(w, http.StatusUnprocessableEntity, body)
	default:
		if u == nil {
			u = &models.User{}
		}
		h.html(w, r, http.StatusUnprocessableEntity, view, page{Title: title, User: u, Errors: messages})
	}
}

func (h *Handler) html(w http.ResponseWriter, r *http.Request, status int, view string, p page) {
	body, err := h.views.render(view, p)
	if err != nil {
		h.logger.Error(r.Context(), "render failed", "view", view, "error", err)
		writeError(w, formatHTML, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func (h *Handler) badRequest(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.Debug(r.Context(), "bad request", "error", err)
	writeError(w, negotiate(r), http.StatusBadRequest)
}

// fail maps err to a status. Unexpected errors are logged and answered
// with a generic body.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error(r.Context(), "request failed", "error", err)
	}
	writeError(w, negotiate(r), status)
}

func (h *Handler) notFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, negotiate(r), http.StatusNotFound)
}

type jsonInput struct {
	Name     *string `json:"name"`
	Password *string `json:"password"`
}

// readInput reads name and password from a JSON body or form fields. An
// empty password counts as not submitted so edit forms keep the stored
// digest.
func readInput(r *http.Request) (services.UserInput, error) {
	var in services.UserInput

	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct == "application/json" {
		var body jsonInput
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			return in, err
		}
		in.Name, in.Password = body.Name, body.Password
	} else {
		if err := r.ParseForm(); err != nil {
			return in, err
		}
		if _, ok := r.PostForm["name"]; ok {
			name := r.PostForm.Get("name")
			in.Name = &name
		}
		if _, ok := r.PostForm["password"]; ok {
			pw := r.PostForm.Get("password")
			in.Password = &pw
		}
	}

	if in.Password != nil && *in.Password == "" {
		in.Password = nil
	}
	return in, nil
}
