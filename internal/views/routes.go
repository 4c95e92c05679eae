// Package views holds the console's static route table: which view a path
// selects and which inputs it receives.
package views

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
)

const (
	Home         = "home"
	CameraAdd    = "camera-add"
	CameraDetail = "camera-detail"
)

var (
	ErrUnknownView  = errors.New("unknown view")
	ErrMissingParam = errors.New("missing route parameter")
)

// Route binds a path pattern to a view. Props lists the path parameters
// handed to the view as inputs.
type Route struct {
	Name    string
	Pattern string
	Props   []string
}

// Routes is the full table. The static /cameras/add always wins over
// /cameras/{id}.
var Routes = []Route{
	{Name: Home, Pattern: "/"},
	{Name: CameraAdd, Pattern: "/cameras/add"},
	{Name: CameraDetail, Pattern: "/cameras/{id}", Props: []string{"id"}},
}

// Match is a resolved route.
type Match struct {
	View   string            `json:"view"`
	Params map[string]string `json:"params"`
	Path   string            `json:"-"`
}

type RenderFunc func(w http.ResponseWriter, r *http.Request, m Match)

// Table resolves paths under a base path. It is safe for concurrent use.
type Table struct {
	base      string
	mux       *chi.Mux
	byPattern map[string]Route
	byName    map[string]Route
}

func New(base string) *Table {
	t := &Table{
		base:      NormalizeBase(base),
		mux:       chi.NewRouter(),
		byPattern: make(map[string]Route, len(Routes)),
		byName:    make(map[string]Route, len(Routes)),
	}
	for _, rt := range Routes {
		t.mux.Get(rt.Pattern, http.NotFound)
		t.byPattern[rt.Pattern] = rt
		t.byName[rt.Name] = rt
	}
	return t
}

// NormalizeBase returns base with exactly one leading and one trailing slash.
func NormalizeBase(base string) string {
	base = strings.Trim(strings.TrimSpace(base), "/")
	if base == "" {
		return "/"
	}
	return "/" + base + "/"
}

func (t *Table) Base() string { return t.base }

// Resolve maps a full request path to its view. Paths outside the base path
// or matching no route report false.
func (t *Table) Resolve(path string) (Match, bool) {
	rel, ok := t.relative(path)
	if !ok {
		return Match{}, false
	}

	rctx := chi.NewRouteContext()
	if !t.mux.Match(rctx, http.MethodGet, rel) {
		return Match{}, false
	}
	rt, ok := t.byPattern[rctx.RoutePattern()]
	if !ok {
		return Match{}, false
	}

	m := Match{View: rt.Name, Params: map[string]string{}, Path: path}
	for _, p := range rt.Props {
		m.Params[p] = rctx.URLParam(p)
	}
	return m, true
}

func (t *Table) relative(path string) (string, bool) {
	if path == "" {
		path = "/"
	}
	if t.base != "/" {
		if path+"/" == t.base {
			return "/", true
		}
		if !strings.HasPrefix(path, t.base) {
			return "", false
		}
		path = "/" + strings.TrimPrefix(path, t.base)
	}
	if len(path) > 1 {
		path = strings.TrimSuffix(path, "/")
	}
	return path, true
}

// Href builds the full path of a named view.
func (t *Table) Href(view string, params map[string]string) (string, error) {
	rt, ok := t.byName[view]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownView, view)
	}

	path := rt.Pattern
	for _, p := range rt.Props {
		v, ok := params[p]
		if !ok || v == "" {
			return "", fmt.Errorf("%w: %s needs %q", ErrMissingParam, view, p)
		}
		path = strings.Replace(path, "{"+p+"}", url.PathEscape(v), 1)
	}
	return strings.TrimSuffix(t.base, "/") + path, nil
}

// Mount registers a GET handler for every route on r, which is expected to
// be served at the table's base path.
func (t *Table) Mount(r chi.Router, render RenderFunc) {
	for _, rt := range Routes {
		r.Get(rt.Pattern, func(w http.ResponseWriter, req *http.Request) {
			m := Match{View: rt.Name, Params: map[string]string{}, Path: req.URL.Path}
			for _, p := range rt.Props {
				m.Params[p] = chi.URLParam(req, p)
			}
			render(w, req, m)
		})
	}
}
