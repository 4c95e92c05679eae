package views_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/technosupport/cctv-console/internal/views"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name   string
		base   string
		path   string
		ok     bool
		view   string
		params map[string]string
	}{
		{"root", "/", "/", true, views.Home, map[string]string{}},
		{"add", "/", "/cameras/add", true, views.CameraAdd, map[string]string{}},
		{"add wins over id", "/", "/cameras/add/", true, views.CameraAdd, map[string]string{}},
		{"detail", "/", "/cameras/7", true, views.CameraDetail, map[string]string{"id": "7"}},
		{"detail keeps raw id", "/", "/cameras/abc", true, views.CameraDetail, map[string]string{"id": "abc"}},
		{"trailing slash", "/", "/cameras/7/", true, views.CameraDetail, map[string]string{"id": "7"}},
		{"cameras alone", "/", "/cameras", false, "", nil},
		{"too deep", "/", "/cameras/7/edit", false, "", nil},
		{"base root", "/console/", "/console/", true, views.Home, map[string]string{}},
		{"base without slash", "console", "/console", true, views.Home, map[string]string{}},
		{"base detail", "/console", "/console/cameras/12", true, views.CameraDetail, map[string]string{"id": "12"}},
		{"outside base", "/console/", "/cameras/12", false, "", nil},
		{"base prefix only", "/console/", "/consoles/cameras/12", false, "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, ok := views.New(tt.base).Resolve(tt.path)
			require.Equal(t, tt.ok, ok)
			if !tt.ok {
				return
			}
			assert.Equal(t, tt.view, m.View)
			assert.Equal(t, tt.params, m.Params)
			assert.Equal(t, tt.path, m.Path)
		})
	}
}

func TestNormalizeBase(t *testing.T) {
	assert.Equal(t, "/", views.NormalizeBase(""))
	assert.Equal(t, "/", views.NormalizeBase("/"))
	assert.Equal(t, "/console/", views.NormalizeBase("console"))
	assert.Equal(t, "/a/b/", views.NormalizeBase("/a/b//"))
}

func TestHref(t *testing.T) {
	tbl := views.New("/console/")

	href, err := tbl.Href(views.CameraDetail, map[string]string{"id": "5"})
	require.NoError(t, err)
	assert.Equal(t, "/console/cameras/5", href)

	href, err = tbl.Href(views.Home, nil)
	require.NoError(t, err)
	assert.Equal(t, "/console/", href)

	href, err = views.New("/").Href(views.CameraAdd, nil)
	require.NoError(t, err)
	assert.Equal(t, "/cameras/add", href)

	_, err = tbl.Href(views.CameraDetail, nil)
	assert.ErrorIs(t, err, views.ErrMissingParam)

	_, err = tbl.Href("settings", nil)
	assert.ErrorIs(t, err, views.ErrUnknownView)
}

func TestHrefResolvesBack(t *testing.T) {
	tbl := views.New("/ops")
	for _, rt := range views.Routes {
		params := map[string]string{}
		for _, p := range rt.Props {
			params[p] = "31"
		}
		href, err := tbl.Href(rt.Name, params)
		require.NoError(t, err)

		m, ok := tbl.Resolve(href)
		require.True(t, ok, href)
		assert.Equal(t, rt.Name, m.View)
		assert.Equal(t, params, m.Params)
	}
}

func TestMount(t *testing.T) {
	var got views.Match
	r := chi.NewRouter()
	views.New("/").Mount(r, func(w http.ResponseWriter, _ *http.Request, m views.Match) {
		got = m
		w.WriteHeader(http.StatusNoContent)
	})

	for _, tc := range []struct {
		path string
		view string
	}{
		{"/", views.Home},
		{"/cameras/add", views.CameraAdd},
		{"/cameras/9", views.CameraDetail},
	} {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, tc.path, nil))
		assert.Equal(t, http.StatusNoContent, rr.Code, tc.path)
		assert.Equal(t, tc.view, got.View)
	}
	assert.Equal(t, "9", got.Params["id"])

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
