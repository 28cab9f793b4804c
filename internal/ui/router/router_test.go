package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapimport/internal/ui/features"
)

func newTestRouter(t *testing.T, isDev bool) (*chi.Mux, *features.TestFixture) {
	t.Helper()

	fixture := features.SetupTestFixture(t)
	r := chi.NewMux()
	require.NoError(t, SetupRoutes(r, Deps{
		Registry:     fixture.Registry,
		SessionStore: fixture.SessionStore,
		Notifier:     fixture.Notifier,
		ColumnWidth:  240,
		IsDev:        isDev,
	}))
	return r, fixture
}

func TestSetupRoutes(t *testing.T) {
	r, fixture := newTestRouter(t, false)
	id := fixture.StartContacts(t)

	tests := []struct {
		name       string
		method     string
		path       string
		wantStatus int
	}{
		{"home", http.MethodGet, "/", http.StatusOK},
		{"review page", http.MethodGet, "/review/" + id, http.StatusOK},
		{"review action", http.MethodPost, "/review/" + id + "/columns/3/ignore", http.StatusOK},
		{"import history", http.MethodGet, "/imports", http.StatusOK},
		{"stylesheet", http.MethodGet, "/static/app.css", http.StatusOK},
		{"unknown review", http.MethodGet, "/review/missing", http.StatusNotFound},
		{"no reload outside dev", http.MethodGet, "/hotreload", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestHotReload(t *testing.T) {
	r, _ := newTestRouter(t, true)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/hotreload", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}
