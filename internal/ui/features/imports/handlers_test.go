package imports

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapimport/internal/reconcile"
	"github.com/leapstack-labs/leapimport/internal/state"
	"github.com/leapstack-labs/leapimport/internal/ui/features"
)

func setupTestHandlers(t *testing.T) (*Handlers, *features.TestFixture) {
	t.Helper()
	f := features.SetupTestFixture(t)
	return NewHandlers(f.Registry, f.Notifier, false), f
}

func importContacts(t *testing.T, f *features.TestFixture) string {
	t.Helper()
	id := f.StartContacts(t)
	require.NoError(t, f.Registry.Update(id, func(s *reconcile.Session) error {
		res, err := f.Engine.Proceed(context.Background(), s)
		if err != nil {
			return err
		}
		require.True(t, res.HandedOff)
		return nil
	}))
	return id
}

func TestImportsPage(t *testing.T) {
	tests := []struct {
		name     string
		imported bool
		want     []string
	}{
		{
			name: "empty history",
			want: []string{"Import history", "Nothing imported yet."},
		},
		{
			name:     "lists completed imports",
			imported: true,
			want:     []string{"contacts.csv", "sqlite:contacts", "Customer → name", "Email → email"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, f := setupTestHandlers(t)
			if tt.imported {
				id := importContacts(t, f)
				tt.want = append(tt.want, `href="/review/`+id+`"`)
			}

			rec := httptest.NewRecorder()
			h.ImportsPage(rec, httptest.NewRequest(http.MethodGet, "/imports", nil))

			assert.Equal(t, http.StatusOK, rec.Code)
			for _, s := range tt.want {
				assert.Contains(t, rec.Body.String(), s)
			}
		})
	}
}

func TestConvertImport(t *testing.T) {
	row := convertImport(&state.ImportRecord{
		FileName:    "people.csv",
		TargetType:  "postgres",
		TargetTable: "people",
		RowCount:    3,
		Mapping:     map[string]string{"Name": "name", "E-mail": "email"},
		ImportedAt:  time.Date(2025, 1, 2, 3, 4, 0, 0, time.UTC),
	})

	assert.Equal(t, "postgres:people", row.Target)
	assert.Equal(t, "E-mail → email, Name → name", row.Mapping)
	assert.Empty(t, row.SessionID)
}

func TestImportsPageUpdates(t *testing.T) {
	h, f := setupTestHandlers(t)

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/imports/updates", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		h.ImportsPageUpdates(rec, req)
		close(done)
	}()

	// Give the handler time to subscribe before the import broadcasts.
	time.Sleep(50 * time.Millisecond)
	importContacts(t, f)
	time.Sleep(100 * time.Millisecond)
	cancel()
	<-done

	assert.Contains(t, rec.Body.String(), "import-list")
	assert.Contains(t, rec.Body.String(), "contacts.csv")
}
