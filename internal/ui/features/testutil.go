// Package features provides shared test utilities for UI feature tests.
package features

import (
	"context"
	"net/http"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/sessions"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapimport/internal/engine"
	"github.com/leapstack-labs/leapimport/internal/importer"
	"github.com/leapstack-labs/leapimport/internal/reconcile"
	"github.com/leapstack-labs/leapimport/internal/schema"
	"github.com/leapstack-labs/leapimport/internal/source"
	"github.com/leapstack-labs/leapimport/internal/testutil"
	"github.com/leapstack-labs/leapimport/internal/ui/live"
	"github.com/leapstack-labs/leapimport/internal/ui/notifier"
)

// ContactsSchema is the schema every fixture engine uses.
const ContactsSchema = `name: contacts
table: contacts
fields:
  - id: email
    name: Email
    required: true
  - id: phone
    name: Phone
  - id: name
    name: Full Name
    aliases: [customer]
`

// ContactsCSV auto-matches Email and Customer; Mobile and Notes are left
// unmatched.
const ContactsCSV = "Email,Mobile,Customer,Notes\nada@example.com,555-0100,Ada,vip\nalan@example.com,555-0101,Alan,\n"

// TestFixture holds all dependencies needed for UI handler tests.
type TestFixture struct {
	Engine       *engine.Engine
	Registry     *live.Registry
	Notifier     *notifier.Notifier
	SessionStore *sessions.CookieStore
	Clock        *reconcile.ManualScheduler
	TargetPath   string
}

// SetupTestFixture creates an engine on a temp directory and a registry
// whose navigator timers run on a manual clock.
func SetupTestFixture(t *testing.T) *TestFixture {
	t.Helper()

	sch, err := schema.Parse(strings.NewReader(ContactsSchema))
	require.NoError(t, err)

	dir := t.TempDir()
	targetPath := filepath.Join(dir, "imports.db")
	eng, err := engine.New(engine.Config{
		Schema:    sch,
		StatePath: filepath.Join(dir, "state.db"),
		Target:    importer.Config{Type: "sqlite", DSN: targetPath},
		Logger:    testutil.NewTestLogger(t),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = eng.Close() })

	clock := reconcile.NewManualScheduler()
	notify := notifier.New()
	registry := live.NewRegistry(eng, notify, clock)
	t.Cleanup(registry.Close)

	return &TestFixture{
		Engine:       eng,
		Registry:     registry,
		Notifier:     notify,
		SessionStore: NewTestSessionStore(),
		Clock:        clock,
		TargetPath:   targetPath,
	}
}

// StartContacts starts a live session for ContactsCSV.
func (f *TestFixture) StartContacts(t *testing.T) string {
	t.Helper()
	res, err := source.Decode("contacts.csv", []byte(ContactsCSV), f.Engine.SourceOptions())
	require.NoError(t, err)
	ls, err := f.Registry.Start(res)
	require.NoError(t, err)
	return ls.ID()
}

// Session runs fn on the live session id.
func (f *TestFixture) Session(t *testing.T, id string, fn func(*reconcile.Session)) {
	t.Helper()
	require.NoError(t, f.Registry.View(id, func(s *reconcile.Session) error {
		fn(s)
		return nil
	}))
}

// RequestWithPathParams wraps a request with chi URL params given as
// key, value pairs.
func RequestWithPathParams(r *http.Request, kv ...string) *http.Request {
	rctx := chi.NewRouteContext()
	for i := 0; i+1 < len(kv); i += 2 {
		rctx.URLParams.Add(kv[i], kv[i+1])
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// NewTestSessionStore creates a session store for testing.
func NewTestSessionStore() *sessions.CookieStore {
	return sessions.NewCookieStore([]byte("test-secret-key-32-bytes-long!!"))
}
