package engine

import (
	"context"
	"database/sql"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapimport/internal/importer"
	"github.com/leapstack-labs/leapimport/internal/reconcile"
	"github.com/leapstack-labs/leapimport/internal/schema"
	"github.com/leapstack-labs/leapimport/internal/source"
	"github.com/leapstack-labs/leapimport/internal/state"
	"github.com/leapstack-labs/leapimport/internal/testutil"
)

const contactsSchema = `name: contacts
table: contacts
fields:
  - id: email
    name: Email
    required: true
    aliases: [e-mail]
  - id: first_name
    name: First Name
    required: true
  - id: phone
    name: Phone
`

const contactsCSV = "E-mail,Given,Phone,Notes\nada@example.com,Ada,555-0100,x\nalan@example.com,Alan,,y\n"

func newTestEngine(t *testing.T) (*Engine, string) {
	t.Helper()

	sch, err := schema.Parse(strings.NewReader(contactsSchema))
	require.NoError(t, err)

	dir := t.TempDir()
	targetPath := filepath.Join(dir, "out", "imports.db")
	eng, err := New(Config{
		Schema:    sch,
		StatePath: filepath.Join(dir, "state", "state.db"),
		Target:    importer.Config{Type: "sqlite", DSN: targetPath},
		Logger:    testutil.NewTestLogger(t),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = eng.Close() })
	return eng, targetPath
}

func startContacts(t *testing.T, eng *Engine) *reconcile.Session {
	t.Helper()
	res, err := source.Decode("contacts.csv", []byte(contactsCSV), eng.SourceOptions())
	require.NoError(t, err)
	sess, err := eng.Start(res)
	require.NoError(t, err)
	t.Cleanup(sess.Close)
	return sess
}

func TestNew(t *testing.T) {
	eng, _ := newTestEngine(t)

	assert.Equal(t, "contacts", eng.Schema().Name)
	assert.Equal(t, "contacts", eng.Target().Table, "table defaults to the schema table")
	assert.NotNil(t, eng.Store())
}

func TestNew_RequiresSchema(t *testing.T) {
	_, err := New(Config{StatePath: ":memory:"})
	require.Error(t, err)
}

func TestNew_TableFallsBackToSchemaName(t *testing.T) {
	sch := &schema.Schema{Name: "leads", Fields: []reconcile.TargetField{{ID: "email"}}}
	eng, err := New(Config{Schema: sch, StatePath: ":memory:", Target: importer.Config{Type: "sqlite"}})
	require.NoError(t, err)
	defer func() { _ = eng.Close() }()

	assert.Equal(t, "leads", eng.Target().Table)
}

func TestEngine_StartSaveResume(t *testing.T) {
	eng, _ := newTestEngine(t)
	sess := startContacts(t, eng)

	field, ok := sess.Match("E-mail")
	require.True(t, ok, "alias should auto-match")
	assert.Equal(t, "email", field)
	field, ok = sess.Match("Phone")
	require.True(t, ok)
	assert.Equal(t, "phone", field)

	_, err := sess.TryAssign("Given", "first_name")
	require.NoError(t, err)
	require.NoError(t, sess.ToggleIgnore("Notes"))
	require.NoError(t, eng.Save(sess))

	records, err := eng.Sessions("")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, sess.ID(), records[0].ID)
	assert.Equal(t, "contacts", records[0].SchemaName)
	assert.Equal(t, reconcile.PhaseReviewing, records[0].Phase)

	resumed, err := eng.Resume(sess.ID())
	require.NoError(t, err)
	defer resumed.Close()

	assert.Equal(t, sess.Assignment(), resumed.Assignment())
	assert.True(t, resumed.IsIgnored("Notes"))
}

func TestEngine_ResumeUnknown(t *testing.T) {
	eng, _ := newTestEngine(t)

	_, err := eng.Resume("missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, state.ErrNotFound)
}

func TestEngine_ProceedBlocked(t *testing.T) {
	eng, _ := newTestEngine(t)
	sess := startContacts(t, eng)

	res, err := eng.Proceed(context.Background(), sess)
	require.NoError(t, err)
	assert.True(t, res.Blocked())
	require.Len(t, res.Missing, 1)
	assert.Equal(t, "first_name", res.Missing[0].ID)
	assert.Equal(t, reconcile.PhaseReviewing, sess.Phase())

	imports, err := eng.Store().ListImports("")
	require.NoError(t, err)
	assert.Empty(t, imports)
}

func TestEngine_ProceedImports(t *testing.T) {
	eng, targetPath := newTestEngine(t)
	sess := startContacts(t, eng)
	require.NoError(t, eng.Save(sess))

	_, err := sess.TryAssign("Given", "first_name")
	require.NoError(t, err)

	res, err := eng.Proceed(context.Background(), sess)
	require.NoError(t, err)
	require.True(t, res.HandedOff)
	assert.Equal(t, reconcile.PhaseCompleted, sess.Phase())

	rec, err := eng.Store().GetSession(sess.ID())
	require.NoError(t, err)
	assert.Equal(t, reconcile.PhaseCompleted, rec.Phase, "completed session is saved")

	imports, err := eng.Store().ListImports(sess.ID())
	require.NoError(t, err)
	require.Len(t, imports, 1)
	assert.Equal(t, "sqlite", imports[0].TargetType)
	assert.Equal(t, "contacts", imports[0].TargetTable)
	assert.Equal(t, 2, imports[0].RowCount)
	assert.Equal(t, "first_name", imports[0].Mapping["Given"])

	require.NoError(t, eng.Close())
	db, err := sql.Open("sqlite", targetPath)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM "contacts" WHERE "first_name" <> ''`).Scan(&count))
	assert.Equal(t, 2, count)
}

func TestEngine_ImportOfUnsavedSession(t *testing.T) {
	eng, _ := newTestEngine(t)
	sess := startContacts(t, eng)
	_, err := sess.TryAssign("Given", "first_name")
	require.NoError(t, err)

	res, err := sess.Proceed(context.Background())
	require.NoError(t, err)
	require.True(t, res.HandedOff)

	imports, err := eng.Store().ListImports("")
	require.NoError(t, err)
	require.Len(t, imports, 1)
	assert.Empty(t, imports[0].SessionID)
}

func TestEngine_ImportSurvivesHistoryFailure(t *testing.T) {
	eng, targetPath := newTestEngine(t)
	sess := startContacts(t, eng)
	_, err := sess.TryAssign("Given", "first_name")
	require.NoError(t, err)

	require.NoError(t, eng.Store().Close())

	res, err := sess.Proceed(context.Background())
	require.NoError(t, err)
	require.True(t, res.HandedOff)
	assert.Equal(t, reconcile.PhaseCompleted, sess.Phase())

	_ = eng.Close()
	db, err := sql.Open("sqlite", targetPath)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM "contacts"`).Scan(&count))
	assert.Equal(t, 2, count)
}

func TestEngine_Delete(t *testing.T) {
	eng, _ := newTestEngine(t)
	sess := startContacts(t, eng)
	require.NoError(t, eng.Save(sess))

	require.NoError(t, eng.Delete(sess.ID()))
	_, err := eng.Resume(sess.ID())
	assert.ErrorIs(t, err, state.ErrNotFound)
}
