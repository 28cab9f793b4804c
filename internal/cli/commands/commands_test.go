package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapimport/internal/cli/config"
	"github.com/leapstack-labs/leapimport/internal/cli/output"
	"github.com/leapstack-labs/leapimport/internal/cli/testutil"
	"github.com/leapstack-labs/leapimport/internal/reconcile"
	"github.com/leapstack-labs/leapimport/internal/state"
)

func TestSplitArgs(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		want    []string
		wantErr bool
	}{
		{"empty", "   ", nil, false},
		{"plain", "assign Notes phone", []string{"assign", "Notes", "phone"}, false},
		{"double quotes", `assign "Given Name" phone`, []string{"assign", "Given Name", "phone"}, false},
		{"single quotes", `ignore 'E-mail'`, []string{"ignore", "E-mail"}, false},
		{"tabs", "jump\tright", []string{"jump", "right"}, false},
		{"empty quoted arg", `select ""`, []string{"select", ""}, false},
		{"unterminated", `assign "Given Name phone`, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := splitArgs(tt.line)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseMapping(t *testing.T) {
	tests := []struct {
		in         string
		wantHeader string
		wantField  string
		wantErr    bool
	}{
		{in: "Notes=phone", wantHeader: "Notes", wantField: "phone"},
		{in: "a=b=email", wantHeader: "a=b", wantField: "email"},
		{in: "Notes", wantErr: true},
		{in: "=phone", wantErr: true},
		{in: "Notes=", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			header, field, err := parseMapping(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantHeader, header)
			assert.Equal(t, tt.wantField, field)
		})
	}
}

// loadProject loads the config of a fresh test project and returns the
// project directory.
func loadProject(t *testing.T) (string, *config.Config) {
	t.Helper()
	config.ResetConfig()
	t.Cleanup(config.ResetConfig)

	dir := testutil.SetupTestProject(t)
	cfg, err := config.LoadConfig(filepath.Join(dir, "leapimport.yaml"), nil)
	require.NoError(t, err)
	return dir, cfg
}

type testShell struct {
	*shell
	out *testutil.TestRenderer
}

func newTestShell(t *testing.T) testShell {
	t.Helper()
	dir, cfg := loadProject(t)

	cmd := NewShellCommand()
	cmd.SetContext(context.Background())
	clock := reconcile.NewManualScheduler()
	cmdCtx, cleanup, err := NewCommandContext(cmd, reconcile.WithScheduler(clock))
	require.NoError(t, err)
	t.Cleanup(cleanup)

	sess, _, err := cmdCtx.Engine.StartFile(filepath.Join(dir, "uploads", "contacts.csv"))
	require.NoError(t, err)
	t.Cleanup(sess.Close)

	tr := testutil.NewTestRendererMarkdown()
	return testShell{
		shell: newShell(context.Background(), cmdCtx.Engine, sess, clock, tr.Renderer, cfg.Viewport.ColumnWidth),
		out:   tr,
	}
}

func TestShell_AutoMatch(t *testing.T) {
	sh := newTestShell(t)

	assert.Equal(t, map[string]string{
		"E-mail":     "email",
		"Given Name": "first_name",
		"Surname":    "last_name",
	}, sh.sess.Assignment())
	assert.Equal(t, reconcile.ViewportStats{LeftFirstUnmatchedIndex: -1, RightFirstUnmatchedIndex: -1}, sh.sess.ViewportStats())
}

func TestShell_Assign(t *testing.T) {
	tests := []struct {
		name       string
		line       string
		wantField  string
		wantHolder string
	}{
		{"by header", "assign Notes phone", "phone", "Notes"},
		{"by index", "assign 4 phone", "phone", "Notes"},
		{"quoted header moves its match", `assign "Given Name" phone`, "phone", "Given Name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sh := newTestShell(t)
			require.NoError(t, sh.exec(tt.line))

			holder, ok := sh.sess.Holder(tt.wantField)
			require.True(t, ok)
			assert.Equal(t, tt.wantHolder, holder)
			assert.Equal(t, reconcile.Idle{}, sh.sess.Mode())
		})
	}
}

func TestShell_Errors(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		wantErr string
	}{
		{"unknown command", "frobnicate", "unknown command"},
		{"unknown column", "ignore Fax", `unknown column "Fax"`},
		{"column out of range", "ignore 9", "out of range"},
		{"missing args", "assign Notes", "usage: assign <column> <field>"},
		{"unknown field", "assign Notes fax", "fax"},
		{"bad offset", "scroll left", "invalid offset"},
		{"bad jump", "jump up", "usage: jump"},
		{"resolve without conflict", "resolve", "not allowed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sh := newTestShell(t)
			err := sh.exec(tt.line)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestShell_ConflictFlow(t *testing.T) {
	tests := []struct {
		name        string
		lines       []string
		wantHolder  string
		wantUnmatch string
	}{
		{
			name:        "incoming column wins",
			lines:       []string{"select 2", "resolve"},
			wantHolder:  "Notes",
			wantUnmatch: "E-mail",
		},
		{
			name:        "incumbent keeps the field",
			lines:       []string{"select 1", "resolve"},
			wantHolder:  "E-mail",
			wantUnmatch: "Notes",
		},
		{
			name:        "cancel leaves matches alone",
			lines:       []string{"cancel"},
			wantHolder:  "E-mail",
			wantUnmatch: "Notes",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sh := newTestShell(t)

			require.NoError(t, sh.exec("assign Notes email"))
			require.NotNil(t, sh.sess.Conflict())
			assert.Contains(t, sh.out.ErrorOutput(), "Both")

			// Nothing but conflict commands while it is open.
			assert.Error(t, sh.exec("assign Notes phone"))

			for _, line := range tt.lines {
				require.NoError(t, sh.exec(line), line)
			}

			assert.Nil(t, sh.sess.Conflict())
			holder, _ := sh.sess.Holder("email")
			assert.Equal(t, tt.wantHolder, holder)
			_, matched := sh.sess.Match(tt.wantUnmatch)
			assert.False(t, matched)
		})
	}
}

func TestShell_IgnoreToggle(t *testing.T) {
	sh := newTestShell(t)

	require.NoError(t, sh.exec("ignore Notes"))
	assert.True(t, sh.sess.IsIgnored("Notes"))
	assert.Contains(t, sh.out.Output(), `Ignoring "Notes"`)

	require.NoError(t, sh.exec("ignore 4"))
	assert.False(t, sh.sess.IsIgnored("Notes"))
}

func TestShell_LayoutAndJump(t *testing.T) {
	sh := newTestShell(t)

	// One column wide: Notes is off-screen to the right.
	require.NoError(t, sh.exec("layout 240"))
	stats := sh.sess.ViewportStats()
	assert.Equal(t, 1, stats.RightCount)
	assert.Equal(t, 3, stats.RightFirstUnmatchedIndex)

	require.NoError(t, sh.exec("jump right"))
	assert.Contains(t, sh.out.Output(), "Scrolled to column 4 (Notes)")
	stats = sh.sess.ViewportStats()
	assert.Equal(t, 0, stats.RightCount)
	assert.Equal(t, 0, stats.LeftCount)

	sh.out.Reset()
	require.NoError(t, sh.exec("jump right"))
	assert.Contains(t, sh.out.Output(), "No unmatched columns")
}

func TestShell_Proceed(t *testing.T) {
	t.Run("blocked", func(t *testing.T) {
		sh := newTestShell(t)
		require.NoError(t, sh.exec(`unassign E-mail`))

		require.NoError(t, sh.exec("proceed"))
		assert.Contains(t, sh.out.Output(), "Email")
		assert.Equal(t, reconcile.PhaseReviewing, sh.sess.Phase())
	})

	t.Run("imports and quits", func(t *testing.T) {
		sh := newTestShell(t)

		err := sh.exec("proceed")
		require.ErrorIs(t, err, errQuit)
		assert.Equal(t, reconcile.PhaseCompleted, sh.sess.Phase())
		assert.Contains(t, sh.out.Output(), "Imported 2 rows into contacts (sqlite)")

		imports, err := sh.eng.Store().ListImports("")
		require.NoError(t, err)
		require.Len(t, imports, 1)
		assert.Equal(t, 2, imports[0].RowCount)
	})
}

func TestShell_QuitSaves(t *testing.T) {
	sh := newTestShell(t)
	require.NoError(t, sh.exec("ignore Notes"))

	require.ErrorIs(t, sh.exec("quit"), errQuit)

	rec, err := sh.eng.Store().GetSession(sh.sess.ID())
	require.NoError(t, err)
	assert.Equal(t, reconcile.PhaseReviewing, rec.Phase)
	assert.Equal(t, []string{"Notes"}, rec.Snapshot.Ignored)
}

func TestMatchCommand(t *testing.T) {
	dir, cfg := loadProject(t)
	cfg.OutputFormat = string(output.ModeJSON)

	var out bytes.Buffer
	cmd := NewMatchCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{filepath.Join(dir, "uploads", "contacts.csv"), "--save"})
	require.NoError(t, cmd.ExecuteContext(context.Background()))

	var got output.MatchOutput
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, "contacts.csv", got.File)
	assert.Equal(t, "contacts", got.Schema)
	assert.Equal(t, 2, got.Rows)
	assert.Empty(t, got.Missing)
	require.Len(t, got.Columns, 4)
	assert.Equal(t, "email", got.Columns[0].Field)
	assert.Empty(t, got.Columns[3].Field)
	require.NotEmpty(t, got.SessionID)

	// --save persisted the session.
	store := state.NewSQLiteStore()
	require.NoError(t, store.Open(cfg.StatePath))
	defer func() { _ = store.Close() }()
	_, err := store.GetSession(got.SessionID)
	require.NoError(t, err)
}

func TestMatchCommand_Strict(t *testing.T) {
	dir, cfg := loadProject(t)
	cfg.OutputFormat = string(output.ModeJSON)

	path := filepath.Join(dir, "uploads", "partial.csv")
	testutil.WriteFile(t, path, "Surname,Notes\nLovelace,x\n")

	cmd := NewMatchCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{path, "--strict"})
	err := cmd.ExecuteContext(context.Background())
	require.ErrorIs(t, err, ErrMissingRequired)
}

func TestSessionSecret(t *testing.T) {
	t.Setenv("LEAPIMPORT_SESSION_SECRET", "")

	got, err := sessionSecret("configured")
	require.NoError(t, err)
	assert.Equal(t, "configured", got)

	t.Setenv("LEAPIMPORT_SESSION_SECRET", "from-env")
	got, err = sessionSecret("")
	require.NoError(t, err)
	assert.Equal(t, "from-env", got)

	t.Setenv("LEAPIMPORT_SESSION_SECRET", "")
	a, err := sessionSecret("")
	require.NoError(t, err)
	b, err := sessionSecret("")
	require.NoError(t, err)
	assert.Len(t, a, 64)
	assert.NotEqual(t, a, b)
	assert.False(t, strings.ContainsAny(a, " \n"))
}
