package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapimport/internal/cli/config"
	"github.com/leapstack-labs/leapimport/internal/cli/output"
	"github.com/leapstack-labs/leapimport/internal/engine"
	"github.com/leapstack-labs/leapimport/internal/reconcile"
)

// NewShellCommand creates the shell command.
func NewShellCommand() *cobra.Command {
	var sessionID string

	cmd := &cobra.Command{
		Use:   "shell [file]",
		Short: "Review column matches from a line-oriented prompt",
		Long: `Open a prompt for reviewing an upload or a saved session one command at a
time. It exposes the same operations as the interactive review surface and
works over plain pipes, so it can be scripted.

Columns are referenced by header or by their 1-based position. Type 'help'
for the list of commands.`,
		Example: `  leapimport shell contacts.csv
  printf 'assign Mobile phone\nproceed\n' | leapimport shell contacts.csv`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file := ""
			if len(args) == 1 {
				file = args[0]
			}
			return runShell(cmd, file, sessionID)
		},
	}

	cmd.Flags().StringVar(&sessionID, "session", "", "Resume a saved session")

	return cmd
}

func runShell(cmd *cobra.Command, file, sessionID string) error {
	if (file == "") == (sessionID == "") {
		return errors.New("specify either a file or --session")
	}
	if file != "" {
		if err := requireFile(file); err != nil {
			return err
		}
	}

	clock := reconcile.NewManualScheduler()
	cmdCtx, cleanup, err := NewCommandContext(cmd, reconcile.WithScheduler(clock))
	if err != nil {
		return err
	}
	defer cleanup()

	eng := cmdCtx.Engine
	var sess *reconcile.Session
	if sessionID != "" {
		sess, err = eng.Resume(sessionID)
	} else {
		sess, _, err = eng.StartFile(file)
	}
	if err != nil {
		return err
	}
	defer sess.Close()

	sh := newShell(cmd.Context(), eng, sess, clock, cmdCtx.Renderer, cmdCtx.Cfg.Viewport.ColumnWidth)

	historyFile := filepath.Join(filepath.Dir(cmdCtx.Cfg.StatePath), "shell_history")
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "leapimport> ",
		HistoryFile:     historyFile,
		AutoComplete:    sh.completer(),
		InterruptPrompt: "^C",
		EOFPrompt:       "quit",
		Stdin:           io.NopCloser(cmd.InOrStdin()),
		Stdout:          cmd.OutOrStdout(),
		Stderr:          cmd.ErrOrStderr(),
	})
	if err != nil {
		return fmt.Errorf("failed to initialize shell: %w", err)
	}
	defer func() { _ = rl.Close() }()

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Reviewing %s (session %s)\n", filepath.Base(sess.Table().FileName), sess.ID())
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Type help for commands, quit to save and exit")
	_, _ = fmt.Fprintln(cmd.OutOrStdout())

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if errors.Is(err, io.EOF) {
			if err := sh.exec("quit"); !errors.Is(err, errQuit) {
				return err
			}
			return nil
		}
		if err != nil {
			return err
		}

		if err := sh.exec(line); err != nil {
			if errors.Is(err, errQuit) {
				return nil
			}
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		}
	}
}

var errQuit = errors.New("quit")

// shell executes review commands against one session. Timers run on a
// manual clock that is flushed after each geometry change, so every command
// sees settled viewport stats.
type shell struct {
	ctx   context.Context
	eng   *engine.Engine
	sess  *reconcile.Session
	clock *reconcile.ManualScheduler
	r     *output.Renderer
	geom  reconcile.Geometry
}

// shellVisibleColumns is how many columns the initial layout shows.
const shellVisibleColumns = 4

func newShell(ctx context.Context, eng *engine.Engine, sess *reconcile.Session, clock *reconcile.ManualScheduler, r *output.Renderer, columnWidth int) *shell {
	if columnWidth <= 0 {
		columnWidth = config.DefaultColumnWidth
	}
	sh := &shell{
		ctx:   ctx,
		eng:   eng,
		sess:  sess,
		clock: clock,
		r:     r,
		geom: reconcile.Geometry{
			VisibleWidth: float64(columnWidth * shellVisibleColumns),
			ColumnWidth:  float64(columnWidth),
		},
	}
	sess.Navigator().ReportLayout(sh.geom)
	clock.Flush()
	return sh
}

type shellCommand struct {
	usage string
	help  string
	run   func(sh *shell, args []string) error
}

var shellCommands map[string]shellCommand

var shellOrder = []string{
	"help", "columns", "fields", "status",
	"assign", "change", "done", "unassign", "ignore",
	"select", "resolve", "cancel",
	"scroll", "layout", "jump",
	"reset", "proceed", "save", "quit",
}

func init() {
	shellCommands = map[string]shellCommand{
		"help":     {"help", "Show this help", (*shell).cmdHelp},
		"columns":  {"columns", "List columns with their matches", (*shell).cmdColumns},
		"fields":   {"fields", "List target fields and which column holds each", (*shell).cmdFields},
		"status":   {"status", "Show mode, counts and viewport indicators", (*shell).cmdStatus},
		"assign":   {"assign <column> <field>", "Match a column to a field", (*shell).cmdAssign},
		"change":   {"change <column>", "Enter change mode for a column", (*shell).cmdChange},
		"done":     {"done", "Leave change mode", (*shell).cmdDone},
		"unassign": {"unassign <column>", "Remove a column's match", (*shell).cmdUnassign},
		"ignore":   {"ignore <column>", "Toggle ignoring a column", (*shell).cmdIgnore},
		"select":   {"select <column|1|2>", "Choose which conflicting column keeps the field", (*shell).cmdSelect},
		"resolve":  {"resolve", "Commit the conflict selection", (*shell).cmdResolve},
		"cancel":   {"cancel", "Abandon the open conflict", (*shell).cmdCancel},
		"scroll":   {"scroll <offset>", "Set the viewport scroll offset in pixels", (*shell).cmdScroll},
		"layout":   {"layout <visible_width> [column_width]", "Set the viewport size in pixels", (*shell).cmdLayout},
		"jump":     {"jump left|right", "Scroll to the nearest unmatched column off-screen", (*shell).cmdJump},
		"reset":    {"reset", "Clear every match and ignore", (*shell).cmdReset},
		"proceed":  {"proceed", "Import if every required field is matched", (*shell).cmdProceed},
		"save":     {"save", "Save the session", (*shell).cmdSave},
		"quit":     {"quit", "Save and exit", (*shell).cmdQuit},
	}
	shellCommands["exit"] = shellCommands["quit"]
	shellCommands["ls"] = shellCommands["columns"]
}

// exec runs one command line. It returns errQuit when the shell should exit.
func (sh *shell) exec(line string) error {
	args, err := splitArgs(line)
	if err != nil {
		return err
	}
	if len(args) == 0 {
		return nil
	}

	name := strings.ToLower(args[0])
	c, ok := shellCommands[name]
	if !ok {
		return fmt.Errorf("unknown command %q (type help for commands)", name)
	}
	return c.run(sh, args[1:])
}

func (sh *shell) completer() *readline.PrefixCompleter {
	columns := readline.PcItemDynamic(func(string) []string { return sh.sess.Columns() })
	fieldIDs := func(string) []string {
		ids := make([]string, 0, len(sh.sess.Fields()))
		for _, f := range sh.sess.Fields() {
			ids = append(ids, f.ID)
		}
		return ids
	}

	items := make([]readline.PrefixCompleterInterface, 0, len(shellOrder))
	for _, name := range shellOrder {
		switch name {
		case "assign":
			items = append(items, readline.PcItem(name,
				readline.PcItemDynamic(func(string) []string { return sh.sess.Columns() },
					readline.PcItemDynamic(fieldIDs))))
		case "change", "unassign", "ignore", "select":
			items = append(items, readline.PcItem(name, columns))
		case "jump":
			items = append(items, readline.PcItem(name, readline.PcItem("left"), readline.PcItem("right")))
		default:
			items = append(items, readline.PcItem(name))
		}
	}
	return readline.NewPrefixCompleter(items...)
}

// column resolves a header or 1-based column position.
func (sh *shell) column(arg string) (string, error) {
	cols := sh.sess.Columns()
	if _, ok := sh.sess.ColumnIndex(arg); ok {
		return arg, nil
	}
	if n, err := strconv.Atoi(arg); err == nil {
		if n < 1 || n > len(cols) {
			return "", fmt.Errorf("column %d out of range (1-%d)", n, len(cols))
		}
		return cols[n-1], nil
	}
	return "", fmt.Errorf("unknown column %q", arg)
}

func needArgs(args []string, n int, usage string) error {
	if len(args) != n {
		return fmt.Errorf("usage: %s", usage)
	}
	return nil
}

func (sh *shell) cmdHelp([]string) error {
	rows := make([][]string, 0, len(shellOrder))
	for _, name := range shellOrder {
		c := shellCommands[name]
		rows = append(rows, []string{c.usage, c.help})
	}
	sh.r.Table([]string{"Command", "Description"}, rows)
	return nil
}

func (sh *shell) cmdColumns([]string) error {
	renderColumns(sh.r, columnMatches(sh.sess))
	return nil
}

func (sh *shell) cmdFields([]string) error {
	rows := make([][]string, 0, len(sh.sess.Fields()))
	for _, f := range sh.sess.Fields() {
		req := ""
		if f.Required {
			req = "yes"
		}
		holder, _ := sh.sess.Holder(f.ID)
		rows = append(rows, []string{f.ID, f.Label(), req, holder})
	}
	sh.r.Table([]string{"Field", "Name", "Required", "Column"}, rows)
	return nil
}

func (sh *shell) cmdStatus([]string) error {
	sh.r.StatusLine("Mode", sh.sess.Mode().String(), "")
	sh.r.StatusLine("Phase", string(sh.sess.Phase()), "")
	sh.r.Println(summaryLine(matchSummary(sh.sess.Summary())))

	stats := sh.sess.ViewportStats()
	if stats.LeftCount > 0 {
		sh.r.Warning(fmt.Sprintf("%d unmatched to the left (nearest: column %d)", stats.LeftCount, stats.LeftFirstUnmatchedIndex+1))
	}
	if stats.RightCount > 0 {
		sh.r.Warning(fmt.Sprintf("%d unmatched to the right (nearest: column %d)", stats.RightCount, stats.RightFirstUnmatchedIndex+1))
	}

	if c := sh.sess.Conflict(); c != nil {
		sh.printConflict(c)
	}
	if missing := sh.sess.MissingRequired(); len(missing) > 0 {
		renderMissing(sh.r, fieldRefs(missing))
	}
	return nil
}

func (sh *shell) printConflict(c *reconcile.DuplicationConflict) {
	sh.r.Warning(fmt.Sprintf("Both %q and %q want %s", c.HeaderA, c.HeaderB, c.Field.Label()))
	sh.r.Table(
		[]string{"", "1. " + c.HeaderA, "2. " + c.HeaderB},
		[][]string{{"Preview", previewText(c.PreviewA), previewText(c.PreviewB)}},
	)
	if c.Selected != "" {
		sh.r.Muted(fmt.Sprintf("Selected: %s", c.Selected))
	}
	sh.r.Muted("select 1|2, then resolve (or cancel)")
}

func (sh *shell) cmdAssign(args []string) error {
	if err := needArgs(args, 2, shellCommands["assign"].usage); err != nil {
		return err
	}
	header, err := sh.column(args[0])
	if err != nil {
		return err
	}
	conflict, err := sh.sess.TryAssign(header, args[1])
	if err != nil {
		return err
	}
	sh.settle()
	if conflict != nil {
		sh.printConflict(conflict)
		return nil
	}
	f, _ := sh.sess.Field(args[1])
	sh.r.Success(fmt.Sprintf("%q → %s", header, f.Label()))
	return nil
}

func (sh *shell) cmdChange(args []string) error {
	if err := needArgs(args, 1, shellCommands["change"].usage); err != nil {
		return err
	}
	header, err := sh.column(args[0])
	if err != nil {
		return err
	}
	if err := sh.sess.EnterChangeMode(header); err != nil {
		return err
	}
	return sh.cmdFields(nil)
}

func (sh *shell) cmdDone([]string) error {
	return sh.sess.ExitChangeMode()
}

func (sh *shell) cmdUnassign(args []string) error {
	if err := needArgs(args, 1, shellCommands["unassign"].usage); err != nil {
		return err
	}
	header, err := sh.column(args[0])
	if err != nil {
		return err
	}
	if err := sh.sess.Unassign(header); err != nil {
		return err
	}
	sh.settle()
	return nil
}

func (sh *shell) cmdIgnore(args []string) error {
	if err := needArgs(args, 1, shellCommands["ignore"].usage); err != nil {
		return err
	}
	header, err := sh.column(args[0])
	if err != nil {
		return err
	}
	if err := sh.sess.ToggleIgnore(header); err != nil {
		return err
	}
	sh.settle()
	if sh.sess.IsIgnored(header) {
		sh.r.Muted(fmt.Sprintf("Ignoring %q", header))
	} else {
		sh.r.Muted(fmt.Sprintf("Including %q", header))
	}
	return nil
}

func (sh *shell) cmdSelect(args []string) error {
	if err := needArgs(args, 1, shellCommands["select"].usage); err != nil {
		return err
	}
	c := sh.sess.Conflict()
	if c == nil {
		return sh.sess.SelectHeaderToResolve(args[0])
	}

	header := args[0]
	switch header {
	case "1":
		header = c.HeaderA
	case "2":
		header = c.HeaderB
	}
	return sh.sess.SelectHeaderToResolve(header)
}

func (sh *shell) cmdResolve([]string) error {
	c := sh.sess.Conflict()
	if c == nil {
		return sh.sess.Resolve()
	}
	if err := sh.sess.Resolve(); err != nil {
		return err
	}
	sh.settle()
	sh.r.Success(fmt.Sprintf("%q keeps %s", c.Selected, c.Field.Label()))
	return nil
}

func (sh *shell) cmdCancel([]string) error {
	return sh.sess.Cancel()
}

func (sh *shell) cmdScroll(args []string) error {
	if err := needArgs(args, 1, shellCommands["scroll"].usage); err != nil {
		return err
	}
	off, err := strconv.ParseFloat(args[0], 64)
	if err != nil || off < 0 {
		return fmt.Errorf("invalid offset %q", args[0])
	}
	sh.geom.ScrollOffset = off
	sh.sess.Navigator().ReportScroll(sh.geom)
	sh.clock.Flush()
	return sh.cmdStatus(nil)
}

func (sh *shell) cmdLayout(args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return fmt.Errorf("usage: %s", shellCommands["layout"].usage)
	}
	width, err := strconv.ParseFloat(args[0], 64)
	if err != nil || width <= 0 {
		return fmt.Errorf("invalid width %q", args[0])
	}
	sh.geom.VisibleWidth = width
	if len(args) == 2 {
		cw, err := strconv.ParseFloat(args[1], 64)
		if err != nil || cw <= 0 {
			return fmt.Errorf("invalid column width %q", args[1])
		}
		sh.geom.ColumnWidth = cw
	}
	sh.sess.Navigator().ReportLayout(sh.geom)
	sh.clock.Flush()
	return sh.cmdStatus(nil)
}

func (sh *shell) cmdJump(args []string) error {
	if err := needArgs(args, 1, shellCommands["jump"].usage); err != nil {
		return err
	}
	nav := sh.sess.Navigator()
	var (
		off float64
		ok  bool
	)
	switch strings.ToLower(args[0]) {
	case "left", "l":
		off, ok = nav.JumpLeft()
	case "right", "r":
		off, ok = nav.JumpRight()
	default:
		return fmt.Errorf("usage: %s", shellCommands["jump"].usage)
	}
	if !ok {
		sh.r.Muted("No unmatched columns in that direction")
		return nil
	}

	idx := int(off / sh.geom.ColumnWidth)
	sh.r.Println(fmt.Sprintf("Scrolled to column %d (%s)", idx+1, sh.sess.Columns()[idx]))
	return sh.cmdScroll([]string{strconv.FormatFloat(off, 'f', -1, 64)})
}

func (sh *shell) cmdReset([]string) error {
	sh.sess.Reset()
	sh.settle()
	sh.r.Muted("All matches cleared")
	return nil
}

func (sh *shell) cmdProceed([]string) error {
	res, err := sh.eng.Proceed(sh.ctx, sh.sess)
	if err != nil {
		return err
	}
	if res.Blocked() {
		renderMissing(sh.r, fieldRefs(res.Missing))
		return nil
	}
	target := sh.eng.Target()
	sh.r.Success(fmt.Sprintf("Imported %d rows into %s (%s)", len(sh.sess.Table().Rows), target.Table, target.Type))
	return errQuit
}

func (sh *shell) cmdSave([]string) error {
	if err := sh.eng.Save(sh.sess); err != nil {
		return err
	}
	sh.r.Muted(fmt.Sprintf("Session saved as %s", sh.sess.ID()))
	return nil
}

func (sh *shell) cmdQuit([]string) error {
	if sh.sess.Phase() == reconcile.PhaseReviewing {
		if err := sh.cmdSave(nil); err != nil {
			return err
		}
	}
	return errQuit
}

// settle flushes the layout invalidation triggered by a match change.
func (sh *shell) settle() {
	sh.clock.Flush()
}

// splitArgs splits a command line on whitespace, honoring single and double
// quotes so headers with spaces can be named.
func splitArgs(line string) ([]string, error) {
	var (
		args    []string
		cur     strings.Builder
		quote   rune
		inToken bool
	)
	for _, r := range line {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
				continue
			}
			cur.WriteRune(r)
		case r == '"' || r == '\'':
			quote = r
			inToken = true
		case r == ' ' || r == '\t':
			if inToken {
				args = append(args, cur.String())
				cur.Reset()
				inToken = false
			}
		default:
			cur.WriteRune(r)
			inToken = true
		}
	}
	if quote != 0 {
		return nil, fmt.Errorf("unterminated quote in %q", line)
	}
	if inToken {
		args = append(args, cur.String())
	}
	return args, nil
}
