package commands

import (
	"fmt"
	"os"
	"strconv"

	"github.com/leapstack-labs/leapimport/internal/cli/output"
	"github.com/leapstack-labs/leapimport/internal/reconcile"
	"github.com/leapstack-labs/leapimport/internal/state"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const timeFormat = "2006-01-02 15:04"

// NewSessionsCommand creates the sessions command group.
func NewSessionsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "sessions",
		Aliases: []string{"session"},
		Short:   "Manage saved reconciliation sessions",
	}
	cmd.AddCommand(
		newSessionsListCommand(),
		newSessionsShowCommand(),
		newSessionsResumeCommand(),
		newSessionsDeleteCommand(),
	)
	return cmd
}

func newSessionsListCommand() *cobra.Command {
	var phase string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List saved sessions, newest first",
		Example: `  leapimport sessions list
  leapimport sessions list --phase reviewing`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			switch reconcile.Phase(phase) {
			case "", reconcile.PhaseReviewing, reconcile.PhaseCompleted:
			default:
				return fmt.Errorf("invalid phase %q (expected reviewing or completed)", phase)
			}

			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			records, err := cmdCtx.Engine.Sessions(reconcile.Phase(phase))
			if err != nil {
				return err
			}
			return renderSessionList(cmdCtx.Renderer, records)
		},
	}

	cmd.Flags().StringVar(&phase, "phase", "", "Only list sessions in this phase (reviewing|completed)")
	_ = cmd.RegisterFlagCompletionFunc("phase", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{string(reconcile.PhaseReviewing), string(reconcile.PhaseCompleted)}, cobra.ShellCompDirectiveNoFileComp
	})
	return cmd
}

func sessionInfo(rec *state.SessionRecord) output.SessionInfo {
	return output.SessionInfo{
		ID:        rec.ID,
		FileName:  rec.FileName,
		Schema:    rec.SchemaName,
		Phase:     string(rec.Phase),
		Mode:      rec.Snapshot.Mode,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}
}

func renderSessionList(r *output.Renderer, records []*state.SessionRecord) error {
	infos := make([]output.SessionInfo, len(records))
	for i, rec := range records {
		infos[i] = sessionInfo(rec)
	}

	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(infos)
	}
	if len(infos) == 0 {
		r.Muted("No sessions")
		return nil
	}

	r.Header(1, fmt.Sprintf("Sessions (%d)", len(infos)))
	rows := make([][]string, len(infos))
	for i, s := range infos {
		rows[i] = []string{s.ID, s.FileName, s.Schema, s.Phase, s.UpdatedAt.Local().Format(timeFormat)}
	}
	r.Table([]string{"ID", "File", "Schema", "Phase", "Updated"}, rows)
	return nil
}

func newSessionsShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a saved session's matches and imports",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			eng := cmdCtx.Engine
			rec, err := eng.Store().GetSession(args[0])
			if err != nil {
				return err
			}
			sess, err := eng.Resume(rec.ID)
			if err != nil {
				return err
			}
			defer sess.Close()

			imports, err := eng.Store().ListImports(rec.ID)
			if err != nil {
				return err
			}

			sum := matchSummary(sess.Summary())
			detail := output.SessionDetail{
				SessionInfo: sessionInfo(rec),
				Columns:     columnMatches(sess),
				Missing:     fieldRefs(sess.MissingRequired()),
				Imports:     make([]output.ImportInfo, len(imports)),
			}
			detail.Summary = &sum
			for i, imp := range imports {
				detail.Imports[i] = output.ImportInfo{
					ID:          imp.ID,
					SessionID:   imp.SessionID,
					FileName:    imp.FileName,
					TargetType:  imp.TargetType,
					TargetTable: imp.TargetTable,
					RowCount:    imp.RowCount,
					Mapping:     imp.Mapping,
					ImportedAt:  imp.ImportedAt,
				}
			}
			return renderSessionDetail(cmdCtx.Renderer, detail)
		},
	}
}

func renderSessionDetail(r *output.Renderer, d output.SessionDetail) error {
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(d)
	}

	r.Header(1, fmt.Sprintf("Session %s", d.ID))
	if r.EffectiveMode() == output.ModeMarkdown {
		r.Println(output.FormatKeyValue("File", d.FileName))
		r.Println(output.FormatKeyValue("Schema", d.Schema))
		r.Println(output.FormatKeyValue("Phase", d.Phase))
		r.Println(output.FormatKeyValue("Mode", d.Mode))
		r.Println(output.FormatKeyValue("Updated", d.UpdatedAt.Local().Format(timeFormat)))
		r.Println()
	} else {
		r.Muted(fmt.Sprintf("%s, %s, %s (%s)", d.FileName, d.Schema, d.Phase, d.Mode))
	}

	renderColumns(r, d.Columns)
	r.Println()
	if d.Summary != nil {
		r.Muted(summaryLine(*d.Summary))
	}
	renderMissing(r, d.Missing)

	if len(d.Imports) > 0 {
		r.Println()
		r.Header(2, "Imports")
		rows := make([][]string, len(d.Imports))
		for i, imp := range d.Imports {
			rows[i] = []string{imp.ImportedAt.Local().Format(timeFormat), imp.TargetType, imp.TargetTable, strconv.Itoa(imp.RowCount)}
		}
		r.Table([]string{"Imported", "Target", "Table", "Rows"}, rows)
	}
	return nil
}

func newSessionsResumeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "resume <id>",
		Short: "Continue reviewing a saved session in the terminal",
		Long: `Continue reviewing a saved session.

On a terminal the interactive review opens; otherwise commands are read
line by line as in "leapimport shell".`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if term.IsTerminal(int(os.Stdin.Fd())) {
				return runReview(cmd, "", args[0])
			}
			return runShell(cmd, "", args[0])
		},
	}
}

func newSessionsDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>...",
		Aliases: []string{"rm"},
		Short:   "Delete saved sessions (import history is kept)",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			for _, id := range args {
				if err := cmdCtx.Engine.Delete(id); err != nil {
					return err
				}
				cmdCtx.Renderer.Success("Deleted session " + id)
			}
			return nil
		},
	}
}
