package commands

import (
	"errors"
	"fmt"
	"strings"

	"github.com/leapstack-labs/leapimport/internal/cli/output"
	"github.com/leapstack-labs/leapimport/internal/reconcile"
	"github.com/spf13/cobra"
)

// ImportOptions holds options for the import command.
type ImportOptions struct {
	Session string
	Maps    []string
	Ignore  []string
}

// NewImportCommand creates the import command.
func NewImportCommand() *cobra.Command {
	opts := &ImportOptions{}

	cmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Reconcile and import an upload without the review UI",
		Long: `Auto-match an upload (or resume a saved session), apply explicit
column assignments and ignores, then import it into the configured target.

The import is refused while any required field is unmatched. Assigning a
field that another column already holds is an error: resolve it with
'leapimport review' or assign the other column elsewhere first.`,
		Example: `  # Import with the auto-match as is
  leapimport import contacts.csv

  # Fix up the auto-match
  leapimport import contacts.csv --map "Given Name=first_name" --ignore Notes

  # Finish a saved session
  leapimport import --session 0b4e...`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file := ""
			if len(args) == 1 {
				file = args[0]
			}
			return runImport(cmd, file, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Session, "session", "", "Resume a saved session instead of reading a file")
	cmd.Flags().StringArrayVar(&opts.Maps, "map", nil, "Assign a column to a field (header=field_id, repeatable)")
	cmd.Flags().StringArrayVar(&opts.Ignore, "ignore", nil, "Ignore a column (repeatable)")

	return cmd
}

// parseMapping splits "header=field" on the last '='.
func parseMapping(s string) (header, field string, err error) {
	i := strings.LastIndex(s, "=")
	if i <= 0 || i == len(s)-1 {
		return "", "", fmt.Errorf("invalid --map %q (expected header=field_id)", s)
	}
	return s[:i], s[i+1:], nil
}

func runImport(cmd *cobra.Command, file string, opts *ImportOptions) error {
	if (file == "") == (opts.Session == "") {
		return errors.New("specify either a file or --session")
	}
	if file != "" {
		if err := requireFile(file); err != nil {
			return err
		}
	}

	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	eng := cmdCtx.Engine
	r := cmdCtx.Renderer

	var sess *reconcile.Session
	if opts.Session != "" {
		sess, err = eng.Resume(opts.Session)
	} else {
		sess, _, err = eng.StartFile(file)
	}
	if err != nil {
		return err
	}
	defer sess.Close()

	if sess.Phase() == reconcile.PhaseCompleted {
		return fmt.Errorf("session %s was already imported", sess.ID())
	}
	if c := sess.Conflict(); c != nil {
		return fmt.Errorf("session %s has an unresolved conflict on %q; resolve it with 'leapimport review --session %s'",
			sess.ID(), c.Field.Label(), sess.ID())
	}

	if err := applyEdits(sess, opts); err != nil {
		return err
	}

	res, err := eng.Proceed(cmd.Context(), sess)
	if err != nil {
		return err
	}

	missing := fieldRefs(res.Missing)
	if r.EffectiveMode() == output.ModeJSON {
		if err := r.JSON(map[string]any{
			"session_id":       sess.ID(),
			"imported":         res.HandedOff,
			"mapping":          res.Mapping,
			"missing_required": missing,
		}); err != nil {
			return err
		}
	} else if res.HandedOff {
		target := eng.Target()
		r.Success(fmt.Sprintf("Imported %d rows into %s (%s)", len(sess.Table().Rows), target.Table, target.Type))
		r.Muted(summaryLine(matchSummary(sess.Summary())))
	} else {
		renderMissing(r, missing)
	}

	if res.Blocked() {
		// Keep the edits so the session can be finished interactively.
		if err := eng.Save(sess); err != nil {
			return err
		}
		return fmt.Errorf("%w; session saved as %s", ErrMissingRequired, sess.ID())
	}
	return nil
}

// applyEdits applies --map and --ignore to sess.
func applyEdits(sess *reconcile.Session, opts *ImportOptions) error {
	for _, m := range opts.Maps {
		header, field, err := parseMapping(m)
		if err != nil {
			return err
		}
		conflict, err := sess.TryAssign(header, field)
		if err != nil {
			return err
		}
		if conflict != nil {
			_ = sess.Cancel()
			return fmt.Errorf("cannot assign %q to %s: already matched by %q", header, field, conflict.Other(header))
		}
	}

	for _, header := range opts.Ignore {
		if !sess.IsIgnored(header) {
			if err := sess.ToggleIgnore(header); err != nil {
				return err
			}
		}
	}
	return nil
}
