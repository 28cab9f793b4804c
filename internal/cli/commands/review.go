package commands

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/leapstack-labs/leapimport/internal/reconcile"
	"github.com/leapstack-labs/leapimport/internal/tui"
)

// NewReviewCommand creates the review command.
func NewReviewCommand() *cobra.Command {
	var sessionID string

	cmd := &cobra.Command{
		Use:   "review [file]",
		Short: "Review and fix column matches interactively",
		Long: `Open the interactive review surface for an upload or a saved session.

Columns are shown as cards. Move with ←/→, press enter to pick a field for
the focused column, i to ignore it and [ or ] to jump to the nearest
unmatched column scrolled out of view. Assigning a field another column
already holds opens a side-by-side comparison of both columns.

Press p to import once every required field is matched. Quitting saves the
session so it can be resumed with --session.`,
		Example: `  leapimport review contacts.csv
  leapimport review --session 0b4e...`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file := ""
			if len(args) == 1 {
				file = args[0]
			}
			return runReview(cmd, file, sessionID)
		},
	}

	cmd.Flags().StringVar(&sessionID, "session", "", "Resume a saved session")

	return cmd
}

func runReview(cmd *cobra.Command, file, sessionID string) error {
	if (file == "") == (sessionID == "") {
		return errors.New("specify either a file or --session")
	}
	if file != "" {
		if err := requireFile(file); err != nil {
			return err
		}
	}
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return errors.New("review needs an interactive terminal; use 'leapimport shell' or 'leapimport import' instead")
	}

	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	eng := cmdCtx.Engine
	r := cmdCtx.Renderer

	sched := tui.NewScheduler(nil)
	opt := reconcile.WithScheduler(sched)

	var sess *reconcile.Session
	if sessionID != "" {
		sess, err = eng.Resume(sessionID, opt)
	} else {
		sess, _, err = eng.StartFile(file, opt)
	}
	if err != nil {
		return err
	}
	defer sess.Close()

	if sess.Phase() == reconcile.PhaseCompleted {
		return fmt.Errorf("session %s was already imported", sess.ID())
	}

	title := filepath.Base(sess.Table().FileName)
	model := tui.New(cmd.Context(), sess, eng, sched, title)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(cmd.Context()))
	sched.SetSender(p.Send)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("review UI failed: %w", err)
	}

	out := model.Outcome()
	switch {
	case out.Err != nil:
		return out.Err
	case out.Imported:
		target := eng.Target()
		r.Success(fmt.Sprintf("Imported %d rows into %s (%s)", len(sess.Table().Rows), target.Table, target.Type))
	case out.Saved:
		r.Muted(fmt.Sprintf("Session saved. Resume with: leapimport review --session %s", sess.ID()))
	}
	r.Muted(summaryLine(matchSummary(sess.Summary())))
	return nil
}
