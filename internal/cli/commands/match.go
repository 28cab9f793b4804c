package commands

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/leapstack-labs/leapimport/internal/cli/output"
	"github.com/spf13/cobra"
)

// ErrMissingRequired is returned by --strict commands when the completeness
// gate blocks.
var ErrMissingRequired = errors.New("required fields are missing")

// MatchOptions holds options for the match command.
type MatchOptions struct {
	Save   bool
	Strict bool
}

// NewMatchCommand creates the match command.
func NewMatchCommand() *cobra.Command {
	opts := &MatchOptions{}

	cmd := &cobra.Command{
		Use:   "match <file>",
		Short: "Auto-match an upload's columns to the schema",
		Long: `Decode an upload, auto-match its column headers to the schema's fields
and report the result without importing anything.

Headers match a field when they equal its id, display name or one of its
aliases after normalization (case, accents and punctuation are ignored).
With --fuzzy, remaining columns are matched by edit-distance similarity.

Output adapts to environment:
  - Terminal: Styled table
  - Piped/Scripted: Markdown`,
		Example: `  # Preview the auto-match
  leapimport match contacts.csv

  # Save the session to continue later with 'leapimport review --session'
  leapimport match contacts.csv --save

  # Fail in CI when a required field is not matched
  leapimport match contacts.csv --strict --output json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMatch(cmd, args[0], opts)
		},
	}

	cmd.Flags().BoolVar(&opts.Save, "save", false, "Persist the session for later review")
	cmd.Flags().BoolVar(&opts.Strict, "strict", false, "Exit with an error if required fields are missing")

	return cmd
}

func runMatch(cmd *cobra.Command, path string, opts *MatchOptions) error {
	if err := requireFile(path); err != nil {
		return err
	}

	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	eng := cmdCtx.Engine
	r := cmdCtx.Renderer

	sess, res, err := eng.StartFile(path)
	if err != nil {
		return err
	}
	defer sess.Close()

	sessionID := ""
	if opts.Save {
		if err := eng.Save(sess); err != nil {
			return err
		}
		sessionID = sess.ID()
	}

	report := output.MatchOutput{
		File:      filepath.Base(path),
		Schema:    eng.Schema().Name,
		SessionID: sessionID,
		Encoding:  res.Encoding,
		Delimiter: strconv.QuoteRune(res.Delimiter),
		Rows:      len(res.Table.Rows),
		Columns:   columnMatches(sess),
		Missing:   fieldRefs(sess.MissingRequired()),
		Warnings:  warningStrings(res.Warnings),
		Summary:   matchSummary(sess.Summary()),
	}

	switch r.EffectiveMode() {
	case output.ModeJSON:
		if err := r.JSON(report); err != nil {
			return err
		}
	case output.ModeMarkdown:
		renderMatchMarkdown(r, report)
	default:
		renderMatchText(r, report)
	}

	if opts.Strict && len(report.Missing) > 0 {
		return ErrMissingRequired
	}
	return nil
}

func renderMatchText(r *output.Renderer, m output.MatchOutput) {
	r.Header(1, fmt.Sprintf("%s → %s", m.File, m.Schema))
	r.Muted(fmt.Sprintf("%d rows, %s, delimiter %s", m.Rows, m.Encoding, m.Delimiter))
	r.Println()
	renderColumns(r, m.Columns)
	r.Println()
	r.Muted(summaryLine(m.Summary))
	renderMissing(r, m.Missing)
	for _, w := range m.Warnings {
		r.Warning(w)
	}
	if m.SessionID != "" {
		r.Muted(fmt.Sprintf("Session saved: %s", m.SessionID))
	}
}

func renderMatchMarkdown(r *output.Renderer, m output.MatchOutput) {
	r.Println(output.FormatHeader(1, fmt.Sprintf("Match: %s", m.File)))
	r.Println()
	r.Println(output.FormatKeyValue("Schema", m.Schema))
	r.Println(output.FormatKeyValue("Rows", strconv.Itoa(m.Rows)))
	r.Println(output.FormatKeyValue("Encoding", m.Encoding))
	r.Println(output.FormatKeyValue("Summary", summaryLine(m.Summary)))
	if m.SessionID != "" {
		r.Println(output.FormatKeyValue("Session", m.SessionID))
	}
	r.Println()
	r.Println(output.FormatHeader(2, "Columns"))
	r.Println()
	renderColumns(r, m.Columns)
	r.Println()
	renderMissing(r, m.Missing)
	if len(m.Warnings) > 0 {
		r.Println()
		r.Println(output.FormatHeader(2, "Warnings"))
		r.Println()
		r.Println(output.FormatList(m.Warnings))
	}
}
