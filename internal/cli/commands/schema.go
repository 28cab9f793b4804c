package commands

import (
	"strings"

	"github.com/leapstack-labs/leapimport/internal/cli/output"
	"github.com/spf13/cobra"
)

// NewSchemaCommand creates the schema command group.
func NewSchemaCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Inspect the target schema",
	}
	cmd.AddCommand(newSchemaShowCommand())
	return cmd
}

func newSchemaShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the target fields uploads are matched against",
		Example: `  leapimport schema show
  leapimport schema show --schema schemas/leads.yaml --output json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx, err := NewCommandContextWithoutEngine(cmd)
			if err != nil {
				return err
			}
			if err := cmdCtx.loadSchema(); err != nil {
				return err
			}
			return renderSchema(cmdCtx)
		},
	}
}

func renderSchema(c *CommandContext) error {
	sch := c.Schema
	r := c.Renderer

	out := output.SchemaOutput{
		Name:        sch.Name,
		Description: sch.Description,
		Table:       sch.Table,
		Path:        c.Cfg.SchemaPath,
		Fields:      make([]output.SchemaField, len(sch.Fields)),
	}
	for i, f := range sch.Fields {
		out.Fields[i] = output.SchemaField{
			ID:          f.ID,
			Label:       f.Label(),
			Required:    f.Required,
			Description: f.Description,
			Aliases:     f.Aliases,
		}
	}

	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(out)
	}

	r.Header(1, "Schema: "+out.Name)
	if out.Description != "" {
		r.Muted(out.Description)
		r.Println()
	}

	rows := make([][]string, len(out.Fields))
	for i, f := range out.Fields {
		req := ""
		if f.Required {
			req = "yes"
		}
		rows[i] = []string{f.ID, f.Label, req, strings.Join(f.Aliases, ", ")}
	}
	r.Table([]string{"ID", "Name", "Required", "Aliases"}, rows)
	return nil
}
