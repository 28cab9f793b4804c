package commands

import (
	"runtime"

	"github.com/leapstack-labs/leapimport/internal/cli/config"
	"github.com/leapstack-labs/leapimport/internal/cli/output"
	"github.com/spf13/cobra"
)

// BuildInfo is version metadata set at build time.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildDate string
}

// NewVersionCommand creates the version command.
func NewVersionCommand(info BuildInfo) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display LeapImport version and build information.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			v := output.VersionOutput{
				Version:   info.Version,
				Commit:    info.Commit,
				BuildDate: info.BuildDate,
				GoVersion: runtime.Version(),
				Platform:  runtime.GOOS + "/" + runtime.GOARCH,
			}

			mode := output.ModeAuto
			if cfg := config.GetCurrentConfig(); cfg != nil {
				mode, _ = output.ParseMode(cfg.OutputFormat)
			}
			r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode)
			if r.EffectiveMode() == output.ModeJSON {
				return r.JSON(v)
			}

			r.Printf("LeapImport v%s\n", v.Version)
			r.Printf("commit %s, built %s, %s %s\n", v.Commit, v.BuildDate, v.GoVersion, v.Platform)
			return nil
		},
	}
}
