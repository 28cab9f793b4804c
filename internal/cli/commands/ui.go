package commands

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/leapstack-labs/leapimport/internal/ui"
	"github.com/spf13/cobra"
)

// UIOptions holds options for the ui command.
type UIOptions struct {
	Port      int
	NoBrowser bool
	Watch     bool
	Inbox     string
	Dev       bool
}

// NewUICommand creates the ui command.
func NewUICommand() *cobra.Command {
	opts := &UIOptions{}

	cmd := &cobra.Command{
		Use:   "ui",
		Short: "Start the LeapImport review UI",
		Long: `Start a local web server for reviewing uploads in the browser.

The UI provides:
- Uploading CSV and TSV files
- Column cards with preview values and match state
- Conflict resolution when two columns want the same field
- Live updates across open tabs
- Importing completed mappings into the target`,
		Example: `  # Start UI on default port
  leapimport ui

  # Start on custom port
  leapimport ui --port 3000

  # Open a session for every file dropped into ./inbox
  leapimport ui --inbox ./inbox`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runUI(cmd, opts)
		},
	}

	cmd.Flags().IntVar(&opts.Port, "port", 0, "Port to serve on (default: 8766)")
	cmd.Flags().BoolVar(&opts.NoBrowser, "no-browser", false, "Don't auto-open browser")
	cmd.Flags().BoolVar(&opts.Watch, "watch", true, "Watch the inbox directory for new files")
	cmd.Flags().StringVar(&opts.Inbox, "inbox", "", "Directory to watch for uploads")
	cmd.Flags().BoolVar(&opts.Dev, "dev", false, "Enable live reload of static assets")
	_ = cmd.Flags().MarkHidden("dev")

	return cmd
}

func runUI(cmd *cobra.Command, opts *UIOptions) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	cfg := cmdCtx.Cfg
	uiCfg := cfg.GetUIConfig()

	// CLI flags override config file
	port := uiCfg.Port
	if opts.Port != 0 {
		port = opts.Port
	}

	autoOpen := uiCfg.AutoOpen
	if opts.NoBrowser {
		autoOpen = false
	}

	watch := uiCfg.Watch
	if cmd.Flags().Changed("watch") {
		watch = opts.Watch
	}

	secret, err := sessionSecret(uiCfg.SessionSecret)
	if err != nil {
		return err
	}

	server := ui.NewServer(ui.Config{
		Engine:        cmdCtx.Engine,
		Port:          port,
		ColumnWidth:   cfg.Viewport.ColumnWidth,
		Watch:         watch,
		Inbox:         uiCfg.Inbox,
		SessionSecret: secret,
		Dev:           opts.Dev,
		Logger:        cmdCtx.Logger,
	})

	if autoOpen {
		url := fmt.Sprintf("http://localhost:%d", port)
		go openBrowser(url)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Starting UI server on http://localhost:%d\n", port)
	if watch && uiCfg.Inbox != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "Watching %s for new files\n", uiCfg.Inbox)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Press Ctrl+C to stop")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return server.Serve(ctx)
}

// sessionSecret returns the cookie signing secret: the configured one,
// LEAPIMPORT_SESSION_SECRET, or a random secret valid for this process.
func sessionSecret(configured string) (string, error) {
	if configured != "" {
		return configured, nil
	}
	if secret := os.Getenv("LEAPIMPORT_SESSION_SECRET"); secret != "" {
		return secret, nil
	}
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate session secret: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// openBrowser opens the default browser to the specified URL.
func openBrowser(url string) {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url) //nolint:noctx
	case "linux":
		cmd = exec.Command("xdg-open", url) //nolint:noctx
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url) //nolint:noctx
	default:
		return
	}

	_ = cmd.Start()
}
