// Package cli — up.go implements the "freedom-calculator up" command.
//
// Up reproduces the launch sequence the deployment runbooks assume:
//  1. Guard: every tool required by the manifest resolves on PATH.
//  2. Setup: the report workspace is created when absent.
//  3. Exec: the manifest command runs, or the embedded web server
//     starts on 0.0.0.0:8501.
package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mkraev/freedom-calculator/internal/launcher"
	"github.com/mkraev/freedom-calculator/internal/web"
)

// upFlags holds the flag values for the up command.
type upFlags struct {
	manifest string // --manifest: explicit manifest path
}

// NewUpCommand creates the "up" cobra command.
func NewUpCommand() *cobra.Command {
	flags := &upFlags{}

	cmd := &cobra.Command{
		Use:   "up",
		Short: "Guard, set up the workspace, then launch",
		Long: `Run the launch sequence: verify required tools, create the report
workspace if it does not exist, then start the configured command or the
embedded web server.

The optional freedom.jsonc manifest in the current directory declares
required tools, the workspace path and an alternative command to run.

Examples:
  freedom-calculator up
  freedom-calculator up --manifest deploy/freedom.jsonc`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runUp(cmd, flags)
		},
	}

	cmd.Flags().StringVar(&flags.manifest, "manifest", "", "Path to the launch manifest (default ./freedom.jsonc)")

	return cmd
}

func runUp(cmd *cobra.Command, flags *upFlags) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	manifest, err := launcher.LoadManifest(flags.manifest)
	if err != nil {
		return err
	}

	// Guard first: nothing is created or launched when a tool is
	// missing.
	if err := launcher.Preflight(manifest.Requires); err != nil {
		return err
	}

	workdir, listen := manifest.Resolve(cfg)
	if err := launcher.EnsureWorkdir(workdir); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if len(manifest.Command) > 0 {
		return launcher.RunCommand(ctx, workdir, manifest.Command)
	}

	cfg.Listen = listen
	cfg.Workdir = workdir
	return web.NewServer(cfg).Serve(ctx, listen.Addr())
}
