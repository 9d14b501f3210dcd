// Package cli — serve.go implements the "freedom-calculator serve"
// command: the embedded web UI without the launcher's guard/setup steps.
package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mkraev/freedom-calculator/internal/web"
)

// serveFlags holds the flag values for the serve command.
type serveFlags struct {
	host string // --host: bind address
	port int    // --port: bind port
}

// NewServeCommand creates the "serve" cobra command.
func NewServeCommand() *cobra.Command {
	flags := &serveFlags{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the embedded web UI",
		Long: `Start the web interface for uploading broker reports and browsing the
results. The server binds 0.0.0.0:8501 unless overridden by flags, the
config file or FREEDOM_HOST/FREEDOM_PORT.`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, flags)
		},
	}

	cmd.Flags().StringVar(&flags.host, "host", "", "Bind address (default 0.0.0.0)")
	cmd.Flags().IntVar(&flags.port, "port", 0, "Bind port (default 8501)")

	return cmd
}

func runServe(cmd *cobra.Command, flags *serveFlags) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	// Flags beat the config file and the environment.
	if flags.host != "" {
		cfg.Listen.Host = flags.host
	}
	if flags.port != 0 {
		cfg.Listen.Port = flags.port
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return web.NewServer(cfg).Serve(ctx, cfg.Listen.Addr())
}
