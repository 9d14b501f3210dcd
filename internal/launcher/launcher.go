package launcher

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/mkraev/freedom-calculator/internal/model"
)

// Preflight verifies every required tool resolves on PATH, in order.
// The first miss aborts with ExitToolMissing before any setup runs.
func Preflight(requires []string) error {
	for _, tool := range requires {
		if _, err := exec.LookPath(tool); err != nil {
			return model.NewCLIError(model.ExitToolMissing,
				tool+" is required but was not found on PATH")
		}
		log.Debug().Str("tool", tool).Msg("preflight ok")
	}
	return nil
}

// EnsureWorkdir creates the report workspace when absent. An existing
// directory is left untouched.
func EnsureWorkdir(dir string) error {
	info, err := os.Stat(dir)
	switch {
	case err == nil:
		if !info.IsDir() {
			return model.NewCLIError(model.ExitGeneralError, dir+" exists but is not a directory")
		}
		log.Debug().Str("dir", dir).Msg("workspace already exists")
		return nil
	case os.IsNotExist(err):
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return model.WrapCLIError(model.ExitGeneralError, "failed to create workspace", err)
		}
		log.Info().Str("dir", dir).Msg("created workspace")
		return nil
	default:
		return model.WrapCLIError(model.ExitGeneralError, "failed to stat workspace", err)
	}
}

// RunCommand executes the manifest command in the workspace, forwarding
// stdio and signals. It blocks until the command exits and propagates
// its exit status; an interrupt terminates the child and returns nil
// once the child is gone.
func RunCommand(ctx context.Context, workdir string, command []string) error {
	if len(command) == 0 {
		return model.NewCLIError(model.ExitGeneralError, "manifest command is empty")
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := exec.CommandContext(ctx, command[0], command[1:]...)
	cmd.Dir = workdir
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	// Give the child a chance to shut down on its own signal rather
	// than the default SIGKILL.
	cmd.Cancel = func() error {
		return cmd.Process.Signal(syscall.SIGTERM)
	}

	log.Info().Strs("command", command).Str("workdir", workdir).Msg("launching command")
	err := cmd.Run()
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		log.Info().Msg("interrupted, command terminated")
		return nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return model.NewCLIError(model.ExitCode(exitErr.ExitCode()),
			command[0]+" exited with an error")
	}
	return model.WrapCLIError(model.ExitGeneralError, "failed to launch "+command[0], err)
}
