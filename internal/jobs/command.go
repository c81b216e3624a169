package jobs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"trackview/internal/logger"
)

// ErrNotConfigured means no command is configured for a job kind.
var ErrNotConfigured = errors.New("no command configured")

// CommandRunner runs each job kind as an external program: the configured
// argv followed by Request.Args.
type CommandRunner struct {
	Commands map[string][]string
	Logger   logger.Logger
}

func (c CommandRunner) Run(ctx context.Context, req Request) error {
	argv := c.Commands[string(req.Kind)]
	if len(argv) == 0 {
		return fmt.Errorf("%s: %w", req.Kind, ErrNotConfigured)
	}

	args := append(append([]string(nil), argv[1:]...), req.Args()...)
	cmd := exec.CommandContext(ctx, argv[0], args...)
	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	if c.Logger != nil {
		c.Logger.Debug(component, "starting command", map[string]interface{}{
			"kind": string(req.Kind),
			"argv": strings.Join(append([]string{argv[0]}, args...), " "),
		})
	}

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%s: %w", req.Kind, ctx.Err())
		}
		return fmt.Errorf("%s: %w: %s", req.Kind, err, tail(output.String(), 512))
	}
	return nil
}

// tail keeps the last n bytes of the trimmed program output.
func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) > n {
		s = "..." + s[len(s)-n:]
	}
	return s
}
