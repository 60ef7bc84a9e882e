package operations

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os/exec"
	"time"

	"github.com/sithukyaw666/balena-compose/operations/controller"
)

// RunExternalParser runs a standalone parser binary:
//
//	<binary> -f <file> [-f <file>...] <project-name>
//
// The project is read from its stdout; stderr carries JSON diagnostics.
func RunExternalParser(ctx context.Context, binary string, files []string, projectName string, timeout time.Duration, logger *slog.Logger) (map[string]any, error) {
	if len(files) == 0 {
		return nil, controller.ArgumentError.New("at least one compose file must be specified")
	}
	if projectName == "" {
		return nil, controller.ArgumentError.New("project name is required")
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args := make([]string, 0, 2*len(files)+1)
	for _, f := range files {
		args = append(args, "-f", f)
	}
	args = append(args, projectName)

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second

	logger.Debug("Running compose parser", "parser", binary, "files", files)
	runErr := cmd.Run()

	if err := Escalate(ReadDiagnostics(&stderr, logger), logger); err != nil {
		return nil, err
	}
	if runErr != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, controller.ComposeError.New("compose file parsing timed out after %s", timeout).
				WithProperty(controller.PropertyLevel, controller.LevelFatal)
		}
		return nil, controller.ComposeError.Wrap(runErr, "compose parser %s failed", binary).
			WithProperty(controller.PropertyLevel, controller.LevelFatal)
	}

	var raw map[string]any
	if err := json.Unmarshal(stdout.Bytes(), &raw); err != nil {
		return nil, controller.ComposeError.Wrap(err, "compose parser %s produced invalid output", binary)
	}
	return raw, nil
}
