package operations

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/compose-spec/compose-go/v2/cli"
	"github.com/compose-spec/compose-go/v2/types"
	"github.com/sirupsen/logrus"
	"github.com/sithukyaw666/balena-compose/operations/controller"
)

// compose-go logs through the logrus standard logger, so loads that capture
// its output have to take turns.
var loadMu sync.Mutex

// diagnosticHook collects compose-go log entries as diagnostics.
type diagnosticHook struct {
	mu    sync.Mutex
	diags []Diagnostic
}

func (h *diagnosticHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *diagnosticHook) Fire(entry *logrus.Entry) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.diags = append(h.diags, Diagnostic{
		Level:   entry.Level.String(),
		Message: entry.Message,
		Time:    entry.Time.Format(time.RFC3339),
	})
	return nil
}

func (h *diagnosticHook) collected() []Diagnostic {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Diagnostic(nil), h.diags...)
}

// LoadProject parses files with compose-go, later files overriding earlier
// ones, and returns the merged project in its JSON form.
func LoadProject(ctx context.Context, files []string, projectName string, timeout time.Duration, logger *slog.Logger) (map[string]any, error) {
	if len(files) == 0 {
		return nil, controller.ArgumentError.New("at least one compose file must be specified")
	}
	if projectName == "" {
		return nil, controller.ArgumentError.New("project name is required")
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	options, err := cli.NewProjectOptions(
		files,
		cli.WithOsEnv,
		cli.WithDotEnv,
		cli.WithName(projectName),
	)
	if err != nil {
		return nil, controller.ComposeError.Wrap(err, "failed to create compose project options").
			WithProperty(controller.PropertyLevel, controller.LevelFatal)
	}

	hook := &diagnosticHook{}
	restore := captureComposeLogs(hook)
	defer restore()

	type loadResult struct {
		project *types.Project
		err     error
	}
	resultChan := make(chan loadResult, 1)

	go func() {
		project, err := options.LoadProject(ctx)
		resultChan <- loadResult{project: project, err: err}
	}()

	var project *types.Project
	select {
	case result := <-resultChan:
		if result.err != nil {
			return nil, controller.ComposeError.Wrap(result.err, "failed to parse compose file").
				WithProperty(controller.PropertyLevel, controller.LevelFatal)
		}
		project = result.project
	case <-ctx.Done():
		return nil, controller.ComposeError.New("compose file parsing timed out after %s", timeout).
			WithProperty(controller.PropertyLevel, controller.LevelFatal)
	}

	if err := Escalate(hook.collected(), logger); err != nil {
		return nil, err
	}

	projectJSON, err := project.MarshalJSON()
	if err != nil {
		return nil, controller.ComposeError.Wrap(err, "failed to marshal compose project to JSON")
	}

	var raw map[string]any
	if err := json.Unmarshal(projectJSON, &raw); err != nil {
		return nil, controller.ComposeError.Wrap(err, "failed to decode compose project")
	}
	logger.Debug("Loaded compose project", "files", files, "services_count", len(project.Services))
	return raw, nil
}

// captureComposeLogs routes the logrus standard logger into hook until the
// returned function is called.
func captureComposeLogs(hook *diagnosticHook) func() {
	loadMu.Lock()
	std := logrus.StandardLogger()
	prevOut := std.Out
	prevHooks := std.ReplaceHooks(make(logrus.LevelHooks))
	std.AddHook(hook)
	std.SetOutput(io.Discard)
	return func() {
		std.ReplaceHooks(prevHooks)
		std.SetOutput(prevOut)
		loadMu.Unlock()
	}
}
