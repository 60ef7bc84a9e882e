package operations

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"log/slog"

	"github.com/sirupsen/logrus"
	"github.com/sithukyaw666/balena-compose/operations/controller"
)

// Diagnostic is one entry of the parser's diagnostic stream: either a log line
// emitted by compose-go or the parser's own error response.
type Diagnostic struct {
	Level   string `json:"level"`
	Message string `json:"message"`
	Time    string `json:"time,omitempty"`
	// Name is set for parser error responses (ArgumentError, ParseError, ...).
	Name string `json:"-"`
}

type errorResponse struct {
	Error   bool   `json:"error"`
	Name    string `json:"name"`
	Message string `json:"message"`
}

// ReadDiagnostics parses a stream of JSON lines. Lines that do not look like a
// diagnostic are reported through logger and skipped.
func ReadDiagnostics(r io.Reader, logger *slog.Logger) []Diagnostic {
	var diags []Diagnostic
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		if d, ok := parseDiagnostic(line); ok {
			diags = append(diags, d)
			continue
		}
		logger.Warn("Ignoring malformed parser diagnostic", "line", string(line))
	}
	if err := scanner.Err(); err != nil {
		logger.Warn("Could not read parser diagnostics", "error", err)
	}
	return diags
}

func parseDiagnostic(line []byte) (Diagnostic, bool) {
	var resp errorResponse
	if err := json.Unmarshal(line, &resp); err == nil && resp.Error {
		return Diagnostic{Level: controller.LevelFatal, Message: resp.Message, Name: resp.Name}, true
	}
	var d Diagnostic
	if err := json.Unmarshal(line, &d); err != nil || d.Level == "" {
		return Diagnostic{}, false
	}
	if _, err := logrus.ParseLevel(d.Level); err != nil {
		return Diagnostic{}, false
	}
	return d, true
}

// Escalate turns the first error, fatal or panic diagnostic into a
// ComposeError. Everything less severe is dropped.
func Escalate(diags []Diagnostic, logger *slog.Logger) error {
	for _, d := range diags {
		level, err := logrus.ParseLevel(d.Level)
		if err != nil {
			logger.Warn("Ignoring parser diagnostic with unknown level", "level", d.Level, "message", d.Message)
			continue
		}
		if level > logrus.ErrorLevel {
			logger.Debug("Parser diagnostic", "level", d.Level, "message", d.Message)
			continue
		}
		if d.Name == "ArgumentError" {
			return controller.ArgumentError.New("%s", d.Message)
		}
		return controller.ComposeError.New("%s", d.Message).
			WithProperty(controller.PropertyLevel, severity(level))
	}
	return nil
}

func severity(level logrus.Level) string {
	switch level {
	case logrus.PanicLevel:
		return controller.LevelPanic
	case logrus.FatalLevel:
		return controller.LevelFatal
	case logrus.ErrorLevel:
		return controller.LevelError
	case logrus.WarnLevel:
		return controller.LevelWarn
	case logrus.InfoLevel:
		return controller.LevelInfo
	default:
		return controller.LevelDebug
	}
}
