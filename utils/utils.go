package utils

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sithukyaw666/balena-compose/model"
	"github.com/spf13/viper"
)

// LoadConfig reads balena-compose.yaml from the working directory (when one
// exists) and BALENA_COMPOSE_* environment variables into a model.Config.
// Values already bound on v (e.g. command line flags) take precedence.
func LoadConfig(v *viper.Viper) (model.Config, error) {
	config := new(model.Config)
	if v == nil {
		v = viper.New()
	}

	v.SetDefault("parser", "")
	v.SetDefault("project_name", "")
	v.SetDefault("parse_timeout", 10*time.Second)
	v.SetDefault("log_format", "text")
	v.SetDefault("log_level", "info")
	v.SetDefault("output", "json")

	if v.ConfigFileUsed() == "" {
		v.SetConfigName("balena-compose")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	v.SetEnvPrefix("BALENA_COMPOSE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return *config, fmt.Errorf("fatal error config file: %w", err)
		}
	}

	if err := v.Unmarshal(config); err != nil {
		return *config, fmt.Errorf("unable to unmarshal config: %w", err)
	}

	// The project name is stripped again during normalization.
	if config.ProjectName == "" {
		config.ProjectName = uuid.NewString()
	}

	return *config, nil
}

func NewLogger(config model.Config, w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(config.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(config.LogFormat, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// SortedKeys returns the keys of m in lexical order. The parser marshals every
// mapping with sorted keys, so this is also the document order.
func SortedKeys[M ~map[string]V, V any](m M) []string {
	return slices.Sorted(maps.Keys(m))
}
