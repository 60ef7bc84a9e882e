package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/sithukyaw666/balena-compose/model"
	"github.com/sithukyaw666/balena-compose/operations/controller"
	"github.com/sithukyaw666/balena-compose/utils"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

var (
	cfgFile      string
	composeFiles []string

	v = viper.New()

	rootCmd = &cobra.Command{
		Use:   "balena-compose",
		Short: "Normalize docker compose projects for balena devices",
		Long: `balena-compose parses one or more docker compose files (later files override
earlier ones), rejects what a balena device cannot run and rewrites the rest
into the composition and image descriptors balena expects.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "configuration file (default ./balena-compose.yaml)")
	flags.StringArrayVarP(&composeFiles, "file", "f", nil, "compose file, may be repeated; later files override earlier ones")
	flags.String("parser", "", "external compose parser binary (default: parse in process)")
	flags.String("project-name", "", "project name handed to the parser (default: random UUID)")
	flags.Duration("timeout", 10*time.Second, "timeout for parsing the compose files")
	flags.String("log-format", "text", "log format: text or json")
	flags.String("log-level", "info", "log level: debug, info, warn or error")
	flags.StringP("output", "o", "json", "output format: json or yaml")

	for key, flag := range map[string]string{
		"parser":        "parser",
		"project_name":  "project-name",
		"parse_timeout": "timeout",
		"log_format":    "log-format",
		"log_level":     "log-level",
		"output":        "output",
	} {
		if err := v.BindPFlag(key, flags.Lookup(flag)); err != nil {
			panic(err)
		}
	}

	rootCmd.AddCommand(normalizeCmd)
	rootCmd.AddCommand(imagesCmd)
	rootCmd.AddCommand(checkCmd)
}

func setup() (model.Config, *slog.Logger, error) {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	}
	config, err := utils.LoadConfig(v)
	if err != nil {
		return config, nil, controller.ArgumentError.Wrap(err, "failed to load configuration")
	}
	return config, utils.NewLogger(config, os.Stderr), nil
}

func writeOutput(w io.Writer, format string, value any) error {
	switch format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(value); err != nil {
			return err
		}
		return enc.Close()
	case "json", "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(value)
	default:
		return controller.ArgumentError.New("unknown output format %q", format)
	}
}

type errorResponse struct {
	Error   bool   `json:"error"`
	Name    string `json:"name"`
	Message string `json:"message"`
}

// WriteError reports err as a structured error response.
func WriteError(w io.Writer, err error) {
	resp := errorResponse{
		Error:   true,
		Name:    controller.Name(err),
		Message: controller.Message(err),
	}
	if encErr := json.NewEncoder(w).Encode(resp); encErr != nil {
		fmt.Fprintln(w, err)
	}
}
