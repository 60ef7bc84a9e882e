package operations

import (
	"context"
	"log/slog"

	"github.com/sithukyaw666/balena-compose/model"
	"github.com/sithukyaw666/balena-compose/operations/controller"
)

type Result struct {
	Composition *model.Composition      `json:"composition" yaml:"composition"`
	Images      []model.ImageDescriptor `json:"images" yaml:"images"`
}

// Load parses files into a raw compose project, through the configured parser
// binary or in process.
func Load(ctx context.Context, config model.Config, files []string, logger *slog.Logger) (map[string]any, error) {
	if len(files) == 0 {
		return nil, controller.ArgumentError.New("at least one compose file must be specified with -f")
	}
	if config.Parser != "" {
		return RunExternalParser(ctx, config.Parser, files, config.ProjectName, config.ParseTimeout, logger)
	}
	return LoadProject(ctx, files, config.ProjectName, config.ParseTimeout, logger)
}

// Process loads files and normalizes the result; files[0] is the primary
// compose file.
func Process(ctx context.Context, config model.Config, files []string, logger *slog.Logger) (*Result, error) {
	raw, err := Load(ctx, config, files, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("Successfully parsed compose files", "files_count", len(files))
	return Normalize(raw, files[0], logger)
}

// Normalize runs an already parsed project through the normalizer and
// projects its image descriptors.
func Normalize(raw map[string]any, primaryFile string, logger *slog.Logger) (*Result, error) {
	comp, err := controller.NewNormalizer(logger).Normalize(raw, primaryFile)
	if err != nil {
		return nil, err
	}
	logger.Info("Normalized composition", "services_count", len(comp.Services),
		"networks_count", len(comp.Networks), "volumes_count", len(comp.Volumes))
	return &Result{
		Composition: comp,
		Images:      controller.ImageDescriptors(comp),
	}, nil
}
