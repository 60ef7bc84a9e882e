package controller

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ParseComposition reads a compose project that has already been through the
// parser (JSON or YAML) from filePath.
func ParseComposition(filePath string) (map[string]any, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read compose document %s: %w", filePath, err)
	}
	return DecodeComposition(data)
}

func DecodeComposition(data []byte) (map[string]any, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, ComposeError.Wrap(err, "failed to unmarshal compose document")
	}
	if doc == nil {
		return nil, ArgumentError.New("compose document is empty")
	}
	return doc, nil
}
