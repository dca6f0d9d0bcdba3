package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"courseforge/internal/model"

	"gopkg.in/yaml.v3"
)

// loadSkeleton reads an outline file. JSON files use the stored outline field names
// (moduleName); YAML files use name.
func loadSkeleton(path string) (model.CourseSkeleton, error) {
	var skeleton model.CourseSkeleton
	raw, err := os.ReadFile(path)
	if err != nil {
		return skeleton, fmt.Errorf("reading outline: %w", err)
	}
	return parseSkeleton(raw, filepath.Ext(path))
}

func parseSkeleton(raw []byte, ext string) (model.CourseSkeleton, error) {
	var skeleton model.CourseSkeleton
	switch strings.ToLower(ext) {
	case ".json":
		if err := json.Unmarshal(raw, &skeleton); err != nil {
			return skeleton, fmt.Errorf("parsing JSON outline: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(raw, &skeleton); err != nil {
			return skeleton, fmt.Errorf("parsing YAML outline: %w", err)
		}
	default:
		return skeleton, fmt.Errorf("unsupported outline format %q", ext)
	}
	return skeleton, nil
}
