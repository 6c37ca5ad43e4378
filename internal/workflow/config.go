package workflow

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/garageboard/garageboard/internal/types"
)

type columnConfig struct {
	Status     string `yaml:"status"`
	WIPLimit   *int   `yaml:"wip_limit,omitempty"`
	SortWeight int    `yaml:"sort_weight"`
	Color      string `yaml:"color,omitempty"`
}

type fileConfig struct {
	Columns []columnConfig `yaml:"columns"`
}

// LoadModel reads a workflow column definition from a yaml file. An empty
// path returns the built-in default workflow.
func LoadModel(path string) (*Model, error) {
	if path == "" {
		return Default(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read workflow config: %w", err)
	}
	var cfg fileConfig
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parse workflow config: %w", err)
	}
	if len(cfg.Columns) == 0 {
		return nil, fmt.Errorf("workflow config %s defines no columns", path)
	}
	columns := make([]Column, 0, len(cfg.Columns))
	seen := make(map[types.JobStatus]bool, len(cfg.Columns))
	for _, c := range cfg.Columns {
		status := types.JobStatus(c.Status)
		if status == "" {
			return nil, fmt.Errorf("workflow config %s has a column without a status", path)
		}
		if seen[status] {
			return nil, fmt.Errorf("workflow config %s repeats status %q", path, c.Status)
		}
		seen[status] = true
		columns = append(columns, Column{
			Status:     status,
			WIPLimit:   c.WIPLimit,
			SortWeight: c.SortWeight,
			Color:      c.Color,
		})
	}
	return NewModel(columns), nil
}
