package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ivlev/keyframer/internal/system"
)

type Config struct {
	ProjectPath string  `yaml:"project"`
	ProjectDir  string  `yaml:"project_dir"`
	OutputImage string  `yaml:"output"`
	Width       int     `yaml:"width"`
	Height      int     `yaml:"height"`
	Step        int     `yaml:"step"`
	Mode        string  `yaml:"mode"`
	World       bool    `yaml:"world"`
	Workers     int     `yaml:"workers"`
	Watch       bool    `yaml:"watch"`
	ShowStats   bool    `yaml:"stats"`
	ExportExpr  string  `yaml:"export_expr"`
	Generate    bool    `yaml:"generate"`
	Duration    float64 `yaml:"duration"`
	FPS         float64 `yaml:"fps"`

	BuildVersion string `yaml:"-"`
}

// Default returns the settings used when neither a config file nor flags
// say otherwise.
func Default() *Config {
	return &Config{
		ProjectDir: "projects",
		Width:      1280,
		Height:     720,
		Step:       1,
		Mode:       "hermite",
		Workers:    system.WorkerCount(),
		Duration:   12,
		FPS:        30,
	}
}

// Load reads a YAML config file on top of the defaults
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

func (c *Config) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("invalid preview size %dx%d", c.Width, c.Height)
	}
	if c.Step < 1 {
		return fmt.Errorf("invalid step %d", c.Step)
	}
	if c.FPS <= 0 {
		return fmt.Errorf("invalid fps %v", c.FPS)
	}
	if c.Workers < 1 {
		c.Workers = 1
	}
	return nil
}
