package director

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// WriteProject writes a project to a YAML file
func WriteProject(project *Project, path string) error {
	data, err := yaml.Marshal(project)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// ReadProject reads a project from a YAML file
func ReadProject(path string) (*Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var project Project
	if err := yaml.Unmarshal(data, &project); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if project.Version == "" {
		project.Version = ProjectVersion
	}

	return &project, nil
}
