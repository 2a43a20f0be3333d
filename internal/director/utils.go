package director

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/ivlev/keyframer/internal/system"
)

// DefaultProjectDir is where generated projects are stored
const DefaultProjectDir = "projects"

// GenerateProjectPath creates a timestamped project filename in dir
func GenerateProjectPath(dir string) string {
	timestamp := time.Now().Format("2006-01-02_15-04-05")
	return filepath.Join(dir, fmt.Sprintf("project_%s.yaml", timestamp))
}

// FindLatestProject finds the most recently modified project file in dir
func FindLatestProject(dir string) (string, error) {
	return system.FindLatest(dir, ".yaml", ".yml")
}
