// Package deps reports availability of the external binaries lathe relies on.
package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"lathe/internal/config"
)

// Requirement defines an external dependency lathe relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
}

// Requirements returns the external binaries required by the current config.
func Requirements(cfg *config.Config) []Requirement {
	return []Requirement{
		{
			Name:        "reconstruction tool",
			Command:     cfg.Tool.Binary,
			Description: "photogrammetry CLI that turns an image directory into a 3D model artifact",
		},
	}
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
		}
		if cmd == "" {
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		if _, err := exec.LookPath(cmd); err != nil {
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Available = true
		results = append(results, status)
	}
	return results
}
