package target

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ComposeFile is the subset of a Docker Compose file needed to find a
// service's container.
type ComposeFile struct {
	Name     string                    `yaml:"name"`
	Services map[string]ComposeService `yaml:"services"`
}

type ComposeService struct {
	Image         string `yaml:"image"`
	ContainerName string `yaml:"container_name"`
}

// ParseComposeFile reads a compose.yml.
func ParseComposeFile(path string) (*ComposeFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read compose file: %w", err)
	}

	var cf ComposeFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("parse compose file: %w", err)
	}
	return &cf, nil
}

// ServiceNames returns the service names in sorted order.
func (cf *ComposeFile) ServiceNames() []string {
	names := make([]string, 0, len(cf.Services))
	for name := range cf.Services {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ContainerFor returns the container that runs service: its container_name
// when set, otherwise the first replica compose would create,
// <project>-<service>-1.
func (cf *ComposeFile) ContainerFor(service, project string) (string, error) {
	svc, ok := cf.Services[service]
	if !ok {
		return "", fmt.Errorf("service %q not in compose file (have %s)", service, strings.Join(cf.ServiceNames(), ", "))
	}
	if svc.ContainerName != "" {
		return svc.ContainerName, nil
	}
	if project == "" {
		return "", fmt.Errorf("service %q: no container_name and no project name", service)
	}
	return fmt.Sprintf("%s-%s-1", project, service), nil
}

// ProjectName picks the compose project the way compose does: an explicit
// name wins, then the file's top-level name, then the directory default.
func (cf *ComposeFile) ProjectName(explicit, composeFile string) string {
	switch {
	case explicit != "":
		return explicit
	case cf.Name != "":
		return cf.Name
	default:
		return DefaultProject(composeFile)
	}
}

// DefaultProject derives the project name compose uses when none is given:
// the compose file's directory name, lowercased, keeping only [a-z0-9_-].
func DefaultProject(composeFile string) string {
	abs, err := filepath.Abs(composeFile)
	if err != nil {
		abs = composeFile
	}
	base := strings.ToLower(filepath.Base(filepath.Dir(abs)))

	var b strings.Builder
	for _, r := range base {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' || r == '-' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
