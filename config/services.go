package config

import (
	"errors"
	"fmt"
	"strings"
)

// ServiceMode represents the available service modes.
type ServiceMode string

const (
	// ServiceModeCron runs the billing cron tick loop.
	ServiceModeCron ServiceMode = "cron"
	// ServiceModeOverview runs the periodic overview snapshot publisher.
	ServiceModeOverview ServiceMode = "overview"
)

// ValidServiceModes returns all valid service mode names.
func ValidServiceModes() []ServiceMode {
	return []ServiceMode{
		ServiceModeCron,
		ServiceModeOverview,
	}
}

// ParseServices parses a comma-delimited string of service names and returns the enabled services.
// It validates that all service names are valid and returns an error if any are invalid.
// The literal "all" enables every service.
func ParseServices(servicesStr string) (map[ServiceMode]bool, error) {
	services := make(map[ServiceMode]bool)

	if servicesStr == "" {
		return services, errors.New("at least one service must be specified")
	}

	parts := strings.Split(servicesStr, ",")
	for _, part := range parts {
		serviceName := strings.ToLower(strings.TrimSpace(part))
		if serviceName == "" {
			continue
		}

		if serviceName == "all" {
			for _, mode := range ValidServiceModes() {
				services[mode] = true
			}
			continue
		}

		mode := ServiceMode(serviceName)
		switch mode {
		case ServiceModeCron, ServiceModeOverview:
			services[mode] = true
		default:
			return nil, fmt.Errorf(
				"invalid service name: %q (valid options: cron, overview, all)",
				serviceName,
			)
		}
	}

	if len(services) == 0 {
		return nil, errors.New("at least one valid service must be specified")
	}

	return services, nil
}
