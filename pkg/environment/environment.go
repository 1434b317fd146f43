package environment

import (
	"os"
	"strings"
)

// Environment represents the deployment mode of the application.
// It controls security-sensitive behavior such as which request
// headers are trusted during tenant resolution.
type Environment string

const (
	// Development for local development. Relaxed trust policy.
	Development Environment = "development"
	// Staging mirrors production behavior on pre-release infrastructure.
	Staging Environment = "staging"
	// Production for live deployments. Strict trust policy.
	Production Environment = "production"
)

// EnvVar is the environment variable consulted by Detect.
const EnvVar = "APP_ENV"

// Detect reads the deployment mode from APP_ENV.
// Unknown or empty values default to Production so that a missing
// variable never weakens the trust policy.
func Detect() Environment {
	return Parse(os.Getenv(EnvVar))
}

// Parse normalizes a raw environment string into an Environment.
// Short aliases ("dev", "prod", "stage") are accepted.
func Parse(raw string) Environment {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "development", "dev", "local":
		return Development
	case "staging", "stage":
		return Staging
	default:
		return Production
	}
}

// IsProductionLike reports whether the environment enforces
// production trust rules. Staging is production-like.
func (e Environment) IsProductionLike() bool {
	return e != Development
}
