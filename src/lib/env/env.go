package env

import "os"

type Environment string

const (
	Production  Environment = "production"
	Development Environment = "development"
)

// Get reads ENVIRONMENT. Absent means development - only production
// deployments are expected to declare themselves.
func Get() Environment {
	switch os.Getenv("ENVIRONMENT") {
	case "production":
		return Production
	case "development", "":
		return Development
	default:
		panic("Invalid environment is set")
	}
}
