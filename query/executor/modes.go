package executor

import (
	"os"

	"github.com/quarrydb/quarry/query/relation"
)

// Mode selects how a session treats unloaded associations. It is fixed
// at session construction; the session injects the matching policy into
// every cell it binds.
type Mode string

const (
	// ModeDevelopment fails hard on unloaded association access so
	// missing preloads surface while the code is still on a laptop.
	ModeDevelopment Mode = "development"

	// ModeTest behaves like development. Tests should break loudly.
	ModeTest Mode = "test"

	// ModeProduction lazily fetches unloaded associations instead of
	// failing a live request. Each access costs one query.
	ModeProduction Mode = "production"
)

// ModeFromEnv reads QUARRY_ENV, defaulting to development.
func ModeFromEnv() Mode {
	switch os.Getenv("QUARRY_ENV") {
	case "production", "prod":
		return ModeProduction
	case "test":
		return ModeTest
	}
	return ModeDevelopment
}

func (m Mode) policy() relation.Policy {
	if m == ModeProduction {
		return relation.PolicyFetch
	}
	return relation.PolicyError
}
