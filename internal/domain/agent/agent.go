// Package agent defines agent types and the inbound task request.
package agent

import "strings"

// Type is the closed set of agent specialties the router knows how to
// prompt. TypeUnknown is the explicit fallback arm for anything else.
type Type int

const (
	TypeUnknown Type = iota
	TypeResearch
	TypeFrontend
	TypeBackend
	TypeDatabase
	TypeTesting
	TypeDeployment
)

// KnownTypes lists every supported agent type in display order.
var KnownTypes = []Type{
	TypeResearch,
	TypeFrontend,
	TypeBackend,
	TypeDatabase,
	TypeTesting,
	TypeDeployment,
}

// ParseType maps a caller-supplied agent type name to a Type.
// Matching is case-insensitive; unrecognised names yield TypeUnknown.
func ParseType(s string) Type {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "research":
		return TypeResearch
	case "frontend":
		return TypeFrontend
	case "backend":
		return TypeBackend
	case "database":
		return TypeDatabase
	case "testing":
		return TypeTesting
	case "deployment":
		return TypeDeployment
	default:
		return TypeUnknown
	}
}

func (t Type) String() string {
	switch t {
	case TypeResearch:
		return "research"
	case TypeFrontend:
		return "frontend"
	case TypeBackend:
		return "backend"
	case TypeDatabase:
		return "database"
	case TypeTesting:
		return "testing"
	case TypeDeployment:
		return "deployment"
	case TypeUnknown:
		return "unknown"
	}
	return "unknown"
}

// TypeNames returns the names of all known agent types.
func TypeNames() []string {
	names := make([]string, 0, len(KnownTypes))
	for _, t := range KnownTypes {
		names = append(names, t.String())
	}
	return names
}
