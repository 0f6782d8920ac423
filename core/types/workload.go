// Package types - Workload input types
package types

// Workload describes a deployable system whose hosting cost is being
// estimated: typically one hosting component plus supporting services.
type Workload struct {
	// Name identifies the workload
	Name string `json:"name"`

	// Environment is the target environment (dev, staging, prod)
	Environment string `json:"environment,omitempty"`

	// Components are the priced parts of the workload
	Components []Component `json:"components"`
}

// ComponentKind classifies a workload component
type ComponentKind string

const (
	ComponentHosting  ComponentKind = "hosting"
	ComponentDatabase ComponentKind = "database"
	ComponentCache    ComponentKind = "cache"
	ComponentService  ComponentKind = "service"
)

// String returns the string representation
func (k ComponentKind) String() string {
	return string(k)
}

// IsValid checks if the kind is a known component kind
func (k ComponentKind) IsValid() bool {
	switch k {
	case ComponentHosting, ComponentDatabase, ComponentCache, ComponentService:
		return true
	default:
		return false
	}
}

// Component is one priced part of a workload
type Component struct {
	// Name identifies the component within the workload
	Name string `json:"name"`

	// Kind classifies the component
	Kind ComponentKind `json:"kind"`

	// Provider pins the component to a provider; empty means use the
	// configured preference order
	Provider Provider `json:"provider,omitempty"`

	// TierHint names the plan to bill against; empty means resolve
	// from usage
	TierHint string `json:"tierHint,omitempty"`

	// Usage is the component's expected usage
	Usage UsageVector `json:"usage"`
}
