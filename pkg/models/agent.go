package models

import "time"

// AgentStatus represents whether a registered agent can take work.
type AgentStatus string

const (
	// AgentStatusAvailable indicates the agent accepts tasks.
	AgentStatusAvailable AgentStatus = "available"
	// AgentStatusDisabled indicates the agent is listed but must not be used.
	AgentStatusDisabled AgentStatus = "disabled"
)

// Valid returns true if the status is a known value.
func (s AgentStatus) Valid() bool {
	switch s {
	case AgentStatusAvailable, AgentStatusDisabled:
		return true
	default:
		return false
	}
}

// Agent describes a generation agent known to a registry.
type Agent struct {
	// ID is the identifier tasks target, e.g. "backend_agent".
	ID string `json:"id" yaml:"id"`
	// Description is free text shown by the CLI.
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	// Actions lists the actions the agent performs.
	Actions []string `json:"actions,omitempty" yaml:"actions,omitempty"`
	// Status defaults to available when empty.
	Status AgentStatus `json:"status,omitempty" yaml:"status,omitempty"`
	// RegisteredAt is when the registry first saw the agent.
	RegisteredAt time.Time `json:"registered_at" yaml:"-"`
}

// Available reports whether the agent can be scheduled.
func (a Agent) Available() bool {
	return a.Status == "" || a.Status == AgentStatusAvailable
}

// Supports reports whether the agent lists action. An agent with no
// declared actions is assumed to support any.
func (a Agent) Supports(action string) bool {
	if len(a.Actions) == 0 {
		return true
	}
	for _, have := range a.Actions {
		if have == action {
			return true
		}
	}
	return false
}
