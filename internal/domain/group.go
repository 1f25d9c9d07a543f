package domain

import "time"

// Group is an admin-managed collection of agents associated with a set
// of covered tags. Membership is restricted to agent-role users.
type Group struct {
	ID          string
	Name        string
	Description string
	TagIDs      []string
	AgentIDs    []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
