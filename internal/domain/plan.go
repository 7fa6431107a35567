package domain

import "github.com/google/uuid"

// Plan is the pair of ordered action lists produced by the comparison stage
// and refined by the optimizer. Order within each list is meaningful.
type Plan[V Version] struct {
	// ForServer holds the actions to apply on the server
	ForServer []Action[V]

	// ForClient holds the actions to hand to the client
	ForClient []Action[V]
}

// DirectoryPlan is the plan for directories of a folder
type DirectoryPlan = Plan[DirectoryVersion]

// FilePlan is the plan for files of a folder
type FilePlan = Plan[FileVersion]

// IsEmpty reports whether both lists are empty
func (p Plan[V]) IsEmpty() bool {
	return len(p.ForServer) == 0 && len(p.ForClient) == 0
}

// Clone returns a deep copy of the plan
func (p Plan[V]) Clone() Plan[V] {
	return Plan[V]{
		ForServer: CloneActions(p.ForServer),
		ForClient: CloneActions(p.ForClient),
	}
}

// Stats summarizes the plan
func (p Plan[V]) Stats() PlanStats {
	stats := PlanStats{
		ServerActions: len(p.ForServer),
		ClientActions: len(p.ForClient),
		ByKind:        make(map[ActionKind]int),
	}
	for _, list := range [][]Action[V]{p.ForServer, p.ForClient} {
		for _, a := range list {
			stats.ByKind[a.Kind]++
			if a.HasDependency() {
				stats.Dependent++
			}
		}
	}
	return stats
}

// Find returns the action with the given ID from either list
func (p Plan[V]) Find(id uuid.UUID) (Action[V], bool) {
	for _, list := range [][]Action[V]{p.ForServer, p.ForClient} {
		for _, a := range list {
			if a.ID == id {
				return a, true
			}
		}
	}
	return Action[V]{}, false
}

// PlanStats provides summary statistics for a plan
type PlanStats struct {
	ServerActions int
	ClientActions int
	Dependent     int
	ByKind        map[ActionKind]int
}

// Total returns the number of actions on both sides
func (s PlanStats) Total() int {
	return s.ServerActions + s.ClientActions
}

// CloneActions deep-copies a list of actions
func CloneActions[V Version](actions []Action[V]) []Action[V] {
	if actions == nil {
		return nil
	}
	out := make([]Action[V], len(actions))
	for i, a := range actions {
		out[i] = a.Clone()
	}
	return out
}
