package optimizer

import (
	"github.com/Ning0612/drivesync/internal/domain"
)

// without returns actions minus the entries at the given indexes
func without[V domain.Version](actions []domain.Action[V], drop map[int]bool) []domain.Action[V] {
	if len(drop) == 0 {
		return actions
	}
	out := make([]domain.Action[V], 0, len(actions)-len(drop))
	for i, a := range actions {
		if !drop[i] {
			out = append(out, a)
		}
	}
	return out
}

// isNonConflictingRemove reports whether a was generated for a one-sided or agreed deletion
func isNonConflictingRemove[V domain.Version](a domain.Action[V]) bool {
	if a.Kind != domain.ActionRemove || a.Version == nil {
		return false
	}
	return a.WasCausedBy(domain.ChangeDeleted, domain.ChangeNone) ||
		a.WasCausedBy(domain.ChangeNone, domain.ChangeDeleted) ||
		a.WasCausedBy(domain.ChangeDeleted, domain.ChangeDeleted)
}

// isClientUpload reports whether a uploads client content the server has not touched
func isClientUpload(a domain.Action[domain.FileVersion]) bool {
	if a.Kind != domain.ActionUpload || a.NewVersion == nil || a.Comparison == nil {
		return false
	}
	if a.Comparison.ServerChange() != domain.ChangeNone {
		return false
	}
	switch a.Comparison.ClientChange() {
	case domain.ChangeNew, domain.ChangeModified:
		return true
	}
	return false
}

// usedNames collects every file name referenced by the plan or known to the mapper
func usedNames(s *Session, plan domain.FilePlan) map[string]bool {
	used := s.mapper().UsedFileNames()
	for _, list := range [][]domain.Action[domain.FileVersion]{plan.ForServer, plan.ForClient} {
		for _, a := range list {
			if a.Version != nil {
				used[a.Version.Name] = true
			}
			if a.NewVersion != nil {
				used[a.NewVersion.Name] = true
			}
		}
	}
	return used
}

// copyOf returns a fresh pointer to a copy of *v (nil stays nil)
func copyOf[V domain.Version](v *V) *V {
	if v == nil {
		return nil
	}
	return domain.Ptr(*v)
}
