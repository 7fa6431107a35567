package optimizer

import (
	"context"
	"sort"

	"github.com/Ning0612/drivesync/internal/domain"
)

// OrderDirectories sorts both directory lists and rewrites descendants of
// renamed directories to hang off the new path
func OrderDirectories(ctx context.Context, s *Session, plan domain.DirectoryPlan) domain.DirectoryPlan {
	return domain.DirectoryPlan{
		ForServer: propagateRenames(sortActions(plan.ForServer, true)),
		ForClient: propagateRenames(sortActions(plan.ForClient, true)),
	}
}

// OrderFiles sorts both file lists. Edits keep their relative order since swap
// chains depend on it.
func OrderFiles(ctx context.Context, s *Session, plan domain.FilePlan) domain.FilePlan {
	return domain.FilePlan{
		ForServer: sortActions(plan.ForServer, false),
		ForClient: sortActions(plan.ForClient, false),
	}
}

// sortActions returns a stably sorted copy: server-side copies first, then
// edits, removes (deepest first), acknowledges, syncs, downloads and uploads
func sortActions[V domain.Version](actions []domain.Action[V], sortEdits bool) []domain.Action[V] {
	out := domain.CloneActions(actions)
	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := actionRank(out[i]), actionRank(out[j])
		if ri != rj {
			return ri < rj
		}

		switch out[i].Kind {
		case domain.ActionRemove:
			return sortKey(out[i]) > sortKey(out[j])
		case domain.ActionEdit:
			if !sortEdits {
				return false
			}
		}
		return sortKey(out[i]) < sortKey(out[j])
	})
	return out
}

// actionRank returns the sort priority for action kinds
func actionRank[V domain.Version](a domain.Action[V]) int {
	switch a.Kind {
	case domain.ActionDownload:
		if a.IsServerCopy() {
			return 0
		}
		return 5
	case domain.ActionEdit:
		return 1
	case domain.ActionRemove:
		return 2
	case domain.ActionAcknowledge:
		return 3
	case domain.ActionSync:
		return 4
	case domain.ActionUpload:
		return 6
	default:
		return 7
	}
}

// sortKey is the "from" key for edits and removes, the target key otherwise
func sortKey[V domain.Version](a domain.Action[V]) string {
	if (a.Kind == domain.ActionEdit || a.Kind == domain.ActionRemove) && a.Version != nil {
		return (*a.Version).Key()
	}
	return a.Key()
}

// propagateRenames rebases every action following an edit onto the edit's new path
func propagateRenames(actions []domain.Action[domain.DirectoryVersion]) []domain.Action[domain.DirectoryVersion] {
	for i := range actions {
		edit := actions[i]
		if edit.Kind != domain.ActionEdit || edit.Version == nil || edit.NewVersion == nil ||
			edit.Version.Path == edit.NewVersion.Path {
			continue
		}
		from, to := edit.Version.Path, edit.NewVersion.Path
		for j := i + 1; j < len(actions); j++ {
			if v := actions[j].Version; v != nil && v.IsDescendantOf(from) {
				actions[j].Version = domain.Ptr(v.Rebase(from, to))
			}
			if v := actions[j].NewVersion; v != nil && v.IsDescendantOf(from) {
				actions[j].NewVersion = domain.Ptr(v.Rebase(from, to))
			}
		}
	}
	return actions
}
