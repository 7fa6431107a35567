package optimizer

import (
	"context"
	"sort"
	"strings"

	"github.com/Ning0612/drivesync/internal/domain"
)

// RemoveRedundantRemoves drops directory removes already implied by an ancestor remove
// on the same side. Each dropped remove is kept in the ancestor's NestedRemoves,
// together with everything it had absorbed itself, so a later pass can restore it.
func RemoveRedundantRemoves(ctx context.Context, s *Session, plan domain.DirectoryPlan) domain.DirectoryPlan {
	return domain.DirectoryPlan{
		ForServer: collapseRemoves(plan.ForServer),
		ForClient: collapseRemoves(plan.ForClient),
	}
}

func collapseRemoves(actions []domain.Action[domain.DirectoryVersion]) []domain.Action[domain.DirectoryVersion] {
	out := domain.CloneActions(actions)

	var removes []int
	for i, a := range out {
		if isNonConflictingRemove(a) {
			removes = append(removes, i)
		}
	}
	if len(removes) < 2 {
		return out
	}

	// deepest first
	sort.SliceStable(removes, func(x, y int) bool {
		return out[removes[x]].Version.Path > out[removes[y]].Version.Path
	})

	dropped := make(map[int]bool)
	for _, i := range removes {
		if dropped[i] {
			continue
		}
		prefix := domain.ChildPrefix(out[i].Version.Path)
		for _, j := range removes {
			if j == i || dropped[j] || !strings.HasPrefix(out[j].Version.Path, prefix) {
				continue
			}
			absorbed := out[j]
			nested := absorbed.Params.NestedRemoves
			absorbed.Params.NestedRemoves = nil

			out[i].Params.NestedRemoves = append(out[i].Params.NestedRemoves, absorbed)
			out[i].Params.NestedRemoves = append(out[i].Params.NestedRemoves, nested...)
			dropped[j] = true
		}
	}

	return without(out, dropped)
}
