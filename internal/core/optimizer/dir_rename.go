package optimizer

import (
	"context"
	"sort"

	"github.com/Ning0612/drivesync/internal/core/match"
	"github.com/Ning0612/drivesync/internal/domain"
)

// DetectDirectoryRenames turns remove + create pairs with equal content into edits.
//
// Client renames and server renames are applied alternately until a round makes
// no rewrite or MaxRenameRounds is reached. Renames already implied by an
// ancestor rename are collapsed afterwards.
func DetectDirectoryRenames(ctx context.Context, s *Session, plan domain.DirectoryPlan) domain.DirectoryPlan {
	current := plan
	limit := s.maxRenameRounds()

	for round := 1; ; round++ {
		var clientCount, serverCount int
		current, clientCount = clientRenames(s, current)
		current, serverCount = serverRenames(s, current)

		if clientCount+serverCount == 0 {
			break
		}
		s.log().Debug("rename round", "round", round, "client", clientCount, "server", serverCount)
		if round >= limit {
			s.log().Warn("directory rename detection did not converge", "rounds", round, "last_rewrites", clientCount+serverCount)
			break
		}
	}

	return domain.DirectoryPlan{
		ForServer: collapseNestedRenames(current.ForServer),
		ForClient: collapseNestedRenames(current.ForClient),
	}
}

// clientRenames handles directories renamed on the client: the server sees a
// remove and a create, the client only needs bookkeeping.
func clientRenames(s *Session, plan domain.DirectoryPlan) (domain.DirectoryPlan, int) {
	server, client, n := detectRenames(s, plan.ForServer, plan.ForClient,
		[2]domain.Change{domain.ChangeDeleted, domain.ChangeNone},
		[2]domain.Change{domain.ChangeNew, domain.ChangeNone})
	return domain.DirectoryPlan{ForServer: server, ForClient: client}, n
}

// serverRenames is the mirror image for directories renamed on the server
func serverRenames(s *Session, plan domain.DirectoryPlan) (domain.DirectoryPlan, int) {
	client, server, n := detectRenames(s, plan.ForClient, plan.ForServer,
		[2]domain.Change{domain.ChangeNone, domain.ChangeDeleted},
		[2]domain.Change{domain.ChangeNone, domain.ChangeNew})
	return domain.DirectoryPlan{ForServer: server, ForClient: client}, n
}

// detectRenames rewrites own (the side receiving remove + sync) and peer (the
// side receiving acknowledge + sync). removeCause and createCause are
// (client, server) change pairs.
func detectRenames(
	s *Session,
	ownIn, peerIn []domain.Action[domain.DirectoryVersion],
	removeCause, createCause [2]domain.Change,
) (own, peer []domain.Action[domain.DirectoryVersion], rewrites int) {
	own = domain.CloneActions(ownIn)
	peer = domain.CloneActions(peerIn)

	dropped := make(map[int]bool)
	claimed := make(map[int]bool)
	var restored []domain.Action[domain.DirectoryVersion]

	for i := range own {
		removal := own[i]
		if removal.Kind != domain.ActionRemove || removal.Version == nil ||
			!removal.WasCausedBy(removeCause[0], removeCause[1]) {
			continue
		}

		ack := indexOf(peer, claimed, func(a domain.Action[domain.DirectoryVersion]) bool {
			return a.Kind == domain.ActionAcknowledge && match.MatchesVersion(a.Version, removal.Version)
		})
		if ack < 0 {
			continue
		}

		var (
			creates   []int
			peerSyncs []int
			paths     []string
		)
		for j, c := range own {
			if dropped[j] || c.Kind != domain.ActionSync || c.NewVersion == nil ||
				!c.WasCausedBy(createCause[0], createCause[1]) ||
				c.NewVersion.Path == removal.Version.Path ||
				!s.sameDirectoryContent(*removal.Version, *c.NewVersion) {
				continue
			}
			created := c.NewVersion
			peerSync := indexOf(peer, claimed, func(a domain.Action[domain.DirectoryVersion]) bool {
				return a.Kind == domain.ActionSync && match.MatchesVersion(a.NewVersion, created)
			})
			if peerSync < 0 {
				continue
			}
			creates = append(creates, j)
			peerSyncs = append(peerSyncs, peerSync)
			paths = append(paths, created.Path)
		}

		best := match.BestMatch(removal.Version.Path, paths)
		if best < 0 {
			continue
		}

		edit := removal
		edit.Kind = domain.ActionEdit
		edit.NewVersion = domain.Ptr(*own[creates[best]].NewVersion)
		edit.Params.NestedRemoves = nil
		own[i] = edit
		dropped[creates[best]] = true
		restored = append(restored, removal.Params.NestedRemoves...)

		peer[ack].NewVersion = nil
		ps := peerSyncs[best]
		peer[ps].Version = domain.Ptr(*peer[ps].NewVersion)
		claimed[ack] = true
		claimed[ps] = true

		s.log().Debug("directory rename detected", "from", removal.Version.Path, "to", edit.NewVersion.Path)
		rewrites++
	}

	own = append(without(own, dropped), restored...)
	return own, peer, rewrites
}

// sameDirectoryContent compares checksums, falling back to plain checksums in meta mode
func (s *Session) sameDirectoryContent(removed, created domain.DirectoryVersion) bool {
	if removed.Checksum != "" && removed.Checksum == created.Checksum {
		return true
	}
	if plain := s.plainChecksum(removed.Path); plain != "" && plain == created.Checksum {
		return true
	}
	if plain := s.plainChecksum(created.Path); plain != "" && plain == removed.Checksum {
		return true
	}
	return false
}

func indexOf[V domain.Version](actions []domain.Action[V], skip map[int]bool, pred func(domain.Action[V]) bool) int {
	for i, a := range actions {
		if !skip[i] && pred(a) {
			return i
		}
	}
	return -1
}

// collapseNestedRenames drops edits whose move is already performed by an ancestor edit
func collapseNestedRenames(actions []domain.Action[domain.DirectoryVersion]) []domain.Action[domain.DirectoryVersion] {
	var edits []int
	for i, a := range actions {
		if a.Kind == domain.ActionEdit && a.Version != nil && a.NewVersion != nil {
			edits = append(edits, i)
		}
	}
	if len(edits) < 2 {
		return actions
	}
	sort.SliceStable(edits, func(x, y int) bool {
		return actions[edits[x]].NewVersion.Path < actions[edits[y]].NewVersion.Path
	})

	dropped := make(map[int]bool)
	var accepted []domain.Action[domain.DirectoryVersion]
	for _, i := range edits {
		e := actions[i]
		implied := false
		for _, a := range accepted {
			if e.Version.IsDescendantOf(a.Version.Path) &&
				e.Version.Rebase(a.Version.Path, a.NewVersion.Path).Path == e.NewVersion.Path {
				implied = true
				break
			}
		}
		if implied {
			dropped[i] = true
			continue
		}
		accepted = append(accepted, e)
	}
	return without(actions, dropped)
}
