package optimizer

import (
	"context"

	"github.com/Ning0612/drivesync/internal/core/match"
	"github.com/Ning0612/drivesync/internal/domain"
)

type fileAction = domain.Action[domain.FileVersion]

// DetectFileRenames rewrites file transfers that are really renames into server
// or client edits. Three shapes are recognized, in this order:
//
//   - chain: a client upload whose content the server is removing under another name
//   - crossover: two client uploads that swap the contents of two files
//   - remove + download of the same content on one side
func DetectFileRenames(ctx context.Context, s *Session, plan domain.FilePlan) domain.FilePlan {
	plan = chainRenames(s, plan)
	plan = crossoverRenames(s, plan)
	return domain.FilePlan{
		ForServer: mergeRemoveDownload(s, plan.ForServer, domain.ChangeDeleted, domain.ChangeNone, domain.ChangeNew, domain.ChangeNone),
		ForClient: mergeRemoveDownload(s, plan.ForClient, domain.ChangeNone, domain.ChangeDeleted, domain.ChangeNone, domain.ChangeNew),
	}
}

// chainRenames: the client renamed a file. The server would remove the old name
// and receive an upload of the same content under the new name; a single server
// edit does the same without a transfer.
func chainRenames(s *Session, plan domain.FilePlan) domain.FilePlan {
	server := domain.CloneActions(plan.ForServer)
	client := domain.CloneActions(plan.ForClient)
	claimedServer := make(map[int]bool)
	claimedClient := make(map[int]bool)

	for ui, upload := range client {
		if claimedClient[ui] || !isClientUpload(upload) || upload.NewVersion.Checksum == "" {
			continue
		}
		target := *upload.NewVersion

		var (
			removes []int
			acks    []int
			names   []string
		)
		for ri, r := range server {
			if claimedServer[ri] || r.Kind != domain.ActionRemove || r.Version == nil ||
				!r.WasCausedBy(domain.ChangeDeleted, domain.ChangeNone) ||
				r.Version.Name == target.Name || r.Version.Checksum != target.Checksum {
				continue
			}
			removed := r.Version
			ack := indexOf(client, claimedClient, func(a fileAction) bool {
				return a.Kind == domain.ActionAcknowledge && match.MatchesVersion(a.Version, removed)
			})
			if ack < 0 {
				continue
			}
			removes = append(removes, ri)
			acks = append(acks, ack)
			names = append(names, removed.Name)
		}

		best := match.BestMatch(target.Name, names)
		if best < 0 {
			continue
		}
		ri, ai := removes[best], acks[best]

		edit := server[ri]
		edit.Kind = domain.ActionEdit
		edit.NewVersion = domain.Ptr(target)
		server[ri] = edit

		client[ai].NewVersion = nil
		client[ai].DependsOn = edit.ID

		client[ui].Kind = domain.ActionSync
		client[ui].Version = domain.Ptr(target)

		claimedServer[ri] = true
		claimedClient[ai] = true
		claimedClient[ui] = true
		s.log().Debug("file rename detected", "from", edit.Version.Name, "to", target.Name)
	}

	return domain.FilePlan{ForServer: server, ForClient: client}
}

// crossoverRenames: the client swapped the contents of A and B. Three server
// edits through a temporary name replace two uploads.
func crossoverRenames(s *Session, plan domain.FilePlan) domain.FilePlan {
	server := domain.CloneActions(plan.ForServer)
	client := domain.CloneActions(plan.ForClient)
	claimed := make(map[int]bool)
	var used map[string]bool

	for ai := range client {
		a := client[ai]
		aOld := uploadBase(a)
		if claimed[ai] || aOld == nil || !isSwapCandidate(a) {
			continue
		}
		bi := -1
		for j := ai + 1; j < len(client); j++ {
			b := client[j]
			bOld := uploadBase(b)
			if claimed[j] || bOld == nil || !isSwapCandidate(b) || bOld.Name == aOld.Name {
				continue
			}
			if a.NewVersion.Checksum == bOld.Checksum && b.NewVersion.Checksum == aOld.Checksum {
				bi = j
				break
			}
		}
		if bi < 0 {
			continue
		}
		b := client[bi]
		bOld := uploadBase(b)

		if used == nil {
			used = usedNames(s, plan)
		}
		tempName := match.AlternativeName(aOld.Name, used)
		used[tempName] = true
		temp := domain.FileVersion{Name: tempName, Checksum: aOld.Checksum}

		toTemp := domain.NewAction(domain.ActionEdit, domain.Ptr(*aOld), domain.Ptr(temp), a.Comparison)
		toA := domain.NewAction(domain.ActionEdit, domain.Ptr(*bOld), domain.Ptr(domain.FileVersion{Name: aOld.Name, Checksum: bOld.Checksum}), b.Comparison)
		toB := domain.NewAction(domain.ActionEdit, domain.Ptr(temp), domain.Ptr(domain.FileVersion{Name: bOld.Name, Checksum: aOld.Checksum}), b.Comparison)
		toA.DependsOn = toTemp.ID
		toB.DependsOn = toA.ID
		server = append(server, toTemp, toA, toB)

		client[ai] = acknowledgeAfter(a, toA)
		client[ai].Version = domain.Ptr(*aOld)
		client[bi] = acknowledgeAfter(b, toB)
		client[bi].Version = domain.Ptr(*bOld)

		claimed[ai] = true
		claimed[bi] = true
		s.log().Debug("file swap detected", "a", aOld.Name, "b", bOld.Name, "temp", tempName)
	}

	return domain.FilePlan{ForServer: server, ForClient: client}
}

func isSwapCandidate(a fileAction) bool {
	return isClientUpload(a) && a.WasCausedBy(domain.ChangeModified, domain.ChangeNone) && a.NewVersion.Checksum != ""
}

// uploadBase returns the version an upload replaces
func uploadBase(a fileAction) *domain.FileVersion {
	if a.Version != nil {
		return a.Version
	}
	if a.Comparison != nil {
		return a.Comparison.Original
	}
	return nil
}

// mergeRemoveDownload turns a remove and a download of the same content on one
// side into an edit at the remove's position
func mergeRemoveDownload(s *Session, actions []fileAction, removeClient, removeServer, createClient, createServer domain.Change) []fileAction {
	out := domain.CloneActions(actions)
	dropped := make(map[int]bool)

	for ri, r := range out {
		if r.Kind != domain.ActionRemove || r.Version == nil || r.Version.Checksum == "" ||
			!r.WasCausedBy(removeClient, removeServer) {
			continue
		}

		var (
			downloads []int
			names     []string
		)
		for di, d := range out {
			if dropped[di] || d.Kind != domain.ActionDownload || d.NewVersion == nil ||
				!d.WasCausedBy(createClient, createServer) ||
				d.NewVersion.Name == r.Version.Name || d.NewVersion.Checksum != r.Version.Checksum {
				continue
			}
			downloads = append(downloads, di)
			names = append(names, d.NewVersion.Name)
		}

		best := match.BestMatch(r.Version.Name, names)
		if best < 0 {
			continue
		}
		di := downloads[best]
		out[ri].Kind = domain.ActionEdit
		out[ri].NewVersion = domain.Ptr(*out[di].NewVersion)
		dropped[di] = true
		s.log().Debug("file move detected", "from", r.Version.Name, "to", out[ri].NewVersion.Name)
	}

	return without(out, dropped)
}
