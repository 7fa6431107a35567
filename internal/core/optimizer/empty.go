package optimizer

import (
	"context"

	"github.com/Ning0612/drivesync/internal/domain"
)

// CollapseEmptyDirectories turns syncs of newly created empty directories into
// acknowledges. There is no content to reconcile.
func CollapseEmptyDirectories(ctx context.Context, s *Session, plan domain.DirectoryPlan) domain.DirectoryPlan {
	if s.EmptyChecksum == "" {
		return plan
	}
	return domain.DirectoryPlan{
		ForServer: acknowledgeEmpty(s.EmptyChecksum, plan.ForServer),
		ForClient: acknowledgeEmpty(s.EmptyChecksum, plan.ForClient),
	}
}

func acknowledgeEmpty(empty string, actions []domain.Action[domain.DirectoryVersion]) []domain.Action[domain.DirectoryVersion] {
	out := domain.CloneActions(actions)
	for i, a := range out {
		if a.Kind != domain.ActionSync || a.NewVersion == nil || a.NewVersion.Checksum != empty {
			continue
		}
		if a.WasCausedBy(domain.ChangeNew, domain.ChangeNone) || a.WasCausedBy(domain.ChangeNone, domain.ChangeNew) {
			out[i].Kind = domain.ActionAcknowledge
		}
	}
	return out
}

// CollapseEmptyFiles replaces uploads of empty content with a server download that
// carries no payload and a client acknowledge depending on it. Conflicting
// uploads are collapsed too since the result is the same empty file.
func CollapseEmptyFiles(ctx context.Context, s *Session, plan domain.FilePlan) domain.FilePlan {
	if s.EmptyChecksum == "" {
		return plan
	}

	server := domain.CloneActions(plan.ForServer)
	client := domain.CloneActions(plan.ForClient)
	for i, a := range client {
		if a.Kind != domain.ActionUpload || a.NewVersion == nil || a.NewVersion.Checksum != s.EmptyChecksum {
			continue
		}

		download := domain.NewAction(domain.ActionDownload, copyOf(a.Version), copyOf(a.NewVersion), a.Comparison)
		download.Params.NoPayload = true
		server = append(server, download)

		client[i] = acknowledgeAfter(a, download)
		s.log().Debug("empty upload collapsed", "file", a.NewVersion.Name)
	}
	return domain.FilePlan{ForServer: server, ForClient: client}
}

// acknowledgeAfter turns a client upload into an acknowledge of the same versions
// that waits for the server action dep
func acknowledgeAfter(upload domain.Action[domain.FileVersion], dep domain.Action[domain.FileVersion]) domain.Action[domain.FileVersion] {
	ack := upload
	ack.Kind = domain.ActionAcknowledge
	ack.DependsOn = dep.ID
	return ack
}
