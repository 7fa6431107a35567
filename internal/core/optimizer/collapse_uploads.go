package optimizer

import (
	"context"

	"github.com/Ning0612/drivesync/internal/domain"
)

// CollapseMultipleUploads keeps only the first client upload of each new content.
// The dropped uploads turn into acknowledges on the next cycle, once the server
// holds the content and copy detection can see it.
func CollapseMultipleUploads(ctx context.Context, s *Session, plan domain.FilePlan) domain.FilePlan {
	seen := make(map[string]bool)
	dropped := make(map[int]bool)

	for i, a := range plan.ForClient {
		if a.Kind != domain.ActionUpload || a.NewVersion == nil || a.NewVersion.Checksum == "" ||
			!a.WasCausedBy(domain.ChangeNew, domain.ChangeNone) {
			continue
		}
		if seen[a.NewVersion.Checksum] {
			dropped[i] = true
			s.log().Debug("duplicate upload deferred", "file", a.NewVersion.Name)
			continue
		}
		seen[a.NewVersion.Checksum] = true
	}

	return domain.FilePlan{
		ForServer: domain.CloneActions(plan.ForServer),
		ForClient: without(domain.CloneActions(plan.ForClient), dropped),
	}
}
