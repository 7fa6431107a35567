package optimizer

import (
	"context"

	"github.com/Ning0612/drivesync/internal/core/match"
	"github.com/Ning0612/drivesync/internal/domain"
)

// DelayMetadataDownload drops client downloads of the metadata file while the
// client still has uploads pending; the metadata would be stale right after.
func DelayMetadataDownload(ctx context.Context, s *Session, plan domain.FilePlan) domain.FilePlan {
	meta := s.metaName()
	if meta == "" || len(match.FilterByAction(plan.ForClient, domain.ActionUpload)) == 0 {
		return plan
	}

	dropped := make(map[int]bool)
	for i, a := range plan.ForClient {
		if a.Kind == domain.ActionDownload && match.IsDriveMetaAction(a, meta) {
			dropped[i] = true
		}
	}
	if len(dropped) > 0 {
		s.log().Debug("metadata download delayed", "count", len(dropped))
	}

	return domain.FilePlan{
		ForServer: domain.CloneActions(plan.ForServer),
		ForClient: without(domain.CloneActions(plan.ForClient), dropped),
	}
}

// InlineMetadata embeds the metadata payload into client downloads of the
// metadata file so the client does not have to fetch it separately
func InlineMetadata(ctx context.Context, s *Session, plan domain.FilePlan) domain.FilePlan {
	meta := s.metaName()
	if !s.InlineMetadata || s.MetaSource == nil || meta == "" {
		return plan
	}

	client := domain.CloneActions(plan.ForClient)
	for i, a := range client {
		if a.Kind != domain.ActionDownload || a.NewVersion == nil || !match.IsDriveMeta(a.NewVersion, meta) {
			continue
		}
		content, err := s.MetaSource.Content(ctx, *a.NewVersion)
		if err != nil {
			s.log().Warn("failed to inline metadata", "file", a.NewVersion.Name, "error", err)
			continue
		}
		client[i].Params.Inline = content
		client[i].Params.HasInline = true
	}

	return domain.FilePlan{
		ForServer: domain.CloneActions(plan.ForServer),
		ForClient: client,
	}
}
