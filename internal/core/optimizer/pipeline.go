package optimizer

import (
	"context"
	"fmt"
	"time"

	"github.com/Ning0612/drivesync/internal/core/trace"
	"github.com/Ning0612/drivesync/internal/domain"
)

// Entity names used in logs and traces
const (
	EntityDirectories = "directories"
	EntityFiles       = "files"
)

// PassFunc rewrites a plan. It must not mutate the slices of its input.
type PassFunc[V domain.Version] func(ctx context.Context, s *Session, plan domain.Plan[V]) domain.Plan[V]

// Pass is a named rewrite rule
type Pass[V domain.Version] struct {
	Name string
	Run  PassFunc[V]
}

// DirectoryPasses returns the fixed pass sequence for directories
func DirectoryPasses() []Pass[domain.DirectoryVersion] {
	return []Pass[domain.DirectoryVersion]{
		{Name: "redundant-remove", Run: RemoveRedundantRemoves},
		{Name: "rename-detect", Run: DetectDirectoryRenames},
		{Name: "empty-directory", Run: CollapseEmptyDirectories},
		{Name: "order", Run: OrderDirectories},
	}
}

// FilePasses returns the fixed pass sequence for files
func FilePasses() []Pass[domain.FileVersion] {
	return []Pass[domain.FileVersion]{
		{Name: "rename-detect", Run: DetectFileRenames},
		{Name: "empty-file", Run: CollapseEmptyFiles},
		{Name: "copy-detect", Run: DetectCopies},
		{Name: "collapse-uploads", Run: CollapseMultipleUploads},
		{Name: "delay-metadata", Run: DelayMetadataDownload},
		{Name: "order", Run: OrderFiles},
		{Name: "inline-metadata", Run: InlineMetadata},
	}
}

// OptimizeDirectories runs the directory pipeline
func OptimizeDirectories(ctx context.Context, s *Session, plan domain.DirectoryPlan) domain.DirectoryPlan {
	return Run(ctx, s, EntityDirectories, DirectoryPasses(), plan)
}

// OptimizeFiles runs the file pipeline
func OptimizeFiles(ctx context.Context, s *Session, plan domain.FilePlan) domain.FilePlan {
	return Run(ctx, s, EntityFiles, FilePasses(), plan)
}

// Run folds plan through passes in order. An empty plan is returned untouched.
// A pass that panics is reported and skipped; the next pass receives its input.
func Run[V domain.Version](ctx context.Context, s *Session, entity string, passes []Pass[V], plan domain.Plan[V]) domain.Plan[V] {
	if plan.IsEmpty() {
		return plan
	}
	if s == nil {
		s = NewSession(nil)
	}

	log := s.log().With("entity", entity)
	tracer := s.tracer()
	stats := plan.Stats()
	log.Debug("optimizing plan", "server", stats.ServerActions, "client", stats.ClientActions)

	current := plan
	for _, pass := range passes {
		if current.IsEmpty() {
			log.Debug("plan became empty, skipping remaining passes", "after", pass.Name)
			break
		}

		tracer.PassStarted(entity, pass.Name, current.Stats().Total())
		start := time.Now()

		next, err := runPass(ctx, s, pass, current)
		if err != nil {
			log.Error("optimizer pass failed", "pass", pass.Name, "error", err)
			tracer.PassFailed(entity, pass.Name, err)
			continue
		}

		tracer.PassFinished(trace.Compute(entity, pass.Name, current, next, time.Since(start)))
		current = next
	}

	stats = current.Stats()
	log.Debug("plan optimized", "server", stats.ServerActions, "client", stats.ClientActions)
	return current
}

func runPass[V domain.Version](ctx context.Context, s *Session, pass Pass[V], plan domain.Plan[V]) (result domain.Plan[V], err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in pass %s: %v", pass.Name, r)
		}
	}()
	return pass.Run(ctx, s, plan), nil
}
