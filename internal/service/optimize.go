package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Ning0612/drivesync/internal/adapter"
	"github.com/Ning0612/drivesync/internal/config"
	"github.com/Ning0612/drivesync/internal/core/checksum"
	"github.com/Ning0612/drivesync/internal/core/optimizer"
	"github.com/Ning0612/drivesync/internal/core/replay"
	"github.com/Ning0612/drivesync/internal/core/trace"
	"github.com/Ning0612/drivesync/internal/domain"
	"github.com/Ning0612/drivesync/internal/lock"
	"github.com/Ning0612/drivesync/internal/logger"
	"github.com/Ning0612/drivesync/internal/planfile"
	"github.com/Ning0612/drivesync/internal/store"
)

// Run statuses saved in the history
const (
	StatusSuccess  = "success"
	StatusDegraded = "degraded"
	StatusFailed   = "failed"
)

// OptimizeOptions controls a single Optimize call
type OptimizeOptions struct {
	// Verify replays raw and optimized plans and reports end-state differences
	Verify bool

	// Lock takes the per-folder lock for the duration of the run
	Lock bool
}

// OptimizeService runs optimization cycles against the configured store and storage
type OptimizeService struct {
	config      *config.Config
	store       *store.Store
	openStorage StorageFactory
	storage     adapter.Adapter
	opened      bool
	log         logger.Logger
}

// NewOptimizeService creates a new optimization service.
// st may be nil, which disables the checksum store and run history.
func NewOptimizeService(cfg *config.Config, st *store.Store) (*OptimizeService, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	return &OptimizeService{
		config:      cfg,
		store:       st,
		openStorage: OpenStorage,
		log:         logger.Get(),
	}, nil
}

// SetStorageFactory replaces the factory used to open the storage backend
func (s *OptimizeService) SetStorageFactory(f StorageFactory) {
	s.openStorage = f
}

// SetLogger sets the logger used by the service and the optimizer
func (s *OptimizeService) SetLogger(log logger.Logger) {
	if log == nil {
		log = &logger.NullLogger{}
	}
	s.log = log
}

// Close releases the storage backend
func (s *OptimizeService) Close() error {
	if s.storage == nil {
		return nil
	}
	err := s.storage.Close()
	s.storage = nil
	s.opened = false
	return err
}

// getStorage opens the storage backend once
func (s *OptimizeService) getStorage(ctx context.Context) (adapter.Adapter, error) {
	if s.opened {
		return s.storage, nil
	}
	a, err := s.openStorage(ctx, s.config)
	if err != nil {
		return nil, err
	}
	s.storage = a
	s.opened = true
	return a, nil
}

// Optimize runs both pipelines over the plans of a cycle and records the run
func (s *OptimizeService) Optimize(ctx context.Context, cycle *planfile.Cycle, opts OptimizeOptions) (*planfile.Result, error) {
	if cycle == nil {
		return nil, fmt.Errorf("%w: cycle cannot be nil", domain.ErrPlanInvalid)
	}
	log := s.log.With("folder", cycle.Folder)

	if opts.Lock {
		fl, err := lock.New(s.config.Store.Path, cycle.Folder)
		if err != nil {
			return nil, fmt.Errorf("failed to create folder lock: %w", err)
		}
		if err := fl.Acquire(); err != nil {
			return nil, err
		}
		defer func() {
			if err := fl.Release(); err != nil {
				log.Warn("failed to release folder lock", "error", err)
			}
		}()
	}

	run := store.RunRecord{Folder: cycle.Folder, StartTime: time.Now()}
	result, err := s.optimize(ctx, log, cycle, opts, &run)
	run.EndTime = time.Now()
	switch {
	case err != nil:
		run.Status = StatusFailed
		run.Error = err.Error()
	case run.FailedPasses > 0 || run.Error != "":
		run.Status = StatusDegraded
	default:
		run.Status = StatusSuccess
	}
	s.saveRun(log, run)

	if err != nil {
		log.Error("optimization failed", "error", err)
		return nil, err
	}
	log.Info("optimization finished",
		"status", run.Status,
		"directories", fmt.Sprintf("%d->%d", run.DirectoryActionsBefore, run.DirectoryActionsAfter),
		"files", fmt.Sprintf("%d->%d", run.FileActionsBefore, run.FileActionsAfter),
		"duration", run.EndTime.Sub(run.StartTime))
	return result, nil
}

func (s *OptimizeService) optimize(ctx context.Context, log logger.Logger, cycle *planfile.Cycle, opts OptimizeOptions, run *store.RunRecord) (*planfile.Result, error) {
	dirPlan, err := cycle.DirectoryPlan()
	if err != nil {
		return nil, err
	}
	filePlan, err := cycle.FilePlan()
	if err != nil {
		return nil, err
	}
	run.DirectoryActionsBefore = dirPlan.Stats().Total()
	run.FileActionsBefore = filePlan.Stats().Total()

	recorder := &trace.Recorder{}
	session, warnings, err := s.newSession(ctx, log, cycle, recorder)
	if err != nil {
		return nil, err
	}
	run.Error = strings.Join(warnings, "; ")

	optDirs := optimizer.OptimizeDirectories(ctx, session, dirPlan)
	optFiles := optimizer.OptimizeFiles(ctx, session, filePlan)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	run.DirectoryActionsAfter = optDirs.Stats().Total()
	run.FileActionsAfter = optFiles.Stats().Total()
	failed := recorder.Failed()
	run.FailedPasses = len(failed)

	result := &planfile.Result{
		Folder:      cycle.Folder,
		Directories: planfile.EncodeDirectoryPlan(optDirs),
		Files:       planfile.EncodeFilePlan(optFiles),
		Stats: planfile.StatsDoc{
			DirectoryActionsBefore: run.DirectoryActionsBefore,
			DirectoryActionsAfter:  run.DirectoryActionsAfter,
			FileActionsBefore:      run.FileActionsBefore,
			FileActionsAfter:       run.FileActionsAfter,
			FailedPasses:           failed,
			Warnings:               warnings,
		},
	}
	log.Debug("pass summary", "summary", trace.Summary(recorder.Deltas()))

	if opts.Verify {
		serverDirs, clientDirs := cycle.DirectoryVersions()
		serverFiles, clientFiles := cycle.FileVersions()
		result.Differences = append(
			differences(optimizer.EntityDirectories, replay.Verify(replay.StateOf(serverDirs, clientDirs), dirPlan, optDirs)),
			differences(optimizer.EntityFiles, replay.Verify(replay.StateOf(serverFiles, clientFiles), filePlan, optFiles))...,
		)
		if unexpected := countUnexpected(result.Differences); unexpected > 0 {
			log.Warn("optimized plan changes the end state", "differences", unexpected)
		}
	}

	return result, nil
}

// newSession builds the per-cycle optimizer session. An unavailable storage
// backend only disables content search and metadata reads; it is returned as a warning.
func (s *OptimizeService) newSession(ctx context.Context, log logger.Logger, cycle *planfile.Cycle, recorder *trace.Recorder) (*optimizer.Session, []string, error) {
	oc := s.config.Optimizer
	algo := s.config.ChecksumAlgorithm()

	session := optimizer.NewSession(cycle.Mapper())
	session.Logger = log
	session.MetaMode = oc.MetaMode
	if cycle.MetaMode != nil {
		session.MetaMode = *cycle.MetaMode
	}
	session.MetaFileName = oc.MetaFileName
	session.EmptyChecksum = checksum.Empty(algo)
	session.InlineMetadata = oc.InlineMetadata
	session.MaxRenameRounds = oc.MaxRenameRounds
	session.FolderID = cycle.FolderID
	session.TrashScope = s.config.Storage.Trash

	if oc.Trace {
		session.Tracer = trace.Multi{trace.NewLogTracer(log, true), recorder}
	} else {
		session.Tracer = recorder
	}

	if session.MetaMode {
		hasher, err := checksum.NewDirectoryHasher(algo, session.MetaFileName)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", domain.ErrConfigInvalid, err)
		}
		plain, err := hasher.PlainAll(ctx, cycle.DirectoryContents())
		if err != nil {
			return nil, nil, fmt.Errorf("failed to compute plain checksums: %w", err)
		}
		session.PlainChecksums = plain
	}

	if s.store != nil {
		session.Store = s.store
	}

	var warnings []string
	storage, err := s.getStorage(ctx)
	if err != nil {
		log.Warn("storage unavailable, optimizing without content search", "error", err)
		warnings = append(warnings, fmt.Sprintf("storage unavailable: %v", err))
	}
	if storage != nil {
		session.Storage = storage
		session.MetaSource = &metaSource{
			storage:  storage,
			folderID: cycle.FolderID,
			maxSize:  s.config.ChecksumOptions().MaxSize,
		}
	}

	return session, warnings, nil
}

// saveRun records a run; a history failure never fails the run itself
func (s *OptimizeService) saveRun(log logger.Logger, run store.RunRecord) {
	if s.store == nil {
		return
	}
	if err := s.store.SaveRun(run); err != nil {
		log.Warn("failed to save run history", "error", err)
	}
}

// History returns recent runs of a folder ("" = all folders), newest first
func (s *OptimizeService) History(folder string, limit int) ([]store.RunRecord, error) {
	if s.store == nil {
		return nil, fmt.Errorf("run history requires a store")
	}
	return s.store.GetHistory(folder, limit)
}

// RecordChecksums seeds the checksum store with files known to exist in storage
func (s *OptimizeService) RecordChecksums(ctx context.Context, candidates []domain.ChecksumCandidate) error {
	if s.store == nil {
		return fmt.Errorf("recording checksums requires a store")
	}
	for _, c := range candidates {
		c.Checksum = strings.ToLower(strings.TrimSpace(c.Checksum))
		if err := s.store.Record(ctx, c); err != nil {
			return err
		}
	}
	s.log.Info("recorded checksums", "count", len(candidates))
	return nil
}

func differences(entity string, diffs []replay.Difference) []planfile.DifferenceDoc {
	out := make([]planfile.DifferenceDoc, 0, len(diffs))
	for _, d := range diffs {
		out = append(out, planfile.DifferenceDoc{
			Entity:    entity,
			Side:      d.Side,
			Key:       d.Key,
			Raw:       d.Raw,
			Optimized: d.Optimized,
			Expected:  d.Expected,
		})
	}
	return out
}

func countUnexpected(diffs []planfile.DifferenceDoc) int {
	n := 0
	for _, d := range diffs {
		if !d.Expected {
			n++
		}
	}
	return n
}
