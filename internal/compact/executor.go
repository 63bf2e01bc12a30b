package compact

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"repack/internal/dataset"
	"repack/internal/fileutil"
	"repack/internal/logging"
)

var (
	// ErrDestinationExists marks a copy-mode target path that already
	// exists; nothing is copied or mutated.
	ErrDestinationExists = errors.New("destination already exists")
	// ErrLocked marks a dataset whose exclusive lock could not be
	// acquired within the configured timeout.
	ErrLocked = errors.New("dataset is locked by another process")
)

// lockFileName is created inside the dataset root for the duration of a
// live run to enforce single-writer access.
const lockFileName = ".repack.lock"

// Options selects the execution mode.
type Options struct {
	// DryRun reports intended actions without mutating anything.
	DryRun bool
	// TargetPath, when set, selects copy mode: the dataset is copied
	// there first and all mutations target the copy.
	TargetPath string
}

// Executor applies compaction plans to datasets.
type Executor struct {
	logger      *slog.Logger
	lockTimeout time.Duration
}

// NewExecutor constructs an executor. A nil logger disables logging.
func NewExecutor(logger *slog.Logger, lockTimeout time.Duration) *Executor {
	if lockTimeout <= 0 {
		lockTimeout = 10 * time.Second
	}
	return &Executor{
		logger:      logging.WithComponent(logger, "executor"),
		lockTimeout: lockTimeout,
	}
}

// Run loads the dataset metadata, plans the compaction, and applies it
// according to opts. The returned Result describes performed (or, for dry
// runs, intended) actions even when the plan turns out to be empty.
func (e *Executor) Run(ctx context.Context, datasetPath string, opts Options) (*Result, error) {
	state, err := dataset.Load(datasetPath)
	if err != nil {
		return nil, err
	}

	if opts.TargetPath != "" {
		if _, err := os.Stat(opts.TargetPath); err == nil {
			return nil, fmt.Errorf("%w: %s", ErrDestinationExists, opts.TargetPath)
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("stat destination: %w", err)
		}
	}

	plan := NewPlan(state)
	result := &Result{
		SourcePath: datasetPath,
		Root:       datasetPath,
		DryRun:     opts.DryRun,
		Plan:       plan,
		Remaining:  len(plan.Survivors),
	}
	if opts.DryRun && opts.TargetPath != "" {
		// A copy-mode live run mutates the copy, so the preview reports
		// target-rooted paths.
		result.Root = opts.TargetPath
	}

	if len(plan.Removed) == 0 {
		e.logger.Info("no blacklisted episodes found", logging.String("dataset", datasetPath))
		if opts.TargetPath != "" && !opts.DryRun {
			// Copy mode still delivers a full copy; metadata is
			// left untouched.
			if err := fileutil.CopyTree(datasetPath, opts.TargetPath); err != nil {
				return nil, fmt.Errorf("copy dataset to %s: %w", opts.TargetPath, err)
			}
			result.Root = opts.TargetPath
			result.Copied = true
		}
		return result, nil
	}

	e.logger.Info("planned compaction",
		logging.Int("blacklisted", len(plan.Removed)),
		logging.Int("survivors", len(plan.Survivors)),
		logging.Int("renames", len(plan.Renames())),
		logging.Bool("dry_run", opts.DryRun),
	)

	if opts.DryRun {
		e.preview(plan, result)
		return result, nil
	}

	// Only in-place runs mutate the source, so only they take the
	// exclusive lock; copy mode works on a fresh private tree.
	if opts.TargetPath == "" {
		lock, err := e.acquireLock(ctx, datasetPath)
		if err != nil {
			return nil, err
		}
		defer e.releaseLock(lock)
	}

	root := datasetPath
	if opts.TargetPath != "" {
		e.logger.Info("copying dataset",
			logging.String("source", datasetPath),
			logging.String("target", opts.TargetPath),
		)
		if err := fileutil.CopyTree(datasetPath, opts.TargetPath); err != nil {
			return nil, fmt.Errorf("copy dataset to %s: %w", opts.TargetPath, err)
		}
		root = opts.TargetPath
		result.Root = root
		result.Copied = true
	}

	// Deletions run to completion before the first rename so a surviving
	// episode is never renamed onto a slot still held by a doomed one.
	if err := e.deleteRemoved(plan, root, result); err != nil {
		e.warnPartial(root, err)
		return result, err
	}
	if err := e.renameSurvivors(plan, root, result); err != nil {
		e.warnPartial(root, err)
		return result, err
	}

	if err := dataset.Save(root, plan.Project(state)); err != nil {
		e.warnPartial(root, err)
		return result, fmt.Errorf("save metadata: %w", err)
	}
	result.MetadataSaved = true

	e.logger.Info("compaction complete",
		logging.Int("deleted", len(result.Deleted)),
		logging.Int("already_absent", len(result.AlreadyAbsent)),
		logging.Int("renamed", result.RenamedShards),
		logging.Int("remaining", result.Remaining),
	)
	return result, nil
}

// preview records the actions a live run would perform, mutating nothing.
// Artifact existence is probed against the source tree (a copy-mode target
// does not exist yet) while reported paths use the tree the live run would
// mutate.
func (e *Executor) preview(plan *Plan, result *Result) {
	source := dataset.NewLayout(result.SourcePath)
	layout := dataset.NewLayout(result.Root)
	for _, index := range plan.RemovedSorted() {
		shardExists := dataset.Exists(source.ShardPath(index))
		mediaExists := dataset.Exists(source.MediaDir(index))
		if !shardExists && !mediaExists {
			e.logger.Warn("episode files not found (already absent)", logging.Int("episode", index))
			result.AlreadyAbsent = append(result.AlreadyAbsent, index)
			continue
		}
		if shardExists {
			result.Actions = append(result.Actions, Action{Kind: ActionDeleteShard, Episode: index, Path: layout.ShardPath(index)})
		}
		if mediaExists {
			result.Actions = append(result.Actions, Action{Kind: ActionDeleteMedia, Episode: index, Path: layout.MediaDir(index)})
		}
		result.Deleted = append(result.Deleted, index)
	}
	for _, rename := range plan.Renames() {
		if dataset.Exists(source.ShardPath(rename.Old)) {
			result.Actions = append(result.Actions, Action{
				Kind:    ActionRenameShard,
				Episode: rename.Old,
				Path:    layout.ShardPath(rename.Old),
				Target:  layout.ShardPath(rename.New),
			})
			result.RenamedShards++
		}
		if dataset.Exists(source.MediaDir(rename.Old)) {
			result.Actions = append(result.Actions, Action{
				Kind:    ActionRenameMedia,
				Episode: rename.Old,
				Path:    layout.MediaDir(rename.Old),
				Target:  layout.MediaDir(rename.New),
			})
			result.RenamedMedia++
		}
	}
}

func (e *Executor) deleteRemoved(plan *Plan, root string, result *Result) error {
	layout := dataset.NewLayout(root)
	for _, index := range plan.RemovedSorted() {
		shard := layout.ShardPath(index)
		media := layout.MediaDir(index)
		shardExists := dataset.Exists(shard)
		mediaExists := dataset.Exists(media)

		if !shardExists && !mediaExists {
			e.logger.Warn("episode files not found (already absent)", logging.Int("episode", index))
			result.AlreadyAbsent = append(result.AlreadyAbsent, index)
			continue
		}

		if shardExists {
			if err := os.Remove(shard); err != nil {
				return fmt.Errorf("delete shard for episode %d (%s): %w", index, shard, err)
			}
			result.Actions = append(result.Actions, Action{Kind: ActionDeleteShard, Episode: index, Path: shard})
			e.logger.Info("deleted shard", logging.Int("episode", index), logging.String("path", shard))
		}
		if mediaExists {
			if err := os.RemoveAll(media); err != nil {
				return fmt.Errorf("delete media for episode %d (%s): %w", index, media, err)
			}
			result.Actions = append(result.Actions, Action{Kind: ActionDeleteMedia, Episode: index, Path: media})
			e.logger.Info("deleted media directory", logging.Int("episode", index), logging.String("path", media))
		}
		result.Deleted = append(result.Deleted, index)
	}
	return nil
}

func (e *Executor) renameSurvivors(plan *Plan, root string, result *Result) error {
	layout := dataset.NewLayout(root)
	for _, rename := range plan.Renames() {
		oldShard := layout.ShardPath(rename.Old)
		newShard := layout.ShardPath(rename.New)
		if dataset.Exists(oldShard) {
			if err := os.Rename(oldShard, newShard); err != nil {
				return fmt.Errorf("rename shard for episode %d -> %d: %w", rename.Old, rename.New, err)
			}
			result.Actions = append(result.Actions, Action{Kind: ActionRenameShard, Episode: rename.Old, Path: oldShard, Target: newShard})
			result.RenamedShards++
		} else {
			e.logger.Warn("shard missing during renumbering",
				logging.Int("episode", rename.Old),
				logging.String("path", oldShard),
			)
		}

		oldMedia := layout.MediaDir(rename.Old)
		newMedia := layout.MediaDir(rename.New)
		if dataset.Exists(oldMedia) {
			if err := os.Rename(oldMedia, newMedia); err != nil {
				return fmt.Errorf("rename media for episode %d -> %d: %w", rename.Old, rename.New, err)
			}
			result.Actions = append(result.Actions, Action{Kind: ActionRenameMedia, Episode: rename.Old, Path: oldMedia, Target: newMedia})
			result.RenamedMedia++
		}
	}
	return nil
}

func (e *Executor) acquireLock(ctx context.Context, root string) (*flock.Flock, error) {
	lock := flock.New(filepath.Join(root, lockFileName))
	lockCtx, cancel := context.WithTimeout(ctx, e.lockTimeout)
	defer cancel()

	ok, err := lock.TryLockContext(lockCtx, 250*time.Millisecond)
	if err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return nil, fmt.Errorf("acquire dataset lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLocked, lock.Path())
	}
	return lock, nil
}

func (e *Executor) releaseLock(lock *flock.Flock) {
	if err := lock.Unlock(); err != nil {
		e.logger.Warn("failed to release dataset lock", logging.Error(err))
	}
	_ = os.Remove(lock.Path())
}

// warnPartial flags an aborted live run: some artifacts may be deleted or
// renamed while the metadata tables still describe the old numbering.
func (e *Executor) warnPartial(root string, err error) {
	e.logger.Warn("compaction aborted; dataset may be partially modified and metadata was not updated",
		logging.String("dataset", root),
		logging.Error(err),
	)
}
