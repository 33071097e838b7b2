package setup

import (
	"context"
	"path/filepath"
	"runtime/debug"
	"time"

	"github.com/charmbracelet/log"

	"github.com/repowizard/repowizard/pkg/deps"
	wizerr "github.com/repowizard/repowizard/pkg/errors"
	"github.com/repowizard/repowizard/pkg/history"
	"github.com/repowizard/repowizard/pkg/observability"
	"github.com/repowizard/repowizard/pkg/runlog"
	"github.com/repowizard/repowizard/pkg/source"
)

// Runner executes setup requests. It holds no per-run state: each Execute
// call builds its own state machine, so a Runner can serve sequential
// requests, one at a time.
//
// The runner is the only writer of the Result and of log entries; UI
// surfaces observe through the Sink's subscriber channels.
type Runner struct {
	Logger  *log.Logger
	Sink    *runlog.Recorder
	History *history.FileStore // nil disables run recording
}

// NewRunner creates a runner. A nil logger falls back to log.Default();
// a nil sink discards persistent log entries.
func NewRunner(logger *log.Logger, sink *runlog.Recorder, store *history.FileStore) *Runner {
	if logger == nil {
		logger = log.Default()
	}
	if sink == nil {
		sink = runlog.NewWriterRecorder(nil)
	}
	return &Runner{Logger: logger, Sink: sink, History: store}
}

// log writes to both the console logger and the per-run sink.
func (r *Runner) log(level runlog.Level, format string, args ...any) {
	r.Sink.Append(level, format, args...)
	switch level {
	case runlog.LevelDebug:
		r.Logger.Debugf(format, args...)
	case runlog.LevelWarn:
		r.Logger.Warnf(format, args...)
	case runlog.LevelError:
		r.Logger.Errorf(format, args...)
	default:
		r.Logger.Infof(format, args...)
	}
}

// Execute runs the full pipeline for one request:
// Validating → Acquiring → InstallingDeps → Done, with Errored reachable
// from any active stage. Acquisition failures abort the run; dependency
// failures are recorded per manager and never abort a completed
// acquisition. Unexpected panics surface as INTERNAL_ERROR rather than
// crashing the caller.
func (r *Runner) Execute(ctx context.Context, req Request) (result *Result, err error) {
	m := newMachine()
	start := time.Now()
	runID := history.NewID()

	defer func() {
		if rec := recover(); rec != nil {
			r.Logger.Debugf("panic stack: %s", debug.Stack())
			err = wizerr.New(wizerr.ErrCodeInternal, "unexpected failure: %v", rec)
		}
		if err != nil {
			if !m.terminal() {
				_ = m.fail()
			}
			r.log(runlog.LevelError, "setup failed during %s: %s", m.failedStage, wizerr.UserMessage(err))
			r.recordFailure(req, runID, start, err)
		}
	}()

	r.log(runlog.LevelInfo, "starting repository setup (run %s)", runID)

	// Stage 1: validate
	if err := m.advance(StateValidating); err != nil {
		return nil, wizerr.Wrap(wizerr.ErrCodeInternal, err, "state machine")
	}
	validateStart := time.Now()
	observability.Setup().OnValidateStart(ctx, req.Source.Kind.String())
	req.Normalize()
	verr := req.Validate()
	if verr == nil {
		verr = source.EnsureParent(req.TargetDir)
	}
	observability.Setup().OnValidateComplete(ctx, req.Source.Kind.String(), verr)
	if verr != nil {
		return nil, verr
	}
	validateTime := time.Since(validateStart)
	r.log(runlog.LevelInfo, "target directory: %s", req.TargetDir)

	dest, err := source.ResolveTarget(req.TargetDir, req.TargetName)
	if err != nil {
		return nil, err
	}
	if filepath.Base(dest) != req.TargetName {
		r.log(runlog.LevelInfo, "target %s exists, using %s", req.TargetName, filepath.Base(dest))
	}

	// Stage 2: acquire
	if err := m.advance(StateAcquiring); err != nil {
		return nil, wizerr.Wrap(wizerr.ErrCodeInternal, err, "state machine")
	}
	acquireStart := time.Now()
	observability.Setup().OnAcquireStart(ctx, req.Source.Kind.String())
	info, aerr := source.Acquire(ctx, req.Source, dest, &source.Options{
		CloneTimeout: req.CloneTimeout,
		Logf: func(format string, args ...any) {
			r.log(runlog.LevelInfo, format, args...)
		},
	})
	acquireTime := time.Since(acquireStart)
	observability.Setup().OnAcquireComplete(ctx, req.Source.Kind.String(), info.Files, acquireTime, aerr)
	if aerr != nil {
		return nil, aerr
	}
	r.log(runlog.LevelInfo, "repository ready at %s (%d files, %s)",
		info.Path, info.Files, acquireTime.Round(time.Millisecond))

	result = &Result{
		RunID:          runID,
		FinalPath:      info.Path,
		FilesProcessed: info.Files,
		LogPath:        r.Sink.Path(),
		Stages:         StageTimings{Validate: validateTime, Acquire: acquireTime},
	}

	// Stage 3: install, only when requested
	if req.AutoInstall {
		if err := m.advance(StateInstalling); err != nil {
			return nil, wizerr.Wrap(wizerr.ErrCodeInternal, err, "state machine")
		}
		installStart := time.Now()
		result.Installs = r.installDeps(ctx, req, info.Path)
		result.Stages.Install = time.Since(installStart)
	}

	if err := m.advance(StateDone); err != nil {
		return nil, wizerr.Wrap(wizerr.ErrCodeInternal, err, "state machine")
	}
	result.Duration = time.Since(start)
	r.log(runlog.LevelSuccess, "setup completed in %s", result.Duration.Round(time.Millisecond))

	r.recordSuccess(req, result, start)
	return result, nil
}

// installDeps detects manifests and runs each install, collecting records.
// Nothing here aborts the run: missing managers and failed installs are
// warnings against an acquisition that already succeeded.
func (r *Runner) installDeps(ctx context.Context, req Request, root string) []deps.Record {
	r.log(runlog.LevelInfo, "checking for dependencies...")

	var manifests []deps.Manifest
	if req.NestedManifests {
		manifests = deps.DetectNested(root, NestedManifestDepth)
	} else {
		manifests = deps.Detect(root)
	}
	if len(manifests) == 0 {
		r.log(runlog.LevelInfo, "no dependency manifests found")
		return nil
	}

	installer := &deps.Installer{
		Timeout: req.InstallTimeout,
		Logf: func(format string, args ...any) {
			r.log(runlog.LevelInfo, format, args...)
		},
	}

	records := make([]deps.Record, 0, len(manifests))
	for _, m := range manifests {
		if ctx.Err() != nil {
			break
		}
		r.log(runlog.LevelInfo, "found %s", m.Name)
		observability.Setup().OnInstallStart(ctx, m.Manager)
		rec := installer.Install(ctx, m)
		observability.Setup().OnInstallComplete(ctx, m.Manager, rec.Duration, rec.Err)

		switch {
		case rec.Success:
			r.log(runlog.LevelInfo, "%s dependencies installed (%s)",
				m.Manager, rec.Duration.Round(time.Millisecond))
		case wizerr.Is(rec.Err, wizerr.ErrCodeManagerMissing):
			r.log(runlog.LevelWarn, "%s", wizerr.UserMessage(rec.Err))
		default:
			r.log(runlog.LevelWarn, "failed to install %s dependencies: %s",
				m.Manager, wizerr.UserMessage(rec.Err))
		}
		records = append(records, rec)
	}
	return records
}

func (r *Runner) recordSuccess(req Request, result *Result, start time.Time) {
	if r.History == nil {
		return
	}
	rec := &history.Record{
		ID:          result.RunID,
		SourceKind:  req.Source.Kind.String(),
		SourceValue: req.Source.Value,
		TargetPath:  result.FinalPath,
		Files:       result.FilesProcessed,
		StartedAt:   start,
		FinishedAt:  time.Now(),
		LogPath:     result.LogPath,
	}
	for _, ir := range result.Installs {
		summary := history.InstallSummary{Manager: ir.Manager, Command: ir.Command, Success: ir.Success}
		if ir.Err != nil {
			summary.Error = wizerr.UserMessage(ir.Err)
		}
		rec.Installs = append(rec.Installs, summary)
	}
	if err := r.History.Save(rec); err != nil {
		r.Logger.Warnf("could not record run history: %v", err)
	}
}

func (r *Runner) recordFailure(req Request, runID string, start time.Time, failure error) {
	if r.History == nil {
		return
	}
	rec := &history.Record{
		ID:          runID,
		SourceKind:  req.Source.Kind.String(),
		SourceValue: req.Source.Value,
		StartedAt:   start,
		FinishedAt:  time.Now(),
		Error:       failure.Error(),
		LogPath:     r.Sink.Path(),
	}
	if err := r.History.Save(rec); err != nil {
		r.Logger.Warnf("could not record run history: %v", err)
	}
}
