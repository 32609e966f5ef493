// Package installer coordinates full and incremental installs on one device.
package installer

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/httprunner/InstallAgent/internal/changeset"
	"github.com/httprunner/InstallAgent/internal/shell"
	"github.com/httprunner/InstallAgent/internal/version"
)

// Mode tells how the artifact list was resolved.
type Mode string

const (
	ModeFull        Mode = "full"
	ModeIncremental Mode = "incremental"
)

// State is the terminal state of one invocation.
type State string

const (
	StateSuccess         State = "success"
	StateReportedFailure State = "failed"
)

// Request identifies what to install where.
type Request struct {
	Project         string
	Variant         string
	Package         string
	DeclaredVersion string
	Device          shell.Device
}

// Outcome reports one invocation. Err is set only in StateReportedFailure.
type Outcome struct {
	Mode       Mode
	State      State
	Request    Request
	Artifacts  changeset.Batch
	Mismatch   *version.Mismatch
	Err        error
	StartedAt  time.Time
	FinishedAt time.Time
}

// Serial returns the device serial of the request, or "".
func (o Outcome) Serial() string {
	if o.Request.Device == nil {
		return ""
	}
	return o.Request.Device.Serial()
}

// Recorder persists outcomes.
type Recorder interface {
	RecordInstall(ctx context.Context, outcome Outcome) error
}

type noopRecorder struct{}

func (noopRecorder) RecordInstall(context.Context, Outcome) error { return nil }

// Options wires an Orchestrator.
type Options struct {
	Strategy   Strategy
	Reconciler *version.Reconciler
	// Files lists artifacts for full installs.
	Files    FileLister
	Reducer  changeset.Reducer
	Recorder Recorder
	Clock    func() time.Time
}

// Orchestrator resolves the artifact batch, reconciles the installed version
// and hands the batch to its Strategy. Failures are logged and reported in
// the Outcome; nothing is returned as an error or re-panicked, and nothing
// is retried.
type Orchestrator struct {
	strategy   Strategy
	reconciler *version.Reconciler
	files      FileLister
	reducer    changeset.Reducer
	recorder   Recorder
	clock      func() time.Time
}

func New(opts Options) (*Orchestrator, error) {
	if opts.Strategy == nil {
		return nil, errors.New("install strategy cannot be nil")
	}
	o := &Orchestrator{
		strategy:   opts.Strategy,
		reconciler: opts.Reconciler,
		files:      opts.Files,
		reducer:    opts.Reducer,
		recorder:   opts.Recorder,
		clock:      opts.Clock,
	}
	if o.recorder == nil {
		o.recorder = noopRecorder{}
	}
	if o.clock == nil {
		o.clock = time.Now
	}
	return o, nil
}

// RunFull installs every artifact reported by the full-file lister.
func (o *Orchestrator) RunFull(ctx context.Context, req Request) Outcome {
	out := o.begin(ModeFull, req)
	artifacts, err := o.listFiles(ctx)
	if err != nil {
		return o.finish(ctx, out, errors.Wrap(err, "list full install files"))
	}
	// full lists go through the reducer too so the batch is deduplicated and ordered
	changes := make(changeset.ChangeMap, 0, len(artifacts))
	for _, a := range changeset.Dedupe(artifacts) {
		changes = append(changes, changeset.Change{Artifact: a, Status: changeset.New})
	}
	return o.sharedInstall(ctx, out, o.reducer.Reduce(changes))
}

// RunIncremental installs the New and Changed artifacts of changes.
func (o *Orchestrator) RunIncremental(ctx context.Context, req Request, changes changeset.ChangeMap) Outcome {
	out := o.begin(ModeIncremental, req)
	return o.sharedInstall(ctx, out, o.reducer.Reduce(changes))
}

func (o *Orchestrator) begin(mode Mode, req Request) Outcome {
	return Outcome{Mode: mode, Request: req, StartedAt: o.clock()}
}

func (o *Orchestrator) listFiles(ctx context.Context) (artifacts []changeset.Artifact, err error) {
	if o.files == nil {
		return nil, errors.New("no full install file lister")
	}
	defer func() {
		if p := recover(); p != nil {
			err = errors.Errorf("file lister panicked: %v", p)
		}
	}()
	return o.files(ctx)
}

func (o *Orchestrator) sharedInstall(ctx context.Context, out Outcome, batch changeset.Batch) Outcome {
	out.Artifacts = batch
	out, err := o.install(ctx, out)
	return o.finish(ctx, out, err)
}

// install runs the version check and the strategy. Panics become errors.
func (o *Orchestrator) install(ctx context.Context, out Outcome) (result Outcome, err error) {
	result = out
	defer func() {
		if p := recover(); p != nil {
			err = errors.Errorf("install panicked: %v", p)
		}
	}()

	req := out.Request
	if req.Device == nil {
		return result, errors.New("device handle is nil")
	}
	logger := log.With().
		Str("mode", string(out.Mode)).
		Str("serial", req.Device.Serial()).
		Str("project", req.Project).
		Str("variant", req.Variant).
		Str("package", req.Package).
		Logger()
	logger.Info().Strs("artifacts", out.Artifacts.Paths()).Msg("start install")

	if o.reconciler != nil && req.DeclaredVersion != "" {
		if m := o.reconciler.Reconcile(ctx, req.Device, req.Project, req.Package, req.DeclaredVersion); m != nil {
			result.Mismatch = m
			logger.Warn().
				Str("declared", m.Declared).
				Str("installed", m.Installed).
				Msg(m.String())
		}
	}

	err = o.strategy.Install(ctx, Target{
		Mode:      out.Mode,
		Project:   req.Project,
		Variant:   req.Variant,
		Package:   req.Package,
		Device:    req.Device,
		Artifacts: out.Artifacts,
	})
	return result, err
}

func (o *Orchestrator) finish(ctx context.Context, out Outcome, err error) Outcome {
	out.FinishedAt = o.clock()
	if err != nil {
		out.State = StateReportedFailure
		out.Err = err
		log.Error().Err(err).
			Str("mode", string(out.Mode)).
			Str("serial", out.Serial()).
			Str("package", out.Request.Package).
			Msg("install failed")
	} else {
		out.State = StateSuccess
		log.Info().
			Str("mode", string(out.Mode)).
			Str("serial", out.Serial()).
			Str("package", out.Request.Package).
			Int("artifacts", len(out.Artifacts)).
			Dur("elapsed", out.FinishedAt.Sub(out.StartedAt)).
			Msg("install finished")
	}
	o.record(ctx, out)
	return out
}

// record hands out to the recorder; recorder errors and panics are only logged.
func (o *Orchestrator) record(ctx context.Context, out Outcome) {
	defer func() {
		if p := recover(); p != nil {
			log.Error().Interface("panic", p).Str("serial", out.Serial()).Msg("install recorder panicked")
		}
	}()
	if err := o.recorder.RecordInstall(ctx, out); err != nil {
		log.Error().Err(err).Str("serial", out.Serial()).Msg("install recorder failed")
	}
}
