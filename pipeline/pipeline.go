// Package pipeline wires import stages together and runs hooks around them.
package pipeline

import (
	"context"
	"time"

	"github.com/Skryldev/gltf-importer/core"
	apperrors "github.com/Skryldev/gltf-importer/errors"
)

// Pipeline executes a sequence of Stages with hook support. Stages are never
// retried: the first failure ends the run.
type Pipeline struct {
	stages []core.Stage
	hooks  []core.Hook
}

// New returns an empty Pipeline.
func New() *Pipeline { return &Pipeline{} }

// Standard returns the parse, validate, resolve, decode, assemble pipeline.
func Standard() *Pipeline {
	return New().Use(
		&ParseStage{},
		&ValidateStage{},
		&ResolveStage{},
		&DecodeStage{},
		&AssembleStage{},
	)
}

// Use appends stages to the pipeline. Returns the same Pipeline for chaining.
func (p *Pipeline) Use(s ...core.Stage) *Pipeline {
	p.stages = append(p.stages, s...)
	return p
}

// AddHook registers an observer.
func (p *Pipeline) AddHook(h core.Hook) *Pipeline {
	p.hooks = append(p.hooks, h)
	return p
}

// Stages returns the stage names in execution order.
func (p *Pipeline) Stages() []string {
	names := make([]string, len(p.stages))
	for i, s := range p.stages {
		names[i] = s.Name()
	}
	return names
}

// Run executes the pipeline on st. extra hooks run after the pipeline's own.
// It returns per-stage timing observations, including the failing stage.
func (p *Pipeline) Run(ctx context.Context, st *core.ImportState, extra ...core.Hook) (map[string]time.Duration, error) {
	timings := make(map[string]time.Duration, len(p.stages))
	hooks := p.hooks
	if len(extra) > 0 {
		hooks = append(append(make([]core.Hook, 0, len(p.hooks)+len(extra)), p.hooks...), extra...)
	}

	for _, stage := range p.stages {
		if err := ctx.Err(); err != nil {
			return timings, apperrors.New(apperrors.KindIo, stage.Name(), err)
		}

		elapsed, err := runStage(ctx, stage, st, hooks)
		timings[stage.Name()] = elapsed
		if err != nil {
			return timings, err
		}
	}
	return timings, nil
}

// runStage executes a single stage, calling hooks around it.
func runStage(ctx context.Context, stage core.Stage, st *core.ImportState, hooks []core.Hook) (time.Duration, error) {
	for _, h := range hooks {
		h.BeforeStage(ctx, stage.Name(), st)
	}

	start := time.Now()
	err := stage.Execute(ctx, st)
	elapsed := time.Since(start)

	for _, h := range hooks {
		h.AfterStage(ctx, stage.Name(), st, elapsed, err)
	}
	return elapsed, err
}

// Clone returns a shallow copy of the pipeline so templates can be reused
// safely across goroutines.
func (p *Pipeline) Clone() *Pipeline {
	cp := &Pipeline{
		stages: make([]core.Stage, len(p.stages)),
		hooks:  make([]core.Hook, len(p.hooks)),
	}
	copy(cp.stages, p.stages)
	copy(cp.hooks, p.hooks)
	return cp
}
