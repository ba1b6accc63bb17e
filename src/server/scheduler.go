package server

import (
	"context"
	"sync"
	"time"

	"go.lsp.dev/protocol"
)

// pipelineRun executes one analysis pass for a document revision. The
// context is cancelled when a newer revision supersedes this one;
// implementations must not publish results after cancellation.
type pipelineRun func(ctx context.Context, uri protocol.DocumentURI, text string, version int32)

// pipeline debounces per-document work: a burst of schedules within the
// delay window collapses to one run of the latest revision, and a newer
// schedule cancels any in-flight run for the same document.
type pipeline struct {
	delay time.Duration
	run   pipelineRun

	mu    sync.Mutex
	tasks map[protocol.DocumentURI]*pipelineTask
}

type pipelineTask struct {
	generation uint64
	cancel     context.CancelFunc
}

func newPipeline(delay time.Duration, run pipelineRun) *pipeline {
	return &pipeline{
		delay: delay,
		run:   run,
		tasks: make(map[protocol.DocumentURI]*pipelineTask),
	}
}

// Schedule queues a run for the given document revision, superseding any
// pending or in-flight run for the same document.
func (p *pipeline) Schedule(ctx context.Context, uri protocol.DocumentURI, text string, version int32) {
	p.mu.Lock()
	task, ok := p.tasks[uri]
	if ok {
		task.cancel()
	} else {
		task = &pipelineTask{}
		p.tasks[uri] = task
	}
	task.generation++
	generation := task.generation

	runCtx, cancel := context.WithCancel(ctx)
	task.cancel = cancel
	p.mu.Unlock()

	go func() {
		defer cancel()

		if p.delay > 0 {
			timer := time.NewTimer(p.delay)
			defer timer.Stop()
			select {
			case <-runCtx.Done():
				return
			case <-timer.C:
			}
		} else if runCtx.Err() != nil {
			return
		}

		if !p.isLatest(uri, generation) {
			return
		}
		p.run(runCtx, uri, text, version)
	}()
}

func (p *pipeline) isLatest(uri protocol.DocumentURI, generation uint64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	task, ok := p.tasks[uri]
	return ok && task.generation == generation
}

// Cancel discards any pending or in-flight run for the document.
func (p *pipeline) Cancel(uri protocol.DocumentURI) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if task, ok := p.tasks[uri]; ok {
		task.cancel()
		delete(p.tasks, uri)
	}
}

// Scheduler coordinates the two per-document analysis pipelines: a fast
// one that rebuilds the syntax tree and symbol index for navigation, and
// a slow one that runs full semantic diagnostics. Navigation freshness
// never waits on diagnostics.
type Scheduler struct {
	fast *pipeline
	slow *pipeline

	ctx    context.Context
	cancel context.CancelFunc
}

// NewScheduler creates a scheduler with independent debounce windows for
// the two pipelines.
func NewScheduler(fastDelay, slowDelay time.Duration, fastRun, slowRun pipelineRun) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		fast:   newPipeline(fastDelay, fastRun),
		slow:   newPipeline(slowDelay, slowRun),
		ctx:    ctx,
		cancel: cancel,
	}
}

// DocumentChanged schedules both pipelines for a new document revision.
func (s *Scheduler) DocumentChanged(uri protocol.DocumentURI, text string, version int32) {
	s.fast.Schedule(s.ctx, uri, text, version)
	s.slow.Schedule(s.ctx, uri, text, version)
}

// DocumentClosed drops all pending work for the document.
func (s *Scheduler) DocumentClosed(uri protocol.DocumentURI) {
	s.fast.Cancel(uri)
	s.slow.Cancel(uri)
}

// Stop cancels every pipeline task.
func (s *Scheduler) Stop() {
	s.cancel()
}
