// Package simbuilder implements a buildset.Builder that simulates build
// slaves instead of running real build commands: requests are queued onto a
// bounded worker pool and finished after a jittered delay, optionally forced
// to fail for named builders. It exists for demos and orchestrator tests,
// the way distri's internal/batch.scheduler.buildDry stands in for
// s.build("distri", "build") when run with -simulate.
package simbuilder

import (
	"context"
	"math/rand"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/distr1/buildset"
)

// Builder is a simulated buildset.Builder: every submitted request is
// queued and picked up by one of a fixed pool of workers, which sleeps a
// jittered duration and then finishes the request with SUCCESS, unless its
// Builder name is listed in FailNames, in which case it finishes with
// FAILURE instead.
type Builder struct {
	// BuilderName identifies this builder, e.g. "unit-amd64".
	BuilderName string
	// Workers bounds how many requests this builder works on at once.
	// Defaults to 1 if <= 0.
	Workers int
	// MinDelay/MaxDelay bound the simulated build duration. MaxDelay
	// defaults to 1s, MinDelay to 10ms, matching batch.scheduler.buildDry.
	MinDelay, MaxDelay time.Duration
	// FailNames finishes any request whose BuilderName matches an entry
	// here with FAILURE instead of SUCCESS.
	FailNames map[string]bool

	ctx   context.Context
	queue chan *buildset.BuildRequest
	eg    *errgroup.Group
}

// New starts a Builder's worker pool, bound to ctx: canceling ctx stops
// accepting new work and lets in-flight workers exit on their next loop
// iteration. Submitted-but-not-yet-picked-up requests are finished with
// buildset.EXCEPTION when ctx is canceled before they run.
func New(ctx context.Context, name string, workers int) *Builder {
	if workers <= 0 {
		workers = 1
	}
	eg, egCtx := errgroup.WithContext(ctx)
	b := &Builder{
		BuilderName: name,
		Workers:     workers,
		MinDelay:    10 * time.Millisecond,
		MaxDelay:    1 * time.Second,
		ctx:         egCtx,
		queue:       make(chan *buildset.BuildRequest, 64),
		eg:          eg,
	}
	for i := 0; i < workers; i++ {
		eg.Go(b.worker)
	}
	return b
}

// Name implements buildset.Builder.
func (b *Builder) Name() string { return b.BuilderName }

// SubmitBuildRequest implements buildset.Builder: it enqueues req for one of
// the worker goroutines to pick up. It never blocks the caller on the
// request's completion.
func (b *Builder) SubmitBuildRequest(req *buildset.BuildRequest) {
	if b.ctx.Err() != nil {
		req.Finish(buildset.EXCEPTION)
		return
	}
	select {
	case b.queue <- req:
	case <-b.ctx.Done():
		req.Finish(buildset.EXCEPTION)
	}
}

// Wait blocks until every worker goroutine has exited, which happens once
// the Builder's context is canceled. It mirrors errgroup.Group.Wait as used
// by batch.scheduler.run to join its worker pool.
func (b *Builder) Wait() error { return b.eg.Wait() }

func (b *Builder) worker() error {
	for {
		select {
		case <-b.ctx.Done():
			for {
				select {
				case req := <-b.queue:
					req.Finish(buildset.EXCEPTION)
				default:
					return b.ctx.Err()
				}
			}
		case req, ok := <-b.queue:
			if !ok {
				return nil
			}
			b.run(req)
		}
	}
}

func (b *Builder) run(req *buildset.BuildRequest) {
	dur := b.MinDelay + time.Duration(rand.Int63n(int64(b.MaxDelay-b.MinDelay)+1))
	select {
	case <-b.ctx.Done():
		req.Finish(buildset.EXCEPTION)
		return
	case <-time.After(dur):
	}
	if b.FailNames[req.Builder] {
		req.Finish(buildset.FAILURE)
		return
	}
	req.Finish(buildset.SUCCESS)
}
