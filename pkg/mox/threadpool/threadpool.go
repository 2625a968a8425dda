// Copyright 2020-2021 The Mox Authors.
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation; version 2.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Package threadpool is the shared, bounded worker pool that
// FrameBuffer/AudioBuffer conversions dispatch row- and channel-level
// tasks onto. The pool has no asynchronous API: a caller starts a
// Group, enqueues tasks, and blocks in Wait until every task has
// completed or the first one failed.
package threadpool

import (
	"context"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// Pool bounds the number of tasks running concurrently across every
// Group built from it; the process-wide instance is shared by every
// FrameBuffer/AudioBuffer conversion in the process.
type Pool struct {
	sem *semaphore.Weighted
	n   int64
}

var (
	global     *Pool
	globalOnce sync.Once
)

// Global returns the process-wide pool, lazily sized to
// runtime.GOMAXPROCS(0) on first use. Call Init before any mox operation
// runs to size it explicitly (e.g. from config at process startup).
func Global() *Pool {
	globalOnce.Do(func() {
		global = New(runtime.GOMAXPROCS(0))
	})
	return global
}

// Init replaces the process-wide pool with one of the given size. It
// must be called before any concurrent use of Global.
func Init(workers int) {
	global = New(workers)
	globalOnce.Do(func() {})
}

// New returns a pool bounded to the given number of concurrent workers.
func New(workers int) *Pool {
	if workers < 1 {
		workers = 1
	}
	return &Pool{sem: semaphore.NewWeighted(int64(workers)), n: int64(workers)}
}

// Size returns the pool's configured worker count.
func (p *Pool) Size() int { return int(p.n) }

// Group is a scoped task group: a caller enqueues tasks with Go, then
// blocks in Wait for all of them to finish (or the first error). Every
// public buffer operation that fans out work blocks on one of these
// before returning.
type Group struct {
	pool *Pool
	eg   *errgroup.Group
	ctx  context.Context
}

// NewGroup starts a task group bounded by the pool's concurrency limit.
func (p *Pool) NewGroup() *Group {
	eg, ctx := errgroup.WithContext(context.Background())
	return &Group{pool: p, eg: eg, ctx: ctx}
}

// Go enqueues a task. Tasks block on the pool's semaphore, so at most
// Size() of them run at once across every Group sharing this Pool.
func (g *Group) Go(task func() error) {
	g.eg.Go(func() error {
		if err := g.pool.sem.Acquire(g.ctx, 1); err != nil {
			return err
		}
		defer g.pool.sem.Release(1)
		return task()
	})
}

// Wait blocks until every enqueued task has completed, returning the
// first error raised by any of them.
func (g *Group) Wait() error {
	return g.eg.Wait()
}
