/*
 * MIT License
 *
 * Copyright (c) 2019 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

package sem

import (
	"context"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

type sem struct {
	ctx    context.Context
	cancel context.CancelFunc

	weight int64
	sw     *semaphore.Weighted

	wgMutex sync.Mutex
	wg      *sync.WaitGroup
}

// MaxSimultaneous returns the default concurrency limit used when a
// component is configured with nbrSimultaneous == 0.
func MaxSimultaneous() int {
	return runtime.GOMAXPROCS(0)
}

// SetSimultaneous clamps n to the [1, MaxSimultaneous()] range, returning
// MaxSimultaneous() for any n outside it.
func SetSimultaneous(n int) int64 {
	max := int64(MaxSimultaneous())

	if n < 1 {
		return max
	} else if int64(n) > max {
		return max
	}

	return int64(n)
}

// New builds a Semaphore. nbrSimultaneous == 0 uses MaxSimultaneous();
// nbrSimultaneous < 0 builds an unlimited, WaitGroup-backed semaphore.
func New(ctx context.Context, nbrSimultaneous int64) Semaphore {
	var w int64

	switch {
	case nbrSimultaneous == 0:
		w = int64(MaxSimultaneous())
	case nbrSimultaneous < 0:
		w = -1
	default:
		w = nbrSimultaneous
	}

	c, cancel := context.WithCancel(ctx)

	s := &sem{
		ctx:    c,
		cancel: cancel,
		weight: w,
	}

	if w < 0 {
		s.wg = &sync.WaitGroup{}
	} else {
		s.sw = semaphore.NewWeighted(w)
	}

	return s
}

func (s *sem) Weighted() int64 {
	return s.weight
}

func (s *sem) NewWorker() error {
	if s.weight < 0 {
		s.wgMutex.Lock()
		s.wg.Add(1)
		s.wgMutex.Unlock()
		return nil
	}

	return s.sw.Acquire(s.ctx, 1)
}

func (s *sem) NewWorkerTry() bool {
	if s.weight < 0 {
		s.wgMutex.Lock()
		s.wg.Add(1)
		s.wgMutex.Unlock()
		return true
	}

	return s.sw.TryAcquire(1)
}

func (s *sem) DeferWorker() {
	if s.weight < 0 {
		s.wgMutex.Lock()
		s.wg.Done()
		s.wgMutex.Unlock()
		return
	}

	s.sw.Release(1)
}

func (s *sem) WaitAll() error {
	if s.weight < 0 {
		done := make(chan struct{})

		s.wgMutex.Lock()
		wg := s.wg
		s.wgMutex.Unlock()

		go func() {
			wg.Wait()
			close(done)
		}()

		select {
		case <-done:
			return nil
		case <-s.ctx.Done():
			return s.ctx.Err()
		}
	}

	if err := s.sw.Acquire(s.ctx, s.weight); err != nil {
		return err
	}

	s.sw.Release(s.weight)
	return nil
}

func (s *sem) New() Semaphore {
	return New(s.ctx, s.weight)
}

func (s *sem) DeferMain() {
	s.cancel()
}

func (s *sem) Deadline() (deadline time.Time, ok bool) {
	return s.ctx.Deadline()
}

func (s *sem) Done() <-chan struct{} {
	return s.ctx.Done()
}

func (s *sem) Err() error {
	return s.ctx.Err()
}

func (s *sem) Value(key any) any {
	return s.ctx.Value(key)
}
