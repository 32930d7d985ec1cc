/*
 * MIT License
 *
 * Copyright (c) 2022 Nicolas JUHEL
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

package ticker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

type tickerRunner struct {
	mu sync.Mutex

	interval time.Duration
	fn       TickFunc

	running   bool
	startTime time.Time
	cancel    context.CancelFunc
	done      chan struct{}

	errs []error
}

type ticker = tickerRunner

func (t *tickerRunner) Start(ctx context.Context) error {
	t.mu.Lock()
	alreadyRunning := t.running
	t.mu.Unlock()

	if alreadyRunning {
		_ = t.Stop(ctx)
	}

	cctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	t.mu.Lock()
	t.cancel = cancel
	t.done = done
	t.running = true
	t.startTime = time.Now()
	t.errs = nil
	interval := t.interval
	fn := t.fn
	t.mu.Unlock()

	go t.loop(cctx, done, interval, fn)

	return nil
}

func (t *tickerRunner) loop(ctx context.Context, done chan struct{}, interval time.Duration, fn TickFunc) {
	defer close(done)

	tck := time.NewTicker(interval)
	defer tck.Stop()

	for {
		select {
		case <-ctx.Done():
			t.mu.Lock()
			t.running = false
			t.mu.Unlock()
			return
		case <-tck.C:
			if err := runTick(fn, ctx, tck); err != nil {
				t.mu.Lock()
				t.errs = append(t.errs, err)
				t.mu.Unlock()
			}

			if ctx.Err() != nil {
				t.mu.Lock()
				t.running = false
				t.mu.Unlock()
				return
			}
		}
	}
}

func runTick(fn TickFunc, ctx context.Context, tck *time.Ticker) (err error) {
	if fn == nil {
		return errors.New("invalid tick function")
	}

	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic recovered in tick function: %v", rec)
		}
	}()

	return fn(ctx, tck)
}

func (t *tickerRunner) Stop(ctx context.Context) error {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return nil
	}

	t.running = false
	cancel := t.cancel
	done := t.done
	t.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	if done != nil {
		select {
		case <-done:
		case <-ctx.Done():
		}
	}

	return nil
}

func (t *tickerRunner) Restart(ctx context.Context) error {
	_ = t.Stop(ctx)
	return t.Start(ctx)
}

func (t *tickerRunner) IsRunning() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.running
}

func (t *tickerRunner) Uptime() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.running {
		return 0
	}

	return time.Since(t.startTime)
}

func (t *tickerRunner) ErrorsLast() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.errs) == 0 {
		return nil
	}

	return t.errs[len(t.errs)-1]
}

func (t *tickerRunner) ErrorsList() []error {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]error, len(t.errs))
	copy(out, t.errs)

	return out
}
