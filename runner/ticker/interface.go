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

// Package ticker wraps a time.Ticker into a supervised, restartable runner.
// It backs the periodic stats-printing behavior that the original process
// drove from a SIGALRM handler; here it is a plain ticker goroutine instead.
package ticker

import (
	"context"
	"time"
)

// defaultDuration is used whenever the caller supplies a non-positive or
// sub-millisecond duration.
const defaultDuration = 30 * time.Second

// TickFunc is invoked on every tick. The *time.Ticker is handed back so the
// function may reset it if it needs to change cadence mid-flight.
type TickFunc func(ctx context.Context, tck *time.Ticker) error

// Ticker supervises a single periodic function.
type Ticker interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Restart(ctx context.Context) error
	IsRunning() bool
	Uptime() time.Duration
	ErrorsLast() error
	ErrorsList() []error
}

// New builds a Ticker that invokes fn every d. A nil fn is accepted and
// simply records an "invalid tick function" error on every tick.
func New(d time.Duration, fn TickFunc) Ticker {
	if d < time.Millisecond {
		d = defaultDuration
	}

	return &ticker{
		interval: d,
		fn:       fn,
	}
}
