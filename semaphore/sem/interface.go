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

// Package sem provides a weighted concurrency limiter used to bound the
// number of simultaneous workers (request-handling goroutines, admission
// fast-path slots) without involving the OS scheduler.
package sem

import (
	"context"
)

// Semaphore bounds concurrent access to a resource and doubles as a
// context.Context tied to the lifetime of the limiter itself.
type Semaphore interface {
	context.Context

	// Weighted returns the configured concurrency limit, or -1 when the
	// semaphore is unlimited (backed by a sync.WaitGroup).
	Weighted() int64

	// NewWorker blocks until a slot is available or the semaphore's
	// context is done.
	NewWorker() error

	// NewWorkerTry acquires a slot without blocking.
	NewWorkerTry() bool

	// DeferWorker releases a slot acquired by NewWorker/NewWorkerTry.
	DeferWorker()

	// WaitAll blocks until every outstanding worker has called
	// DeferWorker, or the context is done.
	WaitAll() error

	// New returns a fresh Semaphore with the same weight, derived from
	// this one's context.
	New() Semaphore

	// DeferMain cancels the semaphore's own context, unblocking any
	// pending NewWorker/WaitAll calls with context.Canceled.
	DeferMain()
}
