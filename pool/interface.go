/*
 * MIT License
 *
 * Copyright (c) 2024 Nicolas JUHEL
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

// Package pool implements the per-worker thread pool: a fixed set of
// goroutines draining an in-process FIFO job queue under a
// mutex/condition-variable pair, the same shape golang.org/x/sync/semaphore
// and the semaphore/sem package use for bounded concurrency — here reused
// for job dispatch rather than admission limiting.
package pool

import "errors"

// ErrNotRunning is returned by Submit once the pool has left the running
// state; the caller must close the fd itself.
var ErrNotRunning = errors.New("pool: not running")

// ErrQueueFull is returned by Submit when MaxQueueSize is set and the job
// queue is already at capacity; the caller must close the fd itself.
var ErrQueueFull = errors.New("pool: job queue full")

// Handler processes one accepted client descriptor. It owns the fd and
// must close it before returning.
type Handler func(fd int)

// Pool is a fixed-size collection of worker goroutines draining a FIFO job
// queue of file descriptors.
type Pool interface {
	// Submit enqueues fd for processing. On any non-nil error the caller
	// retains ownership of fd and must close it.
	Submit(fd int) error

	// Stop transitions running -> draining -> stopped: it wakes every
	// worker goroutine, waits for in-flight jobs to finish, then closes
	// every fd still sitting in the queue unprocessed.
	Stop()

	// Running reports whether Submit will currently be accepted.
	Running() bool
}

// New starts a Pool of n worker goroutines calling handler for each
// submitted fd. maxQueueSize <= 0 means unbounded.
func New(n int, maxQueueSize int, handler Handler) Pool {
	if n <= 0 {
		n = 1
	}

	return newPool(n, maxQueueSize, handler)
}
