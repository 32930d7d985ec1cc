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

// Package queue implements a cross-process bounded admission queue: a
// fixed-capacity ring of slot sentinels used purely for backpressure
// accounting (the real client descriptor always travels out-of-band over
// a fdchannel.Channel). head/count live in a shmem.Region and are mutated
// under a shmem.Mutex; because Go has no process-shared counting
// semaphore, the "empty"/"filled" waits are rebuilt as a
// lock-check-backoff loop that re-checks a shutdown flag on every
// iteration so a wait can always be cancelled.
package queue

import (
	"context"
	"errors"
	"sync/atomic"
)

// Size is the number of bytes an AdmissionQueue record occupies in shmem:
// a four-byte head index and a four-byte count.
const Size = 8

// ErrFull is returned by TryAdmit when the queue has no empty slot.
var ErrFull = errors.New("queue: admission queue full")

// ErrShuttingDown is returned by Admit/Take when the shutdown flag was
// observed while waiting.
var ErrShuttingDown = errors.New("queue: shutting down")

// AdmissionQueue is the shared FIFO capacity tracker.
type AdmissionQueue interface {
	// Admit blocks until a slot is free or ctx is done, then occupies
	// it. Used by the master when it chooses to block rather than
	// reject on a full queue.
	Admit(ctx context.Context) error

	// TryAdmit attempts a single non-blocking admit; ErrFull means the
	// caller should reject the client immediately.
	TryAdmit() error

	// Take blocks until a slot is occupied, then frees it. Workers
	// always call this blocking form.
	Take(ctx context.Context) error

	// Len reports the current occupied-slot count (diagnostic only).
	Len() (int, error)
}

// Open attaches an AdmissionQueue of the given capacity to the first Size
// bytes of regionBytes, guarded by mu. shutdown is a per-process flag
// (never shared memory) polled on every backoff iteration of a blocking
// Admit/Take so a slot is never dropped mid-wait.
func Open(regionBytes []byte, mu interface {
	Lock() error
	Unlock() error
}, capacity int, shutdown *atomic.Bool) AdmissionQueue {
	return &admissionQueue{
		data:     regionBytes[:Size],
		mu:       mu,
		capacity: capacity,
		shutdown: shutdown,
	}
}
