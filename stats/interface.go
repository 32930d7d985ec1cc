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

// Package stats implements process-shared counters: a fixed-offset record
// inside a shmem.Region, mutated under a shmem.Mutex so every worker and
// the master see a single consistent view.
package stats

import "io"

// Size is the number of bytes a Stats record occupies inside its shmem
// region: eight int64 fields.
const Size = 8 * 8

// Snapshot is a point-in-time, consistent copy of the shared counters.
type Snapshot struct {
	TotalRequests      int64
	BytesTransferred   int64
	Status200          int64
	Status404          int64
	Status500          int64
	ActiveConnections  int64
	TotalResponseTime  int64 // milliseconds
	AvgResponseTimeMs  float64
}

// Stats is the shared counters region plus its cross-process mutex.
type Stats interface {
	// Update records one completed request: increments TotalRequests,
	// adds bytes and durationMs, and increments the status-family
	// counter when status is one of {200, 404, 500}.
	Update(status int, bytes int64, durationMs int64)

	// IncActive/DecActive track in-flight connections.
	IncActive()
	DecActive()

	// Snapshot takes a consistent read of every counter.
	Snapshot() Snapshot

	// Print writes the fixed multi-line summary to w.
	Print(w io.Writer)

	// Close releases the mutex file handle. The region itself is owned
	// by whoever called shmem.OpenRegion.
	Close() error
}

// Open attaches Stats bookkeeping to the first Size bytes of region,
// guarded by mu.
func Open(regionBytes []byte, mu interface {
	Lock() error
	Unlock() error
	Close() error
}) Stats {
	return &stats{data: regionBytes[:Size], mu: mu}
}
