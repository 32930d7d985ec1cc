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

// Package accesslog implements the cross-process access-log writer: a
// buffered, size-rotated append log shared by the master and every
// worker, serialized by a shmem.Mutex the way logger/hookfile serializes
// its own buffered file hook. One Writer is opened per process (master
// and each worker independently reopen the same path); the file lock is
// what keeps their appends from interleaving, not a single in-process
// owner.
package accesslog

import "time"

// BufferSize is the in-memory line buffer capacity before a forced flush.
const BufferSize = 4096

// RotateThreshold is the live file size at which Write rotates before
// appending its next line.
const RotateThreshold = 10 * 1024 * 1024

// MaxGenerations is the number of rotated files kept: path.1 .. path.N.
const MaxGenerations = 5

// FlushInterval is the maximum time an unflushed buffer is allowed to sit
// before Write forces a flush, independent of size.
const FlushInterval = 5 * time.Second

// Entry is one served request, formatted into the literal access-log line.
type Entry struct {
	PeerIP     string
	Method     string
	Path       string
	Status     int
	Bytes      int64
	DurationMs int64
}

// Writer appends Entry lines to path, rotating it once it crosses
// RotateThreshold.
type Writer interface {
	// Write formats and appends one line. Errors are I/O failures on the
	// underlying file; they are never fatal to the caller's request.
	Write(e Entry) error

	// Flush forces the in-memory buffer to disk now.
	Flush() error

	// Close flushes and releases the file handles.
	Close() error
}

// Open opens (creating if absent) the access log at path for append, with
// a dedicated flock-based mutex at path+".lock" standing in for a named
// POSIX semaphore.
func Open(path string) (Writer, error) {
	return openWriter(path)
}
