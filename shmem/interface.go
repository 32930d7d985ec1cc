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

// Package shmem provides the two cross-process building blocks the rest of
// the core is built from: a fixed-size memory-mapped region shared by the
// master and every worker, and a named mutex backed by an exclusive file
// lock standing in for a POSIX named semaphore. Go has no portable,
// cgo-free binding for a process-shared pthread_mutex_t or a counting
// sem_t, so both are rebuilt on unix.Mmap/unix.Flock — see DESIGN.md for
// the rationale.
package shmem

import "errors"

// ErrClosed is returned by operations on a Region or Mutex after Close.
var ErrClosed = errors.New("shmem: already closed")

// Region is a fixed-size MAP_SHARED mapping, backed by a regular file so
// that a re-exec'd worker can reopen and remap the same bytes by path.
type Region interface {
	// Bytes exposes the mapped memory. Callers serialize access to it
	// themselves (typically through a Mutex obtained from the same
	// path).
	Bytes() []byte

	// Close unmaps the region. The backing file is left on disk; call
	// Remove to delete it once no process still needs it.
	Close() error
}

// Mutex is a cross-process binary lock implemented with flock(2) on a
// dedicated lock file. Unlike a POSIX named semaphore it has no kernel
// identity beyond the inode, which is exactly what's wanted here: workers
// inherit their copy of the fd across re-exec rather than reopening by
// name, avoiding any races around semaphore creation order.
type Mutex interface {
	Lock() error
	Unlock() error
	Close() error
}

// OpenRegion creates (if absent) and memory-maps a size-byte region at
// path. The file is truncated up to size if smaller; an existing larger
// file is mapped as-is.
func OpenRegion(path string, size int) (Region, error) {
	return openRegion(path, size)
}

// Remove deletes the backing file of a Region created by OpenRegion. Call
// this once, from the process that owns the region's lifetime (the
// master), after every other process has closed its mapping.
func Remove(path string) error {
	return removeRegion(path)
}

// OpenMutex creates (if absent) and opens the lock file backing a Mutex.
func OpenMutex(path string) (Mutex, error) {
	return openMutex(path)
}
