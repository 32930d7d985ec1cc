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

// Package cache implements the per-worker, byte-capacity LRU file cache with
// pin/unpin semantics. Each worker process owns exactly one Cache; there is
// no cross-worker coherence.
package cache

import (
	"errors"

	"github.com/spf13/afero"
)

// ErrNotFound is returned by Invalidate when the key is not present.
var ErrNotFound = errors.New("cache: key not present")

// Handle is a short-lived borrow of a cached file's bytes. Exactly one
// Release call must follow every successful TryPin/PinOrLoad.
type Handle interface {
	// Bytes returns the cached content. Valid only until Release is called.
	Bytes() []byte

	// Size is len(Bytes()), kept separately so callers needn't touch the
	// slice just to report Content-Length.
	Size() int64

	// Release decrements the entry's pin count. Safe to call exactly once.
	Release()
}

// Cache is a per-worker, thread-safe, byte-capacity LRU store of file
// contents keyed by request path.
type Cache interface {
	// TryPin returns a Handle on the entry for key without touching the
	// filesystem. ok is false on a miss.
	TryPin(key string) (h Handle, ok bool)

	// PinOrLoad returns a Handle for key, loading absPath from disk on a
	// miss. The read happens outside the cache's mutex; on a race with
	// another loader for the same key, the freshly read bytes are
	// discarded in favor of whichever entry won.
	PinOrLoad(key string, absPath string) (Handle, error)

	// Invalidate removes key from the cache if it is unpinned. Returns
	// ErrNotFound if the key is absent.
	Invalidate(key string) error

	// Stats reports current occupancy and cumulative counters.
	Stats() Stats
}

// Stats is a point-in-time snapshot of cache counters.
type Stats struct {
	Items     int
	BytesUsed int64
	Capacity  int64
	Hits      uint64
	Misses    uint64
	Evictions uint64
}

// New builds a Cache with the given byte capacity, reading misses off the
// real OS filesystem. A non-positive capacity is clamped to 1 (an
// always-evicting cache, never a divide-by-zero trap).
func New(capacityBytes int64) Cache {
	return NewWithFs(capacityBytes, afero.NewOsFs())
}

// NewWithFs builds a Cache like New, but loads cache misses through fs
// instead of the OS filesystem directly, so an in-memory afero.MemMapFs
// can back PinOrLoad without touching disk.
func NewWithFs(capacityBytes int64, fs afero.Fs) Cache {
	if capacityBytes <= 0 {
		capacityBytes = 1
	}

	return newLRU(capacityBytes, fs)
}
