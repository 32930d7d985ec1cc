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

package shmem

import (
	"fmt"
	"os"
	"sync"

	"golang.org/x/sys/unix"
)

type region struct {
	mu   sync.Mutex
	data []byte
}

func openRegion(path string, size int) (Region, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o666)
	if err != nil {
		return nil, fmt.Errorf("shmem: open %s: %w", path, err)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("shmem: stat %s: %w", path, err)
	}

	if fi.Size() < int64(size) {
		if err = f.Truncate(int64(size)); err != nil {
			return nil, fmt.Errorf("shmem: truncate %s: %w", path, err)
		}
	}

	data, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("shmem: mmap %s: %w", path, err)
	}

	return &region{data: data}, nil
}

func removeRegion(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("shmem: remove %s: %w", path, err)
	}

	return nil
}

func (r *region) Bytes() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.data
}

func (r *region) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.data == nil {
		return nil
	}

	err := unix.Munmap(r.data)
	r.data = nil

	if err != nil {
		return fmt.Errorf("shmem: munmap: %w", err)
	}

	return nil
}

type fileMutex struct {
	mu sync.Mutex
	f  *os.File
}

func openMutex(path string) (Mutex, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o666)
	if err != nil {
		return nil, fmt.Errorf("shmem: open mutex %s: %w", path, err)
	}

	return &fileMutex{f: f}, nil
}

func (m *fileMutex) Lock() error {
	m.mu.Lock()

	if err := unix.Flock(int(m.f.Fd()), unix.LOCK_EX); err != nil {
		m.mu.Unlock()
		return fmt.Errorf("shmem: flock: %w", err)
	}

	return nil
}

func (m *fileMutex) Unlock() error {
	defer m.mu.Unlock()

	if err := unix.Flock(int(m.f.Fd()), unix.LOCK_UN); err != nil {
		return fmt.Errorf("shmem: funlock: %w", err)
	}

	return nil
}

func (m *fileMutex) Close() error {
	return m.f.Close()
}
