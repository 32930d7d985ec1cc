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

package queue

import (
	"context"
	"encoding/binary"
	"sync/atomic"
	"time"
)

const (
	offHead  = 0
	offCount = 4
)

// backoff is how long a blocked Admit/Take sleeps between polls. Short
// enough that a worker wakes promptly on shutdown, long enough not to spin
// the flock under real contention.
const backoff = 2 * time.Millisecond

type mutex interface {
	Lock() error
	Unlock() error
}

type admissionQueue struct {
	data     []byte
	mu       mutex
	capacity int
	shutdown *atomic.Bool
}

func (q *admissionQueue) head() int32 {
	return int32(binary.LittleEndian.Uint32(q.data[offHead : offHead+4]))
}

func (q *admissionQueue) count() int32 {
	return int32(binary.LittleEndian.Uint32(q.data[offCount : offCount+4]))
}

func (q *admissionQueue) setHead(v int32) {
	binary.LittleEndian.PutUint32(q.data[offHead:offHead+4], uint32(v))
}

func (q *admissionQueue) setCount(v int32) {
	binary.LittleEndian.PutUint32(q.data[offCount:offCount+4], uint32(v))
}

func (q *admissionQueue) TryAdmit() error {
	if err := q.mu.Lock(); err != nil {
		return err
	}
	defer q.mu.Unlock()

	if int(q.count()) >= q.capacity {
		return ErrFull
	}

	q.setCount(q.count() + 1)

	return nil
}

func (q *admissionQueue) Admit(ctx context.Context) error {
	for {
		if err := q.TryAdmit(); err == nil {
			return nil
		} else if err != ErrFull {
			return err
		}

		if q.isShuttingDown() {
			return ErrShuttingDown
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
}

func (q *admissionQueue) tryTake() (bool, error) {
	if err := q.mu.Lock(); err != nil {
		return false, err
	}
	defer q.mu.Unlock()

	if q.count() == 0 {
		return false, nil
	}

	q.setHead((q.head() + 1) % int32(q.capacity))
	q.setCount(q.count() - 1)

	return true, nil
}

func (q *admissionQueue) Take(ctx context.Context) error {
	for {
		ok, err := q.tryTake()
		if err != nil {
			return err
		}
		if ok {
			return nil
		}

		if q.isShuttingDown() {
			return ErrShuttingDown
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
}

func (q *admissionQueue) Len() (int, error) {
	if err := q.mu.Lock(); err != nil {
		return 0, err
	}
	defer q.mu.Unlock()

	return int(q.count()), nil
}

func (q *admissionQueue) isShuttingDown() bool {
	return q.shutdown != nil && q.shutdown.Load()
}
