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

package pool

import (
	"sync"
	"syscall"
)

type state int

const (
	stateRunning state = iota
	stateDraining
	stateStopped
)

type pool struct {
	mu    sync.Mutex
	cond  *sync.Cond
	state state

	queue   []int
	maxSize int

	handler Handler
	wg      sync.WaitGroup
}

func newPool(n int, maxQueueSize int, handler Handler) *pool {
	p := &pool{
		state:   stateRunning,
		maxSize: maxQueueSize,
		handler: handler,
	}
	p.cond = sync.NewCond(&p.mu)

	p.wg.Add(n)
	for i := 0; i < n; i++ {
		go p.worker()
	}

	return p
}

func (p *pool) Submit(fd int) error {
	p.mu.Lock()

	if p.state != stateRunning {
		p.mu.Unlock()
		return ErrNotRunning
	}

	if p.maxSize > 0 && len(p.queue) >= p.maxSize {
		p.mu.Unlock()
		return ErrQueueFull
	}

	p.queue = append(p.queue, fd)
	p.mu.Unlock()

	p.cond.Signal()

	return nil
}

func (p *pool) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.state == stateRunning
}

// worker loops on the condition variable, dequeuing the head job and
// processing it outside the lock. It re-checks the predicate after every
// wakeup to tolerate spurious wakeups.
func (p *pool) worker() {
	defer p.wg.Done()

	for {
		p.mu.Lock()
		for len(p.queue) == 0 && p.state == stateRunning {
			p.cond.Wait()
		}

		if p.state != stateRunning {
			p.mu.Unlock()
			return
		}

		fd := p.queue[0]
		p.queue = p.queue[1:]
		p.mu.Unlock()

		p.handler(fd)
	}
}

func (p *pool) Stop() {
	p.mu.Lock()
	if p.state != stateRunning {
		p.mu.Unlock()
		return
	}
	p.state = stateDraining
	p.mu.Unlock()

	p.cond.Broadcast()
	p.wg.Wait()

	p.mu.Lock()
	remaining := p.queue
	p.queue = nil
	p.state = stateStopped
	p.mu.Unlock()

	for _, fd := range remaining {
		_ = syscall.Close(fd)
	}
}
