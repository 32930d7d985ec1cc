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

// Package worker implements the per-worker-process runtime: it owns a
// cache, a thread pool, and one fdchannel endpoint, and runs the dispatch
// loop that pairs every AdmissionQueue.Take with exactly one
// Channel.RecvFD before submitting the descriptor to the pool.
package worker

import (
	"context"

	"github.com/nabbar/concurrent-httpd/accesslog"
	"github.com/nabbar/concurrent-httpd/cache"
	"github.com/nabbar/concurrent-httpd/fdchannel"
	"github.com/nabbar/concurrent-httpd/logger"
	"github.com/nabbar/concurrent-httpd/queue"
	"github.com/nabbar/concurrent-httpd/stats"
)

// Config bundles everything one worker process needs to run.
type Config struct {
	Index        int
	DocumentRoot string
	CacheBytes   int64
	Threads      int
	MaxQueueSize int

	Channel fdchannel.Channel
	Queue   queue.AdmissionQueue
	Stats   stats.Stats
	Access  accesslog.Writer
	Log     logger.Logger
}

// Runtime is one worker process's dispatch loop plus its owned resources.
type Runtime interface {
	// Run blocks in the dispatch loop until ctx is cancelled or the
	// channel reports the master is gone.
	Run(ctx context.Context) error

	// Shutdown stops the thread pool and releases the cache and channel.
	Shutdown(ctx context.Context) error

	// Cache exposes the worker's cache, mainly for tests.
	Cache() cache.Cache
}

// New builds a Runtime from cfg. The cache is sized by cfg.CacheBytes,
// already divided across workers by the caller (config.PerWorkerCacheBytes).
func New(cfg Config) Runtime {
	return newRuntime(cfg)
}
