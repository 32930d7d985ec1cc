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

package worker

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nabbar/concurrent-httpd/cache"
	"github.com/nabbar/concurrent-httpd/fdchannel"
	"github.com/nabbar/concurrent-httpd/ioutils/mapCloser"
	"github.com/nabbar/concurrent-httpd/pool"
	"github.com/nabbar/concurrent-httpd/semaphore/sem"
	"github.com/nabbar/concurrent-httpd/stats"
)

type runtime struct {
	cfg   Config
	cache cache.Cache
	pool  pool.Pool

	// loadLimit bounds how many cache-miss disk reads this worker issues
	// at once, independent of the thread-pool size: a burst of distinct
	// cold keys shouldn't turn into one read() per pool thread hitting
	// the docroot's filesystem simultaneously.
	loadLimit sem.Semaphore

	// closers tracks the fd-channel (and any other io.Closer a future
	// Config field adds) so Shutdown always releases them, even if
	// Shutdown itself is called more than once.
	closers mapCloser.Closer

	// metrics is a registry scoped to this worker's own stats collector.
	// /metrics gathers from it per request rather than keeping a
	// pre-rendered exposition string, since the underlying shmem counters
	// change between requests.
	metrics *prometheus.Registry
}

func newRuntime(cfg Config) Runtime {
	r := &runtime{
		cfg:   cfg,
		cache: cache.New(cfg.CacheBytes),
	}

	r.pool = pool.New(cfg.Threads, cfg.MaxQueueSize, r.handle)
	r.loadLimit = sem.New(context.Background(), maxConcurrentLoads(cfg.Threads))
	r.closers = mapCloser.New(context.Background())
	r.closers.Add(cfg.Channel)

	r.metrics = prometheus.NewRegistry()
	if cfg.Stats != nil {
		r.metrics.MustRegister(stats.NewCollector(cfg.Stats))
	}

	return r
}

// maxConcurrentLoads caps concurrent disk reads at half the pool's thread
// count (minimum 1), leaving the remaining threads free to serve cache hits
// while a batch of misses is in flight.
func maxConcurrentLoads(threads int) int64 {
	n := int64(threads / 2)
	if n < 1 {
		n = 1
	}
	return n
}

func (r *runtime) Cache() cache.Cache {
	return r.cache
}

// Run is the dispatch loop: every Take is paired with exactly one RecvFD
// before the descriptor is handed to the pool or closed on error.
func (r *runtime) Run(ctx context.Context) error {
	for {
		if err := r.cfg.Queue.Take(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			// A persistent admission-queue error here is not itself
			// channel failure; keep looping unless shutdown was
			// requested.
			continue
		}

		fd, err := r.cfg.Channel.RecvFD()
		if err != nil {
			if errors.Is(err, fdchannel.ErrClosed) {
				return err
			}
			// Transient receive error: discard and loop, no log.
			continue
		}

		if submitErr := r.pool.Submit(fd); submitErr != nil {
			_ = closeFd(fd)
		}

		select {
		case <-ctx.Done():
			return nil
		default:
		}
	}
}

func (r *runtime) Shutdown(ctx context.Context) error {
	r.pool.Stop()
	r.loadLimit.DeferMain()
	return r.closers.Close()
}
