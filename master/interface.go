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

// Package master implements the listener/dispatch process: it binds the
// listening socket, owns the shared admission queue and stats region,
// self-re-execs one OS process per configured worker, and round-robins
// accepted connections to them over fdchannel channels. It never reads a
// request byte itself — that is entirely the worker package's job.
package master

import (
	"context"

	"github.com/nabbar/concurrent-httpd/config"
	"github.com/nabbar/concurrent-httpd/logger"
)

// Master is the running listener/dispatch process.
type Master interface {
	// Run binds the socket, spawns the configured workers, and blocks
	// accepting and dispatching connections until ctx is cancelled or a
	// SIGTERM/SIGINT is observed.
	Run(ctx context.Context) error

	// Shutdown stops accepting, signals every worker process, and
	// releases the shared-memory region and access log. Safe to call
	// once Run has returned or is about to.
	Shutdown(ctx context.Context) error
}

// New builds a Master from cfg. execPath is the binary re-exec'd for each
// worker (normally os.Args[0]).
func New(cfg config.Config, execPath string, log logger.Logger) Master {
	return newMaster(cfg, execPath, log)
}
