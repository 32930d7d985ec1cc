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

// Command httpd is the concurrent static-file server binary. A single
// executable plays both roles of the master/worker process model: run
// as `httpd serve` it is the master; re-exec'd with
// HTTPD_ROLE=worker (always by the master itself, never by a user) it
// runs one worker's dispatch loop instead.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/nabbar/concurrent-httpd/accesslog"
	"github.com/nabbar/concurrent-httpd/config"
	"github.com/nabbar/concurrent-httpd/console"
	"github.com/nabbar/concurrent-httpd/fdchannel"
	"github.com/nabbar/concurrent-httpd/logger"
	"github.com/nabbar/concurrent-httpd/master"
	"github.com/nabbar/concurrent-httpd/queue"
	"github.com/nabbar/concurrent-httpd/shmem"
	"github.com/nabbar/concurrent-httpd/stats"
	"github.com/nabbar/concurrent-httpd/worker"
)

// version is injected at build time; left as a default for `go run`/local
// builds the way kcptun's VERSION var works.
var version = "dev"

func main() {
	if os.Getenv(master.RoleEnv) == master.WorkerRole {
		if err := runWorker(); err != nil {
			fmt.Fprintln(os.Stderr, "worker:", err)
			os.Exit(1)
		}
		return
	}

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "httpd",
		Short: "concurrent static-file HTTP server",
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "start the server, spawning one worker process per configured thread group",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMaster(configPath)
		},
	}
	serveCmd.Flags().StringVar(&configPath, "config", "server.conf", "path to the KEY=VALUE configuration file")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "print the build version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version)
		},
	}

	root.AddCommand(serveCmd, versionCmd)

	return root
}

func runMaster(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		console.SetColor(console.ColorPrint, int(color.FgYellow))
		console.ColorPrint.PrintLnf("warning: %v, falling back to defaults", err)
	}

	log := logger.New("info")

	printBanner(cfg)

	m := master.New(cfg, os.Args[0], log)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	if err := m.Run(ctx); err != nil {
		return fmt.Errorf("master: %w", err)
	}

	return nil
}

func printBanner(cfg config.Config) {
	console.SetColor(console.ColorPrint, int(color.FgCyan), int(color.Bold))
	console.ColorPrint.PrintLnf("concurrent-httpd %s listening on :%d, %d workers x %d threads, docroot %s",
		version, cfg.Port, cfg.NumWorkers, cfg.ThreadsPerWorker, cfg.DocumentRoot)
}

// runWorker is the worker-process entry point: it reads its ordinal and
// inherited channel fd from the environment set up by master.spawnWorkers
// and runs the dispatch loop until the master closes its end or the process
// receives SIGTERM.
func runWorker() error {
	idx, err := strconv.Atoi(os.Getenv(master.WorkerIndexEnv))
	if err != nil {
		return fmt.Errorf("worker: missing/invalid %s: %w", master.WorkerIndexEnv, err)
	}

	cacheBytes, err := strconv.ParseInt(os.Getenv(master.EnvCacheBytes), 10, 64)
	if err != nil {
		return fmt.Errorf("worker: missing/invalid %s: %w", master.EnvCacheBytes, err)
	}

	threads, err := strconv.Atoi(os.Getenv(master.EnvThreads))
	if err != nil {
		return fmt.Errorf("worker: missing/invalid %s: %w", master.EnvThreads, err)
	}

	maxQueueSize, err := strconv.Atoi(os.Getenv(master.EnvMaxQueueSize))
	if err != nil {
		return fmt.Errorf("worker: missing/invalid %s: %w", master.EnvMaxQueueSize, err)
	}

	runtimeDir := os.Getenv(master.EnvRuntimeDir)
	if runtimeDir == "" {
		return fmt.Errorf("worker: missing %s", master.EnvRuntimeDir)
	}

	// fd 3 is the first entry of exec.Cmd.ExtraFiles in the parent process.
	const inheritedChannelFd = 3
	ch := fdchannel.FromFd(inheritedChannelFd)

	q, st, err := openShared(runtimeDir, maxQueueSize)
	if err != nil {
		return fmt.Errorf("worker: %w", err)
	}

	access, err := accesslog.Open(os.Getenv(master.EnvLogFile))
	if err != nil {
		return fmt.Errorf("worker: access log: %w", err)
	}

	log := logger.New("info").WithField("worker", idx)

	rt := worker.New(worker.Config{
		Index:        idx,
		DocumentRoot: os.Getenv(master.EnvDocumentRoot),
		CacheBytes:   cacheBytes,
		Threads:      threads,
		MaxQueueSize: maxQueueSize,
		Channel:      ch,
		Queue:        q,
		Stats:        st,
		Access:       access,
		Log:          log,
	})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	runErr := rt.Run(ctx)
	_ = rt.Shutdown(context.Background())
	_ = access.Close()

	return runErr
}

// openShared re-maps the queue and stats shared-memory regions the master
// already created under runtimeDir. Both processes mmap the same backing
// file, so no fd needs to be inherited the way the client connection's fd
// does over the fdchannel; reopening by path is enough for MAP_SHARED
// visibility between master and worker.
func openShared(runtimeDir string, maxQueueSize int) (queue.AdmissionQueue, stats.Stats, error) {
	qr, err := shmem.OpenRegion(filepath.Join(runtimeDir, "queue.shm"), queue.Size)
	if err != nil {
		return nil, nil, fmt.Errorf("queue region: %w", err)
	}

	qm, err := shmem.OpenMutex(filepath.Join(runtimeDir, "queue.lock"))
	if err != nil {
		return nil, nil, fmt.Errorf("queue mutex: %w", err)
	}

	var shutdown atomic.Bool
	q := queue.Open(qr.Bytes(), qm, maxQueueSize, &shutdown)

	sr, err := shmem.OpenRegion(filepath.Join(runtimeDir, "stats.shm"), stats.Size)
	if err != nil {
		return nil, nil, fmt.Errorf("stats region: %w", err)
	}

	sm, err := shmem.OpenMutex(filepath.Join(runtimeDir, "stats.lock"))
	if err != nil {
		return nil, nil, fmt.Errorf("stats mutex: %w", err)
	}

	st := stats.Open(sr.Bytes(), sm)

	return q, st, nil
}
