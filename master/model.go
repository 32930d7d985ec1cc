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

package master

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"github.com/nabbar/concurrent-httpd/accesslog"
	"github.com/nabbar/concurrent-httpd/config"
	errpool "github.com/nabbar/concurrent-httpd/errors/pool"
	"github.com/nabbar/concurrent-httpd/fdchannel"
	"github.com/nabbar/concurrent-httpd/ioutils/fileDescriptor"
	"github.com/nabbar/concurrent-httpd/logger"
	"github.com/nabbar/concurrent-httpd/queue"
	"github.com/nabbar/concurrent-httpd/runner/ticker"
	"github.com/nabbar/concurrent-httpd/shmem"
	"github.com/nabbar/concurrent-httpd/stats"
)

// RoleEnv is the environment variable cmd/httpd inspects to decide whether
// the running process should behave as the master or as one worker.
const RoleEnv = "HTTPD_ROLE"

// WorkerIndexEnv carries the 0-based ordinal of a re-exec'd worker.
const WorkerIndexEnv = "HTTPD_WORKER_INDEX"

// WorkerRole is the RoleEnv value a re-exec'd worker process is started with.
const WorkerRole = "worker"

// The following env vars carry the resolved configuration down to each
// re-exec'd worker, so a worker never has to reparse the config file (and
// can't disagree with the master about docroot, cache size, or paths).
const (
	EnvDocumentRoot = "HTTPD_DOCUMENT_ROOT"
	EnvCacheBytes   = "HTTPD_CACHE_BYTES"
	EnvThreads      = "HTTPD_THREADS"
	EnvMaxQueueSize = "HTTPD_MAX_QUEUE_SIZE"
	EnvRuntimeDir   = "HTTPD_RUNTIME_DIR"
	EnvLogFile      = "HTTPD_LOG_FILE"
)

// statsPrintInterval is the SIGALRM-equivalent periodic stats dump, driven
// by a time.Ticker.
const statsPrintInterval = 30 * time.Second

type workerProc struct {
	index   int
	cmd     *exec.Cmd
	channel fdchannel.Channel
}

type master struct {
	cfg      config.Config
	execPath string
	log      logger.Logger

	listener net.Listener

	queueRegion shmem.Region
	queueMutex  shmem.Mutex
	admission   queue.AdmissionQueue

	statsRegion shmem.Region
	statsMutex  shmem.Mutex
	st          stats.Stats

	access accesslog.Writer

	workers []*workerProc
	next    uint64 // round-robin cursor, atomic

	statsTicker ticker.Ticker

	// workerErrs collects the exit errors of abnormally-terminated
	// workers so Shutdown can report the full set rather than only the
	// last one logged.
	workerErrs errpool.Pool

	shutdown atomic.Bool

	closeOnce sync.Once
	reapWG    sync.WaitGroup
}

func newMaster(cfg config.Config, execPath string, log logger.Logger) Master {
	return &master{cfg: cfg, execPath: execPath, log: log, workerErrs: errpool.New()}
}

func (m *master) queuePath() string { return filepath.Join(m.cfg.RuntimeDir, "queue.shm") }
func (m *master) queueLockPath() string { return filepath.Join(m.cfg.RuntimeDir, "queue.lock") }
func (m *master) statsPath() string { return filepath.Join(m.cfg.RuntimeDir, "stats.shm") }
func (m *master) statsLockPath() string { return filepath.Join(m.cfg.RuntimeDir, "stats.lock") }

// Run implements Master.Run. It binds the listening socket, prepares the
// shared-memory queue and stats regions, spawns the configured workers, and
// dispatches accepted connections round-robin over their fdchannels.
func (m *master) Run(ctx context.Context) error {
	if err := os.MkdirAll(m.cfg.RuntimeDir, 0o755); err != nil {
		return fmt.Errorf("master: runtime dir: %w", err)
	}

	m.raiseFileDescriptorLimit()

	if err := m.openShared(); err != nil {
		return err
	}

	access, err := accesslog.Open(m.cfg.LogFile)
	if err != nil {
		return fmt.Errorf("master: access log: %w", err)
	}
	m.access = access

	ln, err := listenReuse(m.cfg.Port)
	if err != nil {
		return fmt.Errorf("master: listen: %w", err)
	}
	m.listener = ln

	if err := m.spawnWorkers(); err != nil {
		_ = m.Shutdown(ctx)
		return err
	}

	m.statsTicker = ticker.New(statsPrintInterval, func(_ context.Context, _ *time.Ticker) error {
		m.st.Print(os.Stderr)
		return nil
	})
	if err := m.statsTicker.Start(ctx); err != nil {
		_ = m.Shutdown(ctx)
		return fmt.Errorf("master: stats ticker: %w", err)
	}

	sigDone := make(chan struct{})
	go m.acceptLoop(ctx, sigDone)

	select {
	case <-ctx.Done():
		return m.Shutdown(context.Background())
	case <-sigDone:
		return nil
	}
}

// acceptLoop runs the master's accept/dispatch cycle: accept a
// connection, admit it against the shared queue (rejecting with a closed
// connection when full), then hand its descriptor to the next worker in
// round-robin order.
func (m *master) acceptLoop(ctx context.Context, done chan<- struct{}) {
	defer close(done)

	for {
		conn, err := m.listener.Accept()
		if err != nil {
			if m.shutdown.Load() {
				return
			}
			m.log.WithError(err).Warn("master: accept failed")
			continue
		}

		if ctx.Err() != nil {
			_ = conn.Close()
			return
		}

		m.dispatch(conn)
	}
}

func (m *master) dispatch(conn net.Conn) {
	tcp, ok := conn.(*net.TCPConn)
	if !ok {
		_ = conn.Close()
		return
	}

	f, err := tcp.File()
	_ = conn.Close() // File() dup'd the descriptor; the original is no longer needed.
	if err != nil {
		m.log.WithError(err).Warn("master: duplicate client fd")
		return
	}
	fd := int(f.Fd())

	if err := m.admission.TryAdmit(); err != nil {
		m.log.Warn("master: admission queue full, rejecting connection")
		_ = f.Close()
		return
	}

	w := m.nextWorker()

	if err := w.channel.SendFD(fd); err != nil {
		m.log.WithError(err).Error("master: send fd to worker failed")
		if takeErr := m.admission.Take(context.Background()); takeErr != nil {
			m.log.WithError(takeErr).Warn("master: admission rollback failed")
		}
	}

	_ = f.Close() // SendFD dup'd fd into the worker's control message.
}

func (m *master) nextWorker() *workerProc {
	i := atomic.AddUint64(&m.next, 1) - 1
	return m.workers[int(i)%len(m.workers)]
}

// raiseFileDescriptorLimit attempts to lift this process's RLIMIT_NOFILE
// high enough to cover every worker's admission-queue slots plus its cache's
// on-miss file handles and the master's own listening socket. Failure is
// not fatal: the process simply runs with whatever limit the OS already
// grants, and the admission queue's own backpressure keeps the server from
// exhausting it under load.
func (m *master) raiseFileDescriptorLimit() {
	want := m.cfg.NumWorkers*(m.cfg.MaxQueueSize+m.cfg.ThreadsPerWorker) + 64

	cur, max, err := fileDescriptor.SystemFileDescriptor(0)
	if err != nil {
		m.log.WithError(err).Warn("master: query file descriptor limit failed")
		return
	}
	if cur >= want {
		return
	}

	if _, _, err := fileDescriptor.SystemFileDescriptor(want); err != nil {
		m.log.WithError(err).Warn(fmt.Sprintf("master: raise file descriptor limit to %d (hard max %d) failed", want, max))
	}
}

func (m *master) openShared() error {
	qr, err := shmem.OpenRegion(m.queuePath(), queue.Size)
	if err != nil {
		return fmt.Errorf("master: queue region: %w", err)
	}
	m.queueRegion = qr

	qm, err := shmem.OpenMutex(m.queueLockPath())
	if err != nil {
		return fmt.Errorf("master: queue mutex: %w", err)
	}
	m.queueMutex = qm

	m.admission = queue.Open(qr.Bytes(), qm, m.cfg.MaxQueueSize, &m.shutdown)

	sr, err := shmem.OpenRegion(m.statsPath(), stats.Size)
	if err != nil {
		return fmt.Errorf("master: stats region: %w", err)
	}
	m.statsRegion = sr

	sm, err := shmem.OpenMutex(m.statsLockPath())
	if err != nil {
		return fmt.Errorf("master: stats mutex: %w", err)
	}
	m.statsMutex = sm

	m.st = stats.Open(sr.Bytes(), sm)

	return nil
}

// spawnWorkers self-re-execs one process per configured worker, handing
// each the worker end of a fresh fdchannel via exec.Cmd.ExtraFiles.
func (m *master) spawnWorkers() error {
	m.workers = make([]*workerProc, 0, m.cfg.NumWorkers)

	for i := 0; i < m.cfg.NumWorkers; i++ {
		masterEnd, workerEnd, err := fdchannel.New()
		if err != nil {
			return fmt.Errorf("master: fdchannel for worker %d: %w", i, err)
		}

		wf := os.NewFile(uintptr(workerEnd.Fd()), fmt.Sprintf("worker-%d-chan", i))

		cmd := exec.Command(m.execPath, os.Args[1:]...)
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		cmd.Env = append(os.Environ(),
			RoleEnv+"="+WorkerRole,
			fmt.Sprintf("%s=%d", WorkerIndexEnv, i),
			fmt.Sprintf("%s=%s", EnvDocumentRoot, m.cfg.DocumentRoot),
			fmt.Sprintf("%s=%d", EnvCacheBytes, m.cfg.PerWorkerCacheBytes()),
			fmt.Sprintf("%s=%d", EnvThreads, m.cfg.ThreadsPerWorker),
			fmt.Sprintf("%s=%d", EnvMaxQueueSize, m.cfg.MaxQueueSize),
			fmt.Sprintf("%s=%s", EnvRuntimeDir, m.cfg.RuntimeDir),
			fmt.Sprintf("%s=%s", EnvLogFile, m.cfg.LogFile),
		)
		cmd.ExtraFiles = []*os.File{wf}

		if err := cmd.Start(); err != nil {
			_ = masterEnd.Close()
			_ = workerEnd.Close()
			return fmt.Errorf("master: spawn worker %d: %w", i, err)
		}

		_ = workerEnd.Close() // the worker process holds its own copy via ExtraFiles.
		_ = wf.Close()

		wp := &workerProc{index: i, cmd: cmd, channel: masterEnd}
		m.workers = append(m.workers, wp)

		m.reapWG.Add(1)
		go m.reap(wp)
	}

	return nil
}

// reap waits for one worker process and logs its exit. A dead worker is
// not respawned; its slot simply stops receiving new connections once
// excluded.
func (m *master) reap(wp *workerProc) {
	defer m.reapWG.Done()

	err := wp.cmd.Wait()
	if m.shutdown.Load() {
		return
	}

	if err != nil {
		m.log.WithError(err).Error(fmt.Sprintf("master: worker %d exited", wp.index))
		m.workerErrs.Add(fmt.Errorf("worker %d: %w", wp.index, err))
	} else {
		m.log.Warn(fmt.Sprintf("master: worker %d exited", wp.index))
	}
}

// Shutdown implements Master.Shutdown: it flips the per-process shutdown
// flag so any in-progress Admit/Take loop unblocks, closes the listener and
// every master-side channel end, signals each worker process, and releases
// the shared-memory regions and access log.
func (m *master) Shutdown(_ context.Context) error {
	m.closeOnce.Do(func() {
		m.shutdown.Store(true)

		if m.statsTicker != nil {
			_ = m.statsTicker.Stop(context.Background())
		}

		if m.listener != nil {
			_ = m.listener.Close()
		}

		for _, w := range m.workers {
			_ = w.channel.Close()
			if w.cmd.Process != nil {
				_ = w.cmd.Process.Signal(syscall.SIGTERM)
			}
		}

		m.reapWG.Wait()

		if err := m.workerErrs.Error(); err != nil {
			m.log.WithError(err).Warn(fmt.Sprintf("master: %d worker(s) exited abnormally", m.workerErrs.Len()))
		}

		if m.access != nil {
			_ = m.access.Close()
		}

		if m.st != nil {
			_ = m.st.Close() // also closes statsMutex.
		}
		if m.statsRegion != nil {
			_ = m.statsRegion.Close()
			_ = shmem.Remove(m.statsPath())
		}

		if m.queueMutex != nil {
			_ = m.queueMutex.Close()
		}
		if m.queueRegion != nil {
			_ = m.queueRegion.Close()
			_ = shmem.Remove(m.queuePath())
		}
	})

	return nil
}

// listenReuse binds a TCP listener on port with SO_REUSEADDR set so a
// restarted master can rebind immediately.
func listenReuse(port int) (net.Listener, error) {
	lc := net.ListenConfig{
		Control: func(_, _ string, c syscall.RawConn) error {
			var sockErr error
			err := c.Control(func(fd uintptr) {
				sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
			})
			if err != nil {
				return err
			}
			return sockErr
		},
	}

	return lc.Listen(context.Background(), "tcp", fmt.Sprintf(":%d", port))
}
