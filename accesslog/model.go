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

package accesslog

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/nabbar/concurrent-httpd/ioutils"
	"github.com/nabbar/concurrent-httpd/shmem"
)

type writer struct {
	mu sync.Mutex // serializes this process's own buffer mutations

	path string
	f    ioutils.FileProgress
	lock shmem.Mutex

	buf       []byte
	lastFlush time.Time
}

// openFile opens path in append mode and wraps it as an ioutils.FileProgress
// so this writer shares the same file handle abstraction the rest of the
// tree's progress-tracked I/O uses, even though access-log writes don't
// register increment/finish callbacks. An empty path falls back to a
// scratch temp file rather than leaving the server without an access log
// when LogFile was cleared in config.
func openFile(path string) (f ioutils.FileProgress, actualPath string, err error) {
	if path == "" {
		fp, ierr := ioutils.NewFileProgressTemp()
		if ierr != nil {
			return nil, "", ierr
		}
		return fp, fp.FilePath(), nil
	}

	osFile, oerr := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if oerr != nil {
		return nil, "", oerr
	}

	return ioutils.NewFileProgress(osFile), path, nil
}

func openWriter(path string) (Writer, error) {
	if path != "" {
		if dir := filepath.Dir(path); dir != "." {
			if err := ioutils.PathCheckCreate(false, dir, 0o644, 0o755); err != nil {
				return nil, fmt.Errorf("accesslog: log directory %s: %w", dir, err)
			}
		}
	}

	f, actualPath, err := openFile(path)
	if err != nil {
		return nil, fmt.Errorf("accesslog: open %s: %w", path, err)
	}

	lock, err := shmem.OpenMutex(actualPath + ".lock")
	if err != nil {
		f.Close()
		return nil, err
	}

	return &writer{
		path:      actualPath,
		f:         f,
		lock:      lock,
		buf:       make([]byte, 0, BufferSize),
		lastFlush: time.Now(),
	}, nil
}

func (w *writer) Write(e Entry) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.lock.Lock(); err != nil {
		return err
	}
	defer w.lock.Unlock()

	if size, err := w.fileSize(); err == nil && size >= RotateThreshold {
		if err = w.flushLocked(); err != nil {
			return err
		}
		if err = w.rotateLocked(); err != nil {
			return err
		}
	}

	line := formatLine(e)

	if len(w.buf)+len(line) > BufferSize {
		if err := w.flushLocked(); err != nil {
			return err
		}
	}

	w.buf = append(w.buf, line...)

	if time.Since(w.lastFlush) >= FlushInterval {
		return w.flushLocked()
	}

	return nil
}

func formatLine(e Entry) string {
	ip := e.PeerIP
	if ip == "" {
		ip = "127.0.0.1"
	}

	return fmt.Sprintf("%s [%s] \"%s %s\" %d %d %dms\n",
		ip,
		time.Now().Format("02/Jan/2006:15:04:05"),
		e.Method, e.Path, e.Status, e.Bytes, e.DurationMs,
	)
}

func (w *writer) fileSize() (int64, error) {
	fi, err := w.f.FileStat()
	if err != nil {
		return 0, err
	}

	return fi.Size(), nil
}

// flushLocked performs a full write of the buffer, retrying on a short
// write or EINTR, then resets the buffer and last-flush timestamp. Must be
// called with w.lock held.
func (w *writer) flushLocked() error {
	if len(w.buf) == 0 {
		return nil
	}

	data := w.buf
	for len(data) > 0 {
		n, err := w.f.Write(data)
		if n > 0 {
			data = data[n:]
		}
		if err != nil {
			return fmt.Errorf("accesslog: write: %w", err)
		}
	}

	w.buf = w.buf[:0]
	w.lastFlush = time.Now()

	return nil
}

// rotateLocked renames path -> path.1 -> ... -> path.MaxGenerations,
// dropping the oldest generation, then reopens a fresh empty path. Must be
// called with w.lock held and the current fd already flushed.
func (w *writer) rotateLocked() error {
	if err := w.f.Close(); err != nil {
		return fmt.Errorf("accesslog: close before rotate: %w", err)
	}

	oldest := fmt.Sprintf("%s.%d", w.path, MaxGenerations)
	_ = os.Remove(oldest)

	for i := MaxGenerations - 1; i >= 1; i-- {
		from := fmt.Sprintf("%s.%d", w.path, i)
		to := fmt.Sprintf("%s.%d", w.path, i+1)
		_ = os.Rename(from, to)
	}

	if err := os.Rename(w.path, w.path+".1"); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("accesslog: rotate rename: %w", err)
	}

	f, _, err := openFile(w.path)
	if err != nil {
		return fmt.Errorf("accesslog: reopen after rotate: %w", err)
	}

	w.f = f

	return nil
}

func (w *writer) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.lock.Lock(); err != nil {
		return err
	}
	defer w.lock.Unlock()

	return w.flushLocked()
}

func (w *writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.lock.Lock(); err == nil {
		_ = w.flushLocked()
		w.lock.Unlock()
	}

	_ = w.lock.Close()

	return w.f.Close()
}
