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
	"bufio"
	"bytes"
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/common/expfmt"

	"github.com/nabbar/concurrent-httpd/accesslog"
	"github.com/nabbar/concurrent-httpd/httpproto"
)

func closeFd(fd int) error {
	return syscall.Close(fd)
}

// handle implements the per-connection request contract. It is the
// pool.Handler passed to pool.New; it owns fd and closes it exactly once
// before returning, on every path.
func (r *runtime) handle(fd int) {
	start := time.Now()

	f := os.NewFile(uintptr(fd), "client")
	conn, err := net.FileConn(f)
	f.Close() // FileConn dup'd the fd; the os.File wrapper is no longer needed.
	if err != nil {
		_ = closeFd(fd)
		return
	}
	defer conn.Close()

	peerIP := "127.0.0.1"
	if addr, ok := conn.RemoteAddr().(*net.TCPAddr); ok {
		peerIP = addr.IP.String()
	}

	r.cfg.Stats.IncActive()
	defer r.cfg.Stats.DecActive()

	br := bufio.NewReader(conn)

	req, err := httpproto.ReadRequest(br)
	if err != nil {
		r.respondError(conn, 400, peerIP, "", start)
		return
	}

	if req.Path == "/api/stats" {
		r.serveStats(conn, peerIP, req, start)
		return
	}

	if req.Path == "/metrics" {
		r.serveMetrics(conn, peerIP, req, start)
		return
	}

	if req.Method != "GET" && req.Method != "HEAD" {
		r.respondError(conn, 405, peerIP, req.Path, start)
		return
	}

	if httpproto.HasParentTraversal(req.Path) {
		r.respondError(conn, 403, peerIP, req.Path, start)
		return
	}

	path := req.Path
	if path == "/" {
		path = "/index.html"
	}

	absPath := filepath.Join(r.cfg.DocumentRoot, filepath.Clean("/"+path))

	r.serveFile(conn, peerIP, req, absPath, start)
}

func (r *runtime) serveFile(conn net.Conn, peerIP string, req *httpproto.Request, absPath string, start time.Time) {
	key := req.Path

	h, ok := r.cache.TryPin(key)
	if !ok {
		if _, statErr := os.Stat(absPath); statErr != nil {
			r.respondError(conn, 404, peerIP, req.Path, start)
			return
		}

		if err := r.loadLimit.NewWorker(); err != nil {
			r.respondError(conn, 500, peerIP, req.Path, start)
			return
		}

		var loadErr error
		h, loadErr = r.cache.PinOrLoad(key, absPath)
		r.loadLimit.DeferWorker()

		if loadErr != nil {
			r.respondError(conn, 500, peerIP, req.Path, start)
			return
		}
	}
	defer h.Release()

	data := h.Bytes()
	contentType := httpproto.MimeType(absPath)
	sendBody := req.Method == "GET"

	if req.Range != "" {
		rs := httpproto.ParseRange(req.Range, h.Size())
		if rs.OK {
			if !rs.Satisfiable {
				_ = httpproto.WriteUnsatisfiableRange(conn, h.Size(), false)
				r.finish(peerIP, req, 416, 0, start)
				return
			}

			body := data[rs.Start : rs.End+1]
			if !sendBody {
				body = nil
			}

			_ = httpproto.WritePartialResponse(conn, contentType, body, rs.Start, rs.End, rs.Total, false)
			r.finish(peerIP, req, 206, int64(len(body)), start)
			return
		}
	}

	body := data
	if !sendBody {
		body = nil
	}

	_ = httpproto.WriteResponse(conn, 200, contentType, body, sendBody, false)
	r.finish(peerIP, req, 200, h.Size(), start)
}

func (r *runtime) respondError(conn net.Conn, status int, peerIP, path string, start time.Time) {
	_ = httpproto.WriteError(conn, status, false)

	req := &httpproto.Request{Method: "-", Path: path}
	r.finish(peerIP, req, status, 0, start)
}

func (r *runtime) finish(peerIP string, req *httpproto.Request, status int, bytes int64, start time.Time) {
	durationMs := time.Since(start).Milliseconds()

	r.cfg.Stats.Update(status, bytes, durationMs)

	method := req.Method
	if method == "" {
		method = "-"
	}

	if r.cfg.Access != nil {
		_ = r.cfg.Access.Write(accesslog.Entry{
			PeerIP:     peerIP,
			Method:     method,
			Path:       req.Path,
			Status:     status,
			Bytes:      bytes,
			DurationMs: durationMs,
		})
	}
}

// serveStats answers the reserved /api/stats path with a JSON snapshot of
// the shared Stats region. It never touches the cache or docroot.
func (r *runtime) serveStats(conn net.Conn, peerIP string, req *httpproto.Request, start time.Time) {
	snap := r.cfg.Stats.Snapshot()

	body, err := json.Marshal(snap)
	if err != nil {
		r.respondError(conn, 500, peerIP, req.Path, start)
		return
	}

	_ = httpproto.WriteResponse(conn, 200, "application/json", body, true, false)
	r.finish(peerIP, req, 200, int64(len(body)), start)
}

// serveMetrics answers /metrics with a Prometheus text exposition of the
// same shared Stats region /api/stats reports as JSON. Additive: /api/stats
// remains the primary machine-readable endpoint this format only augments.
func (r *runtime) serveMetrics(conn net.Conn, peerIP string, req *httpproto.Request, start time.Time) {
	families, err := r.metrics.Gather()
	if err != nil {
		r.respondError(conn, 500, peerIP, req.Path, start)
		return
	}

	var buf bytes.Buffer
	enc := expfmt.NewEncoder(&buf, expfmt.FmtText)
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			r.respondError(conn, 500, peerIP, req.Path, start)
			return
		}
	}

	body := buf.Bytes()
	_ = httpproto.WriteResponse(conn, 200, string(expfmt.FmtText), body, true, false)
	r.finish(peerIP, req, 200, int64(len(body)), start)
}
