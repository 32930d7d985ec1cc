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

package stats

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Field offsets within the shared record. Plain fixed offsets, not a cast
// Go struct, so the layout is stable across the master and every
// independently re-exec'd worker process regardless of compiler struct
// padding decisions.
const (
	offTotalRequests     = 0
	offBytesTransferred  = 8
	offStatus200         = 16
	offStatus404         = 24
	offStatus500         = 32
	offActiveConnections = 40
	offTotalResponseTime = 48
)

type mutex interface {
	Lock() error
	Unlock() error
	Close() error
}

type stats struct {
	data []byte
	mu   mutex
}

func (s *stats) get(off int) int64 {
	return int64(binary.LittleEndian.Uint64(s.data[off : off+8]))
}

func (s *stats) add(off int, delta int64) {
	v := s.get(off) + delta
	binary.LittleEndian.PutUint64(s.data[off:off+8], uint64(v))
}

func (s *stats) Update(status int, bytes int64, durationMs int64) {
	if err := s.mu.Lock(); err != nil {
		return
	}
	defer s.mu.Unlock()

	s.add(offTotalRequests, 1)
	s.add(offBytesTransferred, bytes)
	s.add(offTotalResponseTime, durationMs)

	switch status {
	case 200:
		s.add(offStatus200, 1)
	case 404:
		s.add(offStatus404, 1)
	case 500:
		s.add(offStatus500, 1)
	}
}

func (s *stats) IncActive() {
	if err := s.mu.Lock(); err != nil {
		return
	}
	defer s.mu.Unlock()

	s.add(offActiveConnections, 1)
}

func (s *stats) DecActive() {
	if err := s.mu.Lock(); err != nil {
		return
	}
	defer s.mu.Unlock()

	s.add(offActiveConnections, -1)
}

func (s *stats) Snapshot() Snapshot {
	if err := s.mu.Lock(); err != nil {
		return Snapshot{}
	}
	defer s.mu.Unlock()

	snap := Snapshot{
		TotalRequests:     s.get(offTotalRequests),
		BytesTransferred:  s.get(offBytesTransferred),
		Status200:         s.get(offStatus200),
		Status404:         s.get(offStatus404),
		Status500:         s.get(offStatus500),
		ActiveConnections: s.get(offActiveConnections),
		TotalResponseTime: s.get(offTotalResponseTime),
	}

	if snap.TotalRequests > 0 {
		snap.AvgResponseTimeMs = float64(snap.TotalResponseTime) / float64(snap.TotalRequests)
	}

	return snap
}

func (s *stats) Print(w io.Writer) {
	snap := s.Snapshot()

	fmt.Fprintf(w, "\n--- Server Statistics ---\n")
	fmt.Fprintf(w, "Total Requests: %d\n", snap.TotalRequests)
	fmt.Fprintf(w, "Bytes Transferred: %d\n", snap.BytesTransferred)
	fmt.Fprintf(w, "Average Response Time: %.2f ms\n", snap.AvgResponseTimeMs)
	fmt.Fprintf(w, "Status Code: [200: %d] [404: %d] [500: %d]\n", snap.Status200, snap.Status404, snap.Status500)
	fmt.Fprintf(w, "Active Connections: %d\n", snap.ActiveConnections)
	fmt.Fprintf(w, "-------------------------\n")
}

func (s *stats) Close() error {
	return s.mu.Close()
}
