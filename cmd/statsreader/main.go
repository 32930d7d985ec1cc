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

// Command statsreader mirrors the original stats_reader.c test utility: it
// maps the running server's shared stats region read-only and prints its
// counters as key=value lines, so test scripts can verify statistics
// accuracy without going through the HTTP /api/stats endpoint.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nabbar/concurrent-httpd/config"
	"github.com/nabbar/concurrent-httpd/shmem"
	"github.com/nabbar/concurrent-httpd/stats"
)

func main() {
	runtimeDir := flag.String("runtime-dir", config.Default().RuntimeDir, "server runtime directory (must match the running server's runtime directory)")
	flag.Parse()

	if err := run(*runtimeDir, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run(runtimeDir string, w *os.File) error {
	statsPath := filepath.Join(runtimeDir, "stats.shm")
	lockPath := filepath.Join(runtimeDir, "stats.lock")

	if _, err := os.Stat(statsPath); err != nil {
		return fmt.Errorf("could not open shared memory; is the server running? %w", err)
	}

	region, err := shmem.OpenRegion(statsPath, stats.Size)
	if err != nil {
		return fmt.Errorf("could not map shared memory: %w", err)
	}
	defer region.Close()

	mu, err := shmem.OpenMutex(lockPath)
	if err != nil {
		return fmt.Errorf("could not open stats lock: %w", err)
	}
	defer mu.Close()

	st := stats.Open(region.Bytes(), mu)
	snap := st.Snapshot()

	fmt.Fprintf(w, "total_requests=%d\n", snap.TotalRequests)
	fmt.Fprintf(w, "bytes_transferred=%d\n", snap.BytesTransferred)
	fmt.Fprintf(w, "status_200=%d\n", snap.Status200)
	fmt.Fprintf(w, "status_404=%d\n", snap.Status404)
	fmt.Fprintf(w, "status_500=%d\n", snap.Status500)
	fmt.Fprintf(w, "active_connections=%d\n", snap.ActiveConnections)
	fmt.Fprintf(w, "total_response_time_ms=%d\n", snap.TotalResponseTime)
	fmt.Fprintf(w, "avg_response_time_ms=%.0f\n", snap.AvgResponseTimeMs)

	return nil
}
