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
	"github.com/prometheus/client_golang/prometheus"
)

// collector adapts a Stats region to prometheus.Collector by taking a fresh
// Snapshot on every scrape. There is no separate counter bookkeeping to keep
// in sync with the shmem record: the shmem record is the one source of
// truth, shared across the master and every worker, and Collect just reads
// it the same way Print and the /api/stats handler do.
type collector struct {
	s Stats

	descTotalRequests *prometheus.Desc
	descBytesTotal     *prometheus.Desc
	descStatus         *prometheus.Desc
	descActiveConns    *prometheus.Desc
	descAvgResponseMs  *prometheus.Desc
}

// NewCollector wraps s as a prometheus.Collector suitable for registering
// into a prometheus.Registry and gathering for a /metrics exposition
// endpoint. It is safe to construct one collector per worker process since
// every worker reads the same shared region.
func NewCollector(s Stats) prometheus.Collector {
	return &collector{
		s: s,
		descTotalRequests: prometheus.NewDesc(
			"httpd_requests_total", "Total requests served.", nil, nil),
		descBytesTotal: prometheus.NewDesc(
			"httpd_bytes_transferred_total", "Total response bytes transferred.", nil, nil),
		descStatus: prometheus.NewDesc(
			"httpd_responses_total", "Responses served, by status code.", []string{"code"}, nil),
		descActiveConns: prometheus.NewDesc(
			"httpd_active_connections", "Connections currently being served.", nil, nil),
		descAvgResponseMs: prometheus.NewDesc(
			"httpd_response_time_ms_avg", "Average response time in milliseconds.", nil, nil),
	}
}

func (c *collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.descTotalRequests
	ch <- c.descBytesTotal
	ch <- c.descStatus
	ch <- c.descActiveConns
	ch <- c.descAvgResponseMs
}

func (c *collector) Collect(ch chan<- prometheus.Metric) {
	snap := c.s.Snapshot()

	ch <- prometheus.MustNewConstMetric(c.descTotalRequests, prometheus.CounterValue, float64(snap.TotalRequests))
	ch <- prometheus.MustNewConstMetric(c.descBytesTotal, prometheus.CounterValue, float64(snap.BytesTransferred))
	ch <- prometheus.MustNewConstMetric(c.descStatus, prometheus.CounterValue, float64(snap.Status200), "200")
	ch <- prometheus.MustNewConstMetric(c.descStatus, prometheus.CounterValue, float64(snap.Status404), "404")
	ch <- prometheus.MustNewConstMetric(c.descStatus, prometheus.CounterValue, float64(snap.Status500), "500")
	ch <- prometheus.MustNewConstMetric(c.descActiveConns, prometheus.GaugeValue, float64(snap.ActiveConnections))
	ch <- prometheus.MustNewConstMetric(c.descAvgResponseMs, prometheus.GaugeValue, snap.AvgResponseTimeMs)
}
