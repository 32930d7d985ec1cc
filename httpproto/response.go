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

package httpproto

import (
	"fmt"
	"io"
	"net/http"
	"time"
)

// StatusText returns the reason phrase for status, falling back to
// "Unknown" for anything http.StatusText doesn't recognize.
func StatusText(status int) string {
	if t := http.StatusText(status); t != "" {
		return t
	}

	return "Unknown"
}

func connectionHeader(keepAlive bool) string {
	if keepAlive {
		return "keep-alive"
	}

	return "close"
}

// WriteResponse sends a full status line, headers, and (if sendBody) body:
// Content-Length matches len(body), Date is a GMT HTTP-date, and
// Connection is always present.
func WriteResponse(w io.Writer, status int, contentType string, body []byte, sendBody bool, keepAlive bool) error {
	header := fmt.Sprintf(
		"HTTP/1.1 %d %s\r\n"+
			"Date: %s\r\n"+
			"Content-Type: %s\r\n"+
			"Content-Length: %d\r\n"+
			"Server: concurrent-httpd\r\n"+
			"Connection: %s\r\n"+
			"\r\n",
		status, StatusText(status),
		time.Now().UTC().Format(http.TimeFormat),
		contentType, len(body),
		connectionHeader(keepAlive),
	)

	if _, err := io.WriteString(w, header); err != nil {
		return fmt.Errorf("httpproto: write header: %w", err)
	}

	if sendBody && len(body) > 0 {
		if _, err := w.Write(body); err != nil {
			return fmt.Errorf("httpproto: write body: %w", err)
		}
	}

	return nil
}

// WritePartialResponse sends a 206 Partial Content response for a single
// byte range.
func WritePartialResponse(w io.Writer, contentType string, body []byte, start, end, total int64, keepAlive bool) error {
	header := fmt.Sprintf(
		"HTTP/1.1 206 Partial Content\r\n"+
			"Date: %s\r\n"+
			"Content-Type: %s\r\n"+
			"Content-Length: %d\r\n"+
			"Content-Range: bytes %d-%d/%d\r\n"+
			"Server: concurrent-httpd\r\n"+
			"Connection: %s\r\n"+
			"\r\n",
		time.Now().UTC().Format(http.TimeFormat),
		contentType, len(body), start, end, total,
		connectionHeader(keepAlive),
	)

	if _, err := io.WriteString(w, header); err != nil {
		return fmt.Errorf("httpproto: write partial header: %w", err)
	}

	if _, err := w.Write(body); err != nil {
		return fmt.Errorf("httpproto: write partial body: %w", err)
	}

	return nil
}

// WriteUnsatisfiableRange sends a 416 response carrying the resource's
// total size.
func WriteUnsatisfiableRange(w io.Writer, total int64, keepAlive bool) error {
	header := fmt.Sprintf(
		"HTTP/1.1 416 Range Not Satisfiable\r\n"+
			"Date: %s\r\n"+
			"Content-Range: bytes */%d\r\n"+
			"Content-Length: 0\r\n"+
			"Server: concurrent-httpd\r\n"+
			"Connection: %s\r\n"+
			"\r\n",
		time.Now().UTC().Format(http.TimeFormat), total,
		connectionHeader(keepAlive),
	)

	_, err := io.WriteString(w, header)
	return err
}

// WriteError sends a minimal HTML error page for a 4xx/5xx status.
func WriteError(w io.Writer, status int, keepAlive bool) error {
	msg := StatusText(status)
	body := []byte(fmt.Sprintf("<html><head><title>%d %s</title></head>"+
		"<body><center><h1>%d %s</h1></center></body></html>\n", status, msg, status, msg))

	return WriteResponse(w, status, "text/html", body, true, keepAlive)
}
