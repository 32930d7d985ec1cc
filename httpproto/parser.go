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
	"bufio"
	"fmt"
	"strconv"
	"strings"
)

// ReadRequest reads from r until the blank line terminating the header
// block (failing once the lines read exceed MaxRequestSize) and splits it
// into a Request.
// Grounded on the original parse_http_request's sscanf("%s %s %s", ...)
// three-token split of the request line, extended with a header map
// (the original never parsed headers beyond locating "\r\n").
func ReadRequest(r *bufio.Reader) (*Request, error) {
	line, err := readLine(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	fields := strings.Fields(line)
	if len(fields) != 3 {
		return nil, ErrMalformed
	}

	req := &Request{
		Method:  fields[0],
		Path:    fields[1],
		Version: fields[2],
		Headers: make(map[string]string),
	}

	total := len(line)

	for {
		hline, err := readLine(r)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}

		total += len(hline)
		if total > MaxRequestSize {
			return nil, ErrMalformed
		}

		if hline == "" {
			break
		}

		k, v, ok := strings.Cut(hline, ":")
		if !ok {
			continue
		}

		req.Headers[strings.ToLower(strings.TrimSpace(k))] = strings.TrimSpace(v)
	}

	req.Range = req.Headers["range"]

	return req, nil
}

func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil {
		return "", err
	}

	return strings.TrimRight(line, "\r\n"), nil
}

// ParseRange decodes a single "bytes=S-E" range header against a known
// resource size. Only a single range is supported.
func ParseRange(header string, size int64) RangeSpec {
	if header == "" {
		return RangeSpec{OK: false}
	}

	const prefix = "bytes="
	if !strings.HasPrefix(header, prefix) {
		return RangeSpec{OK: true, Satisfiable: false, Total: size}
	}

	spec := strings.TrimPrefix(header, prefix)
	spec = strings.Split(spec, ",")[0] // single range only

	parts := strings.SplitN(spec, "-", 2)
	if len(parts) != 2 {
		return RangeSpec{OK: true, Satisfiable: false, Total: size}
	}

	var start, end int64
	var err error

	switch {
	case parts[0] == "" && parts[1] != "":
		// suffix range: last N bytes
		n, e := strconv.ParseInt(parts[1], 10, 64)
		if e != nil || n <= 0 {
			return RangeSpec{OK: true, Satisfiable: false, Total: size}
		}
		start = size - n
		if start < 0 {
			start = 0
		}
		end = size - 1

	case parts[1] == "":
		start, err = strconv.ParseInt(parts[0], 10, 64)
		if err != nil {
			return RangeSpec{OK: true, Satisfiable: false, Total: size}
		}
		end = size - 1

	default:
		start, err = strconv.ParseInt(parts[0], 10, 64)
		if err != nil {
			return RangeSpec{OK: true, Satisfiable: false, Total: size}
		}
		end, err = strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			return RangeSpec{OK: true, Satisfiable: false, Total: size}
		}
	}

	if start < 0 || end < start || start >= size {
		return RangeSpec{OK: true, Satisfiable: false, Total: size}
	}

	if end >= size {
		end = size - 1
	}

	return RangeSpec{Start: start, End: end, Total: size, OK: true, Satisfiable: true}
}

// HasParentTraversal reports whether path contains a ".." path segment
// (HTTP 403).
func HasParentTraversal(path string) bool {
	for _, seg := range strings.Split(path, "/") {
		if seg == ".." {
			return true
		}
	}

	return false
}
