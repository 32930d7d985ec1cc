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

// Package httpproto is the request-line/header parser, the response byte
// formatter, MIME lookup, and range handling. None of it is core
// concurrency machinery — it is kept as small, dependency-free plumbing
// the worker's handler calls into.
package httpproto

import "errors"

// MaxRequestSize bounds the combined length of the request line and header
// lines; the check runs after each whole line has been read.
const MaxRequestSize = 64 * 1024

// ErrMalformed is returned when the request line or headers cannot be
// parsed at all (HTTP 400).
var ErrMalformed = errors.New("httpproto: malformed request")

// Request is the parsed first line plus headers of one HTTP/1.1 request.
type Request struct {
	Method  string
	Path    string
	Version string
	Range   string // raw Range header value, empty if absent
	Headers map[string]string
}

// RangeSpec is a single decoded byte range against a known resource size.
type RangeSpec struct {
	Start, End int64 // inclusive, 0-based
	Total      int64
	OK         bool // false: no Range header present
	Satisfiable bool
}
