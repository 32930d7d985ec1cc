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

// Package logger wraps github.com/sirupsen/logrus into the per-process
// diagnostics logger the master and each worker use for everything that
// is not an access-log line (bind errors, startup failures, worker exit
// notices). It is a deliberately small slice of a fuller logging
// package — one process-local *logrus.Logger plus the fields
// defaultFormatter configures — rather than a full context/hook/syslog
// surface, since the only log destinations here are stderr (diagnostics)
// and the accesslog package (access lines).
package logger

import "github.com/sirupsen/logrus"

// Logger is the process diagnostics logger.
type Logger interface {
	Debug(args ...interface{})
	Info(args ...interface{})
	Warn(args ...interface{})
	Error(args ...interface{})
	Fatal(args ...interface{})

	WithField(key string, value interface{}) Logger
	WithError(err error) Logger
}

// New builds a Logger writing to stderr at the given level ("debug",
// "info", "warn", "error"; anything else defaults to "info").
func New(level string) Logger {
	return newLogger(level)
}
