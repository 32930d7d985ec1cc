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

package logger

import (
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

type logger struct {
	e *logrus.Entry
}

// defaultFormatter sets the field choices used across every process
// (quoted fields, RFC3339 timestamps, no timestamp duplication).
func defaultFormatter() *logrus.TextFormatter {
	return &logrus.TextFormatter{
		ForceQuote:       true,
		QuoteEmptyFields: true,
		FullTimestamp:    true,
		TimestampFormat:  time.RFC3339,
		DisableSorting:   false,
	}
}

func parseLevel(level string) logrus.Level {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return logrus.InfoLevel
	}

	return lvl
}

func newLogger(level string) Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(defaultFormatter())
	l.SetLevel(parseLevel(level))

	return &logger{e: logrus.NewEntry(l)}
}

func (l *logger) Debug(args ...interface{}) { l.e.Debug(args...) }
func (l *logger) Info(args ...interface{})  { l.e.Info(args...) }
func (l *logger) Warn(args ...interface{})  { l.e.Warn(args...) }
func (l *logger) Error(args ...interface{}) { l.e.Error(args...) }
func (l *logger) Fatal(args ...interface{}) { l.e.Fatal(args...) }

func (l *logger) WithField(key string, value interface{}) Logger {
	return &logger{e: l.e.WithField(key, value)}
}

func (l *logger) WithError(err error) Logger {
	return &logger{e: l.e.WithError(err)}
}
