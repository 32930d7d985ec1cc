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

// Package config loads the server.conf file: a line-oriented KEY=VALUE
// format with '#' comments. github.com/spf13/viper backs the loader for
// every settings surface; viper's "properties" codec won't accept a bare
// extensionless file with '#' comments, so a small line-oriented fallback
// parser (equivalent to a sscanf("%127[^=]=%255s", ...) loop) reads the
// file and its values are fed into a *viper.Viper as defaults. That viper
// instance is not returned: callers receive only the typed Config, which
// is filled directly from the parsed key/value pairs.
package config

import "time"

// Config is the typed, defaulted view of the recognized keys.
type Config struct {
	Port              int
	DocumentRoot      string
	NumWorkers        int
	ThreadsPerWorker  int
	MaxQueueSize      int
	LogFile           string
	CacheSizeMB       int
	TimeoutSeconds    int // parsed but never applied as a deadline
	RuntimeDir        string
}

// PerWorkerCacheBytes divides CacheSizeMB across NumWorkers, clamped to a
// 1 MiB floor.
func (c Config) PerWorkerCacheBytes() int64 {
	total := int64(c.CacheSizeMB) * 1024 * 1024
	n := int64(c.NumWorkers)
	if n <= 0 {
		n = 1
	}

	per := total / n
	if per < 1024*1024 {
		per = 1024 * 1024
	}

	return per
}

// Timeout returns TimeoutSeconds as a time.Duration for the sake of
// whoever logs it; the core never uses it as a deadline.
func (c Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Default returns the baseline values used when the config file is
// missing or fails to parse.
func Default() Config {
	return Config{
		Port:             8080,
		DocumentRoot:     "www",
		NumWorkers:       2,
		ThreadsPerWorker: 10,
		MaxQueueSize:     100,
		LogFile:          "logs/access.log",
		CacheSizeMB:      64,
		TimeoutSeconds:   30,
		RuntimeDir:       "/tmp/concurrent-httpd",
	}
}

// Load reads path, falling back to Default() values for any key absent or
// unparsable. A missing or unreadable file still yields Default(); the
// open error is returned alongside it for the caller to log.
func Load(path string) (Config, error) {
	return load(path)
}
