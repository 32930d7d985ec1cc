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

package config

import (
	"bufio"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// parseKV is the line-oriented fallback reader, a direct port of
// config.c's loop: skip blank lines and '#' comments, split the first '='
// in each remaining line into a trimmed key/value pair.
func parseKV(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	out := make(map[string]string)

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := sc.Text()

		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}

		k, v, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}

		out[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}

	return out, sc.Err()
}

func load(path string) (Config, error) {
	cfg := Default()

	kv, err := parseKV(path)
	if err != nil {
		// Missing or unreadable file: proceed on defaults, matching
		// master.c's "Using defaults" fallback.
		return cfg, err
	}

	// viper carries the merged view for the duration of this call only;
	// it is not returned, and Config itself is filled directly below.
	v := viper.New()
	for key, val := range kv {
		v.SetDefault(key, val)
	}

	if s, ok := kv["PORT"]; ok {
		if n, e := strconv.Atoi(s); e == nil {
			cfg.Port = n
		}
	}
	if s, ok := kv["DOCUMENT_ROOT"]; ok && s != "" {
		cfg.DocumentRoot = s
	}
	if s, ok := kv["NUM_WORKERS"]; ok {
		if n, e := strconv.Atoi(s); e == nil {
			cfg.NumWorkers = n
		}
	}
	if s, ok := kv["THREADS_PER_WORKER"]; ok {
		if n, e := strconv.Atoi(s); e == nil {
			cfg.ThreadsPerWorker = n
		}
	}
	if s, ok := kv["MAX_QUEUE_SIZE"]; ok {
		if n, e := strconv.Atoi(s); e == nil {
			cfg.MaxQueueSize = n
		}
	}
	if s, ok := kv["LOG_FILE"]; ok && s != "" {
		cfg.LogFile = s
	}
	if s, ok := kv["CACHE_SIZE_MB"]; ok {
		if n, e := strconv.Atoi(s); e == nil {
			cfg.CacheSizeMB = n
		}
	}
	if s, ok := kv["TIMEOUT_SECONDS"]; ok {
		if n, e := strconv.Atoi(s); e == nil {
			cfg.TimeoutSeconds = n
		}
	}

	return cfg, nil
}
