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

package shmem_test

import (
	"os"
	"path/filepath"

	"github.com/nabbar/concurrent-httpd/shmem"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Region", func() {
	var dir string

	BeforeEach(func() {
		var err error
		dir, err = os.MkdirTemp("", "shmem-region-*")
		Expect(err).ToNot(HaveOccurred())
	})

	AfterEach(func() {
		_ = os.RemoveAll(dir)
	})

	It("creates and truncates a new backing file to the requested size", func() {
		path := filepath.Join(dir, "region.shm")

		r, err := shmem.OpenRegion(path, 64)
		Expect(err).ToNot(HaveOccurred())
		defer r.Close()

		Expect(r.Bytes()).To(HaveLen(64))

		fi, err := os.Stat(path)
		Expect(err).ToNot(HaveOccurred())
		Expect(fi.Size()).To(Equal(int64(64)))
	})

	It("shares writes between two independently opened mappings of the same path", func() {
		path := filepath.Join(dir, "region.shm")

		a, err := shmem.OpenRegion(path, 16)
		Expect(err).ToNot(HaveOccurred())
		defer a.Close()

		b, err := shmem.OpenRegion(path, 16)
		Expect(err).ToNot(HaveOccurred())
		defer b.Close()

		copy(a.Bytes(), []byte("hello, worker!!!"))

		Expect(b.Bytes()).To(Equal([]byte("hello, worker!!!")))
	})

	It("leaves a larger pre-existing file mapped as-is", func() {
		path := filepath.Join(dir, "region.shm")
		Expect(os.WriteFile(path, make([]byte, 128), 0o666)).To(Succeed())

		r, err := shmem.OpenRegion(path, 64)
		Expect(err).ToNot(HaveOccurred())
		defer r.Close()

		fi, err := os.Stat(path)
		Expect(err).ToNot(HaveOccurred())
		Expect(fi.Size()).To(Equal(int64(128)))
	})

	It("Close is idempotent and safe to call twice", func() {
		path := filepath.Join(dir, "region.shm")

		r, err := shmem.OpenRegion(path, 8)
		Expect(err).ToNot(HaveOccurred())

		Expect(r.Close()).To(Succeed())
		Expect(r.Close()).To(Succeed())
	})

	It("Remove deletes the backing file", func() {
		path := filepath.Join(dir, "region.shm")

		r, err := shmem.OpenRegion(path, 8)
		Expect(err).ToNot(HaveOccurred())
		Expect(r.Close()).To(Succeed())

		Expect(shmem.Remove(path)).To(Succeed())
		_, statErr := os.Stat(path)
		Expect(os.IsNotExist(statErr)).To(BeTrue())
	})

	It("Remove is a no-op when the file is already gone", func() {
		Expect(shmem.Remove(filepath.Join(dir, "missing.shm"))).To(Succeed())
	})
})

var _ = Describe("Mutex", func() {
	var dir string

	BeforeEach(func() {
		var err error
		dir, err = os.MkdirTemp("", "shmem-mutex-*")
		Expect(err).ToNot(HaveOccurred())
	})

	AfterEach(func() {
		_ = os.RemoveAll(dir)
	})

	It("serializes access between two independently opened handles on the same path", func() {
		path := filepath.Join(dir, "region.lock")

		a, err := shmem.OpenMutex(path)
		Expect(err).ToNot(HaveOccurred())
		defer a.Close()

		b, err := shmem.OpenMutex(path)
		Expect(err).ToNot(HaveOccurred())
		defer b.Close()

		Expect(a.Lock()).To(Succeed())

		done := make(chan struct{})
		go func() {
			defer close(done)
			Expect(b.Lock()).To(Succeed())
			Expect(b.Unlock()).To(Succeed())
		}()

		Consistently(done, "100ms").ShouldNot(BeClosed())

		Expect(a.Unlock()).To(Succeed())
		Eventually(done, "1s").Should(BeClosed())
	})
})
