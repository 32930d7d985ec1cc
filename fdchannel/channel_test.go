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

package fdchannel_test

import (
	"os"

	"github.com/nabbar/concurrent-httpd/fdchannel"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Channel", func() {
	var master, worker fdchannel.Channel

	BeforeEach(func() {
		var err error
		master, worker, err = fdchannel.New()
		Expect(err).ToNot(HaveOccurred())
	})

	AfterEach(func() {
		_ = master.Close()
		_ = worker.Close()
	})

	It("exposes a positive fd for each endpoint", func() {
		Expect(master.Fd()).To(BeNumerically(">=", 0))
		Expect(worker.Fd()).To(BeNumerically(">=", 0))
		Expect(master.Fd()).ToNot(Equal(worker.Fd()))
	})

	It("transfers a descriptor from master to worker", func() {
		tmp, err := os.CreateTemp("", "fdchannel-*")
		Expect(err).ToNot(HaveOccurred())
		defer os.Remove(tmp.Name())
		defer tmp.Close()

		_, err = tmp.WriteString("payload")
		Expect(err).ToNot(HaveOccurred())

		Expect(master.SendFD(int(tmp.Fd()))).To(Succeed())

		recvFd, err := worker.RecvFD()
		Expect(err).ToNot(HaveOccurred())
		Expect(recvFd).To(BeNumerically(">=", 0))

		recvFile := os.NewFile(uintptr(recvFd), "received")
		defer recvFile.Close()

		buf := make([]byte, 7)
		_, err = recvFile.ReadAt(buf, 0)
		Expect(err).ToNot(HaveOccurred())
		Expect(string(buf)).To(Equal("payload"))
	})

	It("FromFd reconstructs a usable endpoint from a raw fd", func() {
		wrapped := fdchannel.FromFd(worker.Fd())
		Expect(wrapped.Fd()).To(Equal(worker.Fd()))
	})

	It("transfers descriptors across multiple sends in order", func() {
		for i := 0; i < 3; i++ {
			tmp, err := os.CreateTemp("", "fdchannel-seq-*")
			Expect(err).ToNot(HaveOccurred())
			defer os.Remove(tmp.Name())

			Expect(master.SendFD(int(tmp.Fd()))).To(Succeed())
			Expect(tmp.Close()).To(Succeed())
		}

		for i := 0; i < 3; i++ {
			recvFd, err := worker.RecvFD()
			Expect(err).ToNot(HaveOccurred())
			Expect(recvFd).To(BeNumerically(">=", 0))
			_ = os.NewFile(uintptr(recvFd), "received").Close()
		}
	})

	It("Close is idempotent", func() {
		Expect(master.Close()).To(Succeed())
		Expect(master.Close()).To(Succeed())
	})
})
