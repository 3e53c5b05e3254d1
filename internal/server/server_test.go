// Copyright 2026 Harald Albrecht.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not
// use this file except in compliance with the License. You may obtain a copy
// of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS, WITHOUT
// WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the
// License for the specific language governing permissions and limitations
// under the License.

package server

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/thediveo/spaserver/internal/config"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	. "github.com/thediveo/success"
)

// startServer starts serving handler on an ephemeral port, returning the base
// URL, the log hook, and a function stopping the server and returning the
// result of Serve.
func startServer(handler http.Handler) (string, *test.Hook, func() error) {
	GinkgoHelper()
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	s := New(&config.Config{Port: 0}, handler, logger)
	Expect(s.Listen()).To(Succeed())
	Expect(s.Port()).NotTo(BeZero())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		defer GinkgoRecover()
		done <- s.Serve(ctx)
	}()
	stopped := false
	stop := func() error {
		if stopped {
			return nil
		}
		stopped = true
		cancel()
		var err error
		Eventually(done).WithTimeout(2 * ShutdownTimeout).Should(Receive(&err))
		return err
	}
	DeferCleanup(stop)
	return fmt.Sprintf("http://127.0.0.1:%d", s.Port()), hook, stop
}

var _ = Describe("server", func() {

	It("serves until cancelled, then shuts down gracefully", func() {
		url, hook, stop := startServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, "CANARY")
		}))
		resp := Successful(http.Get(url + "/dashboard"))
		body := Successful(io.ReadAll(resp.Body))
		_ = resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		Expect(string(body)).To(Equal("CANARY"))

		Expect(stop()).To(Succeed())
		Expect(hook.AllEntries()).To(ContainElement(
			HaveField("Message", MatchRegexp(`^Server running on port \d+$`))))
		Expect(http.Get(url)).Error().To(HaveOccurred())
	})

	It("logs exactly one line at info level", func() {
		_, hook, stop := startServer(http.NotFoundHandler())
		Expect(stop()).To(Succeed())
		infos := 0
		for _, entry := range hook.AllEntries() {
			if entry.Level <= logrus.InfoLevel {
				infos++
			}
		}
		Expect(infos).To(Equal(1))
	})

	It("fails to bind a port already in use", func() {
		taken := Successful(net.Listen("tcp4", "0.0.0.0:0"))
		DeferCleanup(taken.Close)
		port := taken.Addr().(*net.TCPAddr).Port

		s := New(&config.Config{Port: config.Port(port)}, http.NotFoundHandler(), nil)
		Expect(s.Listen()).To(MatchError(ContainSubstring(fmt.Sprintf("0.0.0.0:%d", port))))
		Expect(s.Port()).To(BeZero())
		Expect(s.Serve(context.Background())).To(HaveOccurred())
	})

	It("doesn't let a slow client block others", func() {
		release := make(chan struct{})
		url, _, _ := startServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/slow" {
				select {
				case <-release:
				case <-r.Context().Done():
				}
			}
			_, _ = io.WriteString(w, "done")
		}))
		DeferCleanup(func() { close(release) })

		go func() {
			defer GinkgoRecover()
			resp, err := http.Get(url + "/slow")
			if err == nil {
				_ = resp.Body.Close()
			}
		}()
		client := &http.Client{Timeout: 2 * time.Second}
		resp := Successful(client.Get(url + "/fast"))
		_ = resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
	})

	It("notices clients disconnecting mid-response", func() {
		gone := make(chan struct{})
		url, _, _ := startServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, "partial")
			w.(http.Flusher).Flush()
			<-r.Context().Done()
			close(gone)
		}))

		ctx, cancel := context.WithCancel(context.Background())
		req := Successful(http.NewRequestWithContext(ctx, http.MethodGet, url+"/big", nil))
		resp := Successful(http.DefaultClient.Do(req))
		buf := make([]byte, len("partial"))
		Expect(io.ReadFull(resp.Body, buf)).To(Equal(len(buf)))
		cancel()
		_ = resp.Body.Close()
		Eventually(gone).WithTimeout(5 * time.Second).Should(BeClosed())
	})

})
