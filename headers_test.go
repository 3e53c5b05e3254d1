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

package spaserver

import (
	"net/http"

	"github.com/thediveo/spaserver/test/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	. "github.com/thediveo/success"
)

var _ = Describe("response decoration", func() {

	It("applies decorators in order before the handler", func() {
		var seen []string
		h := Decorate(
			http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = append(seen, w.Header().Values("X-Order")...)
				w.WriteHeader(http.StatusNoContent)
			}),
			func(h http.Header) { h.Add("X-Order", "first") },
			func(h http.Header) { h.Add("X-Order", "second") },
		)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, Successful(http.NewRequest(http.MethodGet, "/", nil)))
		Expect(seen).To(Equal([]string{"first", "second"}))
		Expect(w.Code).To(Equal(http.StatusNoContent))
	})

	It("replaces existing header values", func() {
		hdr := http.Header{}
		hdr.Add("X-Frame-Options", "DENY")
		SetHeader("X-Frame-Options", "ALLOWALL")(hdr)
		Expect(hdr.Values("X-Frame-Options")).To(ConsistOf("ALLOWALL"))
	})

	DescribeTable("sets the permissive headers exactly once on any response",
		func(handler http.HandlerFunc) {
			w := httptest.NewRecorder()
			WithPermissiveHeaders(handler).ServeHTTP(w,
				Successful(http.NewRequest(http.MethodGet, "/", nil)))
			Expect(w.SentHeader().Values("X-Frame-Options")).To(ConsistOf("ALLOWALL"))
			Expect(w.SentHeader().Values("Access-Control-Allow-Origin")).To(ConsistOf("*"))
		},
		Entry("success", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("ok"))
		}),
		Entry("error", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "D'oh!", http.StatusInternalServerError)
		}),
		Entry("normalized error", func(w http.ResponseWriter, r *http.Request) {
			NormalizedHttpError(w, http.ErrMissingFile)
		}),
	)

})
