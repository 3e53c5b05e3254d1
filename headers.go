// Copyright 2026 Harald Albrecht.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package spaserver

import "net/http"

// Decorator sets one or more response headers. Decorators run before the
// wrapped handler gets to see the request, so their headers end up in every
// response, including error responses.
type Decorator func(http.Header)

// SetHeader returns a Decorator setting the specified header to value,
// replacing any existing values.
func SetHeader(name, value string) Decorator {
	return func(h http.Header) {
		h.Set(name, value)
	}
}

// PermissiveHeaders allow embedding the SPA into frames of any origin and
// cross-origin access from anywhere.
var PermissiveHeaders = []Decorator{
	SetHeader("X-Frame-Options", "ALLOWALL"),
	SetHeader("Access-Control-Allow-Origin", "*"),
}

// Decorate returns an http.Handler that applies the specified decorators in
// order to the response headers and then passes on to handler.
func Decorate(handler http.Handler, decorators ...Decorator) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hdr := w.Header()
		for _, decorate := range decorators {
			decorate(hdr)
		}
		handler.ServeHTTP(w, r)
	})
}

// WithPermissiveHeaders decorates handler with the PermissiveHeaders.
func WithPermissiveHeaders(handler http.Handler) http.Handler {
	return Decorate(handler, PermissiveHeaders...)
}
