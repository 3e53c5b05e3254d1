// Copyright 2022 Harald Albrecht.
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

import (
	"bytes"
	"errors"
	"io"
	"io/fs"
	"mime"
	"net/http"
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"
)

// ForwardedPrefixHeader, if present, specifies the prefix that need to be
// preprended to the request's URI path in order to learn the original path
// when hitting the path rewriting proxy.
const ForwardedPrefixHeader = "X-Forwarded-Prefix"

// ForwardedUriHeader, if present, specifies the original URI (or sometimes only
// the original URI path) of a request when hitting the first path rewriting
// proxy.
const ForwardedUriHeader = "X-Forwarded-Uri"

// DefaultIndex is the name of the entry document inside an SPA bundle.
const DefaultIndex = "index.html"

// fallbackContentType is used for static files with unknown extensions.
const fallbackContentType = "application/octet-stream"

// indexContentType is always used for the entry document, whatever its name.
const indexContentType = "text/html; charset=utf-8"

// baseRe matches the base element in index.html in order to allow us to
// dynamically rewrite the base the SPA is served from.
//
// Please note: "*?" instead of "*" ensures that our irregular expression
// doesn't get too greedy, gobbling much more than it should until the last(!)
// empty element.
var baseRe = regexp.MustCompile(`(<base href=").*?("\s*/>)`)

// SPAHandler implements an http.Handler that serves regular files found in its
// fs and the index (entry) document on all other request paths, so that
// client-side DOM routers get to handle them.
type SPAHandler struct {
	fs            fs.FS         // the FS to serve static resources from.
	index         string        // (unrooted) path and name of the index/SPA file inside fs.
	rewriteBase   bool          // rewrite <base href> from proxy headers?
	indexRewriter IndexRewriter // optional user function to rewrite the index/SPA file as necessary.
	log           logrus.FieldLogger
}

// NewSPAHandler returns a new HTTP handler serving static resources from the
// specified fs. It serves the index resource instead whenever no directly
// matching regular file can be found on the specified fs. The index resource
// should be specified as an unrooted, slash-separated path+name to be servable
// from the given fs; but NewSPAHandler will sanitize the index path anyway. An
// empty index defaults to "index.html".
//
// In order to serve the static resources from a directory on the OS file
// system without following symbolic links out of it, use an os.Root:
//
//	root, err := os.OpenRoot("/opt/data/myspa")
//	h := NewSPAHandler(root.FS(), "index.html")
func NewSPAHandler(fsys fs.FS, index string, opts ...SPAHandlerOption) *SPAHandler {
	if index == "" {
		index = DefaultIndex
	}
	h := &SPAHandler{
		fs:    fsys,
		index: path.Clean("/" + index)[1:],
		log:   logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// SPAHandlerOption sets optional properties at the time of creating an
// SPAHandler.
type SPAHandlerOption func(*SPAHandler)

// IndexRewriter rewrites (parts) of an index/SPA file contents to be delivered
// to a requesting client. It can be optionally activated using the
// WithIndexRewriter option when creating a new SPAHandler.
type IndexRewriter func(r *http.Request, index string) string

// WithIndexRewriter sets the specified IndexRewriter that gets called before
// delivering the index/SPA file contents to requesting clients, allowing for
// application-specific changes.
func WithIndexRewriter(rewriter IndexRewriter) SPAHandlerOption {
	return func(h *SPAHandler) {
		h.indexRewriter = rewriter
	}
}

// WithBaseRewriting enables rewriting the href of the index document's base
// element to the base path the SPA is served from, as derived from the
// X-Forwarded-Prefix and X-Forwarded-Uri proxy headers. Without this option
// the index document is served verbatim.
func WithBaseRewriting() SPAHandlerOption {
	return func(h *SPAHandler) {
		h.rewriteBase = true
	}
}

// WithLogger sets the logger used to report index documents that cannot be
// served. It defaults to logrus' standard logger.
func WithLogger(log logrus.FieldLogger) SPAHandlerOption {
	return func(h *SPAHandler) {
		if log != nil {
			h.log = log
		}
	}
}

// ServeHTTP either serves a regular file from the SPAHandler's fs or otherwise
// the index document. This behavior is required for SPAs with client-side DOM
// routers, as otherwise bookmarking (router) links or reloading an SPA with the
// current route other than "/" would fail. All request methods are treated the
// same.
func (h *SPAHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Get the absolute and also cleaned path to the requested resource in order
	// to prevent parent directory traversal outside the static assets
	// directory. Slapping "/" ensures that path.Clean does NOT to use the
	// current working dir for resolving the request path ... whichever current
	// working directory it might be at the moment is.
	r.URL.Path = path.Clean("/" + r.URL.Path)
	if h.serveStaticAsset(w, r) {
		return
	}
	h.serveIndex(w, r)
}

// serveIndex serves the index file, optionally rewriting its HTML base element
// to refer the correct base path of the SPA. A missing or unreadable index
// results in a 500.
func (h *SPAHandler) serveIndex(w http.ResponseWriter, r *http.Request) {
	var err error
	defer func() {
		if err != nil {
			h.log.WithFields(logrus.Fields{
				"action": "serve_index",
				"index":  h.index,
				"path":   r.URL.Path,
			}).WithError(err).Error("SPA entry document unavailable")
			IndexUnavailableError(w)
		}
	}()
	f, err := h.fs.Open(h.index)
	if err != nil {
		return
	}
	defer func() { _ = f.Close() }()
	fileInfo, err := f.Stat()
	if err != nil {
		return
	}
	if !fileInfo.Mode().IsRegular() {
		err = &fs.PathError{Op: "open", Path: h.index, Err: errors.New("not a regular file")}
		return
	}
	contents, err := io.ReadAll(f)
	if err != nil {
		return
	}
	index := string(contents)
	if h.rewriteBase {
		// Sanitize the base path so it cannot interfere with our regexp
		// replacement operations where we need to use "$1" and "$2" back
		// references. As this ain't VMS (shudder), we don't need "$" in SPA
		// paths anyway.
		base := strings.ReplaceAll(h.basename(r), "$", "")
		index = baseRe.ReplaceAllString(index, "${1}"+base+"${2}")
	}
	if h.indexRewriter != nil {
		index = h.indexRewriter(r, index)
	}
	w.Header().Set("Content-Type", indexContentType)
	http.ServeContent(w, r, path.Base(h.index), fileInfo.ModTime(), strings.NewReader(index))
}

// serveStaticAsset tries to serve a regular file specified in uripath from the
// SPAHandler's fs and returning true if successful. If no such file exists,
// nothing is served and false is returned instead. Permission problems are
// reported as a normalized error and count as served.
//
// IMPORTANT: the passed r.URL.Path must have already been sanitized.
func (h *SPAHandler) serveStaticAsset(w http.ResponseWriter, r *http.Request) bool {
	name := r.URL.Path[1:] // ...fs.FS uses unrooted paths.
	if name == "" {
		return false // hitting root is always a case for index.html
	}
	f, err := h.fs.Open(name)
	if err != nil {
		// Anything that isn't a permission problem is a miss: not existing,
		// invalid names, paths running through regular files, and symbolic
		// links trying to escape an os.Root.
		if errors.Is(err, fs.ErrPermission) {
			NormalizedHttpError(w, err)
			return true
		}
		return false
	}
	defer func() { _ = f.Close() }()
	info, err := f.Stat()
	if err != nil {
		NormalizedHttpError(w, err)
		return true
	}
	if !info.Mode().IsRegular() {
		return false // directories and specials are left to the SPA.
	}
	content, ok := f.(io.ReadSeeker)
	if !ok {
		// http.ServeContent needs to seek in order to serve ranges and to
		// determine the size; fall back to buffering for fs.FS implementations
		// that don't support seeking.
		b, err := io.ReadAll(f)
		if err != nil {
			NormalizedHttpError(w, err)
			return true
		}
		content = bytes.NewReader(b)
	}
	// Setting the content type upfront stops http.ServeContent from sniffing
	// contents of files with unknown extensions.
	w.Header().Set("Content-Type", contentType(name))
	http.ServeContent(w, r, info.Name(), info.ModTime(), content)
	return true
}

// contentType returns the MIME type for the specified file name based on its
// extension, or application/octet-stream if unknown.
func contentType(name string) string {
	if ctype := mime.TypeByExtension(path.Ext(name)); ctype != "" {
		return ctype
	}
	return fallbackContentType
}

// originalReqPath returns the (hopefully) original path when hitting the first
// proxy in a chain, based on what has been passed down to us. If no suitable
// forwarding information is present, the original -- and already sanitized --
// request URL path.
func (h *SPAHandler) originalReqPath(r *http.Request) string {
	// Was the request path rewritten? Then the original request path was the
	// forwarded prefix, followed by the remaining part we now see in the
	// request.
	if fwprefix := r.Header.Get(ForwardedPrefixHeader); fwprefix != "" {
		fwprefix = path.Clean("/" + fwprefix)
		return path.Join(fwprefix, r.URL.Path)
	}
	// Was the original HTTP request URL passed upon us? There seem to be
	// different interpretations with some proxy implementations only passing
	// the request path, but not the full original URI to us...
	if fwurl := r.Header.Get(ForwardedUriHeader); fwurl != "" {
		if strings.HasPrefix(fwurl, "/") {
			return path.Clean(fwurl)
		}
		if u, err := url.Parse(fwurl); err == nil {
			return path.Clean("/" + u.Path)
		}
	}
	return r.URL.Path
}

// basename returns the URI request path base based on the given request, by
// consulting proxy headers when available. Rewriting forwarding proxies need to
// preserve the original client-side request URI path for this to work; if
// deriving the base name is impossible, the base is taken to be "/" from the
// clients' perspective.
func (h *SPAHandler) basename(r *http.Request) string {
	reqPath := r.URL.Path
	originalReqPath := h.originalReqPath(r)
	var base string
	if strings.HasSuffix(reqPath, "/") && !strings.HasSuffix(originalReqPath, "/") {
		// take care of the situation where the reverse proxy redirects from
		// /foo to /foo/ and then rewrites the path to /.
		originalReqPath += "/"
	}
	// If the request path we see is a proper suffix of the original request
	// path, take only the common base part (~prefix).
	if strings.HasSuffix(originalReqPath, reqPath) {
		base = originalReqPath[:len(originalReqPath)-len(reqPath)]
	}
	// Browsers apply dirname() to a base without trailing "/", clipping off
	// the final element.
	if strings.HasSuffix(base, "/") {
		return base
	}
	return base + "/"
}
