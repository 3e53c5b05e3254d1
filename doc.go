/*
Package spaserver serves "Single Page Applications" (SPAs), supporting
client-side DOM routing: regular files found in the SPA bundle are served as
they are, while any other request path gets the SPA's entry document
("index.html"), so that the client-side router can take over.

The SPAHandler type implements http.Handler to serve the SPA and its static
resources. The SPAHandler fetches these resources from any resource provider
implementing the fs.FS interface. This design even allows to seamlessly embed an
SPA into a Go binary.

Decorate and WithPermissiveHeaders wrap handlers so that every response carries
a fixed set of headers, such as allowing the SPA to be embedded in frames and
accessed cross-origin.

The spaserver command in cmd/spaserver serves the "build" directory next to its
executable on the port given in the PORT environment variable.
*/
package spaserver
