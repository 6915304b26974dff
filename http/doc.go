// Package http serves a catalog over HTTP and provides a client for it.
//
// Routes:
//
//	GET /catalog           JSON listing of every source directory
//	GET /containers/{key}  the built container for key
//
// HEAD and Range requests are supported on containers. Fixed containers
// carry their estimated size in the X-Expected-Size header; a container is
// never larger than that value unless its source changed after discovery.
package http
