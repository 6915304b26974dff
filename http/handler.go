package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	nethttp "net/http"
	"slices"
	"time"

	"golang.org/x/time/rate"

	"github.com/meigma/nus3free/catalog"
)

// Handler serves a catalog and the containers built from it.
type Handler struct {
	catalog  *catalog.Catalog
	resolver *catalog.Resolver
	logger   *slog.Logger
	limiter  *rate.Limiter // nil = unlimited
	mux      *nethttp.ServeMux
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// HandlerWithLogger sets the logger for request failures.
func HandlerWithLogger(logger *slog.Logger) HandlerOption {
	return func(h *Handler) {
		h.logger = logger
	}
}

// HandlerWithRateLimit limits container builds to r per second with bursts
// of up to burst. Requests over the limit get 429 Too Many Requests. The
// catalog listing is never limited.
func HandlerWithRateLimit(r rate.Limit, burst int) HandlerOption {
	return func(h *Handler) {
		h.limiter = rate.NewLimiter(r, burst)
	}
}

// NewHandler creates a Handler. resolver must read from cat.
func NewHandler(cat *catalog.Catalog, resolver *catalog.Resolver, opts ...HandlerOption) *Handler {
	h := &Handler{
		catalog:  cat,
		resolver: resolver,
		mux:      nethttp.NewServeMux(),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.mux.HandleFunc("GET /catalog", h.serveCatalog)
	h.mux.HandleFunc("GET /containers/{key}", h.serveContainer)
	return h
}

func (h *Handler) log() *slog.Logger {
	if h.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return h.logger
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w nethttp.ResponseWriter, r *nethttp.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *Handler) serveCatalog(w nethttp.ResponseWriter, _ *nethttp.Request) {
	dirs := slices.Collect(h.catalog.Directories())
	infos := make([]DirectoryInfo, len(dirs))
	for i, d := range dirs {
		infos[i] = newDirectoryInfo(d)
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(infos); err != nil {
		h.log().Warn("write catalog response failed", "error", err)
	}
}

func (h *Handler) serveContainer(w nethttp.ResponseWriter, r *nethttp.Request) {
	key, err := catalog.ParseKey(r.PathValue("key"))
	if err != nil {
		nethttp.Error(w, err.Error(), nethttp.StatusBadRequest)
		return
	}
	dir, ok := h.catalog.Lookup(key)
	if !ok {
		nethttp.Error(w, "unknown container key", nethttp.StatusNotFound)
		return
	}

	if h.limiter != nil && !h.limiter.Allow() {
		w.Header().Set("Retry-After", "1")
		nethttp.Error(w, "container build rate exceeded", nethttp.StatusTooManyRequests)
		return
	}

	data, err := h.resolver.Fetch(r.Context(), key)
	if err != nil {
		status := nethttp.StatusInternalServerError
		switch {
		case errors.Is(err, catalog.ErrNotFound):
			status = nethttp.StatusNotFound
		case errors.Is(err, catalog.ErrPayloadRead):
			status = nethttp.StatusBadGateway
		}
		h.log().Error("container fetch failed", "key", key, "path", dir.LogicalPath, "status", status, "error", err)
		nethttp.Error(w, nethttp.StatusText(status), status)
		return
	}

	hdr := w.Header()
	hdr.Set("Content-Type", "application/octet-stream")
	hdr.Set("ETag", `"`+dir.Fingerprint().Encoded()+`"`)
	hdr.Set(HeaderMode, dir.Mode.String())
	hdr.Set(HeaderLogicalPath, dir.LogicalPath)
	if dir.Mode == catalog.ModeFixed {
		hdr.Set(HeaderExpectedSize, formatSize(dir.EstimatedSize()))
	}
	nethttp.ServeContent(w, r, "", time.Time{}, bytes.NewReader(data))
}
