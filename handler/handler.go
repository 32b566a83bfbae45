// Package handler provides the HTTP handlers for the sneakers store.
package handler

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/stevemurr/sneakers-server/store"
)

// Prefix is the URI prefix every store route lives under.
const Prefix = "/sneakers"

// Mutable is the set of collections clients may append to and remove from.
// The items catalog is read-only.
var Mutable = []string{"favorites", "orders", "cart"}

// Collections is the set of operations the handler dispatches to.
type Collections interface {
	List(name string) (store.Collection, bool, error)
	All() (store.Document, error)
	Append(name string, item store.Item) (store.Collection, error)
	Remove(name, id string) (store.Collection, error)
}

// Handler holds the server dependencies and registers routes.
type Handler struct {
	svc          Collections
	mux          *http.ServeMux
	chain        http.Handler
	logger       *log.Entry
	metrics      *Metrics
	maxBodyBytes int64
	origins      []string
}

// Option configures a Handler.
type Option func(*Handler)

func WithLogger(logger *log.Entry) Option {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithMetrics records request counts and latencies into m.
func WithMetrics(m *Metrics) Option {
	return func(h *Handler) { h.metrics = m }
}

// WithMaxBodyBytes caps POST bodies. Zero or less means unlimited.
func WithMaxBodyBytes(n int64) Option {
	return func(h *Handler) { h.maxBodyBytes = n }
}

// WithAllowedOrigins restricts Access-Control-Allow-Origin. The default
// is "*".
func WithAllowedOrigins(origins []string) Option {
	return func(h *Handler) {
		if len(origins) > 0 {
			h.origins = origins
		}
	}
}

// New creates a Handler and wires up all routes.
func New(svc Collections, opts ...Option) *Handler {
	h := &Handler{
		svc:     svc,
		mux:     http.NewServeMux(),
		logger:  log.WithField("component", "handler"),
		origins: []string{"*"},
	}
	for _, opt := range opts {
		opt(h)
	}
	h.routes()

	var next http.Handler = corsMiddleware(h.mux, h.origins)
	next = h.instrument(next)
	h.chain = requestIDMiddleware(next)
	return h
}

// ServeHTTP makes Handler an http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.chain.ServeHTTP(w, r)
}

func (h *Handler) routes() {
	// Outside the prefix everything is 404; inside it, anything the table
	// below does not name answers null.
	h.mux.HandleFunc("/", h.notFound)
	h.mux.HandleFunc(Prefix, h.unhandled)
	h.mux.HandleFunc(Prefix+"/", h.unhandled)

	// Catalog
	h.mux.HandleFunc("GET "+Prefix, h.listAll)
	h.mux.HandleFunc("GET "+Prefix+"/items", h.listAll)

	// Mutable collections. The {id} segment is ignored by GET and POST; a
	// trailing slash is an empty id.
	for _, name := range Mutable {
		base := Prefix + "/" + name
		for _, path := range []string{base, base + "/{$}", base + "/{id}"} {
			h.mux.HandleFunc("GET "+path, h.list(name))
			h.mux.HandleFunc("POST "+path, h.appendItem(name))
			h.mux.HandleFunc("DELETE "+path, h.removeItem(name))
		}
	}
}

// notFound answers paths the table cannot place. Anything that still starts
// with the prefix, such as /sneakersx, is unhandled rather than missing.
func (h *Handler) notFound(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, Prefix) {
		h.unhandled(w, r)
		return
	}
	h.respond(w, r, NotFound(msgNotFound))
}

func (h *Handler) unhandled(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, OK(nil))
}

func (h *Handler) listAll(w http.ResponseWriter, r *http.Request) {
	doc, err := h.svc.All()
	h.respond(w, r, resultOf(doc, err))
}

func (h *Handler) list(collection string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, ok, err := h.svc.List(collection)
		if err == nil && !ok {
			h.respond(w, r, OK(nil))
			return
		}
		h.respond(w, r, resultOf(c, err))
	}
}

func (h *Handler) appendItem(collection string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		item, err := h.readItem(r)
		if err != nil {
			h.respond(w, r, Internal(err))
			return
		}
		c, err := h.svc.Append(collection, item)
		h.respond(w, r, resultOf(c, err))
	}
}

func (h *Handler) removeItem(collection string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		if id == "" && !strings.HasSuffix(r.URL.Path, "/") {
			// No id segment at all is not a number and never matches. An
			// empty segment coerces to 0.
			id = "NaN"
		}
		c, err := h.svc.Remove(collection, id)
		h.respond(w, r, resultOf(c, err))
	}
}

// readItem buffers the whole request body and parses it as one JSON value.
func (h *Handler) readItem(r *http.Request) (store.Item, error) {
	defer r.Body.Close()
	var body io.Reader = r.Body
	if h.maxBodyBytes > 0 {
		body = io.LimitReader(r.Body, h.maxBodyBytes+1)
	}
	b, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if h.maxBodyBytes > 0 && int64(len(b)) > h.maxBodyBytes {
		return nil, fmt.Errorf("read body: exceeds %d bytes", h.maxBodyBytes)
	}
	return store.ParseItem(b)
}
