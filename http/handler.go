package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	pagehandler "github.com/sjaconsulting/static-page-handler"
)

// allowedMethods is the Allow header value advertised on 405 responses.
const allowedMethods = "PUT, GET, DELETE"

type Service interface {
	Get(ctx context.Context, key string) (pagehandler.ObjectInfo, io.ReadSeekCloser, error)
	Put(ctx context.Context, key string, headers pagehandler.ObjectHeaders, content io.Reader) (pagehandler.ObjectInfo, error)
	Delete(ctx context.Context, key string) error
}

type CORSConfig struct {
	Enabled          bool     `mapstructure:"enabled"`
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	ExposedHeaders   []string `mapstructure:"exposed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

type HandlerConfig struct {
	Routes pagehandler.RouteTable
	Reads  pagehandler.AllowList
	Auth   AuthConfig
	CORS   CORSConfig
}

// Handler resolves requests against the route table, authorizes them per
// method, and dispatches to the object service.
type Handler struct {
	config  HandlerConfig
	service Service
}

// NewHandler creates a new Handler with the given configuration and service.
func NewHandler(config *HandlerConfig, service Service) *Handler {
	return &Handler{
		config:  *config,
		service: service,
	}
}

// Router returns an http.Handler serving every hostname in the route table.
// A single catch-all route is registered for all methods; the per-request
// decision sequence lives in handle.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	if h.config.CORS.Enabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   h.config.CORS.AllowedOrigins,
			AllowedMethods:   h.config.CORS.AllowedMethods,
			AllowedHeaders:   h.config.CORS.AllowedHeaders,
			ExposedHeaders:   h.config.CORS.ExposedHeaders,
			AllowCredentials: h.config.CORS.AllowCredentials,
			MaxAge:           h.config.CORS.MaxAge,
		}))
	}

	r.Handle("/*", http.HandlerFunc(h.handle))

	return r
}

// handle applies the decision sequence in a fixed order:
//
//  1. Resolution: (hostname, path) must map to a storage key. An unmapped
//     pair is a 404 before anything else, for every method, so unmapped
//     paths never leak whether a method would have needed credentials.
//  2. Method guard: methods outside {GET, PUT, DELETE} get a 405 with an
//     Allow header. Validated once, here, not again at dispatch.
//  3. Authorization: PUT and DELETE require the shared-secret header; GET
//     requires the request path (not the resolved key) to be allow-listed.
//  4. Dispatch on the resolved key.
func (h *Handler) handle(w http.ResponseWriter, r *http.Request) {
	host := requestHost(r)
	path := r.URL.Path

	key, ok := h.config.Routes.Resolve(host, path)
	if !ok {
		writeText(w, http.StatusNotFound, "Not Found")
		return
	}

	switch r.Method {
	case http.MethodGet, http.MethodPut, http.MethodDelete:
	default:
		w.Header().Set("Allow", allowedMethods)
		writeText(w, http.StatusMethodNotAllowed, "Method Not Allowed")
		return
	}

	if !h.authorized(r, path) {
		writeText(w, http.StatusForbidden, "Forbidden")
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.handleGet(w, r, key)
	case http.MethodPut:
		h.handlePut(w, r, key)
	case http.MethodDelete:
		h.handleDelete(w, r, key)
	}
}

// authorized applies the per-method access rule. GET keys on the request
// path as received, never the resolved storage key.
func (h *Handler) authorized(r *http.Request, path string) bool {
	switch r.Method {
	case http.MethodPut, http.MethodDelete:
		return h.config.Auth.Matches(r.Header)
	case http.MethodGet:
		return h.config.Reads.Contains(path)
	default:
		return false
	}
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request, key string) {
	obj, content, err := h.service.Get(r.Context(), key)
	if err != nil {
		if errors.Is(err, pagehandler.ErrNotFound) {
			writeText(w, http.StatusNotFound, "Object Not Found")
		} else {
			handleError(w, err)
		}
		return
	}
	defer func() { _ = content.Close() }()

	w.Header().Set("ETag", `"`+obj.Etag+`"`)
	w.Header().Set("Content-Type", obj.ContentType)
	if obj.CacheControl != "" {
		w.Header().Set("Cache-Control", obj.CacheControl)
	}

	http.ServeContent(w, r, "", obj.UpdatedAt, content)
}

func (h *Handler) handlePut(w http.ResponseWriter, r *http.Request, key string) {
	headers := pagehandler.ObjectHeaders{
		ContentType:  r.Header.Get("Content-Type"),
		CacheControl: r.Header.Get("Cache-Control"),
	}

	_, err := h.service.Put(r.Context(), key, headers, r.Body)
	if err != nil {
		handleError(w, err)
		return
	}

	writeText(w, http.StatusCreated, fmt.Sprintf("Put %s successfully!", key))
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request, key string) {
	if err := h.service.Delete(r.Context(), key); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// requestHost returns the request hostname without any port.
func requestHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.Host)
	if err != nil {
		// No port present.
		return r.Host
	}
	return host
}
