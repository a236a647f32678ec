// Package proxy implements the transport boundary between roster clients
// and the upstream person service. It exposes four stateless routes that
// forward list, create, update, and delete to a fixed upstream base URL,
// passing JSON bodies and status codes through with light reshaping.
package proxy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang/glog"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mesh-intelligence/roster/pkg/types"
)

// Route names, used in metrics and logs.
const (
	RouteList   = "list"
	RouteCreate = "create"
	RouteUpdate = "update"
	RouteDelete = "delete"
)

// DefaultPrefix is where the four routes are mounted.
const DefaultPrefix = "/api"

// Options configures a Proxy.
type Options struct {
	// UpstreamURL is the base of the person service, e.g.
	// http://192.168.0.139/PersonsAPI/api/person.
	UpstreamURL string

	// Prefix is the mount point of the proxy routes. Defaults to DefaultPrefix.
	Prefix string

	// HTTPClient is used for upstream calls. Defaults to a client with a 30s timeout.
	HTTPClient *http.Client

	// Registry receives the proxy metrics and backs /metrics. Defaults to a
	// fresh registry.
	Registry *prometheus.Registry
}

// Proxy forwards requests to the upstream person service.
type Proxy struct {
	base     *url.URL
	prefix   string
	client   *http.Client
	registry *prometheus.Registry
	metrics  *metrics
}

// New validates opts and builds a Proxy.
func New(opts Options) (*Proxy, error) {
	base, err := url.Parse(strings.TrimSuffix(opts.UpstreamURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("upstream url %q: %w", opts.UpstreamURL, types.ErrURLInvalid)
	}
	p := &Proxy{
		base:     base,
		prefix:   opts.Prefix,
		client:   opts.HTTPClient,
		registry: opts.Registry,
	}
	if p.prefix == "" {
		p.prefix = DefaultPrefix
	}
	if p.client == nil {
		p.client = &http.Client{Timeout: 30 * time.Second}
	}
	if p.registry == nil {
		p.registry = prometheus.NewRegistry()
	}
	p.metrics = newMetrics(p.registry)
	return p, nil
}

// Router returns the HTTP handler exposing the proxy routes, /metrics, and
// /health.
func (p *Proxy) Router() *mux.Router {
	r := mux.NewRouter()
	s := r.PathPrefix(p.prefix).Subrouter()
	s.Handle("/list", p.wrap(RouteList, p.handleList)).Methods(http.MethodGet)
	s.Handle("/create", p.wrap(RouteCreate, p.handleCreate)).Methods(http.MethodPost)
	s.Handle("/update", p.wrap(RouteUpdate, p.handleUpdate)).Methods(http.MethodPut)
	s.Handle("/delete", p.wrap(RouteDelete, p.handleDelete)).Methods(http.MethodDelete)
	r.Handle("/metrics", promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, "OK")
	}).Methods(http.MethodGet)
	return r
}

// handlerFunc is a route body. A returned error becomes a ProxyError and a
// bare 500.
type handlerFunc func(w http.ResponseWriter, r *http.Request) error

// wrap adds panic recovery, error mapping, logging, and metrics.
func (p *Proxy) wrap(route string, h handlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		defer func() {
			if rec := recover(); rec != nil {
				p.internalError(sw, &types.ProxyError{Route: route, Cause: fmt.Errorf("panic: %v", rec)})
			}
			p.metrics.observe(route, sw.status)
			glog.V(1).Infof("proxy %s %s -> %d (%s)", r.Method, route, sw.status, time.Since(start))
		}()
		if err := h(sw, r); err != nil {
			p.internalError(sw, &types.ProxyError{Route: route, Cause: err})
		}
	})
}

func (p *Proxy) internalError(w *statusWriter, err *types.ProxyError) {
	glog.Errorf("%v", err)
	if w.wrote {
		return
	}
	writeText(w, http.StatusInternalServerError, types.MsgInternal)
}

// upstreamPerson is the reshaped body sent upstream. Age is always present,
// null when absent.
type upstreamPerson struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Age   *int   `json:"age"`
}

func (p *Proxy) handleList(w http.ResponseWriter, r *http.Request) error {
	status, body, err := p.forward(r.Context(), RouteList, http.MethodGet, "/list", nil)
	if err != nil {
		return err
	}
	if !ok(status) {
		glog.Warningf("proxy list: upstream status %d", status)
		writeText(w, http.StatusInternalServerError, types.MsgFetchFailed)
		return nil
	}
	if len(bytes.TrimSpace(body)) == 0 {
		body = []byte("[]")
	}
	var out bytes.Buffer
	if err := json.Compact(&out, body); err != nil {
		return fmt.Errorf("upstream list body: %w", err)
	}
	writeRaw(w, http.StatusOK, "application/json", out.Bytes())
	return nil
}

func (p *Proxy) handleCreate(w http.ResponseWriter, r *http.Request) error {
	var in []upstreamPerson
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		return fmt.Errorf("decoding create body: %w", err)
	}
	payload, err := json.Marshal(in)
	if err != nil {
		return err
	}
	status, body, err := p.forward(r.Context(), RouteCreate, http.MethodPost, "/create", payload)
	if err != nil {
		return err
	}
	if !ok(status) {
		glog.Warningf("proxy create: upstream status %d: %s", status, body)
		writeText(w, http.StatusInternalServerError, types.MsgCreateFailed)
		return nil
	}
	passthrough(w, http.StatusOK, body)
	return nil
}

func (p *Proxy) handleUpdate(w http.ResponseWriter, r *http.Request) error {
	var in types.UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		return fmt.Errorf("decoding update body: %w", err)
	}
	if in.ID == "" {
		writeText(w, http.StatusBadRequest, "missing person id")
		return nil
	}
	payload, err := json.Marshal(upstreamPerson{Name: in.Name, Email: in.Email, Age: in.Age})
	if err != nil {
		return err
	}
	status, body, err := p.forward(r.Context(), RouteUpdate, http.MethodPut, "/update/"+url.PathEscape(string(in.ID)), payload)
	if err != nil {
		return err
	}
	if !ok(status) {
		if len(bytes.TrimSpace(body)) == 0 {
			body = []byte(fmt.Sprintf("%s. Status: %d", types.MsgUpdateFailed, status))
		}
		writeRaw(w, status, "text/plain; charset=utf-8", body)
		return nil
	}
	passthrough(w, http.StatusOK, body)
	return nil
}

func (p *Proxy) handleDelete(w http.ResponseWriter, r *http.Request) error {
	var in types.DeleteRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		return fmt.Errorf("decoding delete body: %w", err)
	}
	if in.ID == "" {
		writeText(w, http.StatusBadRequest, "missing person id")
		return nil
	}
	status, body, err := p.forward(r.Context(), RouteDelete, http.MethodDelete, "/delete/"+url.PathEscape(string(in.ID)), nil)
	if err != nil {
		return err
	}
	if !ok(status) {
		writeText(w, status, fmt.Sprintf("%s. Status: %d", types.MsgDeleteFailed, status))
		return nil
	}
	writeRaw(w, http.StatusOK, "text/plain; charset=utf-8", body)
	return nil
}

// forward issues one upstream request and reads the whole response.
func (p *Proxy) forward(ctx context.Context, route, method, path string, payload []byte) (int, []byte, error) {
	target := p.base.String() + path
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return 0, nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := p.client.Do(req)
	p.metrics.observeUpstream(route, time.Since(start))
	if err != nil {
		return 0, nil, fmt.Errorf("%s %s: %w", method, target, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("reading upstream response: %w", err)
	}
	return resp.StatusCode, data, nil
}

func ok(status int) bool {
	return status >= 200 && status < 300
}

// passthrough writes body as JSON when it parses, otherwise as plain text.
func passthrough(w http.ResponseWriter, status int, body []byte) {
	var out bytes.Buffer
	if len(bytes.TrimSpace(body)) > 0 && json.Compact(&out, body) == nil {
		writeRaw(w, status, "application/json", out.Bytes())
		return
	}
	writeRaw(w, status, "text/plain; charset=utf-8", body)
}

func writeText(w http.ResponseWriter, status int, msg string) {
	writeRaw(w, status, "text/plain; charset=utf-8", []byte(msg))
}

func writeRaw(w http.ResponseWriter, status int, contentType string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	w.Write(body)
}

// statusWriter records the status code for metrics and logs.
type statusWriter struct {
	http.ResponseWriter
	status int
	wrote  bool
}

func (w *statusWriter) WriteHeader(code int) {
	if w.wrote {
		return
	}
	w.status = code
	w.wrote = true
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if !w.wrote {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}
