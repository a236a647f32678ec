// Package upstream serves the person REST contract the proxy forwards to:
//
//	GET    {prefix}/list
//	POST   {prefix}/create       (JSON array, batch)
//	PUT    {prefix}/update/{id}
//	DELETE {prefix}/delete/{id}
//
// It is the reference implementation used for local development and tests.
// Failures are plain text.
package upstream

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/golang/glog"
	"github.com/gorilla/mux"

	"github.com/mesh-intelligence/roster/pkg/types"
)

// DefaultPrefix matches the path of the original person service.
const DefaultPrefix = "/PersonsAPI/api/person"

// Handler serves the upstream contract over a PersonStore.
type Handler struct {
	store types.PersonStore
}

// NewRouter returns a router with the four person routes mounted under prefix.
func NewRouter(store types.PersonStore, prefix string) *mux.Router {
	h := &Handler{store: store}
	r := mux.NewRouter()
	s := r.PathPrefix(prefix).Subrouter()
	s.HandleFunc("/list", h.List).Methods(http.MethodGet)
	s.HandleFunc("/create", h.Create).Methods(http.MethodPost)
	s.HandleFunc("/update/{id}", h.Update).Methods(http.MethodPut)
	s.HandleFunc("/delete/{id}", h.Delete).Methods(http.MethodDelete)
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK\n"))
	}).Methods(http.MethodGet)
	return r
}

// List writes every person as a JSON array.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	persons, err := h.store.List(r.Context())
	if err != nil {
		h.fail(w, "list", err)
		return
	}
	if persons == nil {
		persons = []types.Person{}
	}
	writeJSON(w, http.StatusOK, persons)
}

// Create inserts a batch of persons and writes the created records.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var in []types.PersonInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "request body must be a JSON array of persons", http.StatusBadRequest)
		return
	}
	created, err := h.store.Create(r.Context(), in)
	if err != nil {
		h.fail(w, "create", err)
		return
	}
	glog.V(1).Infof("upstream: created %d person(s)", len(created))
	writeJSON(w, http.StatusOK, created)
}

// Update replaces the fields of one person.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id := types.PersonID(mux.Vars(r)["id"])
	var in types.PersonInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "request body must be a JSON person", http.StatusBadRequest)
		return
	}
	updated, err := h.store.Update(r.Context(), id, in)
	if err != nil {
		h.fail(w, "update", err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// Delete removes one person. Success has an empty body.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id := types.PersonID(mux.Vars(r)["id"])
	if err := h.store.Delete(r.Context(), id); err != nil {
		h.fail(w, "delete", err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// fail maps store errors to status codes.
func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, types.ErrValidation), errors.Is(err, types.ErrInvalidData), errors.Is(err, types.ErrInvalidID):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, types.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		glog.Errorf("upstream %s: %v", op, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		glog.Warningf("upstream: encoding response: %v", err)
	}
}
