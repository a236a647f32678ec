// Package app assembles one roster session: a constructed cache, the shared
// form, the delete workflow, and the list view, with explicit start and stop.
package app

import (
	"io"
	"sync"

	"github.com/mesh-intelligence/roster/internal/cache"
	"github.com/mesh-intelligence/roster/internal/form"
	"github.com/mesh-intelligence/roster/internal/listview"
	"github.com/mesh-intelligence/roster/internal/search"
	"github.com/mesh-intelligence/roster/pkg/types"
)

// Options configures a Session.
type Options struct {
	API      types.PersonAPI
	Notifier types.Notifier
	Theme    string
	NoColor  bool

	// Live, when set, re-renders to Out on every cache state change.
	Live bool
	Out  io.Writer
}

// Session owns the cache and the views that read from it.
type Session struct {
	Cache   *cache.Cache
	Form    *form.Form
	Deleter *form.Deleter
	View    *listview.Renderer

	live bool
	out  io.Writer

	mu          sync.Mutex
	query       string
	unsubscribe func()
	renderMu    sync.Mutex
}

// New wires a session. Nothing is fetched until Start.
func New(opts Options) *Session {
	c := cache.New(opts.API)
	return &Session{
		Cache:   c,
		Form:    form.New(opts.API, c, opts.Notifier),
		Deleter: form.NewDeleter(opts.API, c, opts.Notifier),
		View:    listview.New(opts.Theme, opts.NoColor),
		live:    opts.Live && opts.Out != nil,
		out:     opts.Out,
	}
}

// Start subscribes the live view and issues the first fetch.
func (s *Session) Start() {
	if s.live {
		unsubscribe := s.Cache.Subscribe(func(snap cache.Snapshot) {
			s.renderSnapshot(s.out, snap)
		})
		s.mu.Lock()
		s.unsubscribe = unsubscribe
		s.mu.Unlock()
	}
	s.Cache.Load()
}

// Stop detaches the view and closes the cache.
func (s *Session) Stop() {
	s.mu.Lock()
	unsubscribe := s.unsubscribe
	s.unsubscribe = nil
	s.mu.Unlock()
	if unsubscribe != nil {
		unsubscribe()
	}
	s.Cache.Close()
}

// Refresh invalidates the list.
func (s *Session) Refresh() { s.Cache.Invalidate() }

// SetQuery replaces the search query.
func (s *Session) SetQuery(q string) {
	s.mu.Lock()
	s.query = q
	s.mu.Unlock()
}

// Query returns the search query.
func (s *Session) Query() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.query
}

// Visible is the filtered view over the current snapshot.
func (s *Session) Visible() []types.Person {
	return search.Filter(s.Cache.Snapshot().Persons, s.Query())
}

// Find looks up a person in the current snapshot by ID.
func (s *Session) Find(id types.PersonID) (types.Person, bool) {
	for _, p := range s.Cache.Snapshot().Persons {
		if p.ID == id {
			return p, true
		}
	}
	return types.Person{}, false
}

// Render draws the current snapshot and query to w.
func (s *Session) Render(w io.Writer) error {
	return s.renderSnapshot(w, s.Cache.Snapshot())
}

func (s *Session) renderSnapshot(w io.Writer, snap cache.Snapshot) error {
	s.renderMu.Lock()
	defer s.renderMu.Unlock()
	return s.View.Render(w, snap, s.Query())
}
