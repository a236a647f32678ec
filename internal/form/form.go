// Package form is the shared add/edit form and the delete confirmation
// workflow. Neither touches the cached list directly; success invalidates
// the cache and the list is re-derived from a fresh fetch.
package form

import (
	"context"
	"errors"
	"sync"

	"github.com/mesh-intelligence/roster/pkg/types"
)

// User-visible signals.
const (
	TitleSuccess       = "Success"
	TitleError         = "Error"
	TitleConfirmDelete = "Confirm Delete"
	MsgAdded           = "Person added successfully"
	MsgUpdated         = "Person updated"
	MsgDeleted         = "Person deleted successfully"
)

// Workflow errors.
var (
	ErrClosed          = errors.New("form is not open")
	ErrNoPendingDelete = errors.New("no delete awaiting confirmation")
)

// Mode is the form state.
type Mode int

const (
	ModeClosed Mode = iota
	ModeCreate
	ModeEdit
)

func (m Mode) String() string {
	switch m {
	case ModeClosed:
		return "closed"
	case ModeCreate:
		return "open-create"
	case ModeEdit:
		return "open-edit"
	}
	return "unknown"
}

// Title is the heading shown above the open form.
func (m Mode) Title() string {
	if m == ModeEdit {
		return "Edit Person"
	}
	return "Add New Person"
}

// Invalidator is the cache hook a successful mutation fires.
type Invalidator interface {
	Invalidate()
}

// Form holds one in-progress draft and knows whether it creates or updates.
type Form struct {
	api    types.PersonAPI
	cache  Invalidator
	notify types.Notifier

	mu     sync.Mutex
	mode   Mode
	target types.PersonID
	draft  types.Draft
}

// New returns a closed form.
func New(api types.PersonAPI, cache Invalidator, notify types.Notifier) *Form {
	return &Form{api: api, cache: cache, notify: notify}
}

// Open enters create mode with an empty draft when target is nil, or edit
// mode with a draft copied from target.
func (f *Form) Open(target *types.Person) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if target == nil {
		f.mode = ModeCreate
		f.target = ""
		f.draft = types.Draft{}
		return
	}
	f.mode = ModeEdit
	f.target = target.ID
	f.draft = types.DraftFrom(*target)
}

// Mode returns the current state.
func (f *Form) Mode() Mode {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.mode
}

// Target returns the person being edited, or "" outside edit mode.
func (f *Form) Target() types.PersonID {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.target
}

// Draft returns a copy of the in-progress fields.
func (f *Form) Draft() types.Draft {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.draft
}

func (f *Form) SetName(v string)  { f.edit(func(d *types.Draft) { d.Name = v }) }
func (f *Form) SetEmail(v string) { f.edit(func(d *types.Draft) { d.Email = v }) }
func (f *Form) SetAge(v string)   { f.edit(func(d *types.Draft) { d.Age = v }) }

func (f *Form) edit(apply func(*types.Draft)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	apply(&f.draft)
}

// Cancel closes the form and discards the draft.
func (f *Form) Cancel() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mode = ModeClosed
	f.target = ""
	f.draft = types.Draft{}
}

// Submit validates the draft and dispatches create or update. Validation
// failures return a *types.ValidationError without any network call. On any
// failure the form stays open with the draft intact.
func (f *Form) Submit(ctx context.Context) error {
	f.mu.Lock()
	mode, target, draft := f.mode, f.target, f.draft
	f.mu.Unlock()

	if mode == ModeClosed {
		return ErrClosed
	}
	if err := draft.Validate(); err != nil {
		f.notify.Failure(err)
		return err
	}

	in := draft.Input()
	var err error
	if mode == ModeCreate {
		_, err = f.api.Create(ctx, []types.PersonInput{in})
	} else {
		_, err = f.api.Update(ctx, target, in)
	}
	if err != nil {
		f.notify.Failure(err)
		return err
	}

	f.mu.Lock()
	if f.mode == mode && f.target == target {
		f.mode = ModeClosed
		f.target = ""
		// An update leaves the draft for the next Open to reseed.
		if mode == ModeCreate {
			f.draft = types.Draft{}
		}
	}
	f.mu.Unlock()

	f.cache.Invalidate()
	if mode == ModeCreate {
		f.notify.Success(TitleSuccess, MsgAdded)
	} else {
		f.notify.Success(TitleSuccess, MsgUpdated)
	}
	return nil
}
