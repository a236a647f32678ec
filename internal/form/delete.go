package form

import (
	"context"
	"fmt"
	"sync"

	"github.com/mesh-intelligence/roster/pkg/types"
)

// Confirmation is the prompt shown before a delete is issued.
type Confirmation struct {
	Title   string
	Message string
	Target  types.Person
}

// ConfirmationFor builds the prompt naming p.
func ConfirmationFor(p types.Person) Confirmation {
	return Confirmation{
		Title:   TitleConfirmDelete,
		Message: fmt.Sprintf("Are you sure you want to delete %s?", p.Name),
		Target:  p,
	}
}

// Deleter runs the two-step delete: Request names the target, Confirm
// issues the remote call.
type Deleter struct {
	api    types.PersonAPI
	cache  Invalidator
	notify types.Notifier

	mu      sync.Mutex
	pending *types.Person
}

// NewDeleter returns a Deleter with nothing pending.
func NewDeleter(api types.PersonAPI, cache Invalidator, notify types.Notifier) *Deleter {
	return &Deleter{api: api, cache: cache, notify: notify}
}

// Request stages p for deletion and returns the prompt. A later Request
// replaces the staged target.
func (d *Deleter) Request(p types.Person) Confirmation {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pending = &p
	return ConfirmationFor(p)
}

// Pending returns the staged target, if any.
func (d *Deleter) Pending() (types.Person, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.pending == nil {
		return types.Person{}, false
	}
	return *d.pending, true
}

// Cancel drops the staged target.
func (d *Deleter) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pending = nil
}

// Confirm deletes the staged target. On failure the error is signalled and
// the cache is left alone.
func (d *Deleter) Confirm(ctx context.Context) error {
	d.mu.Lock()
	p := d.pending
	d.pending = nil
	d.mu.Unlock()
	if p == nil {
		return ErrNoPendingDelete
	}

	if err := d.api.Delete(ctx, p.ID); err != nil {
		d.notify.Failure(err)
		return err
	}
	d.cache.Invalidate()
	d.notify.Success(TitleSuccess, MsgDeleted)
	return nil
}
