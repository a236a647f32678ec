package types

import "context"

// PersonStore is the persistence behind the reference upstream service.
// Callers attach to a backend, use it, and detach when done.
type PersonStore interface {
	// Attach opens the backend described by cfg. Returns ErrAlreadyAttached
	// if called twice without Detach.
	Attach(cfg Config) error

	// Detach releases backend resources. Idempotent.
	Detach() error

	// List returns every person in creation order.
	List(ctx context.Context) ([]Person, error)

	// Create validates and inserts all inputs atomically. Nothing is stored
	// if any input is invalid.
	Create(ctx context.Context, in []PersonInput) ([]Person, error)

	// Update replaces the updatable fields of the person with the given ID.
	// Returns ErrNotFound for an unknown ID.
	Update(ctx context.Context, id PersonID, in PersonInput) (Person, error)

	// Delete removes the person with the given ID.
	// Returns ErrNotFound for an unknown ID.
	Delete(ctx context.Context, id PersonID) error
}

// PersonAPI is the remote data client contract. Failures are *FetchError or
// *MutationError; nothing is retried.
type PersonAPI interface {
	List(ctx context.Context) ([]Person, error)
	Create(ctx context.Context, drafts []PersonInput) (string, error)
	Update(ctx context.Context, id PersonID, in PersonInput) (string, error)
	Delete(ctx context.Context, id PersonID) error
}

// Notifier receives user-visible outcome signals from the form and delete
// workflows.
type Notifier interface {
	Success(title, message string)
	Failure(err error)
}
