package types

import (
	"errors"
	"fmt"
)

// Category sentinels. Every structured error below unwraps to one of these.
var (
	ErrFetch      = errors.New("fetch failed")
	ErrMutation   = errors.New("mutation failed")
	ErrValidation = errors.New("validation failed")
	ErrProxy      = errors.New("proxy handler failed")
)

// Store errors.
var (
	ErrNotFound        = errors.New("person not found")
	ErrInvalidID       = errors.New("invalid person ID")
	ErrInvalidData     = errors.New("invalid person data")
	ErrStoreDetached   = errors.New("store is detached")
	ErrAlreadyAttached = errors.New("store is already attached")
)

// User-visible messages.
const (
	MsgFetchFailed       = "Failed to fetch persons"
	MsgCreateFailed      = "Failed to add person"
	MsgUpdateFailed      = "Failed to update person"
	MsgDeleteFailed      = "Failed to delete person"
	MsgNameEmailRequired = "Name and email are required"
	MsgInvalidEmail      = "Please enter a valid email address"
	MsgInvalidAge        = "Age must be a non-negative integer"
	MsgInternal          = "Internal Server Error"
)

// Mutation operations.
const (
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
)

// FetchError reports a non-success status on a list read.
type FetchError struct {
	Status  int
	Message string
}

func (e *FetchError) Error() string {
	if e.Message == "" {
		return MsgFetchFailed
	}
	return e.Message
}

func (e *FetchError) Unwrap() error { return ErrFetch }

// MutationError reports a non-success status on create, update, or delete.
// Message carries the response text when the server sent one.
type MutationError struct {
	Op      string
	Status  int
	Message string
}

func (e *MutationError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	switch e.Op {
	case OpCreate:
		return MsgCreateFailed
	case OpUpdate:
		return MsgUpdateFailed
	case OpDelete:
		return MsgDeleteFailed
	}
	return fmt.Sprintf("%s failed with status %d", e.Op, e.Status)
}

func (e *MutationError) Unwrap() error { return ErrMutation }

// ValidationError reports a failed client-side or store-side field check.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Unwrap() error { return ErrValidation }

// ProxyError wraps an unexpected failure inside a transport handler. It is
// surfaced to callers as a bare 500 with no detail.
type ProxyError struct {
	Route string
	Cause error
}

func (e *ProxyError) Error() string {
	return fmt.Sprintf("proxy %s: %v", e.Route, e.Cause)
}

func (e *ProxyError) Unwrap() []error { return []error{ErrProxy, e.Cause} }
