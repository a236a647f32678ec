// Package types defines the Person model, the form Draft, the error taxonomy,
// configuration, and the store and client interfaces shared by every roster
// component.
package types
