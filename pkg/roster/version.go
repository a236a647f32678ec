// Package roster holds build metadata for the roster binary.
package roster

// Version is the current roster release.
const Version = "0.3.0"
