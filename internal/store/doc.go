// Package store holds the file references that pipeline steps pass to each
// other.
//
// A Store maps context keys to ordered, deduplicated collections of FileRef
// values. Every Save takes a private copy and every Load hands out a fresh
// one, so a step can never observe another step mutating a context it has
// already read.
package store
