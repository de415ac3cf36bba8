// Package fileops implements the steps that act on files directly: scan,
// rename, transfer, remove, flat, empty, and log.
//
// Scan is the usual entry point of a flow and fills a context from a
// directory walk. Flat and empty operate on a directory named in their own
// config and never touch the store.
package fileops
