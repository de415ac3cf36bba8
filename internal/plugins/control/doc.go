// Package control implements the steps that shape contexts rather than
// touch files: filter, switch, merge, and loop.
//
// Filter and switch evaluate predicate rules (glob, size, ctime, mtime)
// against file references. Merge unions contexts with set semantics. Loop
// reruns a nested flow until its monitored context drains or an iteration
// cap is hit.
package control
