// Package main hosts the autounpack CLI entrypoint and command graph.
//
// The Cobra command tree runs the configured pipeline, lists the registered
// steps, scaffolds and checks configuration, lists single archives through
// 7-Zip, and reads the run ledger. Pipeline behaviour lives in the internal
// packages; commands here only translate flags and render results.
package main
