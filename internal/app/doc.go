// Package app wires configuration, logging, the run lock, the optional
// ledger, and the step registry into a single pipeline run.
package app
