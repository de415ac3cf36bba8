// Package preflight checks the filesystem paths and external binaries a run
// depends on.
//
// The app runs RunAll before building the flow and stops on the first
// failed check so a missing archiver is reported once instead of once per
// archive. The CLI "check" command renders the same results.
package preflight
