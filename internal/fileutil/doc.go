// Package fileutil collects the filesystem primitives shared by the file
// plugins and the archive engine: verified copies, cross-device moves,
// collision-free destination naming, and empty-directory pruning.
package fileutil
