//go:build !linux

package control

import "time"

// changeTime falls back to the modification time where the inode change
// time is not exposed uniformly.
func changeTime(path string) (time.Time, error) {
	return modTime(path)
}
