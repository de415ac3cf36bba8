package archive

import (
	"os"
	"path/filepath"

	"autounpack/internal/services/sevenzip"
	"autounpack/internal/store"
)

// Info is the identification result shared by every member of an archive.
type Info struct {
	IsVolume bool           `json:"is_volume"`
	Password *string        `json:"password,omitempty"`
	Attrs    sevenzip.Attrs `json:"attr"`
	Volumes  []string       `json:"volumes,omitempty"`
	MainPath string         `json:"-"`
}

func (i *Info) clone() *Info {
	if i == nil {
		return nil
	}
	out := *i
	out.Attrs = i.Attrs.Clone()
	out.Volumes = append([]string(nil), i.Volumes...)
	if i.Password != nil {
		pw := *i.Password
		out.Password = &pw
	}
	return &out
}

func (i *Info) password() string {
	if i == nil || i.Password == nil {
		return ""
	}
	return *i.Password
}

func (i *Info) setPassword(pw string) {
	if pw == "" {
		i.Password = nil
		return
	}
	i.Password = &pw
}

func (i *Info) includes(path string) bool {
	for _, v := range i.Volumes {
		if samePath(v, path) {
			return true
		}
	}
	return false
}

// Failure is the tool outcome attached to a record that failed, or that
// passed with a warning.
type Failure struct {
	Message string         `json:"message"`
	Code    *sevenzip.Code `json:"code,omitempty"`
}

func failureOf(res *sevenzip.Result) *Failure {
	if res == nil {
		return nil
	}
	code := res.Code
	return &Failure{Message: res.Message, Code: &code}
}

// record is the working slot of one input file. During a phase exactly one
// worker writes a given slot.
type record struct {
	ref     store.FileRef
	status  Status
	info    *Info
	listed  *sevenzip.Result
	failure *Failure
	output  string
}

func (r *record) path() string { return r.ref.Path }

func (r *record) isDir() bool {
	info, err := os.Stat(r.path())
	return err == nil && info.IsDir()
}

func samePath(a, b string) bool {
	return filepath.Clean(a) == filepath.Clean(b)
}
