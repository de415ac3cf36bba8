package archive

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Status is the lifecycle state of one working record.
type Status int

const (
	StatusInit Status = iota - 1
	StatusListFail
	StatusListVolume
	StatusListSuccess
	StatusTestFail
	StatusTestSuccess
	StatusExtractFail
	StatusExtractSuccess
)

// reportOrder fixes the order of counts and groups in reports.
var reportOrder = []Status{
	StatusListSuccess,
	StatusListVolume,
	StatusListFail,
	StatusTestSuccess,
	StatusTestFail,
	StatusExtractSuccess,
	StatusExtractFail,
	StatusInit,
}

var statusNames = map[Status]string{
	StatusInit:           "INIT",
	StatusListFail:       "LIST_FAIL",
	StatusListVolume:     "LIST_VOLUME",
	StatusListSuccess:    "LIST_SUCCESS",
	StatusTestFail:       "TEST_FAIL",
	StatusTestSuccess:    "TEST_SUCCESS",
	StatusExtractFail:    "EXTRACT_FAIL",
	StatusExtractSuccess: "EXTRACT_SUCCESS",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "UNKNOWN"
}

// Key is the snake case form used as a report count key, e.g. "list_fail".
func (s Status) Key() string {
	return strings.ToLower(s.String())
}

// Label is the human readable form, e.g. "List Fail".
func (s Status) Label() string {
	return cases.Title(language.English).String(strings.ReplaceAll(s.Key(), "_", " "))
}

// MarshalText renders the symbolic name.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Failed reports whether s belongs in the fail context.
func (s Status) Failed() bool {
	switch s {
	case StatusInit, StatusListFail, StatusTestFail, StatusExtractFail:
		return true
	}
	return false
}

// succeeded reports whether s is a success outcome for mode. A mode only
// counts the statuses its last phase can produce.
func (s Status) succeeded(mode string) bool {
	switch s {
	case StatusListVolume:
		return true
	case StatusListSuccess:
		return mode == ModeList
	case StatusTestSuccess:
		return mode == ModeTest
	case StatusExtractSuccess:
		return mode == ModeExtract
	}
	return false
}
