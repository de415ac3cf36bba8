package sevenzip

import "strings"

// Op is a 7-Zip command letter.
type Op string

const (
	OpList        Op = "l"
	OpTest        Op = "t"
	OpExtract     Op = "x"
	OpExtractFlat Op = "e"
)

// Name returns a readable operation name.
func (o Op) Name() string {
	switch o {
	case OpList:
		return "list"
	case OpTest:
		return "test"
	case OpExtract, OpExtractFlat:
		return "extract"
	}
	return string(o)
}

// Code classifies a 7-Zip invocation. Non-negative values mirror the tool's
// documented exit codes; negative values are derived classifications.
type Code int

// 7-Zip exit codes.
const (
	CodeNoError         Code = 0   // No error
	CodeWarning         Code = 1   // Non fatal errors, e.g. locked files
	CodeFatal           Code = 2   // Fatal error
	CodeCommandLine     Code = 7   // Command line error
	CodeNotEnoughMemory Code = 8   // Not enough memory for operation
	CodeUserStopped     Code = 255 // User stopped the process

	CodeUnknown      Code = -1 // Exit status outside the documented table
	CodeHeadersError Code = -2 // "Headers Error in encrypted archive."
)

var codeNames = map[Code]string{
	CodeNoError:         "NO_ERROR",
	CodeWarning:         "WARNING",
	CodeFatal:           "FATAL_ERROR",
	CodeCommandLine:     "COMMAND_LINE_ERROR",
	CodeNotEnoughMemory: "NOT_ENOUGH_MEMORY_ERROR",
	CodeUserStopped:     "USER_STOPPED",
	CodeUnknown:         "UNKNOWN",
	CodeHeadersError:    "HEADERS_ERROR",
}

var codeDescriptions = map[Code]string{
	CodeNoError:         "success",
	CodeWarning:         "warning (non-fatal error)",
	CodeFatal:           "fatal error",
	CodeCommandLine:     "command line error",
	CodeNotEnoughMemory: "not enough memory for operation",
	CodeUserStopped:     "user stopped the process",
	CodeUnknown:         "unknown",
	CodeHeadersError:    "headers error in encrypted archive",
}

func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return codeNames[CodeUnknown]
}

// Description returns a human readable explanation.
func (c Code) Description() string {
	if desc, ok := codeDescriptions[c]; ok {
		return desc
	}
	return codeDescriptions[CodeUnknown]
}

// MarshalText renders the symbolic name in reports.
func (c Code) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// messageCodes refines a failing exit status by the text the tool printed.
var messageCodes = []struct {
	substring string
	code      Code
}{
	{"Headers Error in encrypted archive.", CodeHeadersError},
}

// ClassifyExit maps a raw exit status onto the documented table.
func ClassifyExit(exitCode int) Code {
	code := Code(exitCode)
	if exitCode < 0 {
		return CodeUnknown
	}
	if _, ok := codeNames[code]; !ok {
		return CodeUnknown
	}
	return code
}

// Classify maps an exit status and the tool output onto a Code. A failing
// status whose output carries a known message gets the refined code.
func Classify(exitCode int, message string) Code {
	code := ClassifyExit(exitCode)
	if code == CodeNoError {
		return code
	}
	for _, mc := range messageCodes {
		if strings.Contains(message, mc.substring) {
			return mc.code
		}
	}
	return code
}
