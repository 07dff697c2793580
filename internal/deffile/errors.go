package deffile

import (
	"errors"
	"fmt"

	"cuelang.org/go/cue/token"
)

// DocumentError reports a malformed document.
type DocumentError struct {
	// Path locates the offending value, e.g. "filters[1]".
	Path string

	// Message describes the problem.
	Message string

	// Pos is the CUE source position, when known.
	Pos token.Pos
}

func (e *DocumentError) Error() string {
	prefix := ""
	if e.Pos.IsValid() {
		prefix = fmt.Sprintf("%s:%d:%d: ", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column())
	}
	if e.Path == "" {
		return prefix + e.Message
	}
	return fmt.Sprintf("%s%s: %s", prefix, e.Path, e.Message)
}

// IsDocumentError returns true if err is a document shape error.
func IsDocumentError(err error) bool {
	var de *DocumentError
	return errors.As(err, &de)
}

func docErr(path, format string, args ...any) error {
	return &DocumentError{Path: path, Message: fmt.Sprintf(format, args...)}
}
