package block

import "fmt"

// ParseError reports a malformed wire encoding. Validation-level rejections
// (fork, bad signature, insufficient work, ...) are the validator package's
// concern; this type only covers "the bytes don't even parse".
type ParseError struct {
	Msg string
}

func (e *ParseError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return "block: " + e.Msg
}

func errParse(msg string, args ...any) error {
	return &ParseError{Msg: fmt.Sprintf(msg, args...)}
}
