package command

import "fmt"

// MalformedInstructionError indicates an input that cannot be normalized
// into an instruction node: a mapping without a kind, an unrecognized
// key, or a shape the parser does not accept.
type MalformedInstructionError struct {
	Reason string
}

func (e *MalformedInstructionError) Error() string {
	return "malformed instruction: " + e.Reason
}

func malformedf(format string, args ...any) error {
	return &MalformedInstructionError{Reason: fmt.Sprintf(format, args...)}
}
