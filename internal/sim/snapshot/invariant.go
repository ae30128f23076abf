package snapshot

import "fmt"

// InvariantError is the panic value raised when a subsystem is asked to back
// up while internally inconsistent, or to restore a snapshot that does not
// belong to it. It is never returned as an error: a partial snapshot is not
// something callers can recover from.
type InvariantError struct {
	Subsystem string
	Msg       string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("%s: snapshot invariant violated: %s", e.Subsystem, e.Msg)
}

// Must panics with an *InvariantError when cond is false.
func Must(cond bool, subsystem, format string, args ...any) {
	if cond {
		return
	}
	panic(&InvariantError{Subsystem: subsystem, Msg: fmt.Sprintf(format, args...)})
}
