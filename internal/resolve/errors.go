package resolve

import "errors"

var (
	// ErrUnidentified means no resolution strategy could determine the
	// device's identity. Callers skip the device; this is a documented
	// outcome, not a fault.
	ErrUnidentified = errors.New("device identity could not be resolved")

	// ErrUnsupported means the platform offers no handle-mediated bus
	// lookup. Not an error for the overall run; resolution simply starts
	// at the binding strategy.
	ErrUnsupported = errors.New("handle-mediated bus lookup not supported on this platform")
)
