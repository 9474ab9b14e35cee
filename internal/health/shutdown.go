package health

import "sync/atomic"

// ready starts true so probes pass as soon as the listener is up; shutdown
// flips it false to drain load-balanced traffic before closing.
var ready atomic.Bool

func init() {
	ready.Store(true)
}

// SetReady toggles the readiness gate consulted by the Ready handler.
func SetReady(value bool) {
	ready.Store(value)
}
