package bench

import (
	"fmt"
	"time"
)

// Handler services one recognized actor action.
type Handler func(params any, cb Callback)

// Actor emulates the asynchronous request/response channel a unit
// would normally use to reach a worker across a thread or process
// boundary, without a real worker or network.
type Actor struct {
	handlers map[string]Handler
}

// NewActor creates an Actor recognizing exactly the given actions.
func NewActor(handlers map[string]Handler) *Actor {
	return &Actor{handlers: handlers}
}

// Send dispatches a one-shot request to the handler registered for
// action. The handler never runs on the caller's stack: dispatch is
// deferred through the scheduler even when the handler itself is
// synchronous, so callers observe a genuine suspension on every
// round-trip. This is a contract, not an implementation accident.
//
// An unrecognized action is a protocol violation by the benchmarked
// unit and panics; the callback is never invoked for it.
func (a *Actor) Send(action string, params any, cb Callback) {
	h, ok := a.handlers[action]
	if !ok {
		panic(fmt.Sprintf("bench: actor received unknown action %q", action))
	}

	time.AfterFunc(0, func() { h(params, cb) })
}
