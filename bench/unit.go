package bench

import "context"

// Callback delivers the outcome of a one-shot asynchronous request.
// Exactly one of err or result is meaningful.
type Callback func(err error, result any)

// ResourceFunc services a single auxiliary-resource request (glyphs,
// icons) and delivers the payload through cb. Implementations may
// invoke cb synchronously; the Actor adds the asynchronous hop.
type ResourceFunc func(params any, cb Callback)

// Providers holds the optional resource dependencies a Bench call may
// use. A nil field tells the unit to fall back to its own default,
// typically a cache-only lookup populated during Setup.
type Providers struct {
	Glyphs ResourceFunc
	Images ResourceFunc
}

// Unit is one pluggable measured workload.
//
// Setup is called exactly once per harness run and prepares state that
// Bench consumes read-only. Bench performs the measured unit of work;
// it must be safe to call repeatedly, must not visibly mutate
// Setup-produced state, and must not return before every asynchronous
// operation it started has settled. The harness relies on that last
// point to keep iterations strictly sequential.
type Unit interface {
	Setup(ctx context.Context) error
	Bench(ctx context.Context, p Providers) error
}
