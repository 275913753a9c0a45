// Package eventloop lets several independent UI modules share a single
// platform event loop.
//
// An EventLoop owns one Source (the external windowing subsystem) and, once
// Run is called, feeds every event the source produces through an ordered
// chain of handlers. Handlers are tried in construction order; the first one
// to capture the event or to fail stops routing for that event. A handler
// failure is latched (first error wins) and returned from Run once the
// source gives control back.
//
// The package never starts goroutines and never blocks on its own: the
// source decides when events arrive and when Run returns. A source that never
// returns control means a latched handler error is never observed by the
// caller of Run; use WithExitOnError when the source cooperates with
// Target.Exit and prompt termination is wanted.
package eventloop
