// Package reactor provides the single-dispatch event loop the monitor server
// runs on.
//
// All accept, data, error and timer callbacks execute on one loop goroutine,
// so server state touched only from callbacks needs no locking. Network
// reads happen on per-connection watcher goroutines that hand their bytes to
// the loop and wait for the callback to finish before reading again, which
// makes the read buffers safe to reuse and applies natural backpressure.
package reactor
