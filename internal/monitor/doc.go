// Package monitor implements the AI monitor server: a TCP service that
// mirrors AI pipeline traffic to connected debugging clients.
//
// Clients connect, send a filter event naming the payload types they want,
// and keep the session alive with pings. The device side feeds pipeline
// payloads in through the Broadcast functions; each payload is relayed to
// every client whose filter matches. Subscribing to the custom-log type
// additionally streams the device log to that client.
//
// The server runs on a single reactor loop: accepts, reads, parse errors and
// timers are all handled on one goroutine. Relay calls arrive on their
// callers' goroutines and synchronize with the loop through the session
// table mutex and per-writer locks.
//
// Listening is deferred behind an optional activation gate and retried every
// two seconds, so the monitor comes up on its own once the device finishes
// activation, and recovers the same way after a listener failure.
package monitor
