// Package config provides configuration management for the AI monitor server.
//
// This package loads a YAML-based configuration file describing the monitor
// TCP server: bind address and port, client limits, buffer sizes, heartbeat
// parameters, and the broadcast/announce switches. Values missing from the
// file keep their defaults; out-of-range limits are clamped during
// validation rather than rejected.
//
// # Usage Example
//
//	cfg, err := config.Load("/etc/aimon/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	srv, err := monitor.New(cfg)
//
// # Client Limit
//
// The monitor accepts at most three simultaneous clients (hard cap), with a
// floor of one. The limit exists because the monitor fans out raw pipeline
// traffic; each extra client multiplies outgoing bandwidth on a constrained
// device.
package config
