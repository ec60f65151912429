// Package discovery announces the monitor service on the local network so
// debugging clients can find the device without knowing its address.
package discovery

import (
	"fmt"

	"github.com/grandcat/zeroconf"

	"github.com/muurk/aimon/internal/logging"
	"github.com/muurk/aimon/internal/version"
	"go.uber.org/zap"
)

const (
	// ServiceType is the mDNS service type for the AI monitor.
	ServiceType = "_aimon._tcp"

	// ServiceDomain is the mDNS domain (typically "local.")
	ServiceDomain = "local."
)

// Announcer registers the monitor service over mDNS for as long as the
// listener is up.
type Announcer struct {
	server *zeroconf.Server
}

// Announce registers an mDNS service entry for the monitor. instance is the
// visible service name; port is the listener port. TXT records carry the
// server version and client capacity.
func Announce(instance string, port, maxClients int) (*Announcer, error) {
	txt := []string{
		fmt.Sprintf("version=%s", version.Version),
		fmt.Sprintf("max_clients=%d", maxClients),
	}

	server, err := zeroconf.Register(instance, ServiceType, ServiceDomain, port, txt, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to register mDNS service: %w", err)
	}

	logging.Info("Announcing monitor service",
		zap.String("instance", instance),
		zap.String("service", ServiceType),
		zap.Int("port", port),
	)

	return &Announcer{server: server}, nil
}

// Shutdown withdraws the mDNS registration.
func (a *Announcer) Shutdown() {
	if a == nil || a.server == nil {
		return
	}
	a.server.Shutdown()
	a.server = nil
}
