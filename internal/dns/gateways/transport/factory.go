package transport

import (
	"fmt"

	"github.com/haukened/pbdns-relay/internal/dns/common/log"
)

// NewTransport creates a transport of the given type listening on addr.
func NewTransport(transportType TransportType, addr string, logger log.Logger) (ServerTransport, error) {
	switch transportType {
	case TransportPBDNS:
		return NewPBDNSTransport(addr, logger), nil

	case TransportDnstap:
		return NewDnstapTransport(addr, logger), nil

	default:
		return nil, fmt.Errorf("unsupported transport type: %s", transportType)
	}
}

// GetSupportedTransports returns a list of currently supported transport types.
func GetSupportedTransports() []TransportType {
	return []TransportType{
		TransportPBDNS,
		TransportDnstap,
	}
}

// IsTransportSupported checks if a given transport type is currently supported.
func IsTransportSupported(transportType TransportType) bool {
	for _, t := range GetSupportedTransports() {
		if t == transportType {
			return true
		}
	}
	return false
}
