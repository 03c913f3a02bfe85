// Package transport accepts telemetry connections and feeds the frames they
// carry into the dispatch pipeline. Framing is the transport's concern; the
// pipeline only ever sees complete payloads.
package transport

import (
	"context"

	"github.com/haukened/pbdns-relay/internal/dns/services/pipeline"
)

// ServerTransport defines the interface for telemetry listeners.
type ServerTransport interface {
	// Start binds the listener and begins accepting connections. Frames are
	// handed to sub as jobs.
	Start(ctx context.Context, sub pipeline.Submitter) error

	// Stop closes the listener and every live connection, then waits for
	// the connection handlers to return.
	Stop() error

	// Address returns the bound address once started, the configured one before.
	Address() string
}

// TransportType names a supported input format.
type TransportType string

const (
	// TransportPBDNS is PowerDNS protobuf over TCP with 2-byte length prefixes.
	TransportPBDNS TransportType = "pbdns"

	// TransportDnstap is dnstap over bidirectional Frame Streams.
	TransportDnstap TransportType = "dnstap"
)
