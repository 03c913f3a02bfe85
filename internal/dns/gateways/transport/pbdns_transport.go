package transport

import (
	"context"
	"errors"
	"io"
	"net"

	"github.com/haukened/pbdns-relay/internal/dns/common/log"
	"github.com/haukened/pbdns-relay/internal/dns/gateways/wire/frame"
	"github.com/haukened/pbdns-relay/internal/dns/gateways/wire/pbdns"
	"github.com/haukened/pbdns-relay/internal/dns/services/pipeline"
)

// PBDNSTransport receives PowerDNS protobuf messages, each preceded by a
// 2-byte big-endian length, over plain TCP.
type PBDNSTransport struct {
	*streamListener
}

// NewPBDNSTransport creates a PowerDNS protobuf listener on addr.
func NewPBDNSTransport(addr string, logger log.Logger) *PBDNSTransport {
	return &PBDNSTransport{
		streamListener: newStreamListener(string(TransportPBDNS), addr, handlePBDNS, logger),
	}
}

// handlePBDNS reads at most the bytes the current frame still needs, so a
// read never runs far ahead of extraction. Frames are submitted in stream
// order; decoding happens on the pipeline workers.
func handlePBDNS(ctx context.Context, conn net.Conn, sub pipeline.Submitter, logger log.Logger) {
	dec := frame.NewDecoder()
	buf := make([]byte, frame.MaxPayload)
	source := conn.RemoteAddr().String()
	abort := func(error) { _ = conn.Close() }

	for {
		for dec.HasCompleteFrame() {
			job := pipeline.Job{
				Payload: dec.TakeFrame(),
				Decoder: pbdns.Codec{},
				Source:  source,
				Abort:   abort,
			}
			if err := sub.Submit(ctx, job); err != nil {
				logger.Debug(map[string]any{"error": err}, "stopped submitting frames")
				return
			}
		}

		n, err := conn.Read(buf[:dec.BytesNeeded()])
		if n > 0 {
			dec.Append(buf[:n])
			continue
		}
		if err == nil {
			continue
		}

		switch {
		case errors.Is(err, io.EOF) && !dec.InFrame():
			logger.Debug(nil, "peer closed connection")
		case errors.Is(err, io.EOF):
			logger.Warn(map[string]any{"error": frame.ErrTruncatedFrame, "buffered": dec.Buffered()}, "connection ended inside a frame")
		case errors.Is(err, net.ErrClosed):
			logger.Debug(nil, "connection closed locally")
		default:
			logger.Warn(map[string]any{"error": err}, "failed to read from connection")
		}
		return
	}
}
