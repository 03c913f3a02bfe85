package transport

import (
	"context"
	"errors"
	"io"
	"net"

	framestream "github.com/farsightsec/golang-framestream"

	"github.com/haukened/pbdns-relay/internal/dns/common/log"
	"github.com/haukened/pbdns-relay/internal/dns/gateways/dnstap"
	"github.com/haukened/pbdns-relay/internal/dns/services/pipeline"
)

// dnstapContentType is the Frame Streams content type dnstap senders announce.
const dnstapContentType = "protobuf:dnstap.Dnstap"

// DnstapTransport receives dnstap messages over bidirectional Frame Streams
// on TCP and converts them into the same messages the PowerDNS listener yields.
type DnstapTransport struct {
	*streamListener
}

// NewDnstapTransport creates a dnstap listener on addr.
func NewDnstapTransport(addr string, logger log.Logger) *DnstapTransport {
	return &DnstapTransport{
		streamListener: newStreamListener(string(TransportDnstap), addr, handleDnstap, logger),
	}
}

func handleDnstap(ctx context.Context, conn net.Conn, sub pipeline.Submitter, logger log.Logger) {
	dec, err := framestream.NewDecoder(conn, &framestream.DecoderOptions{
		ContentType:   []byte(dnstapContentType),
		Bidirectional: true,
	})
	if err != nil {
		logger.Warn(map[string]any{"error": err}, "frame streams handshake failed")
		return
	}

	source := conn.RemoteAddr().String()
	abort := func(error) { _ = conn.Close() }
	for {
		buf, err := dec.Decode()
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
				logger.Debug(nil, "dnstap stream ended")
				return
			}
			logger.Warn(map[string]any{"error": err}, "failed to read dnstap frame")
			return
		}

		job := pipeline.Job{
			Payload: append([]byte(nil), buf...),
			Decoder: dnstap.Codec{},
			Source:  source,
			Abort:   abort,
		}
		if err := sub.Submit(ctx, job); err != nil {
			logger.Debug(map[string]any{"error": err}, "stopped submitting frames")
			return
		}
	}
}
