// Package dnstap converts dnstap messages into PowerDNS protobuf messages so
// that both inputs share one mapping path. DNS payloads are parsed with
// miekg/dns and reshaped the way PowerDNS reports them: A and AAAA rdata as
// raw addresses, every other type as presentation text.
package dnstap

import (
	"errors"
	"fmt"
	"strings"

	dnstappb "github.com/dnstap/golang-dnstap"
	"github.com/miekg/dns"
	"google.golang.org/protobuf/proto"

	"github.com/haukened/pbdns-relay/internal/dns/domain"
	"github.com/haukened/pbdns-relay/internal/dns/gateways/wire/pbdns"
)

// ErrMalformed is returned for frames that are not dnstap protobuf.
var ErrMalformed = errors.New("dnstap: malformed frame")

var messageTypes = map[dnstappb.Message_Type]domain.MessageType{
	dnstappb.Message_CLIENT_QUERY:      domain.MessageClientQuery,
	dnstappb.Message_CLIENT_RESPONSE:   domain.MessageClientResponse,
	dnstappb.Message_RESOLVER_QUERY:    domain.MessageAuthQuery,
	dnstappb.Message_RESOLVER_RESPONSE: domain.MessageAuthResponse,
}

// Codec decodes Frame Streams payloads carrying dnstap.Dnstap.
type Codec struct{}

// Decode unmarshals payload and converts it.
func (Codec) Decode(payload []byte) (*pbdns.Message, error) {
	var dt dnstappb.Dnstap
	if err := proto.Unmarshal(payload, &dt); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return Convert(&dt)
}

// Convert maps a dnstap message onto a PBDNSMessage. Message kinds without a
// PowerDNS equivalent return domain.ErrUnsupportedMessage.
func Convert(dt *dnstappb.Dnstap) (*pbdns.Message, error) {
	if dt.GetType() != dnstappb.Dnstap_MESSAGE || dt.Message == nil {
		return nil, fmt.Errorf("dnstap frame without message: %w", domain.ErrUnsupportedMessage)
	}
	src := dt.Message

	mt, ok := messageTypes[src.GetType()]
	if !ok {
		return nil, fmt.Errorf("dnstap %s: %w", src.GetType(), domain.ErrUnsupportedMessage)
	}

	m := &pbdns.Message{
		Type:           proto.Uint32(uint32(mt)),
		ServerIdentity: clone(dt.Identity),
		From:           clone(src.QueryAddress),
		To:             clone(src.ResponseAddress),
		FromPort:       src.QueryPort,
		ToPort:         src.ResponsePort,
	}
	if src.SocketFamily != nil {
		m.SocketFamily = proto.Uint32(uint32(src.GetSocketFamily()))
	}
	if src.SocketProtocol != nil {
		m.SocketProtocol = proto.Uint32(uint32(src.GetSocketProtocol()))
	}

	packet := src.QueryMessage
	if mt.IsResponse() {
		packet = src.ResponseMessage
		m.TimeSec, m.TimeUsec = timestamp(src.ResponseTimeSec, src.ResponseTimeNsec)
		m.Response = &pbdns.Response{}
		m.Response.QueryTimeSec, m.Response.QueryTimeUsec = timestamp(src.QueryTimeSec, src.QueryTimeNsec)
	} else {
		m.TimeSec, m.TimeUsec = timestamp(src.QueryTimeSec, src.QueryTimeNsec)
	}

	if len(packet) > 0 {
		m.InBytes = proto.Uint64(uint64(len(packet)))
		// An unparsable payload still yields the envelope fields.
		var msg dns.Msg
		if err := msg.Unpack(packet); err == nil {
			fromDNS(m, &msg)
		}
	}
	return m, nil
}

func fromDNS(m *pbdns.Message, msg *dns.Msg) {
	m.ID = proto.Uint32(uint32(msg.Id))
	if len(msg.Question) > 0 {
		q := msg.Question[0]
		m.Question = &pbdns.Question{
			QName:  proto.String(q.Name),
			QType:  proto.Uint32(uint32(q.Qtype)),
			QClass: proto.Uint32(uint32(q.Qclass)),
		}
	}
	if m.Response == nil {
		return
	}

	m.Response.RCode = proto.Uint32(uint32(msg.Rcode))
	for _, rr := range msg.Answer {
		hdr := rr.Header()
		m.Response.RRs = append(m.Response.RRs, pbdns.RR{
			Name:  proto.String(hdr.Name),
			Type:  proto.Uint32(uint32(hdr.Rrtype)),
			Class: proto.Uint32(uint32(hdr.Class)),
			TTL:   proto.Uint32(hdr.Ttl),
			Rdata: rdata(rr),
		})
	}
}

func rdata(rr dns.RR) []byte {
	switch v := rr.(type) {
	case *dns.A:
		return append([]byte(nil), v.A.To4()...)
	case *dns.AAAA:
		return append([]byte(nil), v.AAAA.To16()...)
	default:
		return []byte(strings.TrimPrefix(rr.String(), rr.Header().String()))
	}
}

func timestamp(sec *uint64, nsec *uint32) (*uint32, *uint32) {
	if sec == nil {
		return nil, nil
	}
	var usec uint32
	if nsec != nil {
		usec = *nsec / 1000
	}
	return proto.Uint32(uint32(*sec)), proto.Uint32(usec)
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte{}, b...)
}
