// Package mapper converts decoded PBDNSMessage values into the canonical
// document. Mapping is pure: it never touches the network and never mutates
// its input.
package mapper

import (
	"encoding/hex"
	"fmt"
	"net/netip"
	"strconv"
	"time"

	"github.com/miekg/dns"

	"github.com/haukened/pbdns-relay/internal/dns/common/rrdata"
	"github.com/haukened/pbdns-relay/internal/dns/domain"
	"github.com/haukened/pbdns-relay/internal/dns/gateways/wire/pbdns"
)

const (
	isoSeconds = "2006-01-02T15:04:05"
	isoMicros  = "2006-01-02T15:04:05.000000"
	utcOffset  = "+00:00"
)

// Mapper is the method form of Map for callers that depend on an interface.
type Mapper struct{}

// New returns a Mapper.
func New() *Mapper { return &Mapper{} }

// Map converts msg into a document.
func (*Mapper) Map(msg *pbdns.Message) (*domain.Document, error) {
	return Map(msg)
}

// Map converts msg into a document. Fields absent from msg are absent from
// the document. An enumeration value outside its table is an error; the
// caller drops the message rather than emitting a numeric placeholder.
func Map(msg *pbdns.Message) (*domain.Document, error) {
	if msg == nil || msg.Type == nil {
		return nil, domain.ErrMissingType
	}

	mt := domain.MessageType(*msg.Type)
	label, err := mt.Text()
	if err != nil {
		return nil, err
	}
	doc := &domain.Document{MessageType: label}

	if msg.MessageID != nil {
		doc.MessageID = ptr(hex.EncodeToString(msg.MessageID))
	}
	if msg.ServerIdentity != nil {
		doc.ServerIdentity = ptr(string(msg.ServerIdentity))
	}
	if msg.SocketFamily != nil {
		family, err := domain.SocketFamily(*msg.SocketFamily).Text()
		if err != nil {
			return nil, err
		}
		doc.SocketFamily = &family
	}
	if msg.SocketProtocol != nil {
		proto, err := domain.SocketProtocol(*msg.SocketProtocol).Text()
		if err != nil {
			return nil, err
		}
		doc.SocketProtocol = &proto
	}

	if doc.FromAddress, err = address("from", msg.From, msg.SocketFamily); err != nil {
		return nil, err
	}
	if doc.ToAddress, err = address("to", msg.To, msg.SocketFamily); err != nil {
		return nil, err
	}

	doc.Bytes = msg.InBytes
	doc.DNSID = msg.ID
	if subnet, ok := ipText(msg.OriginalRequestorSubnet); ok {
		doc.OriginalRequestorSubnet = &subnet
	}
	doc.RequestorID = msg.RequestorID
	if msg.InitialRequestID != nil {
		doc.InitialRequestID = ptr(hex.EncodeToString(msg.InitialRequestID))
	}
	if msg.DeviceID != nil {
		doc.DeviceID = ptr(string(msg.DeviceID))
	}
	doc.NewlyObservedDomain = msg.NewlyObservedDomain
	doc.DeviceName = msg.DeviceName
	doc.FromPort = msg.FromPort
	doc.ToPort = msg.ToPort

	if q := msg.Question; q != nil {
		doc.Query.Name = q.QName
		if q.QType != nil {
			doc.Query.Type = ptr(rrdata.TypeText(uint16(*q.QType)))
		}
		if q.QClass != nil {
			doc.Query.Class = ptr(rrdata.ClassText(uint16(*q.QClass)))
		}
	}

	timestamps(doc, mt, msg)

	if mt.IsResponse() && msg.Response != nil {
		rsp, err := response(msg.Response)
		if err != nil {
			return nil, err
		}
		doc.Response = rsp
	}

	return doc, nil
}

// timestamps fills query_time, response_time and latency. For queries the
// top-level time is the request time. For responses the top-level time is
// the response time and the request time travels in the response record.
func timestamps(doc *domain.Document, mt domain.MessageType, msg *pbdns.Message) {
	top := micros(msg.TimeSec, msg.TimeUsec)
	if !mt.IsResponse() {
		doc.QueryTime = isoTime(top)
		doc.ResponseTime = isoTime(0)
		doc.Latency = 0
		return
	}

	var req int64
	if msg.Response != nil {
		req = micros(msg.Response.QueryTimeSec, msg.Response.QueryTimeUsec)
	}
	doc.QueryTime = isoTime(req)
	doc.ResponseTime = isoTime(top)
	doc.Latency = float64(top-req) / 1e6
}

func response(r *pbdns.Response) (*domain.Response, error) {
	out := &domain.Response{
		AppliedPolicy:        r.AppliedPolicy,
		AppliedPolicyTrigger: r.AppliedPolicyTrigger,
		AppliedPolicyHit:     r.AppliedPolicyHit,
	}

	if r.RCode != nil {
		rc, err := ReturnCode(*r.RCode)
		if err != nil {
			return nil, err
		}
		out.ReturnCode = &rc
	}
	if len(r.Tags) > 0 {
		out.Tags = append([]string(nil), r.Tags...)
	}
	if r.AppliedPolicyType != nil {
		pt, err := domain.PolicyType(*r.AppliedPolicyType).Text()
		if err != nil {
			return nil, err
		}
		out.AppliedPolicyType = &pt
	}

	for i, rr := range r.RRs {
		doc, err := record(rr)
		if err != nil {
			return nil, fmt.Errorf("rr %d: %w", i, err)
		}
		out.RRs = append(out.RRs, doc)
	}
	return out, nil
}

func record(rr pbdns.RR) (domain.ResourceRecord, error) {
	class := uint16(deref(rr.Class))
	rrtype := uint16(deref(rr.Type))

	out := domain.ResourceRecord{
		Class: rrdata.ClassText(class),
		Type:  rrdata.TypeText(rrtype),
		TTL:   deref(rr.TTL),
		UDR:   rr.UDR,
	}
	if rr.Name != nil {
		out.Name = *rr.Name
	}

	fields, err := rrdata.Decode(class, rrtype, rr.Rdata)
	if err != nil {
		return domain.ResourceRecord{}, err
	}
	out.Rdata = make(map[string]string, len(fields))
	for _, f := range fields {
		out.Rdata[f.Key] = f.Value
	}
	return out, nil
}

// rcodeNames overrides RcodeToString where a code has two IANA names.
// 16 is BADVERS in a response header and BADSIG only inside TSIG records.
var rcodeNames = map[uint32]string{
	dns.RcodeBadVers: "BADVERS",
}

// ReturnCode renders a response code. 65536 is the PowerDNS marker for a
// query that got no answer; unassigned codes render as decimal text.
func ReturnCode(rc uint32) (string, error) {
	switch {
	case rc == domain.NetworkErrorRCode:
		return "NETWORK_ERROR", nil
	case rc > domain.NetworkErrorRCode:
		return "", fmt.Errorf("rcode %d: %w", rc, domain.ErrRCodeRange)
	}
	if name, ok := rcodeNames[rc]; ok {
		return name, nil
	}
	if name, ok := dns.RcodeToString[int(rc)]; ok {
		return name, nil
	}
	return strconv.FormatUint(uint64(rc), 10), nil
}

// address renders a socket address. An absent address is NoAddress.
func address(which string, b []byte, family *uint32) (string, error) {
	if len(b) == 0 {
		return domain.NoAddress, nil
	}
	if family != nil {
		if want := domain.SocketFamily(*family).AddressLen(); len(b) != want {
			return "", fmt.Errorf("%s address has %d bytes, family wants %d: %w", which, len(b), want, domain.ErrBadAddress)
		}
	}
	text, ok := ipText(b)
	if !ok {
		return "", fmt.Errorf("%s address has %d bytes: %w", which, len(b), domain.ErrBadAddress)
	}
	return text, nil
}

func ipText(b []byte) (string, bool) {
	if len(b) != 4 && len(b) != 16 {
		return "", false
	}
	ip, ok := netip.AddrFromSlice(b)
	if !ok {
		return "", false
	}
	return ip.String(), true
}

func micros(sec, usec *uint32) int64 {
	return int64(deref(sec))*1_000_000 + int64(deref(usec))
}

func isoTime(us int64) string {
	t := time.UnixMicro(us).UTC()
	if t.Nanosecond() == 0 {
		return t.Format(isoSeconds) + utcOffset
	}
	return t.Format(isoMicros) + utcOffset
}

func deref(v *uint32) uint32 {
	if v == nil {
		return 0
	}
	return *v
}

func ptr[T any](v T) *T { return &v }
