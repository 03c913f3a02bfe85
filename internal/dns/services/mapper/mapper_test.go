package mapper

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"

	"github.com/haukened/pbdns-relay/internal/dns/domain"
	"github.com/haukened/pbdns-relay/internal/dns/gateways/wire/pbdns"
)

func clientQuery() *pbdns.Message {
	return &pbdns.Message{
		Type:           proto.Uint32(1),
		MessageID:      []byte{0xde, 0xad, 0xbe, 0xef},
		ServerIdentity: []byte("rec01"),
		SocketFamily:   proto.Uint32(1),
		SocketProtocol: proto.Uint32(1),
		From:           []byte{192, 0, 2, 10},
		To:             []byte{192, 0, 2, 53},
		InBytes:        proto.Uint64(42),
		TimeSec:        proto.Uint32(10),
		TimeUsec:       proto.Uint32(500000),
		ID:             proto.Uint32(4660),
		Question: &pbdns.Question{
			QName:  proto.String("example.com."),
			QType:  proto.Uint32(1),
			QClass: proto.Uint32(1),
		},
		FromPort: proto.Uint32(53000),
		ToPort:   proto.Uint32(53),
	}
}

func clientResponse() *pbdns.Message {
	m := clientQuery()
	m.Type = proto.Uint32(2)
	m.TimeSec = proto.Uint32(11)
	m.TimeUsec = proto.Uint32(250000)
	m.Response = &pbdns.Response{
		RCode:         proto.Uint32(0),
		QueryTimeSec:  proto.Uint32(10),
		QueryTimeUsec: proto.Uint32(500000),
		RRs: []pbdns.RR{{
			Name:  proto.String("example.com."),
			Type:  proto.Uint32(1),
			Class: proto.Uint32(1),
			TTL:   proto.Uint32(300),
			Rdata: []byte{93, 184, 216, 34},
		}},
	}
	return m
}

func TestMap_ClientQuery(t *testing.T) {
	doc, err := Map(clientQuery())
	require.NoError(t, err)

	assert.Equal(t, "CLIENT_QUERY", doc.MessageType)
	assert.Equal(t, "deadbeef", *doc.MessageID)
	assert.Equal(t, "rec01", *doc.ServerIdentity)
	assert.Equal(t, "IPv4", *doc.SocketFamily)
	assert.Equal(t, "UDP", *doc.SocketProtocol)
	assert.Equal(t, "192.0.2.10", doc.FromAddress)
	assert.Equal(t, "192.0.2.53", doc.ToAddress)
	assert.Equal(t, uint64(42), *doc.Bytes)
	assert.Equal(t, uint32(4660), *doc.DNSID)
	assert.Equal(t, "example.com.", *doc.Query.Name)
	assert.Equal(t, "A", *doc.Query.Type)
	assert.Equal(t, "IN", *doc.Query.Class)
	assert.Equal(t, uint32(53000), *doc.FromPort)
	assert.Equal(t, uint32(53), *doc.ToPort)
	assert.Equal(t, "1970-01-01T00:00:10.500000+00:00", doc.QueryTime)
	assert.Equal(t, "1970-01-01T00:00:00+00:00", doc.ResponseTime)
	assert.Zero(t, doc.Latency)
	assert.Nil(t, doc.Response)
}

func TestMap_ClientResponse(t *testing.T) {
	doc, err := Map(clientResponse())
	require.NoError(t, err)

	assert.Equal(t, "CLIENT_RESPONSE", doc.MessageType)
	assert.Equal(t, "1970-01-01T00:00:10.500000+00:00", doc.QueryTime)
	assert.Equal(t, "1970-01-01T00:00:11.250000+00:00", doc.ResponseTime)
	assert.Equal(t, 0.75, doc.Latency)

	require.NotNil(t, doc.Response)
	assert.Equal(t, "NOERROR", *doc.Response.ReturnCode)
	require.Len(t, doc.Response.RRs, 1)
	rr := doc.Response.RRs[0]
	assert.Equal(t, "example.com.", rr.Name)
	assert.Equal(t, "A", rr.Type)
	assert.Equal(t, "IN", rr.Class)
	assert.Equal(t, uint32(300), rr.TTL)
	assert.Equal(t, map[string]string{"address": "93.184.216.34"}, rr.Rdata)
	assert.Nil(t, rr.UDR)
}

func TestMap_LatencyIsExactToTheMicrosecond(t *testing.T) {
	m := clientResponse()
	m.TimeSec = proto.Uint32(1700000000)
	m.TimeUsec = proto.Uint32(123457)
	m.Response.QueryTimeSec = proto.Uint32(1700000000)
	m.Response.QueryTimeUsec = proto.Uint32(123456)

	doc, err := Map(m)
	require.NoError(t, err)
	assert.Equal(t, 0.000001, doc.Latency)
	assert.Equal(t, "2023-11-14T22:13:20.123457+00:00", doc.ResponseTime)
}

func TestMap_MissingRequestTimeRendersEpoch(t *testing.T) {
	m := clientResponse()
	m.Response.QueryTimeSec = nil
	m.Response.QueryTimeUsec = nil

	doc, err := Map(m)
	require.NoError(t, err)
	assert.Equal(t, "1970-01-01T00:00:00+00:00", doc.QueryTime)
	assert.Equal(t, 11.25, doc.Latency)
}

func TestMap_AbsentFieldsAreOmitted(t *testing.T) {
	doc, err := Map(&pbdns.Message{Type: proto.Uint32(1)})
	require.NoError(t, err)

	assert.Equal(t, domain.NoAddress, doc.FromAddress)
	assert.Equal(t, domain.NoAddress, doc.ToAddress)

	raw, err := json.Marshal(doc)
	require.NoError(t, err)
	var got map[string]any
	require.NoError(t, json.Unmarshal(raw, &got))

	for _, key := range []string{"message_id", "server_identity", "socket_family", "socket_protocol", "bytes", "dns_id", "requestor_id", "device_name", "from_port", "to_port", "response", "nod"} {
		assert.NotContains(t, got, key)
	}
	for _, key := range []string{"dns_message", "from_address", "to_address", "query", "query_time", "response_time", "latency"} {
		assert.Contains(t, got, key)
	}
	assert.Equal(t, map[string]any{}, got["query"])
}

func TestMap_OptionalFields(t *testing.T) {
	m := clientQuery()
	m.OriginalRequestorSubnet = []byte{198, 51, 100, 0}
	m.RequestorID = proto.String("alice")
	m.InitialRequestID = []byte{0x01, 0xab}
	m.DeviceID = []byte("dev-1")
	m.DeviceName = proto.String("laptop")
	m.NewlyObservedDomain = proto.Bool(true)

	doc, err := Map(m)
	require.NoError(t, err)
	assert.Equal(t, "198.51.100.0", *doc.OriginalRequestorSubnet)
	assert.Equal(t, "alice", *doc.RequestorID)
	assert.Equal(t, "01ab", *doc.InitialRequestID)
	assert.Equal(t, "dev-1", *doc.DeviceID)
	assert.Equal(t, "laptop", *doc.DeviceName)
	assert.True(t, *doc.NewlyObservedDomain)

	m.OriginalRequestorSubnet = []byte{10, 0}
	doc, err = Map(m)
	require.NoError(t, err)
	assert.Nil(t, doc.OriginalRequestorSubnet)
}

func TestMap_Addresses(t *testing.T) {
	v6 := []byte{0x20, 0x01, 0x0d, 0xb8, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 2}

	tests := []struct {
		name    string
		family  *uint32
		from    []byte
		want    string
		wantErr error
	}{
		{name: "ipv6", family: proto.Uint32(2), from: v6, want: "2001:db8::2"},
		{name: "empty is sentinel", family: proto.Uint32(2), from: []byte{}, want: domain.NoAddress},
		{name: "no family decodes by length", from: v6, want: "2001:db8::2"},
		{name: "no family ipv4", from: []byte{127, 0, 0, 1}, want: "127.0.0.1"},
		{name: "length contradicts family", family: proto.Uint32(1), from: v6, wantErr: domain.ErrBadAddress},
		{name: "odd length", from: []byte{1, 2, 3}, wantErr: domain.ErrBadAddress},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &pbdns.Message{Type: proto.Uint32(1), SocketFamily: tt.family, From: tt.from}
			doc, err := Map(m)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, doc.FromAddress)
		})
	}
}

func TestMap_Errors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*pbdns.Message)
		wantErr error
	}{
		{name: "missing type", mutate: func(m *pbdns.Message) { m.Type = nil }, wantErr: domain.ErrMissingType},
		{name: "unknown type", mutate: func(m *pbdns.Message) { m.Type = proto.Uint32(9) }, wantErr: domain.ErrUnknownEnum},
		{name: "unknown family", mutate: func(m *pbdns.Message) { m.SocketFamily = proto.Uint32(3) }, wantErr: domain.ErrUnknownEnum},
		{name: "unknown protocol", mutate: func(m *pbdns.Message) { m.SocketProtocol = proto.Uint32(8) }, wantErr: domain.ErrUnknownEnum},
		{name: "unknown policy type", mutate: func(m *pbdns.Message) { m.Response.AppliedPolicyType = proto.Uint32(7) }, wantErr: domain.ErrUnknownEnum},
		{name: "rcode past network error", mutate: func(m *pbdns.Message) { m.Response.RCode = proto.Uint32(65537) }, wantErr: domain.ErrRCodeRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := clientResponse()
			tt.mutate(m)
			doc, err := Map(m)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, doc)
		})
	}

	_, err := Map(nil)
	assert.ErrorIs(t, err, domain.ErrMissingType)
}

func TestReturnCode(t *testing.T) {
	tests := []struct {
		rc   uint32
		want string
	}{
		{rc: 0, want: "NOERROR"},
		{rc: 2, want: "SERVFAIL"},
		{rc: 3, want: "NXDOMAIN"},
		{rc: 5, want: "REFUSED"},
		{rc: 16, want: "BADVERS"},
		{rc: 17, want: "BADKEY"},
		{rc: 23, want: "BADCOOKIE"},
		{rc: 4000, want: "4000"},
		{rc: 65536, want: "NETWORK_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			got, err := ReturnCode(tt.rc)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMap_ResponsePolicyAndRecords(t *testing.T) {
	m := clientResponse()
	m.Response.RCode = proto.Uint32(65536)
	m.Response.AppliedPolicy = proto.String("rpz.example")
	m.Response.AppliedPolicyType = proto.Uint32(6)
	m.Response.AppliedPolicyTrigger = proto.String("192.0.2.0/24")
	m.Response.AppliedPolicyHit = proto.String("192.0.2.1")
	m.Response.Tags = []string{"blocked", "kids"}
	m.Response.RRs = append(m.Response.RRs, pbdns.RR{
		Name:  proto.String("example.com."),
		Type:  proto.Uint32(15),
		Class: proto.Uint32(1),
		TTL:   proto.Uint32(60),
		Rdata: []byte("mail.example.com."),
		UDR:   proto.Bool(true),
	})

	doc, err := Map(m)
	require.NoError(t, err)
	rsp := doc.Response
	assert.Equal(t, "NETWORK_ERROR", *rsp.ReturnCode)
	assert.Equal(t, "rpz.example", *rsp.AppliedPolicy)
	assert.Equal(t, "NSIP", *rsp.AppliedPolicyType)
	assert.Equal(t, "192.0.2.0/24", *rsp.AppliedPolicyTrigger)
	assert.Equal(t, "192.0.2.1", *rsp.AppliedPolicyHit)
	assert.Equal(t, []string{"blocked", "kids"}, rsp.Tags)

	require.Len(t, rsp.RRs, 2)
	mx := rsp.RRs[1]
	assert.Equal(t, "MX", mx.Type)
	assert.Equal(t, map[string]string{"exchange": "mail.example.com."}, mx.Rdata)
	require.NotNil(t, mx.UDR)
	assert.True(t, *mx.UDR)
}

func TestMap_ResponseWithoutOptionalParts(t *testing.T) {
	m := clientResponse()
	m.Response.RCode = nil
	m.Response.RRs = nil

	doc, err := Map(m)
	require.NoError(t, err)

	raw, err := json.Marshal(doc.Response)
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(raw))
}

func TestMap_DoesNotMutateInput(t *testing.T) {
	m := clientResponse()
	before := pbdns.Marshal(m)
	_, err := New().Map(m)
	require.NoError(t, err)
	assert.Equal(t, before, pbdns.Marshal(m))
}
