package rrdata

import (
	"testing"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func toMap(fs []Field) map[string]string {
	m := make(map[string]string, len(fs))
	for _, f := range fs {
		m[f.Key] = f.Value
	}
	return m
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name   string
		rrtype uint16
		rdata  []byte
		want   map[string]string
	}{
		{
			name:   "A from wire",
			rrtype: dns.TypeA,
			rdata:  []byte{93, 184, 216, 34},
			want:   map[string]string{"address": "93.184.216.34"},
		},
		{
			name:   "AAAA from wire",
			rrtype: dns.TypeAAAA,
			rdata:  []byte{0x20, 0x01, 0x0d, 0xb8, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 1},
			want:   map[string]string{"address": "2001:db8::1"},
		},
		{
			name:   "CNAME from text",
			rrtype: dns.TypeCNAME,
			rdata:  []byte("edge.example.net."),
			want:   map[string]string{"target": "edge.example.net."},
		},
		{
			name:   "NS from text",
			rrtype: dns.TypeNS,
			rdata:  []byte("ns1.example.com."),
			want:   map[string]string{"target": "ns1.example.com."},
		},
		{
			name:   "PTR from text",
			rrtype: dns.TypePTR,
			rdata:  []byte("host.example.com."),
			want:   map[string]string{"target": "host.example.com."},
		},
		{
			name:   "MX from full text",
			rrtype: dns.TypeMX,
			rdata:  []byte("10 mx.example.com."),
			want:   map[string]string{"preference": "10", "exchange": "mx.example.com."},
		},
		{
			name:   "MX without preference",
			rrtype: dns.TypeMX,
			rdata:  []byte("mx.example.com."),
			want:   map[string]string{"exchange": "mx.example.com."},
		},
		{
			name:   "MX from wire",
			rrtype: dns.TypeMX,
			rdata:  []byte{0xff, 0xff, 0x02, 'm', 'x', 0x00},
			want:   map[string]string{"preference": "65535", "exchange": "mx."},
		},
		{
			name:   "SRV from full text",
			rrtype: dns.TypeSRV,
			rdata:  []byte("0 5 5060 sip.example.com."),
			want:   map[string]string{"priority": "0", "weight": "5", "port": "5060", "target": "sip.example.com."},
		},
		{
			name:   "SRV target only",
			rrtype: dns.TypeSRV,
			rdata:  []byte("sip.example.com."),
			want:   map[string]string{"target": "sip.example.com."},
		},
		{
			name:   "TXT strings joined",
			rrtype: dns.TypeTXT,
			rdata:  []byte(`"v=spf1" "-all"`),
			want:   map[string]string{"strings": "v=spf1 -all"},
		},
		{
			name:   "SOA from text",
			rrtype: dns.TypeSOA,
			rdata:  []byte("ns1.example.com. hostmaster.example.com. 2024010101 7200 3600 1209600 300"),
			want: map[string]string{
				"mname":   "ns1.example.com.",
				"rname":   "hostmaster.example.com.",
				"serial":  "2024010101",
				"refresh": "7200",
				"retry":   "3600",
				"expire":  "1209600",
				"minimum": "300",
			},
		},
		{
			name:   "CAA from text",
			rrtype: dns.TypeCAA,
			rdata:  []byte(`0 issue "letsencrypt.org"`),
			want:   map[string]string{"flags": "0", "tag": "issue", "value": "letsencrypt.org"},
		},
		{
			name:   "other type keeps presentation data",
			rrtype: dns.TypeHINFO,
			rdata:  []byte(`"amd64" "linux"`),
			want:   map[string]string{"data": `"amd64" "linux"`},
		},
		{
			name:   "empty rdata",
			rrtype: dns.TypeA,
			rdata:  nil,
			want:   map[string]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(dns.ClassINET, tt.rrtype, tt.rdata)
			require.NoError(t, err)
			assert.Equal(t, tt.want, toMap(got))
		})
	}
}

func TestDecode_FieldOrder(t *testing.T) {
	got, err := Decode(dns.ClassINET, dns.TypeMX, []byte("20 mail.example.com."))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "preference", got[0].Key)
	assert.Equal(t, "exchange", got[1].Key)
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name   string
		rrtype uint16
		rdata  []byte
	}{
		{name: "short A", rrtype: dns.TypeA, rdata: []byte{10, 0, 1}},
		{name: "CNAME garbage not utf8", rrtype: dns.TypeCNAME, rdata: []byte{0xff, 0xfe}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(dns.ClassINET, tt.rrtype, tt.rdata)
			assert.ErrorIs(t, err, ErrUndecodable)
		})
	}
}

func TestTypeAndClassText(t *testing.T) {
	assert.Equal(t, "A", TypeText(1))
	assert.Equal(t, "AAAA", TypeText(28))
	assert.Equal(t, "TYPE65280", TypeText(65280))
	assert.Equal(t, "IN", ClassText(1))
	assert.Equal(t, "CH", ClassText(3))
	assert.Equal(t, "CLASS77", ClassText(77))
}
