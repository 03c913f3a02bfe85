// Package domain holds the canonical document emitted for every relayed
// DNS telemetry message, plus the closed enumerations of the wire schema.
package domain

const (
	// NoAddress is recorded for socket endpoints the message did not carry.
	NoAddress = "0.0.0.0"

	// NetworkErrorRCode is the out-of-band return code PowerDNS uses when no
	// DNS answer was received at all.
	NetworkErrorRCode = 65536
)

// Document is the normalized JSON record emitted once per decoded message.
// Pointer fields are optional: nil means the wire message did not carry the
// field and the key is omitted from the output.
type Document struct {
	MessageType             string    `json:"dns_message"`
	MessageID               *string   `json:"message_id,omitempty"`
	ServerIdentity          *string   `json:"server_identity,omitempty"`
	SocketFamily            *string   `json:"socket_family,omitempty"`
	SocketProtocol          *string   `json:"socket_protocol,omitempty"`
	FromAddress             string    `json:"from_address"`
	ToAddress               string    `json:"to_address"`
	Bytes                   *uint64   `json:"bytes,omitempty"`
	DNSID                   *uint32   `json:"dns_id,omitempty"`
	OriginalRequestorSubnet *string   `json:"original_requestor_subnet,omitempty"`
	RequestorID             *string   `json:"requestor_id,omitempty"`
	InitialRequestID        *string   `json:"initial_request_id,omitempty"`
	DeviceID                *string   `json:"device_id,omitempty"`
	NewlyObservedDomain     *bool     `json:"nod,omitempty"`
	DeviceName              *string   `json:"device_name,omitempty"`
	FromPort                *uint32   `json:"from_port,omitempty"`
	ToPort                  *uint32   `json:"to_port,omitempty"`
	Query                   Query     `json:"query"`
	Response                *Response `json:"response,omitempty"`
	QueryTime               string    `json:"query_time"`
	ResponseTime            string    `json:"response_time"`
	Latency                 float64   `json:"latency"`
}

// Query is the question section of a document.
type Query struct {
	Name  *string `json:"name,omitempty"`
	Type  *string `json:"type,omitempty"`
	Class *string `json:"class,omitempty"`
}

// Response carries the response-only fields; it is set for response-class
// messages only.
type Response struct {
	ReturnCode           *string          `json:"return_code,omitempty"`
	AppliedPolicy        *string          `json:"applied_policy,omitempty"`
	Tags                 []string         `json:"tags,omitempty"`
	AppliedPolicyType    *string          `json:"applied_policy_type,omitempty"`
	AppliedPolicyTrigger *string          `json:"applied_policy_trigger,omitempty"`
	AppliedPolicyHit     *string          `json:"applied_policy_hit,omitempty"`
	RRs                  []ResourceRecord `json:"rrs,omitempty"`
}

// ResourceRecord is one answer record of a response document.
type ResourceRecord struct {
	Name  string            `json:"name"`
	Type  string            `json:"type"`
	Class string            `json:"class"`
	TTL   uint32            `json:"ttl"`
	Rdata map[string]string `json:"rdata"`
	UDR   *bool             `json:"udr,omitempty"`
}
