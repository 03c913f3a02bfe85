package domain

import "fmt"

// MessageType is the PBDNSMessage.Type enumeration.
type MessageType uint32

const (
	MessageClientQuery    MessageType = 1 // DNSQueryType
	MessageClientResponse MessageType = 2 // DNSResponseType
	MessageAuthQuery      MessageType = 3 // DNSOutgoingQueryType
	MessageAuthResponse   MessageType = 4 // DNSIncomingResponseType
)

var messageTypeNames = map[MessageType]string{
	MessageClientQuery:    "CLIENT_QUERY",
	MessageClientResponse: "CLIENT_RESPONSE",
	MessageAuthQuery:      "AUTH_QUERY",
	MessageAuthResponse:   "AUTH_RESPONSE",
}

// Text returns the label of the message type.
func (t MessageType) Text() (string, error) {
	return lookup("type", messageTypeNames, t)
}

// IsQuery reports whether the message describes a query (client or outgoing).
func (t MessageType) IsQuery() bool {
	return t == MessageClientQuery || t == MessageAuthQuery
}

// IsResponse reports whether the message describes a response.
func (t MessageType) IsResponse() bool {
	return t == MessageClientResponse || t == MessageAuthResponse
}

// SocketFamily is the PBDNSMessage.SocketFamily enumeration.
type SocketFamily uint32

const (
	FamilyINET  SocketFamily = 1
	FamilyINET6 SocketFamily = 2
)

var socketFamilyNames = map[SocketFamily]string{
	FamilyINET:  "IPv4",
	FamilyINET6: "IPv6",
}

// Text returns the label of the socket family.
func (f SocketFamily) Text() (string, error) {
	return lookup("socket family", socketFamilyNames, f)
}

// AddressLen is the byte length of an address of this family.
func (f SocketFamily) AddressLen() int {
	switch f {
	case FamilyINET:
		return 4
	case FamilyINET6:
		return 16
	default:
		return 0
	}
}

// SocketProtocol is the PBDNSMessage.SocketProtocol enumeration.
type SocketProtocol uint32

var socketProtocolNames = map[SocketProtocol]string{
	1: "UDP",
	2: "TCP",
	3: "DOT",
	4: "DOH",
	5: "DNSCryptUDP",
	6: "DNSCryptTCP",
	7: "DOQ",
}

// Text returns the label of the transport protocol.
func (p SocketProtocol) Text() (string, error) {
	return lookup("socket protocol", socketProtocolNames, p)
}

// PolicyType is the PBDNSMessage.PolicyType enumeration (RPZ trigger kind).
type PolicyType uint32

var policyTypeNames = map[PolicyType]string{
	1: "UNKNOWN",
	2: "QNAME",
	3: "CLIENTIP",
	4: "RESPONSEIP",
	5: "NSDNAME",
	6: "NSIP",
}

// Text returns the label of the policy type.
func (p PolicyType) Text() (string, error) {
	return lookup("policy type", policyTypeNames, p)
}

func lookup[K ~uint32](field string, table map[K]string, v K) (string, error) {
	if name, ok := table[v]; ok {
		return name, nil
	}
	return "", fmt.Errorf("%s %d: %w", field, uint32(v), ErrUnknownEnum)
}
