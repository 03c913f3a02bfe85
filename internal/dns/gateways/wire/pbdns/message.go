// Package pbdns decodes the PowerDNS protobuf logging message (PBDNSMessage,
// dnsmessage.proto). The schema is proto2: presence is explicit, so scalar
// fields are pointers and bytes fields are nil when the sender omitted them.
package pbdns

// Message is one decoded PBDNSMessage. Every Unmarshal call returns a fresh
// value; nothing is shared between messages.
type Message struct {
	Type                    *uint32
	MessageID               []byte
	ServerIdentity          []byte
	SocketFamily            *uint32
	SocketProtocol          *uint32
	From                    []byte
	To                      []byte
	InBytes                 *uint64
	TimeSec                 *uint32
	TimeUsec                *uint32
	ID                      *uint32
	Question                *Question
	Response                *Response
	OriginalRequestorSubnet []byte
	RequestorID             *string
	InitialRequestID        []byte
	DeviceID                []byte
	NewlyObservedDomain     *bool
	DeviceName              *string
	FromPort                *uint32
	ToPort                  *uint32
}

// Question is PBDNSMessage.DNSQuestion.
type Question struct {
	QName  *string
	QType  *uint32
	QClass *uint32
}

// Response is PBDNSMessage.DNSResponse.
type Response struct {
	RCode                *uint32
	RRs                  []RR
	AppliedPolicy        *string
	Tags                 []string
	QueryTimeSec         *uint32
	QueryTimeUsec        *uint32
	AppliedPolicyType    *uint32
	AppliedPolicyTrigger *string
	AppliedPolicyHit     *string
}

// RR is PBDNSMessage.DNSResponse.DNSRR. Rdata is wire format for A and
// AAAA records and presentation text for everything else.
type RR struct {
	Name  *string
	Type  *uint32
	Class *uint32
	TTL   *uint32
	Rdata []byte
	UDR   *bool
}

// QName returns the question name or "" when absent.
func (m *Message) QName() string {
	if m == nil || m.Question == nil || m.Question.QName == nil {
		return ""
	}
	return *m.Question.QName
}

// Field numbers of dnsmessage.proto.
const (
	fieldType                    = 1
	fieldMessageID               = 2
	fieldServerIdentity          = 3
	fieldSocketFamily            = 4
	fieldSocketProtocol          = 5
	fieldFrom                    = 6
	fieldTo                      = 7
	fieldInBytes                 = 8
	fieldTimeSec                 = 9
	fieldTimeUsec                = 10
	fieldID                      = 11
	fieldQuestion                = 12
	fieldResponse                = 13
	fieldOriginalRequestorSubnet = 14
	fieldRequestorID             = 15
	fieldInitialRequestID        = 16
	fieldDeviceID                = 17
	fieldNewlyObservedDomain     = 18
	fieldDeviceName              = 19
	fieldFromPort                = 20
	fieldToPort                  = 21

	questionName  = 1
	questionType  = 2
	questionClass = 3

	responseRCode                = 1
	responseRRs                  = 2
	responseAppliedPolicy        = 3
	responseTags                 = 4
	responseQueryTimeSec         = 5
	responseQueryTimeUsec        = 6
	responseAppliedPolicyType    = 7
	responseAppliedPolicyTrigger = 8
	responseAppliedPolicyHit     = 9

	rrName  = 1
	rrType  = 2
	rrClass = 3
	rrTTL   = 4
	rrRdata = 5
	rrUDR   = 6
)
