package pbdns

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// ErrMalformed is returned when a payload does not match the PBDNSMessage schema.
var ErrMalformed = errors.New("pbdns: malformed message")

// Codec adapts Unmarshal to the dispatch pipeline's decoder interface.
type Codec struct{}

// Decode unmarshals one length-delimited payload.
func (Codec) Decode(payload []byte) (*Message, error) {
	return Unmarshal(payload)
}

// Unmarshal decodes a serialized PBDNSMessage. Unknown fields are skipped;
// a known field with the wrong wire type or a truncated field is an error.
func Unmarshal(b []byte) (*Message, error) {
	m := &Message{}
	err := walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case fieldType:
			return setUint32(&m.Type, num, typ, b)
		case fieldMessageID:
			return setBytes(&m.MessageID, num, typ, b)
		case fieldServerIdentity:
			return setBytes(&m.ServerIdentity, num, typ, b)
		case fieldSocketFamily:
			return setUint32(&m.SocketFamily, num, typ, b)
		case fieldSocketProtocol:
			return setUint32(&m.SocketProtocol, num, typ, b)
		case fieldFrom:
			return setBytes(&m.From, num, typ, b)
		case fieldTo:
			return setBytes(&m.To, num, typ, b)
		case fieldInBytes:
			return setUint64(&m.InBytes, num, typ, b)
		case fieldTimeSec:
			return setUint32(&m.TimeSec, num, typ, b)
		case fieldTimeUsec:
			return setUint32(&m.TimeUsec, num, typ, b)
		case fieldID:
			return setUint32(&m.ID, num, typ, b)
		case fieldQuestion:
			if m.Question == nil {
				m.Question = &Question{}
			}
			return nested(num, typ, b, m.Question.unmarshal)
		case fieldResponse:
			if m.Response == nil {
				m.Response = &Response{}
			}
			return nested(num, typ, b, m.Response.unmarshal)
		case fieldOriginalRequestorSubnet:
			return setBytes(&m.OriginalRequestorSubnet, num, typ, b)
		case fieldRequestorID:
			return setString(&m.RequestorID, num, typ, b)
		case fieldInitialRequestID:
			return setBytes(&m.InitialRequestID, num, typ, b)
		case fieldDeviceID:
			return setBytes(&m.DeviceID, num, typ, b)
		case fieldNewlyObservedDomain:
			return setBool(&m.NewlyObservedDomain, num, typ, b)
		case fieldDeviceName:
			return setString(&m.DeviceName, num, typ, b)
		case fieldFromPort:
			return setUint32(&m.FromPort, num, typ, b)
		case fieldToPort:
			return setUint32(&m.ToPort, num, typ, b)
		default:
			return skip(num, typ, b)
		}
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (q *Question) unmarshal(b []byte) error {
	return walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case questionName:
			return setString(&q.QName, num, typ, b)
		case questionType:
			return setUint32(&q.QType, num, typ, b)
		case questionClass:
			return setUint32(&q.QClass, num, typ, b)
		default:
			return skip(num, typ, b)
		}
	})
}

func (r *Response) unmarshal(b []byte) error {
	return walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case responseRCode:
			return setUint32(&r.RCode, num, typ, b)
		case responseRRs:
			var rr RR
			n, err := nested(num, typ, b, rr.unmarshal)
			if err == nil {
				r.RRs = append(r.RRs, rr)
			}
			return n, err
		case responseAppliedPolicy:
			return setString(&r.AppliedPolicy, num, typ, b)
		case responseTags:
			var tag *string
			n, err := setString(&tag, num, typ, b)
			if err == nil {
				r.Tags = append(r.Tags, *tag)
			}
			return n, err
		case responseQueryTimeSec:
			return setUint32(&r.QueryTimeSec, num, typ, b)
		case responseQueryTimeUsec:
			return setUint32(&r.QueryTimeUsec, num, typ, b)
		case responseAppliedPolicyType:
			return setUint32(&r.AppliedPolicyType, num, typ, b)
		case responseAppliedPolicyTrigger:
			return setString(&r.AppliedPolicyTrigger, num, typ, b)
		case responseAppliedPolicyHit:
			return setString(&r.AppliedPolicyHit, num, typ, b)
		default:
			return skip(num, typ, b)
		}
	})
}

func (rr *RR) unmarshal(b []byte) error {
	return walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case rrName:
			return setString(&rr.Name, num, typ, b)
		case rrType:
			return setUint32(&rr.Type, num, typ, b)
		case rrClass:
			return setUint32(&rr.Class, num, typ, b)
		case rrTTL:
			return setUint32(&rr.TTL, num, typ, b)
		case rrRdata:
			return setBytes(&rr.Rdata, num, typ, b)
		case rrUDR:
			return setBool(&rr.UDR, num, typ, b)
		default:
			return skip(num, typ, b)
		}
	})
}

// fieldFunc consumes the value of one field and returns its length.
type fieldFunc func(num protowire.Number, typ protowire.Type, b []byte) (int, error)

func walk(b []byte, fn fieldFunc) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return malformed(0, protowire.ParseError(n))
		}
		b = b[n:]
		n, err := fn(num, typ, b)
		if err != nil {
			return err
		}
		b = b[n:]
	}
	return nil
}

func malformed(num protowire.Number, cause error) error {
	return fmt.Errorf("%w: field %d: %v", ErrMalformed, num, cause)
}

func wrongType(num protowire.Number, got protowire.Type) error {
	return fmt.Errorf("%w: field %d: unexpected wire type %d", ErrMalformed, num, got)
}

func skip(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
	n := protowire.ConsumeFieldValue(num, typ, b)
	if n < 0 {
		return 0, malformed(num, protowire.ParseError(n))
	}
	return n, nil
}

func varint(num protowire.Number, typ protowire.Type, b []byte) (uint64, int, error) {
	if typ != protowire.VarintType {
		return 0, 0, wrongType(num, typ)
	}
	v, n := protowire.ConsumeVarint(b)
	if n < 0 {
		return 0, 0, malformed(num, protowire.ParseError(n))
	}
	return v, n, nil
}

func lengthDelimited(num protowire.Number, typ protowire.Type, b []byte) ([]byte, int, error) {
	if typ != protowire.BytesType {
		return nil, 0, wrongType(num, typ)
	}
	v, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return nil, 0, malformed(num, protowire.ParseError(n))
	}
	return v, n, nil
}

func nested(num protowire.Number, typ protowire.Type, b []byte, unmarshal func([]byte) error) (int, error) {
	v, n, err := lengthDelimited(num, typ, b)
	if err != nil {
		return 0, err
	}
	if err := unmarshal(v); err != nil {
		return 0, err
	}
	return n, nil
}

func setUint32(dst **uint32, num protowire.Number, typ protowire.Type, b []byte) (int, error) {
	v, n, err := varint(num, typ, b)
	if err != nil {
		return 0, err
	}
	x := uint32(v)
	*dst = &x
	return n, nil
}

func setUint64(dst **uint64, num protowire.Number, typ protowire.Type, b []byte) (int, error) {
	v, n, err := varint(num, typ, b)
	if err != nil {
		return 0, err
	}
	*dst = &v
	return n, nil
}

func setBool(dst **bool, num protowire.Number, typ protowire.Type, b []byte) (int, error) {
	v, n, err := varint(num, typ, b)
	if err != nil {
		return 0, err
	}
	x := protowire.DecodeBool(v)
	*dst = &x
	return n, nil
}

func setString(dst **string, num protowire.Number, typ protowire.Type, b []byte) (int, error) {
	v, n, err := lengthDelimited(num, typ, b)
	if err != nil {
		return 0, err
	}
	s := string(v)
	*dst = &s
	return n, nil
}

// setBytes copies the value so the message never aliases the frame buffer.
func setBytes(dst *[]byte, num protowire.Number, typ protowire.Type, b []byte) (int, error) {
	v, n, err := lengthDelimited(num, typ, b)
	if err != nil {
		return 0, err
	}
	*dst = append([]byte{}, v...)
	return n, nil
}
