package pbdns

import "google.golang.org/protobuf/encoding/protowire"

// Marshal serializes m, emitting only the fields that are present.
func Marshal(m *Message) []byte {
	var b []byte
	b = appendUint32(b, fieldType, m.Type)
	b = appendBytes(b, fieldMessageID, m.MessageID)
	b = appendBytes(b, fieldServerIdentity, m.ServerIdentity)
	b = appendUint32(b, fieldSocketFamily, m.SocketFamily)
	b = appendUint32(b, fieldSocketProtocol, m.SocketProtocol)
	b = appendBytes(b, fieldFrom, m.From)
	b = appendBytes(b, fieldTo, m.To)
	if m.InBytes != nil {
		b = protowire.AppendTag(b, fieldInBytes, protowire.VarintType)
		b = protowire.AppendVarint(b, *m.InBytes)
	}
	b = appendUint32(b, fieldTimeSec, m.TimeSec)
	b = appendUint32(b, fieldTimeUsec, m.TimeUsec)
	b = appendUint32(b, fieldID, m.ID)
	if q := m.Question; q != nil {
		qb := []byte{}
		qb = appendString(qb, questionName, q.QName)
		qb = appendUint32(qb, questionType, q.QType)
		qb = appendUint32(qb, questionClass, q.QClass)
		b = appendBytes(b, fieldQuestion, qb)
	}
	if r := m.Response; r != nil {
		b = appendBytes(b, fieldResponse, r.marshal())
	}
	b = appendBytes(b, fieldOriginalRequestorSubnet, m.OriginalRequestorSubnet)
	b = appendString(b, fieldRequestorID, m.RequestorID)
	b = appendBytes(b, fieldInitialRequestID, m.InitialRequestID)
	b = appendBytes(b, fieldDeviceID, m.DeviceID)
	b = appendBool(b, fieldNewlyObservedDomain, m.NewlyObservedDomain)
	b = appendString(b, fieldDeviceName, m.DeviceName)
	b = appendUint32(b, fieldFromPort, m.FromPort)
	b = appendUint32(b, fieldToPort, m.ToPort)
	return b
}

func (r *Response) marshal() []byte {
	b := []byte{}
	b = appendUint32(b, responseRCode, r.RCode)
	for _, rr := range r.RRs {
		var rb []byte
		rb = appendString(rb, rrName, rr.Name)
		rb = appendUint32(rb, rrType, rr.Type)
		rb = appendUint32(rb, rrClass, rr.Class)
		rb = appendUint32(rb, rrTTL, rr.TTL)
		rb = appendBytes(rb, rrRdata, rr.Rdata)
		rb = appendBool(rb, rrUDR, rr.UDR)
		b = protowire.AppendTag(b, responseRRs, protowire.BytesType)
		b = protowire.AppendBytes(b, rb)
	}
	b = appendString(b, responseAppliedPolicy, r.AppliedPolicy)
	for _, tag := range r.Tags {
		b = protowire.AppendTag(b, responseTags, protowire.BytesType)
		b = protowire.AppendString(b, tag)
	}
	b = appendUint32(b, responseQueryTimeSec, r.QueryTimeSec)
	b = appendUint32(b, responseQueryTimeUsec, r.QueryTimeUsec)
	b = appendUint32(b, responseAppliedPolicyType, r.AppliedPolicyType)
	b = appendString(b, responseAppliedPolicyTrigger, r.AppliedPolicyTrigger)
	b = appendString(b, responseAppliedPolicyHit, r.AppliedPolicyHit)
	return b
}

func appendUint32(b []byte, num protowire.Number, v *uint32) []byte {
	if v == nil {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, uint64(*v))
}

func appendBool(b []byte, num protowire.Number, v *bool) []byte {
	if v == nil {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, protowire.EncodeBool(*v))
}

func appendString(b []byte, num protowire.Number, v *string) []byte {
	if v == nil {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, *v)
}

func appendBytes(b []byte, num protowire.Number, v []byte) []byte {
	if v == nil {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}
