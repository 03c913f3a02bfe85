// Package rrdata turns resource-record data into named text fields.
//
// PowerDNS sends A and AAAA rdata in wire format and every other type in
// presentation format, so Decode parses text first and falls back to wire
// format when the bytes are not UTF-8. The key set of each type is fixed
// here rather than discovered at runtime.
package rrdata

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/miekg/dns"
)

// ErrUndecodable is returned when rdata is neither valid text nor valid wire data.
var ErrUndecodable = errors.New("rdata: cannot decode")

// Field is one decoded rdata attribute.
type Field struct {
	Key   string
	Value string
}

// TypeText returns the mnemonic of a record type, TYPEnnn when unassigned.
func TypeText(t uint16) string {
	return dns.Type(t).String()
}

// ClassText returns the mnemonic of a record class, CLASSnnn when unassigned.
func ClassText(c uint16) string {
	return dns.Class(c).String()
}

// Decode decodes rdata of the given class and type into its fields.
func Decode(class, rrtype uint16, rdata []byte) ([]Field, error) {
	if len(rdata) == 0 {
		return []Field{}, nil
	}

	if rrtype == dns.TypeA || rrtype == dns.TypeAAAA {
		rr, err := fromWire(class, rrtype, rdata)
		if err != nil {
			return nil, undecodable(class, rrtype, err)
		}
		return fields(rr), nil
	}

	if utf8.Valid(rdata) {
		text := string(rdata)
		rr, err := fromText(class, rrtype, text)
		if err == nil {
			return fields(rr), nil
		}
		// Recursors drop the numeric MX/SRV parts and only send the target name.
		switch rrtype {
		case dns.TypeMX:
			return []Field{{Key: "exchange", Value: text}}, nil
		case dns.TypeSRV:
			return []Field{{Key: "target", Value: text}}, nil
		}
	}

	rr, err := fromWire(class, rrtype, rdata)
	if err != nil {
		return nil, undecodable(class, rrtype, err)
	}
	return fields(rr), nil
}

func undecodable(class, rrtype uint16, cause error) error {
	return fmt.Errorf("%w: %s %s: %v", ErrUndecodable, ClassText(class), TypeText(rrtype), cause)
}

func fromWire(class, rrtype uint16, rdata []byte) (dns.RR, error) {
	hdr := dns.RR_Header{
		Name:     ".",
		Rrtype:   rrtype,
		Class:    class,
		Rdlength: uint16(len(rdata)),
	}
	rr, _, err := dns.UnpackRRWithHeader(hdr, rdata, 0)
	if err != nil {
		return nil, err
	}
	return rr, nil
}

func fromText(class, rrtype uint16, text string) (dns.RR, error) {
	if strings.ContainsAny(text, "\n\r") {
		return nil, errors.New("multi-line rdata")
	}
	rr, err := dns.NewRR(fmt.Sprintf(". 0 %s %s %s", ClassText(class), TypeText(rrtype), text))
	if err != nil {
		return nil, err
	}
	if rr == nil || rr.Header().Rrtype != rrtype {
		return nil, errors.New("no record parsed")
	}
	return rr, nil
}

func fields(rr dns.RR) []Field {
	switch v := rr.(type) {
	case *dns.A:
		return []Field{{"address", v.A.String()}}
	case *dns.AAAA:
		return []Field{{"address", v.AAAA.String()}}
	case *dns.NS:
		return []Field{{"target", v.Ns}}
	case *dns.CNAME:
		return []Field{{"target", v.Target}}
	case *dns.DNAME:
		return []Field{{"target", v.Target}}
	case *dns.PTR:
		return []Field{{"target", v.Ptr}}
	case *dns.MX:
		return []Field{
			{"preference", strconv.Itoa(int(v.Preference))},
			{"exchange", v.Mx},
		}
	case *dns.SRV:
		return []Field{
			{"priority", strconv.Itoa(int(v.Priority))},
			{"weight", strconv.Itoa(int(v.Weight))},
			{"port", strconv.Itoa(int(v.Port))},
			{"target", v.Target},
		}
	case *dns.SOA:
		return []Field{
			{"mname", v.Ns},
			{"rname", v.Mbox},
			{"serial", strconv.FormatUint(uint64(v.Serial), 10)},
			{"refresh", strconv.FormatUint(uint64(v.Refresh), 10)},
			{"retry", strconv.FormatUint(uint64(v.Retry), 10)},
			{"expire", strconv.FormatUint(uint64(v.Expire), 10)},
			{"minimum", strconv.FormatUint(uint64(v.Minttl), 10)},
		}
	case *dns.TXT:
		return []Field{{"strings", strings.Join(v.Txt, " ")}}
	case *dns.SPF:
		return []Field{{"strings", strings.Join(v.Txt, " ")}}
	case *dns.CAA:
		return []Field{
			{"flags", strconv.Itoa(int(v.Flag))},
			{"tag", v.Tag},
			{"value", v.Value},
		}
	default:
		return []Field{{"data", strings.TrimPrefix(rr.String(), rr.Header().String())}}
	}
}
