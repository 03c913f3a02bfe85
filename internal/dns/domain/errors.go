package domain

import "errors"

var (
	// ErrUnknownEnum is returned when a closed enumeration holds a value
	// outside its lookup table.
	ErrUnknownEnum = errors.New("unknown enum value")

	// ErrMissingType is returned for messages without the required type field.
	ErrMissingType = errors.New("message type missing")

	// ErrBadAddress is returned when an address length contradicts its family.
	ErrBadAddress = errors.New("malformed socket address")

	// ErrRCodeRange is returned for return codes above the network error sentinel.
	ErrRCodeRange = errors.New("return code out of range")

	// ErrUnsupportedMessage marks well-formed input that is not relayed.
	ErrUnsupportedMessage = errors.New("message kind not relayed")
)
