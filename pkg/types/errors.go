package types

import "errors"

// Domain errors for type validation
var (
	ErrEmptyPath      = errors.New("file path cannot be empty")
	ErrUnknownOutcome = errors.New("unknown outcome")
	ErrInvalidMAC     = errors.New("MAC address must be six lowercase colon-separated hex octets")
	ErrEmptyHostname  = errors.New("hostname cannot be empty")
)
