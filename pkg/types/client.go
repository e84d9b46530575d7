package types

import "regexp"

// UnknownMAC is used when no hardware address can be determined
const UnknownMAC = "00:00:00:00:00:00"

var macPattern = regexp.MustCompile(`^[0-9a-f]{2}(:[0-9a-f]{2}){5}$`)

// ClientInfo identifies the machine that wrote a catalog record
type ClientInfo struct {
	Hostname string
	OS       string
	MAC      string
}

// Validate checks if the client info is well formed
func (c ClientInfo) Validate() error {
	if c.Hostname == "" {
		return ErrEmptyHostname
	}
	if !macPattern.MatchString(c.MAC) {
		return ErrInvalidMAC
	}
	return nil
}

// ShortMAC returns the last two octets, used as a compact display suffix
func (c ClientInfo) ShortMAC() string {
	if len(c.MAC) < 5 {
		return c.MAC
	}
	return c.MAC[len(c.MAC)-5:]
}
