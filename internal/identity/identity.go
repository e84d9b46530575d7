// Package identity derives the provenance tag attached to every catalog record.
package identity

import (
	"fmt"
	"os"
	"runtime"
	"strings"
	"sync"

	"github.com/dshills/fitscat/internal/logging"
	"github.com/dshills/fitscat/pkg/types"
	"github.com/google/uuid"
)

// UnknownHostname is used when the hostname cannot be read
const UnknownHostname = "unknown"

// kernelReleasePath is read for the OS string on Linux
var kernelReleasePath = "/proc/sys/kernel/osrelease"

var (
	once     sync.Once
	detected types.ClientInfo
)

// Detect returns the identity of this machine. The result is computed once
// per process.
func Detect() types.ClientInfo {
	once.Do(func() {
		detected = detect()
		logging.Debug("Client identity: host=%s os=%q mac=%s", detected.Hostname, detected.OS, detected.MAC)
	})
	return detected
}

func detect() types.ClientInfo {
	host, err := os.Hostname()
	if err != nil || strings.TrimSpace(host) == "" {
		logging.Warn("Could not determine hostname: %v", err)
		host = UnknownHostname
	}

	return types.ClientInfo{
		Hostname: host,
		OS:       osString(),
		MAC:      hardwareAddr(),
	}
}

// hardwareAddr returns the MAC of the interface uuid picked for version 1
// UUIDs. When no interface has one uuid falls back to a random node, which is
// not a stable identity, so UnknownMAC is reported instead.
func hardwareAddr() string {
	node := uuid.NodeID()
	if uuid.NodeInterface() == "" {
		return types.UnknownMAC
	}
	mac, err := FormatMAC(node)
	if err != nil {
		logging.Warn("Ignoring hardware address: %v", err)
		return types.UnknownMAC
	}
	return mac
}

// FormatMAC renders a 6 byte hardware address as lowercase colon separated hex
func FormatMAC(addr []byte) (string, error) {
	if len(addr) != 6 {
		return "", fmt.Errorf("%w: %d bytes", types.ErrInvalidMAC, len(addr))
	}
	parts := make([]string, len(addr))
	for i, b := range addr {
		parts[i] = fmt.Sprintf("%02x", b)
	}
	return strings.Join(parts, ":"), nil
}

func osString() string {
	release, err := os.ReadFile(kernelReleasePath)
	if err != nil {
		return runtime.GOOS
	}
	r := strings.TrimSpace(string(release))
	if r == "" {
		return runtime.GOOS
	}
	return runtime.GOOS + " " + r
}
