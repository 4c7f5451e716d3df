package types

import (
	"net/netip"
	"time"
)

// UDPConn interface for the transport socket to more easily deal with, and for tests to fake.
type UDPConn interface {
	SetReadDeadline(t time.Time) error

	ReadFromUDPAddrPort(b []byte) (n int, addr netip.AddrPort, err error)

	WriteToUDPAddrPort(b []byte, addr netip.AddrPort) (int, error)

	Close() error
}
