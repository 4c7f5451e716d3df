package bin

import (
	"encoding/binary"
	"net/netip"
	"slices"
)

// AddrPortLen is the on-wire size of an address-port pair; 16 bytes of (v4-mapped) ipv6 address, 2 bytes of port.
const AddrPortLen = 16 + 2

func ParseAddrPort(b [AddrPortLen]byte) netip.AddrPort {
	addr := netip.AddrFrom16([16]byte(b[:16])).Unmap()

	port := binary.BigEndian.Uint16(b[16:])

	return netip.AddrPortFrom(addr, port)
}

func PutAddrPort(ap netip.AddrPort) []byte {
	port := make([]byte, 2)

	as16 := ap.Addr().As16()
	binary.BigEndian.PutUint16(port, ap.Port())

	return slices.Concat(as16[:], port[:])
}

// PutUint32 returns v in big-endian order.
func PutUint32(v uint32) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	return b[:]
}

// ReadUint32 reads a big-endian uint32 off the front of b, returning the rest.
//
// ok is false if b is too short.
func ReadUint32(b []byte) (v uint32, rest []byte, ok bool) {
	if len(b) < 4 {
		return 0, b, false
	}

	return binary.BigEndian.Uint32(b[:4]), b[4:], true
}
