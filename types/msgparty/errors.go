package msgparty

import (
	"fmt"
	"net/netip"

	"github.com/compartya/compartya/types/ids"
)

// IllegalUidError is a protocol violation; a peer claimed a uid that isn't the one registered for its address.
//
// Whoever receives this evicts Addr.
type IllegalUidError struct {
	Uid  ids.PlayerUid
	Addr netip.AddrPort
}

func (e *IllegalUidError) Error() string {
	return fmt.Sprintf("illegal uid %s from %s", e.Uid, e.Addr)
}

// IllegalPacketError is returned by the rendezvous server for any packet it does not expect
// in the sender's registration state.
//
// Whoever receives this evicts the sender, as if it disconnected.
type IllegalPacketError struct {
	Packet Packet
}

func (e *IllegalPacketError) Error() string {
	return fmt.Sprintf("the rendezvous server got an illegal packet (%s)", e.Packet.Debug())
}
