package transport

import (
	"net/netip"
	"time"
)

type Delivery byte

const (
	Unreliable Delivery = iota
	Reliable
)

func (d Delivery) String() string {
	if d == Reliable {
		return "reliable"
	}
	return "unreliable"
}

// Packet is one outgoing datagram payload.
type Packet struct {
	Addr     netip.AddrPort
	Payload  []byte
	Delivery Delivery
}

func ReliablePacket(addr netip.AddrPort, payload []byte) Packet {
	return Packet{Addr: addr, Payload: payload, Delivery: Reliable}
}

func UnreliablePacket(addr netip.AddrPort, payload []byte) Packet {
	return Packet{Addr: addr, Payload: payload, Delivery: Unreliable}
}

// Event is anything the socket reports about the network.
type Event interface {
	EventAddr() netip.AddrPort
}

type PacketEvent struct {
	Addr    netip.AddrPort
	Payload []byte
}

func (e PacketEvent) EventAddr() netip.AddrPort { return e.Addr }

// ConnectEvent is emitted the first time an address is heard from.
type ConnectEvent struct {
	Addr netip.AddrPort
}

func (e ConnectEvent) EventAddr() netip.AddrPort { return e.Addr }

// TimeoutEvent is emitted when an address has been silent for IdleTimeout, right before its DisconnectEvent.
type TimeoutEvent struct {
	Addr netip.AddrPort
}

func (e TimeoutEvent) EventAddr() netip.AddrPort { return e.Addr }

type DisconnectEvent struct {
	Addr netip.AddrPort
}

func (e DisconnectEvent) EventAddr() netip.AddrPort { return e.Addr }

type Config struct {
	// IdleTimeout is how long an address may stay silent before it is disconnected.
	IdleTimeout time.Duration

	// ResendInterval is the delay between retransmissions of an unacknowledged reliable frame.
	ResendInterval time.Duration

	// MaxResends is how often a reliable frame is retransmitted before it is given up on.
	MaxResends int

	// TickInterval paces retransmission and idle checks.
	TickInterval time.Duration
}

func DefaultConfig() Config {
	return Config{
		IdleTimeout:    DefaultIdleTimeout,
		ResendInterval: DefaultResendInterval,
		MaxResends:     DefaultMaxResends,
		TickInterval:   DefaultTickInterval,
	}
}

// Sender is the write half of a Socket, for whoever only needs to send.
type Sender interface {
	Send(p Packet)
}
