// Package transport is a small connection-tracking datagram layer over UDP.
//
// Every outgoing Packet picks a delivery mode; reliable frames are retransmitted until acknowledged,
// unreliable frames are fire-and-forget. A "connection" is nothing more than an address the socket
// has heard from recently; it appears with a ConnectEvent and disappears, after IdleTimeout of silence,
// with a TimeoutEvent followed by a DisconnectEvent.
//
// Frame layout:
//
//	Kind (1) + [Sequence (4), reliable and ack only] + Payload
package transport
