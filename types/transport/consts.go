package transport

import "time"

const (
	DefaultIdleTimeout    = 5 * time.Second
	DefaultResendInterval = 200 * time.Millisecond
	DefaultMaxResends     = 10
	DefaultTickInterval   = 50 * time.Millisecond

	SockRecvReadTimeout = 5 * time.Second

	// MaxFrameSize is the largest datagram the socket will read.
	MaxFrameSize = 1 << 16

	SockRecvFrameChanBuffer = 256
	SendChanBuffer          = 256
	EventChanBuffer         = 256
)

type frameKind byte

const (
	frameUnreliable = frameKind(0x00)
	frameReliable   = frameKind(0x01)
	frameAck        = frameKind(0x02)
)
