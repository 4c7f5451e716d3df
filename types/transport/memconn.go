package transport

import (
	"net"
	"net/netip"
	"slices"
	"sync"
	"time"
)

// MemNetwork is an in-process stand-in for a UDP network, connecting every MemConn made from it.
type MemNetwork struct {
	mu    sync.Mutex
	conns map[netip.AddrPort]*MemConn

	// Drop, if set, is consulted for every datagram; returning true loses it.
	Drop func(from, to netip.AddrPort, b []byte) bool
}

func NewMemNetwork() *MemNetwork {
	return &MemNetwork{conns: make(map[netip.AddrPort]*MemConn)}
}

// Listen attaches a new conn at addr, replacing whatever was there.
func (n *MemNetwork) Listen(addr netip.AddrPort) *MemConn {
	c := &MemConn{
		net:    n,
		addr:   addr,
		in:     make(chan memDatagram, 1024),
		closed: make(chan struct{}),
	}

	n.mu.Lock()
	n.conns[addr] = c
	n.mu.Unlock()

	return c
}

func (n *MemNetwork) deliver(from, to netip.AddrPort, b []byte) {
	n.mu.Lock()
	dst, ok := n.conns[to]
	drop := n.Drop
	n.mu.Unlock()

	if !ok || (drop != nil && drop(from, to, b)) {
		return
	}

	select {
	case <-dst.closed:
	case dst.in <- memDatagram{from: from, b: slices.Clone(b)}:
	default:
		// full, like a real socket buffer
	}
}

type memDatagram struct {
	from netip.AddrPort
	b    []byte
}

type MemConn struct {
	net  *MemNetwork
	addr netip.AddrPort
	in   chan memDatagram

	mu       sync.Mutex
	deadline time.Time

	closeOnce sync.Once
	closed    chan struct{}
}

func (c *MemConn) LocalAddrPort() netip.AddrPort {
	return c.addr
}

func (c *MemConn) SetReadDeadline(t time.Time) error {
	c.mu.Lock()
	c.deadline = t
	c.mu.Unlock()
	return nil
}

func (c *MemConn) ReadFromUDPAddrPort(b []byte) (int, netip.AddrPort, error) {
	c.mu.Lock()
	deadline := c.deadline
	c.mu.Unlock()

	var timeout <-chan time.Time
	if !deadline.IsZero() {
		t := time.NewTimer(time.Until(deadline))
		defer t.Stop()
		timeout = t.C
	}

	select {
	case <-c.closed:
		return 0, netip.AddrPort{}, net.ErrClosed
	case <-timeout:
		return 0, netip.AddrPort{}, memTimeout{}
	case d := <-c.in:
		return copy(b, d.b), d.from, nil
	}
}

func (c *MemConn) WriteToUDPAddrPort(b []byte, addr netip.AddrPort) (int, error) {
	select {
	case <-c.closed:
		return 0, net.ErrClosed
	default:
	}

	c.net.deliver(c.addr, addr, b)

	return len(b), nil
}

func (c *MemConn) Close() error {
	c.closeOnce.Do(func() {
		close(c.closed)

		c.net.mu.Lock()
		if c.net.conns[c.addr] == c {
			delete(c.net.conns, c.addr)
		}
		c.net.mu.Unlock()
	})
	return nil
}

type memTimeout struct{}

func (memTimeout) Error() string   { return "i/o timeout" }
func (memTimeout) Timeout() bool   { return true }
func (memTimeout) Temporary() bool { return true }
