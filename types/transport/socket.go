package transport

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"slices"
	"time"

	"github.com/compartya/compartya/types"
	"github.com/compartya/compartya/types/actor"
	"github.com/compartya/compartya/types/bin"
)

type pendingKey struct {
	addr netip.AddrPort
	seq  uint32
}

type pendingFrame struct {
	frame   []byte
	resends int
	next    time.Time
}

type connection struct {
	lastRecv time.Time

	// seen holds recently received reliable sequence numbers, so that retransmissions are only delivered once.
	seen map[uint32]time.Time
}

// Socket owns a UDPConn; it sends what it is given, and reports what it hears.
type Socket struct {
	*actor.Common

	cfg  Config
	conn types.UDPConn
	recv *sockRecv

	// Local is the bound address, if known.
	Local netip.AddrPort

	sendCh chan Packet
	events chan Event

	nextSeq uint32
	pending map[pendingKey]*pendingFrame
	conns   map[netip.AddrPort]*connection
}

// Bind listens on addr; a failure here is fatal to whoever wanted a socket.
func Bind(ctx context.Context, addr netip.AddrPort, cfg Config) (*Socket, error) {
	udp, err := net.ListenUDP("udp", net.UDPAddrFromAddrPort(addr))
	if err != nil {
		return nil, fmt.Errorf("could not bind %s: %w", addr, err)
	}

	s := NewSocket(ctx, udp, cfg)
	s.Local = types.NormaliseAddrPort(udp.LocalAddr().(*net.UDPAddr).AddrPort())

	return s, nil
}

func NewSocket(ctx context.Context, conn types.UDPConn, cfg Config) *Socket {
	def := DefaultConfig()
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = def.IdleTimeout
	}
	if cfg.ResendInterval <= 0 {
		cfg.ResendInterval = def.ResendInterval
	}
	if cfg.MaxResends <= 0 {
		cfg.MaxResends = def.MaxResends
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = def.TickInterval
	}

	s := &Socket{
		Common: actor.MakeCommon(ctx),
		cfg:    cfg,
		conn:   conn,

		sendCh: make(chan Packet, SendChanBuffer),
		events: make(chan Event, EventChanBuffer),

		pending: make(map[pendingKey]*pendingFrame),
		conns:   make(map[netip.AddrPort]*connection),
	}

	s.recv = makeSockRecv(s.Ctx(), conn)

	if l, ok := conn.(interface{ LocalAddrPort() netip.AddrPort }); ok {
		s.Local = l.LocalAddrPort()
	}

	return s
}

// Events is where everything the socket hears ends up.
func (s *Socket) Events() <-chan Event {
	return s.events
}

// Send queues a packet. It never blocks; if the queue is full the packet is dropped and logged.
func (s *Socket) Send(p Packet) {
	select {
	case s.sendCh <- p:
	default:
		actor.L(s).Warn("send queue full, dropping packet", "to", p.Addr, "delivery", p.Delivery)
	}
}

func (s *Socket) Run() {
	defer actor.Bail(s)

	if !s.Start() {
		actor.L(s).Warn("tried to run agent, while already running")
		return
	}

	go s.recv.Run()

	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()

	frames := s.recv.outCh

	for {
		select {
		case <-s.Ctx().Done():
			s.Close()
			return
		case p := <-s.sendCh:
			s.write(p, time.Now())
		case f, ok := <-frames:
			if !ok {
				// reader died, nothing more will ever arrive
				frames = nil
				s.Cancel()
				continue
			}
			s.receive(f, time.Now())
		case now := <-ticker.C:
			s.tick(now)
		}
	}
}

func (s *Socket) Close() {
	if err := s.conn.Close(); err != nil {
		actor.L(s).Debug("error closing conn", "err", err)
	}
}

func (s *Socket) write(p Packet, now time.Time) {
	to := types.NormaliseAddrPort(p.Addr)

	var frame []byte

	switch p.Delivery {
	case Reliable:
		seq := s.nextSeq
		s.nextSeq++

		frame = slices.Concat([]byte{byte(frameReliable)}, bin.PutUint32(seq), p.Payload)

		s.pending[pendingKey{to, seq}] = &pendingFrame{
			frame: frame,
			next:  now.Add(s.cfg.ResendInterval),
		}
	default:
		frame = slices.Concat([]byte{byte(frameUnreliable)}, p.Payload)
	}

	s.writeFrame(frame, to)
}

func (s *Socket) writeFrame(frame []byte, to netip.AddrPort) {
	if _, err := s.conn.WriteToUDPAddrPort(frame, to); err != nil {
		actor.L(s).Warn("error writing to socket", "to", to, "err", err)
	}
}

func (s *Socket) receive(f recvFrame, now time.Time) {
	if len(f.pkt) < 1 {
		return
	}

	kind, body := frameKind(f.pkt[0]), f.pkt[1:]

	var seq uint32
	if kind == frameReliable || kind == frameAck {
		var ok bool
		if seq, body, ok = bin.ReadUint32(body); !ok {
			actor.L(s).Debug("dropping short frame", "from", f.src)
			return
		}
	} else if kind != frameUnreliable {
		actor.L(s).Debug("dropping frame of unknown kind", "from", f.src, "kind", kind)
		return
	}

	c := s.touch(f.src, now)

	switch kind {
	case frameAck:
		delete(s.pending, pendingKey{f.src, seq})
	case frameReliable:
		s.writeFrame(slices.Concat([]byte{byte(frameAck)}, bin.PutUint32(seq)), f.src)

		if _, dup := c.seen[seq]; dup {
			return
		}
		c.seen[seq] = now

		s.emit(PacketEvent{Addr: f.src, Payload: body})
	case frameUnreliable:
		s.emit(PacketEvent{Addr: f.src, Payload: body})
	}
}

// touch marks the address as heard from, and creates its connection if needed.
func (s *Socket) touch(addr netip.AddrPort, now time.Time) *connection {
	c, ok := s.conns[addr]
	if !ok {
		c = &connection{seen: make(map[uint32]time.Time)}
		s.conns[addr] = c
		s.emit(ConnectEvent{Addr: addr})
	}

	c.lastRecv = now

	return c
}

func (s *Socket) tick(now time.Time) {
	for k, p := range s.pending {
		if now.Before(p.next) {
			continue
		}

		if p.resends >= s.cfg.MaxResends {
			actor.L(s).Debug("giving up on reliable frame", "to", k.addr, "seq", k.seq)
			delete(s.pending, k)
			continue
		}

		p.resends++
		p.next = now.Add(s.cfg.ResendInterval)
		s.writeFrame(p.frame, k.addr)
	}

	// Retransmissions stop well within this window, older sequence numbers can't show up again.
	seenFor := s.cfg.ResendInterval * time.Duration(s.cfg.MaxResends+2)

	for addr, c := range s.conns {
		if now.Sub(c.lastRecv) >= s.cfg.IdleTimeout {
			delete(s.conns, addr)

			for k := range s.pending {
				if k.addr == addr {
					delete(s.pending, k)
				}
			}

			s.emit(TimeoutEvent{Addr: addr})
			s.emit(DisconnectEvent{Addr: addr})
			continue
		}

		for seq, at := range c.seen {
			if now.Sub(at) > seenFor {
				delete(c.seen, seq)
			}
		}
	}
}

func (s *Socket) emit(ev Event) {
	select {
	case <-s.Ctx().Done():
	case s.events <- ev:
	}
}
