package party

import (
	"context"
	"net/netip"
	"time"

	"github.com/LukaGiorgadze/gonull"
	"github.com/compartya/compartya/types"
	"github.com/compartya/compartya/types/actor"
	"github.com/compartya/compartya/types/ids"
	"github.com/compartya/compartya/types/msgparty"
	"github.com/compartya/compartya/types/transport"
)

// DefaultPingDelay is how long the LivenessMonitor waits between a pong and the next ping.
const DefaultPingDelay = 500 * time.Millisecond

// Rearmer schedules the next liveness ping to a peer.
type Rearmer interface {
	Rearm(addr netip.AddrPort, uid gonull.Nullable[ids.PlayerUid])
}

type rearm struct {
	addr netip.AddrPort
	uid  gonull.Nullable[ids.PlayerUid]
}

// LivenessMonitor sends a single ping to a peer, a delay after it was asked to.
//
// The Engine asks again whenever that peer pongs, so each peer paces its own pings;
// there is never more than one scheduled ping per address.
type LivenessMonitor struct {
	*actor.Common

	send  transport.Sender
	delay time.Duration

	inbox chan rearm
	fire  chan netip.AddrPort

	pending map[netip.AddrPort]gonull.Nullable[ids.PlayerUid]
}

func NewLivenessMonitor(ctx context.Context, send transport.Sender, delay time.Duration) *LivenessMonitor {
	if delay <= 0 {
		delay = DefaultPingDelay
	}

	return &LivenessMonitor{
		Common: actor.MakeCommon(ctx),
		send:   send,
		delay:  delay,
		inbox:  make(chan rearm, 64),
		fire:   make(chan netip.AddrPort),

		pending: make(map[netip.AddrPort]gonull.Nullable[ids.PlayerUid]),
	}
}

func (m *LivenessMonitor) Rearm(addr netip.AddrPort, uid gonull.Nullable[ids.PlayerUid]) {
	select {
	case <-m.Ctx().Done():
	case m.inbox <- rearm{addr: addr, uid: uid}:
	}
}

func (m *LivenessMonitor) Run() {
	defer actor.Bail(m)

	if !m.Start() {
		actor.L(m).Warn("tried to run agent, while already running")
		return
	}

	for {
		select {
		case <-m.Ctx().Done():
			m.Close()
			return
		case r := <-m.inbox:
			if _, ok := m.pending[r.addr]; ok {
				// already scheduled, only update who we are to them
				m.pending[r.addr] = r.uid
				continue
			}

			m.pending[r.addr] = r.uid
			m.schedule(r.addr)
		case addr := <-m.fire:
			uid, ok := m.pending[addr]
			if !ok {
				continue
			}
			delete(m.pending, addr)

			m.ping(addr, uid)
		}
	}
}

func (m *LivenessMonitor) schedule(addr netip.AddrPort) {
	ctx := m.Ctx()

	time.AfterFunc(m.delay, func() {
		select {
		case <-ctx.Done():
		case m.fire <- addr:
		}
	})
}

func (m *LivenessMonitor) ping(addr netip.AddrPort, uid gonull.Nullable[ids.PlayerUid]) {
	b, err := msgparty.Marshal(msgparty.NewPing(uid))
	if err != nil {
		actor.L(m).Error("could not marshal ping", "err", err)
		return
	}

	actor.L(m).Log(m.Ctx(), types.LevelTrace, "pinging", "to", addr)

	m.send.Send(transport.ReliablePacket(addr, b))
}

func (m *LivenessMonitor) Close() {}
