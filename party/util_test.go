package party

import (
	"context"
	"net/netip"
	"testing"

	"github.com/LukaGiorgadze/gonull"
	"github.com/compartya/compartya/types/ids"
	"github.com/compartya/compartya/types/msgparty"
	"github.com/compartya/compartya/types/transport"
	"github.com/stretchr/testify/require"
)

// Test addresses
var (
	rendezvousAddr = netip.MustParseAddrPort("10.0.0.1:2000")
	hostAddr       = netip.MustParseAddrPort("10.0.0.2:12352")
	userAddr       = netip.MustParseAddrPort("10.0.0.3:12352")
	strangerAddr   = netip.MustParseAddrPort("10.0.0.66:12352")
)

// counter is a deterministic byte source.
type counter struct {
	n byte
}

func (c *counter) Read(b []byte) (int, error) {
	for i := range b {
		b[i] = c.n
		c.n++
	}
	return len(b), nil
}

// zeroes always reads the same bytes.
type zeroes struct{}

func (zeroes) Read(b []byte) (int, error) {
	clear(b)
	return len(b), nil
}

type sent struct {
	to  netip.AddrPort
	pkt msgparty.Packet
}

type recordingSender struct {
	t    *testing.T
	sent []sent
}

func (r *recordingSender) Send(p transport.Packet) {
	require.Equal(r.t, transport.Reliable, p.Delivery)

	pkt, err := msgparty.Parse(p.Payload)
	require.NoError(r.t, err)

	r.sent = append(r.sent, sent{to: p.Addr, pkt: pkt})
}

func (r *recordingSender) take() []sent {
	s := r.sent
	r.sent = nil
	return s
}

type recordingPings struct {
	armed []rearm
}

func (r *recordingPings) Rearm(addr netip.AddrPort, uid gonull.Nullable[ids.PlayerUid]) {
	r.armed = append(r.armed, rearm{addr: addr, uid: uid})
}

func (r *recordingPings) take() []rearm {
	a := r.armed
	r.armed = nil
	return a
}

// recorder stands in for the local application.
type recorder struct {
	notes []Notification

	published []ids.LobbyUid
	cleared   int
}

func (r *recorder) Notify(n Notification)           { r.notes = append(r.notes, n) }
func (r *recorder) ExecuteOrder(o msgparty.Order)   { r.notes = append(r.notes, ExecuteOrder{Order: o}) }
func (r *recorder) PublishSecret(lobby ids.LobbyUid) { r.published = append(r.published, lobby) }
func (r *recorder) ClearSecret()                    { r.cleared++ }

func (r *recorder) take() []Notification {
	n := r.notes
	r.notes = nil
	return n
}

type harness struct {
	t *testing.T

	e     *Engine
	out   *recordingSender
	pings *recordingPings
	app   *recorder
}

func newHarness(t *testing.T) *harness {
	return newHarnessWithGenerator(t, ids.NewGenerator(&counter{}))
}

func newHarnessWithGenerator(t *testing.T, gen *ids.Generator) *harness {
	h := &harness{
		t:     t,
		out:   &recordingSender{t: t},
		pings: &recordingPings{},
		app:   &recorder{},
	}

	h.e = NewEngine(context.Background(), Config{
		Rendezvous: rendezvousAddr,
		Generator:  gen,
		Orders:     h.app,
		Presence:   h.app,
		Notify:     h.app,
	}, h.out, nil, h.pings)

	return h
}

func (h *harness) deliver(from netip.AddrPort, p msgparty.Packet) {
	b, err := msgparty.Marshal(p)
	require.NoError(h.t, err)

	h.e.HandleEvent(transport.PacketEvent{Addr: from, Payload: b})
}

func (h *harness) host() *Host {
	r, ok := h.e.Role().(*Host)
	require.True(h.t, ok, "expected host, is %T", h.e.Role())
	return r
}

func (h *harness) user() *User {
	r, ok := h.e.Role().(*User)
	require.True(h.t, ok, "expected user, is %T", h.e.Role())
	return r
}

func mustPassword(t *testing.T, s string) ids.Password {
	p, err := ids.ParsePassword(s)
	require.NoError(t, err)
	return p
}

func mustLobby(t *testing.T, s string) ids.LobbyUid {
	l, err := ids.ParseLobbyUid(s)
	require.NoError(t, err)
	return l
}

// becomeHost turns the harness engine into a host with a lobby, and forgets everything that took.
func (h *harness) becomeHost(password string) {
	h.e.HandleCommand(BecomeHost{Password: mustPassword(h.t, password)})
	h.deliver(rendezvousAddr, &msgparty.CreatedLobby{Lobby: mustLobby(h.t, "XXXXXXXX")})

	h.out.take()
	h.pings.take()
	h.app.take()
}

// authenticate registers addr with the host, returns the uid it got.
func (h *harness) authenticate(addr netip.AddrPort, password string) ids.PlayerUid {
	h.deliver(addr, &msgparty.Auth{Password: mustPassword(h.t, password)})

	out := h.out.take()
	require.Len(h.t, out, 1)

	acc, ok := out[0].pkt.(*msgparty.AuthAccepted)
	require.True(h.t, ok, "expected AuthAccepted, got %s", out[0].pkt.Debug())

	h.app.take()

	return acc.Uid
}

// bindUser makes the harness engine a user authenticated with hostAddr.
func (h *harness) bindUser(password string, uid ids.PlayerUid) {
	h.e.HandleCommand(ConnectToLobby{Lobby: mustLobby(h.t, "XXXXXXXX"), Password: mustPassword(h.t, password)})
	h.deliver(hostAddr, &msgparty.AuthAccepted{Uid: uid, Password: mustPassword(h.t, password)})

	h.out.take()
	h.pings.take()
	h.app.take()
}

func mustAddr(t *testing.T, s string) netip.AddrPort {
	ap, err := netip.ParseAddrPort(s)
	require.NoError(t, err)
	return ap
}
