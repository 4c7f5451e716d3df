package party

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/netip"

	"github.com/LukaGiorgadze/gonull"
	"github.com/compartya/compartya/types"
	"github.com/compartya/compartya/types/actor"
	"github.com/compartya/compartya/types/ids"
	"github.com/compartya/compartya/types/msgparty"
	"github.com/compartya/compartya/types/transport"
)

// CommandChanBuffer is how many local commands may be queued before Submit blocks.
const CommandChanBuffer = 32

type Config struct {
	// Rendezvous is where lobbies are created and looked up.
	Rendezvous netip.AddrPort

	// DefaultOrder is the cached order a fresh engine starts with.
	DefaultOrder msgparty.Order

	// LaunchOrder, if set, replaces DefaultOrder, and is executed as soon as the engine runs.
	LaunchOrder gonull.Nullable[msgparty.Order]

	// Generator draws player uids; nil means crypto/rand.
	Generator *ids.Generator

	Orders   OrderSink
	Presence PresenceSink
	Notify   Notifier
}

// Engine is the peer side of the party protocol.
//
// It owns the current Role, which only its own loop ever reads or writes;
// everything else talks to it through Submit and the transport's events.
type Engine struct {
	*actor.Common

	rendezvous netip.AddrPort
	gen        *ids.Generator

	send   transport.Sender
	events <-chan transport.Event
	pings  Rearmer

	orders   OrderSink
	presence PresenceSink
	notifier Notifier

	commands chan Command

	launch gonull.Nullable[msgparty.Order]

	role Role
}

func NewEngine(ctx context.Context, cfg Config, send transport.Sender, events <-chan transport.Event, pings Rearmer) *Engine {
	e := &Engine{
		Common: actor.MakeCommon(ctx),

		rendezvous: types.NormaliseAddrPort(cfg.Rendezvous),
		gen:        cfg.Generator,

		send:   send,
		events: events,
		pings:  pings,

		orders:   cfg.Orders,
		presence: cfg.Presence,
		notifier: cfg.Notify,

		commands: make(chan Command, CommandChanBuffer),

		launch: cfg.LaunchOrder,
	}

	if e.gen == nil {
		e.gen = ids.Default
	}
	if e.orders == nil {
		e.orders = nopSinks{}
	}
	if e.presence == nil {
		e.presence = nopSinks{}
	}
	if e.notifier == nil {
		e.notifier = nopSinks{}
	}

	cached := cfg.DefaultOrder
	if cfg.LaunchOrder.Valid {
		cached = cfg.LaunchOrder.Val
	}

	e.role = &User{CachedOrder: cached}

	return e
}

// Role is the current role; only safe to look at from the engine's own goroutine, or while it isn't running.
func (e *Engine) Role() Role {
	return e.role
}

// Submit queues a local command, blocks while the queue is full.
func (e *Engine) Submit(c Command) {
	select {
	case <-e.Ctx().Done():
	case e.commands <- c:
	}
}

func (e *Engine) Run() {
	defer actor.Bail(e)

	if !e.Start() {
		actor.L(e).Warn("tried to run agent, while already running")
		return
	}

	if e.launch.Valid {
		actor.L(e).Info("executing launch order", "order", e.launch.Val.Debug())
		e.orders.ExecuteOrder(e.launch.Val)
	}

	events := e.events

	for {
		// local commands always go before network events
		select {
		case c := <-e.commands:
			e.HandleCommand(c)
			continue
		default:
		}

		select {
		case <-e.Ctx().Done():
			e.Close()
			return
		case c := <-e.commands:
			e.HandleCommand(c)
		case ev, ok := <-events:
			if !ok {
				actor.L(e).Warn("transport closed, no more network events")
				events = nil
				continue
			}
			e.HandleEvent(ev)
		}
	}
}

func (e *Engine) Close() {}

// HandleCommand applies one local command to the current role.
func (e *Engine) HandleCommand(c Command) {
	actor.L(e).Debug("command", "cmd", c.Debug())

	switch c := c.(type) {
	case Leave:
		e.leave()
		return
	case RunLocal:
		e.notifier.Notify(LocalTask{Name: c.Name})
		return
	}

	switch r := e.role.(type) {
	case *User:
		e.userCommand(r, c)
	case *Host:
		e.hostCommand(r, c)
	default:
		panic(fmt.Sprintf("unknown role %T", e.role))
	}
}

func (e *Engine) userCommand(u *User, c Command) {
	switch c := c.(type) {
	case ConnectToLobby:
		actor.L(e).Info("looking up lobby", "lobby", c.Lobby)

		u.Password = c.Password
		e.sendPacket(e.rendezvous, &msgparty.FindLobby{Lobby: c.Lobby})
	case BecomeHost:
		actor.L(e).Info("became host")

		e.role = newHost(c.Password)
		e.notifier.Notify(IsHost{Host: true})

		e.sendPacket(e.rendezvous, &msgparty.CreateLobby{})
	case GetCachedOrder:
		e.orders.ExecuteOrder(u.CachedOrder)
	default:
		actor.L(e).Warn("command not valid as user", "cmd", c.Debug())
	}
}

func (e *Engine) hostCommand(h *Host, c Command) {
	switch c := c.(type) {
	case BecomeUser:
		actor.L(e).Info("became user")

		e.dropHost(h)
		e.role = &User{}
	case NewOrder:
		actor.L(e).Info("sending order", "order", c.Order.Debug(), "clients", len(h.Clients))

		h.LastOrder = c.Order

		for _, cl := range h.Clients {
			e.sendPacket(cl.Addr, &msgparty.NewOrder{Uid: cl.Uid, Order: c.Order})
		}
	default:
		actor.L(e).Warn("command not valid as host", "cmd", c.Debug())
	}
}

func (e *Engine) leave() {
	if h, ok := e.role.(*Host); ok {
		e.dropHost(h)
	}

	actor.L(e).Info("left current state")

	e.role = &User{}
}

// dropHost tells the application a host session is over.
func (e *Engine) dropHost(h *Host) {
	if h.LobbyID.Valid {
		e.notifier.Notify(LobbyUid{})
	}

	e.presence.ClearSecret()
	e.notifier.Notify(IsHost{Host: false})
}

// HandleEvent applies one transport event to the current role.
func (e *Engine) HandleEvent(ev transport.Event) {
	switch ev := ev.(type) {
	case transport.PacketEvent:
		e.handlePacket(ev.Addr, ev.Payload)
	case transport.ConnectEvent:
		actor.L(e).Log(e.Ctx(), types.LevelTrace, "connected", "addr", ev.Addr)
	case transport.TimeoutEvent:
		// followed by a disconnect
	case transport.DisconnectEvent:
		e.handleDisconnect(ev.Addr)
	default:
		actor.L(e).Warn("unknown transport event", "event", ev)
	}
}

func (e *Engine) handlePacket(from netip.AddrPort, b []byte) {
	pkt, err := msgparty.Parse(b)
	if err != nil {
		actor.L(e).Debug("dropping undecodable packet", "from", from, "err", err)
		return
	}

	if slog.Default().Enabled(e.Ctx(), types.LevelTrace) {
		actor.L(e).Log(e.Ctx(), types.LevelTrace, "received", "from", from, "packet", pkt.Debug())
	}

	switch p := pkt.(type) {
	case msgparty.Message:
		err = e.handleMessage(from, p)
	case msgparty.Response:
		err = e.handleResponse(from, p)
	}

	if err == nil {
		return
	}

	var illegal *msgparty.IllegalUidError
	if errors.As(err, &illegal) {
		if h, ok := e.role.(*Host); ok {
			e.evict(h, illegal.Addr)
		}
	}

	actor.L(e).Error("error handling packet", "from", from, "err", err)
}

func (e *Engine) handleMessage(from netip.AddrPort, m msgparty.Message) error {
	switch r := e.role.(type) {
	case *Host:
		return e.hostMessage(r, from, m)
	case *User:
		e.userMessage(r, from, m)
		return nil
	default:
		panic(fmt.Sprintf("unknown role %T", e.role))
	}
}

func (e *Engine) hostMessage(h *Host, from netip.AddrPort, m msgparty.Message) error {
	client, registered := h.Client(from)

	switch m := m.(type) {
	case *msgparty.Auth:
		if registered {
			break
		}

		if m.Password != h.Password {
			actor.L(e).Info("rejected authentication", "from", from)
			e.sendPacket(from, &msgparty.FailedAuth{})
			return nil
		}

		uid, ok := h.issueUid(e.gen)
		if !ok {
			actor.L(e).Error("could not draw an unused uid, rejecting client", "from", from)
			e.sendPacket(from, &msgparty.FailedAuth{})
			return nil
		}

		h.Clients = append(h.Clients, Client{Addr: from, Uid: uid})

		actor.L(e).Info("client authenticated", "from", from, "uid", uid)

		e.notifier.Notify(NewConnection{Uid: uid})
		e.sendPacket(from, &msgparty.AuthAccepted{Uid: uid, Password: h.Password})
		return nil
	case *msgparty.GetLastOrder:
		if !registered {
			break
		}

		if m.Uid != client.Uid {
			return &msgparty.IllegalUidError{Uid: m.Uid, Addr: from}
		}

		e.sendPacket(from, &msgparty.NewOrder{Uid: client.Uid, Order: h.LastOrder})
		return nil
	case *msgparty.NewClient:
		if registered || from != e.rendezvous {
			break
		}

		// nudge the newcomer, so that its side of the path is open too
		e.sendPacket(m.Addr, &msgparty.VibeCheck{})
		return nil
	case *msgparty.Ping:
		if !registered || !m.Uid.Valid {
			break
		}

		if m.Uid.Val != client.Uid {
			return &msgparty.IllegalUidError{Uid: m.Uid.Val, Addr: from}
		}

		e.sendPacket(from, &msgparty.Pong{})
		return nil
	}

	actor.L(e).Warn("unexpected message as host", "from", from, "packet", m.Debug())
	return nil
}

func (e *Engine) userMessage(u *User, from netip.AddrPort, m msgparty.Message) {
	fromHost := u.BoundServer.Valid && u.BoundServer.Val == from

	switch m := m.(type) {
	case *msgparty.NewOrder:
		if fromHost && m.Uid == u.Uid {
			actor.L(e).Info("received order", "order", m.Order.Debug())

			u.CachedOrder = m.Order
			e.orders.ExecuteOrder(m.Order)
			return
		}
	case *msgparty.Ping:
		if fromHost && m.Uid.Valid && m.Uid.Val == u.Uid {
			e.sendPacket(from, &msgparty.Pong{})
			return
		}
	case *msgparty.VibeCheck:
		return
	}

	actor.L(e).Warn("unexpected message as user", "from", from, "packet", m.Debug())
}

func (e *Engine) handleResponse(from netip.AddrPort, r msgparty.Response) error {
	fromRendezvous := from == e.rendezvous

	switch role := e.role.(type) {
	case *User:
		switch r := r.(type) {
		case *msgparty.AuthAccepted:
			if r.Password != role.Password || role.BoundServer.Valid {
				break
			}

			actor.L(e).Info("authenticated with lobby", "host", from, "uid", r.Uid)

			role.BoundServer = gonull.NewNullable(from)
			role.Uid = r.Uid

			e.sendPacket(from, &msgparty.GetLastOrder{Uid: r.Uid})
			e.pings.Rearm(from, gonull.NewNullable(r.Uid))
			return nil
		case *msgparty.FailedAuth:
			actor.L(e).Error("failed to authenticate with lobby", "host", from)
			e.notifier.Notify(AuthFailed{})
			return nil
		case *msgparty.FoundLobby:
			if !fromRendezvous {
				break
			}

			actor.L(e).Info("found lobby, authenticating", "host", r.Addr)
			e.sendPacket(r.Addr, &msgparty.Auth{Password: role.Password})
			return nil
		case *msgparty.NoLobby:
			if !fromRendezvous {
				break
			}

			actor.L(e).Info("failed to find lobby", "lobby", r.Lobby)
			e.notifier.Notify(LobbyNotFound{Lobby: r.Lobby})
			return nil
		case *msgparty.Pong:
			if role.BoundServer.Valid && role.BoundServer.Val == from {
				e.pings.Rearm(from, gonull.NewNullable(role.Uid))
			}
			return nil
		}
	case *Host:
		switch r := r.(type) {
		case *msgparty.CreatedLobby:
			if !fromRendezvous {
				break
			}

			actor.L(e).Info("created a lobby", "lobby", r.Lobby)

			role.LobbyID = gonull.NewNullable(r.Lobby)

			e.pings.Rearm(from, gonull.Nullable[ids.PlayerUid]{})
			e.presence.PublishSecret(r.Lobby)
			e.notifier.Notify(LobbyUid{Lobby: role.LobbyID})
			return nil
		case *msgparty.Pong:
			if c, ok := role.Client(from); ok {
				e.pings.Rearm(from, gonull.NewNullable(c.Uid))
			} else if fromRendezvous {
				e.pings.Rearm(from, gonull.Nullable[ids.PlayerUid]{})
			}
			return nil
		}
	default:
		panic(fmt.Sprintf("unknown role %T", e.role))
	}

	actor.L(e).Warn("unexpected response", "from", from, "packet", r.Debug())
	return nil
}

func (e *Engine) handleDisconnect(addr netip.AddrPort) {
	switch r := e.role.(type) {
	case *User:
		if r.BoundServer.Valid && r.BoundServer.Val == addr {
			actor.L(e).Warn("disconnected from lobby", "host", addr)
			r.BoundServer = gonull.Nullable[netip.AddrPort]{}
		}
	case *Host:
		e.evict(r, addr)

		if addr == e.rendezvous && r.LobbyID.Valid {
			actor.L(e).Warn("disconnected from rendezvous server, lobby lost", "lobby", r.LobbyID.Val)

			r.LobbyID = gonull.Nullable[ids.LobbyUid]{}

			e.presence.ClearSecret()
			e.notifier.Notify(LobbyUid{})
		}
	}
}

func (e *Engine) evict(h *Host, addr netip.AddrPort) {
	if c, ok := h.removeClient(addr); ok {
		actor.L(e).Info("client dropped", "addr", addr, "uid", c.Uid)
		e.notifier.Notify(DroppedConnection{Uid: c.Uid})
	}
}

func (e *Engine) sendPacket(to netip.AddrPort, p msgparty.Packet) {
	b, err := msgparty.Marshal(p)
	if err != nil {
		actor.L(e).Warn("could not marshal packet", "packet", p.Debug(), "err", err)
		return
	}

	e.send.Send(transport.ReliablePacket(to, b))
}
