package party

import (
	"testing"

	"github.com/LukaGiorgadze/gonull"
	"github.com/compartya/compartya/types/ids"
	"github.com/compartya/compartya/types/msgparty"
	"github.com/compartya/compartya/types/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartsAsUser(t *testing.T) {
	h := newHarness(t)

	assert.Equal(t, &User{}, h.user())
}

func TestBecomeHost(t *testing.T) {
	h := newHarness(t)

	h.e.HandleCommand(BecomeHost{Password: mustPassword(t, "abcdefgh")})

	host := h.host()
	assert.Empty(t, host.Clients)
	assert.Equal(t, msgparty.Order{}, host.LastOrder)
	assert.False(t, host.LobbyID.Valid)
	assert.Equal(t, mustPassword(t, "abcdefgh"), host.Password)

	assert.Equal(t, []sent{{to: rendezvousAddr, pkt: &msgparty.CreateLobby{}}}, h.out.take())
	assert.Equal(t, []Notification{IsHost{Host: true}}, h.app.take())
}

func TestBecomeHostTwiceIsIgnored(t *testing.T) {
	h := newHarness(t)
	h.becomeHost("abcdefgh")

	before := h.host()
	h.e.HandleCommand(BecomeHost{Password: mustPassword(t, "other")})

	assert.Same(t, before, h.host())
	assert.Empty(t, h.out.take())
}

func TestHostSessionsDoNotLeak(t *testing.T) {
	h := newHarness(t)
	h.becomeHost("abcdefgh")

	h.authenticate(userAddr, "abcdefgh")
	h.e.HandleCommand(NewOrder{Order: msgparty.NewJoinServer("srv1", "")})
	h.out.take()

	h.e.HandleCommand(BecomeUser{})
	assert.Equal(t, &User{}, h.user())
	assert.Equal(t, 1, h.app.cleared)
	assert.Equal(t, []Notification{LobbyUid{}, IsHost{Host: false}}, h.app.take())

	h.e.HandleCommand(BecomeHost{Password: mustPassword(t, "newpass")})

	host := h.host()
	assert.Empty(t, host.Clients)
	assert.Equal(t, msgparty.NewLeaveServer(), host.LastOrder)
	assert.False(t, host.LobbyID.Valid)
}

func TestBecomeUserAsUserIsIgnored(t *testing.T) {
	h := newHarness(t)
	h.bindUser("abcdefgh", ids.PlayerUid{'a', 'b', 'c', 'd', 'e'})

	h.e.HandleCommand(BecomeUser{})

	assert.True(t, h.user().BoundServer.Valid)
	assert.Empty(t, h.app.take())
}

func TestLeave(t *testing.T) {
	t.Run("from host", func(t *testing.T) {
		h := newHarness(t)
		h.becomeHost("abcdefgh")
		h.authenticate(userAddr, "abcdefgh")

		h.e.HandleCommand(Leave{})

		assert.Equal(t, &User{}, h.user())
		assert.Equal(t, 1, h.app.cleared)
		assert.Contains(t, h.app.take(), IsHost{Host: false})
	})

	t.Run("from bound user", func(t *testing.T) {
		h := newHarness(t)
		h.bindUser("abcdefgh", ids.PlayerUid{'a', 'b', 'c', 'd', 'e'})

		h.e.HandleCommand(Leave{})

		assert.Equal(t, &User{}, h.user())
		assert.Empty(t, h.out.take())
	})

	t.Run("from default user", func(t *testing.T) {
		h := newHarness(t)

		h.e.HandleCommand(Leave{})

		assert.Equal(t, &User{}, h.user())
	})
}

func TestConnectToLobby(t *testing.T) {
	h := newHarness(t)

	lobby := mustLobby(t, "XXXXXXXX")
	h.e.HandleCommand(ConnectToLobby{Lobby: lobby, Password: mustPassword(t, "abcdefgh")})

	assert.Equal(t, mustPassword(t, "abcdefgh"), h.user().Password)
	assert.Equal(t, []sent{{to: rendezvousAddr, pkt: &msgparty.FindLobby{Lobby: lobby}}}, h.out.take())
}

func TestUserOnlyCommandsAsHost(t *testing.T) {
	h := newHarness(t)
	h.becomeHost("abcdefgh")

	h.e.HandleCommand(ConnectToLobby{Lobby: mustLobby(t, "YYYYYYYY"), Password: mustPassword(t, "x")})
	h.e.HandleCommand(GetCachedOrder{})

	assert.Empty(t, h.out.take())
	assert.Empty(t, h.app.take())
	assert.Equal(t, mustPassword(t, "abcdefgh"), h.host().Password)
}

func TestNewOrderAsUserIsIgnored(t *testing.T) {
	h := newHarness(t)

	h.e.HandleCommand(NewOrder{Order: msgparty.NewJoinServer("srv1", "")})

	assert.Empty(t, h.out.take())
	assert.Equal(t, msgparty.Order{}, h.user().CachedOrder)
}

func TestGetCachedOrder(t *testing.T) {
	h := newHarness(t)
	h.bindUser("abcdefgh", ids.PlayerUid{'a', 'b', 'c', 'd', 'e'})

	order := msgparty.NewJoinServer("srv1", "pw")
	h.deliver(hostAddr, &msgparty.NewOrder{Uid: ids.PlayerUid{'a', 'b', 'c', 'd', 'e'}, Order: order})
	assert.Equal(t, []Notification{ExecuteOrder{Order: order}}, h.app.take())

	h.e.HandleCommand(GetCachedOrder{})
	assert.Equal(t, []Notification{ExecuteOrder{Order: order}}, h.app.take())
}

func TestRunLocal(t *testing.T) {
	h := newHarness(t)

	h.e.HandleCommand(RunLocal{Name: "refresh-servers"})

	assert.Equal(t, []Notification{LocalTask{Name: "refresh-servers"}}, h.app.take())
}

func TestAuthWrongPassword(t *testing.T) {
	h := newHarness(t)
	h.becomeHost("abcdefgh")

	h.deliver(userAddr, &msgparty.Auth{Password: mustPassword(t, "wrongpas")})

	assert.Empty(t, h.host().Clients)
	assert.Equal(t, []sent{{to: userAddr, pkt: &msgparty.FailedAuth{}}}, h.out.take())
	assert.Empty(t, h.app.take())
}

func TestAuthAccepted(t *testing.T) {
	h := newHarness(t)
	h.becomeHost("abcdefgh")

	h.deliver(userAddr, &msgparty.Auth{Password: mustPassword(t, "abcdefgh")})

	host := h.host()
	require.Len(t, host.Clients, 1)

	uid := host.Clients[0].Uid
	assert.Equal(t, userAddr, host.Clients[0].Addr)
	assert.True(t, uid.Valid())

	assert.Equal(t, []sent{{to: userAddr, pkt: &msgparty.AuthAccepted{Uid: uid, Password: mustPassword(t, "abcdefgh")}}}, h.out.take())
	assert.Equal(t, []Notification{NewConnection{Uid: uid}}, h.app.take())

	// again, from the same address
	h.deliver(userAddr, &msgparty.Auth{Password: mustPassword(t, "abcdefgh")})

	assert.Len(t, h.host().Clients, 1)
	assert.Empty(t, h.out.take())
}

func TestUidsAreUnique(t *testing.T) {
	h := newHarness(t)
	h.becomeHost("abcdefgh")

	a := h.authenticate(userAddr, "abcdefgh")
	b := h.authenticate(strangerAddr, "abcdefgh")

	assert.NotEqual(t, a, b)

	// a uid is not handed out again after its client is gone
	h.e.HandleEvent(transport.DisconnectEvent{Addr: userAddr})
	c := h.authenticate(userAddr, "abcdefgh")

	assert.NotEqual(t, a, c)
	assert.NotEqual(t, b, c)
}

func TestUidsRunOut(t *testing.T) {
	h := newHarnessWithGenerator(t, ids.NewGenerator(zeroes{}))
	h.becomeHost("abcdefgh")

	h.authenticate(userAddr, "abcdefgh")

	// the generator can only ever draw the uid that is already taken
	h.deliver(strangerAddr, &msgparty.Auth{Password: mustPassword(t, "abcdefgh")})

	assert.Equal(t, []sent{{to: strangerAddr, pkt: &msgparty.FailedAuth{}}}, h.out.take())
	assert.Len(t, h.host().Clients, 1)
	assert.Empty(t, h.app.take())
}

func TestGetLastOrder(t *testing.T) {
	h := newHarness(t)
	h.becomeHost("abcdefgh")

	uid := h.authenticate(userAddr, "abcdefgh")

	h.deliver(userAddr, &msgparty.GetLastOrder{Uid: uid})

	assert.Equal(t, []sent{{to: userAddr, pkt: &msgparty.NewOrder{Uid: uid, Order: msgparty.NewLeaveServer()}}}, h.out.take())

	// unregistered addresses get nothing
	h.deliver(strangerAddr, &msgparty.GetLastOrder{Uid: uid})
	assert.Empty(t, h.out.take())
	assert.Len(t, h.host().Clients, 1)
}

func TestMismatchedUidEvicts(t *testing.T) {
	cases := map[string]func(uid ids.PlayerUid) msgparty.Packet{
		"get last order": func(uid ids.PlayerUid) msgparty.Packet {
			return &msgparty.GetLastOrder{Uid: uid}
		},
		"ping": func(uid ids.PlayerUid) msgparty.Packet {
			return msgparty.NewPing(gonull.NewNullable(uid))
		},
	}

	for name, mk := range cases {
		t.Run(name, func(t *testing.T) {
			h := newHarness(t)
			h.becomeHost("abcdefgh")

			victim := h.authenticate(userAddr, "abcdefgh")
			other := h.authenticate(strangerAddr, "abcdefgh")

			h.deliver(userAddr, mk(other))

			host := h.host()
			require.Len(t, host.Clients, 1)
			assert.Equal(t, Client{Addr: strangerAddr, Uid: other}, host.Clients[0])

			assert.Empty(t, h.out.take())
			assert.Equal(t, []Notification{DroppedConnection{Uid: victim}}, h.app.take())
		})
	}
}

func TestHostPing(t *testing.T) {
	h := newHarness(t)
	h.becomeHost("abcdefgh")

	uid := h.authenticate(userAddr, "abcdefgh")

	h.deliver(userAddr, msgparty.NewPing(gonull.NewNullable(uid)))
	assert.Equal(t, []sent{{to: userAddr, pkt: &msgparty.Pong{}}}, h.out.take())

	// without a uid, or from a stranger, it is ignored
	h.deliver(userAddr, &msgparty.Ping{})
	h.deliver(strangerAddr, msgparty.NewPing(gonull.NewNullable(uid)))
	assert.Empty(t, h.out.take())
	assert.Len(t, h.host().Clients, 1)
}

func TestNewClientSendsVibeCheck(t *testing.T) {
	h := newHarness(t)
	h.becomeHost("abcdefgh")

	h.deliver(rendezvousAddr, &msgparty.NewClient{Addr: userAddr})

	assert.Equal(t, []sent{{to: userAddr, pkt: &msgparty.VibeCheck{}}}, h.out.take())
}

func TestNewClientOnlyFromRendezvous(t *testing.T) {
	h := newHarness(t)
	h.becomeHost("abcdefgh")

	h.deliver(strangerAddr, &msgparty.NewClient{Addr: userAddr})

	assert.Empty(t, h.out.take())
}

func TestNewOrderFansOut(t *testing.T) {
	h := newHarness(t)
	h.becomeHost("abcdefgh")

	addrs := []string{"10.0.1.1:1", "10.0.1.2:2", "10.0.1.3:3"}

	var want []sent
	order := msgparty.NewJoinServer("srv1", "")

	for _, a := range addrs {
		addr := mustAddr(t, a)
		uid := h.authenticate(addr, "abcdefgh")
		want = append(want, sent{to: addr, pkt: &msgparty.NewOrder{Uid: uid, Order: order}})
	}

	h.e.HandleCommand(NewOrder{Order: order})

	assert.Equal(t, want, h.out.take())
	assert.Equal(t, order, h.host().LastOrder)
}

func TestUserReceivesOrder(t *testing.T) {
	uid := ids.PlayerUid{'a', 'b', 'c', 'd', 'e'}
	order := msgparty.NewJoinServer("srv1", "")

	h := newHarness(t)
	h.bindUser("abcdefgh", uid)

	// wrong uid, or not from our host
	h.deliver(hostAddr, &msgparty.NewOrder{Uid: ids.PlayerUid{'z', 'z', 'z', 'z', 'z'}, Order: order})
	h.deliver(strangerAddr, &msgparty.NewOrder{Uid: uid, Order: order})
	assert.Empty(t, h.app.take())
	assert.Equal(t, msgparty.Order{}, h.user().CachedOrder)

	h.deliver(hostAddr, &msgparty.NewOrder{Uid: uid, Order: order})
	assert.Equal(t, []Notification{ExecuteOrder{Order: order}}, h.app.take())
	assert.Equal(t, order, h.user().CachedOrder)
}

func TestUserPing(t *testing.T) {
	uid := ids.PlayerUid{'a', 'b', 'c', 'd', 'e'}

	h := newHarness(t)
	h.bindUser("abcdefgh", uid)

	h.deliver(hostAddr, msgparty.NewPing(gonull.NewNullable(uid)))
	assert.Equal(t, []sent{{to: hostAddr, pkt: &msgparty.Pong{}}}, h.out.take())

	h.deliver(hostAddr, msgparty.NewPing(gonull.NewNullable(ids.PlayerUid{'z', 'z', 'z', 'z', 'z'})))
	h.deliver(hostAddr, &msgparty.VibeCheck{})
	assert.Empty(t, h.out.take())
}

func TestUserAuthAccepted(t *testing.T) {
	uid := ids.PlayerUid{'a', 'b', 'c', 'd', 'e'}

	h := newHarness(t)
	h.e.HandleCommand(ConnectToLobby{Lobby: mustLobby(t, "XXXXXXXX"), Password: mustPassword(t, "abcdefgh")})
	h.out.take()

	// someone else's password
	h.deliver(strangerAddr, &msgparty.AuthAccepted{Uid: uid, Password: mustPassword(t, "wrong")})
	assert.False(t, h.user().BoundServer.Valid)

	h.deliver(hostAddr, &msgparty.AuthAccepted{Uid: uid, Password: mustPassword(t, "abcdefgh")})

	u := h.user()
	assert.Equal(t, gonull.NewNullable(hostAddr), u.BoundServer)
	assert.Equal(t, uid, u.Uid)
	assert.Equal(t, []sent{{to: hostAddr, pkt: &msgparty.GetLastOrder{Uid: uid}}}, h.out.take())
	assert.Equal(t, []rearm{{addr: hostAddr, uid: gonull.NewNullable(uid)}}, h.pings.take())

	// already bound
	h.deliver(strangerAddr, &msgparty.AuthAccepted{Uid: ids.PlayerUid{'z', 'z', 'z', 'z', 'z'}, Password: mustPassword(t, "abcdefgh")})
	assert.Equal(t, gonull.NewNullable(hostAddr), h.user().BoundServer)
	assert.Equal(t, uid, h.user().Uid)
	assert.Empty(t, h.out.take())
}

func TestFailedAuth(t *testing.T) {
	h := newHarness(t)
	h.e.HandleCommand(ConnectToLobby{Lobby: mustLobby(t, "XXXXXXXX"), Password: mustPassword(t, "abcdefgh")})
	h.out.take()

	h.deliver(hostAddr, &msgparty.FailedAuth{})

	assert.Equal(t, []Notification{AuthFailed{}}, h.app.take())
	assert.False(t, h.user().BoundServer.Valid)
	assert.Equal(t, mustPassword(t, "abcdefgh"), h.user().Password)
}

func TestFoundLobby(t *testing.T) {
	h := newHarness(t)
	h.e.HandleCommand(ConnectToLobby{Lobby: mustLobby(t, "XXXXXXXX"), Password: mustPassword(t, "abcdefgh")})
	h.out.take()

	// only the rendezvous server introduces hosts
	h.deliver(strangerAddr, &msgparty.FoundLobby{Addr: strangerAddr})
	assert.Empty(t, h.out.take())

	h.deliver(rendezvousAddr, &msgparty.FoundLobby{Addr: hostAddr})
	assert.Equal(t, []sent{{to: hostAddr, pkt: &msgparty.Auth{Password: mustPassword(t, "abcdefgh")}}}, h.out.take())
}

func TestNoLobby(t *testing.T) {
	h := newHarness(t)

	lobby := mustLobby(t, "XXXXXXXX")
	h.deliver(rendezvousAddr, &msgparty.NoLobby{Lobby: lobby})

	assert.Equal(t, []Notification{LobbyNotFound{Lobby: lobby}}, h.app.take())
	assert.Equal(t, &User{}, h.user())
	assert.Empty(t, h.out.take())
}

func TestCreatedLobby(t *testing.T) {
	h := newHarness(t)
	h.e.HandleCommand(BecomeHost{Password: mustPassword(t, "abcdefgh")})
	h.app.take()

	lobby := mustLobby(t, "XXXXXXXX")

	h.deliver(strangerAddr, &msgparty.CreatedLobby{Lobby: lobby})
	assert.False(t, h.host().LobbyID.Valid)

	h.deliver(rendezvousAddr, &msgparty.CreatedLobby{Lobby: lobby})

	assert.Equal(t, gonull.NewNullable(lobby), h.host().LobbyID)
	assert.Equal(t, []rearm{{addr: rendezvousAddr}}, h.pings.take())
	assert.Equal(t, []ids.LobbyUid{lobby}, h.app.published)
	assert.Equal(t, []Notification{LobbyUid{Lobby: gonull.NewNullable(lobby)}}, h.app.take())
}

func TestPongRearms(t *testing.T) {
	t.Run("host", func(t *testing.T) {
		h := newHarness(t)
		h.becomeHost("abcdefgh")
		uid := h.authenticate(userAddr, "abcdefgh")

		h.deliver(userAddr, &msgparty.Pong{})
		h.deliver(rendezvousAddr, &msgparty.Pong{})
		h.deliver(strangerAddr, &msgparty.Pong{})

		assert.Equal(t, []rearm{
			{addr: userAddr, uid: gonull.NewNullable(uid)},
			{addr: rendezvousAddr},
		}, h.pings.take())
	})

	t.Run("user", func(t *testing.T) {
		uid := ids.PlayerUid{'a', 'b', 'c', 'd', 'e'}

		h := newHarness(t)
		h.bindUser("abcdefgh", uid)

		h.deliver(hostAddr, &msgparty.Pong{})
		h.deliver(strangerAddr, &msgparty.Pong{})

		assert.Equal(t, []rearm{{addr: hostAddr, uid: gonull.NewNullable(uid)}}, h.pings.take())
	})
}

func TestUnexpectedResponsesAreIgnored(t *testing.T) {
	h := newHarness(t)
	h.becomeHost("abcdefgh")

	h.deliver(userAddr, &msgparty.AuthAccepted{Uid: ids.PlayerUid{'a', 'b', 'c', 'd', 'e'}, Password: mustPassword(t, "abcdefgh")})
	h.deliver(rendezvousAddr, &msgparty.NoLobby{Lobby: mustLobby(t, "XXXXXXXX")})
	h.deliver(rendezvousAddr, &msgparty.FoundLobby{Addr: userAddr})

	assert.Empty(t, h.out.take())
	assert.Empty(t, h.app.take())
	assert.True(t, h.host().LobbyID.Valid)
}

func TestGarbageIsDropped(t *testing.T) {
	h := newHarness(t)
	h.becomeHost("abcdefgh")
	h.authenticate(userAddr, "abcdefgh")

	h.e.HandleEvent(transport.PacketEvent{Addr: userAddr, Payload: []byte{1, 0, 0xff}})
	h.e.HandleEvent(transport.PacketEvent{Addr: userAddr, Payload: nil})

	assert.Empty(t, h.out.take())
	assert.Len(t, h.host().Clients, 1)
}

func TestDisconnect(t *testing.T) {
	t.Run("user loses host", func(t *testing.T) {
		h := newHarness(t)
		h.bindUser("abcdefgh", ids.PlayerUid{'a', 'b', 'c', 'd', 'e'})

		h.e.HandleEvent(transport.DisconnectEvent{Addr: strangerAddr})
		assert.True(t, h.user().BoundServer.Valid)

		h.e.HandleEvent(transport.TimeoutEvent{Addr: hostAddr})
		h.e.HandleEvent(transport.DisconnectEvent{Addr: hostAddr})
		assert.False(t, h.user().BoundServer.Valid)
	})

	t.Run("host loses client", func(t *testing.T) {
		h := newHarness(t)
		h.becomeHost("abcdefgh")
		uid := h.authenticate(userAddr, "abcdefgh")

		h.e.HandleEvent(transport.DisconnectEvent{Addr: userAddr})

		assert.Empty(t, h.host().Clients)
		assert.True(t, h.host().LobbyID.Valid)
		assert.Equal(t, []Notification{DroppedConnection{Uid: uid}}, h.app.take())
	})

	t.Run("host loses rendezvous", func(t *testing.T) {
		h := newHarness(t)
		h.becomeHost("abcdefgh")
		h.authenticate(userAddr, "abcdefgh")

		h.e.HandleEvent(transport.DisconnectEvent{Addr: rendezvousAddr})

		assert.False(t, h.host().LobbyID.Valid)
		assert.Len(t, h.host().Clients, 1)
		assert.Equal(t, 1, h.app.cleared)
		assert.Equal(t, []Notification{LobbyUid{}}, h.app.take())
	})
}
