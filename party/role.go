package party

import (
	"net/netip"

	"github.com/LukaGiorgadze/gonull"
	"github.com/compartya/compartya/types/ids"
	"github.com/compartya/compartya/types/msgparty"
	"golang.org/x/exp/slices"
)

// MaxUidAttempts bounds how often a Host redraws a player uid it already handed out.
const MaxUidAttempts = 16

// Role is either *User or *Host, never both.
type Role interface {
	isRole()
}

// User is the role of a peer that joins a lobby, and follows the orders of its host.
type User struct {
	// BoundServer is the host this user authenticated with, if any.
	BoundServer gonull.Nullable[netip.AddrPort]

	Uid         ids.PlayerUid
	Password    ids.Password
	CachedOrder msgparty.Order
}

func (*User) isRole() {}

// Client is a peer a Host has authenticated.
type Client struct {
	Addr netip.AddrPort
	Uid  ids.PlayerUid
}

// Host is the role of a peer that owns a lobby.
type Host struct {
	LobbyID gonull.Nullable[ids.LobbyUid]

	Password ids.Password

	// Clients has at most one entry per address.
	Clients []Client

	LastOrder msgparty.Order

	// issued holds every uid handed out during this host session, so that none are ever reused.
	issued map[ids.PlayerUid]struct{}
}

func (*Host) isRole() {}

func newHost(password ids.Password) *Host {
	return &Host{
		Password: password,
		issued:   make(map[ids.PlayerUid]struct{}),
	}
}

func (h *Host) clientIndex(addr netip.AddrPort) int {
	return slices.IndexFunc(h.Clients, func(c Client) bool {
		return c.Addr == addr
	})
}

// Client returns the client registered at addr.
func (h *Host) Client(addr netip.AddrPort) (Client, bool) {
	if i := h.clientIndex(addr); i != -1 {
		return h.Clients[i], true
	}
	return Client{}, false
}

// removeClient drops the client at addr, and returns it.
func (h *Host) removeClient(addr netip.AddrPort) (Client, bool) {
	i := h.clientIndex(addr)
	if i == -1 {
		return Client{}, false
	}

	c := h.Clients[i]
	h.Clients = slices.Delete(h.Clients, i, i+1)

	return c, true
}

// issueUid draws a uid that this host has not handed out before, giving up after MaxUidAttempts.
func (h *Host) issueUid(gen *ids.Generator) (ids.PlayerUid, bool) {
	for range MaxUidAttempts {
		uid := gen.Player()

		if _, used := h.issued[uid]; used {
			continue
		}

		h.issued[uid] = struct{}{}
		return uid, true
	}

	return ids.PlayerUid{}, false
}
