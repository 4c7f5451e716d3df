package rendezvous

import (
	"errors"
	"net/netip"

	"github.com/compartya/compartya/types/ids"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// MaxCreateAttempts bounds how often Create redraws a lobby id that is already taken.
const MaxCreateAttempts = 16

var (
	ErrAlreadyOwner = errors.New("address already owns a lobby")
	ErrNoFreeId     = errors.New("could not draw an unused lobby id")
)

// Directory maps lobbies to the address of their owner, and back.
//
// Each lobby has exactly one owner, and each address owns at most one lobby.
// Directory is not safe for concurrent use; the Server owns it.
type Directory struct {
	gen *ids.Generator

	byLobby map[ids.LobbyUid]netip.AddrPort
	byAddr  map[netip.AddrPort]ids.LobbyUid
}

func NewDirectory(gen *ids.Generator) *Directory {
	if gen == nil {
		gen = ids.Default
	}

	return &Directory{
		gen:     gen,
		byLobby: make(map[ids.LobbyUid]netip.AddrPort),
		byAddr:  make(map[netip.AddrPort]ids.LobbyUid),
	}
}

// Create draws a fresh lobby id for owner, and registers it.
func (d *Directory) Create(owner netip.AddrPort) (ids.LobbyUid, error) {
	if _, ok := d.byAddr[owner]; ok {
		return ids.LobbyUid{}, ErrAlreadyOwner
	}

	for range MaxCreateAttempts {
		id := d.gen.Lobby()

		if _, taken := d.byLobby[id]; taken {
			continue
		}

		d.byLobby[id] = owner
		d.byAddr[owner] = id

		return id, nil
	}

	return ids.LobbyUid{}, ErrNoFreeId
}

func (d *Directory) Owner(id ids.LobbyUid) (netip.AddrPort, bool) {
	ap, ok := d.byLobby[id]
	return ap, ok
}

func (d *Directory) LobbyOf(addr netip.AddrPort) (ids.LobbyUid, bool) {
	id, ok := d.byAddr[addr]
	return id, ok
}

// Remove drops whatever lobby addr owns, reports which one.
func (d *Directory) Remove(addr netip.AddrPort) (ids.LobbyUid, bool) {
	id, ok := d.byAddr[addr]
	if !ok {
		return ids.LobbyUid{}, false
	}

	delete(d.byAddr, addr)
	delete(d.byLobby, id)

	return id, true
}

func (d *Directory) Len() int {
	return len(d.byLobby)
}

// Lobbies lists every registered lobby, sorted.
func (d *Directory) Lobbies() []ids.LobbyUid {
	l := maps.Keys(d.byLobby)

	slices.SortFunc(l, func(a, b ids.LobbyUid) int {
		return slices.Compare(a[:], b[:])
	})

	return l
}
