// Package msgparty contains the party wire message definitions and parsing methods,
// sent between peers and the rendezvous server, one per datagram.
//
// Packet interface definitions are sealed within this package.
package msgparty

import (
	"fmt"
	"net/netip"
	"slices"

	"github.com/LukaGiorgadze/gonull"
	"github.com/compartya/compartya/types/bin"
	"github.com/compartya/compartya/types/ids"
)

// Packet is one wire value; either a Message or a Response.
type Packet interface {
	Kind() Kind

	// appendBody appends the type-specific fields.
	appendBody(b []byte) ([]byte, error)
	typeByte() byte

	Debug() string
}

// Message is a request or notification.
type Message interface {
	Packet
	isMessage()
}

// Response answers a Message.
type Response interface {
	Packet
	isResponse()
}

// Marshal encodes a packet into its wire form.
func Marshal(p Packet) ([]byte, error) {
	b := []byte{byte(v1), byte(p.Kind()), p.typeByte()}

	b, err := p.appendBody(b)
	if err != nil {
		return nil, fmt.Errorf("could not marshal %s: %w", p.Debug(), err)
	}

	return b, nil
}

type message struct{}

func (message) Kind() Kind { return KindMessage }
func (message) isMessage() {}

type response struct{}

func (response) Kind() Kind  { return KindResponse }
func (response) isResponse() {}

// ======================================================================================================
// Messages

// FindLobby asks the rendezvous server for the owner of a lobby.
type FindLobby struct {
	message
	Lobby ids.LobbyUid
}

func (m *FindLobby) typeByte() byte { return byte(FindLobbyMessage) }
func (m *FindLobby) appendBody(b []byte) ([]byte, error) {
	return append(b, m.Lobby[:]...), nil
}
func (m *FindLobby) Debug() string { return fmt.Sprintf("findlobby lobby=%s", m.Lobby) }

// CreateLobby asks the rendezvous server to register the sender as owner of a fresh lobby.
type CreateLobby struct {
	message
}

func (m *CreateLobby) typeByte() byte                       { return byte(CreateLobbyMessage) }
func (m *CreateLobby) appendBody(b []byte) ([]byte, error) { return b, nil }
func (m *CreateLobby) Debug() string                        { return "createlobby" }

// NewClient tells a host that Addr is looking for its lobby.
type NewClient struct {
	message
	Addr netip.AddrPort
}

func (m *NewClient) typeByte() byte { return byte(NewClientMessage) }
func (m *NewClient) appendBody(b []byte) ([]byte, error) {
	return append(b, bin.PutAddrPort(m.Addr)...), nil
}
func (m *NewClient) Debug() string { return fmt.Sprintf("newclient addr=%s", m.Addr) }

type Auth struct {
	message
	Password ids.Password
}

func (m *Auth) typeByte() byte { return byte(AuthMessage) }
func (m *Auth) appendBody(b []byte) ([]byte, error) {
	return append(b, m.Password[:]...), nil
}
func (m *Auth) Debug() string { return "auth" }

type GetLastOrder struct {
	message
	Uid ids.PlayerUid
}

func (m *GetLastOrder) typeByte() byte { return byte(GetLastOrderMessage) }
func (m *GetLastOrder) appendBody(b []byte) ([]byte, error) {
	return append(b, m.Uid[:]...), nil
}
func (m *GetLastOrder) Debug() string { return fmt.Sprintf("getlastorder uid=%s", m.Uid) }

type NewOrder struct {
	message
	Uid   ids.PlayerUid
	Order Order
}

func (m *NewOrder) typeByte() byte { return byte(NewOrderMessage) }
func (m *NewOrder) appendBody(b []byte) ([]byte, error) {
	ob, err := marshalOrder(m.Order)
	if err != nil {
		return nil, err
	}

	return slices.Concat(b, m.Uid[:], ob), nil
}
func (m *NewOrder) Debug() string {
	return fmt.Sprintf("neworder uid=%s order=(%s)", m.Uid, m.Order.Debug())
}

// VibeCheck is a nudge a host sends towards a joining address, not acknowledged further.
type VibeCheck struct {
	message
}

func (m *VibeCheck) typeByte() byte                       { return byte(VibeCheckMessage) }
func (m *VibeCheck) appendBody(b []byte) ([]byte, error) { return b, nil }
func (m *VibeCheck) Debug() string                        { return "vibecheck" }

// Ping is a liveness probe; peers tag it with the uid they were assigned, the rendezvous server gets an untagged one.
type Ping struct {
	message
	Uid gonull.Nullable[ids.PlayerUid]
}

func NewPing(uid gonull.Nullable[ids.PlayerUid]) *Ping {
	return &Ping{Uid: uid}
}

func (m *Ping) typeByte() byte { return byte(PingMessage) }
func (m *Ping) appendBody(b []byte) ([]byte, error) {
	if !m.Uid.Valid {
		return append(b, 0), nil
	}
	return append(append(b, 1), m.Uid.Val[:]...), nil
}
func (m *Ping) Debug() string {
	if !m.Uid.Valid {
		return "ping"
	}
	return fmt.Sprintf("ping uid=%s", m.Uid.Val)
}

// ======================================================================================================
// Responses

type FoundLobby struct {
	response
	Addr netip.AddrPort
}

func (r *FoundLobby) typeByte() byte { return byte(FoundLobbyResponse) }
func (r *FoundLobby) appendBody(b []byte) ([]byte, error) {
	return append(b, bin.PutAddrPort(r.Addr)...), nil
}
func (r *FoundLobby) Debug() string { return fmt.Sprintf("foundlobby addr=%s", r.Addr) }

type NoLobby struct {
	response
	Lobby ids.LobbyUid
}

func (r *NoLobby) typeByte() byte { return byte(NoLobbyResponse) }
func (r *NoLobby) appendBody(b []byte) ([]byte, error) {
	return append(b, r.Lobby[:]...), nil
}
func (r *NoLobby) Debug() string { return fmt.Sprintf("nolobby lobby=%s", r.Lobby) }

type CreatedLobby struct {
	response
	Lobby ids.LobbyUid
}

func (r *CreatedLobby) typeByte() byte { return byte(CreatedLobbyResponse) }
func (r *CreatedLobby) appendBody(b []byte) ([]byte, error) {
	return append(b, r.Lobby[:]...), nil
}
func (r *CreatedLobby) Debug() string { return fmt.Sprintf("createdlobby lobby=%s", r.Lobby) }

// AuthAccepted echoes the password back, so that the user can match it against the lobby it meant to join.
type AuthAccepted struct {
	response
	Uid      ids.PlayerUid
	Password ids.Password
}

func (r *AuthAccepted) typeByte() byte { return byte(AuthAcceptedResponse) }
func (r *AuthAccepted) appendBody(b []byte) ([]byte, error) {
	return slices.Concat(b, r.Uid[:], r.Password[:]), nil
}
func (r *AuthAccepted) Debug() string { return fmt.Sprintf("authaccepted uid=%s", r.Uid) }

type FailedAuth struct {
	response
}

func (r *FailedAuth) typeByte() byte                       { return byte(FailedAuthResponse) }
func (r *FailedAuth) appendBody(b []byte) ([]byte, error) { return b, nil }
func (r *FailedAuth) Debug() string                        { return "failedauth" }

type Pong struct {
	response
}

func (r *Pong) typeByte() byte                       { return byte(PongResponse) }
func (r *Pong) appendBody(b []byte) ([]byte, error) { return b, nil }
func (r *Pong) Debug() string                        { return "pong" }
