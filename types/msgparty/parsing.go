package msgparty

import (
	"errors"
	"fmt"

	"github.com/LukaGiorgadze/gonull"
	"github.com/compartya/compartya/types/bin"
	"github.com/compartya/compartya/types/ids"
)

// Packet Wire layout:
//   Version (1) + Kind (1) + Type (1) + Data
//
// Identifiers are fixed-width, addresses are 18 bytes (v4-mapped ipv6 + port),
// orders are an embedded BSON document running to the end of the datagram.

var (
	ErrTooSmall      = errors.New("packet too small")
	ErrTrailingBytes = errors.New("packet has trailing bytes")
	ErrBadVersion    = errors.New("invalid packet version")
	ErrUnknownType   = errors.New("unknown packet type")
	ErrMalformed     = errors.New("malformed packet field")
)

// Parse decodes a single packet, it fails on truncated or corrupted bytes and never returns a partial packet.
func Parse(b []byte) (Packet, error) {
	if len(b) < headerLen {
		return nil, ErrTooSmall
	}

	version, kind, typ := b[0], b[1], b[2]
	body := b[headerLen:]

	if VersionMarker(version) != v1 {
		return nil, fmt.Errorf("%w: %x", ErrBadVersion, version)
	}

	var (
		p   Packet
		err error
	)

	switch Kind(kind) {
	case KindMessage:
		p, err = parseMessage(MessageType(typ), body)
	case KindResponse:
		p, err = parseResponse(ResponseType(typ), body)
	default:
		return nil, fmt.Errorf("%w: kind %x", ErrUnknownType, kind)
	}

	if err != nil {
		return nil, err
	}

	return p, nil
}

func parseMessage(typ MessageType, b []byte) (Message, error) {
	switch typ {
	case FindLobbyMessage:
		l, err := exactLobby(b)
		if err != nil {
			return nil, err
		}
		return &FindLobby{Lobby: l}, nil
	case CreateLobbyMessage:
		if err := empty(b); err != nil {
			return nil, err
		}
		return &CreateLobby{}, nil
	case NewClientMessage:
		if err := exact(b, bin.AddrPortLen); err != nil {
			return nil, err
		}
		return &NewClient{Addr: bin.ParseAddrPort([bin.AddrPortLen]byte(b))}, nil
	case AuthMessage:
		if err := exact(b, ids.PasswordLen); err != nil {
			return nil, err
		}
		p := ids.Password(b)
		if !p.Valid() {
			return nil, fmt.Errorf("%w: password", ErrMalformed)
		}
		return &Auth{Password: p}, nil
	case GetLastOrderMessage:
		if err := exact(b, ids.PlayerLen); err != nil {
			return nil, err
		}
		u, err := playerUid(b)
		if err != nil {
			return nil, err
		}
		return &GetLastOrder{Uid: u}, nil
	case NewOrderMessage:
		if len(b) < ids.PlayerLen {
			return nil, ErrTooSmall
		}
		u, err := playerUid(b[:ids.PlayerLen])
		if err != nil {
			return nil, err
		}
		o, err := parseOrder(b[ids.PlayerLen:])
		if err != nil {
			return nil, err
		}
		return &NewOrder{Uid: u, Order: o}, nil
	case VibeCheckMessage:
		if err := empty(b); err != nil {
			return nil, err
		}
		return &VibeCheck{}, nil
	case PingMessage:
		return parsePing(b)
	default:
		return nil, fmt.Errorf("%w: message %x", ErrUnknownType, byte(typ))
	}
}

func parseResponse(typ ResponseType, b []byte) (Response, error) {
	switch typ {
	case FoundLobbyResponse:
		if err := exact(b, bin.AddrPortLen); err != nil {
			return nil, err
		}
		return &FoundLobby{Addr: bin.ParseAddrPort([bin.AddrPortLen]byte(b))}, nil
	case NoLobbyResponse:
		l, err := exactLobby(b)
		if err != nil {
			return nil, err
		}
		return &NoLobby{Lobby: l}, nil
	case CreatedLobbyResponse:
		l, err := exactLobby(b)
		if err != nil {
			return nil, err
		}
		return &CreatedLobby{Lobby: l}, nil
	case AuthAcceptedResponse:
		if err := exact(b, ids.PlayerLen+ids.PasswordLen); err != nil {
			return nil, err
		}
		u, err := playerUid(b[:ids.PlayerLen])
		if err != nil {
			return nil, err
		}
		p := ids.Password(b[ids.PlayerLen:])
		if !p.Valid() {
			return nil, fmt.Errorf("%w: password", ErrMalformed)
		}
		return &AuthAccepted{Uid: u, Password: p}, nil
	case FailedAuthResponse:
		if err := empty(b); err != nil {
			return nil, err
		}
		return &FailedAuth{}, nil
	case PongResponse:
		if err := empty(b); err != nil {
			return nil, err
		}
		return &Pong{}, nil
	default:
		return nil, fmt.Errorf("%w: response %x", ErrUnknownType, byte(typ))
	}
}

func parsePing(b []byte) (*Ping, error) {
	if len(b) < 1 {
		return nil, ErrTooSmall
	}

	switch b[0] {
	case 0:
		if err := empty(b[1:]); err != nil {
			return nil, err
		}
		return &Ping{}, nil
	case 1:
		if err := exact(b[1:], ids.PlayerLen); err != nil {
			return nil, err
		}
		u, err := playerUid(b[1:])
		if err != nil {
			return nil, err
		}
		return NewPing(gonull.NewNullable(u)), nil
	default:
		return nil, fmt.Errorf("%w: ping uid marker %x", ErrMalformed, b[0])
	}
}

func exact(b []byte, n int) error {
	switch {
	case len(b) < n:
		return ErrTooSmall
	case len(b) > n:
		return ErrTrailingBytes
	default:
		return nil
	}
}

func empty(b []byte) error {
	return exact(b, 0)
}

func exactLobby(b []byte) (ids.LobbyUid, error) {
	if err := exact(b, ids.LobbyLen); err != nil {
		return ids.LobbyUid{}, err
	}

	l := ids.LobbyUid(b)
	if !l.Valid() {
		return ids.LobbyUid{}, fmt.Errorf("%w: lobby uid", ErrMalformed)
	}

	return l, nil
}

func playerUid(b []byte) (ids.PlayerUid, error) {
	u := ids.PlayerUid(b)
	if !u.Valid() {
		return ids.PlayerUid{}, fmt.Errorf("%w: player uid", ErrMalformed)
	}

	return u, nil
}
