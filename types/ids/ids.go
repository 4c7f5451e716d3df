// Package ids contains the fixed-width identifiers and secrets exchanged by party peers.
//
// Identifiers are never variable-length on the wire. Passwords and player uids that are shorter are padded
// with spaces, lobby ids must be given in full; longer or non-printable inputs are rejected before they
// ever reach the protocol.
package ids

import (
	"errors"
	"fmt"
	"strings"

	"go4.org/mem"
)

const (
	LobbyLen    = 8
	PasswordLen = 8
	PlayerLen   = 5

	pad = ' '
)

var (
	ErrTooLong  = errors.New("identifier too long")
	ErrTooShort = errors.New("identifier too short")
	ErrBadChar  = errors.New("identifier contains a non-printable or non-ascii character")
)

// LobbyUid identifies a lobby at the rendezvous server.
type LobbyUid [LobbyLen]byte

// Password is the shared secret a host authenticates joining users with.
type Password [PasswordLen]byte

// PlayerUid is assigned by a host to an authenticated user, and authorises its subsequent requests.
type PlayerUid [PlayerLen]byte

// fill copies in into dst, padding the remainder with spaces.
func fill(dst []byte, in mem.RO) error {
	if in.Len() > len(dst) {
		return fmt.Errorf("%w: got %d characters, at most %d allowed", ErrTooLong, in.Len(), len(dst))
	}

	for i := 0; i < in.Len(); i++ {
		if c := in.At(i); c < 0x20 || c > 0x7e {
			return fmt.Errorf("%w: %q at %d", ErrBadChar, c, i)
		}
	}

	n := in.Copy(dst)
	for i := n; i < len(dst); i++ {
		dst[i] = pad
	}

	return nil
}

// fillExact is fill, for identifiers that are never padded.
func fillExact(dst []byte, in mem.RO) error {
	if in.Len() < len(dst) {
		return fmt.Errorf("%w: got %d characters, need %d", ErrTooShort, in.Len(), len(dst))
	}

	return fill(dst, in)
}

// Valid reports whether every byte of b could have come out of fill.
func valid(b []byte) bool {
	for _, c := range b {
		if c < 0x20 || c > 0x7e {
			return false
		}
	}
	return true
}

func ParseLobbyUid(s string) (l LobbyUid, err error) {
	err = fillExact(l[:], mem.S(strings.TrimSpace(s)))
	return
}

// ParsePassword accepts an empty password; it becomes all spaces, as a host without a password has.
func ParsePassword(s string) (p Password, err error) {
	err = fill(p[:], mem.S(s))
	return
}

func ParsePlayerUid(s string) (u PlayerUid, err error) {
	err = fill(u[:], mem.S(strings.TrimSpace(s)))
	return
}

func (l LobbyUid) String() string {
	return string(l[:])
}

func (l LobbyUid) IsZero() bool {
	return l == LobbyUid{}
}

func (l LobbyUid) Valid() bool {
	return valid(l[:])
}

func (l LobbyUid) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

func (l *LobbyUid) UnmarshalText(b []byte) error {
	return fillExact(l[:], mem.B(b))
}

// String masks the password, so that it never ends up in logs.
func (p Password) String() string {
	return strings.Repeat("*", PasswordLen)
}

// Reveal returns the password as typed, including padding.
func (p Password) Reveal() string {
	return string(p[:])
}

func (p Password) Valid() bool {
	return valid(p[:])
}

func (p *Password) UnmarshalText(b []byte) error {
	return fill(p[:], mem.B(b))
}

func (u PlayerUid) String() string {
	return string(u[:])
}

func (u PlayerUid) IsZero() bool {
	return u == PlayerUid{}
}

func (u PlayerUid) Valid() bool {
	return valid(u[:])
}

func (u PlayerUid) MarshalText() ([]byte, error) {
	return []byte(u.String()), nil
}

func (u *PlayerUid) UnmarshalText(b []byte) error {
	return fill(u[:], mem.B(b))
}
