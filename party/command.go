package party

import (
	"fmt"

	"github.com/compartya/compartya/types/ids"
	"github.com/compartya/compartya/types/msgparty"
)

// Command is a local instruction to the Engine.
type Command interface {
	Debug() string
}

// ConnectToLobby looks up a lobby on the rendezvous server, and authenticates with its host.
//
// Only valid as a User.
type ConnectToLobby struct {
	Lobby    ids.LobbyUid
	Password ids.Password
}

func (c ConnectToLobby) Debug() string { return fmt.Sprintf("connect lobby=%s", c.Lobby) }

// BecomeHost turns a User into a fresh Host, and asks the rendezvous server for a lobby.
type BecomeHost struct {
	Password ids.Password
}

func (c BecomeHost) Debug() string { return "become host" }

type BecomeUser struct{}

func (c BecomeUser) Debug() string { return "become user" }

// Leave resets to a default User, from any role.
type Leave struct{}

func (c Leave) Debug() string { return "leave" }

// NewOrder sets the current order of a Host, and sends it to every client.
type NewOrder struct {
	Order msgparty.Order
}

func (c NewOrder) Debug() string { return "new order " + c.Order.Debug() }

// GetCachedOrder asks a User to re-emit the last order it was given.
type GetCachedOrder struct{}

func (c GetCachedOrder) Debug() string { return "get cached order" }

// RunLocal is passed through to the application as a LocalTask, in order with the other notifications.
type RunLocal struct {
	Name string
}

func (c RunLocal) Debug() string { return "run local " + c.Name }
