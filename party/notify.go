package party

import (
	"context"
	"log/slog"

	"github.com/LukaGiorgadze/gonull"
	"github.com/compartya/compartya/types/ids"
	"github.com/compartya/compartya/types/msgparty"
)

// Notification is anything the Engine reports to the local application.
type Notification interface {
	isNotification()
}

type ExecuteOrder struct {
	Order msgparty.Order
}

type IsHost struct {
	Host bool
}

// LobbyUid reports the lobby a host owns, or that it lost it.
type LobbyUid struct {
	Lobby gonull.Nullable[ids.LobbyUid]
}

type NewConnection struct {
	Uid ids.PlayerUid
}

type DroppedConnection struct {
	Uid ids.PlayerUid
}

// AuthFailed is reported when a host rejected our password.
type AuthFailed struct{}

type LobbyNotFound struct {
	Lobby ids.LobbyUid
}

type LocalTask struct {
	Name string
}

func (ExecuteOrder) isNotification()      {}
func (IsHost) isNotification()            {}
func (LobbyUid) isNotification()          {}
func (NewConnection) isNotification()     {}
func (DroppedConnection) isNotification() {}
func (AuthFailed) isNotification()        {}
func (LobbyNotFound) isNotification()     {}
func (LocalTask) isNotification()         {}

// OrderSink executes orders; it is the local application's navigation.
type OrderSink interface {
	ExecuteOrder(o msgparty.Order)
}

// PresenceSink publishes the lobby secret a host can be joined with, elsewhere.
type PresenceSink interface {
	PublishSecret(lobby ids.LobbyUid)
	ClearSecret()
}

type Notifier interface {
	Notify(n Notification)
}

// NotifyChan delivers notifications to a channel, it never blocks the Engine;
// a full channel loses the notification.
//
// Orders must not be lost, see Orders.
type NotifyChan chan Notification

func (c NotifyChan) Notify(n Notification) {
	select {
	case c <- n:
	default:
		slog.Warn("notification channel full, dropping", "notification", n)
	}
}

// Orders is an OrderSink on the same channel, that waits for room instead of dropping,
// until ctx is done.
func (c NotifyChan) Orders(ctx context.Context) OrderSink {
	return orderChan{c: c, ctx: ctx}
}

type orderChan struct {
	c   NotifyChan
	ctx context.Context
}

func (o orderChan) ExecuteOrder(order msgparty.Order) {
	select {
	case o.c <- ExecuteOrder{Order: order}:
	case <-o.ctx.Done():
		slog.Warn("dropping order, shutting down", "order", order.Debug())
	}
}

type nopSinks struct{}

func (nopSinks) ExecuteOrder(msgparty.Order) {}
func (nopSinks) PublishSecret(ids.LobbyUid)  {}
func (nopSinks) ClearSecret()                {}
func (nopSinks) Notify(Notification)         {}
