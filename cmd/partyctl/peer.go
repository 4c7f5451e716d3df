package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/LukaGiorgadze/gonull"
	"github.com/compartya/compartya/party"
	"github.com/compartya/compartya/types/ids"
	"github.com/compartya/compartya/types/msgparty"
	"github.com/compartya/compartya/types/transport"
)

// peer is a running party engine, with everything it needs around it.
type peer struct {
	engine *party.Engine
	notes  party.NotifyChan
}

func startPeer(ctx context.Context, args []string, presence party.PresenceSink) (*peer, error) {
	rv, err := cfg.RendezvousAddr()
	if err != nil {
		return nil, err
	}

	bind, err := cfg.BindAddr()
	if err != nil {
		return nil, err
	}

	sock, err := transport.Bind(ctx, bind, cfg.TransportConfig())
	if err != nil {
		return nil, err
	}

	mon := party.NewLivenessMonitor(ctx, sock, cfg.PingDelay)

	p := &peer{notes: make(party.NotifyChan, 64)}

	pcfg := party.Config{
		Rendezvous:   rv,
		DefaultOrder: msgparty.NewJoinServer(cfg.DefaultServer, ""),
		Orders:       p.notes.Orders(ctx),
		Presence:     presence,
		Notify:       p.notes,
	}

	if o, ok := launchOrder(args); ok {
		pcfg.LaunchOrder = gonull.NewNullable(o)
	}

	p.engine = party.NewEngine(ctx, pcfg, sock, sock.Events(), mon)

	go sock.Run()
	go mon.Run()
	go p.engine.Run()

	slog.Info("peer started", "bind", sock.Local, "rendezvous", rv)

	return p, nil
}

func launchOrder(args []string) (msgparty.Order, bool) {
	if cfg.LaunchURI != "" {
		o, ok := party.ParseLaunchOrder(cfg.LaunchURI)
		if !ok {
			slog.Warn("ignoring unrecognised launch uri", "uri", cfg.LaunchURI)
		}
		return o, ok
	}

	return party.FindLaunchOrder(args)
}

func describe(n party.Notification) string {
	switch n := n.(type) {
	case party.ExecuteOrder:
		return "order: " + n.Order.Debug()
	case party.IsHost:
		if n.Host {
			return "now hosting"
		}
		return "no longer hosting"
	case party.LobbyUid:
		if n.Lobby.Valid {
			return "lobby: " + n.Lobby.Val.String()
		}
		return "lobby: none"
	case party.NewConnection:
		return "joined: " + n.Uid.String()
	case party.DroppedConnection:
		return "left: " + n.Uid.String()
	case party.AuthFailed:
		return "authentication failed"
	case party.LobbyNotFound:
		return "lobby not found: " + n.Lobby.String()
	case party.LocalTask:
		return "task: " + n.Name
	default:
		return fmt.Sprintf("%#v", n)
	}
}

// printPresence shows the lobby secret, where a real application would publish it.
type printPresence struct {
	println func(a ...any)
}

func (p printPresence) PublishSecret(lobby ids.LobbyUid) {
	p.println("invite secret:", lobby.String())
}

func (p printPresence) ClearSecret() {
	p.println("invite secret cleared")
}
