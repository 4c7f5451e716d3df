package rendezvous

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/netip"
	"sync/atomic"
	"time"

	"github.com/compartya/compartya/types"
	"github.com/compartya/compartya/types/actor"
	"github.com/compartya/compartya/types/ids"
	"github.com/compartya/compartya/types/msgparty"
	"github.com/compartya/compartya/types/transport"
)

// StatsInterval is how often a running Server logs its Stats.
const StatsInterval = time.Minute

type Stats struct {
	Lobbies int
}

// Server introduces peers to lobby owners.
//
// It keeps no state beyond its Directory, which only lives as long as the owners stay connected.
type Server struct {
	*actor.Common

	send   transport.Sender
	events <-chan transport.Event

	dir *Directory

	lobbies atomic.Int64
}

// NewServer makes a server that reads events from events, and replies through send.
//
// gen may be nil, in which case lobby ids are drawn from crypto/rand.
func NewServer(ctx context.Context, send transport.Sender, events <-chan transport.Event, gen *ids.Generator) *Server {
	return &Server{
		Common: actor.MakeCommon(ctx),
		send:   send,
		events: events,
		dir:    NewDirectory(gen),
	}
}

func (s *Server) Run() {
	defer actor.Bail(s)

	if !s.Start() {
		actor.L(s).Warn("tried to run agent, while already running")
		return
	}

	ticker := time.NewTicker(StatsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.Ctx().Done():
			s.Close()
			return
		case ev, ok := <-s.events:
			if !ok {
				s.Cancel()
				continue
			}
			s.Handle(ev)
		case <-ticker.C:
			s.logStats()
		}
	}
}

func (s *Server) Close() {}

func (s *Server) logStats() {
	actor.L(s).Debug("stats", "lobbies", s.Stats().Lobbies)

	if slog.Default().Enabled(s.Ctx(), types.LevelTrace) {
		actor.L(s).Log(s.Ctx(), types.LevelTrace, "registered lobbies", "ids", s.dir.Lobbies())
	}
}

// Stats is safe to call from any goroutine.
func (s *Server) Stats() Stats {
	return Stats{Lobbies: int(s.lobbies.Load())}
}

// Handle processes a single transport event.
func (s *Server) Handle(ev transport.Event) {
	switch ev := ev.(type) {
	case transport.PacketEvent:
		pkt, err := msgparty.Parse(ev.Payload)
		if err != nil {
			actor.L(s).Debug("dropping undecodable packet", "from", ev.Addr, "err", err)
			return
		}

		if err := s.handlePacket(ev.Addr, pkt); err != nil {
			var illegal *msgparty.IllegalPacketError
			if errors.As(err, &illegal) {
				s.evict(ev.Addr)
			}
			actor.L(s).Error("error handling packet", "from", ev.Addr, "err", err)
		}
	case transport.ConnectEvent:
		actor.L(s).Info("connected", "addr", ev.Addr)
	case transport.TimeoutEvent:
		// followed by a disconnect
	case transport.DisconnectEvent:
		s.evict(ev.Addr)
		actor.L(s).Info("disconnected", "addr", ev.Addr)
	default:
		actor.L(s).Warn("unknown transport event", "event", ev)
	}

	s.lobbies.Store(int64(s.dir.Len()))
}

func (s *Server) handlePacket(from netip.AddrPort, pkt msgparty.Packet) error {
	_, registered := s.dir.LobbyOf(from)

	switch p := pkt.(type) {
	case *msgparty.FindLobby:
		if registered {
			break
		}

		owner, ok := s.dir.Owner(p.Lobby)
		if !ok {
			actor.L(s).Info("lobby not found", "lobby", p.Lobby, "for", from)
			return s.reply(from, &msgparty.NoLobby{Lobby: p.Lobby})
		}

		actor.L(s).Info("found lobby", "lobby", p.Lobby, "for", from)

		if err := s.reply(owner, &msgparty.NewClient{Addr: from}); err != nil {
			return err
		}
		return s.reply(from, &msgparty.FoundLobby{Addr: owner})
	case *msgparty.CreateLobby:
		if registered {
			break
		}

		id, err := s.dir.Create(from)
		if err != nil {
			return fmt.Errorf("could not create lobby for %s: %w", from, err)
		}

		actor.L(s).Info("created lobby", "lobby", id, "for", from)

		return s.reply(from, &msgparty.CreatedLobby{Lobby: id})
	case *msgparty.Ping:
		if registered {
			return s.reply(from, &msgparty.Pong{})
		}
		return nil
	case *msgparty.Pong:
		return nil
	}

	return &msgparty.IllegalPacketError{Packet: pkt}
}

func (s *Server) reply(to netip.AddrPort, p msgparty.Packet) error {
	b, err := msgparty.Marshal(p)
	if err != nil {
		return fmt.Errorf("could not marshal %s: %w", p.Debug(), err)
	}

	s.send.Send(transport.ReliablePacket(to, b))

	return nil
}

func (s *Server) evict(addr netip.AddrPort) {
	if id, ok := s.dir.Remove(addr); ok {
		actor.L(s).Info("removed lobby", "lobby", id, "owner", addr)
	}
}
