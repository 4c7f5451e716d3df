package main

import (
	"context"
	"errors"
	"log/slog"

	"github.com/abiosoft/ishell/v2"
	"github.com/compartya/compartya/party"
	"github.com/compartya/compartya/types"
	"github.com/compartya/compartya/types/ids"
	"github.com/compartya/compartya/types/msgparty"
)

func runShell(ctx context.Context, args []string) error {
	shell := ishell.New()

	shell.SetHomeHistoryPath(".partyctl_history")

	shell.Println("partyctl interactive shell")

	p, err := startPeer(ctx, args, printPresence{println: shell.Println})
	if err != nil {
		return err
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case n := <-p.notes:
				shell.Println(describe(n))
			}
		}
	}()

	shell.AddCmd(&ishell.Cmd{
		Name: "trace",
		Help: "set log level to trace",
		Func: func(c *ishell.Context) {
			programLevel.Set(types.LevelTrace)
		},
	})

	shell.AddCmd(&ishell.Cmd{
		Name: "debug",
		Help: "set log level to debug",
		Func: func(c *ishell.Context) {
			programLevel.Set(slog.LevelDebug)
		},
	})

	shell.AddCmd(&ishell.Cmd{
		Name: "info",
		Help: "set log level to info",
		Func: func(c *ishell.Context) {
			programLevel.Set(slog.LevelInfo)
		},
	})

	shell.AddCmd(hostCmd(p))
	shell.AddCmd(connectCmd(p))
	shell.AddCmd(orderCmd(p))

	shell.AddCmd(&ishell.Cmd{
		Name: "user",
		Help: "stop hosting",
		Func: func(c *ishell.Context) {
			p.engine.Submit(party.BecomeUser{})
		},
	})

	shell.AddCmd(&ishell.Cmd{
		Name: "leave",
		Help: "leave the lobby, or stop hosting it",
		Func: func(c *ishell.Context) {
			p.engine.Submit(party.Leave{})
		},
	})

	shell.AddCmd(&ishell.Cmd{
		Name: "cached",
		Help: "execute the last order received again",
		Func: func(c *ishell.Context) {
			p.engine.Submit(party.GetCachedOrder{})
		},
	})

	shell.AddCmd(&ishell.Cmd{
		Name: "local",
		Help: "run a local task: local <name>",
		Func: func(c *ishell.Context) {
			if len(c.Args) != 1 {
				c.Err(errors.New("usage: local <name>"))
				return
			}
			p.engine.Submit(party.RunLocal{Name: c.Args[0]})
		},
	})

	shell.Run()

	return nil
}

// readPassword takes the password from args, or asks for it.
func readPassword(c *ishell.Context, args []string) (ids.Password, error) {
	var line string
	if len(args) == 0 {
		c.Print("password (empty for none): ")
		line = c.ReadPassword()
	} else {
		line = args[0]
	}

	return ids.ParsePassword(line)
}

func hostCmd(p *peer) *ishell.Cmd {
	return &ishell.Cmd{
		Name: "host",
		Help: "host a new lobby: host [password]",
		Func: func(c *ishell.Context) {
			pw, err := readPassword(c, c.Args)
			if err != nil {
				c.Err(err)
				return
			}

			p.engine.Submit(party.BecomeHost{Password: pw})
		},
	}
}

func connectCmd(p *peer) *ishell.Cmd {
	return &ishell.Cmd{
		Name: "connect",
		Help: "join a lobby: connect <lobby> [password]",
		Func: func(c *ishell.Context) {
			if len(c.Args) == 0 {
				c.Err(errors.New("usage: connect <lobby> [password]"))
				return
			}

			lobby, err := ids.ParseLobbyUid(c.Args[0])
			if err != nil {
				c.Err(err)
				return
			}

			pw, err := readPassword(c, c.Args[1:])
			if err != nil {
				c.Err(err)
				return
			}

			p.engine.Submit(party.Leave{})
			p.engine.Submit(party.ConnectToLobby{Lobby: lobby, Password: pw})
		},
	}
}

func orderCmd(p *peer) *ishell.Cmd {
	c := &ishell.Cmd{
		Name: "order",
		Help: "send an order to everyone in the lobby",
	}

	c.AddCmd(&ishell.Cmd{
		Name: "join",
		Help: "order join <server> [password]",
		Func: func(c *ishell.Context) {
			if len(c.Args) == 0 || len(c.Args) > 2 {
				c.Err(errors.New("usage: order join <server> [password]"))
				return
			}

			var pw string
			if len(c.Args) == 2 {
				pw = c.Args[1]
			}

			p.engine.Submit(party.NewOrder{Order: msgparty.NewJoinServer(c.Args[0], pw)})
		},
	})

	c.AddCmd(&ishell.Cmd{
		Name: "leave",
		Help: "order everyone to leave their server",
		Func: func(c *ishell.Context) {
			p.engine.Submit(party.NewOrder{Order: msgparty.NewLeaveServer()})
		},
	})

	return c
}
