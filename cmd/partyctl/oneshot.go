package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/compartya/compartya/party"
	"github.com/compartya/compartya/types/ids"
	"github.com/spf13/cobra"
)

var password string

var errJoinFailed = errors.New("could not join lobby")

var hostCmdline = &cobra.Command{
	Use:   "host",
	Short: "Host a lobby, and print everything that happens to it",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		pw, err := ids.ParsePassword(password)
		if err != nil {
			return fmt.Errorf("invalid password: %w", err)
		}

		p, err := startPeer(cmd.Context(), nil, printPresence{println: func(a ...any) { fmt.Fprintln(os.Stdout, a...) }})
		if err != nil {
			return err
		}

		p.engine.Submit(party.BecomeHost{Password: pw})

		return follow(cmd, p, nil)
	},
}

var joinCmdline = &cobra.Command{
	Use:   "join <lobby>",
	Short: "Join a lobby, and print the orders of its host",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		lobby, err := ids.ParseLobbyUid(args[0])
		if err != nil {
			return fmt.Errorf("invalid lobby: %w", err)
		}

		pw, err := ids.ParsePassword(password)
		if err != nil {
			return fmt.Errorf("invalid password: %w", err)
		}

		p, err := startPeer(cmd.Context(), nil, nil)
		if err != nil {
			return err
		}

		p.engine.Submit(party.ConnectToLobby{Lobby: lobby, Password: pw})

		return follow(cmd, p, func(n party.Notification) error {
			switch n.(type) {
			case party.AuthFailed, party.LobbyNotFound:
				return errJoinFailed
			}
			return nil
		})
	},
}

// follow prints notifications until the command is interrupted, or stop returns an error.
func follow(cmd *cobra.Command, p *peer, stop func(party.Notification) error) error {
	for {
		select {
		case <-cmd.Context().Done():
			return nil
		case n := <-p.notes:
			cmd.Println(describe(n))

			if stop == nil {
				continue
			}
			if err := stop(n); err != nil {
				return err
			}
		}
	}
}

func init() {
	for _, c := range []*cobra.Command{hostCmdline, joinCmdline} {
		c.Flags().StringVarP(&password, "password", "p", "", "lobby password, up to 8 characters")
		rootCmd.AddCommand(c)
	}
}
