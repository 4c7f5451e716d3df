package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/compartya/compartya/config"
	"github.com/spf13/cobra"
)

var (
	programLevel = new(slog.LevelVar) // Info by default

	cfgFile    string
	rendezvous string
	bindAddr   string
	logLevel   string

	cfg config.Client
)

var rootCmd = &cobra.Command{
	Use:   "partyctl [launch args...]",
	Short: "Join or host a party, and follow the orders of its host",
	Long: `partyctl runs a party peer.

Without a subcommand it opens an interactive shell. Launch arguments, as a game
launcher passes them ("compartya_ip <ip>", "compartya_port <port>" and a
"compartya://open:<server>" URI) are picked up as well.`,
	Args:          cobra.ArbitraryArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg = config.DefaultClient()

		if cfgFile != "" {
			if err := config.LoadClientFile(cfgFile, &cfg); err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
		}

		if err := cfg.ApplyArgs(args); err != nil {
			return err
		}

		if rendezvous != "" {
			cfg.Rendezvous = rendezvous
		}

		if bindAddr != "" {
			ap, err := config.ParseAddr(bindAddr)
			if err != nil {
				return fmt.Errorf("invalid bind address: %w", err)
			}
			cfg.BindIP = ap.Addr()
			cfg.BindPort = ap.Port()
		}

		if logLevel != "" {
			l, err := config.ParseLevel(logLevel)
			if err != nil {
				return err
			}
			cfg.LogLevel = l
		}

		programLevel.Set(cfg.LogLevel)

		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runShell(cmd.Context(), args)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().StringVarP(&rendezvous, "rendezvous", "r", "", "rendezvous server address, host:port")
	rootCmd.PersistentFlags().StringVarP(&bindAddr, "bind", "b", "", "local address to listen on, ip:port")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "trace, debug, info, warn or error")
}

func main() {
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: programLevel})
	slog.SetDefault(slog.New(h))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		cancel()
		os.Exit(1)
	}
}
