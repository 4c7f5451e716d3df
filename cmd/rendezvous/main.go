package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/compartya/compartya/config"
	"github.com/compartya/compartya/rendezvous"
	"github.com/compartya/compartya/types/transport"
)

var (
	dev         = flag.Bool("dev", false, "run in localhost development mode (overrides -a)")
	addr        = flag.String("a", "", "UDP listen address, in form \":port\", \"ip:port\", or for IPv6 \"[ip]:port\". If the IP is omitted, it defaults to all interfaces. Overrides SERVER_ADDR and PORT.")
	configPath  = flag.String("c", "", "config file path")
	idleTimeout = flag.Duration("idle-timeout", 0, "how long a silent peer stays connected")
	logLevel    = flag.String("log-level", "", "trace, debug, info, warn or error")
)

var programLevel = new(slog.LevelVar) // Info by default

func main() {
	flag.Parse()

	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: programLevel})
	slog.SetDefault(slog.New(h))

	cfg := loadConfig()

	programLevel.Set(cfg.LogLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	tcfg := transport.DefaultConfig()
	tcfg.IdleTimeout = cfg.IdleTimeout

	sock, err := transport.Bind(ctx, cfg.Addr, tcfg)
	if err != nil {
		log.Fatalf("rendezvous: %v", err)
	}

	srv := rendezvous.NewServer(ctx, sock, sock.Events(), nil)

	go sock.Run()

	slog.Info("rendezvous: serving", "addr", sock.Local, "idle-timeout", cfg.IdleTimeout)

	srv.Run()

	slog.Info("rendezvous: stopped", "lobbies", srv.Stats().Lobbies)
}

func loadConfig() config.Server {
	cfg := config.DefaultServer()

	if *configPath != "" {
		if err := config.LoadServerFile(*configPath, &cfg); err != nil {
			log.Fatalf("rendezvous: %v", err)
		}
	}

	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		log.Fatalf("rendezvous: %v", err)
	}

	if *addr != "" {
		ap, err := config.ParseAddr(*addr)
		if err != nil {
			log.Fatalf("invalid server address: %v", err)
		}
		cfg.Addr = ap
	}

	if *dev {
		cfg.Addr = config.DevServerAddr
		cfg.LogLevel = slog.LevelDebug
		log.Printf("Running in dev mode.")
	}

	if *idleTimeout > 0 {
		cfg.IdleTimeout = *idleTimeout
	}

	if *logLevel != "" {
		l, err := config.ParseLevel(*logLevel)
		if err != nil {
			log.Fatalf("rendezvous: %v", err)
		}
		cfg.LogLevel = l
	}

	return cfg
}
