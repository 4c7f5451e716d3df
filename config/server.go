package config

import (
	"fmt"
	"log/slog"
	"net"
	"net/netip"
	"strings"
	"time"

	"github.com/compartya/compartya/types/transport"
)

const (
	DefaultServerHost = "0.0.0.0"
	DefaultServerPort = "2000"
)

// DevServerAddr is where a rendezvous server in development mode listens.
var DevServerAddr = netip.MustParseAddrPort("127.0.0.1:2000")

type Server struct {
	Addr        netip.AddrPort
	IdleTimeout time.Duration
	LogLevel    slog.Level
}

func DefaultServer() Server {
	return Server{
		Addr:        netip.MustParseAddrPort(DefaultServerHost + ":" + DefaultServerPort),
		IdleTimeout: transport.DefaultIdleTimeout,
		LogLevel:    slog.LevelInfo,
	}
}

type serverFile struct {
	Addr        string `toml:"addr"`
	IdleTimeout string `toml:"idle_timeout"`
	LogLevel    string `toml:"log_level"`
}

// LoadServerFile overlays the keys set in the TOML file at path onto cfg.
func LoadServerFile(path string, cfg *Server) error {
	var raw serverFile

	meta, err := decodeFile(path, &raw)
	if err != nil {
		return err
	}

	if meta.IsDefined("addr") {
		ap, err := ParseAddr(raw.Addr)
		if err != nil {
			return fmt.Errorf("parse addr: %w", err)
		}
		cfg.Addr = ap
	}

	if meta.IsDefined("idle_timeout") {
		if cfg.IdleTimeout, err = parseDuration("idle_timeout", raw.IdleTimeout); err != nil {
			return err
		}
	}

	if meta.IsDefined("log_level") {
		if cfg.LogLevel, err = ParseLevel(raw.LogLevel); err != nil {
			return err
		}
	}

	return nil
}

// ApplyEnv reads SERVER_ADDR and PORT; either one replaces only its half of the address.
func (s *Server) ApplyEnv(getenv func(string) string) error {
	host := strings.TrimSpace(getenv("SERVER_ADDR"))
	port := strings.TrimSpace(getenv("PORT"))

	if host == "" && port == "" {
		return nil
	}

	if host == "" {
		host = s.Addr.Addr().String()
	}
	if port == "" {
		port = fmt.Sprint(s.Addr.Port())
	}

	ap, err := ParseAddr(net.JoinHostPort(host, port))
	if err != nil {
		return fmt.Errorf("parse SERVER_ADDR/PORT: %w", err)
	}

	s.Addr = ap
	return nil
}

// ParseAddr parses "ip:port", allowing the ip to be left out for "all interfaces".
func ParseAddr(s string) (netip.AddrPort, error) {
	host, port, err := net.SplitHostPort(strings.TrimSpace(s))
	if err != nil {
		return netip.AddrPort{}, err
	}

	if host == "" {
		host = DefaultServerHost
	}

	return netip.ParseAddrPort(net.JoinHostPort(host, port))
}
