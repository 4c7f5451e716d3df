package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/netip"
	"strconv"
	"strings"
	"time"

	"github.com/compartya/compartya/types"
	"github.com/compartya/compartya/types/transport"
)

const (
	DefaultBindPort  = 12352
	DefaultPingDelay = 500 * time.Millisecond

	// DefaultServerID is the server a fresh peer's cached order points to.
	DefaultServerID = "f4bffec013fe65b634ba2ea499a86fa3"
)

// Launch arguments that override the bind address, each followed by its value.
const (
	ArgBindIP   = "compartya_ip"
	ArgBindPort = "compartya_port"
)

var ErrNoRendezvous = errors.New("no rendezvous server address configured")

type Client struct {
	Rendezvous string

	// BindIP is auto-detected when unset.
	BindIP   netip.Addr
	BindPort uint16

	IdleTimeout time.Duration
	PingDelay   time.Duration

	LaunchURI     string
	DefaultServer string

	LogLevel slog.Level
}

func DefaultClient() Client {
	return Client{
		BindPort:      DefaultBindPort,
		IdleTimeout:   transport.DefaultIdleTimeout,
		PingDelay:     DefaultPingDelay,
		DefaultServer: DefaultServerID,
		LogLevel:      slog.LevelInfo,
	}
}

type clientFile struct {
	Rendezvous    string `toml:"rendezvous"`
	BindIP        string `toml:"bind_ip"`
	BindPort      int    `toml:"bind_port"`
	IdleTimeout   string `toml:"idle_timeout"`
	PingDelay     string `toml:"ping_delay"`
	LaunchURI     string `toml:"launch_uri"`
	DefaultServer string `toml:"default_server"`
	LogLevel      string `toml:"log_level"`
}

// LoadClientFile overlays the keys set in the TOML file at path onto cfg.
func LoadClientFile(path string, cfg *Client) error {
	var raw clientFile

	meta, err := decodeFile(path, &raw)
	if err != nil {
		return err
	}

	if meta.IsDefined("rendezvous") {
		cfg.Rendezvous = strings.TrimSpace(raw.Rendezvous)
	}

	if meta.IsDefined("bind_ip") {
		if cfg.BindIP, err = parseBindIP(raw.BindIP); err != nil {
			return err
		}
	}

	if meta.IsDefined("bind_port") {
		if raw.BindPort < 0 || raw.BindPort > 65535 {
			return fmt.Errorf("parse bind_port: %d out of range", raw.BindPort)
		}
		cfg.BindPort = uint16(raw.BindPort)
	}

	if meta.IsDefined("idle_timeout") {
		if cfg.IdleTimeout, err = parseDuration("idle_timeout", raw.IdleTimeout); err != nil {
			return err
		}
	}

	if meta.IsDefined("ping_delay") {
		if cfg.PingDelay, err = parseDuration("ping_delay", raw.PingDelay); err != nil {
			return err
		}
	}

	if meta.IsDefined("launch_uri") {
		cfg.LaunchURI = strings.TrimSpace(raw.LaunchURI)
	}

	if meta.IsDefined("default_server") {
		cfg.DefaultServer = strings.TrimSpace(raw.DefaultServer)
	}

	if meta.IsDefined("log_level") {
		if cfg.LogLevel, err = ParseLevel(raw.LogLevel); err != nil {
			return err
		}
	}

	return nil
}

func parseBindIP(s string) (netip.Addr, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return netip.Addr{}, nil
	}

	a, err := netip.ParseAddr(s)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("parse bind_ip: %w", err)
	}
	return a, nil
}

// ApplyArgs picks up "compartya_ip <ip>" and "compartya_port <port>" pairs, as a game launcher passes them.
func (c *Client) ApplyArgs(args []string) error {
	for i := 0; i+1 < len(args); i++ {
		switch args[i] {
		case ArgBindIP:
			a, err := parseBindIP(args[i+1])
			if err != nil {
				return err
			}
			c.BindIP = a
		case ArgBindPort:
			p, err := strconv.ParseUint(strings.TrimSpace(args[i+1]), 10, 16)
			if err != nil {
				return fmt.Errorf("parse %s: %w", ArgBindPort, err)
			}
			c.BindPort = uint16(p)
		default:
			continue
		}
		i++
	}

	return nil
}

// BindAddr is where the peer listens; an unset BindIP is replaced by the machine's local address.
func (c Client) BindAddr() (netip.AddrPort, error) {
	ip := c.BindIP

	if !ip.IsValid() {
		var err error
		if ip, err = LocalIP(); err != nil {
			return netip.AddrPort{}, err
		}
	}

	return netip.AddrPortFrom(ip, c.BindPort), nil
}

// RendezvousAddr resolves the rendezvous server, which may be given by name.
func (c Client) RendezvousAddr() (netip.AddrPort, error) {
	if c.Rendezvous == "" {
		return netip.AddrPort{}, ErrNoRendezvous
	}

	if ap, err := netip.ParseAddrPort(c.Rendezvous); err == nil {
		return types.NormaliseAddrPort(ap), nil
	}

	ua, err := net.ResolveUDPAddr("udp", c.Rendezvous)
	if err != nil {
		return netip.AddrPort{}, fmt.Errorf("resolve rendezvous %q: %w", c.Rendezvous, err)
	}

	return types.NormaliseAddrPort(ua.AddrPort()), nil
}

func (c Client) TransportConfig() transport.Config {
	cfg := transport.DefaultConfig()
	cfg.IdleTimeout = c.IdleTimeout
	return cfg
}
