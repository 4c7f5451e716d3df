package config

import (
	"errors"
	"fmt"
	"net"
	"net/netip"

	"go4.org/netipx"
)

var ErrNoLocalIP = errors.New("could not find a local IPv4 address")

var privateV4 = func() *netipx.IPSet {
	var b netipx.IPSetBuilder

	for _, p := range []string{"10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16"} {
		b.AddPrefix(netip.MustParsePrefix(p))
	}

	s, err := b.IPSet()
	if err != nil {
		panic(err)
	}
	return s
}()

// LocalIP returns the address this machine most likely has on its LAN.
func LocalIP() (netip.Addr, error) {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return netip.Addr{}, fmt.Errorf("could not list interface addresses: %w", err)
	}

	var prefixes []netip.Prefix

	for _, a := range addrs {
		ipn, ok := a.(*net.IPNet)
		if !ok {
			continue
		}

		if p, ok := netipx.FromStdIPNet(ipn); ok {
			prefixes = append(prefixes, p)
		}
	}

	if ip, ok := PickLocalIP(prefixes); ok {
		return ip, nil
	}

	return netip.Addr{}, ErrNoLocalIP
}

// PickLocalIP prefers a private IPv4 address, then any other usable IPv4 address.
func PickLocalIP(prefixes []netip.Prefix) (netip.Addr, bool) {
	var fallback netip.Addr

	for _, p := range prefixes {
		a := p.Addr().Unmap()

		if !a.Is4() || a.IsLoopback() || a.IsLinkLocalUnicast() || a.IsUnspecified() {
			continue
		}

		if privateV4.Contains(a) {
			return a, true
		}

		if !fallback.IsValid() {
			fallback = a
		}
	}

	return fallback, fallback.IsValid()
}
