// Package resolver contains ipquery.Resolvers working on local geolocation databases,
// for deployments that must not send client IPs to a remote service.
//
// The endpoint passed to Resolve is ignored by all of them.
package resolver

import (
	"errors"
	"net/netip"
)

var (
	ErrInvalidDatabase = errors.New("invalid database file")
	ErrInvalidIP       = errors.New("invalid ip address")
	ErrResolveFailed   = errors.New("resolving ip failed")
)

func parseIP(ip string) (netip.Addr, error) {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return netip.Addr{}, ErrInvalidIP
	}

	return addr.Unmap(), nil
}
