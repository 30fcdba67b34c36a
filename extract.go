package ipquery

import (
	"errors"
	"fmt"
	"net/netip"
	"strings"

	"github.com/labstack/echo/v4"
)

var (
	errNoForwardedAddr = errors.New("no forwarded address available")
	errNoPeerAddr      = errors.New("no peer address available")
)

// RequestInfo exposes the addresses of a request, as far as the server knows them.
type RequestInfo interface {
	// ForwardedAddr is the client address as reported by a proxy in front of the server.
	ForwardedAddr() (string, bool)
	// PeerAddr is the remote address of the connection, usually in the form host:port.
	PeerAddr() (string, bool)
}

// FromEcho returns the RequestInfo of an echo request.
//
// The forwarded address is echo.Context.RealIP, so an IPExtractor configured on
// the echo instance is respected, see: https://echo.labstack.com/docs/ip-address
func FromEcho(c echo.Context) RequestInfo { //nolint:ireturn // adapter
	return echoRequest{c: c}
}

type echoRequest struct {
	c echo.Context
}

func (r echoRequest) ForwardedAddr() (string, bool) {
	ip := r.c.RealIP()

	return ip, ip != ""
}

func (r echoRequest) PeerAddr() (string, bool) {
	addr := r.c.Request().RemoteAddr

	return addr, addr != ""
}

// ExtractAddress returns the client IP of the request.
// If forwardedFor is true, the address forwarded by a proxy is used,
// otherwise the IP of the connection's peer address.
// The IP is returned in its canonical form, e.g. 2001:db8::1 for 2001:DB8:0::1.
//
// A returned error is always a *DispatchError of OriginExtraction.
func ExtractAddress(req RequestInfo, forwardedFor bool) (string, error) {
	ip, err := extractAddress(req, forwardedFor)
	if err != nil {
		return "", err
	}

	return ip, nil
}

func extractAddress(req RequestInfo, forwardedFor bool) (string, *DispatchError) {
	if forwardedFor {
		addr, ok := req.ForwardedAddr()
		if !ok {
			return "", newDispatchError(OriginExtraction, errNoForwardedAddr)
		}

		ip, err := canonicalIP(addr)
		if err != nil {
			return "", newDispatchError(OriginExtraction, fmt.Errorf("invalid forwarded address %q", addr))
		}

		return ip, nil
	}

	addr, ok := req.PeerAddr()
	if !ok {
		return "", newDispatchError(OriginExtraction, errNoPeerAddr)
	}

	ip, err := peerIP(addr)
	if err != nil {
		return "", newDispatchError(OriginExtraction, err)
	}

	return ip, nil
}

// peerIP returns the canonical text of the IP in addr.
// addr can be host:port, [host]:port, or a bare IP.
func peerIP(addr string) (string, error) {
	if addrPort, err := netip.ParseAddrPort(addr); err == nil {
		return addrPort.Addr().String(), nil
	}

	ip, err := canonicalIP(addr)
	if err != nil {
		return "", fmt.Errorf("invalid peer address %q", addr)
	}

	return ip, nil
}

// canonicalIP accepts a bare IP, IPv6 optionally in brackets.
func canonicalIP(addr string) (string, error) {
	ip, err := netip.ParseAddr(strings.TrimSuffix(strings.TrimPrefix(addr, "["), "]"))
	if err != nil {
		return "", err //nolint:wrapcheck // callers report the address
	}

	return ip.String(), nil
}
