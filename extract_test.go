package ipquery_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"github.com/go-arrower/ipquery"
)

type fakeRequest struct {
	forwarded string
	peer      string
}

func (r fakeRequest) ForwardedAddr() (string, bool) { return r.forwarded, r.forwarded != "" }

func (r fakeRequest) PeerAddr() (string, bool) { return r.peer, r.peer != "" }

func TestExtractAddress(t *testing.T) {
	t.Parallel()

	tests := []struct {
		testName     string
		req          fakeRequest
		forwardedFor bool
		expIP        string
		expErr       string
	}{
		{"peer ipv4", fakeRequest{peer: "203.0.113.7:54321"}, false, "203.0.113.7", ""},
		{"peer ipv6", fakeRequest{peer: "[2001:db8::1]:443"}, false, "2001:db8::1", ""},
		{"peer without port", fakeRequest{peer: "203.0.113.7"}, false, "203.0.113.7", ""},
		{"peer ipv6 without port", fakeRequest{peer: "[2001:db8::1]"}, false, "2001:db8::1", ""},
		{"peer ignores forwarded", fakeRequest{forwarded: "198.51.100.9", peer: "203.0.113.7:1"}, false, "203.0.113.7", ""},
		{"no peer", fakeRequest{forwarded: "198.51.100.9"}, false, "", "no peer address available"},
		{"invalid peer", fakeRequest{peer: "not-an-address"}, false, "", `invalid peer address "not-an-address"`},
		{"forwarded", fakeRequest{forwarded: "198.51.100.9", peer: "203.0.113.7:1"}, true, "198.51.100.9", ""},
		{"forwarded without peer", fakeRequest{forwarded: "198.51.100.9"}, true, "198.51.100.9", ""},
		{"no forwarded", fakeRequest{}, true, "", "no forwarded address available"},
		{"forwarded ipv6 is canonical", fakeRequest{forwarded: "2001:DB8:0::1"}, true, "2001:db8::1", ""},
		{"forwarded ipv6 in brackets", fakeRequest{forwarded: "[2001:db8::1]"}, true, "2001:db8::1", ""},
		{"forwarded not an ip", fakeRequest{forwarded: "garbage", peer: "203.0.113.7:1"}, true, "", `invalid forwarded address "garbage"`},
		{"forwarded with trailing space", fakeRequest{forwarded: "198.51.100.9 "}, true, "", `invalid forwarded address "198.51.100.9 "`},
	}

	for _, tt := range tests {
		t.Run(tt.testName, func(t *testing.T) {
			t.Parallel()

			ip, err := ipquery.ExtractAddress(tt.req, tt.forwardedFor)
			assert.Equal(t, tt.expIP, ip)

			if tt.expErr == "" {
				assert.NoError(t, err)

				return
			}

			var dErr *ipquery.DispatchError

			assert.True(t, errors.As(err, &dErr))
			assert.ErrorIs(t, err, ipquery.ErrExtraction)
			assert.Equal(t, ipquery.OriginExtraction, dErr.Origin)
			assert.Equal(t, tt.expErr, dErr.Cause)
		})
	}
}

func TestFromEcho(t *testing.T) {
	t.Parallel()

	t.Run("peer address", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "203.0.113.7:54321"
		c := echo.New().NewContext(req, httptest.NewRecorder())

		addr, ok := ipquery.FromEcho(c).PeerAddr()
		assert.True(t, ok)
		assert.Equal(t, "203.0.113.7:54321", addr)
	})

	t.Run("forwarded by header", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = ""
		req.Header.Set(echo.HeaderXForwardedFor, "198.51.100.9")
		c := echo.New().NewContext(req, httptest.NewRecorder())

		ip, ok := ipquery.FromEcho(c).ForwardedAddr()
		assert.True(t, ok)
		assert.Equal(t, "198.51.100.9", ip)

		_, ok = ipquery.FromEcho(c).PeerAddr()
		assert.False(t, ok)
	})

	t.Run("forwarded uses the ip extractor of echo", func(t *testing.T) {
		t.Parallel()

		e := echo.New()
		e.IPExtractor = echo.ExtractIPFromXFFHeader()

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:8080" // trusted proxy on a private network
		req.Header.Set(echo.HeaderXForwardedFor, "198.51.100.9, 10.0.0.2")
		c := e.NewContext(req, httptest.NewRecorder())

		ip, ok := ipquery.FromEcho(c).ForwardedAddr()
		assert.True(t, ok)
		assert.Equal(t, "198.51.100.9", ip)
	})

	t.Run("forwarded falls back to the peer", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "203.0.113.7:54321"
		c := echo.New().NewContext(req, httptest.NewRecorder())

		ip, ok := ipquery.FromEcho(c).ForwardedAddr()
		assert.True(t, ok)
		assert.Equal(t, "203.0.113.7", ip)
	})

	t.Run("nothing known", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = ""
		c := echo.New().NewContext(req, httptest.NewRecorder())

		_, ok := ipquery.FromEcho(c).ForwardedAddr()
		assert.False(t, ok)
	})
}
