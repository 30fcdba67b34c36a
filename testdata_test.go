package ipquery_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"

	"github.com/labstack/echo/v4"

	"github.com/go-arrower/ipquery"
)

var (
	errLookupFails = errors.New("lookup-error")
	errStoreFails  = errors.New("store-error")
	errInnerFails  = errors.New("inner-error")
)

const innerPayload = "rendered page"

var fixedRecord = ipquery.Record{ //nolint:gochecknoglobals // test fixture
	IP:       "198.51.100.9",
	ISP:      ipquery.ISP{ASN: "AS64496", Org: "Example Org", ISP: "Example ISP"},
	Location: ipquery.Location{Country: "Germany", CountryCode: "DE", City: "Erfurt", Latitude: 50.98, Longitude: 11.03},
	Risk:     ipquery.Risk{RiskScore: 0},
}

// stubResolver counts its calls and returns a fixed record or error.
type stubResolver struct {
	calls atomic.Int32

	mu        sync.Mutex
	ips       []string
	endpoints []string

	record ipquery.Record
	err    error
}

func (r *stubResolver) Resolve(_ context.Context, ip string, endpoint string) (ipquery.Record, error) {
	r.calls.Add(1)

	r.mu.Lock()
	r.ips = append(r.ips, ip)
	r.endpoints = append(r.endpoints, endpoint)
	r.mu.Unlock()

	if r.err != nil {
		return ipquery.Record{}, r.err
	}

	return r.record, nil
}

// recordingStore keeps every record it is called with.
type recordingStore struct {
	mu      sync.Mutex
	records []ipquery.Record

	err error
}

func (s *recordingStore) Store(_ context.Context, record ipquery.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = append(s.records, record)

	return s.err
}

func (s *recordingStore) Records() []ipquery.Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]ipquery.Record{}, s.records...)
}

// countingHandler is the inner handler, rendering innerPayload or failing.
type countingHandler struct {
	calls atomic.Int32
	err   error
}

func (h *countingHandler) Handle(c echo.Context) error {
	h.calls.Add(1)

	if h.err != nil {
		return h.err
	}

	c.Response().Header().Set("X-Inner", "yes")

	return c.String(http.StatusCreated, innerPayload)
}

// serve runs the middleware in front of handler through a complete echo router.
func serve(m *ipquery.Middleware, handler echo.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	e := echo.New()
	e.Use(m.Handler)
	e.Any("/", handler)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	return rec
}

// dispatch calls the middleware directly, so the returned error can be inspected.
func dispatch(m *ipquery.Middleware, handler echo.HandlerFunc, req *http.Request) (*httptest.ResponseRecorder, error) {
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)

	return rec, m.Handler(handler)(c)
}
