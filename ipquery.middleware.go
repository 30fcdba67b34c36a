package ipquery

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/go-arrower/ipquery/alog"
	"github.com/go-arrower/ipquery/mw"
)

// Lookup is the input of the lookup stage.
type Lookup struct {
	IP       string `validate:"required,ip"`
	Endpoint string `validate:"required,url"`
}

// Middleware resolves and stores the client IP of each request.
// Create it with New(store)...Finish() and attach Handler to echo.
type Middleware struct {
	config  Config
	logger  *slog.Logger
	skipper middleware.Skipper

	lookup func(context.Context, Lookup) (Record, error)
	store  func(context.Context, Record) error

	// detached tracks the background dispatches of PolicyDetached.
	// No dispatch is added to it once closing is set.
	mu       sync.Mutex
	closing  bool
	detached sync.WaitGroup
}

func newMiddleware(b *Builder) *Middleware {
	resolver := b.resolver
	store := b.store

	lookup := func(ctx context.Context, in Lookup) (Record, error) {
		return resolver.Resolve(ctx, in.IP, in.Endpoint)
	}
	lookup = mw.Validate(validate, lookup)
	lookup = mw.Logged(b.logger, lookup)
	lookup = mw.Metric(b.meterProvider, lookup)
	lookup = mw.Traced(b.tracerProvider, lookup)

	persist := func(ctx context.Context, record Record) error {
		return store.Store(ctx, record)
	}
	persist = mw.ValidateU(validate, persist)
	persist = mw.LoggedU(b.logger, persist)
	persist = mw.MetricU(b.meterProvider, persist)
	persist = mw.TracedU(b.tracerProvider, persist)

	return &Middleware{
		config:  b.config,
		logger:  b.logger,
		skipper: b.skipper,
		lookup:  lookup,
		store:   persist,
	}
}

// Config returns the configuration the Middleware was finished with.
func (m *Middleware) Config() Config {
	return m.config
}

// Handler is the echo.MiddlewareFunc, use it as: e.Use(m.Handler).
func (m *Middleware) Handler(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if m.skipper(c) {
			return next(c)
		}

		ip, err := extractAddress(FromEcho(c), m.config.ForwardedFor)
		if err != nil {
			m.logger.InfoContext(c.Request().Context(), "could not extract client ip",
				slog.String("error", err.Error()),
			)

			return toHTTPError(err)
		}

		if m.config.Policy == PolicyDetached {
			return m.dispatchDetached(c, next, ip)
		}

		return m.dispatchBlocking(c, next, ip)
	}
}

// dispatchBlocking holds the response of next back, until the record is stored.
func (m *Middleware) dispatchBlocking(c echo.Context, next echo.HandlerFunc, ip string) error {
	original := c.Response()
	buf := newResponseBuffer(original.Header())

	c.SetResponse(echo.NewResponse(buf, c.Echo()))

	err := next(c)

	c.SetResponse(original)

	if err != nil {
		return err
	}

	if err := m.resolveAndStore(c.Request().Context(), ip); err != nil {
		m.logger.InfoContext(c.Request().Context(), "response discarded",
			slog.String("ip", ip),
			slog.String("stage", err.Origin.String()),
			slog.String("error", err.Cause),
		)

		return toHTTPError(err)
	}

	return buf.flushTo(original)
}

// dispatchDetached delivers the response of next and resolves and stores in the background.
func (m *Middleware) dispatchDetached(c echo.Context, next echo.HandlerFunc, ip string) error {
	if err := next(c); err != nil {
		return err
	}

	// keep the trace, but not the cancellation of the finished request
	ctx := context.WithoutCancel(c.Request().Context())

	if !m.addDetached() {
		m.logger.InfoContext(ctx, "detached dispatch dropped, middleware is shutting down",
			slog.String("ip", ip),
		)

		return nil
	}

	go func() {
		defer m.detached.Done()

		if err := m.resolveAndStore(ctx, ip); err != nil {
			m.logger.InfoContext(ctx, "detached dispatch failed",
				slog.String("ip", ip),
				slog.String("stage", err.Origin.String()),
				slog.String("error", err.Cause),
			)
		}
	}()

	return nil
}

// resolveAndStore runs the lookup and the store stage, each bounded by the configured timeout.
func (m *Middleware) resolveAndStore(ctx context.Context, ip string) *DispatchError {
	ctx = alog.AddAttr(ctx, slog.String("client_ip", ip))

	lookupCtx, cancel := context.WithTimeout(ctx, m.config.Timeout)
	record, err := m.lookup(lookupCtx, Lookup{IP: ip, Endpoint: m.config.Endpoint})

	cancel()

	if err != nil {
		return newDispatchError(OriginLookup, err)
	}

	storeCtx, cancel := context.WithTimeout(ctx, m.config.Timeout)
	defer cancel()

	if err := m.store(storeCtx, record); err != nil {
		return newDispatchError(OriginStorage, err)
	}

	return nil
}

func (m *Middleware) addDetached() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closing {
		return false
	}

	m.detached.Add(1)

	return true
}

// Shutdown waits until all background dispatches of PolicyDetached are done or ctx expires.
// Requests served after Shutdown got called are still delivered, but not resolved and stored.
func (m *Middleware) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	m.closing = true
	m.mu.Unlock()

	done := make(chan struct{})

	go func() {
		m.detached.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", ErrShutdown, ctx.Err()) //nolint:errorlint // prevent err in api
	}
}

// responseBuffer captures everything a handler writes,
// so it can be sent later or be thrown away.
type responseBuffer struct {
	header http.Header
	status int
	body   bytes.Buffer
}

var (
	_ http.ResponseWriter = (*responseBuffer)(nil)
	_ http.Flusher        = (*responseBuffer)(nil)
)

// newResponseBuffer starts with a copy of header,
// so headers set by previous middlewares stay visible to the handler.
func newResponseBuffer(header http.Header) *responseBuffer {
	return &responseBuffer{header: header.Clone()}
}

func (b *responseBuffer) Header() http.Header {
	return b.header
}

func (b *responseBuffer) WriteHeader(code int) {
	if b.status == 0 {
		b.status = code
	}
}

func (b *responseBuffer) Write(p []byte) (int, error) {
	if b.status == 0 {
		b.status = http.StatusOK
	}

	return b.body.Write(p) //nolint:wrapcheck // bytes.Buffer
}

// Flush is a noop, the buffer is only ever flushed as a whole.
// echo.Response panics on writers not supporting it.
func (b *responseBuffer) Flush() {}

func (b *responseBuffer) flushTo(res *echo.Response) error {
	header := res.Header()
	for key := range header {
		delete(header, key)
	}

	for key, values := range b.header {
		header[key] = values
	}

	if b.status == 0 {
		return nil
	}

	res.WriteHeader(b.status)

	if b.body.Len() == 0 {
		return nil
	}

	if _, err := res.Write(b.body.Bytes()); err != nil {
		return fmt.Errorf("could not write response: %w", err)
	}

	return nil
}
