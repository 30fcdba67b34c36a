// Package ipquery is an echo middleware that resolves the client IP of every request
// to geolocation and network information and hands the result to a Store.
//
// Usage:
//
//	m, err := ipquery.New(store.NewMemory()).
//		Endpoint("https://api.ipquery.io/").
//		ForwardedFor(true).
//		Finish()
//	if err != nil {
//		return err
//	}
//
//	e := echo.New()
//	e.Use(m.Handler)
//
// For each request the middleware extracts the client IP, calls the next handler,
// and only after that handler has completed it resolves the IP and stores the record.
//
// With the default PolicyBlocking the response of the next handler is held back until
// lookup and store have finished. If either of them fails, the response is discarded and
// the client receives 500 Internal Server Error, even though the page itself rendered fine.
// This makes every served response auditable. Use PolicyDetached if the page should be
// delivered regardless: lookup and store then run in the background and failures are only logged.
//
// An error returned by the next handler is passed on unchanged, and lookup and store are skipped.
// With PolicyBlocking whatever the handler wrote before returning the error is discarded,
// so echo's HTTPErrorHandler renders the error instead of the already written response.
//
// Buffering the response does not work with handlers that hijack the connection or stream,
// e.g. websockets or server sent events. Exclude those routes with a Skipper.
//
// Call Shutdown after the echo server is shut down. Requests still served afterwards are
// delivered, but with PolicyDetached their client IP is neither resolved nor stored.
package ipquery
