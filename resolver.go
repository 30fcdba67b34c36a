package ipquery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// DefaultEndpoint is the public ipquery.io API.
const DefaultEndpoint = "https://api.ipquery.io/"

var ErrResolveFailed = errors.New("resolving ip failed")

// Resolver looks up the information for a single IP address.
// The endpoint is the base URL of the lookup service, as configured for the middleware.
// Resolvers not talking to a remote service are free to ignore it.
type Resolver interface {
	Resolve(ctx context.Context, ip string, endpoint string) (Record, error)
}

// ResolverFunc is an adapter to allow the use of an ordinary function as a Resolver.
type ResolverFunc func(ctx context.Context, ip string, endpoint string) (Record, error)

func (f ResolverFunc) Resolve(ctx context.Context, ip string, endpoint string) (Record, error) {
	return f(ctx, ip, endpoint)
}

// NewHTTPResolver returns a Resolver querying an ipquery.io compatible API.
// If client is nil, http.DefaultClient is used.
// Deadlines are taken from the context of each call.
func NewHTTPResolver(client *http.Client) *HTTPResolver {
	if client == nil {
		client = http.DefaultClient
	}

	return &HTTPResolver{client: client}
}

type HTTPResolver struct {
	client *http.Client
}

var _ Resolver = (*HTTPResolver)(nil)

func (r *HTTPResolver) Resolve(ctx context.Context, ip string, endpoint string) (Record, error) {
	reqURL, err := url.JoinPath(endpoint, ip)
	if err != nil {
		return Record{}, fmt.Errorf("%w: invalid endpoint %q: %v", ErrResolveFailed, endpoint, err) //nolint:errorlint,lll // prevent err in api
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL+"?format=json", nil)
	if err != nil {
		return Record{}, fmt.Errorf("%w: could not build request: %v", ErrResolveFailed, err) //nolint:errorlint,lll // prevent err in api
	}

	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return Record{}, fmt.Errorf("%w: could not send request: %v", ErrResolveFailed, err) //nolint:errorlint,lll // prevent err in api
	}

	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Record{}, fmt.Errorf("%w: unexpected status code: %d", ErrResolveFailed, resp.StatusCode)
	}

	var record Record

	if err := json.NewDecoder(resp.Body).Decode(&record); err != nil {
		return Record{}, fmt.Errorf("%w: could not parse response: %v", ErrResolveFailed, err) //nolint:errorlint,lll // prevent err in api
	}

	return record, nil
}
