package resolver

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/ip2location/ip2location-go/v9"

	"github.com/go-arrower/ipquery"
)

// ip2locationUnavailable is the value returned for fields the opened BIN file does not contain.
const ip2locationUnavailable = "This parameter is unavailable for selected data file. Please upgrade the data file."

// NewIP2Location opens the IP2Location BIN database at dbPath.
// Close it, when the resolver is no longer used.
//
// If you use the free databases: This site or product includes IP2Location LITE data available from
// <a href="https://lite.ip2location.com">https://lite.ip2location.com</a>.
func NewIP2Location(dbPath string) (*IP2Location, error) {
	db, err := ip2location.OpenDB(dbPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDatabase, err) //nolint:errorlint // prevent err in api
	}

	return &IP2Location{db: db}, nil
}

type IP2Location struct {
	mu sync.Mutex
	db *ip2location.DB
}

var _ ipquery.Resolver = (*IP2Location)(nil)

func (r *IP2Location) Resolve(ctx context.Context, ip string, _ string) (ipquery.Record, error) {
	addr, err := parseIP(ip)
	if err != nil {
		return ipquery.Record{}, err
	}

	if err := ctx.Err(); err != nil {
		return ipquery.Record{}, fmt.Errorf("%w: %w", ErrResolveFailed, err)
	}

	r.mu.Lock()
	results, err := r.db.Get_all(addr.String())
	r.mu.Unlock()

	if err != nil {
		return ipquery.Record{}, fmt.Errorf("%w: %v", ErrResolveFailed, err) //nolint:errorlint // prevent err in api
	}

	return ipquery.Record{
		IP: ip,
		ISP: ipquery.ISP{
			ASN: asn(available(results.Asn)),
			Org: available(results.As),
			ISP: available(results.Isp),
		},
		Location: ipquery.Location{
			Country:     available(results.Country_long),
			CountryCode: available(results.Country_short),
			City:        available(results.City),
			State:       available(results.Region),
			Zipcode:     available(results.Zipcode),
			Latitude:    float64(results.Latitude),
			Longitude:   float64(results.Longitude),
			Timezone:    available(results.Timezone),
		},
		Risk: ipquery.Risk{
			IsMobile:     usageType(results.Usagetype, "MOB"),
			IsDatacenter: usageType(results.Usagetype, "DCH"),
		},
	}, nil
}

func (r *IP2Location) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.db.Close()
}

// available maps the placeholders IP2Location returns for unknown values to "".
func available(value string) string {
	if value == ip2locationUnavailable || value == "-" {
		return ""
	}

	return value
}

func asn(number string) string {
	if number == "" {
		return ""
	}

	return "AS" + number
}

// usageType reports if usage, e.g. "DCH/SES", contains typ.
func usageType(usage string, typ string) bool {
	for _, u := range strings.Split(available(usage), "/") {
		if u == typ {
			return true
		}
	}

	return false
}
