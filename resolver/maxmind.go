package resolver

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strconv"

	"github.com/oschwald/maxminddb-golang"

	"github.com/go-arrower/ipquery"
)

// NewMaxMind opens the MaxMind database at dbPath, e.g. GeoLite2-City.mmdb or GeoLite2-ASN.mmdb.
// Close it, when the resolver is no longer used.
func NewMaxMind(dbPath string) (*MaxMind, error) {
	reader, err := maxminddb.Open(dbPath)
	if err != nil {
		return nil, maxmindError(err)
	}

	return &MaxMind{reader: reader}, nil
}

// NewMaxMindFromBytes is like NewMaxMind but for a database already loaded into memory.
func NewMaxMindFromBytes(db []byte) (*MaxMind, error) {
	reader, err := maxminddb.FromBytes(db)
	if err != nil {
		return nil, maxmindError(err)
	}

	return &MaxMind{reader: reader}, nil
}

func maxmindError(err error) error {
	var pathErr *fs.PathError
	if errors.As(err, &pathErr) || errors.As(err, &maxminddb.InvalidDatabaseError{}) {
		return fmt.Errorf("%w: %v", ErrInvalidDatabase, err) //nolint:errorlint // prevent err in api
	}

	return fmt.Errorf("could not open maxmind database: %w", err)
}

// MaxMind is safe for concurrent use.
type MaxMind struct {
	reader *maxminddb.Reader
}

var _ ipquery.Resolver = (*MaxMind)(nil)

// maxmindRecord holds the fields of the City and the ASN databases,
// the ones missing in the opened database stay empty.
type maxmindRecord struct {
	City struct {
		Names map[string]string `maxminddb:"names"`
	} `maxminddb:"city"`
	Country struct {
		ISOCode string            `maxminddb:"iso_code"`
		Names   map[string]string `maxminddb:"names"`
	} `maxminddb:"country"`
	Subdivisions []struct {
		Names map[string]string `maxminddb:"names"`
	} `maxminddb:"subdivisions"`
	Postal struct {
		Code string `maxminddb:"code"`
	} `maxminddb:"postal"`
	Location struct {
		Latitude  float64 `maxminddb:"latitude"`
		Longitude float64 `maxminddb:"longitude"`
		TimeZone  string  `maxminddb:"time_zone"`
	} `maxminddb:"location"`
	Traits struct {
		IsAnonymousProxy bool `maxminddb:"is_anonymous_proxy"`
	} `maxminddb:"traits"`

	ASNumber       uint   `maxminddb:"autonomous_system_number"`
	ASOrganization string `maxminddb:"autonomous_system_organization"`
}

func (r *MaxMind) Resolve(ctx context.Context, ip string, _ string) (ipquery.Record, error) {
	addr, err := parseIP(ip)
	if err != nil {
		return ipquery.Record{}, err
	}

	if err := ctx.Err(); err != nil {
		return ipquery.Record{}, fmt.Errorf("%w: %w", ErrResolveFailed, err)
	}

	var found maxmindRecord

	if err := r.reader.Lookup(addr.AsSlice(), &found); err != nil {
		return ipquery.Record{}, fmt.Errorf("%w: %v", ErrResolveFailed, err) //nolint:errorlint // prevent err in api
	}

	record := ipquery.Record{
		IP: ip,
		ISP: ipquery.ISP{
			Org: found.ASOrganization,
		},
		Location: ipquery.Location{
			Country:     found.Country.Names["en"],
			CountryCode: found.Country.ISOCode,
			City:        found.City.Names["en"],
			Zipcode:     found.Postal.Code,
			Latitude:    found.Location.Latitude,
			Longitude:   found.Location.Longitude,
			Timezone:    found.Location.TimeZone,
		},
		Risk: ipquery.Risk{
			IsProxy: found.Traits.IsAnonymousProxy,
		},
	}

	if found.ASNumber != 0 {
		record.ISP.ASN = "AS" + strconv.FormatUint(uint64(found.ASNumber), 10)
	}

	if len(found.Subdivisions) > 0 {
		record.Location.State = found.Subdivisions[0].Names["en"]
	}

	return record, nil
}

func (r *MaxMind) Close() error {
	if err := r.reader.Close(); err != nil {
		return fmt.Errorf("could not close maxmind database: %w", err)
	}

	return nil
}
