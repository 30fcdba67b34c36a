package store

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/go-arrower/ipquery"
)

const lookupTable = "public.ip_lookups"

// NewPostgres returns a Store persisting into the ip_lookups table.
// The schema is created by postgres.ConnectAndMigrate with postgres.Migrations.
func NewPostgres(db *pgxpool.Pool) *Postgres {
	return &Postgres{
		db: db,
		sb: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

type Postgres struct {
	db *pgxpool.Pool
	sb sq.StatementBuilderType
}

var _ ipquery.Store = (*Postgres)(nil)

// lookupRow is the ip_lookups table.
type lookupRow struct {
	ID           uuid.UUID `db:"id"`
	IP           string    `db:"ip"`
	ASN          string    `db:"asn"`
	Org          string    `db:"org"`
	ISP          string    `db:"isp"`
	Country      string    `db:"country"`
	CountryCode  string    `db:"country_code"`
	City         string    `db:"city"`
	State        string    `db:"state"`
	Zipcode      string    `db:"zipcode"`
	Latitude     float64   `db:"latitude"`
	Longitude    float64   `db:"longitude"`
	Timezone     string    `db:"timezone"`
	LocalTime    string    `db:"local_time"`
	IsMobile     bool      `db:"is_mobile"`
	IsVPN        bool      `db:"is_vpn"`
	IsTor        bool      `db:"is_tor"`
	IsProxy      bool      `db:"is_proxy"`
	IsDatacenter bool      `db:"is_datacenter"`
	RiskScore    int       `db:"risk_score"`
}

var lookupColumns = []string{ //nolint:gochecknoglobals // same order as lookupRow.values
	"id", "ip", "asn", "org", "isp",
	"country", "country_code", "city", "state", "zipcode", "latitude", "longitude", "timezone", "local_time",
	"is_mobile", "is_vpn", "is_tor", "is_proxy", "is_datacenter", "risk_score",
}

func rowFromRecord(id uuid.UUID, r ipquery.Record) lookupRow {
	return lookupRow{
		ID:           id,
		IP:           r.IP,
		ASN:          r.ISP.ASN,
		Org:          r.ISP.Org,
		ISP:          r.ISP.ISP,
		Country:      r.Location.Country,
		CountryCode:  r.Location.CountryCode,
		City:         r.Location.City,
		State:        r.Location.State,
		Zipcode:      r.Location.Zipcode,
		Latitude:     r.Location.Latitude,
		Longitude:    r.Location.Longitude,
		Timezone:     r.Location.Timezone,
		LocalTime:    r.Location.Localtime,
		IsMobile:     r.Risk.IsMobile,
		IsVPN:        r.Risk.IsVPN,
		IsTor:        r.Risk.IsTor,
		IsProxy:      r.Risk.IsProxy,
		IsDatacenter: r.Risk.IsDatacenter,
		RiskScore:    r.Risk.RiskScore,
	}
}

func (r lookupRow) values() []any {
	return []any{
		r.ID, r.IP, r.ASN, r.Org, r.ISP,
		r.Country, r.CountryCode, r.City, r.State, r.Zipcode, r.Latitude, r.Longitude, r.Timezone, r.LocalTime,
		r.IsMobile, r.IsVPN, r.IsTor, r.IsProxy, r.IsDatacenter, r.RiskScore,
	}
}

func (r lookupRow) record() ipquery.Record {
	return ipquery.Record{
		IP:  r.IP,
		ISP: ipquery.ISP{ASN: r.ASN, Org: r.Org, ISP: r.ISP},
		Location: ipquery.Location{
			Country:     r.Country,
			CountryCode: r.CountryCode,
			City:        r.City,
			State:       r.State,
			Zipcode:     r.Zipcode,
			Latitude:    r.Latitude,
			Longitude:   r.Longitude,
			Timezone:    r.Timezone,
			Localtime:   r.LocalTime,
		},
		Risk: ipquery.Risk{
			IsMobile:     r.IsMobile,
			IsVPN:        r.IsVPN,
			IsTor:        r.IsTor,
			IsProxy:      r.IsProxy,
			IsDatacenter: r.IsDatacenter,
			RiskScore:    r.RiskScore,
		},
	}
}

func (s *Postgres) insertSQL(record ipquery.Record) (string, []any, error) {
	sql, args, err := s.sb.Insert(lookupTable).
		Columns(lookupColumns...).
		Values(rowFromRecord(uuid.New(), record).values()...).
		ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("could not build insert: %w", err)
	}

	return sql, args, nil
}

// Store inserts a new row for each record, the same IP can be stored many times.
func (s *Postgres) Store(ctx context.Context, record ipquery.Record) error {
	sql, args, err := s.insertSQL(record)
	if err != nil {
		return err
	}

	if _, err := s.db.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("could not insert record: %w", err)
	}

	return nil
}

// Latest returns the record stored last for ip.
func (s *Postgres) Latest(ctx context.Context, ip string) (ipquery.Record, error) {
	sql, args, err := s.sb.Select(lookupColumns...).
		From(lookupTable).
		Where(sq.Eq{"ip": ip}).
		OrderBy("created_at DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return ipquery.Record{}, fmt.Errorf("could not build select: %w", err)
	}

	var row lookupRow

	if err := pgxscan.Get(ctx, s.db, &row, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return ipquery.Record{}, ErrNotFound
		}

		return ipquery.Record{}, fmt.Errorf("could not select record: %w", err)
	}

	return row.record(), nil
}

// Count returns the number of all stored records.
func (s *Postgres) Count(ctx context.Context) (int, error) {
	sql, args, err := s.sb.Select("COUNT(*)").From(lookupTable).ToSql()
	if err != nil {
		return 0, fmt.Errorf("could not build count: %w", err)
	}

	var count int

	if err := pgxscan.Get(ctx, s.db, &count, sql, args...); err != nil {
		return 0, fmt.Errorf("could not count records: %w", err)
	}

	return count, nil
}
