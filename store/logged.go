package store

import (
	"context"
	"log/slog"

	"github.com/go-arrower/ipquery"
)

// NewLogged returns a Store writing each record to logger at info level.
// If next is not nil, the record is passed on to it afterwards.
func NewLogged(logger *slog.Logger, next ipquery.Store) *Logged {
	return &Logged{logger: logger, next: next}
}

type Logged struct {
	logger *slog.Logger
	next   ipquery.Store
}

var _ ipquery.Store = (*Logged)(nil)

func (s *Logged) Store(ctx context.Context, record ipquery.Record) error {
	s.logger.InfoContext(ctx, "ip resolved",
		slog.String("ip", record.IP),
		slog.Group("isp",
			slog.String("asn", record.ISP.ASN),
			slog.String("org", record.ISP.Org),
			slog.String("isp", record.ISP.ISP),
		),
		slog.Group("location",
			slog.String("country_code", record.Location.CountryCode),
			slog.String("city", record.Location.City),
			slog.Float64("latitude", record.Location.Latitude),
			slog.Float64("longitude", record.Location.Longitude),
		),
		slog.Group("risk",
			slog.Bool("is_vpn", record.Risk.IsVPN),
			slog.Bool("is_tor", record.Risk.IsTor),
			slog.Bool("is_proxy", record.Risk.IsProxy),
			slog.Int("risk_score", record.Risk.RiskScore),
		),
	)

	if s.next == nil {
		return nil
	}

	return s.next.Store(ctx, record) //nolint:wrapcheck // the middleware wraps it as a storage error
}
