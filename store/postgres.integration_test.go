//go:build integration

package store_test

import (
	"context"
	"os"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"

	"github.com/go-arrower/ipquery"
	"github.com/go-arrower/ipquery/store"
	"github.com/go-arrower/ipquery/tests"
)

var pgHandler *tests.PostgresDocker //nolint:gochecknoglobals // shared by all integration tests

func TestMain(m *testing.M) {
	pgHandler = tests.GetPostgresDockerForIntegrationTestingInstance()

	code := m.Run()

	pgHandler.Cleanup()
	os.Exit(code)
}

func TestPostgres_Store(t *testing.T) {
	t.Parallel()

	t.Run("store and read", func(t *testing.T) {
		t.Parallel()

		s := store.NewPostgres(pgHandler.NewTestDatabase())
		ctx := context.Background()

		record := ipquery.Record{
			IP:       gofakeit.IPv4Address(),
			ISP:      ipquery.ISP{ASN: "AS64496", Org: gofakeit.Company()},
			Location: ipquery.Location{City: gofakeit.City(), Latitude: 50.98, Longitude: 11.03},
			Risk:     ipquery.Risk{IsProxy: true, RiskScore: 7},
		}

		err := s.Store(ctx, record)
		assert.NoError(t, err)

		got, err := s.Latest(ctx, record.IP)
		assert.NoError(t, err)
		assert.Equal(t, record, got)
	})

	t.Run("same ip is stored again", func(t *testing.T) {
		t.Parallel()

		s := store.NewPostgres(pgHandler.NewTestDatabase())
		ctx := context.Background()
		ip := gofakeit.IPv6Address()

		assert.NoError(t, s.Store(ctx, ipquery.Record{IP: ip}))
		assert.NoError(t, s.Store(ctx, ipquery.Record{IP: ip}))

		count, err := s.Count(ctx)
		assert.NoError(t, err)
		assert.Equal(t, 2, count)
	})

	t.Run("not found", func(t *testing.T) {
		t.Parallel()

		s := store.NewPostgres(pgHandler.NewTestDatabase())

		_, err := s.Latest(context.Background(), "192.0.2.1")
		assert.ErrorIs(t, err, store.ErrNotFound)
	})
}
