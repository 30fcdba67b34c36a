//go:build integration

package postgres_test

import (
	"context"
	"strconv"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ory/dockertest/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/go-arrower/ipquery/postgres"
	"github.com/go-arrower/ipquery/secret"
	"github.com/go-arrower/ipquery/tests"
)

var runOptions = &dockertest.RunOptions{ //nolint:gochecknoglobals,exhaustruct // only set required configuration
	Repository: "postgres",
	Tag:        "16",
	Env: []string{
		"POSTGRES_PASSWORD=secret",
		"POSTGRES_USER=ipquery",
		"POSTGRES_DB=dbname_test",
		"listen_addresses = '*'",
	},
}

func configForPort(resource *dockertest.Resource) postgres.Config {
	port, _ := strconv.Atoi(resource.GetPort("5432/tcp"))

	return postgres.Config{
		Host:       "localhost",
		Port:       port,
		User:       "ipquery",
		Password:   secret.New("secret"),
		Database:   "dbname_test",
		Migrations: postgres.Migrations,
	}
}

func TestConnect_Integration(t *testing.T) {
	t.Parallel()

	var pgHandler *postgres.Handler

	cleanup, err := tests.StartDockerContainer(runOptions, func(resource *dockertest.Resource) func() error {
		conf := configForPort(resource)

		return func() error {
			handler, err := postgres.Connect(context.Background(), conf, noop.NewTracerProvider())
			if err != nil {
				return err //nolint:wrapcheck
			}

			pgHandler = handler

			return nil
		}
	})
	require.NoError(t, err)

	t.Cleanup(func() { _ = cleanup() })

	assert.NoError(t, pgHandler.PGx.Ping(context.Background()))
	assert.NotEmpty(t, pgHandler.DB)

	assert.NoError(t, pgHandler.Shutdown(context.Background()))
	assert.Error(t, pgHandler.PGx.Ping(context.Background()))
}

func TestConnectAndMigrate_Integration(t *testing.T) {
	t.Parallel()

	var conf postgres.Config

	cleanup, err := tests.StartDockerContainer(runOptions, func(resource *dockertest.Resource) func() error {
		conf = configForPort(resource)

		return func() error {
			handler, err := postgres.ConnectAndMigrate(context.Background(), conf, noop.NewTracerProvider())
			if err != nil {
				return err //nolint:wrapcheck
			}

			ensureLookupTableExists(t, handler.PGx)

			return handler.Shutdown(context.Background()) //nolint:wrapcheck
		}
	})
	require.NoError(t, err)

	t.Cleanup(func() { _ = cleanup() })

	// the schema is up to date, migrating again does not fail
	handler, err := postgres.ConnectAndMigrate(context.Background(), conf, noop.NewTracerProvider())
	assert.NoError(t, err)

	_ = handler.Shutdown(context.Background())
}

func ensureLookupTableExists(t *testing.T, pgx *pgxpool.Pool) {
	t.Helper()

	row := pgx.QueryRow(
		context.Background(),
		`SELECT EXISTS (
				SELECT FROM information_schema.tables
					WHERE  table_schema = 'public'
					AND    table_name   = 'ip_lookups'
			);`)

	var exists bool

	err := row.Scan(&exists)
	assert.NoError(t, err)
	assert.True(t, exists)
}
