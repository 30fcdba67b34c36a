//go:build integration

package tests

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ory/dockertest/v3"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/go-arrower/ipquery/postgres"
	"github.com/go-arrower/ipquery/secret"
)

//nolint:gochecknoglobals // the variables are used on purpose for a singleton pattern.
var (
	muPostgres        = &sync.Mutex{}
	singletonPostgres *PostgresDocker
)

// PostgresDocker is a migrated PostgreSQL running in docker.
type PostgresDocker struct {
	pg            *postgres.Handler
	cleanupDocker func() error
}

// GetPostgresDockerForIntegrationTestingInstance returns a fully connected and migrated database.
// Subsequent calls return the same instance to prevent multiple docker containers to spin up,
// if you have a lot of integration tests running in parallel.
// In case of an issue, it panics.
func GetPostgresDockerForIntegrationTestingInstance() *PostgresDocker {
	muPostgres.Lock()
	defer muPostgres.Unlock()

	if singletonPostgres != nil {
		return singletonPostgres
	}

	var pgHandler *postgres.Handler

	retryFunc := func(resource *dockertest.Resource) func() error {
		port, _ := strconv.Atoi(resource.GetPort("5432/tcp"))
		conf := defaultPGConf
		conf.Port = port

		return func() error {
			handler, err := postgres.ConnectAndMigrate(context.Background(), conf, noop.NewTracerProvider())
			if err != nil {
				return err //nolint:wrapcheck
			}

			pgHandler = handler

			return nil
		}
	}

	options := *defaultPGRunOptions
	options.Name = fmt.Sprintf("ipquery-testing-postgres-%d", rand.Intn(1000)) //nolint:gosec,mnd,lll // no need for secure number, just prevent collisions

	cleanup, err := StartDockerContainer(&options, retryFunc)
	if err != nil {
		panic(err)
	}

	singletonPostgres = &PostgresDocker{
		pg:            pgHandler,
		cleanupDocker: cleanup,
	}

	return singletonPostgres
}

//nolint:gochecknoglobals,exhaustruct // only set required configuration
var (
	defaultPGConf = postgres.Config{
		User:       "ipquery",
		Password:   secret.New("secret"),
		Database:   "ipquery_test",
		Host:       "localhost",
		Port:       5432, //nolint:mnd
		MaxConns:   10,   //nolint:mnd
		Migrations: postgres.Migrations,
	}

	defaultPGRunOptions = &dockertest.RunOptions{
		Repository: "postgres",
		Tag:        "16",
		Env: []string{
			"POSTGRES_USER=" + defaultPGConf.User,
			"POSTGRES_PASSWORD=" + defaultPGConf.Password.Secret(),
			"POSTGRES_DB=" + defaultPGConf.Database,
			"listen_addresses = '*'",
		},
		Cmd: []string{"-c", "max_connections=1000"},
	}
)

// NewTestDatabase creates a new database, connects to it, and applies all migrations.
// Each test gets its own empty database, so tests can run in parallel.
// In case of an issue, it panics.
func (pd *PostgresDocker) NewTestDatabase() *pgxpool.Pool {
	newDB := randomDatabaseName()

	_, err := pd.pg.PGx.Exec(context.Background(), fmt.Sprintf("CREATE DATABASE %s;", newDB))
	if err != nil {
		panic(err)
	}

	newConfig := pd.pg.Config
	newConfig.Database = newDB

	handler, err := postgres.ConnectAndMigrate(context.Background(), newConfig, noop.NewTracerProvider())
	if err != nil {
		panic(err)
	}

	return handler.PGx
}

// Cleanup does shutdown the database connection, stops, and removes the docker container.
// It cannot be deferred in TestMain, if it exits with os.Exit(code), as that does not execute the defer stack.
// In case of an issue, it panics.
func (pd *PostgresDocker) Cleanup() {
	if err := pd.pg.Shutdown(context.Background()); err != nil {
		panic(err)
	}

	if err := pd.cleanupDocker(); err != nil {
		panic(err)
	}
}

func randomDatabaseName() string {
	validPGDatabaseLetters := []rune("abcdefghijklmnopqrstuvwxyz")

	rnd := rand.New(rand.NewSource(time.Now().UnixNano())) //nolint:gosec // used for name, not security

	const n = 16
	b := make([]rune, n)

	for i := range b {
		b[i] = validPGDatabaseLetters[rnd.Intn(len(validPGDatabaseLetters))]
	}

	return string(b) + "_test"
}
