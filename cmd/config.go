package cmd

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/go-arrower/ipquery"
	"github.com/go-arrower/ipquery/postgres"
)

var ErrConfigLoadFailed = errors.New("loading configuration failed")

// Config is the configuration of the ipquery server.
// It is intended to be mapped by viper, see DefaultViper.
type Config struct {
	// the middleware's own keys are on the top level: endpoint, forwarded_for, timeout, policy
	ipquery.Config `mapstructure:",squash"`

	Environment Environment `mapstructure:"environment" json:"environment"`

	HTTP     HTTP            `mapstructure:"http"     json:"http"`
	Store    Store           `mapstructure:"store"    json:"store"`
	Resolver Resolver        `mapstructure:"resolver" json:"resolver"`
	Postgres postgres.Config `mapstructure:"postgres" json:"postgres"`
	OTEL     OTEL            `mapstructure:"otel"     json:"otel"`
}

type Environment string

const (
	LocalEnv      Environment = "local"
	ProductionEnv Environment = "prod"
)

// Environments is the list of all supported environments.
func Environments() []Environment {
	return []Environment{LocalEnv, ProductionEnv}
}

type (
	HTTP struct {
		Port                  int  `mapstructure:"port"                    json:"port"`
		StatusEndpointEnabled bool `mapstructure:"status_endpoint_enabled" json:"statusEndpointEnabled"`
		StatusEndpointPort    int  `mapstructure:"status_endpoint_port"    json:"statusEndpointPort"`
	}

	Store struct {
		// Kind is one of: memory, log, postgres.
		Kind string `mapstructure:"kind" json:"kind"`
	}

	Resolver struct {
		// Kind is one of: ipquery, ip2location, maxmind.
		Kind string `mapstructure:"kind" json:"kind"`
		// DBPath is the database file of the offline resolvers.
		DBPath string `mapstructure:"db_path" json:"dbPath"`
	}

	OTEL struct {
		// Enabled exports traces via OTLP to Host:Port.
		Enabled bool   `mapstructure:"enabled" json:"enabled"`
		Host    string `mapstructure:"host"    json:"host"`
		Port    int    `mapstructure:"port"    json:"port"`
	}
)

const (
	StoreMemory   = "memory"
	StoreLog      = "log"
	StorePostgres = "postgres"

	ResolverIPQuery     = "ipquery"
	ResolverIP2Location = "ip2location"
	ResolverMaxMind     = "maxmind"
)

// DefaultViper returns a new viper instance with all default values of Config set.
// Environment variables prefixed with IPQUERY_ overwrite them, e.g. IPQUERY_HTTP_PORT=8081.
func DefaultViper() *viper.Viper {
	vip := ipquery.DefaultViper()
	vip.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	vip.SetDefault("environment", string(LocalEnv))

	vip.SetDefault("http.port", 8080)
	vip.SetDefault("http.status_endpoint_enabled", true)
	vip.SetDefault("http.status_endpoint_port", 2223)

	vip.SetDefault("store.kind", StoreMemory)

	vip.SetDefault("resolver.kind", ResolverIPQuery)
	vip.SetDefault("resolver.db_path", "")

	vip.SetDefault("postgres.user", "ipquery")
	vip.SetDefault("postgres.password", "secret")
	vip.SetDefault("postgres.database", "ipquery")
	vip.SetDefault("postgres.host", "localhost")
	vip.SetDefault("postgres.port", 5432)
	vip.SetDefault("postgres.ssl_mode", "disable")
	vip.SetDefault("postgres.max_conns", 10)

	vip.SetDefault("otel.enabled", false)
	vip.SetDefault("otel.host", "localhost")
	vip.SetDefault("otel.port", 4317)

	return vip
}

// LoadConfig decodes and validates the Config held by vip.
func LoadConfig(vip *viper.Viper) (Config, error) {
	var conf Config

	err := vip.Unmarshal(&conf, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.TextUnmarshallerHookFunc(), // secret.Secret
		allowedValuesHookFunc(reflect.TypeOf(Environment("")), toStrings(Environments())),
	)))
	if err != nil {
		return Config{}, fmt.Errorf("%w: could not decode configuration into struct: %v", ErrConfigLoadFailed, err) //nolint:errorlint,lll // prevent err in api
	}

	if err := conf.Config.Validate(); err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrConfigLoadFailed, err)
	}

	if !slices.Contains([]string{StoreMemory, StoreLog, StorePostgres}, conf.Store.Kind) {
		return Config{}, fmt.Errorf("%w: unknown store kind: %s", ErrConfigLoadFailed, conf.Store.Kind)
	}

	switch conf.Resolver.Kind {
	case ResolverIPQuery:
	case ResolverIP2Location, ResolverMaxMind:
		if conf.Resolver.DBPath == "" {
			return Config{}, fmt.Errorf("%w: resolver %s requires a db_path", ErrConfigLoadFailed, conf.Resolver.Kind)
		}
	default:
		return Config{}, fmt.Errorf("%w: unknown resolver kind: %s", ErrConfigLoadFailed, conf.Resolver.Kind)
	}

	return conf, nil
}

func allowedValuesHookFunc(typ reflect.Type, allowed []string) mapstructure.DecodeHookFuncType {
	return func(_ reflect.Type, t reflect.Type, data any) (interface{}, error) {
		if t != typ {
			return data, nil
		}

		if value, ok := data.(string); ok && slices.Contains(allowed, value) {
			return data, nil
		}

		return data, fmt.Errorf("value is not allowed, use one of: %s", strings.Join(allowed, ", ")) //nolint:err113,lll // accept dynamic error
	}
}

func toStrings[T ~string](values []T) []string {
	s := make([]string, 0, len(values))
	for _, v := range values {
		s = append(s, string(v))
	}

	return s
}
