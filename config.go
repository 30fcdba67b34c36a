package ipquery

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4/middleware"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/go-arrower/ipquery/alog"
)

// Policy determines how lookup and store are sequenced relative to the response.
type Policy string

const (
	// PolicyBlocking holds the response back until the record is stored.
	// A failing lookup or store replaces the response with an error.
	PolicyBlocking Policy = "blocking"

	// PolicyDetached delivers the response right away and
	// resolves and stores in the background. Failures are logged only.
	PolicyDetached Policy = "detached"
)

const defaultTimeout = 5 * time.Second

//nolint:gochecknoglobals // validator caches struct information, share it.
var validate = validator.New(validator.WithRequiredStructEnabled())

// Config is the frozen configuration of a Middleware.
// It is intended to be mapped by viper, see LoadConfig.
type Config struct {
	// Endpoint is the base URL of the lookup service.
	Endpoint string `mapstructure:"endpoint" json:"endpoint" validate:"required,url"`
	// ForwardedFor uses the address forwarded by a proxy instead of the peer address.
	ForwardedFor bool `mapstructure:"forwarded_for" json:"forwardedFor"`
	// Timeout bounds the lookup and the store call, each.
	Timeout time.Duration `mapstructure:"timeout" json:"timeout" validate:"gt=0"`
	Policy  Policy        `mapstructure:"policy" json:"policy" validate:"oneof=blocking detached"`
}

// DefaultConfig returns the configuration a Builder starts with.
func DefaultConfig() Config {
	return Config{
		Endpoint:     DefaultEndpoint,
		ForwardedFor: false,
		Timeout:      defaultTimeout,
		Policy:       PolicyBlocking,
	}
}

func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err) //nolint:errorlint // prevent err in api
	}

	return nil
}

// DefaultViper returns a new viper instance with all default values of Config set.
// Environment variables prefixed with IPQUERY_ overwrite them, e.g. IPQUERY_FORWARDED_FOR=true.
func DefaultViper() *viper.Viper {
	conf := DefaultConfig()
	vip := viper.New()

	vip.SetEnvPrefix("ipquery")
	vip.AutomaticEnv()

	vip.SetDefault("endpoint", conf.Endpoint)
	vip.SetDefault("forwarded_for", conf.ForwardedFor)
	vip.SetDefault("timeout", conf.Timeout)
	vip.SetDefault("policy", string(conf.Policy))

	return vip
}

// LoadConfig decodes and validates the Config held by vip.
func LoadConfig(vip *viper.Viper) (Config, error) {
	var conf Config

	if err := vip.Unmarshal(&conf); err != nil {
		return Config{}, fmt.Errorf("%w: could not decode configuration: %v", ErrInvalidConfig, err) //nolint:errorlint,lll // prevent err in api
	}

	if err := conf.Validate(); err != nil {
		return Config{}, err
	}

	return conf, nil
}

// New returns a Builder for a Middleware storing all records in store.
// Configure it and call Finish to get the Middleware to attach to echo.
func New(store Store) *Builder {
	return &Builder{
		config:         DefaultConfig(),
		store:          store,
		resolver:       NewHTTPResolver(nil),
		logger:         alog.NewNoop(),
		tracerProvider: noop.NewTracerProvider(),
		meterProvider:  metricnoop.NewMeterProvider(),
		skipper:        middleware.DefaultSkipper,
	}
}

// Builder collects the configuration of a Middleware.
// It is not safe for concurrent use; Middlewares returned by Finish are.
type Builder struct {
	config Config
	store  Store

	resolver       Resolver
	logger         *slog.Logger
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
	skipper        middleware.Skipper
}

// Config replaces the whole configuration, e.g. with one returned by LoadConfig.
func (b *Builder) Config(conf Config) *Builder {
	b.config = conf

	return b
}

// Endpoint overwrites the base URL of the lookup service.
func (b *Builder) Endpoint(url string) *Builder {
	b.config.Endpoint = url

	return b
}

// ForwardedFor selects the address forwarded by a proxy, instead of the peer address.
func (b *Builder) ForwardedFor(enabled bool) *Builder {
	b.config.ForwardedFor = enabled

	return b
}

func (b *Builder) Timeout(timeout time.Duration) *Builder {
	b.config.Timeout = timeout

	return b
}

func (b *Builder) Policy(policy Policy) *Builder {
	b.config.Policy = policy

	return b
}

// Resolver replaces the default HTTPResolver.
func (b *Builder) Resolver(resolver Resolver) *Builder {
	b.resolver = resolver

	return b
}

func (b *Builder) Logger(logger *slog.Logger) *Builder {
	b.logger = logger

	return b
}

func (b *Builder) TracerProvider(tp trace.TracerProvider) *Builder {
	b.tracerProvider = tp

	return b
}

func (b *Builder) MeterProvider(mp metric.MeterProvider) *Builder {
	b.meterProvider = mp

	return b
}

// Skipper excludes requests from the middleware, e.g. health checks or websockets.
func (b *Builder) Skipper(skipper middleware.Skipper) *Builder {
	b.skipper = skipper

	return b
}

// Finish validates the configuration and returns the Middleware.
// The Middleware holds a copy of the configuration,
// changes to the Builder afterwards do not affect it.
func (b *Builder) Finish() (*Middleware, error) {
	if err := b.config.Validate(); err != nil {
		return nil, err
	}

	if b.store == nil {
		return nil, ErrMissingStore
	}

	if b.resolver == nil {
		b.resolver = NewHTTPResolver(nil)
	}

	if b.logger == nil {
		b.logger = alog.NewNoop()
	}

	if b.tracerProvider == nil {
		b.tracerProvider = noop.NewTracerProvider()
	}

	if b.meterProvider == nil {
		b.meterProvider = metricnoop.NewMeterProvider()
	}

	if b.skipper == nil {
		b.skipper = middleware.DefaultSkipper
	}

	return newMiddleware(b), nil
}
