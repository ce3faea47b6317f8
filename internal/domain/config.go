package domain

import (
	"time"
)

// Config holds the complete confiabar configuration.
type Config struct {
	// Server settings
	Server ServerConfig `json:"server"`

	// Tier determines backend availability
	Tier Tier `json:"tier"`

	// Component configurations
	Store     StoreConfig     `json:"store"`
	Cache     CacheConfig     `json:"cache"`
	EventBus  EventBusConfig  `json:"eventBus"`
	Providers ProvidersConfig `json:"providers"`

	// Observability
	Logging LoggingConfig `json:"logging"`
	Tracing TracingConfig `json:"tracing"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string `json:"host"`
	Port         int    `json:"port"`
	ReadTimeout  int    `json:"readTimeout"`  // seconds
	WriteTimeout int    `json:"writeTimeout"` // seconds
}

// ProvidersConfig holds registry provider settings. Order matters: the
// cascade tries providers strictly in the configured order, so cheaper
// or unrestricted providers go first.
type ProvidersConfig struct {
	// Order lists provider ids in cascade order.
	Order []string `json:"order"`

	// Base URLs; defaults point at the public endpoints.
	BrasilAPIURL string `json:"brasilApiUrl"`
	ReceitaWSURL string `json:"receitaWsUrl"`
	ViaCEPURL    string `json:"viaCepUrl"`

	// RequestTimeout bounds each provider attempt.
	RequestTimeout time.Duration `json:"requestTimeout"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Format string `json:"format"` // json, text
}

// TracingConfig holds OpenTelemetry settings.
type TracingConfig struct {
	Enabled     bool   `json:"enabled"`
	ServiceName string `json:"serviceName"`
	Endpoint    string `json:"endpoint"`
}

// Tier represents the deployment tier.
type Tier string

const (
	// TierCommunity is the free tier with SQLite + in-memory cache + channels
	TierCommunity Tier = "community"

	// TierPro is the paid tier with PostgreSQL + NATS + Redis
	TierPro Tier = "pro"
)

// Provider ids, also used as lookup origins.
const (
	ProviderBrasilAPI = "brasilapi"
	ProviderReceitaWS = "receitaws"
	ProviderViaCEP    = "viacep"
)

// DefaultConfig returns a default configuration for the community tier.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30,
			WriteTimeout: 30,
		},
		Tier: TierCommunity,
		Store: StoreConfig{
			Driver:     "sqlite",
			SQLitePath: "./confiabar.db",
		},
		Cache: CacheConfig{
			Type:         "memory",
			RecordTTL:    DefaultRecordTTL,
			LocalMaxSize: 10000,
			LocalTTL:     5 * time.Minute,
		},
		EventBus: EventBusConfig{
			Type:              "channel",
			ChannelBufferSize: 1000,
		},
		Providers: ProvidersConfig{
			Order:          []string{ProviderBrasilAPI, ProviderReceitaWS},
			BrasilAPIURL:   "https://brasilapi.com.br/api/cnpj/v1",
			ReceitaWSURL:   "https://receitaws.com.br/v1/cnpj",
			ViaCEPURL:      "https://viacep.com.br/ws",
			RequestTimeout: 10 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Tracing: TracingConfig{
			Enabled:     false,
			ServiceName: "confiabar",
		},
	}
}

// ProConfig returns a configuration for the pro tier.
func ProConfig() *Config {
	cfg := DefaultConfig()
	cfg.Tier = TierPro
	cfg.Store = StoreConfig{
		Driver:       "postgres",
		PostgresHost: "localhost",
		PostgresPort: 5432,
		PostgresDB:   "confiabar",
	}
	cfg.Cache = CacheConfig{
		Type:           "redis",
		RecordTTL:      DefaultRecordTTL,
		RedisAddr:      "localhost:6379",
		EnableTwoPhase: true,
		LocalMaxSize:   1000,
		LocalTTL:       5 * time.Minute,
	}
	cfg.EventBus = EventBusConfig{
		Type:              "nats",
		NATSUrl:           "nats://localhost:4222",
		NATSMaxReconnects: 10,
		NATSReconnectWait: 5,
	}
	cfg.Tracing.Enabled = true
	return cfg
}
