// internal/infra/config/config.go
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Host selects where provisioning runs.
const (
	HostLocal = "local"
	HostRPC   = "rpc"
)

// Record stores.
const (
	RecordStoreNone      = "none"
	RecordStoreMemory    = "memory"
	RecordStoreFirestore = "firestore"
	RecordStorePostgres  = "postgres"
)

var ErrInvalidConfig = errors.New("config: invalid")

// Config holds the process environment.
type Config struct {
	Host          string        `env:"BERRY_HOST" envDefault:"local"`
	SolanaRPCURL  string        `env:"SOLANA_RPC_URL" envDefault:"https://api.devnet.solana.com"`
	RPCTimeout    time.Duration `env:"SOLANA_RPC_TIMEOUT" envDefault:"20s"`
	MintKeySecret string        `env:"SOLANA_MINT_KEY_SECRET"`

	GCPProjectID             string `env:"GCP_PROJECT_ID"`
	FirestoreProjectID       string `env:"FIRESTORE_PROJECT_ID"`
	GCPCreds                 string `env:"GOOGLE_APPLICATION_CREDENTIALS"`
	FirestoreCredentialsFile string `env:"FIRESTORE_CREDENTIALS_FILE"`

	RecordStore string `env:"BERRY_RECORD_STORE" envDefault:"memory"`
	DatabaseURL string `env:"DATABASE_URL"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`

	OTelEndpoint   string `env:"BERRY_OTEL_ENDPOINT"`
	PushgatewayURL string `env:"BERRY_PUSHGATEWAY_URL"`
}

// Load parses the environment and fills project defaults.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if cfg.FirestoreProjectID == "" {
		cfg.FirestoreProjectID = cfg.GCPProjectID
	}
	if cfg.FirestoreCredentialsFile == "" {
		cfg.FirestoreCredentialsFile = cfg.GCPCreds
	}
	cfg.Host = strings.ToLower(strings.TrimSpace(cfg.Host))
	cfg.RecordStore = strings.ToLower(strings.TrimSpace(cfg.RecordStore))
	return cfg, nil
}

// Validate checks the combination of selectors and their required values.
func (c *Config) Validate() error {
	switch c.Host {
	case HostLocal:
	case HostRPC:
		if strings.TrimSpace(c.SolanaRPCURL) == "" {
			return fmt.Errorf("%w: SOLANA_RPC_URL is required for host %q", ErrInvalidConfig, c.Host)
		}
	default:
		return fmt.Errorf("%w: unknown host %q", ErrInvalidConfig, c.Host)
	}

	switch c.RecordStore {
	case RecordStoreNone, RecordStoreMemory:
	case RecordStoreFirestore:
		if c.FirestoreProjectID == "" {
			return fmt.Errorf("%w: FIRESTORE_PROJECT_ID or GCP_PROJECT_ID is required", ErrInvalidConfig)
		}
	case RecordStorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("%w: DATABASE_URL is required", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown record store %q", ErrInvalidConfig, c.RecordStore)
	}
	return nil
}
