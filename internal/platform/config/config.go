package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Backend names accepted for Ledger.Backend.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
)

// Config is the full process configuration.
type Config struct {
	Server   Server         `yaml:"server"`
	Ledger   LedgerConfig   `yaml:"ledger"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Chain    ChainConfig    `yaml:"chain"`
	Cache    CacheConfig    `yaml:"cache"`
	MultiSig MultiSigConfig `yaml:"multisig"`
	KYC      KYCConfig      `yaml:"kyc"`
	Log      LogConfig      `yaml:"log"`

	Governance GovernanceConfig `yaml:"governance"`
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string        `yaml:"addr"`
	JWTSigningKey   string        `yaml:"jwt_signing_key"`
	JWTIssuer       string        `yaml:"jwt_issuer"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// LedgerConfig selects the event log backend.
type LedgerConfig struct {
	Backend    string `yaml:"backend"`
	SQLitePath string `yaml:"sqlite_path"`
}

// DatabaseConfig configures the PostgreSQL pool.
type DatabaseConfig struct {
	URL             string        `yaml:"url"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// RedisConfig configures the checkpoint store. Empty URL disables Redis.
type RedisConfig struct {
	URL          string        `yaml:"url"`
	PoolSize     int           `yaml:"pool_size"`
	MinIdleConns int           `yaml:"min_idle_conns"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// KafkaConfig configures the outbox relay and invalidation consumer.
// Empty Brokers disables Kafka.
type KafkaConfig struct {
	Brokers      []string      `yaml:"brokers"`
	Topic        string        `yaml:"topic"`
	GroupID      string        `yaml:"group_id"`
	Partitions   int32         `yaml:"partitions"`
	PollInterval time.Duration `yaml:"poll_interval"`
	BatchSize    int           `yaml:"batch_size"`
}

// ChainConfig configures the Solana slot source. Empty RPCURL falls back to
// the log head.
type ChainConfig struct {
	RPCURL          string        `yaml:"rpc_url"`
	RateLimit       float64       `yaml:"rate_limit"`
	Burst           int           `yaml:"burst"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	BreakerFailures int           `yaml:"breaker_failures"`
}

// CacheConfig configures snapshot checkpoints.
type CacheConfig struct {
	CheckpointInterval int `yaml:"checkpoint_interval"`
}

// MultiSigConfig configures proposal defaults.
type MultiSigConfig struct {
	ProposalTTL time.Duration `yaml:"proposal_ttl"`
}

// GovernanceConfig sets the rules stamped onto new holder proposals.
type GovernanceConfig struct {
	VotingDelay       time.Duration `yaml:"voting_delay"`
	VotingPeriod      time.Duration `yaml:"voting_period"`
	QuorumPct         int64         `yaml:"quorum_pct"`
	ApprovalPct       int64         `yaml:"approval_pct"`
	ExecutionDelay    time.Duration `yaml:"execution_delay"`
	ExecutionWindow   time.Duration `yaml:"execution_window"`
	MinProposalShares int64         `yaml:"min_proposal_shares"`
}

// KYCConfig enables the PostgreSQL KYC allowlist on top of the on-log one.
// It requires the postgres ledger backend.
type KYCConfig struct {
	Enabled         bool          `yaml:"enabled"`
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
}

// LogConfig configures slog output.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Defaults returns a configuration suitable for local development.
func Defaults() Config {
	return Config{
		Server: Server{
			Addr:            ":8080",
			JWTSigningKey:   "dev-secret-key-change-in-production",
			JWTIssuer:       "captable",
			RequestTimeout:  30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Ledger: LedgerConfig{Backend: BackendMemory, SQLitePath: "captable.db"},
		Database: DatabaseConfig{
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
		},
		Redis: RedisConfig{
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Kafka: KafkaConfig{
			Topic:        "captable.records",
			GroupID:      "captable-cache-invalidation",
			Partitions:   6,
			PollInterval: time.Second,
			BatchSize:    100,
		},
		Chain: ChainConfig{
			RateLimit:       5,
			Burst:           5,
			RequestTimeout:  3 * time.Second,
			BreakerFailures: 5,
		},
		Cache:    CacheConfig{CheckpointInterval: 100},
		MultiSig: MultiSigConfig{ProposalTTL: 7 * 24 * time.Hour},
		KYC:      KYCConfig{CleanupInterval: time.Hour},
		Log:      LogConfig{Level: "info", Format: "json"},
		Governance: GovernanceConfig{
			VotingDelay:     24 * time.Hour,
			VotingPeriod:    72 * time.Hour,
			QuorumPct:       10,
			ApprovalPct:     66,
			ExecutionDelay:  24 * time.Hour,
			ExecutionWindow: 7 * 24 * time.Hour,
		},
	}
}

// FromEnv builds a Config from defaults, an optional YAML file named by
// CAPTABLE_CONFIG_FILE, and finally environment variables.
func FromEnv() (Config, error) {
	cfg := Defaults()
	if path := os.Getenv("CAPTABLE_CONFIG_FILE"); path != "" {
		if err := cfg.overlayFile(path); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.overlayEnv(os.Getenv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) overlayFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) overlayEnv(getenv func(string) string) error {
	str := func(key string, dst *string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	str("CAPTABLE_ADDR", &c.Server.Addr)
	str("JWT_SIGNING_KEY", &c.Server.JWTSigningKey)
	str("JWT_ISSUER", &c.Server.JWTIssuer)
	str("LEDGER_BACKEND", &c.Ledger.Backend)
	str("SQLITE_PATH", &c.Ledger.SQLitePath)
	str("DATABASE_URL", &c.Database.URL)
	str("REDIS_URL", &c.Redis.URL)
	str("KAFKA_TOPIC", &c.Kafka.Topic)
	str("KAFKA_GROUP_ID", &c.Kafka.GroupID)
	str("SOLANA_RPC_URL", &c.Chain.RPCURL)
	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FORMAT", &c.Log.Format)

	if v := getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = splitList(v)
	}
	if v := getenv("CHECKPOINT_INTERVAL"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("CHECKPOINT_INTERVAL: %w", err)
		}
		c.Cache.CheckpointInterval = n
	}
	if v := getenv("MULTISIG_PROPOSAL_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("MULTISIG_PROPOSAL_TTL: %w", err)
		}
		c.MultiSig.ProposalTTL = d
	}
	if v := getenv("KYC_ALLOWLIST_ENABLED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("KYC_ALLOWLIST_ENABLED: %w", err)
		}
		c.KYC.Enabled = b
	}
	if v := getenv("SOLANA_RPC_RATE_LIMIT"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("SOLANA_RPC_RATE_LIMIT: %w", err)
		}
		c.Chain.RateLimit = f
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate rejects combinations the process cannot start with.
func (c Config) Validate() error {
	switch c.Ledger.Backend {
	case BackendMemory:
	case BackendPostgres:
		if c.Database.URL == "" {
			return fmt.Errorf("ledger backend postgres requires DATABASE_URL")
		}
	case BackendSQLite:
		if c.Ledger.SQLitePath == "" {
			return fmt.Errorf("ledger backend sqlite requires a path")
		}
	default:
		return fmt.Errorf("unknown ledger backend %q", c.Ledger.Backend)
	}
	if c.Cache.CheckpointInterval < 1 {
		return fmt.Errorf("checkpoint interval must be at least 1, got %d", c.Cache.CheckpointInterval)
	}
	if c.MultiSig.ProposalTTL < 0 {
		return fmt.Errorf("proposal ttl must not be negative")
	}
	if c.Governance.VotingPeriod <= 0 {
		return fmt.Errorf("governance voting period must be positive")
	}
	if c.Governance.QuorumPct < 0 || c.Governance.QuorumPct > 100 {
		return fmt.Errorf("governance quorum must be within 0..100, got %d", c.Governance.QuorumPct)
	}
	if c.Governance.ApprovalPct < 1 || c.Governance.ApprovalPct > 100 {
		return fmt.Errorf("governance approval must be within 1..100, got %d", c.Governance.ApprovalPct)
	}
	if c.KYC.Enabled && c.Ledger.Backend != BackendPostgres {
		return fmt.Errorf("kyc allowlist requires the postgres ledger backend")
	}
	if c.Server.JWTSigningKey == "" {
		return fmt.Errorf("jwt signing key is required")
	}
	return nil
}
