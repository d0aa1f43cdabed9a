package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Load reads the TOML config at path and fills in defaults for anything the
// file leaves out.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config: %w", err)
	}
	defer file.Close()

	cfg := Default()
	if err = toml.NewDecoder(file).Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

type Config struct {
	HTTP       HTTPConfig       `toml:"http"`
	Log        LogConfig        `toml:"log"`
	Store      StoreConfig      `toml:"store"`
	Solana     SolanaConfig     `toml:"solana"`
	Platform   PlatformConfig   `toml:"platform"`
	Staking    StakingConfig    `toml:"staking"`
	Governance GovernanceConfig `toml:"governance"`
}

type HTTPConfig struct {
	Addr string `toml:"addr"`
}

type LogConfig struct {
	Level       string `toml:"level"` // debug, info, warn, error
	Development bool   `toml:"development"`
}

type StoreConfig struct {
	// Driver selects persistence: "postgres" or "memory".
	Driver        string `toml:"driver"`
	DSN           string `toml:"dsn"`
	MigrationsDir string `toml:"migrations_dir"`
}

type SolanaConfig struct {
	// Enabled turns on the on-chain mirror; RPCURL and FeePayerKey are
	// required when it is.
	Enabled     bool   `toml:"enabled"`
	RPCURL      string `toml:"rpc_url"`
	WSURL       string `toml:"ws_url"`
	FeePayerKey string `toml:"fee_payer_key"` // base58 private key
}

type PlatformConfig struct {
	MarketplaceFeeBps int64         `toml:"marketplace_fee_bps"`
	FeeCollector      string        `toml:"fee_collector"`
	Admin             string        `toml:"admin"` // granted ADMIN at boot
	PortfolioCache    int           `toml:"portfolio_cache"`
	AuditInterval     time.Duration `toml:"audit_interval"`
}

type StakingConfig struct {
	RewardRateBps   int64         `toml:"reward_rate_bps"`
	FeeBps          int64         `toml:"fee_bps"`
	MinLockDuration time.Duration `toml:"min_lock_duration"`
}

type GovernanceConfig struct {
	VotingDelay       time.Duration `toml:"voting_delay"`
	VotingPeriod      time.Duration `toml:"voting_period"`
	ExecutionDelay    time.Duration `toml:"execution_delay"`
	ExecutionGrace    time.Duration `toml:"execution_grace"`
	ProposalThreshold int64         `toml:"proposal_threshold"` // token base units
	QuorumBps         int64         `toml:"quorum_bps"`
	MajorityBps       int64         `toml:"majority_bps"`
}

// Default returns the config used when a field is absent from the file.
func Default() *Config {
	return &Config{
		HTTP: HTTPConfig{Addr: ":8080"},
		Log:  LogConfig{Level: "info"},
		Store: StoreConfig{
			Driver:        "memory",
			MigrationsDir: "storage/migrations",
		},
		Platform: PlatformConfig{
			MarketplaceFeeBps: 250,
			FeeCollector:      "platform:treasury",
			Admin:             "platform:admin",
			PortfolioCache:    1024,
			AuditInterval:     time.Minute,
		},
		Staking: StakingConfig{
			RewardRateBps:   500,
			FeeBps:          100,
			MinLockDuration: 30 * 24 * time.Hour,
		},
		Governance: GovernanceConfig{
			VotingDelay:       24 * time.Hour,
			VotingPeriod:      7 * 24 * time.Hour,
			ExecutionDelay:    48 * time.Hour,
			ExecutionGrace:    30 * 24 * time.Hour,
			ProposalThreshold: 100 * 1_000_000,
			QuorumBps:         1_000,
			MajorityBps:       5_000,
		},
	}
}
