package config

import (
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads TOML configuration at path (skipped when path is empty or the
// file does not exist), merges it on top of the built-in defaults, applies
// SYNTH_* environment variable overrides, and returns the result. Callers
// validate with Config.Validate.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if _, err := toml.DecodeFile(path, &cfg); err != nil {
				return nil, err
			}
		}
	}

	// Load .env if present; missing is fine.
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)
	return &cfg, nil
}

// applyEnvOverrides overwrites fields for every SYNTH_* variable that is set,
// so operators can inject endpoints and credentials without editing the TOML.
func applyEnvOverrides(cfg *Config) {
	setStr(&cfg.Server.HTTPAddr, "SYNTH_HTTP_ADDR")
	setStr(&cfg.Server.GRPCAddr, "SYNTH_GRPC_ADDR")
	setStr(&cfg.Server.MetricsAddr, "SYNTH_METRICS_ADDR")

	setStr(&cfg.Postgres.DSN, "SYNTH_POSTGRES_DSN")
	setInt(&cfg.Postgres.MaxOpenConns, "SYNTH_POSTGRES_MAX_OPEN_CONNS")
	setStr(&cfg.Postgres.MigrationsDir, "SYNTH_MIGRATIONS_DIR")
	setBool(&cfg.Postgres.RunMigrations, "SYNTH_RUN_MIGRATIONS")
	setInt(&cfg.Postgres.BatchSize, "SYNTH_PERSIST_BATCH_SIZE")
	setDuration(&cfg.Postgres.FlushTimeout, "SYNTH_PERSIST_FLUSH_TIMEOUT")

	setStr(&cfg.NATS.URL, "SYNTH_NATS_URL")
	setBool(&cfg.NATS.Enabled, "SYNTH_NATS_ENABLED")

	setStr(&cfg.Oracle.Mode, "SYNTH_ORACLE_MODE")
	setStr(&cfg.Oracle.EthRPC, "SYNTH_ETH_RPC")
	setDuration(&cfg.Oracle.MaxAge, "SYNTH_ORACLE_MAX_AGE")

	setInt(&cfg.Engine.PersistChanSize, "SYNTH_PERSIST_CHAN_SIZE")
	setInt(&cfg.Engine.ProjectionChanSize, "SYNTH_PROJECTION_CHAN_SIZE")
	setInt(&cfg.Engine.PublishChanSize, "SYNTH_PUBLISH_CHAN_SIZE")
	setInt64(&cfg.Engine.SnapshotInterval, "SYNTH_SNAPSHOT_INTERVAL")

	setStr(&cfg.LogLevel, "SYNTH_LOG_LEVEL")
}

// Typed env-var helpers. Each only mutates the target when the variable is
// present and non-empty.

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}
