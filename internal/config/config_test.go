package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"SynthLedger/internal/config"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "synthledger.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.HTTPAddr != ":8080" {
		t.Errorf("http addr = %q, want default :8080", cfg.Server.HTTPAddr)
	}
	if cfg.Postgres.FlushTimeout.Duration != 50*time.Millisecond {
		t.Errorf("flush timeout = %v, want 50ms", cfg.Postgres.FlushTimeout.Duration)
	}
	if cfg.Oracle.Mode != "nats" {
		t.Errorf("oracle mode = %q, want nats", cfg.Oracle.Mode)
	}
}

func TestLoad_TOMLOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
log_level = "debug"

[server]
http_addr = ":8181"

[postgres]
flush_timeout = "200ms"

[oracle]
mode = "chainlink"
eth_rpc = "http://localhost:8545"
max_age = "1h"

[[collateral]]
symbol = "WETH"
feed_address = "0x5f4eC3Df9cbd43714FE2740f5E3616155c5b8419"
`)

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.HTTPAddr != ":8181" {
		t.Errorf("http addr = %q", cfg.Server.HTTPAddr)
	}
	if cfg.Postgres.FlushTimeout.Duration != 200*time.Millisecond {
		t.Errorf("flush timeout = %v", cfg.Postgres.FlushTimeout.Duration)
	}
	if cfg.Oracle.MaxAge.Duration != time.Hour {
		t.Errorf("max age = %v", cfg.Oracle.MaxAge.Duration)
	}
	if len(cfg.Collateral) != 1 || cfg.Collateral[0].Symbol != "WETH" {
		t.Errorf("collateral = %+v", cfg.Collateral)
	}
	// Untouched sections keep their defaults.
	if cfg.Server.GRPCAddr != ":9090" {
		t.Errorf("grpc addr = %q, want default", cfg.Server.GRPCAddr)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoad_EnvOverridesTOML(t *testing.T) {
	path := writeConfig(t, `
[postgres]
dsn = "postgres://from-toml"
`)
	t.Setenv("SYNTH_POSTGRES_DSN", "postgres://from-env")
	t.Setenv("SYNTH_ORACLE_MAX_AGE", "10m")
	t.Setenv("SYNTH_PERSIST_BATCH_SIZE", "250")

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Postgres.DSN != "postgres://from-env" {
		t.Errorf("dsn = %q, want env value", cfg.Postgres.DSN)
	}
	if cfg.Oracle.MaxAge.Duration != 10*time.Minute {
		t.Errorf("max age = %v, want 10m", cfg.Oracle.MaxAge.Duration)
	}
	if cfg.Postgres.BatchSize != 250 {
		t.Errorf("batch size = %d, want 250", cfg.Postgres.BatchSize)
	}
}

func TestValidate_CollectsProblems(t *testing.T) {
	cfg := config.Defaults()
	// No collateral, bad oracle mode, zero batch size.
	cfg.Oracle.Mode = "carrier-pigeon"
	cfg.Postgres.BatchSize = 0

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation failure")
	}
	msg := err.Error()
	for _, want := range []string{"collateral", "oracle.mode", "batch_size"} {
		if !strings.Contains(msg, want) {
			t.Errorf("error %q does not mention %s", msg, want)
		}
	}
}

func TestValidate_ChainlinkNeedsFeedAddresses(t *testing.T) {
	cfg := config.Defaults()
	cfg.Oracle.Mode = "chainlink"
	cfg.Oracle.EthRPC = "http://localhost:8545"
	cfg.Collateral = []config.CollateralSpec{{Symbol: "WETH"}}

	if err := cfg.Validate(); err == nil {
		t.Error("chainlink mode without feed_address should fail validation")
	}

	cfg.Collateral[0].FeedAddress = "0x5f4eC3Df9cbd43714FE2740f5E3616155c5b8419"
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestValidate_DuplicateCollateral(t *testing.T) {
	cfg := config.Defaults()
	cfg.Collateral = []config.CollateralSpec{{Symbol: "WETH"}, {Symbol: "WETH"}}

	if err := cfg.Validate(); err == nil {
		t.Error("duplicate collateral symbol should fail validation")
	}
}
