package source

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

type LookupFunc func(string) (string, bool)

type Config struct {
	ListenAddr  string
	BaseID      string
	Table       string
	Token       string
	RecordCount int
	Seed        int64
}

func DefaultConfig() Config {
	return Config{
		ListenAddr:  ":8090",
		BaseID:      "appFestivalDemo",
		Table:       "Events",
		Token:       "",
		RecordCount: 120,
		Seed:        time.Now().UTC().UnixNano(),
	}
}

func LoadConfigFromEnv(lookup LookupFunc) (Config, error) {
	if lookup == nil {
		return Config{}, fmt.Errorf("lookup function is required")
	}

	cfg := DefaultConfig()
	if err := applyString(lookup, "FESTQL_STUB_ADDR", &cfg.ListenAddr); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "FESTQL_STUB_BASE_ID", &cfg.BaseID); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "FESTQL_STUB_TABLE", &cfg.Table); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "FESTQL_STUB_TOKEN", &cfg.Token); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "FESTQL_STUB_RECORDS", &cfg.RecordCount); err != nil {
		return Config{}, err
	}
	if err := applyInt64(lookup, "FESTQL_STUB_SEED", &cfg.Seed); err != nil {
		return Config{}, err
	}

	if strings.TrimSpace(cfg.ListenAddr) == "" {
		return Config{}, fmt.Errorf("FESTQL_STUB_ADDR is required")
	}
	if strings.TrimSpace(cfg.BaseID) == "" {
		return Config{}, fmt.Errorf("FESTQL_STUB_BASE_ID is required")
	}
	if strings.TrimSpace(cfg.Table) == "" {
		return Config{}, fmt.Errorf("FESTQL_STUB_TABLE is required")
	}
	if cfg.RecordCount <= 0 {
		return Config{}, fmt.Errorf("FESTQL_STUB_RECORDS must be > 0")
	}

	cfg.ListenAddr = strings.TrimSpace(cfg.ListenAddr)
	cfg.BaseID = strings.TrimSpace(cfg.BaseID)
	cfg.Table = strings.TrimSpace(cfg.Table)
	cfg.Token = strings.TrimSpace(cfg.Token)
	return cfg, nil
}

func applyString(lookup LookupFunc, key string, dst *string) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	*dst = strings.TrimSpace(raw)
	return nil
}

func applyInt(lookup LookupFunc, key string, dst *int) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = v
	return nil
}

func applyInt64(lookup LookupFunc, key string, dst *int64) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = v
	return nil
}
