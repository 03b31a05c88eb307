/*
	Copyright (c) 2026 the trackerd authors
	Distributable under the terms of The "BSD New" License
	that can be found in the LICENSE file.

	config.go: the tunables context threaded through the pipeline in
	place of the original's process-wide `Modes` singleton (§9,
	"Global mutable state"). Loaded from a TOML file plus environment
	overrides via spf13/viper, the way billglover-go-adsb-console's
	AMQP feeder loads its broker settings.
*/

package main

import (
	"strings"

	"github.com/spf13/viper"
)

// Config holds every tunable named in SPEC_FULL.md §6/§4.9. A fresh Config
// is constructed per test rather than mutating a process global (§9).
type Config struct {
	PositionPersistence float32 // cap on reliability counters
	JSONReliable        int     // threshold to declare a position reliable
	TrackExpireJaero    int64   // ms, JAERO-specific validity timeout

	DebugReceiver              bool
	DebugGarbage               bool
	DebugRoughReceiverLocation bool

	DBFile  string // path to gzipped CSV, "" or "none" disables the DB
	JSONDir string // output directory for snapshot JSON

	ViewADSB      bool // relaxes receiver-reference thresholds for viewadsb-style consumers
	ReceiverFocus bool
	NShards       int
	HTTPAddr      string
	WarmCachePath string // sqlite warm-cache file for the static DB
}

// DefaultConfig returns the tunables used when no config file is present,
// matching the original's compiled-in defaults.
func DefaultConfig() *Config {
	return &Config{
		PositionPersistence: 4,
		JSONReliable:        3,
		TrackExpireJaero:    trackExpireJaero.Milliseconds(),
		DBFile:              "none",
		JSONDir:             "",
		NShards:             16,
		HTTPAddr:            ":8080",
		WarmCachePath:       "db_cache.sqlite",
	}
}

// LoadConfig reads a TOML file at path (if non-empty) via viper, overlays
// TRACKERD_-prefixed environment variables, and returns the resulting
// Config. A missing path is not an error: defaults are returned instead,
// matching the original's graceful handling of an absent db_file.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetEnvPrefix("TRACKERD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("position_persistence", cfg.PositionPersistence)
	v.SetDefault("json_reliable", cfg.JSONReliable)
	v.SetDefault("track_expire_jaero", cfg.TrackExpireJaero)
	v.SetDefault("db_file", cfg.DBFile)
	v.SetDefault("json_dir", cfg.JSONDir)
	v.SetDefault("n_shards", cfg.NShards)
	v.SetDefault("http_addr", cfg.HTTPAddr)
	v.SetDefault("warm_cache_path", cfg.WarmCachePath)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	cfg.PositionPersistence = float32(v.GetFloat64("position_persistence"))
	cfg.JSONReliable = v.GetInt("json_reliable")
	cfg.TrackExpireJaero = v.GetInt64("track_expire_jaero")
	cfg.DebugReceiver = v.GetBool("debug_receiver")
	cfg.DebugGarbage = v.GetBool("debug_garbage")
	cfg.DebugRoughReceiverLocation = v.GetBool("debug_rough_receiver_location")
	cfg.DBFile = v.GetString("db_file")
	cfg.JSONDir = v.GetString("json_dir")
	cfg.ViewADSB = v.GetBool("viewadsb")
	cfg.ReceiverFocus = v.GetBool("receiver_focus")
	cfg.NShards = v.GetInt("n_shards")
	cfg.HTTPAddr = v.GetString("http_addr")
	cfg.WarmCachePath = v.GetString("warm_cache_path")

	return cfg, nil
}

// reliabilityRequired returns the §4.4 gate used by receiverPositionReceived:
// 3/4 of position_persistence normally, or min(2, position_persistence)
// under viewadsb/receiver-focus mode.
func (c *Config) reliabilityRequired() float32 {
	if c.ViewADSB || c.ReceiverFocus {
		if c.PositionPersistence < 2 {
			return c.PositionPersistence
		}
		return 2
	}
	return c.PositionPersistence * 3 / 4
}
