// Package config loads match-engine runtime configuration from environment
// variables, applying sane defaults and collecting every validation problem
// into a single returned error rather than failing on the first one.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultAddr is the default TCP address the server listens on.
	DefaultAddr = ":43127"
	// DefaultPingInterval controls the keepalive cadence for WebSocket connections.
	DefaultPingInterval = 30 * time.Second
	// DefaultMaxPayloadBytes limits inbound WebSocket frame size.
	DefaultMaxPayloadBytes int64 = 1 << 20
	// DefaultMaxClients bounds concurrent WebSocket connections per match. Zero disables the limit.
	DefaultMaxClients = 64

	// DefaultTickHz is the match tick rate (§2: "single logical tick thread at 20 Hz").
	DefaultTickHz = 20.0
	// DefaultMaxEmptySec is how long an empty match lingers before Terminate.
	DefaultMaxEmptySec = 300
	// DefaultIdleKickSec is the last_activity timeout before a player is marked for kick (§4.3).
	DefaultIdleKickSec = 300
	// DefaultTimeSyncTicks is how often (in ticks) SETTINGS time-sync is broadcast (§4.3: "every 20 ticks").
	DefaultTimeSyncTicks = 20
	// DefaultDegradedTickThreshold is the count of consecutive overrun ticks that sets the degraded flag.
	DefaultDegradedTickThreshold = 3

	// DefaultVesselProtoPerMinute is the Proto-vessel rate limit (§4.7: 5 per user per 60s).
	DefaultVesselProtoPerMinute = 5
	// DefaultVesselUpdatePerSecond is the per-vessel Update rate limit (§4.7: 50/s).
	DefaultVesselUpdatePerSecond = 50
	// DefaultVesselUpdateMinInterval rejects updates arriving faster than this (§4.7: 20ms).
	DefaultVesselUpdateMinInterval = 20 * time.Millisecond
	// DefaultTombstoneTTL is how long a removed vessel id suppresses late updates (§4.7: ~2.5s).
	DefaultTombstoneTTL = 2500 * time.Millisecond
	// DefaultTombstoneSweepInterval throttles tombstone cleanup sweeps (§4.7: >=500ms).
	DefaultTombstoneSweepInterval = 500 * time.Millisecond

	// DefaultChatMinInterval is the chat rate limit (§8 property 6: 1s).
	DefaultChatMinInterval = time.Second
	// DefaultCraftMinInterval is the craft upload rate limit (§4.9: 5s).
	DefaultCraftMinInterval = 5 * time.Second
	// DefaultScreenshotMinInterval is the screenshot upload rate limit (§4.9: 15s).
	DefaultScreenshotMinInterval = 15 * time.Second
	// DefaultMaxItemsPerKindPerUser bounds crafts/screenshots/flags per user per kind.
	DefaultMaxItemsPerKindPerUser = 50
	// DefaultMaxFolders bounds the distinct folders one user may hold across all asset kinds.
	DefaultMaxFolders = 256

	// DefaultLogLevel controls verbosity for server logs.
	DefaultLogLevel = "info"
	// DefaultLogPath is where structured logs are written.
	DefaultLogPath = "lunamatch.log"
	// DefaultLogMaxSizeMB caps the size of a single log file before rotation.
	DefaultLogMaxSizeMB = 100
	// DefaultLogMaxBackups limits retained rotated log files.
	DefaultLogMaxBackups = 10
	// DefaultLogMaxAgeDays controls how long rotated log files are kept on disk.
	DefaultLogMaxAgeDays = 7
	// DefaultLogCompress toggles gzip compression for rotated log files.
	DefaultLogCompress = true

	// DefaultStorageDSN is the default SQLite data source for the Storage Adapter.
	DefaultStorageDSN = "file:lunamatch.db?_pragma=journal_mode(WAL)"

	// DefaultModControlPolicy resolves the §9 open question: reject by default.
	DefaultModControlPolicy = "reject"
)

// Config captures all runtime tunables for the match engine.
type Config struct {
	Address         string
	AllowedOrigins  []string
	MaxPayloadBytes int64
	PingInterval    time.Duration
	MaxClients      int
	TLSCertPath     string
	TLSKeyPath      string
	AdminToken      string

	TickHz                float64
	MaxEmptySec           int
	IdleKickSec           int
	TimeSyncTicks         int
	DegradedTickThreshold int

	VesselProtoPerMinute    int
	VesselUpdatePerSecond   int
	VesselUpdateMinInterval time.Duration
	TombstoneTTL            time.Duration
	TombstoneSweepInterval  time.Duration

	ChatMinInterval        time.Duration
	CraftMinInterval       time.Duration
	ScreenshotMinInterval  time.Duration
	MaxItemsPerKindPerUser int
	MaxFolders             int

	ModControlPolicy string

	StorageDSN string

	Logging LoggingConfig
}

// LoggingConfig captures structured logging configuration options.
type LoggingConfig struct {
	Level      string
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// Load reads configuration from environment variables, applying defaults
// and returning descriptive errors for invalid overrides.
func Load() (*Config, error) {
	cfg := &Config{
		Address:         getString("LUNAMATCH_ADDR", DefaultAddr),
		AllowedOrigins:  parseList(os.Getenv("LUNAMATCH_ALLOWED_ORIGINS")),
		MaxPayloadBytes: DefaultMaxPayloadBytes,
		PingInterval:    DefaultPingInterval,
		MaxClients:      DefaultMaxClients,
		TLSCertPath:     strings.TrimSpace(os.Getenv("LUNAMATCH_TLS_CERT")),
		TLSKeyPath:      strings.TrimSpace(os.Getenv("LUNAMATCH_TLS_KEY")),
		AdminToken:      strings.TrimSpace(os.Getenv("LUNAMATCH_ADMIN_TOKEN")),

		TickHz:                DefaultTickHz,
		MaxEmptySec:           DefaultMaxEmptySec,
		IdleKickSec:           DefaultIdleKickSec,
		TimeSyncTicks:         DefaultTimeSyncTicks,
		DegradedTickThreshold: DefaultDegradedTickThreshold,

		VesselProtoPerMinute:    DefaultVesselProtoPerMinute,
		VesselUpdatePerSecond:   DefaultVesselUpdatePerSecond,
		VesselUpdateMinInterval: DefaultVesselUpdateMinInterval,
		TombstoneTTL:            DefaultTombstoneTTL,
		TombstoneSweepInterval:  DefaultTombstoneSweepInterval,

		ChatMinInterval:        DefaultChatMinInterval,
		CraftMinInterval:       DefaultCraftMinInterval,
		ScreenshotMinInterval:  DefaultScreenshotMinInterval,
		MaxItemsPerKindPerUser: DefaultMaxItemsPerKindPerUser,
		MaxFolders:             DefaultMaxFolders,

		ModControlPolicy: getString("LUNAMATCH_MOD_CONTROL_POLICY", DefaultModControlPolicy),

		StorageDSN: getString("LUNAMATCH_STORAGE_DSN", DefaultStorageDSN),

		Logging: LoggingConfig{
			Level:      getString("LUNAMATCH_LOG_LEVEL", DefaultLogLevel),
			Path:       getString("LUNAMATCH_LOG_PATH", DefaultLogPath),
			MaxSizeMB:  DefaultLogMaxSizeMB,
			MaxBackups: DefaultLogMaxBackups,
			MaxAgeDays: DefaultLogMaxAgeDays,
			Compress:   DefaultLogCompress,
		},
	}

	var problems []string

	if raw := strings.TrimSpace(os.Getenv("LUNAMATCH_MAX_PAYLOAD_BYTES")); raw != "" {
		value, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || value <= 0 {
			problems = append(problems, fmt.Sprintf("LUNAMATCH_MAX_PAYLOAD_BYTES must be a positive integer, got %q", raw))
		} else {
			cfg.MaxPayloadBytes = value
		}
	}

	if raw := strings.TrimSpace(os.Getenv("LUNAMATCH_PING_INTERVAL")); raw != "" {
		duration, err := time.ParseDuration(raw)
		if err != nil || duration <= 0 {
			problems = append(problems, fmt.Sprintf("LUNAMATCH_PING_INTERVAL must be a positive duration, got %q", raw))
		} else {
			cfg.PingInterval = duration
		}
	}

	if raw := strings.TrimSpace(os.Getenv("LUNAMATCH_MAX_CLIENTS")); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value < 0 {
			problems = append(problems, fmt.Sprintf("LUNAMATCH_MAX_CLIENTS must be a non-negative integer, got %q", raw))
		} else {
			cfg.MaxClients = value
		}
	}

	if raw := strings.TrimSpace(os.Getenv("LUNAMATCH_TICK_HZ")); raw != "" {
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil || value <= 0 {
			problems = append(problems, fmt.Sprintf("LUNAMATCH_TICK_HZ must be a positive number, got %q", raw))
		} else {
			cfg.TickHz = value
		}
	}

	if raw := strings.TrimSpace(os.Getenv("LUNAMATCH_MAX_EMPTY_SEC")); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value < 0 {
			problems = append(problems, fmt.Sprintf("LUNAMATCH_MAX_EMPTY_SEC must be a non-negative integer, got %q", raw))
		} else {
			cfg.MaxEmptySec = value
		}
	}

	if raw := strings.TrimSpace(os.Getenv("LUNAMATCH_IDLE_KICK_SEC")); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value <= 0 {
			problems = append(problems, fmt.Sprintf("LUNAMATCH_IDLE_KICK_SEC must be a positive integer, got %q", raw))
		} else {
			cfg.IdleKickSec = value
		}
	}

	if raw := strings.TrimSpace(os.Getenv("LUNAMATCH_LOG_MAX_SIZE_MB")); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value <= 0 {
			problems = append(problems, fmt.Sprintf("LUNAMATCH_LOG_MAX_SIZE_MB must be a positive integer, got %q", raw))
		} else {
			cfg.Logging.MaxSizeMB = value
		}
	}

	if raw := strings.TrimSpace(os.Getenv("LUNAMATCH_LOG_MAX_BACKUPS")); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value < 0 {
			problems = append(problems, fmt.Sprintf("LUNAMATCH_LOG_MAX_BACKUPS must be a non-negative integer, got %q", raw))
		} else {
			cfg.Logging.MaxBackups = value
		}
	}

	if raw := strings.TrimSpace(os.Getenv("LUNAMATCH_LOG_MAX_AGE_DAYS")); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value < 0 {
			problems = append(problems, fmt.Sprintf("LUNAMATCH_LOG_MAX_AGE_DAYS must be a non-negative integer, got %q", raw))
		} else {
			cfg.Logging.MaxAgeDays = value
		}
	}

	if raw := strings.TrimSpace(os.Getenv("LUNAMATCH_LOG_COMPRESS")); raw != "" {
		value, err := strconv.ParseBool(raw)
		if err != nil {
			problems = append(problems, fmt.Sprintf("LUNAMATCH_LOG_COMPRESS must be a boolean value, got %q", raw))
		} else {
			cfg.Logging.Compress = value
		}
	}

	if cfg.ModControlPolicy != "reject" && cfg.ModControlPolicy != "warn" {
		problems = append(problems, fmt.Sprintf("LUNAMATCH_MOD_CONTROL_POLICY must be %q or %q, got %q", "reject", "warn", cfg.ModControlPolicy))
	}

	if (cfg.TLSCertPath == "") != (cfg.TLSKeyPath == "") {
		problems = append(problems, "LUNAMATCH_TLS_CERT and LUNAMATCH_TLS_KEY must be provided together")
	}

	if len(problems) > 0 {
		return nil, fmt.Errorf(strings.Join(problems, "; "))
	}

	return cfg, nil
}

func getString(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func parseList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		if item := strings.TrimSpace(part); item != "" {
			values = append(values, item)
		}
	}
	return values
}
