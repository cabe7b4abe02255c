package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	ListenAddr     string  `yaml:"listen_addr"`
	DataDir        string  `yaml:"data_dir"`
	MaxBodyBytes   int64   `yaml:"max_body_bytes"`
	RateLimitRPS   float64 `yaml:"rate_limit_rps"`
	RateLimitBurst int     `yaml:"rate_limit_burst"`
	WSEnabled      bool    `yaml:"ws_enabled"`

	SyncLog      SyncLog      `yaml:"sync_log"`
	UsageDB      UsageDB      `yaml:"usage_db"`
	Tracing      Tracing      `yaml:"tracing"`
	ScriptAgent  ScriptAgent  `yaml:"script_agent"`
	DefaultAgent DefaultAgent `yaml:"default_agent"`
}

type SyncLog struct {
	Enabled bool `yaml:"enabled"`
	// IncludePayloads stores full request/response bodies with each record.
	IncludePayloads bool `yaml:"include_payloads"`
	// ArchiveAfterHours moves hourly files older than this into
	// sync/archive/. Zero keeps every file in place.
	ArchiveAfterHours int `yaml:"archive_after_hours"`
}

type UsageDB struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

type Tracing struct {
	Stdout      bool   `yaml:"stdout"`
	ServiceName string `yaml:"service_name"`
}

type ScriptAgent struct {
	AgentTypes []string `yaml:"agent_types"`
	Script     string   `yaml:"script"`
}

type DefaultAgent struct {
	SpeakText string `yaml:"speak_text"`
}

func Default() Config {
	return Config{
		ListenAddr:     ":8080",
		DataDir:        "./data",
		MaxBodyBytes:   4 << 20,
		RateLimitRPS:   50,
		RateLimitBurst: 100,
		WSEnabled:      true,
		SyncLog:        SyncLog{Enabled: true, ArchiveAfterHours: 24},
		UsageDB:        UsageDB{Enabled: true},
		Tracing:        Tracing{ServiceName: "botfarm-agentserver"},
		ScriptAgent:    ScriptAgent{AgentTypes: []string{"script"}},
	}
}

// Load reads path over the defaults. An empty path yields the defaults.
func Load(path string) (Config, error) {
	c := Default()
	if path == "" {
		return c, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return c, err
	}
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return c, fmt.Errorf("%s: %w", path, err)
	}
	return c, c.Validate()
}

// ApplyEnv overrides fields from BOTFARM_* variables.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	var errs []error
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	boolean := func(key string, dst *bool) {
		v, ok := lookup(key)
		if !ok || strings.TrimSpace(v) == "" {
			return
		}
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			*dst = true
		case "0", "false", "no", "n", "off":
			*dst = false
		default:
			errs = append(errs, fmt.Errorf("%s: invalid bool %q", key, v))
		}
	}
	integer := func(key string, dst *int) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}

	str("BOTFARM_LISTEN_ADDR", &c.ListenAddr)
	str("BOTFARM_DATA_DIR", &c.DataDir)
	if v, ok := lookup("BOTFARM_MAX_BODY_BYTES"); ok && strings.TrimSpace(v) != "" {
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("BOTFARM_MAX_BODY_BYTES: %w", err))
		} else {
			c.MaxBodyBytes = n
		}
	}
	if v, ok := lookup("BOTFARM_RATE_LIMIT_RPS"); ok && strings.TrimSpace(v) != "" {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("BOTFARM_RATE_LIMIT_RPS: %w", err))
		} else {
			c.RateLimitRPS = f
		}
	}
	integer("BOTFARM_RATE_LIMIT_BURST", &c.RateLimitBurst)
	boolean("BOTFARM_WS_ENABLED", &c.WSEnabled)
	boolean("BOTFARM_SYNC_LOG", &c.SyncLog.Enabled)
	integer("BOTFARM_SYNC_LOG_ARCHIVE_AFTER_HOURS", &c.SyncLog.ArchiveAfterHours)
	boolean("BOTFARM_USAGE_DB", &c.UsageDB.Enabled)
	str("BOTFARM_USAGE_DB_PATH", &c.UsageDB.Path)
	boolean("BOTFARM_TRACE_STDOUT", &c.Tracing.Stdout)
	str("BOTFARM_SERVICE_NAME", &c.Tracing.ServiceName)
	str("BOTFARM_SPEAK_TEXT", &c.DefaultAgent.SpeakText)
	if v, ok := lookup("BOTFARM_SCRIPT_AGENT_TYPES"); ok && strings.TrimSpace(v) != "" {
		var types []string
		for _, t := range strings.Split(v, ",") {
			if t = strings.TrimSpace(t); t != "" {
				types = append(types, t)
			}
		}
		c.ScriptAgent.AgentTypes = types
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}
	return c.Validate()
}

func (c Config) Validate() error {
	switch {
	case c.ListenAddr == "":
		return errors.New("listen_addr is required")
	case c.MaxBodyBytes <= 0:
		return fmt.Errorf("max_body_bytes must be > 0, got %d", c.MaxBodyBytes)
	case c.RateLimitRPS < 0:
		return fmt.Errorf("rate_limit_rps must be >= 0, got %v", c.RateLimitRPS)
	case c.SyncLog.ArchiveAfterHours < 0:
		return fmt.Errorf("sync_log.archive_after_hours must be >= 0, got %d", c.SyncLog.ArchiveAfterHours)
	case c.RateLimitRPS > 0 && c.RateLimitBurst <= 0:
		return fmt.Errorf("rate_limit_burst must be > 0 when rate limiting, got %d", c.RateLimitBurst)
	}
	return nil
}

// UsageDBPath is the configured path, or usage.sqlite under DataDir.
func (c Config) UsageDBPath() string {
	if c.UsageDB.Path != "" {
		return c.UsageDB.Path
	}
	return strings.TrimRight(c.DataDir, "/") + "/usage.sqlite"
}
