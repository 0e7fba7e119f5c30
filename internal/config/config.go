// Package config provides Viper-based configuration loading for the agent.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/cory-johannsen/roagent/internal/game/ai"
	"github.com/cory-johannsen/roagent/internal/game/aoe"
	"github.com/cory-johannsen/roagent/internal/game/combo"
	"github.com/cory-johannsen/roagent/internal/game/targeting"
)

// EnvPrefix prefixes environment overrides, e.g. ROAGENT_AGENT_TICK_INTERVAL.
const EnvPrefix = "ROAGENT"

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is "json" or "console".
	Format string `mapstructure:"format"`
}

// AgentConfig drives the tick loop.
type AgentConfig struct {
	TickInterval time.Duration `mapstructure:"tick_interval"`
	// Scenario is the simulation file replayed by agentsim.
	Scenario string `mapstructure:"scenario"`
	// Profile selects the Lua hook profile; empty uses the global scripts.
	Profile string `mapstructure:"profile"`
	// MaxTicks stops the run after this many ticks; 0 runs until the
	// scenario ends or the process is signalled.
	MaxTicks int `mapstructure:"max_ticks"`
	// Seed makes simulated rolls reproducible; 0 uses crypto randomness.
	Seed uint64 `mapstructure:"seed"`
}

// DataConfig locates the operator-supplied tables and scripts.
type DataConfig struct {
	// TablesDir holds skills.yaml, area_skills.yaml, cards.yaml and
	// combos.yaml. Missing files fall back to the embedded defaults.
	TablesDir string `mapstructure:"tables_dir"`
	// ScriptsDir holds Lua hooks; empty disables scripting.
	ScriptsDir       string `mapstructure:"scripts_dir"`
	InstructionLimit int    `mapstructure:"instruction_limit"`
}

// TimingConfig tunes the cast/delay engine.
type TimingConfig struct {
	// StaleCastGrace drops a cast whose completion was never reported this
	// long after it should have ended. Negative disables.
	StaleCastGrace time.Duration `mapstructure:"stale_cast_grace"`
}

// DatabaseConfig holds PostgreSQL connection settings for the decision journal.
type DatabaseConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

// DSN returns the PostgreSQL connection string.
//
// Precondition: Host, Port, User, and Name must be non-empty.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// TelemetryConfig enables OpenTelemetry tracing. The exporter endpoint and
// headers come from the standard OTEL_EXPORTER_OTLP_* variables.
type TelemetryConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	ServiceName string `mapstructure:"service_name"`
}

// Config is the top-level application configuration.
type Config struct {
	Logging     LoggingConfig          `mapstructure:"logging"`
	Agent       AgentConfig            `mapstructure:"agent"`
	Data        DataConfig             `mapstructure:"data"`
	Targeting   targeting.Weights      `mapstructure:"targeting"`
	AoE         aoe.Planner            `mapstructure:"aoe"`
	Coordinator ai.Options             `mapstructure:"coordinator"`
	Combo       combo.SelectionWeights `mapstructure:"combo"`
	Timing      TimingConfig           `mapstructure:"timing"`
	Database    DatabaseConfig         `mapstructure:"database"`
	Telemetry   TelemetryConfig        `mapstructure:"telemetry"`
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string
	for _, fn := range []func() error{
		func() error { return validateLogging(c.Logging) },
		func() error { return validateAgent(c.Agent) },
		func() error { return validateData(c.Data) },
		func() error { return validateTargeting(c.Targeting) },
		func() error { return validateAoE(c.AoE) },
		func() error { return validateCoordinator(c.Coordinator) },
		func() error { return validateDatabase(c.Database) },
	} {
		if err := fn(); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func joined(errs []string) error {
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%s", strings.Join(errs, "; "))
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	return nil
}

func validateAgent(a AgentConfig) error {
	var errs []string
	if a.TickInterval <= 0 {
		errs = append(errs, fmt.Sprintf("agent.tick_interval must be > 0, got %s", a.TickInterval))
	}
	if a.MaxTicks < 0 {
		errs = append(errs, fmt.Sprintf("agent.max_ticks must be >= 0, got %d", a.MaxTicks))
	}
	return joined(errs)
}

func validateData(d DataConfig) error {
	if d.InstructionLimit < 0 {
		return fmt.Errorf("data.instruction_limit must be >= 0, got %d", d.InstructionLimit)
	}
	return nil
}

// maxSwitchRatio rejects percent-style switch thresholds such as 150.
const maxSwitchRatio = 10

func validateTargeting(w targeting.Weights) error {
	var errs []string
	if w.LevelRange < 1 {
		errs = append(errs, fmt.Sprintf("targeting.level_range must be >= 1, got %d", w.LevelRange))
	}
	if w.LowHPThreshold < 0 || w.LowHPThreshold > 1 {
		errs = append(errs, fmt.Sprintf("targeting.low_hp_threshold must be in [0, 1], got %g", w.LowHPThreshold))
	}
	if w.DistancePenalty < 0 {
		errs = append(errs, "targeting.distance_penalty must not be negative")
	}
	if w.SwitchThreshold < 1 || w.SwitchThreshold > maxSwitchRatio {
		errs = append(errs, fmt.Sprintf("targeting.switch_threshold is a score ratio in [1, %d], got %g", maxSwitchRatio, w.SwitchThreshold))
	}
	return joined(errs)
}

func validateAoE(p aoe.Planner) error {
	var errs []string
	if p.MinClusterSize < 1 {
		errs = append(errs, fmt.Sprintf("aoe.min_cluster_size must be >= 1, got %d", p.MinClusterSize))
	}
	if p.MaxLinkDistance <= 0 {
		errs = append(errs, fmt.Sprintf("aoe.max_link_distance must be > 0, got %g", p.MaxLinkDistance))
	}
	if p.MinTargets < 2 {
		errs = append(errs, fmt.Sprintf("aoe.min_targets must be >= 2, got %d", p.MinTargets))
	}
	return joined(errs)
}

func validateCoordinator(o ai.Options) error {
	var errs []string
	if o.FleeHPPercent < 0 || o.FleeHPPercent > 100 {
		errs = append(errs, fmt.Sprintf("coordinator.flee_hp_percent must be in [0, 100], got %g", o.FleeHPPercent))
	}
	if o.HealHPPercent < 0 || o.HealHPPercent > 100 {
		errs = append(errs, fmt.Sprintf("coordinator.heal_hp_percent must be in [0, 100], got %g", o.HealHPPercent))
	}
	if o.FleeDistance < 1 {
		errs = append(errs, fmt.Sprintf("coordinator.flee_distance must be >= 1, got %d", o.FleeDistance))
	}
	return joined(errs)
}

func validateDatabase(d DatabaseConfig) error {
	if !d.Enabled {
		return nil
	}
	var errs []string
	if d.Host == "" {
		errs = append(errs, "database.host must not be empty")
	}
	if d.Port < 1 || d.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", d.Port))
	}
	if d.User == "" {
		errs = append(errs, "database.user must not be empty")
	}
	if d.Name == "" {
		errs = append(errs, "database.name must not be empty")
	}
	validSSL := map[string]bool{"disable": true, "require": true, "verify-ca": true, "verify-full": true}
	if !validSSL[d.SSLMode] {
		errs = append(errs, fmt.Sprintf("database.sslmode must be one of [disable, require, verify-ca, verify-full], got %q", d.SSLMode))
	}
	if d.MaxConns < 1 {
		errs = append(errs, fmt.Sprintf("database.max_conns must be >= 1, got %d", d.MaxConns))
	}
	if d.MinConns < 0 {
		errs = append(errs, fmt.Sprintf("database.min_conns must be >= 0, got %d", d.MinConns))
	}
	if d.MinConns > d.MaxConns {
		errs = append(errs, "database.min_conns must not exceed database.max_conns")
	}
	return joined(errs)
}

// Load reads configuration from path, applies ROAGENT_ environment
// overrides and defaults, and validates the result. An empty path uses
// defaults and the environment only.
//
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
	}
	return LoadFromViper(v)
}

// LoadFromViper builds a Config from an already-configured Viper instance.
//
// Precondition: v must be non-nil.
// Postcondition: Returns a valid Config or a non-nil error.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Default returns the configuration built from defaults alone.
func Default() Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("config: defaults do not decode: %v", err))
	}
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("agent.tick_interval", "200ms")
	v.SetDefault("agent.scenario", "")
	v.SetDefault("agent.profile", "")
	v.SetDefault("agent.max_ticks", 0)
	v.SetDefault("agent.seed", 0)

	v.SetDefault("data.tables_dir", "")
	v.SetDefault("data.scripts_dir", "")
	v.SetDefault("data.instruction_limit", 0)

	w := targeting.DefaultWeights()
	v.SetDefault("targeting.mvp_bonus", w.MVPBonus)
	v.SetDefault("targeting.miniboss_bonus", w.MiniBossBonus)
	v.SetDefault("targeting.aggressive_bonus", w.AggressiveBonus)
	v.SetDefault("targeting.quest_bonus", w.QuestBonus)
	v.SetDefault("targeting.level_band_bonus", w.LevelBandBonus)
	v.SetDefault("targeting.level_range", w.LevelRange)
	v.SetDefault("targeting.low_hp_bonus", w.LowHPBonus)
	v.SetDefault("targeting.low_hp_threshold", w.LowHPThreshold)
	v.SetDefault("targeting.element_bonus", w.ElementBonus)
	v.SetDefault("targeting.nearby_aggressive_bonus", w.NearbyAggressiveBonus)
	v.SetDefault("targeting.nearby_passive_bonus", w.NearbyPassiveBonus)
	v.SetDefault("targeting.distance_penalty", w.DistancePenalty)
	v.SetDefault("targeting.switch_threshold", w.SwitchThreshold)

	p := aoe.DefaultPlanner()
	v.SetDefault("aoe.min_cluster_size", p.MinClusterSize)
	v.SetDefault("aoe.max_link_distance", p.MaxLinkDistance)
	v.SetDefault("aoe.min_targets", p.MinTargets)

	o := ai.DefaultOptions()
	v.SetDefault("coordinator.flee_hp_percent", o.FleeHPPercent)
	v.SetDefault("coordinator.heal_hp_percent", o.HealHPPercent)
	v.SetDefault("coordinator.heal_items", o.HealItems)
	v.SetDefault("coordinator.flee_distance", o.FleeDistance)
	v.SetDefault("coordinator.prefer_low_hp", o.PreferLowHP)
	v.SetDefault("coordinator.pvp", o.PvP)

	cw := combo.DefaultSelectionWeights()
	v.SetDefault("combo.rating_weight", cw.RatingWeight)
	v.SetDefault("combo.area_bonus", cw.AreaBonus)

	v.SetDefault("timing.stale_cast_grace", "2s")

	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "roagent")
	v.SetDefault("database.password", "roagent")
	v.SetDefault("database.name", "roagent")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", "1h")

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "roagent")
}
