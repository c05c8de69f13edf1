package pipeline

import (
	"fmt"
	"maps"
	"os"
	"slices"
	"time"

	county "github.com/khslmr/covid-county-corr"
	"github.com/khslmr/covid-county-corr/sources"
	"gopkg.in/yaml.v3"
)

// Config is the run configuration. Anything left out of the YAML file keeps its DefaultConfig value.
type Config struct {
	Run          RunConfig         `yaml:"run"`
	Registry     RegistryConfig    `yaml:"registry"`
	Bins         BinsConfig        `yaml:"bins"`
	Unemployment sources.Periods   `yaml:"unemployment"`
	Temperature  TemperatureConfig `yaml:"temperature"`
	Election     ElectionConfig    `yaml:"election"`
	Storage      StorageConfig     `yaml:"storage"`
	Export       ExportConfig      `yaml:"export"`
}

type RunConfig struct {
	Debug   bool `yaml:"debug"`
	Workers int  `yaml:"workers"`
}

// LegacyConfig maps an outdated code to its current code and, optionally, name.
type LegacyConfig struct {
	From  string `yaml:"from"`
	To    string `yaml:"to"`
	State string `yaml:"state"`
	Name  string `yaml:"name"`
}

type RegistryConfig struct {
	Legacy  []LegacyConfig `yaml:"legacy"`
	Dropped []string       `yaml:"dropped"`
}

// BinsConfig holds the bin boundaries of each series family as YYYY-MM-DD dates.
type BinsConfig struct {
	Cases  []string `yaml:"cases"`
	Deaths []string `yaml:"deaths"`
}

type TemperatureConfig struct {
	Year string `yaml:"year"`
}

type ElectionConfig struct {
	Overrides map[string]float64 `yaml:"overrides"`
}

// StorageConfig selects the database the unified table is saved to. Path is the DuckDB file
// (empty for in-memory); the other connection settings apply to ClickHouse and Postgres.
type StorageConfig struct {
	Dialect  string `yaml:"dialect"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Path     string `yaml:"path"`
	Table    string `yaml:"table"`
}

type ExportConfig struct {
	Path      string `yaml:"path"`
	Separator string `yaml:"separator"`
	Missing   string `yaml:"missing"`
}

func DefaultConfig() *Config {
	cfg := &Config{
		Run:          RunConfig{Workers: 4},
		Unemployment: sources.DefaultPeriods,
		Temperature:  TemperatureConfig{Year: "2020"},
		Election:     ElectionConfig{Overrides: maps.Clone(sources.AlaskaMargins)},
		Storage:      StorageConfig{Table: "county_data"},
		Export:       ExportConfig{Separator: ",", Missing: county.MissingLabel},
	}

	for _, old := range slices.Sorted(maps.Keys(sources.LegacyOverrides)) {
		ov := sources.LegacyOverrides[old]
		cfg.Registry.Legacy = append(cfg.Registry.Legacy,
			LegacyConfig{From: county.FormatID(old), To: county.FormatID(ov.Code), State: ov.State, Name: ov.Name})
	}

	for _, id := range sources.DroppedEntities {
		cfg.Registry.Dropped = append(cfg.Registry.Dropped, county.FormatID(id))
	}

	for _, b := range sources.CaseBoundaries {
		cfg.Bins.Cases = append(cfg.Bins.Cases, b.Format(time.DateOnly))
	}

	for _, b := range sources.DeathBoundaries {
		cfg.Bins.Deaths = append(cfg.Bins.Deaths, b.Format(time.DateOnly))
	}

	return cfg
}

// LoadConfig reads a YAML file over the defaults and validates the result.
func LoadConfig(path string) (*Config, error) {
	var (
		data []byte
		e    error
	)
	if data, e = os.ReadFile(path); e != nil {
		return nil, fmt.Errorf("failed to read config file: %w", e)
	}

	cfg := DefaultConfig()
	if e := yaml.Unmarshal(data, cfg); e != nil {
		return nil, fmt.Errorf("failed to parse config: %w", e)
	}

	if e := cfg.Validate(); e != nil {
		return nil, e
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Run.Workers < 1 {
		return fmt.Errorf("workers must be at least 1")
	}

	if _, e := c.Overrides(); e != nil {
		return e
	}

	if _, e := c.DroppedIDs(); e != nil {
		return e
	}

	if _, e := c.CaseBoundaries(); e != nil {
		return e
	}

	if _, e := c.DeathBoundaries(); e != nil {
		return e
	}

	if e := c.Unemployment.Validate(); e != nil {
		return e
	}

	if len(c.Temperature.Year) != 4 {
		return fmt.Errorf("invalid temperature year %q", c.Temperature.Year)
	}

	switch c.Storage.Dialect {
	case "", "clickhouse", "postgres", "duckdb":
	default:
		return fmt.Errorf("unsupported storage dialect %q", c.Storage.Dialect)
	}

	if c.Storage.Dialect != "" && c.Storage.Table == "" {
		return fmt.Errorf("storage table must be set")
	}

	if c.Export.Path != "" && len(c.Export.Separator) != 1 {
		return fmt.Errorf("export separator must be one byte")
	}

	return nil
}

// Overrides returns the legacy code table.
func (c *Config) Overrides() (county.Overrides, error) {
	ov := make(county.Overrides)
	for _, l := range c.Registry.Legacy {
		var (
			from, to int
			e        error
		)
		if from, e = county.ParseID(l.From); e != nil {
			return nil, fmt.Errorf("legacy override: %w", e)
		}

		if to, e = county.ParseID(l.To); e != nil {
			return nil, fmt.Errorf("legacy override: %w", e)
		}

		if _, ok := ov[from]; ok {
			return nil, fmt.Errorf("legacy code %s listed twice", l.From)
		}

		ov[from] = county.LegacyOverride{Code: to, State: l.State, Name: l.Name}
	}

	return ov, nil
}

func (c *Config) DroppedIDs() ([]int, error) {
	var ids []int
	for _, s := range c.Registry.Dropped {
		id, e := county.ParseID(s)
		if e != nil {
			return nil, fmt.Errorf("dropped entity: %w", e)
		}

		ids = append(ids, id)
	}

	return ids, nil
}

func (c *Config) CaseBoundaries() ([]time.Time, error) {
	return boundaries("cases", c.Bins.Cases)
}

func (c *Config) DeathBoundaries() ([]time.Time, error) {
	return boundaries("deaths", c.Bins.Deaths)
}

func boundaries(family string, dates []string) ([]time.Time, error) {
	if len(dates) == 0 {
		return nil, fmt.Errorf("no %s bin boundaries", family)
	}

	out := make([]time.Time, len(dates))
	for ind, d := range dates {
		t, e := time.Parse(time.DateOnly, d)
		if e != nil {
			return nil, fmt.Errorf("%s bin boundary %q: %w", family, d, e)
		}

		if ind > 0 && !t.After(out[ind-1]) {
			return nil, fmt.Errorf("%s bin boundaries not strictly ascending at %s", family, d)
		}

		out[ind] = t
	}

	return out, nil
}
