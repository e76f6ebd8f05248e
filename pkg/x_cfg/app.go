package x_cfg

import (
	"errors"
	"fmt"
	"os"

	"github.com/mitchellh/mapstructure"
	"github.com/rskv-p/nested/pkg/x_db"
)

//---------------------
// Typed config
//---------------------

const defaultConfigPath = "./nested.config.json"

// Tree declares one named tree: a table and an optional scope filter.
type Tree struct {
	Name   string         `mapstructure:"name"`
	Table  string         `mapstructure:"table"`
	Key    string         `mapstructure:"key"`    // primary key column, default "id"
	Filter map[string]any `mapstructure:"filter"` // column = value appended to every query
}

// Journal configures the operation history file.
type Journal struct {
	Path     string `mapstructure:"path"`
	Disabled bool   `mapstructure:"disabled"`
}

// Config is the whole application configuration.
type Config struct {
	DB        x_db.Config `mapstructure:"db"`
	LogConfig string      `mapstructure:"log_config"` // x_log JSON file
	Journal   Journal     `mapstructure:"journal"`
	Trees     []Tree      `mapstructure:"trees"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		DB:      x_db.DefaultConfig(),
		Journal: Journal{Path: "nested.journal.db"},
	}
}

// LoadConfig reads the file at path, or NESTED_CONFIG, or
// ./nested.config.json. A missing default file yields Default().
// NESTED_DB_TYPE, NESTED_DB_DSN and NESTED_JOURNAL override the file.
func LoadConfig(file string) (*Config, error) {
	explicit := file != ""
	if file == "" {
		file = os.Getenv("NESTED_CONFIG")
		explicit = file != ""
	}
	if file == "" {
		file = defaultConfigPath
	}

	cfg := Default()
	if err := Load(file); err != nil {
		if explicit || !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		reset()
	} else if err := decodeSections(&cfg); err != nil {
		return nil, fmt.Errorf("config %s: %w", file, err)
	}

	if v := os.Getenv("NESTED_DB_TYPE"); v != "" {
		cfg.DB.Type = x_db.Type(v)
	}
	if v := os.Getenv("NESTED_DB_DSN"); v != "" {
		cfg.DB.DSN = v
	}
	if v := os.Getenv("NESTED_JOURNAL"); v != "" {
		cfg.Journal.Path = v
	}

	seen := map[string]bool{}
	for i, t := range cfg.Trees {
		if t.Name == "" || t.Table == "" {
			return nil, fmt.Errorf("config: tree #%d needs a name and a table", i)
		}
		if seen[t.Name] {
			return nil, fmt.Errorf("config: tree %q declared twice", t.Name)
		}
		seen[t.Name] = true
	}
	return &cfg, nil
}

// decodeSections decodes each known top-level key over the defaults and
// rejects keys nothing reads.
func decodeSections(cfg *Config) error {
	sections := map[string]any{
		"db":         &cfg.DB,
		"log_config": &cfg.LogConfig,
		"journal":    &cfg.Journal,
		"trees":      &cfg.Trees,
	}
	for key := range All() {
		if _, ok := sections[key]; !ok {
			return fmt.Errorf("unknown key %q", key)
		}
	}
	for key, out := range sections {
		v := Get(key)
		if v == nil {
			continue
		}
		if err := Decode(v, out); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
	}
	return nil
}

// Decode maps raw values onto out. Durations may be written as "250ms".
func Decode(in any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		WeaklyTypedInput: true,
		Result:           out,
		TagName:          "mapstructure",
	})
	if err != nil {
		return err
	}
	return dec.Decode(in)
}
