/*
Package config loads the server configuration from a YAML file.

Shopping weekdays are configured as integers counting from Monday
(0=Monday .. 6=Sunday), matching what the settings UI shows.
*/
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/lka/einkaufsliste/list"
)

type Config struct {
	// Port the HTTP API listens on.
	Port int `yaml:"port"`

	// Database is the SQLite file path.
	Database string `yaml:"database"`

	// MainShoppingDay is the weekday of the big weekly shop,
	// 0=Monday .. 6=Sunday.
	MainShoppingDay int `yaml:"main_shopping_day"`

	// FreshProductsDay is the weekday fresh goods are bought on,
	// 0=Monday .. 6=Sunday.
	FreshProductsDay int `yaml:"fresh_products_day"`

	// Units extends the ingredient unit vocabulary; empty keeps the
	// built-in one.
	Units []string `yaml:"units"`
}

// Default returns the stock configuration: main shop Wednesday, fresh
// goods Friday.
func Default() Config {
	return Config{
		Port:             8087,
		Database:         "einkaufsliste.db",
		MainShoppingDay:  2,
		FreshProductsDay: 4,
	}
}

// Load reads the YAML file at path, filling unset fields from Default.
// A missing file is not an error; the defaults apply.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	for _, day := range []int{c.MainShoppingDay, c.FreshProductsDay} {
		if day < 0 || day > 6 {
			return fmt.Errorf("invalid weekday %d (want 0=Monday .. 6=Sunday)", day)
		}
	}
	return nil
}

// Cadence converts the Monday-based weekday numbers into the engine's
// cadence configuration.
func (c Config) Cadence() list.CadenceConfig {
	return list.CadenceConfig{
		MainWeekday:  mondayBased(c.MainShoppingDay),
		FreshWeekday: mondayBased(c.FreshProductsDay),
	}
}

// mondayBased maps 0=Monday counting onto time.Weekday's 0=Sunday.
func mondayBased(n int) time.Weekday {
	return time.Weekday((n + 1) % 7)
}
