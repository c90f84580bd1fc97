// Package config loads and validates client configuration via Viper.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config captures all runtime configuration knobs loaded via Viper.
type Config struct {
	BaseURL   string          `mapstructure:"base_url"`
	APIKey    string          `mapstructure:"api_key"`
	Org       string          `mapstructure:"org"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Poll      PollConfig      `mapstructure:"poll"`
	Downloads DownloadsConfig `mapstructure:"downloads"`
	Demo      DemoConfig      `mapstructure:"demo"`
	Log       LogConfig       `mapstructure:"log"`
}

// HTTPConfig configures HTTP client timeouts and rate limits.
type HTTPConfig struct {
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Burst             int           `mapstructure:"burst"`
}

// PollConfig governs how long job submission waits for completion.
type PollConfig struct {
	Attempts int           `mapstructure:"attempts"`
	Interval time.Duration `mapstructure:"interval"`
}

// DownloadsConfig sets where run outputs are written. Provider selects the
// backing store: "local" writes files under Dir, "memory" keeps outputs in
// process memory for dry runs.
type DownloadsConfig struct {
	Provider string `mapstructure:"provider"`
	Dir      string `mapstructure:"dir"`
}

// DemoConfig describes the sample study the submit command runs.
type DemoConfig struct {
	Project   ProjectConfig `mapstructure:"project"`
	Recipe    RecipeConfig  `mapstructure:"recipe"`
	InputName string        `mapstructure:"input_name"`
	Models    []string      `mapstructure:"models"`
	ModelsDir string        `mapstructure:"models_dir"`
}

// ProjectConfig names the project the demo study runs under.
type ProjectConfig struct {
	Name        string `mapstructure:"name"`
	Description string `mapstructure:"description"`
	Public      bool   `mapstructure:"public"`
}

// RecipeConfig identifies the recipe pulled from the registry.
type RecipeConfig struct {
	Owner string `mapstructure:"owner"`
	Name  string `mapstructure:"name"`
	Tag   string `mapstructure:"tag"`
}

// LogConfig toggles zap development features.
type LogConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// Load builds a Config from the global Viper state populated at startup.
func Load() (Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("api_key must be set (POLLINATION_API_KEY)")
	}
	if c.Org == "" {
		return fmt.Errorf("org must be set (POLLINATION_ORG)")
	}
	if c.BaseURL == "" {
		return fmt.Errorf("base_url must be set")
	}
	if c.HTTP.Timeout <= 0 {
		return fmt.Errorf("http.timeout must be > 0")
	}
	if c.Poll.Attempts <= 0 {
		return fmt.Errorf("poll.attempts must be > 0")
	}
	if c.Poll.Interval <= 0 {
		return fmt.Errorf("poll.interval must be > 0")
	}
	if c.Demo.Project.Name == "" {
		return fmt.Errorf("demo.project.name must be set")
	}
	if c.Demo.Recipe.Owner == "" || c.Demo.Recipe.Name == "" || c.Demo.Recipe.Tag == "" {
		return fmt.Errorf("demo.recipe.owner, demo.recipe.name and demo.recipe.tag must all be set")
	}
	if c.Demo.InputName == "" {
		return fmt.Errorf("demo.input_name must be set")
	}
	if len(c.Demo.Models) == 0 {
		return fmt.Errorf("demo.models must include at least one model file")
	}
	return nil
}
