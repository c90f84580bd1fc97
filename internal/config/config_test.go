package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"

	pkgconfig "github.com/pollination/guides/pkg/config"
)

// initTestConfig resets global Viper state and applies the standard defaults.
// Tests touching Viper must not run in parallel.
func initTestConfig(t *testing.T) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
	require.NoError(t, pkgconfig.InitConfig(""))
}

func validConfig() Config {
	return Config{
		BaseURL: "https://api.example",
		APIKey:  "k",
		Org:     "demo",
		HTTP:    HTTPConfig{Timeout: 30 * time.Second},
		Poll:    PollConfig{Attempts: 5, Interval: time.Minute},
		Demo: DemoConfig{
			Project:   ProjectConfig{Name: "good-project"},
			Recipe:    RecipeConfig{Owner: "ladybug-tools", Name: "daylight-factor", Tag: "0.5.6"},
			InputName: "model",
			Models:    []string{"model1.hbjson"},
		},
	}
}

func TestLoad_AppliesDefaults(t *testing.T) {
	initTestConfig(t)
	viper.Set("api_key", "test-key")
	viper.Set("org", "demo")

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, "https://api.staging.pollination.cloud", cfg.BaseURL)
	require.Equal(t, 30*time.Second, cfg.HTTP.Timeout)
	require.Equal(t, 5, cfg.Poll.Attempts)
	require.Equal(t, time.Minute, cfg.Poll.Interval)
	require.Equal(t, "local", cfg.Downloads.Provider)
	require.Equal(t, "good-project", cfg.Demo.Project.Name)
	require.Equal(t, "A very good project", cfg.Demo.Project.Description)
	require.True(t, cfg.Demo.Project.Public)
	require.Equal(t, "ladybug-tools", cfg.Demo.Recipe.Owner)
	require.Equal(t, "daylight-factor", cfg.Demo.Recipe.Name)
	require.Equal(t, "0.5.6", cfg.Demo.Recipe.Tag)
	require.Equal(t, "model", cfg.Demo.InputName)
	require.Equal(t, []string{"model1.hbjson", "model2.hbjson"}, cfg.Demo.Models)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("POLLINATION_API_KEY", "env-key")
	t.Setenv("POLLINATION_ORG", "env-org")
	t.Setenv("POLLINATION_POLL_ATTEMPTS", "3")
	t.Setenv("POLLINATION_HTTP_TIMEOUT", "45s")
	initTestConfig(t)

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "env-key", cfg.APIKey)
	require.Equal(t, "env-org", cfg.Org)
	require.Equal(t, 3, cfg.Poll.Attempts)
	require.Equal(t, 45*time.Second, cfg.HTTP.Timeout)
}

func TestLoad_MissingCredentialsFail(t *testing.T) {
	t.Setenv("POLLINATION_API_KEY", "")
	t.Setenv("POLLINATION_ORG", "")
	initTestConfig(t)

	_, err := Load()
	require.Error(t, err)
	require.ErrorContains(t, err, "api_key")

	viper.Set("api_key", "k")
	_, err = Load()
	require.Error(t, err)
	require.ErrorContains(t, err, "org")
}

func TestValidate_Bounds(t *testing.T) {
	t.Parallel()

	require.NoError(t, validConfig().Validate())

	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"missing base url", func(c *Config) { c.BaseURL = "" }, "base_url"},
		{"zero timeout", func(c *Config) { c.HTTP.Timeout = 0 }, "http.timeout"},
		{"zero attempts", func(c *Config) { c.Poll.Attempts = 0 }, "poll.attempts"},
		{"zero interval", func(c *Config) { c.Poll.Interval = 0 }, "poll.interval"},
		{"missing project name", func(c *Config) { c.Demo.Project.Name = "" }, "demo.project.name"},
		{"partial recipe", func(c *Config) { c.Demo.Recipe.Tag = "" }, "demo.recipe"},
		{"missing input name", func(c *Config) { c.Demo.InputName = "" }, "demo.input_name"},
		{"no models", func(c *Config) { c.Demo.Models = nil }, "demo.models"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg := validConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			require.ErrorContains(t, err, tc.wantErr)
		})
	}
}
