// Package config is responsible for initializing the application's configuration.
// It uses the Viper library to read settings from a config file, a .env file,
// environment variables, and command-line flags, providing a unified
// configuration system.
package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// InitConfig initializes the application's configuration using Viper.
// It sets up default values, defines configuration search paths, and enables
// reading from environment variables. This function is designed to be called
// once at application startup so that configuration is loaded and available
// to all other packages. If cfgFile is non-empty that exact file is used
// instead of the search paths.
func InitConfig(cfgFile string) error {
	// --- Set Search Paths ---
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		// Define the name of the config file to look for (without extension).
		viper.SetConfigName("config")
		// Add paths where Viper should look for the config file.
		viper.AddConfigPath(".")                  // Current working directory
		viper.AddConfigPath("/etc/pollination/")  // System-wide configuration
		viper.AddConfigPath("$HOME/.pollination") // User-specific configuration
	}

	// --- Set Defaults ---
	// Sensible defaults for key configuration parameters. These are used when
	// the values are not provided in a config file or via environment variables.
	// TODO: flip the default to the production host once the staging API is retired.
	viper.SetDefault("base_url", "https://api.staging.pollination.cloud")
	viper.SetDefault("api_key", "")
	viper.SetDefault("org", "")

	viper.SetDefault("http.timeout", "30s")
	viper.SetDefault("http.requests_per_second", 0)
	viper.SetDefault("http.burst", 1)

	viper.SetDefault("poll.attempts", 5)
	viper.SetDefault("poll.interval", "60s")

	viper.SetDefault("downloads.provider", "local")
	viper.SetDefault("downloads.dir", ".")

	// Demo defaults describe the sample daylight-factor study submitted by
	// the submit command.
	viper.SetDefault("demo.project.name", "good-project")
	viper.SetDefault("demo.project.description", "A very good project")
	viper.SetDefault("demo.project.public", true)
	viper.SetDefault("demo.recipe.owner", "ladybug-tools")
	viper.SetDefault("demo.recipe.name", "daylight-factor")
	viper.SetDefault("demo.recipe.tag", "0.5.6")
	viper.SetDefault("demo.input_name", "model")
	viper.SetDefault("demo.models", []string{"model1.hbjson", "model2.hbjson"})
	viper.SetDefault("demo.models_dir", ".")

	viper.SetDefault("log.development", false)
	viper.SetDefault("log.level", "info")

	// --- Environment Variables ---
	// A .env file in the working directory is loaded into the process
	// environment first so that AutomaticEnv picks its values up. Missing
	// files are fine; the environment may already be populated.
	_ = godotenv.Load()

	viper.SetEnvPrefix("POLLINATION") // e.g., POLLINATION_API_KEY=...
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// --- Read Config File ---
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found; not fatal since defaults and environment
			// variables are enough to run.
			return nil
		}
		return fmt.Errorf("read config file: %w", err)
	}
	return nil
}
