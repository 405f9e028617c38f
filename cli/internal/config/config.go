// Package config loads CLI configuration from config files, environment
// variables and .env files.
package config

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
)

// AppFs is the filesystem the CLI reads and writes through. Tests swap
// in an afero.MemMapFs.
var AppFs = afero.NewOsFs()

// Config holds the CLI configuration.
type Config struct {
	SchemaPath  string
	DatabaseURL string
	Provider    string
}

// Load reads configuration in priority order: flags are handled by the
// commands themselves, then QUARRY_* environment variables, then a
// .quarry.yaml config file (current directory, home, ~/.config/quarry),
// then defaults. A .env file in the working directory is loaded into the
// environment first, with .env.local taking precedence.
func Load() (*Config, error) {
	home, err := homedir.Dir()
	if err != nil {
		return nil, err
	}

	viper.SetConfigName(".quarry")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath(home)
	viper.AddConfigPath(filepath.Join(home, ".config", "quarry"))

	viper.SetEnvPrefix("QUARRY")
	viper.AutomaticEnv()

	viper.SetDefault("schema_path", "schema.quarry")

	// Missing config file is fine, defaults and env cover it.
	_ = viper.ReadInConfig()

	if _, err := AppFs.Stat(".env"); err == nil {
		_ = godotenv.Load()
	}
	if _, err := AppFs.Stat(".env.local"); err == nil {
		_ = godotenv.Overload(".env.local")
	}

	cfg := &Config{
		SchemaPath:  viper.GetString("schema_path"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		Provider:    viper.GetString("provider"),
	}

	return cfg, nil
}

// Save writes the configuration to ~/.config/quarry/.quarry.yaml.
func Save(cfg *Config) error {
	viper.Set("schema_path", cfg.SchemaPath)
	viper.Set("provider", cfg.Provider)

	home, err := homedir.Dir()
	if err != nil {
		return err
	}

	configPath := filepath.Join(home, ".config", "quarry")
	if err := AppFs.MkdirAll(configPath, 0o755); err != nil {
		return err
	}

	return viper.WriteConfigAs(filepath.Join(configPath, ".quarry.yaml"))
}
