package shared

import (
	_ "embed"
	"fmt"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Model       ModelConfig       `toml:"model"`
	Export      ExportConfig      `toml:"export"`
	Server      ServerConfig      `toml:"server"`
}

// CredentialsConfig contains service credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
}

// SpotifyConfig contains Spotify OAuth credentials, used only by the auth
// helper command. The pipeline itself takes a delegated token per request.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURI  string `toml:"redirect_uri"`
}

// ModelConfig contains paths to the classifier artifacts.
type ModelConfig struct {
	WeightsPath string `toml:"weights_path"`
	ScalerPath  string `toml:"scaler_path"`
}

// ExportConfig contains export target settings.
type ExportConfig struct {
	CSVPath string `toml:"csv_path"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMissingConfig, err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	config.ApplyEnv()
	return &config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the
// embedded example config, with environment overrides applied.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	config.ApplyEnv()
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// LoadDotenv loads a .env file from the working directory when one exists.
// Missing files are not an error; explicit environment always wins.
func LoadDotenv() {
	_ = godotenv.Load()
}

// ApplyEnv overrides config values from the environment:
// PIPER_MODEL_PATH, PIPER_SCALER_PATH, PIPER_TOP_TRACKS_CSV_PATH,
// PIPER_HOST, PIPER_PORT.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("PIPER_MODEL_PATH"); v != "" {
		c.Model.WeightsPath = v
	}
	if v := os.Getenv("PIPER_SCALER_PATH"); v != "" {
		c.Model.ScalerPath = v
	}
	if v := os.Getenv("PIPER_TOP_TRACKS_CSV_PATH"); v != "" {
		c.Export.CSVPath = v
	}
	if v := os.Getenv("PIPER_HOST"); v != "" {
		c.Server.Host = v
	}
	if v := os.Getenv("PIPER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
}

// Addr returns the host:port address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
