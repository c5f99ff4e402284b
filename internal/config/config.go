package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	Repository Repository `yaml:"repository"`
	Quotes     Quotes     `yaml:"quotes"`
	Analysis   Analysis   `yaml:"analysis"`
	Output     Output     `yaml:"output"`
	Server     Server     `yaml:"server"`
	Logging    Logging    `yaml:"logging"`
}

// Repository locates the journal file inside a GitHub repository.
type Repository struct {
	Owner         string `yaml:"owner"`
	Name          string `yaml:"name"`
	Branch        string `yaml:"branch"`
	Path          string `yaml:"path"`
	APIURL        string `yaml:"api_url"`
	TokenEnv      string `yaml:"token_env"`
	CommitMessage string `yaml:"commit_message"`
}

// Quotes configures the public quote feed.
type Quotes struct {
	Feed        string `yaml:"feed"`
	BaseURL     string `yaml:"base_url"`
	Referer     string `yaml:"referer"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

type Analysis struct {
	Window int `yaml:"window"`
}

type Output struct {
	DataDir string `yaml:"data_dir"`
}

type Server struct {
	Port int `yaml:"port"`
}

type Logging struct {
	Level string `yaml:"level"`
}

// ConfigDir returns the XDG config directory for stockdiary.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "stockdiary")
}

// DataDir returns the XDG data directory for stockdiary.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "stockdiary")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/stockdiary/config.yaml > ./config.yaml
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", fmt.Errorf(
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'stockdiary init' to create a default config",
		xdgConfig,
	)
}

// Load reads and parses a config YAML file. A .env file in the working
// directory, if present, is loaded into the environment first.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return parse(data)
}

// Default returns the embedded default configuration.
func Default() *Config {
	cfg, err := parse(DefaultConfigYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded default config: %v", err))
	}
	return cfg
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		Repository: Repository{
			Branch:        "main",
			Path:          "data/stock.json",
			APIURL:        "https://api.github.com",
			TokenEnv:      "GITHUB_TOKEN",
			CommitMessage: "Update stock data from website",
		},
		Quotes: Quotes{
			Feed:        "tencent",
			TimeoutSecs: 10,
		},
		Analysis: Analysis{Window: 10},
		Server:   Server{Port: 8000},
		Logging:  Logging{Level: "INFO"},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if cfg.Analysis.Window <= 0 {
		return nil, fmt.Errorf("analysis.window must be positive, got %d", cfg.Analysis.Window)
	}

	return cfg, nil
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Output.DataDir != "" {
		return c.Output.DataDir
	}
	return DataDir()
}

// Token returns the GitHub token from the configured environment variable.
func (r Repository) Token() string {
	if r.TokenEnv == "" {
		return ""
	}
	return os.Getenv(r.TokenEnv)
}

// Timeout returns the quote feed request timeout.
func (q Quotes) Timeout() time.Duration {
	if q.TimeoutSecs <= 0 {
		return 10 * time.Second
	}
	return time.Duration(q.TimeoutSecs) * time.Second
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
