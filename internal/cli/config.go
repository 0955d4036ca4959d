package cli

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
)

// Config holds CLI configuration. Flags override the SKATE_ environment.
type Config struct {
	ServerURL string `env:"SERVER" envDefault:"http://localhost:8080"`
	Token     string `env:"TOKEN"`
	TokenFile string `env:"TOKEN_FILE"`
	Output    string `env:"OUTPUT" envDefault:"text"`
}

// DefaultConfig reads SKATE_SERVER, SKATE_TOKEN, SKATE_TOKEN_FILE and
// SKATE_OUTPUT. The token file defaults to ~/.skatectl/token.
func DefaultConfig() *Config {
	return configFrom(env.Options{Prefix: "SKATE_"})
}

func configFrom(opts env.Options) *Config {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		// Only string fields, so parsing cannot fail; keep the defaults
		cfg = &Config{ServerURL: "http://localhost:8080", Output: "text"}
	}
	if cfg.TokenFile == "" {
		cfg.TokenFile = defaultTokenFile()
	}
	return cfg
}

// LoadToken loads the token from file if not already set
func (c *Config) LoadToken() error {
	if c.Token != "" {
		return nil
	}

	data, err := os.ReadFile(c.TokenFile)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// Not logged in yet
			return nil
		}
		return err
	}

	c.Token = strings.TrimSpace(string(data))
	return nil
}

// SaveToken stores the rider's token for later commands
func (c *Config) SaveToken(token string) error {
	c.Token = token

	if err := os.MkdirAll(filepath.Dir(c.TokenFile), 0o700); err != nil {
		return err
	}
	return os.WriteFile(c.TokenFile, []byte(token+"\n"), 0o600)
}

func defaultTokenFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".skatectl", "token")
	}
	return filepath.Join(home, ".skatectl", "token")
}
