package main

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/MrEthical07/authsession"
	"github.com/MrEthical07/authsession/store"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const appName = "authsession"

type cliConfig struct {
	BaseURL        string        `env:"AUTHSESSION_BASE_URL" envDefault:"http://localhost:5000"`
	Timeout        time.Duration `env:"AUTHSESSION_TIMEOUT" envDefault:"15s"`
	Store          string        `env:"AUTHSESSION_STORE" envDefault:"file"`
	StorePath      string        `env:"AUTHSESSION_STORE_PATH"`
	StoreSecret    string        `env:"AUTHSESSION_STORE_PASSPHRASE"`
	RedisURL       string        `env:"AUTHSESSION_REDIS_URL" envDefault:"redis://localhost:6379/0"`
	RedisPrefix    string        `env:"AUTHSESSION_REDIS_PREFIX" envDefault:"authsession"`
	RedisTTL       time.Duration `env:"AUTHSESSION_REDIS_TTL" envDefault:"0s"`
	Sequencing     string        `env:"AUTHSESSION_SEQUENCING" envDefault:"completion"`
	ProfileFailure string        `env:"AUTHSESSION_PROFILE_FAILURE" envDefault:"logout"`
	LogLevel       string        `env:"AUTHSESSION_LOG_LEVEL" envDefault:"warn"`
	LogFormat      string        `env:"AUTHSESSION_LOG_FORMAT" envDefault:"text"`
	AuditFile      string        `env:"AUTHSESSION_AUDIT_FILE"`
}

// loadConfig reads .env files (missing ones are ignored) and then the process
// environment. Variables already set in the environment win over .env values.
func loadConfig(dotenv ...string) (cliConfig, error) {
	if err := godotenv.Load(dotenv...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cliConfig{}, fmt.Errorf("load .env: %w", err)
	}
	return parseConfig(env.Options{})
}

func parseConfig(opts env.Options) (cliConfig, error) {
	cfg, err := env.ParseAsWithOptions[cliConfig](opts)
	if err != nil {
		return cliConfig{}, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return cliConfig{}, err
	}
	return cfg, nil
}

func (c *cliConfig) validate() error {
	switch c.Store {
	case "file", "redis", "memory":
	default:
		return fmt.Errorf("AUTHSESSION_STORE must be file, redis or memory, got %q", c.Store)
	}
	if c.Timeout <= 0 {
		return errors.New("AUTHSESSION_TIMEOUT must be > 0")
	}
	if c.RedisTTL < 0 {
		return errors.New("AUTHSESSION_REDIS_TTL must be >= 0")
	}
	if _, err := c.sequencing(); err != nil {
		return err
	}
	if _, err := c.profileFailure(); err != nil {
		return err
	}
	return nil
}

func (c *cliConfig) sequencing() (authsession.SequencingPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(c.Sequencing)) {
	case "completion", "completion_order":
		return authsession.SequenceCompletionOrder, nil
	case "call", "call_order":
		return authsession.SequenceCallOrder, nil
	default:
		return 0, fmt.Errorf("AUTHSESSION_SEQUENCING must be completion or call, got %q", c.Sequencing)
	}
}

func (c *cliConfig) profileFailure() (authsession.ProfileFailurePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(c.ProfileFailure)) {
	case "logout":
		return authsession.ProfileFailureLogout, nil
	case "rejection", "logout_on_rejection":
		return authsession.ProfileFailureLogoutOnRejection, nil
	default:
		return 0, fmt.Errorf("AUTHSESSION_PROFILE_FAILURE must be logout or rejection, got %q", c.ProfileFailure)
	}
}

func (c *cliConfig) storePath() (string, error) {
	if strings.TrimSpace(c.StorePath) != "" {
		return c.StorePath, nil
	}
	return store.DefaultPath(appName)
}

// sessionConfig maps the environment onto the library configuration.
func (c *cliConfig) sessionConfig() authsession.Config {
	cfg := authsession.DefaultConfig()
	cfg.Sequencing, _ = c.sequencing()
	cfg.ProfileFailure, _ = c.profileFailure()
	cfg.Audit.Enabled = c.AuditFile != ""
	cfg.Audit.DropIfFull = false
	return cfg
}
