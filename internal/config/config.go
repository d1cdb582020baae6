// Package config loads server settings. Sources are applied in order, later
// ones winning: built-in defaults, an optional YAML file, a .env file, the
// process environment (IZPOSOJA_*), and finally command-line flags, which the
// caller applies on top of the returned Config.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "IZPOSOJA_"

// Config holds all server settings.
type Config struct {
	Addr    string `yaml:"addr"`
	DBPath  string `yaml:"db"`
	LogPath string `yaml:"log"`

	// CORSOrigins lists browser origins allowed to call the API.
	CORSOrigins []string      `yaml:"cors_origins"`
	TokenTTL    time.Duration `yaml:"token_ttl"`
	BcryptCost  int           `yaml:"bcrypt_cost"`

	// ExpirySchedule is a cron spec for the overdue-item sweep. Empty disables it.
	ExpirySchedule string `yaml:"expiry_schedule"`

	// LoginRate is the sustained number of auth attempts per second allowed
	// per client address, with bursts up to LoginBurst.
	LoginRate  float64 `yaml:"login_rate"`
	LoginBurst int     `yaml:"login_burst"`

	Images Images `yaml:"images"`
}

// Images configures upload processing.
type Images struct {
	MaxDimension int   `yaml:"max_dimension"`
	Quality      int   `yaml:"quality"`
	MaxBytes     int64 `yaml:"max_bytes"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Addr:        ":8080",
		DBPath:      "izposoja.sqlite3",
		CORSOrigins: []string{"http://localhost:3000"},
		TokenTTL:    7 * 24 * time.Hour,
		LoginRate:   1,
		LoginBurst:  5,
		Images: Images{
			MaxDimension: 1024,
			Quality:      85,
			MaxBytes:     8 << 20,
		},
	}
}

// Load builds a Config from defaults, the YAML file at path (skipped if path
// is empty), the given .env files, and the environment. With no env files,
// ./.env is read if present. Variables already set in the environment take
// precedence over .env values.
func Load(path string, envFiles ...string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing config file: %w", err)
		}
	}

	dotenv, err := readEnvFiles(envFiles)
	if err != nil {
		return cfg, err
	}
	lookup := func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}
	if err := cfg.applyEnv(lookup); err != nil {
		return cfg, err
	}

	return cfg, cfg.Validate()
}

func readEnvFiles(files []string) (map[string]string, error) {
	if len(files) == 0 {
		if _, err := os.Stat(".env"); err != nil {
			return nil, nil
		}
		files = []string{".env"}
	}
	env, err := godotenv.Read(files...)
	if err != nil {
		return nil, fmt.Errorf("reading env file: %w", err)
	}
	return env, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	get := func(name string) (string, bool) {
		return lookup(EnvPrefix + name)
	}

	if v, ok := get("ADDR"); ok {
		c.Addr = v
	}
	if v, ok := get("DB"); ok {
		c.DBPath = v
	}
	if v, ok := get("LOG"); ok {
		c.LogPath = v
	}
	if v, ok := get("CORS_ORIGINS"); ok {
		c.CORSOrigins = splitList(v)
	}
	if v, ok := get("EXPIRY_SCHEDULE"); ok {
		c.ExpirySchedule = v
	}
	if v, ok := get("TOKEN_TTL"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%sTOKEN_TTL: %w", EnvPrefix, err)
		}
		c.TokenTTL = d
	}
	if v, ok := get("LOGIN_RATE"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%sLOGIN_RATE: %w", EnvPrefix, err)
		}
		c.LoginRate = f
	}

	ints := []struct {
		name string
		dst  *int
	}{
		{"LOGIN_BURST", &c.LoginBurst},
		{"BCRYPT_COST", &c.BcryptCost},
		{"IMAGE_MAX_DIMENSION", &c.Images.MaxDimension},
		{"IMAGE_QUALITY", &c.Images.Quality},
	}
	for _, f := range ints {
		if v, ok := get(f.name); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%s%s: %w", EnvPrefix, f.name, err)
			}
			*f.dst = n
		}
	}
	if v, ok := get("IMAGE_MAX_BYTES"); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%sIMAGE_MAX_BYTES: %w", EnvPrefix, err)
		}
		c.Images.MaxBytes = n
	}
	return nil
}

// Validate checks settings that would otherwise fail later at startup.
func (c Config) Validate() error {
	var errs []error
	if c.Addr == "" {
		errs = append(errs, errors.New("addr is required"))
	}
	if c.DBPath == "" {
		errs = append(errs, errors.New("db path is required"))
	}
	if c.TokenTTL <= 0 {
		errs = append(errs, errors.New("token_ttl must be positive"))
	}
	if c.LoginRate <= 0 || c.LoginBurst <= 0 {
		errs = append(errs, errors.New("login_rate and login_burst must be positive"))
	}
	if c.ExpirySchedule != "" {
		if _, err := cron.ParseStandard(c.ExpirySchedule); err != nil {
			errs = append(errs, fmt.Errorf("expiry_schedule: %w", err))
		}
	}
	return errors.Join(errs...)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
