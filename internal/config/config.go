// Package config loads service settings from an optional YAML file and the
// environment. Environment variables win over the file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Port        string `yaml:"port"`
	DatabaseURL string `yaml:"databaseUrl"`
	DBMigrate   bool   `yaml:"dbMigrate"`
	RedisURL    string `yaml:"redisUrl"`
	InstanceDir string `yaml:"instanceDir"`

	RateRPS   float64 `yaml:"rateRps"`
	RateBurst int     `yaml:"rateBurst"`

	WebhookMaxAttempts int `yaml:"webhookMaxAttempts"`

	Log    Log    `yaml:"log"`
	Solver Solver `yaml:"solver"`
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text or json
}

type Solver struct {
	Variant   string        `yaml:"variant"`
	Subtour   string        `yaml:"subtour"`
	TimeLimit time.Duration `yaml:"timeLimit"`
	MaxCells  int           `yaml:"maxCells"`
	// MaxNodes caps depots plus customers of any accepted instance.
	MaxNodes int `yaml:"maxNodes"`
	// Upper bound accepted from API clients.
	MaxTimeLimit time.Duration `yaml:"maxTimeLimit"`
}

func Default() Config {
	return Config{
		Port:               "8080",
		DBMigrate:          true,
		RateRPS:            10,
		RateBurst:          20,
		WebhookMaxAttempts: 10,
		Log:                Log{Level: "info", Format: "text"},
		Solver: Solver{
			Variant:      "scf-route",
			TimeLimit:    30 * time.Second,
			MaxCells:     4_000_000,
			MaxNodes:     1000,
			MaxTimeLimit: 5 * time.Minute,
		},
	}
}

// Load starts from Default, overlays path when it is non-empty and then
// applies environment overrides.
func Load(path string) (Config, error) {
	c := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return c, fmt.Errorf("config: %w", err)
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return c, fmt.Errorf("config %s: %w", path, err)
		}
	}
	if err := c.applyEnv(os.LookupEnv); err != nil {
		return c, err
	}
	return c, c.Validate()
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	str("PORT", &c.Port)
	str("DATABASE_URL", &c.DatabaseURL)
	str("REDIS_URL", &c.RedisURL)
	str("INSTANCE_DIR", &c.InstanceDir)
	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FORMAT", &c.Log.Format)
	str("SOLVER_VARIANT", &c.Solver.Variant)
	str("SOLVER_SUBTOUR", &c.Solver.Subtour)

	if v, ok := lookup("DB_MIGRATE"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: DB_MIGRATE: %w", err)
		}
		c.DBMigrate = b
	}
	if v, ok := lookup("RATE_RPS"); ok && v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("config: RATE_RPS: %w", err)
		}
		c.RateRPS = f
	}
	for key, dst := range map[string]*int{
		"RATE_BURST":           &c.RateBurst,
		"WEBHOOK_MAX_ATTEMPTS": &c.WebhookMaxAttempts,
		"SOLVER_MAX_CELLS":     &c.Solver.MaxCells,
		"SOLVER_MAX_NODES":     &c.Solver.MaxNodes,
	} {
		if v, ok := lookup(key); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("config: %s: %w", key, err)
			}
			*dst = n
		}
	}
	if v, ok := lookup("SOLVER_TIME_LIMIT"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: SOLVER_TIME_LIMIT: %w", err)
		}
		c.Solver.TimeLimit = d
	}
	return nil
}

func (c Config) Validate() error {
	switch {
	case c.Port == "":
		return fmt.Errorf("config: port is empty")
	case c.RateRPS < 0 || c.RateBurst < 0:
		return fmt.Errorf("config: negative rate limit")
	case c.WebhookMaxAttempts <= 0:
		return fmt.Errorf("config: webhookMaxAttempts must be positive")
	case c.Solver.TimeLimit < 0 || c.Solver.MaxTimeLimit < 0:
		return fmt.Errorf("config: negative solver time limit")
	case c.Solver.MaxCells <= 0:
		return fmt.Errorf("config: solver maxCells must be positive")
	case c.Solver.MaxNodes <= 0:
		return fmt.Errorf("config: solver maxNodes must be positive")
	}
	return nil
}

// Addr is the listen address for Port.
func (c Config) Addr() string { return ":" + c.Port }
