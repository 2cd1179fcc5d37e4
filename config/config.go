// Package config loads the settings of the rastercache tools: defaults, then an optional JSON file,
// then RASTERCACHE_* environment variables, then validation.
package config

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/perimeterx/marshmallow"
	"golang.org/x/exp/maps"
)

const EnvPrefix = "RASTERCACHE_"

type Config struct {
	// Directory holding one grid file per level and mode
	CacheRoot string `default:"cache" env:"CACHE_ROOT" json:"cacheRoot" validate:"required"`
	// World units per cell edge
	Resolution int `default:"4" env:"RESOLUTION" json:"resolution" validate:"min=1,max=255"`
	// Binary format variant of the grid files
	Variant string `default:"plain" env:"VARIANT" json:"variant" validate:"oneof=plain labelled wide"`
	// World bounds of the map (minx, miny, maxx, maxy), used as the frame of diagnostic images
	MaxBounds []float64 `env:"MAX_BOUNDS" envSeparator:"," json:"maxBounds" validate:"omitempty,len=4"`

	Epoch Epoch `envPrefix:"EPOCH_" json:"epoch"`
	Log   Log   `envPrefix:"LOG_" json:"log"`

	unknownKeys []string
}

// Epoch selects where the cache invalidation token comes from.
type Epoch struct {
	Kind   string `default:"static" env:"KIND" json:"kind" validate:"oneof=static file redis sql"`
	Static string `env:"STATIC" json:"static"`
	File   string `env:"FILE" json:"file" validate:"required_if=Kind file"`

	RedisAddr     string `env:"REDIS_ADDR" json:"redisAddr" validate:"required_if=Kind redis"`
	RedisPassword string `env:"REDIS_PASSWORD" json:"redisPassword"`
	RedisDB       int    `env:"REDIS_DB" json:"redisDB" validate:"min=0"`
	RedisKey      string `default:"rastercache:epoch" env:"REDIS_KEY" json:"redisKey"`

	SQLDriver string `default:"postgres" env:"SQL_DRIVER" json:"sqlDriver" validate:"omitempty,oneof=postgres sqlite3"`
	SQLDSN    string `env:"SQL_DSN" json:"sqlDSN" validate:"required_if=Kind sql"`
	SQLQuery  string `env:"SQL_QUERY" json:"sqlQuery" validate:"required_if=Kind sql"`

	// How long an epoch is trusted before the source is asked again, a time.ParseDuration string
	TTL string `default:"5s" env:"TTL" json:"ttl"`
}

type Log struct {
	Level  string `default:"info" env:"LEVEL" json:"level" validate:"oneof=trace debug info warn error"`
	Format string `default:"text" env:"FORMAT" json:"format" validate:"oneof=text json"`
}

// Load reads the config. An empty path skips the file.
func Load(path string) (*Config, error) {
	c := &Config{}
	if err := defaults.Set(c); err != nil {
		return nil, err
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		unknown, err := marshmallow.Unmarshal(data, c, marshmallow.WithExcludeKnownFieldsFromMap(true))
		if err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
		c.unknownKeys = maps.Keys(unknown)
		sort.Strings(c.unknownKeys)
	}
	if err := env.ParseWithOptions(c, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("config from environment: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) Validate() error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(c); err != nil {
		return err
	}
	if _, err := c.Epoch.TTLDuration(); err != nil {
		return err
	}
	if len(c.MaxBounds) == 4 && (c.MaxBounds[0] >= c.MaxBounds[2] || c.MaxBounds[1] >= c.MaxBounds[3]) {
		return fmt.Errorf("maxBounds %v: min must be below max", c.MaxBounds)
	}
	return nil
}

// UnknownKeys lists the top level keys of the config file that were not recognized.
func (c *Config) UnknownKeys() []string {
	return c.unknownKeys
}

func (e Epoch) TTLDuration() (time.Duration, error) {
	if e.TTL == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(e.TTL)
	if err != nil {
		return 0, fmt.Errorf("epoch ttl: %w", err)
	}
	return d, nil
}
