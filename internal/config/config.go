package config

import (
	"fmt"
	"math/big"
	"os"
	"strings"

	"github.com/spf13/viper"

	serr "github.com/Rana718/seriesgen/internal/errors"
	"github.com/Rana718/seriesgen/internal/period"
)

const EnvPrefix = "SERIESGEN"

const (
	EngineBuiltin = "builtin"
	EngineExec    = "exec"
)

type Config struct {
	ExhibitDBPath  string     `json:"exhibit_db_path" mapstructure:"exhibit_db_path"`
	Database       Database   `json:"database" mapstructure:"database"`
	DateColumns    []string   `json:"date_columns" mapstructure:"date_columns"`
	StaticColumns  []string   `json:"static_columns" mapstructure:"static_columns"`
	Period         string     `json:"period" mapstructure:"period"`
	LengthOfPeriod int        `json:"length_of_period" mapstructure:"length_of_period"`
	NumDatasets    int        `json:"num_datasets" mapstructure:"num_datasets"`
	FractionOfNew  string     `json:"fraction_of_new" mapstructure:"fraction_of_new"`
	LinkedColumns  [][]string `json:"linked_columns" mapstructure:"linked_columns"`
	OutputDir      string     `json:"output_dir" mapstructure:"output_dir"`
	// ShuffleSeed 0 means the shuffle follows the specification's random_seed.
	ShuffleSeed   int64  `json:"shuffle_seed" mapstructure:"shuffle_seed"`
	KeepReference bool   `json:"keep_reference" mapstructure:"keep_reference"`
	Engine        Engine `json:"engine" mapstructure:"engine"`
	S3            S3     `json:"s3" mapstructure:"s3"`
}

type Database struct {
	Provider string `json:"provider" mapstructure:"provider"`
	// URLEnv names the variable holding the DSN when exhibit_db_path is empty.
	URLEnv string `json:"url_env" mapstructure:"url_env"`
}

type Engine struct {
	Kind    string   `json:"kind" mapstructure:"kind"`
	Command []string `json:"command" mapstructure:"command"`
}

type S3 struct {
	Bucket       string `json:"bucket" mapstructure:"bucket"`
	Prefix       string `json:"prefix" mapstructure:"prefix"`
	Region       string `json:"region" mapstructure:"region"`
	Endpoint     string `json:"endpoint" mapstructure:"endpoint"`
	UsePathStyle bool   `json:"use_path_style" mapstructure:"use_path_style"`
}

var supportedProviders = []string{"sqlite", "sqlite3", "postgresql", "postgres", "mysql"}

// SetDefaults registers every key so environment overrides apply even when
// the input file omits the key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("exhibit_db_path", "")
	v.SetDefault("database.provider", "sqlite")
	v.SetDefault("database.url_env", "DATABASE_URL")
	v.SetDefault("date_columns", []string{})
	v.SetDefault("static_columns", []string{})
	v.SetDefault("period", "")
	v.SetDefault("length_of_period", 1)
	v.SetDefault("num_datasets", 3)
	v.SetDefault("fraction_of_new", "")
	v.SetDefault("linked_columns", [][]string{})
	v.SetDefault("output_dir", ".")
	v.SetDefault("shuffle_seed", 0)
	v.SetDefault("keep_reference", false)
	v.SetDefault("engine.kind", EngineBuiltin)
	v.SetDefault("engine.command", []string{})
	v.SetDefault("s3.bucket", "")
	v.SetDefault("s3.prefix", "")
	v.SetDefault("s3.region", "")
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.use_path_style", false)
}

// BindEnv makes every key overridable as SERIESGEN_<KEY>, dots becoming
// underscores.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// LoadFile reads a user input file on a fresh viper instance.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)
	BindEnv(v)
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, serr.Wrap(serr.CategoryConfiguration, serr.CodeMissingField, fmt.Sprintf("failed to read user input %s", path), err)
	}
	return Load(v)
}

func Load(v *viper.Viper) (*Config, error) {
	var cfg Config

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, serr.Wrap(serr.CategoryConfiguration, serr.CodeInvalidValue, "failed to unmarshal config", err)
	}

	if cfg.Database.Provider == "" {
		cfg.Database.Provider = "sqlite"
	}
	if cfg.Database.URLEnv == "" {
		cfg.Database.URLEnv = "DATABASE_URL"
	}
	if cfg.LengthOfPeriod == 0 && !v.IsSet("length_of_period") {
		cfg.LengthOfPeriod = 1
	}
	if cfg.NumDatasets == 0 && !v.IsSet("num_datasets") {
		cfg.NumDatasets = 3
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = "."
	}
	if cfg.Engine.Kind == "" {
		cfg.Engine.Kind = EngineBuiltin
	}

	return &cfg, nil
}

func (c *Config) GetDatabaseURL() (string, error) {
	if c.ExhibitDBPath != "" {
		return c.ExhibitDBPath, nil
	}
	dbURL := os.Getenv(c.Database.URLEnv)
	if dbURL == "" {
		return "", serr.Newf(serr.CategoryConfiguration, serr.CodeMissingField,
			"exhibit_db_path is empty and environment variable %s is not set", c.Database.URLEnv)
	}
	return dbURL, nil
}

// Fraction parses fraction_of_new, written either as a decimal or as a/b.
func (c *Config) Fraction() (*big.Rat, error) {
	raw := strings.TrimSpace(c.FractionOfNew)
	if raw == "" {
		return nil, serr.New(serr.CategoryConfiguration, serr.CodeMissingField, "fraction_of_new is required")
	}
	r, ok := new(big.Rat).SetString(raw)
	if !ok {
		return nil, serr.Newf(serr.CategoryConfiguration, serr.CodeInvalidValue, "fraction_of_new %q is not a number", raw)
	}
	if r.Sign() < 0 || r.Cmp(big.NewRat(1, 1)) > 0 {
		return nil, serr.Newf(serr.CategoryConfiguration, serr.CodeInvalidValue, "fraction_of_new %s must be between 0 and 1", raw)
	}
	return r, nil
}

func (c *Config) Cadence() (period.Cadence, error) {
	unit, err := period.ParseUnit(c.Period)
	if err != nil {
		return period.Cadence{}, err
	}
	cad := period.Cadence{Unit: unit, Magnitude: c.LengthOfPeriod}
	if err := cad.Validate(); err != nil {
		return period.Cadence{}, err
	}
	return cad, nil
}

func (c *Config) Validate() error {
	supported := false
	for _, provider := range supportedProviders {
		if c.Database.Provider == provider {
			supported = true
			break
		}
	}
	if !supported {
		return serr.Newf(serr.CategoryConfiguration, serr.CodeInvalidValue,
			"unsupported database provider: %s. Supported providers: %v", c.Database.Provider, supportedProviders)
	}

	if _, err := c.GetDatabaseURL(); err != nil {
		return err
	}
	if _, err := c.Cadence(); err != nil {
		return err
	}
	if c.LengthOfPeriod <= 0 {
		return serr.Newf(serr.CategoryConfiguration, serr.CodeInvalidValue, "length_of_period must be positive, got %d", c.LengthOfPeriod)
	}
	if c.NumDatasets <= 0 {
		return serr.Newf(serr.CategoryConfiguration, serr.CodeInvalidValue, "num_datasets must be positive, got %d", c.NumDatasets)
	}
	if _, err := c.Fraction(); err != nil {
		return err
	}

	switch c.Engine.Kind {
	case EngineBuiltin:
	case EngineExec:
		if len(c.Engine.Command) == 0 {
			return serr.New(serr.CategoryConfiguration, serr.CodeMissingField, "engine.command is required when engine.kind is exec")
		}
	default:
		return serr.Newf(serr.CategoryConfiguration, serr.CodeInvalidValue, "unknown engine kind %q", c.Engine.Kind)
	}

	return nil
}
