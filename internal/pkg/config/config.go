package config

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

type Recognition struct {
	URL       string  `yaml:"url"`
	Timeout   int     `yaml:"timeout_seconds"`
	Threshold float64 `yaml:"threshold"`
}

type Redis struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type Config struct {
	DBUsername     string      `yaml:"db_username"`
	DBPassword     string      `yaml:"db_password"`
	DBHost         string      `yaml:"db_host"`
	DBPort         string      `yaml:"port"`
	DBName         string      `yaml:"db_name"`
	DisableTLS     bool        `yaml:"disable_tls"`
	BaseUrl        string      `yaml:"base_url"`
	JWTKey         string      `yaml:"jwt_key"`
	Timezone       string      `yaml:"timezone"`
	AllowedOrigins []string    `yaml:"allowed_origins"`
	Recognition    Recognition `yaml:"recognition"`
	Redis          Redis       `yaml:"redis"`
	TapWindow      int         `yaml:"tap_window_seconds"`
	ExportSchedule string      `yaml:"export_schedule"`

	loc *time.Location
}

// NewConfig reads the yaml file at path, fills defaults and validates it.
func NewConfig(path string) (*Config, error) {
	yamlFile, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", path)
	}

	return Parse(yamlFile)
}

// Parse decodes a yaml document into a Config.
func Parse(data []byte) (*Config, error) {
	var c Config

	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, errors.Wrap(err, "decoding config")
	}

	if c.DBUsername == "" || c.DBPassword == "" || c.DBHost == "" || c.DBName == "" {
		return nil, errors.New("missing required database configuration")
	}
	if c.JWTKey == "" {
		return nil, errors.New("missing jwt_key")
	}

	if c.DBPort == "" {
		c.DBPort = "5432"
	}
	if c.Timezone == "" {
		c.Timezone = "Europe/Tirane"
	}
	if c.Recognition.Timeout <= 0 {
		c.Recognition.Timeout = 10
	}
	if c.Recognition.Threshold <= 0 {
		c.Recognition.Threshold = 0.6
	}
	if c.Recognition.Threshold > 1 {
		return nil, errors.Errorf("recognition threshold %v is above 1", c.Recognition.Threshold)
	}
	if c.TapWindow <= 0 {
		c.TapWindow = 60
	}
	if c.ExportSchedule == "" {
		c.ExportSchedule = "0 2 1 * *"
	}

	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, errors.Wrapf(err, "loading timezone %q", c.Timezone)
	}
	c.loc = loc

	return &c, nil
}

// Location is the deployment timezone attendance dates are computed in.
func (c *Config) Location() *time.Location {
	if c.loc == nil {
		return time.UTC
	}
	return c.loc
}

func (c *Config) RecognitionTimeout() time.Duration {
	return time.Duration(c.Recognition.Timeout) * time.Second
}

func (c *Config) TapWindowDuration() time.Duration {
	return time.Duration(c.TapWindow) * time.Second
}
