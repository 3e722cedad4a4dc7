package config

import (
	"io"

	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"
)

type Config struct {
	LogLevel  string          `mapstructure:"log_level"`
	Generator GeneratorConfig `mapstructure:"generator"`
}

type GeneratorConfig struct {
	SchemaPath string `mapstructure:"schema_path"`
	OutputDir  string `mapstructure:"output_dir"`
	UDPPort    int    `mapstructure:"udp_port"`
	Verbose    bool   `mapstructure:"verbose"`
}

func ReadConfig(r io.Reader) (*Config, error) {
	decoder := toml.NewDecoder(r)
	decoder.SetTagName("mapstructure")
	config := &Config{}
	if err := decoder.Decode(config); err != nil {
		return nil, errors.Wrap(err, "error decoding config file")
	}
	return config, nil
}
