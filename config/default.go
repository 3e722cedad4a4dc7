package config

import (
	"bytes"
	"io"
	"os"
	"path"
	"text/template"

	"dpigen/log"

	"github.com/pkg/errors"
)

var DefaultConfig = Config{
	LogLevel: log.LevelInfo.String(),
	Generator: GeneratorConfig{
		SchemaPath: "dpi_output.json",
		OutputDir:  DissectorsPath,
		UDPPort:    10000,
		Verbose:    false,
	},
}

var defaultConfigTemplateData = `# Sets the minimum log level of dpigen's logger.
# Can be one of trace, debug, info, warn, error, or fatal.
log_level = "{{.LogLevel}}"

# Configures dissector generation.
[generator]
  # Sets the path to the DPI schema file. Relative paths are resolved
  # against the working directory.
  schema_path = "{{.Generator.SchemaPath}}"
  # Sets the directory generated dissector files are written to.
  # Relative paths are resolved against the home directory.
  output_dir = "{{.Generator.OutputDir}}"
  # Sets the UDP port generated dissectors register against. All
  # dissectors share this one port; Wireshark decides collision behavior.
  udp_port = {{.Generator.UDPPort}}
  # When true, generated dissectors print a per-field debug dump for
  # every packet they decode.
  verbose = {{.Generator.Verbose}}
`

var defaultConfigTemplate *template.Template

func GenerateDefaultConfigFile() []byte {
	buf := new(bytes.Buffer)
	if err := defaultConfigTemplate.Execute(buf, DefaultConfig); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

func ReadConfigFile(homeDir string) (*Config, error) {
	f, err := os.OpenFile(path.Join(homeDir, "config.toml"), os.O_RDONLY, 0755)
	if err != nil {
		return nil, errors.Wrap(err, "error opening config file for reading")
	}
	defer f.Close()
	cfg, err := ReadConfig(f)
	if err != nil {
		return nil, errors.Wrap(err, "error reading config file")
	}
	return cfg, nil
}

func WriteDefaultConfigFile(homeDir string) error {
	f, err := os.OpenFile(path.Join(homeDir, "config.toml"), os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0755)
	if err != nil {
		return errors.Wrap(err, "error opening config file for writing")
	}
	defer f.Close()
	rd := bytes.NewReader(GenerateDefaultConfigFile())
	if _, err := io.Copy(f, rd); err != nil {
		return errors.Wrap(err, "error writing config file")
	}
	return nil
}

func init() {
	defaultConfigTemplate = template.Must(template.New("config").Parse(defaultConfigTemplateData))
}
