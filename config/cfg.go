package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"time"

	yaml "gopkg.in/yaml.v3"

	"github.com/rupor-github/gencfg"
)

//go:embed config.yaml.tmpl
var ConfigTmpl []byte

// Duration makes time.Duration usable in YAML fields ("2s", "150ms").
type Duration time.Duration

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("failed to parse duration '%s': %w", s, err)
	}
	*d = Duration(v)
	return nil
}

type (
	EditorConfig struct {
		// DrainInterval is the synchronization tick period.
		DrainInterval Duration `yaml:"drain_interval"`
		// PairEdgeZone is the fraction of a drop target's width forming
		// each side-by-side pairing zone.
		PairEdgeZone float64 `yaml:"pair_edge_zone" validate:"gt=0,lte=0.5"`
		// AutoScrollZone is the viewport edge band, in pixels, where drags
		// trigger auto-scroll.
		AutoScrollZone float64 `yaml:"auto_scroll_zone" validate:"gte=0"`
	}

	PluginConfig struct {
		Endpoint         string       `yaml:"endpoint" validate:"required,uri"`
		AuthToken        SecretString `yaml:"auth_token,omitempty"`
		HandshakeTimeout Duration     `yaml:"handshake_timeout,omitempty"`
		WriteTimeout     Duration     `yaml:"write_timeout,omitempty"`
		PingInterval     Duration     `yaml:"ping_interval,omitempty"`
	}

	ServerConfig struct {
		Listen    string       `yaml:"listen" validate:"required,hostname_port"`
		StorePath string       `yaml:"store_path" sanitize:"path_clean,assure_dir_exists_for_file" validate:"required,filepath"`
		AuthToken SecretString `yaml:"auth_token,omitempty"`
	}

	Config struct {
		Version   int            `yaml:"version" validate:"eq=1"`
		Editor    EditorConfig   `yaml:"editor"`
		Plugin    PluginConfig   `yaml:"plugin"`
		Server    ServerConfig   `yaml:"server"`
		Logging   LoggingConfig  `yaml:"logging"`
		Reporting ReporterConfig `yaml:"reporting"`
	}
)

func unmarshalConfig(data []byte, cfg *Config, process bool) (*Config, error) {
	// We want to use only fields we defined so we cannot use yaml.Unmarshal
	// directly here
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration data: %w", err)
	}
	if process {
		// sanitize and validate what has been loaded
		if err := gencfg.Sanitize(cfg); err != nil {
			return nil, fmt.Errorf("failed to sanitize configuration: %w", err)
		}
		if err := gencfg.Validate(cfg); err != nil {
			return nil, fmt.Errorf("failed to validate configuration: %w", err)
		}
	}
	return cfg, nil
}

// LoadConfiguration reads the configuration from the file at the given path,
// superimposes its values on top of expanded configuration tamplate to provide
// sane defaults and performs validation.
func LoadConfiguration(path string, options ...func(*gencfg.ProcessingOptions)) (*Config, error) {
	haveFile := len(path) > 0

	data, err := gencfg.Process(ConfigTmpl, options...)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	cfg, err := unmarshalConfig(data, &Config{}, !haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	if !haveFile {
		return cfg, nil
	}

	// overwrite cfg values with values from the file
	data, err = os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err = unmarshalConfig(data, cfg, haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration file: %w", err)
	}
	return cfg, nil
}

// Prepare generates configuration file from template and returns it as a byte
// slice.
func Prepare() ([]byte, error) {
	return gencfg.Process(ConfigTmpl)
}

func Dump(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(*cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config to yaml: %v", err)
	}
	return data, nil
}
