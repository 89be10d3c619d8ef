package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/pelletier/go-toml/v2"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/grovetools/pantry/errors"
	"github.com/grovetools/pantry/pkg/paths"
)

var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

// configNames lists project config file names in lookup order.
var configNames = []string{
	"pantry.yml",
	"pantry.yaml",
	"pantry.toml",
	".pantry.yml",
	".pantry.yaml",
}

// knownSections are decoded into Config; every other key is an extension.
var knownSections = map[string]struct{}{
	"storage": {},
	"auth":    {},
	"daemon":  {},
	"access":  {},
}

// Load reads, defaults and validates a single configuration file.
func Load(path string) (*Config, error) {
	raw, err := readRaw(path)
	if err != nil {
		return nil, err
	}
	cfg, err := build(raw)
	if err != nil {
		return nil, err
	}
	cfg.Sources = []string{path}
	return cfg, nil
}

// LoadDefault finds and loads the configuration with hierarchical merging:
// 1. Global config ($PANTRY_HOME/config or ~/.config/pantry) - base layer
// 2. Project config (pantry.yml, nearest ancestor of the working directory) - overrides global
func LoadDefault() (*Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to get current directory")
	}
	return LoadFrom(cwd)
}

// LoadFrom loads configuration with hierarchical merging starting from the given directory.
// Both layers are optional; with neither present the defaults are returned.
func LoadFrom(startDir string) (*Config, error) {
	return LoadFromWithLogger(startDir, logrus.New())
}

// LoadFromWithLogger is LoadFrom with debug output sent to logger.
func LoadFromWithLogger(startDir string, logger *logrus.Logger) (*Config, error) {
	merged := map[string]interface{}{}
	var sources []string

	if globalPath := GlobalConfigPath(); globalPath != "" {
		raw, err := readRaw(globalPath)
		switch {
		case err == nil:
			logger.WithField("path", globalPath).Debug("Loading global configuration")
			merged = mergeMaps(merged, raw)
			sources = append(sources, globalPath)
		case errors.Is(err, errors.ErrCodeConfigNotFound):
		default:
			return nil, err
		}
	}

	if projectPath, err := FindConfigFile(startDir); err == nil && !contains(sources, projectPath) {
		raw, err := readRaw(projectPath)
		if err != nil {
			return nil, err
		}
		logger.WithField("path", projectPath).Debug("Loading project configuration")
		merged = mergeMaps(merged, raw)
		sources = append(sources, projectPath)
	}

	cfg, err := build(merged)
	if err != nil {
		return nil, err
	}
	cfg.Sources = sources

	if logger.IsLevelEnabled(logrus.DebugLevel) {
		if data, err := yaml.Marshal(cfg); err == nil {
			logger.Debugf("Merged configuration:\n%s", string(data))
		}
	}
	return cfg, nil
}

// LoadFromBytes parses configuration from data. format is "yaml" or "toml".
func LoadFromBytes(data []byte, format string) (*Config, error) {
	raw, err := decodeRaw(data, format)
	if err != nil {
		return nil, err
	}
	return build(raw)
}

// FindConfigFile searches from startDir up to the filesystem root for a
// pantry configuration file.
func FindConfigFile(startDir string) (string, error) {
	dir := startDir
	for {
		for _, name := range configNames {
			path := filepath.Join(dir, name)
			if info, err := os.Stat(path); err == nil && !info.IsDir() {
				return path, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", errors.ConfigNotFound(startDir).WithDetail("searchPath", startDir)
}

// GlobalConfigPath returns the path of the global pantry.yml.
func GlobalConfigPath() string {
	dir := paths.ConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "pantry.yml")
}

// build decodes a merged raw map, applies defaults and validates.
func build(raw map[string]interface{}) (*Config, error) {
	known := map[string]interface{}{}
	extensions := map[string]interface{}{}
	for k, v := range raw {
		if _, ok := knownSections[k]; ok {
			known[k] = v
		} else {
			extensions[k] = v
		}
	}

	var cfg Config
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      &cfg,
		TagName:     "yaml",
		ErrorUnused: true,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to create config decoder")
	}
	if err := decoder.Decode(known); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to decode configuration")
	}
	if len(extensions) > 0 {
		cfg.Extensions = extensions
	}

	cfg.SetDefaults()

	validator, err := NewSchemaValidator()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to create validator")
	}
	if err := validator.Validate(&cfg); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "schema validation failed")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func readRaw(path string) (map[string]interface{}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.ConfigNotFound(path)
		}
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to read config file").
			WithDetail("path", path)
	}
	raw, err := decodeRaw(data, formatOf(path))
	if err != nil {
		if pe, ok := errors.As(err); ok {
			pe.WithDetail("path", path)
		}
		return nil, err
	}
	return raw, nil
}

func decodeRaw(data []byte, format string) (map[string]interface{}, error) {
	expanded := []byte(expandEnvVars(string(data)))
	raw := map[string]interface{}{}

	switch format {
	case "toml":
		if err := toml.Unmarshal(expanded, &raw); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to parse TOML configuration")
		}
	case "yaml", "yml", "":
		if err := yaml.Unmarshal(expanded, &raw); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to parse YAML configuration")
		}
	default:
		return nil, errors.ConfigInvalid(fmt.Sprintf("unsupported config format %q", format))
	}
	return raw, nil
}

func formatOf(path string) string {
	return strings.TrimPrefix(filepath.Ext(path), ".")
}

// expandEnvVars replaces ${VAR} with environment variable values
func expandEnvVars(content string) string {
	return envVarRegex.ReplaceAllStringFunc(content, func(match string) string {
		varName := envVarRegex.FindStringSubmatch(match)[1]

		// Handle default values: ${VAR:-default}
		parts := strings.SplitN(varName, ":-", 2)
		varName = parts[0]
		defaultValue := ""
		if len(parts) > 1 {
			defaultValue = parts[1]
		}

		if value := os.Getenv(varName); value != "" {
			return value
		}

		return defaultValue
	})
}

func contains(s []string, v string) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}
