package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/sambabib/cpm-migrate/pkg/migrate"
	"github.com/sambabib/cpm-migrate/pkg/project"
	"github.com/sambabib/cpm-migrate/pkg/scanner"
)

// ConfigFileName is looked up in the project directory and its parents when
// no explicit config path is given.
const ConfigFileName = ".cpmig.yaml"

// Config represents the tool configuration.
type Config struct {
	// Directory names (case-insensitive) pruned during project discovery.
	ExcludeDirs []string `yaml:"excludeDirs"`

	// ManifestName is the centralized manifest file name.
	ManifestName string `yaml:"manifestName"`

	// BackupSuffix names the per-project backup artifacts.
	BackupSuffix string `yaml:"backupSuffix"`

	// IgnorePackages lists package ids whose inline versions are left alone.
	IgnorePackages []string `yaml:"ignorePackages"`

	// Output configuration
	Output struct {
		Format string `yaml:"format"` // text, json, sarif
		File   string `yaml:"file"`   // Output file path (stdout if empty)
	} `yaml:"output"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	config := &Config{
		ExcludeDirs:  scanner.DefaultExcludeDirs,
		ManifestName: project.DefaultManifestName,
		BackupSuffix: migrate.DefaultBackupSuffix,
	}
	config.Output.Format = "text"
	return config
}

// LoadConfig loads the configuration from the specified file path.
// If no path is provided, it looks for .cpmig.yaml in the current directory.
func LoadConfig(configPath string) (*Config, error) {
	config := DefaultConfig()

	if configPath == "" {
		configPath = ConfigFileName
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		// Config file doesn't exist, return default config
		return config, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return config.withDefaults(), nil
}

// FindAndLoadConfig searches for a config file in the project directory and
// its parents, nearest first.
func FindAndLoadConfig(projectPath string) (*Config, error) {
	config := DefaultConfig()

	currentDir := projectPath
	for {
		configPath := filepath.Join(currentDir, ConfigFileName)
		if _, err := os.Stat(configPath); err == nil {
			data, err := os.ReadFile(configPath)
			if err != nil {
				return nil, fmt.Errorf("error reading config file %s: %w", configPath, err)
			}
			if err := yaml.Unmarshal(data, config); err != nil {
				return nil, fmt.Errorf("error parsing config file %s: %w", configPath, err)
			}
			return config.withDefaults(), nil
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			// Reached the root directory, no config file found
			break
		}
		currentDir = parentDir
	}

	return config, nil
}

// withDefaults fills fields a partial config file left empty.
func (c *Config) withDefaults() *Config {
	if c.ExcludeDirs == nil {
		c.ExcludeDirs = scanner.DefaultExcludeDirs
	}
	if c.ManifestName == "" {
		c.ManifestName = project.DefaultManifestName
	}
	if c.BackupSuffix == "" {
		c.BackupSuffix = migrate.DefaultBackupSuffix
	}
	if c.Output.Format == "" {
		c.Output.Format = "text"
	}
	return c
}

// IsPackageIgnored checks if a package should be ignored based on the
// configuration. Ids compare case-insensitively.
func (c *Config) IsPackageIgnored(packageName string) bool {
	for _, ignoredPackage := range c.IgnorePackages {
		if strings.EqualFold(ignoredPackage, packageName) {
			return true
		}
	}
	return false
}
