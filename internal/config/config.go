// Package config loads repodigest's layered application configuration and
// the ignore files of a source tree.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/repodigest/repodigest/internal/utils"
)

// LoadOptions controls how application configuration is discovered.
type LoadOptions struct {
	WorkingDirectory string
	ExplicitFilePath string
}

// ApplicationConfiguration holds defaults for digest generation and the HTTP
// service. Zero values defer to the built-in defaults.
type ApplicationConfiguration struct {
	Ingest IngestConfiguration `mapstructure:"ingest"`
	Server ServerConfiguration `mapstructure:"server"`
}

// IngestConfiguration supplies defaults for digest generation.
type IngestConfiguration struct {
	Output        string        `mapstructure:"output"`
	MaxFileSize   int64         `mapstructure:"max_file_size"`
	MaxFiles      int           `mapstructure:"max_files"`
	MaxTotalBytes int64         `mapstructure:"max_total_bytes"`
	MaxDepth      int           `mapstructure:"max_depth"`
	CloneTimeout  time.Duration `mapstructure:"clone_timeout"`
	TokenModel    string        `mapstructure:"token_model"`
	Exclude       []string      `mapstructure:"exclude"`
	UseGitignore  *bool         `mapstructure:"use_gitignore"`
	UseIgnoreFile *bool         `mapstructure:"use_ignore"`
	Clipboard     *bool         `mapstructure:"clipboard"`
}

// ServerConfiguration supplies defaults for the serve command.
type ServerConfiguration struct {
	Address   string        `mapstructure:"address"`
	DigestTTL time.Duration `mapstructure:"digest_ttl"`
}

// LoadApplicationConfiguration merges the configuration file in the user's
// home directory with the one in the working directory. Local values
// override global ones; missing files are not errors.
func LoadApplicationConfiguration(options LoadOptions) (ApplicationConfiguration, error) {
	workingDirectory := options.WorkingDirectory
	if workingDirectory == "" {
		currentDirectory, workingDirectoryError := os.Getwd()
		if workingDirectoryError != nil {
			return ApplicationConfiguration{}, fmt.Errorf("determine working directory: %w", workingDirectoryError)
		}
		workingDirectory = currentDirectory
	}

	var merged ApplicationConfiguration

	if homeDirectory, homeError := os.UserHomeDir(); homeError == nil && homeDirectory != "" {
		globalPath := filepath.Join(homeDirectory, utils.ConfigFileName)
		globalConfiguration, loadError := loadConfigurationFromPath(globalPath)
		if loadError != nil {
			return ApplicationConfiguration{}, loadError
		}
		merged = merged.Merge(globalConfiguration)
	}

	localPath, resolveError := resolveLocalConfigPath(workingDirectory, options.ExplicitFilePath)
	if resolveError != nil {
		return ApplicationConfiguration{}, resolveError
	}
	if localPath != "" {
		localConfiguration, loadError := loadConfigurationFromPath(localPath)
		if loadError != nil {
			return ApplicationConfiguration{}, loadError
		}
		merged = merged.Merge(localConfiguration)
	}

	merged.Ingest.Exclude = utils.DeduplicatePatterns(merged.Ingest.Exclude)

	return merged, nil
}

func resolveLocalConfigPath(workingDirectory, explicitPath string) (string, error) {
	if explicitPath != "" {
		if filepath.IsAbs(explicitPath) {
			return explicitPath, nil
		}
		if workingDirectory == "" {
			absolutePath, absoluteError := filepath.Abs(explicitPath)
			if absoluteError != nil {
				return "", fmt.Errorf("resolve configuration path %s: %w", explicitPath, absoluteError)
			}
			return absolutePath, nil
		}
		return filepath.Join(workingDirectory, explicitPath), nil
	}
	if workingDirectory == "" {
		return "", nil
	}
	return filepath.Join(workingDirectory, utils.ConfigFileName), nil
}

func loadConfigurationFromPath(path string) (ApplicationConfiguration, error) {
	if path == "" {
		return ApplicationConfiguration{}, nil
	}
	pathInfo, statError := os.Stat(path)
	if statError != nil {
		if os.IsNotExist(statError) {
			return ApplicationConfiguration{}, nil
		}
		return ApplicationConfiguration{}, fmt.Errorf("stat configuration %s: %w", path, statError)
	}
	if pathInfo.IsDir() {
		return ApplicationConfiguration{}, fmt.Errorf("configuration path %s is a directory", path)
	}

	reader := viper.New()
	reader.SetConfigFile(path)
	if readError := reader.ReadInConfig(); readError != nil {
		return ApplicationConfiguration{}, fmt.Errorf("read configuration from %s: %w", path, readError)
	}
	var configuration ApplicationConfiguration
	if decodeError := reader.Unmarshal(&configuration); decodeError != nil {
		return ApplicationConfiguration{}, fmt.Errorf("decode configuration from %s: %w", path, decodeError)
	}
	return configuration, nil
}

// Merge overlays override onto the receiver returning the combined configuration.
func (configuration ApplicationConfiguration) Merge(override ApplicationConfiguration) ApplicationConfiguration {
	result := configuration
	result.Ingest = result.Ingest.merge(override.Ingest)
	result.Server = result.Server.merge(override.Server)
	return result
}

func (configuration IngestConfiguration) merge(override IngestConfiguration) IngestConfiguration {
	result := configuration
	if override.Output != "" {
		result.Output = override.Output
	}
	if override.MaxFileSize > 0 {
		result.MaxFileSize = override.MaxFileSize
	}
	if override.MaxFiles > 0 {
		result.MaxFiles = override.MaxFiles
	}
	if override.MaxTotalBytes > 0 {
		result.MaxTotalBytes = override.MaxTotalBytes
	}
	if override.MaxDepth > 0 {
		result.MaxDepth = override.MaxDepth
	}
	if override.CloneTimeout > 0 {
		result.CloneTimeout = override.CloneTimeout
	}
	if override.TokenModel != "" {
		result.TokenModel = override.TokenModel
	}
	if len(override.Exclude) > 0 {
		result.Exclude = append([]string{}, utils.DeduplicatePatterns(override.Exclude)...)
	}
	if override.UseGitignore != nil {
		result.UseGitignore = cloneBool(override.UseGitignore)
	}
	if override.UseIgnoreFile != nil {
		result.UseIgnoreFile = cloneBool(override.UseIgnoreFile)
	}
	if override.Clipboard != nil {
		result.Clipboard = cloneBool(override.Clipboard)
	}
	return result
}

func (configuration ServerConfiguration) merge(override ServerConfiguration) ServerConfiguration {
	result := configuration
	if override.Address != "" {
		result.Address = override.Address
	}
	if override.DigestTTL > 0 {
		result.DigestTTL = override.DigestTTL
	}
	return result
}

func cloneBool(value *bool) *bool {
	if value == nil {
		return nil
	}
	cloned := *value
	return &cloned
}
