package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/repodigest/repodigest/internal/utils"
)

func boolPointer(value bool) *bool {
	pointer := value
	return &pointer
}

func writeConfigFile(t *testing.T, directory, name, content string) {
	t.Helper()
	if writeError := os.WriteFile(filepath.Join(directory, name), []byte(content), 0o600); writeError != nil {
		t.Fatalf("write configuration file: %v", writeError)
	}
}

func TestLoadApplicationConfigurationMergesSources(t *testing.T) {
	testCases := []struct {
		name              string
		globalContent     string
		localContent      string
		expectOutput      string
		expectMaxFiles    int
		expectModel       string
		expectTimeout     time.Duration
		expectAddress     string
		expectTTL         time.Duration
		expectUseIgnore   *bool
		expectClipboard   *bool
		expectExcludeSize int
	}{
		{
			name:          "local_overrides_global",
			globalContent: "ingest:\n  output: global.txt\n  token_model: gpt-4o\n  max_files: 50\nserver:\n  address: 127.0.0.1:9000\n",
			localContent:  "ingest:\n  output: local.txt\n  clone_timeout: 90s\nserver:\n  digest_ttl: 30m\n",
			expectOutput:  "local.txt",
			expectModel:   "gpt-4o",
			expectTimeout: 90 * time.Second,
			expectAddress: "127.0.0.1:9000",
			expectTTL:     30 * time.Minute,

			expectMaxFiles: 50,
		},
		{
			name:            "boolean_pointers_survive_merge",
			globalContent:   "ingest:\n  use_gitignore: false\n  clipboard: true\n",
			localContent:    "ingest:\n  use_ignore: false\n",
			expectUseIgnore: boolPointer(false),
			expectClipboard: boolPointer(true),
		},
		{
			name:              "exclude_patterns_deduplicated",
			globalContent:     "",
			localContent:      "ingest:\n  exclude:\n    - '*.log'\n    - 'tmp/'\n    - '*.log'\n",
			expectExcludeSize: 2,
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			homeDirectory := t.TempDir()
			workingDirectory := t.TempDir()
			if testCase.globalContent != "" {
				writeConfigFile(t, homeDirectory, utils.ConfigFileName, testCase.globalContent)
			}
			if testCase.localContent != "" {
				writeConfigFile(t, workingDirectory, utils.ConfigFileName, testCase.localContent)
			}

			t.Setenv("HOME", homeDirectory)
			t.Setenv("USERPROFILE", homeDirectory)

			loadedConfiguration, loadError := LoadApplicationConfiguration(LoadOptions{WorkingDirectory: workingDirectory})
			if loadError != nil {
				t.Fatalf("LoadApplicationConfiguration error: %v", loadError)
			}

			if testCase.expectOutput != "" && loadedConfiguration.Ingest.Output != testCase.expectOutput {
				t.Errorf("expected output %q, got %q", testCase.expectOutput, loadedConfiguration.Ingest.Output)
			}
			if testCase.expectMaxFiles != 0 && loadedConfiguration.Ingest.MaxFiles != testCase.expectMaxFiles {
				t.Errorf("expected max files %d, got %d", testCase.expectMaxFiles, loadedConfiguration.Ingest.MaxFiles)
			}
			if testCase.expectModel != "" && loadedConfiguration.Ingest.TokenModel != testCase.expectModel {
				t.Errorf("expected token model %q, got %q", testCase.expectModel, loadedConfiguration.Ingest.TokenModel)
			}
			if testCase.expectTimeout != 0 && loadedConfiguration.Ingest.CloneTimeout != testCase.expectTimeout {
				t.Errorf("expected clone timeout %v, got %v", testCase.expectTimeout, loadedConfiguration.Ingest.CloneTimeout)
			}
			if testCase.expectAddress != "" && loadedConfiguration.Server.Address != testCase.expectAddress {
				t.Errorf("expected address %q, got %q", testCase.expectAddress, loadedConfiguration.Server.Address)
			}
			if testCase.expectTTL != 0 && loadedConfiguration.Server.DigestTTL != testCase.expectTTL {
				t.Errorf("expected digest TTL %v, got %v", testCase.expectTTL, loadedConfiguration.Server.DigestTTL)
			}
			if testCase.expectUseIgnore != nil {
				if loadedConfiguration.Ingest.UseGitignore == nil || *loadedConfiguration.Ingest.UseGitignore != *testCase.expectUseIgnore {
					t.Errorf("expected use_gitignore pointer %v, got %v", *testCase.expectUseIgnore, loadedConfiguration.Ingest.UseGitignore)
				}
			}
			if testCase.expectClipboard != nil {
				if loadedConfiguration.Ingest.Clipboard == nil || *loadedConfiguration.Ingest.Clipboard != *testCase.expectClipboard {
					t.Errorf("expected clipboard pointer %v, got %v", *testCase.expectClipboard, loadedConfiguration.Ingest.Clipboard)
				}
			}
			if testCase.expectExcludeSize != 0 && len(loadedConfiguration.Ingest.Exclude) != testCase.expectExcludeSize {
				t.Errorf("expected %d exclude patterns, got %v", testCase.expectExcludeSize, loadedConfiguration.Ingest.Exclude)
			}
		})
	}
}

func TestLoadApplicationConfigurationExplicitPath(t *testing.T) {
	homeDirectory := t.TempDir()
	workingDirectory := t.TempDir()
	writeConfigFile(t, workingDirectory, "custom.yaml", "ingest:\n  output: explicit.txt\n")
	writeConfigFile(t, workingDirectory, utils.ConfigFileName, "ingest:\n  output: implicit.txt\n")

	t.Setenv("HOME", homeDirectory)
	t.Setenv("USERPROFILE", homeDirectory)

	loadedConfiguration, loadError := LoadApplicationConfiguration(LoadOptions{
		WorkingDirectory: workingDirectory,
		ExplicitFilePath: "custom.yaml",
	})
	if loadError != nil {
		t.Fatalf("LoadApplicationConfiguration error: %v", loadError)
	}
	if loadedConfiguration.Ingest.Output != "explicit.txt" {
		t.Fatalf("expected explicit configuration to win, got %q", loadedConfiguration.Ingest.Output)
	}
}

func TestLoadApplicationConfigurationMissingFilesAreNotErrors(t *testing.T) {
	homeDirectory := t.TempDir()
	workingDirectory := t.TempDir()

	t.Setenv("HOME", homeDirectory)
	t.Setenv("USERPROFILE", homeDirectory)

	loadedConfiguration, loadError := LoadApplicationConfiguration(LoadOptions{WorkingDirectory: workingDirectory})
	if loadError != nil {
		t.Fatalf("LoadApplicationConfiguration error: %v", loadError)
	}
	if loadedConfiguration.Ingest.Output != "" || loadedConfiguration.Server.Address != "" {
		t.Fatalf("expected zero configuration, got %+v", loadedConfiguration)
	}
}
