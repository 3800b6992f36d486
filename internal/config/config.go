/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/zalando/go-keyring"
	"gopkg.in/yaml.v3"
)

// AppConfig is the user-editable configuration persisted to a YAML file in the user scope.
// Environment variables are treated as read-only overrides at runtime.
//
// config_version: bump when the structure changes in a backward-incompatible way.

type AnalyzerConfig struct {
	BaseURL        string `yaml:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	// APIKey is not stored on disk; it lives in the OS keychain.
}

type GeneralConfig struct {
	Theme              string `yaml:"theme"` // "system" | "light" | "dark"
	ShowPreview        bool   `yaml:"show_preview"`
	SaveResultsLocally bool   `yaml:"save_results_locally"`
}

type StorageConfig struct {
	Path string `yaml:"path"` // database file; empty means the per-user default
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

type AppConfig struct {
	ConfigVersion int            `yaml:"config_version"`
	General       GeneralConfig  `yaml:"general"`
	Analyzer      AnalyzerConfig `yaml:"analyzer"`
	Storage       StorageConfig  `yaml:"storage"`
	Logging       LoggingConfig  `yaml:"logging"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		General:       GeneralConfig{Theme: "system", ShowPreview: true, SaveResultsLocally: true},
		Analyzer:      AnalyzerConfig{BaseURL: "http://127.0.0.1:5000/upload", TimeoutSeconds: 30},
		Storage:       StorageConfig{Path: ""},
		Logging:       LoggingConfig{Level: "info", Format: "console", Source: false, File: ""},
	}
}

// Env var names used as overrides.
const (
	EnvAnalyzerURL     = "IMV_ANALYZER_URL"
	EnvAnalyzerTimeout = "IMV_ANALYZER_TIMEOUT_SECONDS"
	EnvStoragePath     = "IMV_STORAGE_PATH"
	EnvTheme           = "IMV_THEME"
	// EnvLogLevel Logging envs
	EnvLogLevel  = "IMV_LOG_LEVEL"
	EnvLogFormat = "IMV_LOG_FORMAT"
	EnvLogSource = "IMV_LOG_SOURCE"
	EnvLogFile   = "IMV_LOG_FILE"
)

// Service/keys for OS keyring.
const (
	keyringService = "ImageVault"
	keyringAPIKey  = "analyzer_api_key"
)

// tokenStore abstracts keyring, so we can stub in tests.
var tokenStore TokenStore = &osKeyring{}

type TokenStore interface {
	Get(service, key string) (string, error)
	Set(service, key, value string) error
	Delete(service, key string) error
}

// osKeyring implements TokenStore using the OS keyring via github.com/zalando/go-keyring.
type osKeyring struct{}

func (k *osKeyring) Get(service, key string) (string, error) {
	return keyring.Get(service, key)
}
func (k *osKeyring) Set(service, key, value string) error {
	return keyring.Set(service, key, value)
}
func (k *osKeyring) Delete(service, key string) error {
	return keyring.Delete(service, key)
}

// ConfigPath returns the per-user config file path.
func ConfigPath() (string, error) {
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" { // fallback
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "ImageVault")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "ImageVault")
	default: // linux and others
		base = filepath.Join(os.Getenv("HOME"), ".config", "imagevault")
	}
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return filepath.Join(base, "config.yaml"), nil
}

// DefaultStorePath returns the per-user database file path used when the
// config names none.
func DefaultStorePath() (string, error) {
	cp, err := ConfigPath()
	if err != nil {
		return "", err
	}
	return filepath.Join(filepath.Dir(cp), "vault.db"), nil
}

// Load reads the user config file (if present), applies defaults, and merges
// environment overrides. The analyzer API key comes from the keyring and is
// returned separately so it never touches the YAML file.
func Load() (AppConfig, string, error) {
	cfg := Defaults()
	path, err := ConfigPath()
	if err != nil {
		return cfg, "", err
	}
	if data, err := os.ReadFile(path); err == nil {
		var fileCfg AppConfig
		if err := yaml.Unmarshal(data, &fileCfg); err == nil {
			mergeInto(&cfg, &fileCfg)
		}
	}
	applyEnvOverrides(&cfg)
	key, _ := tokenStore.Get(keyringService, keyringAPIKey)
	return cfg, key, nil
}

// Save writes the user config YAML and persists the API key into the OS keyring (if non-empty).
func Save(cfg AppConfig, apiKey string) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return err
	}
	if apiKey != "" {
		if err := tokenStore.Set(keyringService, keyringAPIKey, apiKey); err != nil {
			return err
		}
	}
	return nil
}

// ClearAPIKey removes the analyzer API key from the keyring.
func ClearAPIKey() error {
	err := tokenStore.Delete(keyringService, keyringAPIKey)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	if src.General.Theme != "" {
		dst.General.Theme = src.General.Theme
	}
	// booleans: copy directly from src (file) so user preferences persist
	dst.General.ShowPreview = src.General.ShowPreview
	dst.General.SaveResultsLocally = src.General.SaveResultsLocally
	if src.Analyzer.BaseURL != "" {
		dst.Analyzer.BaseURL = src.Analyzer.BaseURL
	}
	if src.Analyzer.TimeoutSeconds != 0 {
		dst.Analyzer.TimeoutSeconds = src.Analyzer.TimeoutSeconds
	}
	if strings.TrimSpace(src.Storage.Path) != "" {
		dst.Storage.Path = strings.TrimSpace(src.Storage.Path)
	}
	// logging
	if strings.TrimSpace(src.Logging.Level) != "" {
		dst.Logging.Level = strings.ToLower(strings.TrimSpace(src.Logging.Level))
	}
	if strings.TrimSpace(src.Logging.Format) != "" {
		dst.Logging.Format = strings.ToLower(strings.TrimSpace(src.Logging.Format))
	}
	dst.Logging.Source = src.Logging.Source
	if strings.TrimSpace(src.Logging.File) != "" {
		dst.Logging.File = strings.TrimSpace(src.Logging.File)
	}
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv(EnvAnalyzerURL)); v != "" {
		cfg.Analyzer.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvAnalyzerTimeout)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Analyzer.TimeoutSeconds = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvStoragePath)); v != "" {
		cfg.Storage.Path = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvTheme)); v != "" {
		cfg.General.Theme = strings.ToLower(v)
	}
	// logging overrides
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogSource)); v != "" {
		lv := strings.ToLower(v)
		cfg.Logging.Source = lv == "1" || lv == "true" || lv == "on" || lv == "yes"
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.Logging.File = v
	}
}

// EnvOverrideFor returns the env var name if the field is overridden by environment variables.
func EnvOverrideFor(key string) (string, bool) {
	switch key {
	case "analyzer.base_url":
		if os.Getenv(EnvAnalyzerURL) != "" {
			return EnvAnalyzerURL, true
		}
	case "analyzer.timeout_seconds":
		if os.Getenv(EnvAnalyzerTimeout) != "" {
			return EnvAnalyzerTimeout, true
		}
	case "storage.path":
		if os.Getenv(EnvStoragePath) != "" {
			return EnvStoragePath, true
		}
	case "general.theme":
		if os.Getenv(EnvTheme) != "" {
			return EnvTheme, true
		}
	case "logging.level":
		if os.Getenv(EnvLogLevel) != "" {
			return EnvLogLevel, true
		}
	case "logging.format":
		if os.Getenv(EnvLogFormat) != "" {
			return EnvLogFormat, true
		}
	case "logging.source":
		if os.Getenv(EnvLogSource) != "" {
			return EnvLogSource, true
		}
	case "logging.file":
		if os.Getenv(EnvLogFile) != "" {
			return EnvLogFile, true
		}
	}
	return "", false
}

// EffectiveTimeout returns the analyzer timeout as a duration for http.Client.
func (a AnalyzerConfig) EffectiveTimeout() time.Duration {
	if a.TimeoutSeconds <= 0 {
		return time.Duration(Defaults().Analyzer.TimeoutSeconds) * time.Second
	}
	return time.Duration(a.TimeoutSeconds) * time.Second
}

// ApplySettings merges a backup document's settings map into cfg. Keys
// mirror SettingsMap; unknown keys and malformed values are ignored, so an
// older or foreign backup degrades to a partial merge instead of an error.
func ApplySettings(cfg *AppConfig, settings map[string]any) {
	for k, v := range settings {
		switch k {
		case "theme":
			if s, ok := v.(string); ok && s != "" {
				cfg.General.Theme = s
			}
		case "showPreview":
			if b, ok := v.(bool); ok {
				cfg.General.ShowPreview = b
			}
		case "saveResultsLocally":
			if b, ok := v.(bool); ok {
				cfg.General.SaveResultsLocally = b
			}
		case "analyzerUrl":
			if s, ok := v.(string); ok && s != "" {
				cfg.Analyzer.BaseURL = s
			}
		case "timeoutSeconds":
			// JSON decodes numbers as float64
			switch n := v.(type) {
			case float64:
				if n > 0 {
					cfg.Analyzer.TimeoutSeconds = int(n)
				}
			case int:
				if n > 0 {
					cfg.Analyzer.TimeoutSeconds = n
				}
			}
		}
	}
}

// SettingsMap flattens the user-facing preferences into the form stored in
// backup documents.
func (c AppConfig) SettingsMap() map[string]any {
	return map[string]any{
		"theme":              c.General.Theme,
		"showPreview":        c.General.ShowPreview,
		"saveResultsLocally": c.General.SaveResultsLocally,
		"analyzerUrl":        c.Analyzer.BaseURL,
		"timeoutSeconds":     c.Analyzer.TimeoutSeconds,
	}
}
