package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of every environment variable read by the server.
const EnvPrefix = "VAULTCLOUD_MCP"

// DefaultDataDirName is the data directory created inside the vault when
// vault.data_dir is not set.
const DefaultDataDirName = ".vaultcloud"

// Auth type constants
const (
	AuthTypeNone   = "none"
	AuthTypeBasic  = "basic"
	AuthTypeAPIKey = "apikey"
)

// Log format constants
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// AuthSettings configuration for authentication
type AuthSettings struct {
	Type    string            `mapstructure:"type"` // AuthTypeNone, AuthTypeBasic, or AuthTypeAPIKey
	Basic   BasicAuthSettings `mapstructure:"basic"`
	APIKeys []string          `mapstructure:"api_keys"`
}

// BasicAuthSettings configuration for basic auth
type BasicAuthSettings struct {
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// VaultSettings locate the vault and select the notes that are scanned.
type VaultSettings struct {
	Path    string `mapstructure:"path"`
	DataDir string `mapstructure:"data_dir"`
	// LegacyState is a plugin-era data.json imported when no state exists yet.
	LegacyState string   `mapstructure:"legacy_state"`
	Exclude     []string `mapstructure:"exclude"`
	Extensions  []string `mapstructure:"extensions"`
	MaxFileSize int64    `mapstructure:"max_file_size"`
}

// CloudSettings configuration for cloud generation
type CloudSettings struct {
	// Stopwords is a newline or comma separated list added to the built-in set.
	Stopwords    string   `mapstructure:"stopwords"`
	ExcludedTags []string `mapstructure:"excluded_tags"`
}

// ScanSettings configuration for background scans
type ScanSettings struct {
	Interval time.Duration `mapstructure:"interval"`
	OnStart  bool          `mapstructure:"on_start"`
	Watch    bool          `mapstructure:"watch"`
	Debounce time.Duration `mapstructure:"debounce"`
}

// SearchSettings configuration for the note search index
type SearchSettings struct {
	Enabled bool `mapstructure:"enabled"`
}

// LogSettings configuration for logging
type LogSettings struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// MetricsSettings configuration for the Prometheus endpoint
type MetricsSettings struct {
	Enabled bool `mapstructure:"enabled"`
}

// Settings application settings
type Settings struct {
	Transport string          `mapstructure:"transport"`
	Host      string          `mapstructure:"host"`
	Port      int             `mapstructure:"port"`
	Auth      AuthSettings    `mapstructure:"auth"`
	Vault     VaultSettings   `mapstructure:"vault"`
	Cloud     CloudSettings   `mapstructure:"cloud"`
	Scan      ScanSettings    `mapstructure:"scan"`
	Search    SearchSettings  `mapstructure:"search"`
	Log       LogSettings     `mapstructure:"log"`
	Metrics   MetricsSettings `mapstructure:"metrics"`
}

// flagBindings maps config keys to CLI flag names.
var flagBindings = map[string]string{
	"transport":           "transport",
	"host":                "host",
	"port":                "port",
	"auth.type":           "auth-type",
	"auth.basic.username": "auth-basic-username",
	"auth.basic.password": "auth-basic-password",
	"auth.api_keys":       "auth-api-keys",
	"vault.path":          "vault",
	"vault.data_dir":      "data-dir",
	"vault.legacy_state":  "legacy-state",
	"vault.exclude":       "exclude",
	"vault.extensions":    "extensions",
	"vault.max_file_size": "max-file-size",
	"cloud.stopwords":     "stopwords",
	"cloud.excluded_tags": "excluded-tags",
	"scan.interval":       "scan-interval",
	"scan.on_start":       "scan-on-start",
	"scan.watch":          "scan-watch",
	"scan.debounce":       "scan-debounce",
	"search.enabled":      "search-enabled",
	"log.level":           "log-level",
	"log.format":          "log-format",
	"metrics.enabled":     "metrics-enabled",
}

// listKeys hold comma separated lists when read from the environment.
var listKeys = []string{"auth.api_keys", "vault.exclude", "vault.extensions", "cloud.excluded_tags"}

// LoadSettings loads settings from environment variables and optional .env file
func LoadSettings() (*Settings, error) {
	return LoadSettingsWithFlags(nil)
}

// LoadSettingsWithFlags loads settings with optional CLI flag overrides.
// Priority: CLI flags > environment variables > .env file > defaults.
// If flags is nil, only env vars and defaults are used.
func LoadSettingsWithFlags(flags *pflag.FlagSet) (*Settings, error) {
	v := viper.New()

	// Default values
	v.SetDefault("transport", "stdio")
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("port", 8080)
	v.SetDefault("auth.type", AuthTypeNone)

	v.SetDefault("vault.exclude", []string{".obsidian/**", ".trash/**", ".git/**", DefaultDataDirName + "/**"})
	v.SetDefault("vault.extensions", []string{".md"})
	v.SetDefault("vault.max_file_size", int64(1024*1024)) // 1MB
	v.SetDefault("scan.interval", 15*time.Minute)
	v.SetDefault("scan.on_start", true)
	v.SetDefault("scan.watch", true)
	v.SetDefault("scan.debounce", 2*time.Second)
	v.SetDefault("search.enabled", true)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", LogFormatText)
	v.SetDefault("metrics.enabled", true)

	// Environment variables
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Bind every key explicitly so nested values unmarshal from the environment
	for key := range flagBindings {
		_ = v.BindEnv(key, envName(key))
	}

	// Bind CLI flags if provided (highest priority)
	if flags != nil {
		for key, name := range flagBindings {
			if f := flags.Lookup(name); f != nil {
				_ = v.BindPFlag(key, f)
			}
		}
	}

	// Helper to look for .env file
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // Ignore error if .env doesn't exist

	var settings Settings
	if err := v.Unmarshal(&settings); err != nil {
		return nil, err
	}

	// Lists given as a single comma separated env value are split here
	for _, key := range listKeys {
		setList(&settings, key, splitList(listValue(&settings, key), os.Getenv(envName(key))))
	}

	settings.Vault.Path = expandHomeDir(settings.Vault.Path)
	settings.Vault.DataDir = expandHomeDir(settings.Vault.DataDir)
	settings.Vault.LegacyState = expandHomeDir(settings.Vault.LegacyState)
	if settings.Vault.DataDir == "" && settings.Vault.Path != "" {
		settings.Vault.DataDir = filepath.Join(settings.Vault.Path, DefaultDataDirName)
	}
	settings.Log.Level = strings.ToLower(strings.TrimSpace(settings.Log.Level))
	settings.Log.Format = strings.ToLower(strings.TrimSpace(settings.Log.Format))

	return &settings, nil
}

func envName(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

func listValue(s *Settings, key string) []string {
	switch key {
	case "auth.api_keys":
		return s.Auth.APIKeys
	case "vault.exclude":
		return s.Vault.Exclude
	case "vault.extensions":
		return s.Vault.Extensions
	case "cloud.excluded_tags":
		return s.Cloud.ExcludedTags
	}
	return nil
}

func setList(s *Settings, key string, values []string) {
	switch key {
	case "auth.api_keys":
		s.Auth.APIKeys = values
	case "vault.exclude":
		s.Vault.Exclude = values
	case "vault.extensions":
		s.Vault.Extensions = values
	case "cloud.excluded_tags":
		s.Cloud.ExcludedTags = values
	}
}

// splitList splits a comma separated env value when viper delivered it as a
// single element, then trims and drops empty entries.
func splitList(values []string, env string) []string {
	if env != "" && (len(values) == 0 || (len(values) == 1 && strings.Contains(values[0], ","))) {
		values = strings.Split(env, ",")
	}
	return filterEmptyStrings(values)
}

// expandHomeDir expands ~ to the user's home directory
func expandHomeDir(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	if path == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return home
	}
	return path
}

// filterEmptyStrings trims entries and removes the empty ones
func filterEmptyStrings(s []string) []string {
	var result []string
	for _, str := range s {
		if str = strings.TrimSpace(str); str != "" {
			result = append(result, str)
		}
	}
	return result
}

// ValidateSettings checks for conflicting configurations.
// Returns an error if the settings contain mutually exclusive or incomplete config.
func ValidateSettings(s *Settings) error {
	// Validate transport type
	switch s.Transport {
	case "stdio", "sse":
		// valid
	default:
		return errors.New("transport must be 'stdio' or 'sse', got: " + s.Transport)
	}

	if err := validateAuthSettings(&s.Auth); err != nil {
		return err
	}
	if err := validateVaultSettings(&s.Vault); err != nil {
		return err
	}

	if s.Scan.Interval < 0 {
		return errors.New("scan-interval must not be negative")
	}
	if s.Scan.Watch && s.Scan.Debounce <= 0 {
		return errors.New("scan-debounce must be positive when watching")
	}

	if _, err := ParseLevel(s.Log.Level); err != nil {
		return err
	}
	if !slices.Contains([]string{LogFormatText, LogFormatJSON}, s.Log.Format) {
		return fmt.Errorf("log-format must be '%s' or '%s', got: %s", LogFormatText, LogFormatJSON, s.Log.Format)
	}

	return nil
}

func validateAuthSettings(a *AuthSettings) error {
	hasBasicCreds := a.Basic.Username != "" || a.Basic.Password != ""
	hasAPIKeys := len(a.APIKeys) > 0

	switch a.Type {
	case AuthTypeNone, "":
		if hasBasicCreds || hasAPIKeys {
			return errors.New("auth-type 'none' is incompatible with auth credentials")
		}
	case AuthTypeBasic:
		if hasAPIKeys {
			return errors.New("auth-type 'basic' is mutually exclusive with auth-api-keys")
		}
		if a.Basic.Username == "" || a.Basic.Password == "" {
			return errors.New("auth-type 'basic' requires both username and password")
		}
	case AuthTypeAPIKey:
		if hasBasicCreds {
			return errors.New("auth-type 'apikey' is mutually exclusive with basic auth credentials")
		}
		if !hasAPIKeys {
			return errors.New("auth-type 'apikey' requires at least one API key")
		}
	default:
		return errors.New("unknown auth-type: " + a.Type)
	}
	return nil
}

// validateVaultSettings validates the vault configuration
func validateVaultSettings(v *VaultSettings) error {
	if strings.TrimSpace(v.Path) == "" {
		return errors.New("vault path is required (--vault or " + envName("vault.path") + ")")
	}
	if v.MaxFileSize <= 0 {
		return errors.New("max-file-size must be positive")
	}
	if v.DataDir == "" {
		return errors.New("data-dir cannot be empty")
	}
	return nil
}
