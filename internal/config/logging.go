package config

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// ParseLevel converts a configured level name to a slog.Level.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("log-level must be one of debug, info, warn, error, got: %s", level)
}

// NewLogger creates a logger writing to w in the configured format.
func NewLogger(w io.Writer, s LogSettings) (*slog.Logger, error) {
	level, err := ParseLevel(s.Level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}

	switch s.Format {
	case LogFormatJSON:
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	case LogFormatText, "":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	}
	return nil, fmt.Errorf("log-format must be '%s' or '%s', got: %s", LogFormatText, LogFormatJSON, s.Format)
}

// Log logs the resolved settings in a granular way, skipping irrelevant ones
func Log(s *Settings) {
	LogWithLogger(s, slog.Default())
}

// LogWithLogger logs the resolved settings using the provided logger
func LogWithLogger(s *Settings, logger *slog.Logger) {
	ctx := context.Background()
	logger.InfoContext(ctx, "Config: transport", "value", s.Transport)
	if s.Transport == "sse" {
		logger.InfoContext(ctx, "Config: host", "value", s.Host)
		logger.InfoContext(ctx, "Config: port", "value", s.Port)
		logger.InfoContext(ctx, "Config: metrics.enabled", "value", s.Metrics.Enabled)
	}

	logger.InfoContext(ctx, "Config: auth.type", "value", s.Auth.Type)
	switch s.Auth.Type {
	case AuthTypeBasic:
		logger.InfoContext(ctx, "Config: auth.basic.username", "value", s.Auth.Basic.Username)
		logger.InfoContext(ctx, "Config: auth.basic.password", "value", "****")
	case AuthTypeAPIKey:
		logger.InfoContext(ctx, "Config: auth.api_keys", "count", len(s.Auth.APIKeys))
	}

	logger.InfoContext(ctx, "Config: vault", "value", VaultSettingsLogValue(s.Vault))
	if s.Vault.LegacyState != "" {
		logger.InfoContext(ctx, "Config: vault.legacy_state", "value", s.Vault.LegacyState)
	}
	logger.InfoContext(ctx, "Config: cloud.stopwords", "count", len(strings.FieldsFunc(s.Cloud.Stopwords, isListSeparator)))
	if len(s.Cloud.ExcludedTags) > 0 {
		logger.InfoContext(ctx, "Config: cloud.excluded_tags", "value", s.Cloud.ExcludedTags)
	}
	logger.InfoContext(ctx, "Config: scan",
		"interval", s.Scan.Interval,
		"on_start", s.Scan.OnStart,
		"watch", s.Scan.Watch,
		"debounce", s.Scan.Debounce,
	)
	logger.InfoContext(ctx, "Config: search.enabled", "value", s.Search.Enabled)
}

func isListSeparator(r rune) bool {
	return r == '\n' || r == '\r' || r == ','
}

// VaultSettingsLogValue returns a slog.Value for VaultSettings
func VaultSettingsLogValue(s VaultSettings) slog.Value {
	return slog.GroupValue(
		slog.String("path", s.Path),
		slog.String("data_dir", s.DataDir),
		slog.Any("exclude", s.Exclude),
		slog.Any("extensions", s.Extensions),
		slog.Int64("max_file_size", s.MaxFileSize),
	)
}

// AuthSettingsLogValue returns a slog.Value for AuthSettings with masked data
func AuthSettingsLogValue(s AuthSettings) slog.Value {
	keys := make([]string, len(s.APIKeys))
	for i := range s.APIKeys {
		keys[i] = "****"
	}
	return slog.GroupValue(
		slog.String("type", s.Type),
		slog.Any("basic", BasicAuthSettingsLogValue(s.Basic)),
		slog.Any("api_keys", keys),
	)
}

// BasicAuthSettingsLogValue returns a slog.Value for BasicAuthSettings with masked data
func BasicAuthSettingsLogValue(s BasicAuthSettings) slog.Value {
	return slog.GroupValue(
		slog.String("username", s.Username),
		slog.String("password", "****"),
	)
}

// SettingsLogValue returns a slog.Value for Settings with masked data
func SettingsLogValue(s Settings) slog.Value {
	return slog.GroupValue(
		slog.String("transport", s.Transport),
		slog.String("host", s.Host),
		slog.Int("port", s.Port),
		slog.Any("auth", AuthSettingsLogValue(s.Auth)),
		slog.Any("vault", VaultSettingsLogValue(s.Vault)),
		slog.String("log_level", s.Log.Level),
		slog.String("log_format", s.Log.Format),
	)
}
