package app

import "github.com/spf13/pflag"

// RegisterFlags registers all CLI flags on the given FlagSet
func RegisterFlags(flags *pflag.FlagSet) {
	flags.StringP("transport", "t", "", "Transport type: stdio or sse")
	flags.StringP("host", "H", "", "Host for SSE transport")
	flags.IntP("port", "p", 0, "Port for SSE transport")
	flags.StringP("auth-type", "a", "", "Authentication type: none, basic, or apikey")
	flags.StringP("auth-basic-username", "u", "", "Basic auth username")
	flags.StringP("auth-basic-password", "P", "", "Basic auth password")
	flags.StringSliceP("auth-api-keys", "k", nil, "API keys (comma-separated)")

	// Vault
	flags.String("vault", "", "Path to the vault root")
	flags.String("data-dir", "", "Directory for the cache, scan lock and search index (default <vault>/.vaultcloud)")
	flags.String("legacy-state", "", "Plugin data.json to import when no cache exists yet")
	flags.StringSlice("exclude", nil, "Vault paths to skip as doublestar globs (comma-separated)")
	flags.StringSlice("extensions", nil, "Note file extensions (comma-separated)")
	flags.Int64("max-file-size", 0, "Skip notes larger than this many bytes")

	// Clouds
	flags.String("stopwords", "", "Extra stop words, separated by commas or newlines")
	flags.StringSlice("excluded-tags", nil, "Tags hidden from tag clouds (comma-separated)")

	// Scans
	flags.Duration("scan-interval", 0, "Interval between periodic scans, 0 disables them")
	flags.Bool("scan-on-start", true, "Scan the vault when the server starts")
	flags.Bool("scan-watch", true, "Rescan when notes change on disk")
	flags.Duration("scan-debounce", 0, "Quiet period after a change before rescanning")
	flags.Bool("search-enabled", true, "Maintain the note search index used by query sources")

	// Observability
	flags.String("log-level", "", "Log level: debug, info, warn or error")
	flags.String("log-format", "", "Log format: text or json")
	flags.Bool("metrics-enabled", true, "Serve Prometheus metrics on /metrics (SSE only)")
}
