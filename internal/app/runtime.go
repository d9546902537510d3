package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sha1n/mcp-vaultcloud-server/internal/cache"
	"github.com/sha1n/mcp-vaultcloud-server/internal/cloud"
	"github.com/sha1n/mcp-vaultcloud-server/internal/config"
	mcputil "github.com/sha1n/mcp-vaultcloud-server/internal/mcp"
	"github.com/sha1n/mcp-vaultcloud-server/internal/scan"
	"github.com/sha1n/mcp-vaultcloud-server/internal/search"
	"github.com/sha1n/mcp-vaultcloud-server/internal/stopwords"
	"github.com/sha1n/mcp-vaultcloud-server/internal/vault"
	"github.com/sha1n/mcp-vaultcloud-server/internal/watch"
	"golang.org/x/sync/errgroup"
)

// ServerName is the MCP implementation name.
const ServerName = "vaultcloud-mcp"

// Runtime holds the services behind the MCP server for one vault.
type Runtime struct {
	Server       *mcp.Server
	Orchestrator *scan.Orchestrator
	Clouds       *cloud.Service
	// Registry gathers the scan metrics. Nil disables /metrics.
	Registry *prometheus.Registry

	settings  *config.Settings
	filter    *vault.Filter
	scheduler *scan.Scheduler
	index     *search.Index
	logger    *slog.Logger
}

// NewRuntime opens the vault state and wires the scan and cloud services.
func NewRuntime(settings *config.Settings, version string, logger *slog.Logger) (*Runtime, error) {
	if logger == nil {
		logger = slog.Default()
	}
	dataDir := settings.Vault.DataDir
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	filter := vault.NewFilter(settings.Vault.Exclude, settings.Vault.Extensions, settings.Vault.MaxFileSize)
	store := vault.NewFSStore(settings.Vault.Path, filter)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	rt := &Runtime{
		Registry: registry,
		settings: settings,
		filter:   filter,
		logger:   logger,
	}

	scanCfg := scan.Config{
		Store:        store,
		StateStore:   cache.NewFileStore(filepath.Join(dataDir, cache.StateFilename), settings.Vault.LegacyState),
		Stopwords:    stopwords.Default().Effective(stopwords.Parse(settings.Cloud.Stopwords)),
		ExcludedTags: settings.Cloud.ExcludedTags,
		Lock:         scan.NewLeaderLock(filepath.Join(dataDir, scan.LockFilename)),
		Metrics:      scan.NewMetrics(registry),
		Logger:       logger,
	}

	if settings.Search.Enabled {
		index, err := search.Open(filepath.Join(dataDir, search.IndexDirname))
		if err != nil {
			logger.Warn("Search index unavailable, query sources disabled", "error", err)
		} else {
			rt.index = index
			scanCfg.Index = index
		}
	}

	orchestrator, err := scan.New(scanCfg)
	if err != nil {
		_ = rt.Close()
		return nil, fmt.Errorf("failed to create scan orchestrator: %w", err)
	}
	rt.Orchestrator = orchestrator

	cloudCfg := cloud.Config{
		Aggregates:   orchestrator,
		Entries:      orchestrator,
		Store:        store,
		Tags:         orchestrator,
		Links:        orchestrator,
		Stopwords:    orchestrator.Stopwords(),
		ExcludedTags: orchestrator.ExcludedTags(),
		Logger:       logger,
	}
	if rt.index != nil {
		cloudCfg.Searcher = rt.index
	}
	clouds, err := cloud.NewService(cloudCfg)
	if err != nil {
		_ = rt.Close()
		return nil, fmt.Errorf("failed to create cloud service: %w", err)
	}
	rt.Clouds = clouds

	rt.scheduler = scan.NewScheduler(orchestrator, settings.Scan.Interval, logger)
	rt.Server = mcputil.CreateServer(mcputil.ServerConfig{
		Name:    ServerName,
		Version: version,
		Scans:   orchestrator,
		Clouds:  clouds,
	})
	return rt, nil
}

// RunBackground runs periodic and watch-triggered scans until ctx is done.
func (r *Runtime) RunBackground(ctx context.Context) error {
	if r.scheduler == nil {
		return nil
	}
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return r.scheduler.Run(ctx)
	})
	if r.settings.Scan.OnStart {
		r.scheduler.Trigger()
	}

	if r.settings.Scan.Watch {
		w, err := watch.New(watch.Config{
			Root:     r.settings.Vault.Path,
			Filter:   r.filter,
			Ignore:   []string{r.settings.Vault.DataDir},
			Debounce: r.settings.Scan.Debounce,
			OnChange: r.scheduler.Trigger,
			Logger:   r.logger,
		})
		if err != nil {
			r.logger.Warn("Vault watcher unavailable, relying on periodic scans", "error", err)
		} else {
			g.Go(func() error {
				return w.Run(ctx)
			})
		}
	}

	return g.Wait()
}

// Close stops any running scan and releases the search index.
func (r *Runtime) Close() error {
	if r.Orchestrator != nil {
		r.Orchestrator.Cancel()
	}
	var errs []error
	if r.index != nil {
		if err := r.index.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close search index: %w", err))
		}
	}
	return errors.Join(errs...)
}
