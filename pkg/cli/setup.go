package cli

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/platinummonkey/pluginhost/pkg/config"
	"github.com/platinummonkey/pluginhost/pkg/disabled"
	"github.com/platinummonkey/pluginhost/pkg/observability"
	"github.com/platinummonkey/pluginhost/pkg/plugins"
	"github.com/platinummonkey/pluginhost/pkg/registry"
)

// environment is the configuration and logger a command runs with
type environment struct {
	cfg    *config.Config
	logger *logrus.Logger
}

// setup loads env files and configuration, applies flag overrides and builds
// the logger. Logs go to the command's error stream.
func setup(cmd *cobra.Command, opts *globalOptions) (*environment, error) {
	if err := config.LoadDotEnv(opts.envFiles...); err != nil {
		return nil, err
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}
	opts.apply(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	logger, err := observability.NewLogger(cfg.Observability.LogLevel, cfg.Observability.LogFormat, cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}

	return &environment{cfg: cfg, logger: logger}, nil
}

// apply overrides configuration with the flags that were set
func (o *globalOptions) apply(cfg *config.Config) {
	p := &cfg.Plugins
	if o.build != "" {
		p.Build = o.build
	}
	if o.coreID != "" {
		p.CoreID = o.coreID
	}
	if len(o.pluginDirs) > 0 {
		p.PluginDirs = o.pluginDirs
	}
	if len(o.bundledDirs) > 0 {
		p.BundledDirs = o.bundledDirs
	}
	if len(o.only) > 0 {
		p.OnlyIDs = o.only
	}
	if o.category != "" {
		p.OnlyCategory = o.category
	}
	if o.noExternal {
		p.DisableExternal = true
	}
	if o.logLevel != "" {
		cfg.Observability.LogLevel = o.logLevel
	}
	if o.logFormat != "" {
		cfg.Observability.LogFormat = o.logFormat
	}
}

// openRegistry opens the disabled-id store and creates a registry over the
// configured plugin directories. The caller closes the store.
func (e *environment) openRegistry(ctx context.Context, extra ...registry.Option) (*registry.Registry, disabled.Store, error) {
	store, err := disabled.Open(ctx, e.cfg.Store)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open disabled plugin store: %w", err)
	}

	p := e.cfg.Plugins
	source := plugins.NewDirSource(p.BundledDirs, p.PluginDirs, e.logger)

	opts := []registry.Option{
		registry.WithLogger(e.logger),
		registry.WithBuild(p.Build),
		registry.WithCoreID(p.CoreID),
		registry.WithSelection(p.Selection()),
		registry.WithLoadConcurrency(p.LoadConcurrency),
		registry.WithUnitCacheSize(p.UnitCacheSize),
	}
	opts = append(opts, extra...)

	return registry.New(source, store, opts...), store, nil
}

// closeStore closes the store, logging a failure
func (e *environment) closeStore(store disabled.Store) {
	if err := store.Close(); err != nil {
		e.logger.WithError(err).Warn("Failed to close disabled plugin store")
	}
}
