package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// globalOptions are the persistent flags shared by every command
type globalOptions struct {
	envFiles    []string
	build       string
	coreID      string
	pluginDirs  []string
	bundledDirs []string
	only        []string
	category    string
	noExternal  bool
	logLevel    string
	logFormat   string
}

// NewRootCommand creates the pluginhost root command
func NewRootCommand(version, commit string) *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "pluginhost",
		Short: "Plugin dependency resolution and loader composition",
		Long: `pluginhost discovers plugin descriptors, filters duplicates, disabled and
build-incompatible plugins, cascades disablement to plugins whose required
dependencies are unavailable, orders the survivors and builds an isolated
loading unit for each of them.`,
		Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringSliceVar(&opts.envFiles, "env-file", nil, "Env files to load before reading PLUGINHOST_* variables (default .env)")
	flags.StringVar(&opts.build, "build", "", "Current host build (overrides PLUGINHOST_BUILD)")
	flags.StringVar(&opts.coreID, "core-id", "", "Id of the core plugin (overrides PLUGINHOST_CORE_ID)")
	flags.StringSliceVar(&opts.pluginDirs, "plugin-dir", nil, "User plugin directories (overrides PLUGINHOST_PLUGIN_DIRS)")
	flags.StringSliceVar(&opts.bundledDirs, "bundled-dir", nil, "Bundled plugin directories (overrides PLUGINHOST_BUNDLED_DIRS)")
	flags.StringSliceVar(&opts.only, "only", nil, "Load only these plugin ids and their required dependencies")
	flags.StringVar(&opts.category, "category", "", "Load only plugins of this category and their required dependencies")
	flags.BoolVar(&opts.noExternal, "no-external", false, "Load bundled plugins only")
	flags.StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	flags.StringVar(&opts.logFormat, "log-format", "", "Log format: text or json")

	rootCmd.AddCommand(
		newResolveCommand(opts),
		newLookupCommand(opts),
		newValidateCommand(opts),
		newServeCommand(opts, version),
	)

	return rootCmd
}
