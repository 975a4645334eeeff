package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/platinummonkey/pluginhost/pkg/plugins"
)

// ErrInvalidDescriptors is returned when any validated descriptor has errors
var ErrInvalidDescriptors = errors.New("invalid plugin descriptors")

func newValidateCommand(opts *globalOptions) *cobra.Command {
	var fix bool

	cmd := &cobra.Command{
		Use:   "validate [plugin-dir...]",
		Short: "Validate plugin descriptors",
		Long: `Validate the plugin.yaml of each given plugin directory. Without arguments
every plugin under the configured bundled and plugin directories is checked.

With --fix, mechanical problems (stray whitespace, empty, duplicate and self
dependencies) are repaired and the descriptor is rewritten before validation.
Rewriting drops YAML comments.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			dirs := args
			if len(dirs) == 0 {
				env, err := setup(cmd, opts)
				if err != nil {
					return err
				}
				dirs = pluginDirsUnder(append(env.cfg.Plugins.BundledDirs, env.cfg.Plugins.PluginDirs...))
			}
			if len(dirs) == 0 {
				return fmt.Errorf("no plugin directories found")
			}

			out := cmd.OutOrStdout()
			failed := 0
			for _, dir := range dirs {
				if fix {
					if err := fixDescriptor(out, dir); err != nil {
						failed++
						fmt.Fprintf(out, "%s  %s\n      %v\n", errStyle.Render("fail"), dir, err)
						continue
					}
				}

				desc, err := plugins.LoadDescriptorFromDir(dir)
				if err != nil {
					failed++
					fmt.Fprintf(out, "%s  %s\n      %v\n", errStyle.Render("fail"), dir, err)
					continue
				}

				findings := plugins.ValidateDescriptor(desc)
				if plugins.HasErrors(findings) {
					failed++
				}
				fmt.Fprint(out, renderFindings(dir, findings))
			}

			if failed > 0 {
				return fmt.Errorf("%w: %d of %d", ErrInvalidDescriptors, failed, len(dirs))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&fix, "fix", false, "Repair mechanical problems and rewrite plugin.yaml")
	return cmd
}

// fixDescriptor normalizes dir's plugin.yaml in place. Code roots are kept as
// written, so the raw descriptor is used rather than LoadDescriptorFromDir.
func fixDescriptor(out io.Writer, dir string) error {
	path := filepath.Join(dir, plugins.ManifestFile)
	desc, err := plugins.LoadDescriptor(path)
	if err != nil {
		return err
	}

	changes := plugins.NormalizeDescriptor(desc)
	if len(changes) == 0 {
		return nil
	}
	if err := plugins.SaveDescriptor(desc, path); err != nil {
		return err
	}
	for _, change := range changes {
		fmt.Fprintf(out, "%s  %s: %s\n", okStyle.Render("fixed"), dir, change)
	}
	return nil
}

// pluginDirsUnder lists the immediate subdirectories holding a plugin.yaml
func pluginDirsUnder(roots []string) []string {
	var dirs []string
	for _, root := range roots {
		entries, err := os.ReadDir(root)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}
			dir := filepath.Join(root, entry.Name())
			if _, err := os.Stat(filepath.Join(dir, plugins.ManifestFile)); err == nil {
				dirs = append(dirs, dir)
			}
		}
	}
	return dirs
}
