package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newLookupCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "lookup <plugin-id> <resource>",
		Short: "Resolve a resource name through a plugin's loading unit",
		Long: `Resolve a slash-separated resource name the way the plugin would see it:
its own code roots first, then the units of its dependencies depth-first.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := setup(cmd, opts)
			if err != nil {
				return err
			}

			reg, store, err := env.openRegistry(cmd.Context())
			if err != nil {
				return err
			}
			defer env.closeStore(store)

			snap, err := reg.Init(cmd.Context())
			if err != nil {
				return err
			}

			res, err := snap.Resolve(args[0], args[1])
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s\n%s\n",
				res.Path, dimStyle.Render(fmt.Sprintf("found in unit %q", res.Unit)))
			return nil
		},
	}
}
