package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/platinummonkey/pluginhost/pkg/plugins"
	"github.com/platinummonkey/pluginhost/pkg/resolver"
)

// ErrProblemsFound is returned by resolve --strict when errors were reported
var ErrProblemsFound = errors.New("plugin resolution reported errors")

// resolveReport is the JSON output of the resolve command
type resolveReport struct {
	RunID    string               `json:"run_id"`
	Build    string               `json:"build"`
	Order    []string             `json:"order"`
	Plugins  []plugins.RecordInfo `json:"plugins"`
	Excluded []plugins.RecordInfo `json:"excluded"`
	Cycles   [][]string           `json:"cycles"`
	Rounds   int                  `json:"rounds"`
	Problems []*resolver.Problem  `json:"problems"`
}

func newResolveCommand(opts *globalOptions) *cobra.Command {
	var asJSON, strict bool

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve plugins and print the load order and diagnostics",
		Args:  cobra.NoArgs,
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

			out := cmd.OutOrStdout()
			if asJSON {
				report := resolveReport{
					RunID:    snap.RunID,
					Build:    snap.Build,
					Order:    snap.Order(),
					Plugins:  recordInfos(snap.Plugins()),
					Excluded: recordInfos(snap.Excluded()),
					Cycles:   snap.Cycles(),
					Rounds:   snap.Rounds(),
					Problems: snap.Problems(),
				}
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(report); err != nil {
					return fmt.Errorf("failed to encode report: %w", err)
				}
			} else {
				fmt.Fprint(out, renderSnapshot(snap))
			}

			if strict {
				for _, p := range snap.Problems() {
					if p.Severity == resolver.SeverityError {
						return ErrProblemsFound
					}
				}
				if g := snap.Graph(); g != nil {
					if err := g.CheckAcyclic(); err != nil {
						return fmt.Errorf("%w: %w", ErrProblemsFound, err)
					}
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the report as JSON")
	cmd.Flags().BoolVar(&strict, "strict", false, "Exit non-zero on any error-severity problem or dependency cycle")
	return cmd
}

func recordInfos(records []*plugins.Record) []plugins.RecordInfo {
	out := make([]plugins.RecordInfo, 0, len(records))
	for _, rec := range records {
		out = append(out, rec.Info())
	}
	return out
}
