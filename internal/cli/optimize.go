package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Ning0612/drivesync/internal/planfile"
	"github.com/Ning0612/drivesync/internal/service"
)

// NewOptimizeCommand creates the optimize command
func NewOptimizeCommand() *cobra.Command {
	var (
		input  string
		output string
		file   string
		opts   service.OptimizeOptions
		strict bool
	)

	cmd := &cobra.Command{
		Use:   "optimize",
		Short: "Optimize the plans of a sync cycle",
		Long: `Read a cycle file (folder, version sets and raw directory/file plans),
run both optimizer pipelines and write the optimized plans.`,
		Example: `  drivesync optimize -i cycle.yaml
  drivesync optimize -i cycle.json -o json --verify`,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := planfile.ParseFormat(output)
			if err != nil {
				return err
			}

			cycle, err := planfile.ReadFile(input)
			if err != nil {
				return err
			}

			svc, _, cleanup, err := openService()
			if err != nil {
				return err
			}
			defer cleanup()

			result, err := svc.Optimize(cmd.Context(), cycle, opts)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if file != "" {
				f, err := os.Create(file)
				if err != nil {
					return fmt.Errorf("failed to create output file: %w", err)
				}
				defer f.Close()
				out = f
			}
			if err := planfile.Encode(out, format, result); err != nil {
				return fmt.Errorf("failed to write result: %w", err)
			}

			if strict {
				for _, d := range result.Differences {
					if !d.Expected {
						return fmt.Errorf("optimized plan changes the end state of %s %s on the %s", d.Entity, d.Key, d.Side)
					}
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "cycle file (.yaml, .yml or .json)")
	cmd.Flags().StringVarP(&output, "output", "o", "yaml", "output format: yaml or json")
	cmd.Flags().StringVarP(&file, "file", "f", "", "write the result to a file instead of stdout")
	cmd.Flags().BoolVar(&opts.Verify, "verify", false, "replay both plans and report end-state differences")
	cmd.Flags().BoolVar(&strict, "strict", false, "with --verify, fail on unexpected differences")
	cmd.Flags().BoolVar(&opts.Lock, "lock", true, "hold the per-folder lock while optimizing")
	cmd.MarkFlagRequired("input")

	return cmd
}
