package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Ning0612/drivesync/internal/core/checksum"
	"github.com/Ning0612/drivesync/internal/domain"
)

// NewChecksumCommand creates the checksum command
func NewChecksumCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "checksum",
		Short: "Manage the checksum store",
		Long:  `The checksum store remembers where content was last seen so uploads can become server-side copies.`,
	}

	cmd.AddCommand(newChecksumRecordCommand())

	return cmd
}

func newChecksumRecordCommand() *cobra.Command {
	var (
		folder string
		name   string
		sum    string
		file   string
	)

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record a file known to exist in storage",
		Example: `  drivesync checksum record --folder 1AbC --name report.pdf --checksum 5d41402abc4b2a76b9719d911017c592
  drivesync checksum record --folder archive --file ./report.pdf`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if (sum == "") == (file == "") {
				return fmt.Errorf("exactly one of --checksum and --file is required")
			}

			svc, cfg, cleanup, err := openService()
			if err != nil {
				return err
			}
			defer cleanup()

			if file != "" {
				f, err := os.Open(file)
				if err != nil {
					return fmt.Errorf("failed to open %s: %w", file, err)
				}
				defer f.Close()

				calc := checksum.NewCalculator(cfg.ChecksumOptions())
				sum, err = calc.Calculate(cmd.Context(), f, cfg.ChecksumAlgorithm())
				if err != nil {
					return fmt.Errorf("failed to compute checksum of %s: %w", file, err)
				}
				if name == "" {
					name = filepath.Base(file)
				}
			}

			candidate := domain.ChecksumCandidate{Checksum: sum, FolderID: folder, Name: name}
			if err := svc.RecordChecksums(cmd.Context(), []domain.ChecksumCandidate{candidate}); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Recorded %s/%s (%s)\n", folder, name, sum)
			return nil
		},
	}

	cmd.Flags().StringVar(&folder, "folder", "", "storage folder ID holding the file")
	cmd.Flags().StringVar(&name, "name", "", "file name (defaults to the base name of --file)")
	cmd.Flags().StringVar(&sum, "checksum", "", "content checksum")
	cmd.Flags().StringVar(&file, "file", "", "compute the checksum from a local copy")
	cmd.MarkFlagRequired("folder")

	return cmd
}
