package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Ning0612/drivesync/internal/adapter/gdrive"
)

// NewAuthCommand creates the auth command
func NewAuthCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authorize storage backends",
	}

	cmd.AddCommand(newAuthGDriveCommand())

	return cmd
}

func newAuthGDriveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "gdrive",
		Short: "Authorize read-only Google Drive access",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			gc := cfg.Storage.GDrive
			if gc.ClientID == "" || gc.ClientSecret == "" {
				return fmt.Errorf("storage.gdrive.client_id and storage.gdrive.client_secret must be configured")
			}

			auth := gdrive.NewAuthenticator(gc.ClientID, gc.ClientSecret, gc.TokenPath)
			_, err = auth.Authenticate(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout())
			return err
		},
	}
}
