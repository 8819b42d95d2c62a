package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newCreateDBCmd creates the tables of every registered record type.
func newCreateDBCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "createdb",
		Short: "Creates the database tables",
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			if err := appInstance.EnsureSchema(cmd.Context()); err != nil {
				return fmt.Errorf("create tables: %w", err)
			}
			appInstance.Logger().Info("database ready")
			return nil
		},
	}
}
