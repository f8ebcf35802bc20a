package commands

import (
	"github.com/spf13/cobra"

	"github.com/datainfrapilot/dip/internal/config"
	"github.com/datainfrapilot/dip/internal/store"
)

// Migrate returns the command that applies pending schema migrations
// and exits.
func Migrate() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			st, err := store.Open(cmd.Context(), cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()
			return st.Migrate()
		},
	}
}
