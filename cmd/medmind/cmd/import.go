package cmd

import (
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/medmind/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/medmind/pkg/postgres"
	"github.com/spf13/cobra"
)

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Replace the PostgreSQL diseases table with a catalog file",
	Args:  cobra.ExactArgs(1),
	RunE:  runImport,
}

func runImport(cmd *cobra.Command, args []string) error {
	c, err := catalog.Load(args[0])
	if err != nil {
		return err
	}

	db, err := postgres.New(cfg.Postgres)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := catalog.Import(cmd.Context(), db, c); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "imported %d diseases into %s\n", c.Len(), cfg.Postgres.Database)
	return nil
}
