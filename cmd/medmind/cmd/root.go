package cmd

import (
	"os"

	"github.com/Adithya-Monish-Kumar-K/medmind/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/medmind/pkg/logger"
	"github.com/spf13/cobra"
)

var (
	configPath  string
	catalogPath string
	cfg         *config.Config
)

var rootCmd = &cobra.Command{
	Use:           "medmind",
	Short:         "MedMind symptom checker and health guide",
	Long:          "Rank likely diseases from a comma-separated symptom list, browse the disease catalog, or ask the AI assistant for advice.",
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if catalogPath != "" {
			loaded.Catalog.Source = config.CatalogSourceFile
			loaded.Catalog.Path = catalogPath
		}
		cfg = loaded
		// stdout belongs to rendered output; logs go to stderr
		logger.SetupWriter(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)
		return nil
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config file")
	rootCmd.PersistentFlags().StringVar(&catalogPath, "catalog", "", "disease catalog file (.csv or .yaml), overrides config")

	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(browseCmd)
	rootCmd.AddCommand(adviseCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(importCmd)
}
