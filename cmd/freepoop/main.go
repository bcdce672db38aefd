package main

import (
	"context"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/MoodyStars/FreePoop/internal/config"
	"github.com/MoodyStars/FreePoop/internal/logging"
)

var (
	cfgFile string
	verbose bool
)

func main() {
	// A local .env may carry FREEPOOP_* overrides for the config layer.
	_ = godotenv.Load()

	ctx := context.Background()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "freepoop",
	Short: "FreePoop - chaotic remix video generator",
	Long:  "Shreds the sources you feed it - clips, images, GIFs, songs, links - through a seeded effect chain and assembles one gloriously broken video.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Initialize logging
		logging.Init(verbose)

		// Load config
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}

		// Store config in context
		ctx := config.WithConfig(cmd.Context(), cfg)
		cmd.SetContext(ctx)

		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./freepoop.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(probeCmd)
	rootCmd.AddCommand(effectsCmd)
	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(watchCmd)
}
