package main

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/MoodyStars/FreePoop/internal/config"
	"github.com/MoodyStars/FreePoop/internal/fetch"
	"github.com/MoodyStars/FreePoop/pkg/util"
)

var fetchDir string

var fetchCmd = &cobra.Command{
	Use:   "fetch [url]",
	Short: "Download a remote source to a local file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())

		if err := util.EnsureDir(fetchDir); err != nil {
			return err
		}

		fetcher := fetch.NewHTTPFetcher(log.Logger,
			time.Duration(cfg.Fetch.TimeoutSeconds)*time.Second, cfg.Fetch.UserAgent)

		local, err := fetcher.Fetch(cmd.Context(), args[0], fetchDir)
		if err != nil {
			return err
		}

		fmt.Println(local)
		return nil
	},
}

func init() {
	fetchCmd.Flags().StringVarP(&fetchDir, "dir", "d", ".", "destination directory")
}
