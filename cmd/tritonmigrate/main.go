package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/electricfoxes1989/the-triton-sub000/internal/app"
	"github.com/electricfoxes1989/the-triton-sub000/internal/config"
	"github.com/electricfoxes1989/the-triton-sub000/internal/logging"
	"github.com/electricfoxes1989/the-triton-sub000/internal/usecase"
)

func main() {
	var (
		configPath string
		modeFlag   string
	)

	rootCmd := &cobra.Command{
		Use:   "tritonmigrate",
		Short: "migrate legacy blog content into the content store",
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run the migration until the source is drained",
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := usecase.ParseMode(modeFlag)
			if err != nil {
				return err
			}

			cfg := config.Load(configPath)
			logger := logging.New(cfg.Logging.Level)

			application, err := app.New(cfg, mode, logger)
			if err != nil {
				return err
			}
			return application.Run(context.Background())
		},
	}

	runCmd.Flags().StringVar(&configPath, "config", "", "path to config.yaml")
	runCmd.Flags().StringVar(&modeFlag, "mode", string(usecase.ModeImport),
		"import: skip posts already in the destination; update: re-transform and patch them")
	rootCmd.AddCommand(runCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
