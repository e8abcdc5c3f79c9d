package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fpang/card-batch-uploader/internal/auth"
	"github.com/fpang/card-batch-uploader/internal/browser"
	"github.com/fpang/card-batch-uploader/internal/config"
	"github.com/fpang/card-batch-uploader/internal/report"
	"github.com/fpang/card-batch-uploader/internal/workflow"
)

var headlessFlag bool

var uploadCmd = &cobra.Command{
	Use:   "upload [folders...]",
	Short: "Rotate folders of card images and upload each as a batch",
	Args:  cobra.MinimumNArgs(1),
	Run:   runUpload,
}

func init() {
	uploadCmd.Flags().BoolVar(&headlessFlag, "headless", false, "Run the browser without a visible window")
}

func runUpload(cmd *cobra.Command, args []string) {
	cfg, err := config.Load(configFlag)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	creds, err := auth.Load(envFileFlag)
	if err != nil {
		log.Fatal().Err(err).Msg("Credentials not available")
	}

	folders := make([]string, 0, len(args))
	for _, arg := range args {
		folders = append(folders, cfg.ResolveFolder(arg))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	drv, err := browser.New(ctx, browser.Options{Headless: headlessFlag, Timeout: cfg.Timeout()})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to start browser")
	}
	defer drv.Close()

	runner := workflow.New(drv, cfg, creds)
	summaries, err := runner.RunAll(ctx, folders)
	if err != nil {
		drv.Close()
		log.Fatal().Err(err).Msg("Upload run aborted")
	}

	report.Upload(os.Stdout, summaries)

	for _, s := range summaries {
		if s.Status != workflow.Done {
			drv.Close()
			os.Exit(1)
		}
	}
}
