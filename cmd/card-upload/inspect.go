package main

import (
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fpang/card-batch-uploader/internal/report"
	"github.com/fpang/card-batch-uploader/internal/rotate"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <folder>",
	Short: "Show image dimensions and EXIF metadata for a folder",
	Args:  cobra.ExactArgs(1),
	Run:   runInspect,
}

func runInspect(cmd *cobra.Command, args []string) {
	folder := resolveFolders(args)[0]
	infos, err := rotate.Inspect(folder)
	if err != nil {
		log.Fatal().Err(err).Str("folder", folder).Msg("Inspection failed")
	}
	if len(infos) == 0 {
		log.Warn().Str("folder", folder).Msg("No supported images found")
		return
	}
	report.Inspection(os.Stdout, infos)
}
