package main

import (
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fpang/card-batch-uploader/internal/report"
	"github.com/fpang/card-batch-uploader/internal/rotate"
)

var rotateCmd = &cobra.Command{
	Use:   "rotate [folders...]",
	Short: "Rewrite EXIF orientation tags without uploading",
	Args:  cobra.MinimumNArgs(1),
	Run:   runRotate,
}

func runRotate(cmd *cobra.Command, args []string) {
	failed := false
	for _, folder := range resolveFolders(args) {
		result, err := rotate.Rewrite(folder)
		if err != nil {
			log.Error().Err(err).Str("folder", folder).Msg("Rotation failed")
			failed = true
			continue
		}
		report.Rotation(os.Stdout, folder, result)
		if len(result.Errors) > 0 {
			failed = true
		}
	}
	if failed {
		os.Exit(1)
	}
}
