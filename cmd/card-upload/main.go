package main

import (
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fpang/card-batch-uploader/internal/config"
	"github.com/fpang/card-batch-uploader/internal/logging"
)

// CLI flags
var (
	configFlag  string
	envFileFlag string
)

// rootCmd is the main Cobra command for the CLI.
var rootCmd = &cobra.Command{
	Use:   "card-upload",
	Short: "Batch rotation and upload automation for scanned card images",
	Long: `Card Upload prepares folders of scanned trading card images and pushes them
to the card listing site as batches.

Image files named front_* get a 270 degree EXIF rotation and files named
back_* get 90 degrees, matching how the scanner lays cards on the glass. The
upload command then drives a Chrome session through login, batch creation,
and file upload for each folder, pausing before submission so the operator
can validate each batch in the browser.

Examples:
  card-upload rotate ./2024-05-vintage-lot
  card-upload inspect ./2024-05-vintage-lot
  card-upload upload 2024-05-vintage-lot --config config/upload.yaml
  card-upload upload /scans/lot-a /scans/lot-b --headless`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Init()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", config.DefaultPath, "Path to the YAML run configuration")
	rootCmd.PersistentFlags().StringVar(&envFileFlag, "env-file", "", "Path to the .env file holding credentials")
	rootCmd.AddCommand(uploadCmd, rotateCmd, inspectCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// resolveFolders maps folder arguments to absolute paths. The configuration
// supplies the base directory for bare names; without one, paths resolve
// against the working directory.
func resolveFolders(args []string) []string {
	cfg, err := config.Load(configFlag)

	folders := make([]string, 0, len(args))
	for _, arg := range args {
		switch {
		case err == nil:
			folders = append(folders, cfg.ResolveFolder(arg))
		case filepath.IsAbs(arg):
			folders = append(folders, arg)
		default:
			abs, aerr := filepath.Abs(arg)
			if aerr != nil {
				log.Fatal().Err(aerr).Str("folder", arg).Msg("Cannot resolve folder path")
			}
			folders = append(folders, abs)
		}
	}
	return folders
}
