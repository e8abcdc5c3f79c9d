package rotate

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/evanoberholster/imagemeta"
	"github.com/rs/zerolog/log"
)

// Info describes one image's current metadata, for diagnostics. It is what
// the inspect command prints so a user can see why an image displays rotated.
type Info struct {
	Path        string
	Width       int
	Height      int
	Orientation uint16 // 0 when no orientation tag is present
	CameraMake  string
	CameraModel string
	DateTaken   time.Time
}

// Name returns the base filename.
func (i Info) Name() string {
	return filepath.Base(i.Path)
}

// OrientationLabel returns the display string for the current orientation.
func (i Info) OrientationLabel() string {
	if i.Orientation == 0 {
		return "none"
	}
	return fmt.Sprintf("%d (%s)", i.Orientation, OrientationName(i.Orientation))
}

// Inspect reads the current orientation tag, dimensions, and camera metadata
// of every supported image in folder. Per-file metadata failures are logged
// and leave the corresponding fields zero; they do not abort the scan.
func Inspect(folder string) ([]Info, error) {
	absFolder, err := filepath.Abs(folder)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve folder path: %w", err)
	}

	if info, err := os.Stat(absFolder); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrFolderNotFound, absFolder)
		}
		return nil, fmt.Errorf("failed to access folder: %w", err)
	} else if !info.IsDir() {
		return nil, fmt.Errorf("path is not a directory: %s", absFolder)
	}

	entries, err := os.ReadDir(absFolder)
	if err != nil {
		return nil, fmt.Errorf("failed to read folder: %w", err)
	}

	var infos []Info
	for _, entry := range entries {
		if entry.IsDir() || !IsSupported(filepath.Ext(entry.Name())) {
			continue
		}
		infos = append(infos, inspectFile(filepath.Join(absFolder, entry.Name())))
	}

	return infos, nil
}

func inspectFile(path string) Info {
	info := Info{Path: path}

	if f, err := os.Open(path); err == nil {
		if cfg, _, err := image.DecodeConfig(f); err == nil {
			info.Width = cfg.Width
			info.Height = cfg.Height
		}
		f.Close()
	}

	if code, err := ReadOrientation(path); err == nil {
		info.Orientation = code
	}

	// Camera metadata is informational only; many scans carry none.
	if f, err := os.Open(path); err == nil {
		if exifData, err := imagemeta.Decode(f); err == nil {
			info.CameraMake = strings.TrimSpace(exifData.Make)
			info.CameraModel = strings.TrimSpace(exifData.Model)
			info.DateTaken = exifData.DateTimeOriginal()
		} else {
			log.Debug().Err(err).Str("file", filepath.Base(path)).Msg("No readable camera metadata")
		}
		f.Close()
	}

	return info
}
