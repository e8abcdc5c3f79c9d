// Package rotate rewrites EXIF orientation tags on card images based on
// filename patterns.
//
// Card scanners produce front and back shots rotated a quarter turn in
// opposite directions. Rather than resampling pixels, the rewriter stamps
// the orientation tag so viewers (and the upload target) display the image
// correctly:
//
//	filename contains "front" → orientation 8 (rotate 270° CW)
//	filename contains "back"  → orientation 6 (rotate 90° CW)
//	neither                   → left untouched, still uploaded
//
// Matching is case-insensitive and "front" is checked before "back", so a
// filename carrying both substrings classifies as front. Any pre-existing
// orientation tag is ignored and overwritten.
package rotate

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// EXIF orientation codes (tag 0x0112).
const (
	OrientationNormal      uint16 = 1
	OrientationRotate180   uint16 = 3
	OrientationRotate90CW  uint16 = 6
	OrientationRotate270CW uint16 = 8
)

var orientationNames = map[uint16]string{
	1: "Normal",
	2: "Mirrored",
	3: "Rotated 180°",
	4: "Mirrored and rotated 180°",
	5: "Mirrored and rotated 90° CCW",
	6: "Rotated 90° CW",
	7: "Mirrored and rotated 90° CW",
	8: "Rotated 270° CW",
}

// OrientationName returns the human-readable meaning of an orientation code.
func OrientationName(code uint16) string {
	if name, ok := orientationNames[code]; ok {
		return name
	}
	return fmt.Sprintf("Unknown (%d)", code)
}

// supportedExtensions is the set of formats the rewriter scans. This is
// deliberately narrower than what the upload target accepts.
var supportedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".tiff": true,
	".tif":  true,
	".bmp":  true,
}

// IsSupported returns true if the file extension is scanned by the rewriter.
func IsSupported(ext string) bool {
	return supportedExtensions[strings.ToLower(ext)]
}

// Category classifies an image by its filename.
type Category string

const (
	CategoryFront        Category = "front"
	CategoryBack         Category = "back"
	CategoryUnclassified Category = "unclassified"
)

// Classify determines an image's category and target orientation from its
// filename. Unclassified files get orientation 0 (no tag write).
func Classify(filename string) (Category, uint16) {
	lower := strings.ToLower(filepath.Base(filename))
	if strings.Contains(lower, "front") {
		return CategoryFront, OrientationRotate270CW
	}
	if strings.Contains(lower, "back") {
		return CategoryBack, OrientationRotate90CW
	}
	return CategoryUnclassified, 0
}

// ImageFile is one discovered file in a target folder.
type ImageFile struct {
	Path        string
	Category    Category
	Orientation uint16
}

// FileError records a per-file failure. Per-file failures never abort the
// scan; they are collected and reported in the Result.
type FileError struct {
	Path string
	Err  error
}

func (e FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

// Result aggregates one folder's rewrite run.
type Result struct {
	Files   []ImageFile // every discovered file, in filename order
	Front   int
	Back    int
	Skipped int
	Errors  []FileError
	Elapsed time.Duration
}

// Discovered returns the number of supported files found in the folder.
func (r *Result) Discovered() int {
	return len(r.Files)
}

// UploadPaths returns absolute paths of the files ready for upload:
// everything discovered, including unclassified files, minus files whose
// tag write failed.
func (r *Result) UploadPaths() []string {
	failed := make(map[string]bool, len(r.Errors))
	for _, fe := range r.Errors {
		failed[fe.Path] = true
	}

	paths := make([]string, 0, len(r.Files))
	for _, f := range r.Files {
		if !failed[f.Path] {
			paths = append(paths, f.Path)
		}
	}
	return paths
}

// ErrFolderNotFound indicates the target folder does not exist. It is
// returned before any per-file processing begins.
var ErrFolderNotFound = errors.New("folder not found")

// Rewrite scans folder and rewrites the orientation tag of every front- and
// back-classified image in place. Unclassified files are untouched.
// Per-file failures are recorded in the result and do not abort the scan.
func Rewrite(folder string) (*Result, error) {
	start := time.Now()

	absFolder, err := filepath.Abs(folder)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve folder path: %w", err)
	}

	info, err := os.Stat(absFolder)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrFolderNotFound, absFolder)
		}
		return nil, fmt.Errorf("failed to access folder: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("path is not a directory: %s", absFolder)
	}

	entries, err := os.ReadDir(absFolder)
	if err != nil {
		return nil, fmt.Errorf("failed to read folder: %w", err)
	}

	result := &Result{}

	for _, entry := range entries {
		if entry.IsDir() || !IsSupported(filepath.Ext(entry.Name())) {
			continue
		}

		path := filepath.Join(absFolder, entry.Name())
		category, orientation := Classify(entry.Name())
		result.Files = append(result.Files, ImageFile{
			Path:        path,
			Category:    category,
			Orientation: orientation,
		})

		if category == CategoryUnclassified {
			result.Skipped++
			log.Debug().Str("file", entry.Name()).Msg("No front/back pattern, skipping")
			continue
		}

		if err := WriteOrientation(path, orientation); err != nil {
			result.Errors = append(result.Errors, FileError{Path: path, Err: err})
			log.Warn().Err(err).Str("file", entry.Name()).Msg("Failed to write orientation tag")
			continue
		}

		switch category {
		case CategoryFront:
			result.Front++
		case CategoryBack:
			result.Back++
		}

		log.Info().
			Str("file", entry.Name()).
			Str("category", string(category)).
			Uint16("orientation", orientation).
			Msg("Orientation tag written")
	}

	sort.Slice(result.Files, func(i, j int) bool {
		return result.Files[i].Path < result.Files[j].Path
	})

	result.Elapsed = time.Since(start)

	log.Info().
		Str("folder", absFolder).
		Int("discovered", result.Discovered()).
		Int("front", result.Front).
		Int("back", result.Back).
		Int("skipped", result.Skipped).
		Int("errors", len(result.Errors)).
		Dur("elapsed", result.Elapsed).
		Msg("Rotation pass complete")

	return result, nil
}
