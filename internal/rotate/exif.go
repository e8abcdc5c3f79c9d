package rotate

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	exif "github.com/dsoprea/go-exif/v3"
	exifcommon "github.com/dsoprea/go-exif/v3/common"
	jpegstructure "github.com/dsoprea/go-jpeg-image-structure/v2"
	pngstructure "github.com/dsoprea/go-png-image-structure/v2"
)

// ErrUnsupportedContainer indicates the file format is scanned and classified
// but carries no metadata container we can rewrite (TIFF and BMP).
var ErrUnsupportedContainer = errors.New("image format has no writable metadata container")

// WriteOrientation rewrites the EXIF orientation tag of the image at path in
// place. No pixels are touched; the file's metadata segment is replaced and
// the file rewritten. Any existing orientation value is overwritten.
func WriteOrientation(path string, code uint16) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return writeJPEGOrientation(path, code)
	case ".png":
		return writePNGOrientation(path, code)
	default:
		return ErrUnsupportedContainer
	}
}

// ReadOrientation returns the current EXIF orientation tag of the image at
// path, or an error if the file carries no orientation tag.
func ReadOrientation(path string) (uint16, error) {
	rawExif, err := exif.SearchFileAndExtractExif(path)
	if err != nil {
		return 0, fmt.Errorf("no exif data: %w", err)
	}

	im, err := exifcommon.NewIfdMappingWithStandard()
	if err != nil {
		return 0, err
	}
	ti := exif.NewTagIndex()

	_, index, err := exif.Collect(im, ti, rawExif)
	if err != nil {
		return 0, fmt.Errorf("failed to parse exif data: %w", err)
	}

	results, err := index.RootIfd.FindTagWithName("Orientation")
	if err != nil || len(results) == 0 {
		return 0, errors.New("orientation tag not present")
	}

	value, err := results[0].Value()
	if err != nil {
		return 0, fmt.Errorf("failed to read orientation value: %w", err)
	}

	codes, ok := value.([]uint16)
	if !ok || len(codes) == 0 {
		return 0, fmt.Errorf("unexpected orientation value type %T", value)
	}
	return codes[0], nil
}

// newRootBuilder builds a fresh EXIF IFD builder for files that carry no
// EXIF block yet.
func newRootBuilder() (*exif.IfdBuilder, error) {
	im, err := exifcommon.NewIfdMappingWithStandard()
	if err != nil {
		return nil, err
	}
	ti := exif.NewTagIndex()
	return exif.NewIfdBuilder(im, ti, exifcommon.IfdStandardIfdIdentity, exifcommon.EncodeDefaultByteOrder), nil
}

func setOrientationTag(rootIb *exif.IfdBuilder, code uint16) error {
	ifdIb, err := exif.GetOrCreateIbFromRootIb(rootIb, "IFD0")
	if err != nil {
		return fmt.Errorf("failed to resolve IFD0: %w", err)
	}
	if err := ifdIb.SetStandardWithName("Orientation", []uint16{code}); err != nil {
		return fmt.Errorf("failed to set orientation tag: %w", err)
	}
	return nil
}

func writeJPEGOrientation(path string, code uint16) error {
	jmp := jpegstructure.NewJpegMediaParser()
	intfc, err := jmp.ParseFile(path)
	if err != nil {
		return fmt.Errorf("failed to parse jpeg: %w", err)
	}
	sl := intfc.(*jpegstructure.SegmentList)

	rootIb, err := sl.ConstructExifBuilder()
	if err != nil {
		// No EXIF block yet; start one.
		if rootIb, err = newRootBuilder(); err != nil {
			return err
		}
	}

	if err := setOrientationTag(rootIb, code); err != nil {
		return err
	}
	if err := sl.SetExif(rootIb); err != nil {
		return fmt.Errorf("failed to attach exif segment: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to rewrite file: %w", err)
	}
	defer f.Close()

	if err := sl.Write(f); err != nil {
		return fmt.Errorf("failed to write jpeg: %w", err)
	}
	return nil
}

func writePNGOrientation(path string, code uint16) error {
	pmp := pngstructure.NewPngMediaParser()
	intfc, err := pmp.ParseFile(path)
	if err != nil {
		return fmt.Errorf("failed to parse png: %w", err)
	}
	cs := intfc.(*pngstructure.ChunkSlice)

	rootIb, err := cs.ConstructExifBuilder()
	if err != nil {
		// No eXIf chunk yet; start one.
		if rootIb, err = newRootBuilder(); err != nil {
			return err
		}
	}

	if err := setOrientationTag(rootIb, code); err != nil {
		return err
	}
	if err := cs.SetExif(rootIb); err != nil {
		return fmt.Errorf("failed to attach eXIf chunk: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to rewrite file: %w", err)
	}
	defer f.Close()

	if err := cs.WriteTo(f); err != nil {
		return fmt.Errorf("failed to write png: %w", err)
	}
	return nil
}
