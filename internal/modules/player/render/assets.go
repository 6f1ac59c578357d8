package render

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
)

// Canvas constants. The card geometry is fixed: every card is an 800x400
// rounded-rectangle raster regardless of the source artwork.
const (
	CanvasWidth  = 800
	CanvasHeight = 400
	CornerRadius = 40.0

	// OverlayAlpha darkens the artwork so text stays legible on bright
	// album covers.
	OverlayAlpha = 150

	labelFontSize = 22
	valueFontSize = 30
)

// ErrAssetMissing is returned when a required font file is absent or
// unparsable. This is startup-fatal: the process must not come up able to
// dispatch but unable to render.
var ErrAssetMissing = errors.New("required render asset missing")

// Assets holds the process-wide immutable rendering assets. Constructed
// once at startup and shared read-only by every render worker; font faces
// are never reloaded per render.
type Assets struct {
	label font.Face
	value font.Face
}

// NewAssets builds an asset set from already-constructed font faces.
// Used by tests to inject fixed faces without touching the filesystem.
func NewAssets(label, value font.Face) *Assets {
	return &Assets{label: label, value: value}
}

// LoadAssets parses the label and value fonts from disk. Any failure
// wraps ErrAssetMissing.
func LoadAssets(labelFontPath, valueFontPath string) (*Assets, error) {
	label, err := loadFace(labelFontPath, labelFontSize)
	if err != nil {
		return nil, err
	}
	value, err := loadFace(valueFontPath, valueFontSize)
	if err != nil {
		return nil, err
	}
	return &Assets{label: label, value: value}, nil
}

func loadFace(path string, size float64) (font.Face, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrAssetMissing, path, err)
	}

	parsed, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrAssetMissing, path, err)
	}

	face, err := opentype.NewFace(parsed, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrAssetMissing, path, err)
	}

	return face, nil
}
