package render

import (
	"bytes"
	"context"
	"fmt"
	"hash/fnv"
	"image"
	"image/color"
	"log/slog"
	"strconv"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	"github.com/mwarren09/melodeck/internal/modules/player/domain"
)

// Placeholder text for missing track fields. A card never renders a blank
// or an error marker.
const (
	placeholderArtist   = "Unknown Artist"
	placeholderTitle    = "Unknown Title"
	placeholderAlbum    = "Unknown Album"
	placeholderStudio   = "Unknown Studio"
	placeholderPosition = "0:00"
)

// CardInput is everything the pipeline needs to draw one card. It is a
// pure value: two equal inputs produce byte-identical cards.
type CardInput struct {
	Identity   string // stable track identity for fingerprinting
	Title      string
	Artist     string
	Album      string
	Studio     string
	Duration   string
	Progress   string
	ArtworkURL string
	Volume     int
}

// NewCardInput projects a session view onto a CardInput. The progress
// field has no live position source and always displays its placeholder.
func NewCardInput(view domain.SessionView) CardInput {
	in := CardInput{
		Progress: placeholderPosition,
		Volume:   view.Volume,
	}
	if track := view.Current; track != nil {
		in.Identity = track.Identity()
		in.Title = track.Title
		in.Artist = track.Artist
		in.Album = track.Album
		in.Studio = track.Studio
		in.Duration = track.FormattedDuration()
		in.ArtworkURL = track.ArtworkURL
	}
	return in
}

// Fingerprint keys the card for the debounce cache: track identity,
// displayed volume and the displayed position bucket. Anything that does
// not change these produces the same card and can be served from cache.
func (in CardInput) Fingerprint() uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(in.Identity))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(strconv.Itoa(in.Volume)))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(in.Progress))
	return h.Sum64()
}

// Text layout: label column, value column, six rows at a fixed vertical
// increment.
const (
	labelX    = 48.0
	valueX    = 250.0
	firstRowY = 72.0
	rowStep   = 56.0
	valuePad  = 32.0
)

// Pipeline composites artwork and track fields into the fixed-size card.
// It is a pure function of its input plus the immutable asset set; the
// only side effect is the delegated artwork fetch.
type Pipeline struct {
	assets  *Assets
	fetcher ArtworkFetcher
}

// NewPipeline creates a Pipeline.
func NewPipeline(assets *Assets, fetcher ArtworkFetcher) *Pipeline {
	return &Pipeline{assets: assets, fetcher: fetcher}
}

// Render produces the PNG card for the input. Artwork fetch and decode
// failures degrade to placeholder art; any other failure is returned to
// the caller, which must degrade to a text-only status.
func (p *Pipeline) Render(ctx context.Context, in CardInput) ([]byte, error) {
	art := p.artwork(ctx, in.ArtworkURL)

	// Center-crop to 2:1 and resize to the exact canvas size.
	fitted := imaging.Fill(art, CanvasWidth, CanvasHeight, imaging.Center, imaging.Lanczos)

	dc := gg.NewContext(CanvasWidth, CanvasHeight)

	// Clip to the rounded rectangle up front so every subsequent draw,
	// artwork and overlay alike, leaves the corners fully transparent.
	dc.DrawRoundedRectangle(0, 0, CanvasWidth, CanvasHeight, CornerRadius)
	dc.Clip()

	dc.DrawImage(fitted, 0, 0)

	// Legibility overlay across the whole canvas.
	dc.SetRGBA255(0, 0, 0, OverlayAlpha)
	dc.DrawRectangle(0, 0, CanvasWidth, CanvasHeight)
	dc.Fill()

	p.drawFields(dc, in)

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("failed to encode card: %w", err)
	}
	return buf.Bytes(), nil
}

func (p *Pipeline) drawFields(dc *gg.Context, in CardInput) {
	rows := []struct {
		label string
		value string
	}{
		{"ARTIST", fallback(in.Artist, placeholderArtist)},
		{"TITLE", fallback(in.Title, placeholderTitle)},
		{"ALBUM", fallback(in.Album, placeholderAlbum)},
		{"STUDIO", fallback(in.Studio, placeholderStudio)},
		{"PROGRESS", fallback(in.Progress, placeholderPosition)},
		{"DURATION", fallback(in.Duration, placeholderPosition)},
	}

	y := firstRowY
	for _, row := range rows {
		dc.SetFontFace(p.assets.label)
		dc.SetRGB255(190, 190, 190)
		dc.DrawString(row.label, labelX, y)

		dc.SetFontFace(p.assets.value)
		dc.SetRGB255(255, 255, 255)
		dc.DrawString(truncate(dc, row.value, CanvasWidth-valueX-valuePad), valueX, y)

		y += rowStep
	}

	// Volume readout in the top-right corner.
	dc.SetFontFace(p.assets.label)
	dc.SetRGB255(190, 190, 190)
	vol := "VOL " + strconv.Itoa(in.Volume)
	w, _ := dc.MeasureString(vol)
	dc.DrawString(vol, CanvasWidth-valuePad-w, firstRowY-rowStep/2)
}

// artwork fetches and decodes the track art, falling back to a flat
// placeholder canvas when the URL is empty or the fetch/decode fails.
func (p *Pipeline) artwork(ctx context.Context, url string) image.Image {
	if url == "" {
		return placeholderArt()
	}

	data, err := p.fetcher.Fetch(ctx, url)
	if err != nil {
		slog.Warn("artwork fetch failed, using placeholder", "url", url, "error", err)
		return placeholderArt()
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		slog.Warn("artwork decode failed, using placeholder", "url", url, "error", err)
		return placeholderArt()
	}
	return img
}

func placeholderArt() image.Image {
	return imaging.New(CanvasWidth, CanvasHeight, color.NRGBA{R: 0x2B, G: 0x2D, B: 0x31, A: 0xFF})
}

func fallback(s, placeholder string) string {
	if s == "" {
		return placeholder
	}
	return s
}

// truncate shortens s with an ellipsis so it fits within maxWidth using
// the context's current font face.
func truncate(dc *gg.Context, s string, maxWidth float64) string {
	if w, _ := dc.MeasureString(s); w <= maxWidth {
		return s
	}
	runes := []rune(s)
	for len(runes) > 1 {
		runes = runes[:len(runes)-1]
		candidate := string(runes) + "..."
		if w, _ := dc.MeasureString(candidate); w <= maxWidth {
			return candidate
		}
	}
	return string(runes)
}
