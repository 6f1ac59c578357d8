package render

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/mwarren09/melodeck/internal/modules/player/domain"
	"golang.org/x/image/font/basicfont"
)

func testAssets() *Assets {
	return NewAssets(basicfont.Face7x13, basicfont.Face7x13)
}

type stubFetcher struct {
	data []byte
	err  error

	calls int
}

func (f *stubFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.data, nil
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode fixture: %v", err)
	}
	return buf.Bytes()
}

func testInput() CardInput {
	return CardInput{
		Identity: "plex|1|http://plex/stream/1",
		Title:    "Test Title",
		Artist:   "Test Artist",
		Album:    "Test Album",
		Studio:   "Test Studio",
		Duration: "3:00",
		Progress: "0:00",
		Volume:   100,
	}
}

func decodeCard(t *testing.T, data []byte) image.Image {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("rendered card is not valid PNG: %v", err)
	}
	return img
}

func TestPipeline_RenderProducesCanvasSizedPNG(t *testing.T) {
	p := NewPipeline(testAssets(), &stubFetcher{})

	card, err := p.Render(context.Background(), testInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	img := decodeCard(t, card)
	bounds := img.Bounds()
	if bounds.Dx() != CanvasWidth || bounds.Dy() != CanvasHeight {
		t.Errorf("expected %dx%d, got %dx%d",
			CanvasWidth, CanvasHeight, bounds.Dx(), bounds.Dy())
	}
}

func TestPipeline_RenderCornersAreTransparent(t *testing.T) {
	p := NewPipeline(testAssets(), &stubFetcher{})

	card, err := p.Render(context.Background(), testInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	img := decodeCard(t, card)

	corners := []image.Point{
		{0, 0},
		{CanvasWidth - 1, 0},
		{0, CanvasHeight - 1},
		{CanvasWidth - 1, CanvasHeight - 1},
	}
	for _, pt := range corners {
		if _, _, _, a := img.At(pt.X, pt.Y).RGBA(); a != 0 {
			t.Errorf("expected transparent corner at %v, alpha %d", pt, a)
		}
	}

	// The center is inside the rounded rectangle and must be opaque.
	if _, _, _, a := img.At(CanvasWidth/2, CanvasHeight/2).RGBA(); a == 0 {
		t.Error("expected opaque center pixel")
	}
}

func TestPipeline_RenderUsesFetchedArtwork(t *testing.T) {
	// A solid red source image; the overlay darkens it but red stays the
	// dominant channel.
	art := imaging.New(400, 200, color.NRGBA{R: 0xFF, A: 0xFF})
	fetcher := &stubFetcher{data: encodePNG(t, art)}
	p := NewPipeline(testAssets(), fetcher)

	in := testInput()
	in.ArtworkURL = "http://plex/art/1"

	card, err := p.Render(context.Background(), in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fetcher.calls != 1 {
		t.Errorf("expected one fetch, got %d", fetcher.calls)
	}

	img := decodeCard(t, card)
	r, g, b, _ := img.At(CanvasWidth/2, CanvasHeight-20).RGBA()
	if r <= g || r <= b {
		t.Errorf("expected red-dominant pixel from artwork, got r=%d g=%d b=%d", r, g, b)
	}
}

func TestPipeline_FetchFailureDegradesToPlaceholder(t *testing.T) {
	fetcher := &stubFetcher{err: errors.New("boom")}
	p := NewPipeline(testAssets(), fetcher)

	in := testInput()
	in.ArtworkURL = "http://plex/art/1"

	card, err := p.Render(context.Background(), in)
	if err != nil {
		t.Fatalf("expected degraded render, got error: %v", err)
	}
	img := decodeCard(t, card)
	if img.Bounds().Dx() != CanvasWidth {
		t.Error("expected full-size placeholder card")
	}
}

func TestPipeline_DecodeFailureDegradesToPlaceholder(t *testing.T) {
	fetcher := &stubFetcher{data: []byte("not an image")}
	p := NewPipeline(testAssets(), fetcher)

	in := testInput()
	in.ArtworkURL = "http://plex/art/1"

	if _, err := p.Render(context.Background(), in); err != nil {
		t.Fatalf("expected degraded render, got error: %v", err)
	}
}

func TestNewCardInput_PlaceholdersForMissingFields(t *testing.T) {
	view := domain.SessionView{
		Volume: 80,
		Current: &domain.Track{
			Key:       "1",
			Title:     "Only Title",
			StreamRef: "http://plex/stream/1",
			Source:    domain.SourcePlex,
			Duration:  2 * time.Minute,
		},
	}

	in := NewCardInput(view)
	if in.Title != "Only Title" {
		t.Errorf("expected title carried over, got %q", in.Title)
	}
	if in.Progress != "0:00" {
		t.Errorf("expected progress placeholder, got %q", in.Progress)
	}
	if in.Duration != "2:00" {
		t.Errorf("expected formatted duration, got %q", in.Duration)
	}
	if in.Volume != 80 {
		t.Errorf("expected volume 80, got %d", in.Volume)
	}
}

func TestCardInput_FingerprintStability(t *testing.T) {
	a := testInput()
	b := testInput()

	if a.Fingerprint() != b.Fingerprint() {
		t.Error("expected equal inputs to share a fingerprint")
	}

	b.Volume = 50
	if a.Fingerprint() == b.Fingerprint() {
		t.Error("expected volume change to change the fingerprint")
	}

	c := testInput()
	c.Identity = "plex|2|http://plex/stream/2"
	if a.Fingerprint() == c.Fingerprint() {
		t.Error("expected identity change to change the fingerprint")
	}

	// Metadata that is not part of the displayed key does not perturb it.
	d := testInput()
	d.Artist = "Someone Else"
	if a.Fingerprint() != d.Fingerprint() {
		t.Error("expected artist change to not affect the fingerprint")
	}
}
