// Package visualize renders spectrograms and their peaks as PNG images.
package visualize

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"path/filepath"

	"github.com/eligwz/spectrogram"
	"gonum.org/v1/gonum/floats"

	"github.com/himanishpuri/audioprints/pkg/audioprints/fingerprint"
	"github.com/himanishpuri/audioprints/pkg/utils"
)

// DefaultMaxBins keeps the image readable for large windows; most musical
// energy sits in the lower bins.
const DefaultMaxBins = 512

// Options controls rendering. Zero values pick the defaults.
type Options struct {
	MaxBins    int    // lowest bins drawn; image height
	PeakColor  string // hex, e.g. "ff0000"
	Background string // hex
}

func (o Options) withDefaults() Options {
	if o.MaxBins <= 0 {
		o.MaxBins = DefaultMaxBins
	}
	if o.PeakColor == "" {
		o.PeakColor = "ff0000"
	}
	if o.Background == "" {
		o.Background = "000000"
	}
	return o
}

// SavePNG writes spec as a PNG at path, one pixel per (frame, bin) with low
// frequencies at the bottom. peaks are overdrawn in PeakColor.
func SavePNG(spec *fingerprint.Spectrogram, peaks []fingerprint.Peak, path string, opts Options) error {
	if spec == nil || spec.Frames() == 0 {
		return errors.New("empty spectrogram")
	}
	opts = opts.withDefaults()
	height := min(opts.MaxBins, spec.Bins())
	width := spec.Frames()

	img := spectrogram.NewImage128(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.NewUniform(spectrogram.ParseColor(opts.Background)), image.Point{}, draw.Src)

	paint(img, spec, height)

	peakColor := spectrogram.ParseColor(opts.PeakColor)
	for _, p := range peaks {
		if p.FreqBin >= height || p.TimeFrame >= width {
			continue
		}
		img.Set(p.TimeFrame, height-1-p.FreqBin, peakColor)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := utils.MakeDir(dir); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
	}
	if err := spectrogram.SavePng(img, path); err != nil {
		return fmt.Errorf("saving png: %w", err)
	}
	return nil
}

// paint maps the dB range of the drawn bins onto grey levels.
func paint(img draw.Image, spec *fingerprint.Spectrogram, height int) {
	values := make([]float64, 0, height*spec.Frames())
	for bin := range height {
		for frame := range spec.Frames() {
			values = append(values, spec.At(bin, frame))
		}
	}
	lo, hi := floats.Min(values), floats.Max(values)
	span := hi - lo
	if span == 0 {
		return
	}

	for bin := range height {
		for frame := range spec.Frames() {
			v := (spec.At(bin, frame) - lo) / span
			g := uint8(v * 255)
			img.Set(frame, height-1-bin, color.RGBA{R: g, G: g, B: g, A: 255})
		}
	}
}
