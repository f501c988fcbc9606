package fingerprint

import (
	"errors"
	"math"
	"testing"
)

// sineWave returns seconds of a pure tone at freq Hz.
func sineWave(freq, amplitude float64, sampleRate int, seconds float64) []float64 {
	n := int(seconds * float64(sampleRate))
	out := make([]float64, n)
	for i := range out {
		out[i] = amplitude * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate))
	}
	return out
}

// noise returns a deterministic pseudo-random signal in [-1, 1].
func noise(n int, seed uint32) []float64 {
	out := make([]float64, n)
	state := seed
	for i := range out {
		state = state*1664525 + 1013904223
		out[i] = float64(state)/float64(math.MaxUint32)*2 - 1
	}
	return out
}

func TestBuildSpectrogramDimensions(t *testing.T) {
	samples := noise(11025, 7)

	tests := []struct {
		window  int
		overlap float64
	}{
		{128, 0.5},
		{255, 0.5},
		{256, 0.0},
		{1024, 0.75},
		{4096, 0.5},
		{11025, 0.5},
	}

	for _, tt := range tests {
		spec, err := BuildSpectrogram(samples, 11025, tt.window, tt.overlap)
		if err != nil {
			t.Fatalf("window=%d overlap=%.2f: unexpected error: %v", tt.window, tt.overlap, err)
		}

		expectedBins := tt.window/2 + 1
		if spec.Bins() != expectedBins {
			t.Errorf("window=%d: expected %d bins, got %d", tt.window, expectedBins, spec.Bins())
		}

		hop := int(math.Floor(float64(tt.window) * (1 - tt.overlap)))
		expectedFrames := (len(samples)-tt.window)/hop + 1
		if spec.Frames() != expectedFrames {
			t.Errorf("window=%d overlap=%.2f: expected %d frames, got %d", tt.window, tt.overlap, expectedFrames, spec.Frames())
		}
		if spec.Stride != hop {
			t.Errorf("window=%d overlap=%.2f: expected stride %d, got %d", tt.window, tt.overlap, hop, spec.Stride)
		}
	}
}

func TestBuildSpectrogramDropsPartialFrame(t *testing.T) {
	// 1000 samples, window 256, hop 128: frames start at 0..640, the window
	// starting at 768 would run past the end.
	spec, err := BuildSpectrogram(noise(1000, 3), 8000, 256, 0.5)
	if err != nil {
		t.Fatalf("BuildSpectrogram failed: %v", err)
	}
	if spec.Frames() != 6 {
		t.Errorf("Expected 6 frames, got %d", spec.Frames())
	}
}

func TestBuildSpectrogramInvalidConfig(t *testing.T) {
	samples := noise(1024, 1)

	tests := []struct {
		name       string
		sampleRate int
		window     int
		overlap    float64
		field      string
	}{
		{"zero sample rate", 0, 256, 0.5, "sample_rate"},
		{"negative sample rate", -44100, 256, 0.5, "sample_rate"},
		{"zero window", 44100, 0, 0.5, "window_size"},
		{"window longer than input", 44100, 2048, 0.5, "window_size"},
		{"negative overlap", 44100, 256, -0.1, "overlap_ratio"},
		{"overlap of one", 44100, 256, 1.0, "overlap_ratio"},
		{"NaN overlap", 44100, 256, math.NaN(), "overlap_ratio"},
		{"stride rounds to zero", 44100, 4, 0.9, "overlap_ratio"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec, err := BuildSpectrogram(samples, tt.sampleRate, tt.window, tt.overlap)
			if err == nil {
				t.Fatal("Expected configuration error")
			}
			if spec != nil {
				t.Error("Expected no spectrogram on error")
			}
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Expected ErrInvalidConfig, got %v", err)
			}
			var cfgErr *ConfigurationError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("Expected *ConfigurationError, got %T", err)
			}
			if cfgErr.Field != tt.field {
				t.Errorf("Expected field %q, got %q", tt.field, cfgErr.Field)
			}
		})
	}
}

func TestBuildSpectrogramSilence(t *testing.T) {
	samples := make([]float64, 2*44100)

	spec, err := BuildSpectrogram(samples, 44100, 4096, 0.5)
	if err != nil {
		t.Fatalf("BuildSpectrogram failed: %v", err)
	}

	for f := 0; f < spec.Bins(); f++ {
		for fr := 0; fr < spec.Frames(); fr++ {
			if v := spec.At(f, fr); v != 0 {
				t.Fatalf("Expected 0.0 for silent cell (%d,%d), got %f", f, fr, v)
			}
		}
	}
}

func TestBuildSpectrogramIsFinite(t *testing.T) {
	// noise followed by digital silence
	samples := append(noise(8192, 11), make([]float64, 8192)...)

	spec, err := BuildSpectrogram(samples, 22050, 1024, 0.5)
	if err != nil {
		t.Fatalf("BuildSpectrogram failed: %v", err)
	}

	for _, v := range spec.raw() {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatalf("Found non-finite value %f", v)
		}
	}
}

func TestSineToneEnergyBin(t *testing.T) {
	samples := sineWave(440, 1.0, 44100, 2)

	spec, err := BuildSpectrogram(samples, 44100, DefaultWindowSize, DefaultOverlapRatio)
	if err != nil {
		t.Fatalf("BuildSpectrogram failed: %v", err)
	}

	expectedBin := int(math.Round(440 / (44100.0 / 4096.0)))
	if expectedBin != 41 {
		t.Fatalf("Test assumption broken: expected bin 41, computed %d", expectedBin)
	}

	for fr := 0; fr < spec.Frames(); fr++ {
		best := 0
		for f := 1; f < spec.Bins(); f++ {
			if spec.At(f, fr) > spec.At(best, fr) {
				best = f
			}
		}
		if best != expectedBin {
			t.Errorf("Frame %d: expected energy peak at bin %d, got %d", fr, expectedBin, best)
		}
	}

	if got := spec.BinFrequency(expectedBin); math.Abs(got-441.43) > 0.01 {
		t.Errorf("Expected bin %d at ~441.43 Hz, got %f", expectedBin, got)
	}
	if got := spec.FrameTime(2); math.Abs(got-4096.0/44100.0) > 1e-12 {
		t.Errorf("Expected frame 2 to start at %f s, got %f", 4096.0/44100.0, got)
	}
}

func TestPowerToDB(t *testing.T) {
	tests := []struct {
		power    float64
		expected float64
	}{
		{0, 0},
		{1, 0},
		{10, 10},
		{100, 20},
		{math.NaN(), 0},
		{math.Inf(1), 0},
	}

	for _, tt := range tests {
		if got := powerToDB(tt.power); math.Abs(got-tt.expected) > 1e-9 {
			t.Errorf("powerToDB(%v) = %f, expected %f", tt.power, got, tt.expected)
		}
	}
}
