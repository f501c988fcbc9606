package fingerprint

import (
	"math"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"
	"gonum.org/v1/gonum/mat"
)

// Spectrogram is a log-power (dB) time-frequency matrix. Rows are frequency
// bins, columns are time frames. Every entry is finite; cells with zero power
// hold 0.0, which the peak detector treats as background.
type Spectrogram struct {
	data       *mat.Dense
	SampleRate int
	WindowSize int
	Stride     int
}

// Bins returns the number of frequency bins (WindowSize/2 + 1).
func (s *Spectrogram) Bins() int {
	r, _ := s.data.Dims()
	return r
}

// Frames returns the number of time frames.
func (s *Spectrogram) Frames() int {
	_, c := s.data.Dims()
	return c
}

// At returns the dB value of a cell.
func (s *Spectrogram) At(bin, frame int) float64 {
	return s.data.At(bin, frame)
}

// Matrix exposes the underlying values for read-only consumers.
func (s *Spectrogram) Matrix() mat.Matrix {
	return s.data
}

// BinFrequency converts a bin index to Hz.
func (s *Spectrogram) BinFrequency(bin int) float64 {
	return float64(bin) * float64(s.SampleRate) / float64(s.WindowSize)
}

// FrameTime converts a frame index to the time (seconds) of the frame start.
func (s *Spectrogram) FrameTime(frame int) float64 {
	return float64(frame*s.Stride) / float64(s.SampleRate)
}

// raw returns the row-major backing slice (bin*frames + frame).
func (s *Spectrogram) raw() []float64 {
	return s.data.RawMatrix().Data
}

// stride is the hop between consecutive frames:
// floor(windowSize * (1 - overlapRatio)).
func stride(windowSize int, overlapRatio float64) int {
	return int(math.Floor(float64(windowSize) * (1 - overlapRatio)))
}

func validateOverlap(windowSize int, overlapRatio float64) error {
	if math.IsNaN(overlapRatio) || overlapRatio < 0 || overlapRatio >= 1 {
		return configError("overlap_ratio", overlapRatio, "must be in [0, 1)")
	}
	if stride(windowSize, overlapRatio) < 1 {
		return configError("overlap_ratio", overlapRatio, "leaves a stride shorter than one sample")
	}
	return nil
}

// frameCount is the number of full windows that fit. A trailing partial
// window is dropped, never zero-padded.
func frameCount(numSamples, windowSize, hop int) int {
	return (numSamples-windowSize)/hop + 1
}

// powerToDB maps a power value to decibels. log10(0) and any other
// non-finite result become 0.0.
func powerToDB(p float64) float64 {
	db := 10 * math.Log10(p)
	if math.IsInf(db, 0) || math.IsNaN(db) {
		return 0
	}
	return db
}

// BuildSpectrogram runs a Hann-windowed STFT over samples and returns the
// power of each bin in dB.
func BuildSpectrogram(samples []float64, sampleRate, windowSize int, overlapRatio float64) (*Spectrogram, error) {
	if sampleRate <= 0 {
		return nil, configError("sample_rate", sampleRate, "must be positive")
	}
	if windowSize <= 0 {
		return nil, configError("window_size", windowSize, "must be positive")
	}
	if windowSize > len(samples) {
		return nil, configError("window_size", windowSize, "exceeds sample count")
	}
	if err := validateOverlap(windowSize, overlapRatio); err != nil {
		return nil, err
	}

	hop := stride(windowSize, overlapRatio)
	nFrames := frameCount(len(samples), windowSize, hop)
	nBins := windowSize/2 + 1
	win := window.Hann(windowSize)

	data := make([]float64, nBins*nFrames)
	frame := make([]float64, windowSize)
	for t := 0; t < nFrames; t++ {
		start := t * hop
		for i := 0; i < windowSize; i++ {
			frame[i] = samples[start+i] * win[i]
		}
		spectrum := fft.FFTReal(frame)
		for k := 0; k < nBins; k++ {
			re, im := real(spectrum[k]), imag(spectrum[k])
			data[k*nFrames+t] = powerToDB(re*re + im*im)
		}
	}

	return &Spectrogram{
		data:       mat.NewDense(nBins, nFrames, data),
		SampleRate: sampleRate,
		WindowSize: windowSize,
		Stride:     hop,
	}, nil
}
