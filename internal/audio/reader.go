package audio

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

var (
	// ErrNotWAV is returned for input that is not a RIFF/WAVE container.
	ErrNotWAV = errors.New("not a WAV/RIFF file")

	// ErrUnsupportedFormat is returned for compressed or float WAV data.
	ErrUnsupportedFormat = errors.New("unsupported WAV audio format: only PCM (1) supported")
)

const wavFormatPCM = 1

// Clip is a decoded recording mixed down to mono and normalised to [-1, 1].
type Clip struct {
	Samples    []float64
	SampleRate int
	Channels   int // channel count of the source before mixdown
	BitDepth   int
}

// Duration is the playing time of the clip.
func (c *Clip) Duration() time.Duration {
	if c.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(len(c.Samples)) / float64(c.SampleRate) * float64(time.Second))
}

// ReadWav decodes an integer PCM WAV stream of any channel count and 8, 16,
// 24 or 32 bit depth. Multi-channel audio is averaged into one channel.
func ReadWav(r io.ReadSeeker) (*Clip, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		if err := dec.Err(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrNotWAV, err)
		}
		return nil, ErrNotWAV
	}
	if dec.WavAudioFormat != wavFormatPCM {
		return nil, fmt.Errorf("%w (got %d)", ErrUnsupportedFormat, dec.WavAudioFormat)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decoding PCM samples: %w", err)
	}

	samples, err := mixdown(buf, int(dec.BitDepth))
	if err != nil {
		return nil, err
	}
	return &Clip{
		Samples:    samples,
		SampleRate: int(dec.SampleRate),
		Channels:   int(dec.NumChans),
		BitDepth:   int(dec.BitDepth),
	}, nil
}

// ReadWavFile opens path and decodes it with ReadWav.
func ReadWavFile(path string) (*Clip, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	clip, err := ReadWav(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return clip, nil
}

// ReadWavAsFloat64 returns mono samples in [-1, 1] and the sample rate.
func ReadWavAsFloat64(path string) ([]float64, int, error) {
	clip, err := ReadWavFile(path)
	if err != nil {
		return nil, 0, err
	}
	return clip.Samples, clip.SampleRate, nil
}

// mixdown averages interleaved channels and scales integer samples to
// [-1, 1]. 8-bit WAV data is unsigned and is re-centred first.
func mixdown(buf *goaudio.IntBuffer, bitDepth int) ([]float64, error) {
	var offset, scale float64
	switch bitDepth {
	case 8:
		offset, scale = 128, 1.0/128.0
	case 16, 24, 32:
		scale = 1.0 / float64(int64(1)<<(bitDepth-1))
	default:
		return nil, fmt.Errorf("unsupported bits per sample: %d", bitDepth)
	}

	channels := 1
	if buf.Format != nil && buf.Format.NumChannels > 0 {
		channels = buf.Format.NumChannels
	}

	frames := len(buf.Data) / channels
	out := make([]float64, frames)
	for i := 0; i < frames; i++ {
		var sum float64
		for ch := 0; ch < channels; ch++ {
			sum += (float64(buf.Data[i*channels+ch]) - offset) * scale
		}
		out[i] = sum / float64(channels)
	}
	return out, nil
}
