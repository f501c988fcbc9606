package audio

import (
	"fmt"
	"io"
	"math"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WriteWav encodes mono samples in [-1, 1] as 16-bit PCM. Values outside the
// range are clipped.
func WriteWav(w io.WriteSeeker, samples []float64, sampleRate int) error {
	data := make([]int, len(samples))
	for i, s := range samples {
		v := math.Round(s * 32767)
		data[i] = int(math.Max(-32768, math.Min(32767, v)))
	}

	enc := wav.NewEncoder(w, sampleRate, 16, 1, wavFormatPCM)
	buf := &goaudio.IntBuffer{
		Data:           data,
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: sampleRate},
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("encoding samples: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("finalising wav: %w", err)
	}
	return nil
}

// WriteWavFile writes samples to path, replacing any existing file.
func WriteWavFile(path string, samples []float64, sampleRate int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteWav(f, samples, sampleRate); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
