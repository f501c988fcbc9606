package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/himanishpuri/audioprints/internal/audio"
	"github.com/himanishpuri/audioprints/internal/config"
	"github.com/himanishpuri/audioprints/internal/visualize"
	"github.com/himanishpuri/audioprints/pkg/audioprints/fingerprint"
)

// readClip decodes a WAV file and returns the extraction settings for its
// sample rate.
func readClip(cfg config.Config, path string) (*audio.Clip, fingerprint.Config) {
	clip, err := audio.ReadWavFile(path)
	if err != nil {
		fail("Failed to read WAV file", err)
	}
	ex := cfg.Extraction
	ex.SampleRate = clip.SampleRate
	return clip, ex
}

func handleView(cfg config.Config, args []string) {
	viewCmd := flag.NewFlagSet("view", flag.ExitOnError)
	out := viewCmd.String("o", "", "Output PNG (default: <input>.png)")
	bins := viewCmd.Int("bins", visualize.DefaultMaxBins, "Number of low frequency bins to draw")
	showPeaks := viewCmd.Bool("peaks", true, "Mark detected peaks")
	positional := splitArgs(viewCmd, args)

	if len(positional) != 1 {
		fmt.Println("Usage: audioprints view <file.wav> [-o <out.png>] [-bins <n>] [-peaks=false]")
		os.Exit(1)
	}
	audioPath := positional[0]
	if *out == "" {
		*out = strings.TrimSuffix(audioPath, filepath.Ext(audioPath)) + ".png"
	}

	clip, ex := readClip(cfg, audioPath)
	spec, err := fingerprint.ExtractSpectrogram(clip.Samples, ex)
	if err != nil {
		fail("Failed to build spectrogram", err)
	}

	var peaks []fingerprint.Peak
	if *showPeaks {
		if peaks, err = fingerprint.DetectPeaks(spec, ex.MinAmplitude, ex.NeighborhoodRadius); err != nil {
			fail("Peak detection failed", err)
		}
	}

	if err := visualize.SavePNG(spec, peaks, *out, visualize.Options{MaxBins: *bins}); err != nil {
		fail("Failed to render spectrogram", err)
	}
	fmt.Printf("🖼️  Wrote %s (%d frames x %d bins, %d peaks)\n", *out, spec.Frames(), min(*bins, spec.Bins()), len(peaks))
}

type peakJSON struct {
	FreqBin   int     `json:"freq_bin"`
	TimeFrame int     `json:"time_frame"`
	Amplitude float64 `json:"amplitude_db"`
	FreqHz    float64 `json:"freq_hz"`
	TimeSec   float64 `json:"time_sec"`
}

func handlePeaks(cfg config.Config, args []string) {
	if len(args) != 1 {
		fmt.Println("Usage: audioprints peaks <file.wav>")
		os.Exit(1)
	}

	clip, ex := readClip(cfg, args[0])
	spec, err := fingerprint.ExtractSpectrogram(clip.Samples, ex)
	if err != nil {
		fail("Failed to build spectrogram", err)
	}
	peaks, err := fingerprint.DetectPeaks(spec, ex.MinAmplitude, ex.NeighborhoodRadius)
	if err != nil {
		fail("Peak detection failed", err)
	}

	w := bufio.NewWriter(os.Stdout)
	defer w.Flush()
	enc := json.NewEncoder(w)
	for _, p := range peaks {
		_ = enc.Encode(peakJSON{
			FreqBin:   p.FreqBin,
			TimeFrame: p.TimeFrame,
			Amplitude: p.Amplitude,
			FreqHz:    spec.BinFrequency(p.FreqBin),
			TimeSec:   spec.FrameTime(p.TimeFrame),
		})
	}
}

// handleFingerprint streams fingerprints as JSON lines without storing them.
func handleFingerprint(cfg config.Config, args []string) {
	fpCmd := flag.NewFlagSet("fingerprint", flag.ExitOnError)
	trackID := fpCmd.String("track", "", "Track ID to stamp on each fingerprint")
	positional := splitArgs(fpCmd, args)

	if len(positional) != 1 {
		fmt.Println("Usage: audioprints fingerprint <file.wav> [-track <id>]")
		os.Exit(1)
	}

	clip, ex := readClip(cfg, positional[0])
	peaks, err := fingerprint.ExtractPeaks(clip.Samples, ex)
	if err != nil {
		fail("Fingerprint extraction failed", err)
	}

	w := bufio.NewWriter(os.Stdout)
	defer w.Flush()
	enc := json.NewEncoder(w)
	for fp := range fingerprint.Fingerprints(peaks, *trackID, ex.FanValue, ex.MinHashDelta, ex.MaxHashDelta, ex.HashAlgorithm) {
		if err := enc.Encode(fp); err != nil {
			fail("Failed to write output", err)
		}
	}
}
