package fingerprint

// ExtractSpectrogram validates cfg and builds the spectrogram of samples.
func ExtractSpectrogram(samples []float64, cfg Config) (*Spectrogram, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return BuildSpectrogram(samples, cfg.SampleRate, cfg.WindowSize, cfg.OverlapRatio)
}

// ExtractPeaks runs the spectrogram and peak stages.
func ExtractPeaks(samples []float64, cfg Config) ([]Peak, error) {
	spec, err := ExtractSpectrogram(samples, cfg)
	if err != nil {
		return nil, err
	}
	return DetectPeaks(spec, cfg.MinAmplitude, cfg.NeighborhoodRadius)
}

// ExtractFingerprints runs the whole pipeline for one track. The result is a
// pure function of (samples, trackID, cfg).
func ExtractFingerprints(samples []float64, trackID string, cfg Config) ([]Fingerprint, error) {
	peaks, err := ExtractPeaks(samples, cfg)
	if err != nil {
		return nil, err
	}
	return GenerateFingerprints(peaks, trackID, cfg.FanValue, cfg.MinHashDelta, cfg.MaxHashDelta, cfg.HashAlgorithm)
}
