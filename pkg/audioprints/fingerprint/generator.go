package fingerprint

import (
	"iter"
)

// Fingerprint ties a pair hash to the track and the frame of its anchor peak.
// The same hash can appear under many tracks; lookups match on it.
type Fingerprint struct {
	TrackID    string `json:"track_id"`
	AnchorTime int    `json:"anchor_time"`
	Hash       string `json:"hash"`
}

func validateGenerator(fanValue, minDelta, maxDelta int) error {
	if fanValue < 1 {
		return configError("fan_value", fanValue, "must be at least 1")
	}
	if minDelta < 0 {
		return configError("min_hash_delta", minDelta, "must not be negative")
	}
	if maxDelta < minDelta {
		return configError("max_hash_delta", maxDelta, "must not be below min_hash_delta")
	}
	return nil
}

// Fingerprints streams the fingerprints of peaks. For each anchor i it looks
// at peaks i+1 .. i+fanValue-1 and emits one fingerprint per neighbour whose
// frame delta lies in [minDelta, maxDelta]. Peaks are paired in the order
// given; DetectPeaks already returns them time-major.
//
// Parameters are not validated here; use GenerateFingerprints for that.
func Fingerprints(peaks []Peak, trackID string, fanValue, minDelta, maxDelta int, algo HashAlgorithm) iter.Seq[Fingerprint] {
	return func(yield func(Fingerprint) bool) {
		for i, anchor := range peaks {
			for j := 1; j < fanValue && i+j < len(peaks); j++ {
				target := peaks[i+j]
				delta := target.TimeFrame - anchor.TimeFrame
				if delta < minDelta || delta > maxDelta {
					continue
				}
				fp := Fingerprint{
					TrackID:    trackID,
					AnchorTime: anchor.TimeFrame,
					Hash:       createHash(algo, anchor.FreqBin, target.FreqBin, delta),
				}
				if !yield(fp) {
					return
				}
			}
		}
	}
}

// GenerateFingerprints validates the pairing parameters and materialises
// every fingerprint of peaks, in emission order.
func GenerateFingerprints(peaks []Peak, trackID string, fanValue, minDelta, maxDelta int, algo HashAlgorithm) ([]Fingerprint, error) {
	if err := validateGenerator(fanValue, minDelta, maxDelta); err != nil {
		return nil, err
	}
	if !algo.valid() {
		return nil, configError("hash_algorithm", algo, "unsupported digest")
	}

	fps := make([]Fingerprint, 0, len(peaks))
	for fp := range Fingerprints(peaks, trackID, fanValue, minDelta, maxDelta, algo) {
		fps = append(fps, fp)
	}
	return fps, nil
}
