package fingerprint

import (
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"regexp"
	"testing"
)

var lowerHex = regexp.MustCompile(`^[0-9a-f]+$`)

func TestCreateHashSerialization(t *testing.T) {
	sum := sha1.Sum([]byte("10|20|1"))
	expected := hex.EncodeToString(sum[:])

	if got := createHash(SHA1, 10, 20, 1); got != expected {
		t.Errorf("Expected %s, got %s", expected, got)
	}
}

func TestCreateHashIsOrdered(t *testing.T) {
	if createHash(SHA1, 10, 20, 5) == createHash(SHA1, 20, 10, 5) {
		t.Error("Swapping anchor and target should change the hash")
	}
	if createHash(SHA1, 1, 23, 4) == createHash(SHA1, 12, 3, 4) {
		t.Error("Separators should keep digit runs apart")
	}
}

func TestHashAlgorithms(t *testing.T) {
	tests := []struct {
		algo   HashAlgorithm
		hexLen int
	}{
		{SHA1, 40},
		{SHA256, 64},
		{BLAKE2b, 64},
	}

	for _, tt := range tests {
		t.Run(string(tt.algo), func(t *testing.T) {
			if tt.algo.HexLen() != tt.hexLen {
				t.Errorf("Expected HexLen %d, got %d", tt.hexLen, tt.algo.HexLen())
			}
			h := createHash(tt.algo, 41, 41, 54)
			if len(h) != tt.hexLen {
				t.Errorf("Expected %d hex chars, got %d", tt.hexLen, len(h))
			}
			if !lowerHex.MatchString(h) {
				t.Errorf("Hash %q is not lowercase hex", h)
			}
			parsed, err := ParseHashAlgorithm(string(tt.algo))
			if err != nil || parsed != tt.algo {
				t.Errorf("ParseHashAlgorithm(%q) = %q, %v", tt.algo, parsed, err)
			}
		})
	}

	if createHash(SHA256, 1, 2, 3) == createHash(BLAKE2b, 1, 2, 3) {
		t.Error("Expected different digests for different algorithms")
	}

	if _, err := ParseHashAlgorithm("md5"); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig for md5, got %v", err)
	}
}

func TestGenerateFingerprintsFanOut(t *testing.T) {
	peaks := []Peak{
		{FreqBin: 10, TimeFrame: 0},
		{FreqBin: 20, TimeFrame: 1},
		{FreqBin: 30, TimeFrame: 2},
		{FreqBin: 40, TimeFrame: 3},
	}

	fps, err := GenerateFingerprints(peaks, "track-1", 3, 0, 200, SHA1)
	if err != nil {
		t.Fatalf("GenerateFingerprints failed: %v", err)
	}

	expected := []Fingerprint{
		{TrackID: "track-1", AnchorTime: 0, Hash: createHash(SHA1, 10, 20, 1)},
		{TrackID: "track-1", AnchorTime: 0, Hash: createHash(SHA1, 10, 30, 2)},
		{TrackID: "track-1", AnchorTime: 1, Hash: createHash(SHA1, 20, 30, 1)},
		{TrackID: "track-1", AnchorTime: 1, Hash: createHash(SHA1, 20, 40, 2)},
		{TrackID: "track-1", AnchorTime: 2, Hash: createHash(SHA1, 30, 40, 1)},
	}

	if len(fps) != len(expected) {
		t.Fatalf("Expected %d fingerprints, got %d", len(expected), len(fps))
	}
	for i := range expected {
		if fps[i] != expected[i] {
			t.Errorf("Fingerprint %d: expected %+v, got %+v", i, expected[i], fps[i])
		}
	}
}

func TestGenerateFingerprintsFanValueOne(t *testing.T) {
	peaks := []Peak{{FreqBin: 1, TimeFrame: 0}, {FreqBin: 2, TimeFrame: 3}}

	fps, err := GenerateFingerprints(peaks, "t", 1, 0, 200, SHA1)
	if err != nil {
		t.Fatalf("GenerateFingerprints failed: %v", err)
	}
	if len(fps) != 0 {
		t.Errorf("Expected no fingerprints with fan value 1, got %d", len(fps))
	}
}

func TestGenerateFingerprintsEmptyPeaks(t *testing.T) {
	fps, err := GenerateFingerprints(nil, "t", 15, 0, 200, SHA1)
	if err != nil {
		t.Fatalf("GenerateFingerprints failed: %v", err)
	}
	if len(fps) != 0 {
		t.Errorf("Expected no fingerprints, got %d", len(fps))
	}
}

func TestGenerateFingerprintsDeltaBounds(t *testing.T) {
	frames := []int{0, 1, 3, 4, 8, 9, 15, 30}
	peaks := make([]Peak, len(frames))
	for i, f := range frames {
		peaks[i] = Peak{FreqBin: 100 + i, TimeFrame: f}
	}

	const fan, minDelta, maxDelta = 5, 2, 6

	expected := 0
	valid := make(map[string]bool)
	for i := range peaks {
		for j := 1; j < fan && i+j < len(peaks); j++ {
			d := peaks[i+j].TimeFrame - peaks[i].TimeFrame
			if d >= minDelta && d <= maxDelta {
				expected++
				valid[createHash(SHA1, peaks[i].FreqBin, peaks[i+j].FreqBin, d)] = true
			}
		}
	}

	fps, err := GenerateFingerprints(peaks, "t", fan, minDelta, maxDelta, SHA1)
	if err != nil {
		t.Fatalf("GenerateFingerprints failed: %v", err)
	}
	if len(fps) != expected {
		t.Fatalf("Expected %d fingerprints, got %d", expected, len(fps))
	}
	for _, fp := range fps {
		if !valid[fp.Hash] {
			t.Errorf("Fingerprint %+v outside the delta window", fp)
		}
	}
}

func TestGenerateFingerprintsSameFrameDelta(t *testing.T) {
	// two peaks in one frame pair with delta 0 when the window allows it
	peaks := []Peak{{FreqBin: 10, TimeFrame: 4}, {FreqBin: 50, TimeFrame: 4}}

	fps, err := GenerateFingerprints(peaks, "t", 2, 0, 10, SHA1)
	if err != nil {
		t.Fatalf("GenerateFingerprints failed: %v", err)
	}
	if len(fps) != 1 || fps[0].Hash != createHash(SHA1, 10, 50, 0) {
		t.Errorf("Expected one delta-0 fingerprint, got %+v", fps)
	}

	fps, err = GenerateFingerprints(peaks, "t", 2, 1, 10, SHA1)
	if err != nil {
		t.Fatalf("GenerateFingerprints failed: %v", err)
	}
	if len(fps) != 0 {
		t.Errorf("Expected delta-0 pair to be dropped with min delta 1, got %+v", fps)
	}
}

func TestGenerateFingerprintsTranslationInvariant(t *testing.T) {
	base := []Peak{
		{FreqBin: 41, TimeFrame: 0},
		{FreqBin: 80, TimeFrame: 7},
		{FreqBin: 12, TimeFrame: 19},
		{FreqBin: 41, TimeFrame: 54},
	}
	shifted := make([]Peak, len(base))
	for i, p := range base {
		shifted[i] = Peak{FreqBin: p.FreqBin, TimeFrame: p.TimeFrame + 100}
	}

	a, err := GenerateFingerprints(base, "song-a", DefaultFanValue, 0, 200, SHA1)
	if err != nil {
		t.Fatalf("GenerateFingerprints failed: %v", err)
	}
	b, err := GenerateFingerprints(shifted, "song-b", DefaultFanValue, 0, 200, SHA1)
	if err != nil {
		t.Fatalf("GenerateFingerprints failed: %v", err)
	}

	if len(a) == 0 || len(a) != len(b) {
		t.Fatalf("Expected equal non-empty outputs, got %d and %d", len(a), len(b))
	}
	for i := range a {
		if a[i].Hash != b[i].Hash {
			t.Errorf("Fingerprint %d: hashes differ", i)
		}
		if b[i].AnchorTime-a[i].AnchorTime != 100 {
			t.Errorf("Fingerprint %d: expected anchor offset 100, got %d", i, b[i].AnchorTime-a[i].AnchorTime)
		}
		if a[i].TrackID != "song-a" || b[i].TrackID != "song-b" {
			t.Errorf("Fingerprint %d: wrong track ids %q / %q", i, a[i].TrackID, b[i].TrackID)
		}
	}
}

func TestFingerprintsStopsEarly(t *testing.T) {
	peaks := make([]Peak, 20)
	for i := range peaks {
		peaks[i] = Peak{FreqBin: i, TimeFrame: i}
	}

	count := 0
	for range Fingerprints(peaks, "t", 10, 0, 200, SHA1) {
		count++
		if count == 3 {
			break
		}
	}
	if count != 3 {
		t.Errorf("Expected iteration to stop after 3, got %d", count)
	}
}

func TestGenerateFingerprintsInvalidConfig(t *testing.T) {
	peaks := []Peak{{FreqBin: 1, TimeFrame: 0}}

	tests := []struct {
		fan, minDelta, maxDelta int
		algo                    HashAlgorithm
		field                   string
	}{
		{0, 0, 200, SHA1, "fan_value"},
		{15, -1, 200, SHA1, "min_hash_delta"},
		{15, 10, 5, SHA1, "max_hash_delta"},
		{15, 0, 200, HashAlgorithm("md5"), "hash_algorithm"},
	}

	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			_, err := GenerateFingerprints(peaks, "t", tt.fan, tt.minDelta, tt.maxDelta, tt.algo)
			var cfgErr *ConfigurationError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("Expected *ConfigurationError, got %v", err)
			}
			if cfgErr.Field != tt.field {
				t.Errorf("Expected field %q, got %q", tt.field, cfgErr.Field)
			}
		})
	}
}
