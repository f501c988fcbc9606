package main

import (
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/himanishpuri/audioprints/pkg/audioprints/fingerprint"
	"github.com/himanishpuri/audioprints/pkg/models"
)

// Upload limits for multipart forms.
const (
	MaxTrackUploadBytes = 100 << 20
	MaxQueryUploadBytes = 50 << 20
)

// validateHash checks that hash is hex of the digest length in use. Case is
// ignored.
func validateHash(hash string, algo fingerprint.HashAlgorithm) error {
	if len(hash) != algo.HexLen() {
		return fmt.Errorf("hash must be %d hex characters for %s, got %d", algo.HexLen(), algo, len(hash))
	}
	if _, err := hex.DecodeString(strings.ToLower(hash)); err != nil {
		return fmt.Errorf("invalid hash format: %q", hash)
	}
	return nil
}

// TrackDTO represents a track in API responses
type TrackDTO struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	SampleRate       int       `json:"sample_rate"`
	DurationMs       int       `json:"duration_ms"`
	FingerprintCount int       `json:"fingerprint_count"`
	CreatedAt        time.Time `json:"created_at"`
}

func newTrackDTO(t models.Track) TrackDTO {
	return TrackDTO{
		ID:               t.ID,
		Name:             t.Name,
		SampleRate:       t.SampleRate,
		DurationMs:       t.DurationMs,
		FingerprintCount: t.FingerprintCount,
		CreatedAt:        t.CreatedAt,
	}
}

func newTrackDTOs(tracks []models.Track) []TrackDTO {
	dtos := make([]TrackDTO, len(tracks))
	for i, t := range tracks {
		dtos[i] = newTrackDTO(t)
	}
	return dtos
}

// ListTracksResponse is the response for GET /api/tracks and /api/search
type ListTracksResponse struct {
	Tracks []TrackDTO `json:"tracks"`
	Count  int        `json:"count"`
}

// AddTrackResponse is the response for POST /api/tracks
type AddTrackResponse struct {
	Message string `json:"message"`
	ID      string `json:"id"`
	Name    string `json:"name"`
}

// DeleteTrackResponse is the response for DELETE /api/tracks/{id}
type DeleteTrackResponse struct {
	Message string `json:"message"`
	ID      string `json:"id"`
}

// LookupResponse is the response for POST /api/lookup
type LookupResponse struct {
	Hits  []models.Hit `json:"hits"`
	Count int          `json:"count"`
}

// FingerprintResponse is the response for POST /api/fingerprint
type FingerprintResponse struct {
	SampleRate   int                       `json:"sample_rate"`
	DurationMs   int                       `json:"duration_ms"`
	Algorithm    string                    `json:"hash_algorithm"`
	Fingerprints []fingerprint.Fingerprint `json:"fingerprints"`
	Count        int                       `json:"count"`
}

// HashResponse is the response for GET /api/hashes/{hash}
type HashResponse struct {
	Hash     string           `json:"hash"`
	Postings []models.Posting `json:"postings"`
	Count    int              `json:"count"`
}

// MetricsResponse provides server health and database metrics
type MetricsResponse struct {
	Status           string `json:"status"`
	Backend          string `json:"backend"`
	DatabasePath     string `json:"database_path"`
	TrackCount       int    `json:"track_count"`
	FingerprintCount int    `json:"fingerprint_count"`
	HashAlgorithm    string `json:"hash_algorithm"`
}

// ErrorResponse is the standard error response format
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
}
