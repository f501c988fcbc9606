package models

import "time"

// Track is a fingerprinted recording.
type Track struct {
	ID               string    `json:"id"`          // UUID
	Name             string    `json:"name"`        // display name, unique per store
	SourcePath       string    `json:"source_path"` // file the samples came from, if any
	SampleRate       int       `json:"sample_rate"`
	DurationMs       int       `json:"duration_ms"`
	FingerprintCount int       `json:"fingerprint_count"`
	CreatedAt        time.Time `json:"created_at"`
}

// Hit counts the hashes a query shares with one stored track. No ranking or
// time-offset alignment is applied; callers decide what a hit count means.
type Hit struct {
	TrackID   string `json:"track_id"`
	TrackName string `json:"track_name"`
	Hits      int    `json:"hits"`
}
