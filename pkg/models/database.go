package models

// Posting is one entry of a hash bucket: the track a hash was extracted from
// and the frame of its anchor peak.
type Posting struct {
	TrackID    string `json:"track_id"`
	AnchorTime int    `json:"anchor_time"`
}
