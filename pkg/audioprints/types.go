package audioprints

// IndexResult reports the outcome for one file of a batch.
type IndexResult struct {
	Path         string
	TrackID      string
	Fingerprints int
	Skipped      bool // a track with the same name was already indexed
	Err          error
}
