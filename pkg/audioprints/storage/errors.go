package storage

import "errors"

var (
	// ErrTrackNotFound is returned when no track has the requested ID.
	ErrTrackNotFound = errors.New("track not found")

	// ErrTrackExists is returned by RegisterTrack together with the ID of the
	// track that already uses the name.
	ErrTrackExists = errors.New("track already exists")
)

const errDBClientNil = "db client is nil"
