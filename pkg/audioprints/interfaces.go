package audioprints

import (
	"context"

	"github.com/himanishpuri/audioprints/pkg/audioprints/fingerprint"
	"github.com/himanishpuri/audioprints/pkg/models"
)

type Service interface {
	AddTrack(ctx context.Context, audioPath, name string) (string, error)
	AddSamples(ctx context.Context, name string, samples []float64, sampleRate int) (string, error)
	IndexFiles(ctx context.Context, paths []string, progress func(IndexResult)) []IndexResult
	Watch(ctx context.Context, dir string, onIndexed func(IndexResult)) error
	Lookup(ctx context.Context, audioPath string) ([]models.Hit, error)
	LookupSamples(ctx context.Context, samples []float64, sampleRate int) ([]models.Hit, error)
	HashPostings(hash string) ([]models.Posting, error)
	GetTrack(trackID string) (*models.Track, error)
	ListTracks() ([]models.Track, error)
	SearchTracks(query string) ([]models.Track, error)
	DeleteTrack(trackID string) error
	Close() error
}

type Storage interface {
	RegisterTrack(track models.Track) (string, error)
	StoreFingerprints(fps []fingerprint.Fingerprint) error
	LookupHash(hash string) ([]models.Posting, error)
	LookupHashes(hashes []string) (map[string][]models.Posting, error)
	GetTrack(trackID string) (*models.Track, error)
	FingerprintCount(trackID string) (int, error)
	ListTracks() ([]models.Track, error)
	SearchTracks(query string) ([]models.Track, error)
	DeleteTrack(trackID string) error
	Close() error
}

type Logger interface {
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
	Debugf(format string, args ...any)
}
