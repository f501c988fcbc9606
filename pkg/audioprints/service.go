package audioprints

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/himanishpuri/audioprints/internal/audio"
	"github.com/himanishpuri/audioprints/pkg/audioprints/fingerprint"
	"github.com/himanishpuri/audioprints/pkg/audioprints/storage"
	"github.com/himanishpuri/audioprints/pkg/logger"
	"github.com/himanishpuri/audioprints/pkg/models"
)

// ErrTrackExists is returned with the existing ID when a track name is
// already indexed.
var ErrTrackExists = storage.ErrTrackExists

// ErrTrackNotFound is returned for unknown track IDs.
var ErrTrackNotFound = storage.ErrTrackNotFound

// audioprintsService is the default implementation of the Service interface.
type audioprintsService struct {
	storage Storage
	log     Logger
	config  *Config
}

func NewService(opts ...Option) (Service, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.Logger == nil {
		cfg.Logger = logger.GetLogger()
	}
	if err := cfg.Extraction.Validate(); err != nil {
		return nil, err
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}

	stor := cfg.Storage
	if stor == nil {
		var err error
		stor, err = NewStorage(cfg.Backend, cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create storage: %w", err)
		}
	}

	return &audioprintsService{
		storage: stor,
		log:     cfg.Logger,
		config:  cfg,
	}, nil
}

// trackName falls back to the file name without its extension.
func trackName(audioPath, name string) string {
	if name = strings.TrimSpace(name); name != "" {
		return name
	}
	base := filepath.Base(audioPath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// extraction returns the pipeline config for audio at sampleRate.
func (s *audioprintsService) extraction(sampleRate int) fingerprint.Config {
	cfg := s.config.Extraction
	if sampleRate > 0 {
		cfg.SampleRate = sampleRate
	}
	return cfg
}

// AddTrack decodes a WAV file, fingerprints it and stores the result.
// An empty name defaults to the file name.
func (s *audioprintsService) AddTrack(ctx context.Context, audioPath, name string) (string, error) {
	id, _, err := s.addTrack(ctx, audioPath, name)
	return id, err
}

func (s *audioprintsService) addTrack(ctx context.Context, audioPath, name string) (string, int, error) {
	clip, err := audio.ReadWavFile(audioPath)
	if err != nil {
		return "", 0, fmt.Errorf("failed to read WAV file: %w", err)
	}
	return s.store(ctx, models.Track{
		Name:       trackName(audioPath, name),
		SourcePath: audioPath,
		SampleRate: clip.SampleRate,
		DurationMs: int(clip.Duration().Milliseconds()),
	}, clip.Samples)
}

// AddSamples fingerprints already decoded mono samples.
func (s *audioprintsService) AddSamples(ctx context.Context, name string, samples []float64, sampleRate int) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", errors.New("track name is required")
	}
	durationMs := 0
	if sampleRate > 0 {
		durationMs = len(samples) * 1000 / sampleRate
	}
	id, _, err := s.store(ctx, models.Track{
		Name:       strings.TrimSpace(name),
		SampleRate: sampleRate,
		DurationMs: durationMs,
	}, samples)
	return id, err
}

func (s *audioprintsService) store(ctx context.Context, track models.Track, samples []float64) (string, int, error) {
	if err := ctx.Err(); err != nil {
		return "", 0, err
	}
	s.log.Infof("Processing track: %s", track.Name)

	track.ID = uuid.NewString()
	fps, err := fingerprint.ExtractFingerprints(samples, track.ID, s.extraction(track.SampleRate))
	if err != nil {
		return "", 0, fmt.Errorf("fingerprint extraction failed: %w", err)
	}
	s.log.Debugf("Generated %d fingerprints for %s", len(fps), track.Name)

	if err := ctx.Err(); err != nil {
		return "", 0, err
	}

	trackID, err := s.storage.RegisterTrack(track)
	if errors.Is(err, ErrTrackExists) {
		return trackID, 0, fmt.Errorf("%q: %w", track.Name, ErrTrackExists)
	}
	if err != nil {
		return "", 0, fmt.Errorf("failed to register track: %w", err)
	}

	if err := s.storage.StoreFingerprints(fps); err != nil {
		if delErr := s.storage.DeleteTrack(trackID); delErr != nil {
			s.log.Errorf("Rollback of track %s failed: %v", trackID, delErr)
		}
		return "", 0, fmt.Errorf("failed to store fingerprints: %w", err)
	}

	s.log.Infof("Added track %q id=%s (%d fingerprints)", track.Name, trackID, len(fps))
	return trackID, len(fps), nil
}

// IndexFiles adds every path using a bounded worker pool. Per-file failures
// are reported in the results and do not stop the batch; results are in the
// order of paths. progress, if set, is called once per file as it finishes,
// never concurrently.
func (s *audioprintsService) IndexFiles(ctx context.Context, paths []string, progress func(IndexResult)) []IndexResult {
	results := make([]IndexResult, len(paths))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.Workers)

	for i, path := range paths {
		g.Go(func() error {
			res := s.indexOne(gctx, path)

			mu.Lock()
			results[i] = res
			if progress != nil {
				progress(res)
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (s *audioprintsService) indexOne(ctx context.Context, path string) IndexResult {
	res := IndexResult{Path: path}
	res.TrackID, res.Fingerprints, res.Err = s.addTrack(ctx, path, "")
	if errors.Is(res.Err, ErrTrackExists) {
		res.Skipped = true
		res.Err = nil
	}
	if res.Err != nil {
		s.log.Warnf("Indexing %s failed: %v", path, res.Err)
	}
	return res
}

// Lookup fingerprints a query WAV file and counts shared hashes per track.
func (s *audioprintsService) Lookup(ctx context.Context, audioPath string) ([]models.Hit, error) {
	clip, err := audio.ReadWavFile(audioPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read WAV file: %w", err)
	}
	return s.LookupSamples(ctx, clip.Samples, clip.SampleRate)
}

// LookupSamples returns, for every stored track sharing at least one hash
// with the query, the number of (query, stored) fingerprint pairs with equal
// hashes. Results are ordered by track name; no scoring or offset alignment
// is applied.
func (s *audioprintsService) LookupSamples(ctx context.Context, samples []float64, sampleRate int) ([]models.Hit, error) {
	fps, err := fingerprint.ExtractFingerprints(samples, "", s.extraction(sampleRate))
	if err != nil {
		return nil, fmt.Errorf("fingerprint extraction failed: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	unique := make([]string, 0, len(fps))
	queryCount := make(map[string]int, len(fps))
	for _, fp := range fps {
		if queryCount[fp.Hash] == 0 {
			unique = append(unique, fp.Hash)
		}
		queryCount[fp.Hash]++
	}

	buckets, err := s.storage.LookupHashes(unique)
	if err != nil {
		return nil, fmt.Errorf("hash lookup failed: %w", err)
	}
	s.log.Debugf("Matched %d/%d query hashes", len(buckets), len(unique))

	counts := make(map[string]int)
	for hash, postings := range buckets {
		for _, p := range postings {
			counts[p.TrackID] += queryCount[hash]
		}
	}

	hits := make([]models.Hit, 0, len(counts))
	for trackID, n := range counts {
		hit := models.Hit{TrackID: trackID, Hits: n}
		if track, err := s.storage.GetTrack(trackID); err == nil {
			hit.TrackName = track.Name
		} else {
			s.log.Warnf("Failed to get track %s: %v", trackID, err)
		}
		hits = append(hits, hit)
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].TrackName != hits[j].TrackName {
			return hits[i].TrackName < hits[j].TrackName
		}
		return hits[i].TrackID < hits[j].TrackID
	})
	return hits, nil
}

func (s *audioprintsService) HashPostings(hash string) ([]models.Posting, error) {
	return s.storage.LookupHash(strings.ToLower(hash))
}

func (s *audioprintsService) GetTrack(trackID string) (*models.Track, error) {
	return s.storage.GetTrack(trackID)
}

func (s *audioprintsService) ListTracks() ([]models.Track, error) {
	return s.storage.ListTracks()
}

func (s *audioprintsService) SearchTracks(query string) ([]models.Track, error) {
	return s.storage.SearchTracks(strings.TrimSpace(query))
}

func (s *audioprintsService) DeleteTrack(trackID string) error {
	if err := s.storage.DeleteTrack(trackID); err != nil {
		return err
	}
	s.log.Infof("Deleted track %s", trackID)
	return nil
}

// Close releases all resources held by the service.
func (s *audioprintsService) Close() error {
	return s.storage.Close()
}
