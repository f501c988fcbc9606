package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/google/uuid"

	"github.com/himanishpuri/audioprints/pkg/audioprints/fingerprint"
	"github.com/himanishpuri/audioprints/pkg/models"
)

// Key layout:
//
//	t/<trackID>                          -> JSON track record
//	n/<name>                             -> trackID
//	h/<hash>/<trackID>/<anchor>          -> empty (hash bucket)
//	f/<trackID>/<hash>/<anchor>          -> empty (reverse index for delete/count)
//
// Anchors are zero padded so a bucket iterates in anchor order per track.
const (
	trackPrefix   = "t/"
	namePrefix    = "n/"
	hashPrefix    = "h/"
	reversePrefix = "f/"
)

// BadgerStore keeps tracks and hash buckets in a Badger key-value store.
type BadgerStore struct {
	db *badger.DB
}

// NewBadgerStore opens the store at dir. An empty dir opens an in-memory
// store that is lost on Close.
func NewBadgerStore(dir string) (*BadgerStore, error) {
	var opts badger.Options
	if dir == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(dir)
	}
	opts = opts.WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening badger db: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

func (s *BadgerStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

type badgerTrack struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	SourcePath string    `json:"source_path"`
	SampleRate int       `json:"sample_rate"`
	DurationMs int       `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
}

func anchorKey(anchor int) string {
	return fmt.Sprintf("%010d", anchor)
}

func (s *BadgerStore) RegisterTrack(track models.Track) (string, error) {
	if s == nil || s.db == nil {
		return "", errors.New(errDBClientNil)
	}

	id := track.ID
	if id == "" {
		id = uuid.NewString()
	}
	nameKey := []byte(namePrefix + track.Name)

	var existingID string
	err := s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(nameKey)
		if err == nil {
			val, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			existingID = string(val)
			return ErrTrackExists
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		rec, err := json.Marshal(badgerTrack{
			ID:         id,
			Name:       track.Name,
			SourcePath: track.SourcePath,
			SampleRate: track.SampleRate,
			DurationMs: track.DurationMs,
			CreatedAt:  time.Now().UTC(),
		})
		if err != nil {
			return err
		}
		if err := txn.Set([]byte(trackPrefix+id), rec); err != nil {
			return err
		}
		return txn.Set(nameKey, []byte(id))
	})
	if errors.Is(err, ErrTrackExists) {
		return existingID, ErrTrackExists
	}
	if err != nil {
		return "", fmt.Errorf("registering track: %w", err)
	}
	return id, nil
}

func (s *BadgerStore) StoreFingerprints(fps []fingerprint.Fingerprint) error {
	if s == nil || s.db == nil {
		return errors.New(errDBClientNil)
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()

	for _, fp := range fps {
		anchor := anchorKey(fp.AnchorTime)
		if err := wb.Set([]byte(hashPrefix+fp.Hash+"/"+fp.TrackID+"/"+anchor), nil); err != nil {
			return fmt.Errorf("batch insert fingerprints: %w", err)
		}
		if err := wb.Set([]byte(reversePrefix+fp.TrackID+"/"+fp.Hash+"/"+anchor), nil); err != nil {
			return fmt.Errorf("batch insert fingerprints: %w", err)
		}
	}
	if err := wb.Flush(); err != nil {
		return fmt.Errorf("flushing fingerprints: %w", err)
	}
	return nil
}

// parsePosting splits the "<trackID>/<anchor>" tail of a bucket key.
func parsePosting(tail string) (models.Posting, error) {
	trackID, anchor, ok := strings.Cut(tail, "/")
	if !ok {
		return models.Posting{}, fmt.Errorf("malformed bucket key %q", tail)
	}
	t, err := strconv.Atoi(anchor)
	if err != nil {
		return models.Posting{}, fmt.Errorf("malformed anchor in %q: %w", tail, err)
	}
	return models.Posting{TrackID: trackID, AnchorTime: t}, nil
}

func (s *BadgerStore) bucket(txn *badger.Txn, hash string) ([]models.Posting, error) {
	prefix := []byte(hashPrefix + hash + "/")
	it := txn.NewIterator(badger.IteratorOptions{Prefix: prefix})
	defer it.Close()

	var out []models.Posting
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		p, err := parsePosting(string(it.Item().Key()[len(prefix):]))
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *BadgerStore) LookupHash(hash string) ([]models.Posting, error) {
	if s == nil || s.db == nil {
		return nil, errors.New(errDBClientNil)
	}
	var out []models.Posting
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		out, err = s.bucket(txn, hash)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("querying fingerprints: %w", err)
	}
	if out == nil {
		out = []models.Posting{}
	}
	return out, nil
}

func (s *BadgerStore) LookupHashes(hashes []string) (map[string][]models.Posting, error) {
	if s == nil || s.db == nil {
		return nil, errors.New(errDBClientNil)
	}
	result := make(map[string][]models.Posting)
	err := s.db.View(func(txn *badger.Txn) error {
		for _, h := range hashes {
			if _, seen := result[h]; seen {
				continue
			}
			postings, err := s.bucket(txn, h)
			if err != nil {
				return err
			}
			if len(postings) > 0 {
				result[h] = postings
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("batch querying fingerprints: %w", err)
	}
	return result, nil
}

func (s *BadgerStore) countFingerprints(txn *badger.Txn, trackID string) int {
	prefix := []byte(reversePrefix + trackID + "/")
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = prefix
	it := txn.NewIterator(opts)
	defer it.Close()

	n := 0
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		n++
	}
	return n
}

func (s *BadgerStore) FingerprintCount(trackID string) (int, error) {
	if s == nil || s.db == nil {
		return 0, errors.New(errDBClientNil)
	}
	var n int
	err := s.db.View(func(txn *badger.Txn) error {
		n = s.countFingerprints(txn, trackID)
		return nil
	})
	return n, err
}

func decodeTrack(item *badger.Item) (badgerTrack, error) {
	var rec badgerTrack
	err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &rec)
	})
	return rec, err
}

func (rec badgerTrack) model(count int) models.Track {
	return models.Track{
		ID:               rec.ID,
		Name:             rec.Name,
		SourcePath:       rec.SourcePath,
		SampleRate:       rec.SampleRate,
		DurationMs:       rec.DurationMs,
		FingerprintCount: count,
		CreatedAt:        rec.CreatedAt,
	}
}

func (s *BadgerStore) GetTrack(trackID string) (*models.Track, error) {
	if s == nil || s.db == nil {
		return nil, errors.New(errDBClientNil)
	}
	var track models.Track
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(trackPrefix + trackID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrTrackNotFound
		}
		if err != nil {
			return err
		}
		rec, err := decodeTrack(item)
		if err != nil {
			return err
		}
		track = rec.model(s.countFingerprints(txn, trackID))
		return nil
	})
	if errors.Is(err, ErrTrackNotFound) {
		return nil, ErrTrackNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying track: %w", err)
	}
	return &track, nil
}

func (s *BadgerStore) ListTracks() ([]models.Track, error) {
	return s.filterTracks(func(string) bool { return true })
}

// SearchTracks returns tracks whose name contains query, ignoring case.
func (s *BadgerStore) SearchTracks(query string) ([]models.Track, error) {
	q := strings.ToLower(query)
	return s.filterTracks(func(name string) bool {
		return strings.Contains(strings.ToLower(name), q)
	})
}

func (s *BadgerStore) filterTracks(match func(name string) bool) ([]models.Track, error) {
	if s == nil || s.db == nil {
		return nil, errors.New(errDBClientNil)
	}
	tracks := make([]models.Track, 0)
	err := s.db.View(func(txn *badger.Txn) error {
		prefix := []byte(trackPrefix)
		it := txn.NewIterator(badger.IteratorOptions{Prefix: prefix, PrefetchValues: true, PrefetchSize: 100})
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			rec, err := decodeTrack(it.Item())
			if err != nil {
				return err
			}
			if match(rec.Name) {
				tracks = append(tracks, rec.model(s.countFingerprints(txn, rec.ID)))
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing tracks: %w", err)
	}
	sort.Slice(tracks, func(i, j int) bool { return tracks[i].Name < tracks[j].Name })
	return tracks, nil
}

// DeleteTrack removes the track record and every fingerprint it owns.
func (s *BadgerStore) DeleteTrack(trackID string) error {
	if s == nil || s.db == nil {
		return errors.New(errDBClientNil)
	}

	var rec badgerTrack
	var keys [][]byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(trackPrefix + trackID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrTrackNotFound
		}
		if err != nil {
			return err
		}
		if rec, err = decodeTrack(item); err != nil {
			return err
		}

		prefix := []byte(reversePrefix + trackID + "/")
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := it.Item().KeyCopy(nil)
			hash, anchor, _ := strings.Cut(string(key[len(prefix):]), "/")
			keys = append(keys, key, []byte(hashPrefix+hash+"/"+trackID+"/"+anchor))
		}
		return nil
	})
	if errors.Is(err, ErrTrackNotFound) {
		return ErrTrackNotFound
	}
	if err != nil {
		return fmt.Errorf("collecting track keys: %w", err)
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()
	keys = append(keys, []byte(trackPrefix+trackID), []byte(namePrefix+rec.Name))
	for _, k := range keys {
		if err := wb.Delete(k); err != nil {
			return fmt.Errorf("deleting track: %w", err)
		}
	}
	if err := wb.Flush(); err != nil {
		return fmt.Errorf("deleting track: %w", err)
	}
	return nil
}
