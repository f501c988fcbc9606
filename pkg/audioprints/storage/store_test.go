package storage

import (
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/himanishpuri/audioprints/pkg/audioprints/fingerprint"
	"github.com/himanishpuri/audioprints/pkg/models"
)

// store is the method set shared by both backends.
type store interface {
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

var (
	_ store = (*DBClient)(nil)
	_ store = (*BadgerStore)(nil)
)

// forEachBackend runs fn against a fresh SQLite file and a fresh in-memory
// Badger store.
func forEachBackend(t *testing.T, fn func(t *testing.T, s store)) {
	t.Helper()

	t.Run("sqlite", func(t *testing.T) {
		client, err := NewDBClient(filepath.Join(t.TempDir(), "test_audioprints.sqlite3"))
		if err != nil {
			t.Fatalf("Failed to create test DB client: %v", err)
		}
		t.Cleanup(func() { client.Close() })
		fn(t, client)
	})

	t.Run("badger", func(t *testing.T) {
		bs, err := NewBadgerStore("")
		if err != nil {
			t.Fatalf("Failed to open in-memory badger: %v", err)
		}
		t.Cleanup(func() { bs.Close() })
		fn(t, bs)
	})
}

func makeFingerprints(trackID string, hashes ...string) []fingerprint.Fingerprint {
	fps := make([]fingerprint.Fingerprint, len(hashes))
	for i, h := range hashes {
		fps[i] = fingerprint.Fingerprint{TrackID: trackID, AnchorTime: i * 3, Hash: h}
	}
	return fps
}

func TestRegisterTrack(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s store) {
		id, err := s.RegisterTrack(models.Track{Name: "Test Song", SourcePath: "/music/test.wav", SampleRate: 44100, DurationMs: 180000})
		if err != nil {
			t.Fatalf("Failed to register track: %v", err)
		}
		if len(id) != 36 {
			t.Errorf("Expected UUID track ID, got %q", id)
		}

		track, err := s.GetTrack(id)
		if err != nil {
			t.Fatalf("Failed to get track: %v", err)
		}
		if track.Name != "Test Song" || track.SourcePath != "/music/test.wav" || track.SampleRate != 44100 || track.DurationMs != 180000 {
			t.Errorf("Unexpected track record: %+v", track)
		}
		if track.CreatedAt.IsZero() {
			t.Error("Expected CreatedAt to be set")
		}
	})
}

func TestRegisterTrackDuplicateName(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s store) {
		first, err := s.RegisterTrack(models.Track{Name: "Duplicate"})
		if err != nil {
			t.Fatalf("Failed to register track: %v", err)
		}

		second, err := s.RegisterTrack(models.Track{Name: "Duplicate", SourcePath: "other.wav"})
		if !errors.Is(err, ErrTrackExists) {
			t.Fatalf("Expected ErrTrackExists, got %v", err)
		}
		if second != first {
			t.Errorf("Expected existing ID %s, got %s", first, second)
		}
	})
}

func TestStoreAndLookup(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s store) {
		a, _ := s.RegisterTrack(models.Track{Name: "A"})
		b, _ := s.RegisterTrack(models.Track{Name: "B"})

		if err := s.StoreFingerprints(makeFingerprints(a, "aaa", "shared", "bbb")); err != nil {
			t.Fatalf("Failed to store fingerprints: %v", err)
		}
		if err := s.StoreFingerprints(makeFingerprints(b, "shared", "ccc")); err != nil {
			t.Fatalf("Failed to store fingerprints: %v", err)
		}

		postings, err := s.LookupHash("shared")
		if err != nil {
			t.Fatalf("LookupHash failed: %v", err)
		}
		if len(postings) != 2 {
			t.Fatalf("Expected 2 postings for shared hash, got %d", len(postings))
		}
		found := map[models.Posting]bool{}
		for _, p := range postings {
			found[p] = true
		}
		if !found[models.Posting{TrackID: a, AnchorTime: 3}] || !found[models.Posting{TrackID: b, AnchorTime: 0}] {
			t.Errorf("Unexpected postings: %+v", postings)
		}

		missing, err := s.LookupHash("nope")
		if err != nil {
			t.Fatalf("LookupHash failed: %v", err)
		}
		if len(missing) != 0 {
			t.Errorf("Expected no postings, got %+v", missing)
		}

		batch, err := s.LookupHashes([]string{"aaa", "ccc", "nope", "aaa"})
		if err != nil {
			t.Fatalf("LookupHashes failed: %v", err)
		}
		if len(batch) != 2 {
			t.Errorf("Expected 2 matched hashes, got %d", len(batch))
		}
		if len(batch["aaa"]) != 1 || batch["aaa"][0].TrackID != a {
			t.Errorf("Unexpected bucket for aaa: %+v", batch["aaa"])
		}
		if _, ok := batch["nope"]; ok {
			t.Error("Did not expect a bucket for an unknown hash")
		}
	})
}

func TestLookupHashesChunking(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s store) {
		id, _ := s.RegisterTrack(models.Track{Name: "Long"})

		hashes := make([]string, 1200)
		for i := range hashes {
			hashes[i] = fmt.Sprintf("%040x", i)
		}
		if err := s.StoreFingerprints(makeFingerprints(id, hashes...)); err != nil {
			t.Fatalf("Failed to store fingerprints: %v", err)
		}

		batch, err := s.LookupHashes(hashes)
		if err != nil {
			t.Fatalf("LookupHashes failed: %v", err)
		}
		if len(batch) != len(hashes) {
			t.Errorf("Expected %d buckets, got %d", len(hashes), len(batch))
		}

		count, err := s.FingerprintCount(id)
		if err != nil {
			t.Fatalf("FingerprintCount failed: %v", err)
		}
		if count != len(hashes) {
			t.Errorf("Expected %d fingerprints, got %d", len(hashes), count)
		}
	})
}

func TestListAndSearchTracks(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s store) {
		for _, name := range []string{"Sandstorm", "Blue Monday", "Sand Castle"} {
			id, err := s.RegisterTrack(models.Track{Name: name})
			if err != nil {
				t.Fatalf("Failed to register %s: %v", name, err)
			}
			if name == "Blue Monday" {
				if err := s.StoreFingerprints(makeFingerprints(id, "x", "y")); err != nil {
					t.Fatalf("Failed to store fingerprints: %v", err)
				}
			}
		}

		tracks, err := s.ListTracks()
		if err != nil {
			t.Fatalf("ListTracks failed: %v", err)
		}
		if len(tracks) != 3 {
			t.Fatalf("Expected 3 tracks, got %d", len(tracks))
		}
		if tracks[0].Name != "Blue Monday" || tracks[0].FingerprintCount != 2 {
			t.Errorf("Expected Blue Monday first with 2 fingerprints, got %+v", tracks[0])
		}

		matches, err := s.SearchTracks("SAND")
		if err != nil {
			t.Fatalf("SearchTracks failed: %v", err)
		}
		if len(matches) != 2 {
			t.Fatalf("Expected 2 matches for SAND, got %d", len(matches))
		}
		if matches[0].Name != "Sand Castle" || matches[1].Name != "Sandstorm" {
			t.Errorf("Unexpected search order: %s, %s", matches[0].Name, matches[1].Name)
		}

		none, err := s.SearchTracks("zzz")
		if err != nil {
			t.Fatalf("SearchTracks failed: %v", err)
		}
		if len(none) != 0 {
			t.Errorf("Expected no matches, got %d", len(none))
		}
	})
}

func TestDeleteTrack(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s store) {
		keep, _ := s.RegisterTrack(models.Track{Name: "Keep"})
		drop, _ := s.RegisterTrack(models.Track{Name: "Drop"})
		s.StoreFingerprints(makeFingerprints(keep, "h1", "h2"))
		s.StoreFingerprints(makeFingerprints(drop, "h1", "h3"))

		if err := s.DeleteTrack(drop); err != nil {
			t.Fatalf("DeleteTrack failed: %v", err)
		}

		if _, err := s.GetTrack(drop); !errors.Is(err, ErrTrackNotFound) {
			t.Errorf("Expected ErrTrackNotFound after delete, got %v", err)
		}
		postings, _ := s.LookupHash("h1")
		if len(postings) != 1 || postings[0].TrackID != keep {
			t.Errorf("Expected only the kept track in h1, got %+v", postings)
		}
		if p, _ := s.LookupHash("h3"); len(p) != 0 {
			t.Errorf("Expected h3 to be gone, got %+v", p)
		}
		if n, _ := s.FingerprintCount(drop); n != 0 {
			t.Errorf("Expected 0 fingerprints for deleted track, got %d", n)
		}

		// the name is free again
		if _, err := s.RegisterTrack(models.Track{Name: "Drop"}); err != nil {
			t.Errorf("Expected to re-register a deleted name, got %v", err)
		}

		if err := s.DeleteTrack("no-such-id"); !errors.Is(err, ErrTrackNotFound) {
			t.Errorf("Expected ErrTrackNotFound for unknown id, got %v", err)
		}
	})
}

func TestGetTrackNotFound(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s store) {
		if _, err := s.GetTrack("missing"); !errors.Is(err, ErrTrackNotFound) {
			t.Errorf("Expected ErrTrackNotFound, got %v", err)
		}
	})
}

func TestNewDBClientCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "subdir", "custom.db")

	client, err := NewDBClient(path)
	if err != nil {
		t.Fatalf("Failed to create client with nested path: %v", err)
	}
	defer client.Close()

	if client.DB == nil || client.db == nil {
		t.Fatal("Expected both gorm and sql handles")
	}
}

func TestNilClient(t *testing.T) {
	var c *DBClient
	if _, err := c.RegisterTrack(models.Track{Name: "x"}); err == nil {
		t.Error("Expected error from nil client")
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close on nil client should be a no-op, got %v", err)
	}
}
