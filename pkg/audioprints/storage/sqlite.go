package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/himanishpuri/audioprints/pkg/audioprints/fingerprint"
	"github.com/himanishpuri/audioprints/pkg/models"
)

const DefaultDBFile = "audioprints.sqlite3"

// SQLite caps the number of bound variables per statement.
const lookupChunk = 500

type DBClient struct {
	DB *gorm.DB
	db *sql.DB
}

type Track struct {
	ID         string `gorm:"primaryKey;type:varchar(36)"`
	Name       string `gorm:"uniqueIndex:idx_track_name"`
	SourcePath string
	SampleRate int
	DurationMs int
	CreatedAt  time.Time
}

type Fingerprint struct {
	ID         uint   `gorm:"primaryKey;autoIncrement"`
	Hash       string `gorm:"type:varchar(64);index:idx_hash"`
	TrackID    string `gorm:"type:varchar(36);index:idx_track"`
	AnchorTime int
}

func (t Track) model(count int) models.Track {
	return models.Track{
		ID:               t.ID,
		Name:             t.Name,
		SourcePath:       t.SourcePath,
		SampleRate:       t.SampleRate,
		DurationMs:       t.DurationMs,
		FingerprintCount: count,
		CreatedAt:        t.CreatedAt,
	}
}

// NewDBClient opens (creating if needed) the SQLite database at dbPath and
// migrates the schema.
func NewDBClient(dbPath string) (*DBClient, error) {
	if dbPath == "" {
		dbPath = DefaultDBFile
	}
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating db dir: %w", err)
		}
	}

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}

	db, err := gorm.Open(sqlite.Open(dbPath+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql.DB from gorm: %w", err)
	}

	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&Track{}, &Fingerprint{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("auto migrate: %w", err)
	}

	return &DBClient{DB: db, db: sqlDB}, nil
}

func (c *DBClient) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// RegisterTrack stores the track metadata and returns its ID. If a track with
// the same name exists its ID is returned along with ErrTrackExists.
func (c *DBClient) RegisterTrack(track models.Track) (string, error) {
	if c == nil || c.DB == nil {
		return "", errors.New(errDBClientNil)
	}

	var existing Track
	err := c.DB.Where("name = ?", track.Name).First(&existing).Error
	if err == nil {
		return existing.ID, ErrTrackExists
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", fmt.Errorf("querying existing track: %w", err)
	}

	id := track.ID
	if id == "" {
		id = uuid.NewString()
	}
	row := Track{
		ID:         id,
		Name:       track.Name,
		SourcePath: track.SourcePath,
		SampleRate: track.SampleRate,
		DurationMs: track.DurationMs,
	}
	if err := c.DB.Create(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(err.Error(), "UNIQUE constraint failed") {
			if fetchErr := c.DB.Where("name = ?", track.Name).First(&existing).Error; fetchErr != nil {
				return "", fmt.Errorf("fetching track after constraint violation: %w", fetchErr)
			}
			return existing.ID, ErrTrackExists
		}
		return "", fmt.Errorf("creating track: %w", err)
	}
	return id, nil
}

func (c *DBClient) DeleteTrack(trackID string) error {
	if c == nil || c.DB == nil {
		return errors.New(errDBClientNil)
	}
	return c.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("track_id = ?", trackID).Delete(&Fingerprint{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", trackID).Delete(&Track{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrTrackNotFound
		}
		return nil
	})
}

func (c *DBClient) StoreFingerprints(fps []fingerprint.Fingerprint) error {
	if c == nil || c.DB == nil {
		return errors.New(errDBClientNil)
	}
	if len(fps) == 0 {
		return nil
	}

	rows := make([]Fingerprint, len(fps))
	for i, fp := range fps {
		rows[i] = Fingerprint{Hash: fp.Hash, TrackID: fp.TrackID, AnchorTime: fp.AnchorTime}
	}
	return c.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.CreateInBatches(rows, 500).Error; err != nil {
			return fmt.Errorf("batch insert fingerprints: %w", err)
		}
		return nil
	})
}

func (c *DBClient) LookupHash(hash string) ([]models.Posting, error) {
	if c == nil || c.DB == nil {
		return nil, errors.New(errDBClientNil)
	}
	var rows []Fingerprint
	if err := c.DB.Where("hash = ?", hash).Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("querying fingerprints: %w", err)
	}
	out := make([]models.Posting, 0, len(rows))
	for _, r := range rows {
		out = append(out, models.Posting{TrackID: r.TrackID, AnchorTime: r.AnchorTime})
	}
	return out, nil
}

func (c *DBClient) LookupHashes(hashes []string) (map[string][]models.Posting, error) {
	if c == nil || c.DB == nil {
		return nil, errors.New(errDBClientNil)
	}
	result := make(map[string][]models.Posting)

	for start := 0; start < len(hashes); start += lookupChunk {
		end := min(start+lookupChunk, len(hashes))
		var rows []Fingerprint
		if err := c.DB.Where("hash IN ?", hashes[start:end]).Order("id").Find(&rows).Error; err != nil {
			return nil, fmt.Errorf("batch querying fingerprints: %w", err)
		}
		for _, r := range rows {
			result[r.Hash] = append(result[r.Hash], models.Posting{
				TrackID:    r.TrackID,
				AnchorTime: r.AnchorTime,
			})
		}
	}
	return result, nil
}

func (c *DBClient) GetTrack(trackID string) (*models.Track, error) {
	if c == nil || c.DB == nil {
		return nil, errors.New(errDBClientNil)
	}
	var row Track
	if err := c.DB.Where("id = ?", trackID).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTrackNotFound
		}
		return nil, fmt.Errorf("querying track: %w", err)
	}
	count, err := c.FingerprintCount(trackID)
	if err != nil {
		return nil, err
	}
	track := row.model(count)
	return &track, nil
}

func (c *DBClient) FingerprintCount(trackID string) (int, error) {
	if c == nil || c.DB == nil {
		return 0, errors.New(errDBClientNil)
	}
	var count int64
	if err := c.DB.Model(&Fingerprint{}).Where("track_id = ?", trackID).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("counting fingerprints: %w", err)
	}
	return int(count), nil
}

func (c *DBClient) ListTracks() ([]models.Track, error) {
	if c == nil || c.DB == nil {
		return nil, errors.New(errDBClientNil)
	}
	return c.findTracks(c.DB)
}

// SearchTracks returns tracks whose name contains query, ignoring case.
func (c *DBClient) SearchTracks(query string) ([]models.Track, error) {
	if c == nil || c.DB == nil {
		return nil, errors.New(errDBClientNil)
	}
	pattern := "%" + strings.ToLower(query) + "%"
	return c.findTracks(c.DB.Where("LOWER(name) LIKE ?", pattern))
}

func (c *DBClient) findTracks(q *gorm.DB) ([]models.Track, error) {
	var rows []Track
	if err := q.Order("name").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("listing tracks: %w", err)
	}

	var counts []struct {
		TrackID string
		N       int
	}
	if err := c.DB.Model(&Fingerprint{}).Select("track_id, COUNT(*) AS n").Group("track_id").Scan(&counts).Error; err != nil {
		return nil, fmt.Errorf("counting fingerprints: %w", err)
	}
	byTrack := make(map[string]int, len(counts))
	for _, cnt := range counts {
		byTrack[cnt.TrackID] = cnt.N
	}

	tracks := make([]models.Track, len(rows))
	for i, row := range rows {
		tracks[i] = row.model(byTrack[row.ID])
	}
	return tracks, nil
}
