package audioprints

import (
	"runtime"
	"time"

	"github.com/himanishpuri/audioprints/pkg/audioprints/fingerprint"
)

type Config struct {
	DBPath      string
	Backend     Backend
	Extraction  fingerprint.Config
	Workers     int
	WatchSettle time.Duration
	Logger      Logger
	Storage     Storage
}

type Option func(*Config)

func WithDBPath(path string) Option {
	return func(c *Config) {
		c.DBPath = path
	}
}

func WithBackend(backend Backend) Option {
	return func(c *Config) {
		c.Backend = backend
	}
}

// WithExtraction replaces the pipeline parameters. The sample rate in cfg is
// only a fallback; decoded files use their own rate.
func WithExtraction(cfg fingerprint.Config) Option {
	return func(c *Config) {
		c.Extraction = cfg
	}
}

func WithWorkers(n int) Option {
	return func(c *Config) {
		c.Workers = n
	}
}

// WithWatchSettle sets how long a watched file must stay unchanged before it
// is indexed.
func WithWatchSettle(d time.Duration) Option {
	return func(c *Config) {
		c.WatchSettle = d
	}
}

func WithLogger(log Logger) Option {
	return func(c *Config) {
		c.Logger = log
	}
}

func WithStorage(storage Storage) Option {
	return func(c *Config) {
		c.Storage = storage
	}
}

func defaultConfig() *Config {
	return &Config{
		DBPath:      "audioprints.sqlite3",
		Backend:     BackendSQLite,
		Extraction:  fingerprint.DefaultConfig(),
		Workers:     runtime.NumCPU(),
		WatchSettle: time.Second,
		Logger:      nil,
	}
}
