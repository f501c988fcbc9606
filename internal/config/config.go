package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"runtime"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/ini.v1"

	"github.com/himanishpuri/audioprints/pkg/audioprints"
	"github.com/himanishpuri/audioprints/pkg/audioprints/fingerprint"
)

const (
	DefaultConfigFile = "audioprints.ini"
	DefaultListen     = ":8080"

	EnvDBPath  = "AUDIOPRINTS_DB_PATH"
	EnvBackend = "AUDIOPRINTS_BACKEND"
	EnvWorkers = "AUDIOPRINTS_WORKERS"
	EnvListen  = "AUDIOPRINTS_LISTEN"
	EnvHash    = "AUDIOPRINTS_HASH"
)

// Config is the runtime configuration shared by the CLI and the server.
type Config struct {
	DBPath     string
	Backend    audioprints.Backend
	Workers    int
	Listen     string
	Extraction fingerprint.Config
}

func Default() Config {
	return Config{
		DBPath:     "audioprints.sqlite3",
		Backend:    audioprints.BackendSQLite,
		Workers:    runtime.NumCPU(),
		Listen:     DefaultListen,
		Extraction: fingerprint.DefaultConfig(),
	}
}

// Load layers, lowest first: defaults, the INI file at iniPath (skipped when
// it does not exist), variables from envFile (a missing file is fine) and the
// process environment. Variables already set in the environment win over
// envFile. Flags are applied by the caller on top.
func Load(iniPath, envFile string) (Config, error) {
	cfg := Default()

	if iniPath != "" {
		if _, err := os.Stat(iniPath); err == nil {
			if err := cfg.applyINI(iniPath); err != nil {
				return cfg, err
			}
		} else if !errors.Is(err, fs.ErrNotExist) {
			return cfg, fmt.Errorf("checking config file: %w", err)
		}
	}

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return cfg, fmt.Errorf("loading %s: %w", envFile, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}

	if err := cfg.Extraction.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyINI(path string) error {
	file, err := ini.Load(path)
	if err != nil {
		return fmt.Errorf("failed to load config file: %w", err)
	}

	st := file.Section("storage")
	if v := st.Key("backend").String(); v != "" {
		if c.Backend, err = audioprints.ParseBackend(v); err != nil {
			return err
		}
	}
	if v := st.Key("path").String(); v != "" {
		c.DBPath = v
	}
	if st.HasKey("workers") {
		if c.Workers, err = st.Key("workers").Int(); err != nil {
			return fmt.Errorf("storage.workers: %w", err)
		}
	}

	if v := file.Section("server").Key("listen").String(); v != "" {
		c.Listen = v
	}

	ex := file.Section("extraction")
	ints := []struct {
		key string
		dst *int
	}{
		{"sample_rate", &c.Extraction.SampleRate},
		{"window_size", &c.Extraction.WindowSize},
		{"neighborhood_radius", &c.Extraction.NeighborhoodRadius},
		{"fan_value", &c.Extraction.FanValue},
		{"min_hash_delta", &c.Extraction.MinHashDelta},
		{"max_hash_delta", &c.Extraction.MaxHashDelta},
	}
	for _, f := range ints {
		if !ex.HasKey(f.key) {
			continue
		}
		if *f.dst, err = ex.Key(f.key).Int(); err != nil {
			return fmt.Errorf("extraction.%s: %w", f.key, err)
		}
	}

	floats := []struct {
		key string
		dst *float64
	}{
		{"overlap_ratio", &c.Extraction.OverlapRatio},
		{"min_amplitude", &c.Extraction.MinAmplitude},
	}
	for _, f := range floats {
		if !ex.HasKey(f.key) {
			continue
		}
		if *f.dst, err = ex.Key(f.key).Float64(); err != nil {
			return fmt.Errorf("extraction.%s: %w", f.key, err)
		}
	}

	if v := ex.Key("hash_algorithm").String(); v != "" {
		if c.Extraction.HashAlgorithm, err = fingerprint.ParseHashAlgorithm(v); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) applyEnv() error {
	var err error
	if v := os.Getenv(EnvDBPath); v != "" {
		c.DBPath = v
	}
	if v := os.Getenv(EnvBackend); v != "" {
		if c.Backend, err = audioprints.ParseBackend(v); err != nil {
			return fmt.Errorf("%s: %w", EnvBackend, err)
		}
	}
	if v := os.Getenv(EnvWorkers); v != "" {
		if c.Workers, err = strconv.Atoi(v); err != nil {
			return fmt.Errorf("%s: %w", EnvWorkers, err)
		}
	}
	if v := os.Getenv(EnvListen); v != "" {
		c.Listen = v
	}
	if v := os.Getenv(EnvHash); v != "" {
		if c.Extraction.HashAlgorithm, err = fingerprint.ParseHashAlgorithm(v); err != nil {
			return fmt.Errorf("%s: %w", EnvHash, err)
		}
	}
	return nil
}

// ServiceOptions turns the configuration into service options.
func (c Config) ServiceOptions() []audioprints.Option {
	return []audioprints.Option{
		audioprints.WithDBPath(c.DBPath),
		audioprints.WithBackend(c.Backend),
		audioprints.WithWorkers(c.Workers),
		audioprints.WithExtraction(c.Extraction),
	}
}
