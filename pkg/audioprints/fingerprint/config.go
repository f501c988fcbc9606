package fingerprint

// ------------------------ Defaults (change for experiments) ------------------------
const (
	// DefaultSampleRate is the rate assumed when the caller does not supply one.
	DefaultSampleRate = 44100

	// DefaultWindowSize is the FFT window length in samples.
	DefaultWindowSize = 4096

	// DefaultOverlapRatio is the share of each window that overlaps the next one.
	DefaultOverlapRatio = 0.5

	// DefaultMinAmplitude is the dB floor a peak must strictly exceed.
	DefaultMinAmplitude = 20.0

	// DefaultNeighborhoodRadius is the number of cross dilations that build the
	// peak neighborhood (a diamond of that radius).
	DefaultNeighborhoodRadius = 20

	// DefaultFanValue bounds how many following peaks an anchor is paired with
	// (the anchor looks at fanValue-1 neighbours).
	DefaultFanValue = 15

	// Inclusive frame delta bounds for a pair.
	DefaultMinHashDelta = 0
	DefaultMaxHashDelta = 200
)

// Config carries every tunable of the extraction pipeline. The zero value is
// not usable; start from DefaultConfig.
type Config struct {
	SampleRate         int
	WindowSize         int
	OverlapRatio       float64
	MinAmplitude       float64
	NeighborhoodRadius int
	FanValue           int
	MinHashDelta       int
	MaxHashDelta       int
	HashAlgorithm      HashAlgorithm
}

// Option mutates a Config.
type Option func(*Config)

// DefaultConfig returns the documented pipeline defaults.
func DefaultConfig() Config {
	return Config{
		SampleRate:         DefaultSampleRate,
		WindowSize:         DefaultWindowSize,
		OverlapRatio:       DefaultOverlapRatio,
		MinAmplitude:       DefaultMinAmplitude,
		NeighborhoodRadius: DefaultNeighborhoodRadius,
		FanValue:           DefaultFanValue,
		MinHashDelta:       DefaultMinHashDelta,
		MaxHashDelta:       DefaultMaxHashDelta,
		HashAlgorithm:      SHA1,
	}
}

// NewConfig applies opts on top of DefaultConfig.
func NewConfig(opts ...Option) Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

func WithSampleRate(rate int) Option {
	return func(c *Config) {
		c.SampleRate = rate
	}
}

func WithWindowSize(size int) Option {
	return func(c *Config) {
		c.WindowSize = size
	}
}

func WithOverlapRatio(ratio float64) Option {
	return func(c *Config) {
		c.OverlapRatio = ratio
	}
}

func WithMinAmplitude(db float64) Option {
	return func(c *Config) {
		c.MinAmplitude = db
	}
}

func WithNeighborhoodRadius(radius int) Option {
	return func(c *Config) {
		c.NeighborhoodRadius = radius
	}
}

func WithFanValue(fan int) Option {
	return func(c *Config) {
		c.FanValue = fan
	}
}

// WithHashDelta sets the inclusive frame delta window for pairing.
func WithHashDelta(minDelta, maxDelta int) Option {
	return func(c *Config) {
		c.MinHashDelta = minDelta
		c.MaxHashDelta = maxDelta
	}
}

func WithHashAlgorithm(algo HashAlgorithm) Option {
	return func(c *Config) {
		c.HashAlgorithm = algo
	}
}

// Validate checks the parameters that do not depend on the input signal.
// Window size against sample count is checked by BuildSpectrogram.
func (c Config) Validate() error {
	if c.SampleRate <= 0 {
		return configError("sample_rate", c.SampleRate, "must be positive")
	}
	if c.WindowSize <= 0 {
		return configError("window_size", c.WindowSize, "must be positive")
	}
	if err := validateOverlap(c.WindowSize, c.OverlapRatio); err != nil {
		return err
	}
	if err := validateDetector(c.MinAmplitude, c.NeighborhoodRadius); err != nil {
		return err
	}
	if err := validateGenerator(c.FanValue, c.MinHashDelta, c.MaxHashDelta); err != nil {
		return err
	}
	if !c.HashAlgorithm.valid() {
		return configError("hash_algorithm", c.HashAlgorithm, "unsupported digest")
	}
	return nil
}
