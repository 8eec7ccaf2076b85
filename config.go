package cache

import (
	"time"

	"github.com/rs/zerolog"
)

// Strategy selects which underlying cache backs the façade.
type Strategy string

const (
	StrategySimple    Strategy = "simple"
	StrategyMultiTier Strategy = "multitier"
	StrategyAdaptive  Strategy = "adaptive"
)

/*
Config is the explicit configuration record for a cache instance. Every
tunable knob has a field here. DefaultConfig and NewConfig start from the
documented defaults; a struct literal keeps its zero values, and those are
not replaced with the defaults when the Config is used.

Config is built either directly as a struct literal or through the
functional-options helpers below.
*/
type Config struct {
	Strategy Strategy

	// Sizes
	MaxSize      int
	L1MaxSize    int
	L2MaxSize    int
	L3MaxSize    int
	QueueMaxSize int

	// TTLs
	DefaultTTL time.Duration
	L1TTL      time.Duration
	L2TTL      time.Duration
	L3TTL      time.Duration

	// Thresholds
	HotThreshold         int
	WarmThreshold        int
	CompressionThreshold int // bytes
	MemoryThreshold      float64
	SwitchThreshold      float64
	MinConfidence        float64

	// Intervals
	CleanupInterval      time.Duration
	EvaluationInterval   time.Duration
	WarmingInterval      time.Duration
	OptimizationInterval time.Duration
	ScaleCheckInterval   time.Duration

	// Flags
	EnableCompression bool
	EnableWarming     bool
	AutoOptimize      bool
	EnableStats       bool

	// Injected
	DataLoader Loader
	Compressor Compressor
	Clock      Clock

	// Logger receives one Info event per auto-tune action. Loader and
	// compression failures are counted, not logged, and are never surfaced
	// to a caller. Never called while a cache's lock is held. Defaults to a
	// no-op logger.
	Logger zerolog.Logger
}

// DefaultConfig returns a Config with every documented default applied.
func DefaultConfig() Config {
	return Config{
		Strategy: StrategySimple,

		MaxSize:      1000,
		L1MaxSize:    100,
		L2MaxSize:    500,
		L3MaxSize:    2000,
		QueueMaxSize: 256,

		DefaultTTL: 5 * time.Minute,
		L1TTL:      1 * time.Minute,
		L2TTL:      10 * time.Minute,
		L3TTL:      1 * time.Hour,

		HotThreshold:         5,
		WarmThreshold:        2,
		CompressionThreshold: 1024,
		MemoryThreshold:      0.85,
		SwitchThreshold:      0.10,
		MinConfidence:        0.5,

		CleanupInterval:      30 * time.Second,
		EvaluationInterval:   1 * time.Minute,
		WarmingInterval:      1 * time.Minute,
		OptimizationInterval: 5 * time.Minute,
		ScaleCheckInterval:   30 * time.Second,

		EnableCompression: true,
		EnableWarming:     true,
		AutoOptimize:      true,
		EnableStats:       true,

		Clock:  SystemClock{},
		Logger: zerolog.Nop(),
	}
}

// WithLogger attaches a structured logger for internal, swallowed events.
func WithLogger(l zerolog.Logger) Option { return func(c *Config) { c.Logger = l } }

// Option mutates a Config, following the functional-options pattern used
// throughout this module's constructors.
type Option func(*Config)

func WithStrategy(s Strategy) Option { return func(c *Config) { c.Strategy = s } }

func WithMaxSize(n int) Option { return func(c *Config) { c.MaxSize = n } }

func WithTierSizes(l1, l2, l3 int) Option {
	return func(c *Config) { c.L1MaxSize, c.L2MaxSize, c.L3MaxSize = l1, l2, l3 }
}

func WithDefaultTTL(d time.Duration) Option { return func(c *Config) { c.DefaultTTL = d } }

func WithTierTTLs(l1, l2, l3 time.Duration) Option {
	return func(c *Config) { c.L1TTL, c.L2TTL, c.L3TTL = l1, l2, l3 }
}

func WithThresholds(hot, warm int) Option {
	return func(c *Config) { c.HotThreshold, c.WarmThreshold = hot, warm }
}

func WithCompressionThreshold(bytes int) Option {
	return func(c *Config) { c.CompressionThreshold = bytes }
}

func WithMemoryThreshold(fraction float64) Option {
	return func(c *Config) { c.MemoryThreshold = fraction }
}

func WithSwitchThreshold(t float64) Option { return func(c *Config) { c.SwitchThreshold = t } }

func WithMinConfidence(t float64) Option { return func(c *Config) { c.MinConfidence = t } }

func WithCleanupInterval(d time.Duration) Option { return func(c *Config) { c.CleanupInterval = d } }

func WithEvaluationInterval(d time.Duration) Option {
	return func(c *Config) { c.EvaluationInterval = d }
}

func WithWarmingInterval(d time.Duration) Option { return func(c *Config) { c.WarmingInterval = d } }

func WithOptimizationInterval(d time.Duration) Option {
	return func(c *Config) { c.OptimizationInterval = d }
}

func WithCompression(enabled bool) Option { return func(c *Config) { c.EnableCompression = enabled } }

func WithWarmingEnabled(enabled bool) Option { return func(c *Config) { c.EnableWarming = enabled } }

func WithAutoOptimize(enabled bool) Option { return func(c *Config) { c.AutoOptimize = enabled } }

func WithDataLoader(l Loader) Option { return func(c *Config) { c.DataLoader = l } }

func WithCompressor(comp Compressor) Option { return func(c *Config) { c.Compressor = comp } }

func WithClock(clk Clock) Option { return func(c *Config) { c.Clock = clk } }

// NewConfig applies opts over DefaultConfig.
func NewConfig(opts ...Option) Config {
	c := DefaultConfig()
	for _, opt := range opts {
		opt(&c)
	}
	if c.Clock == nil {
		c.Clock = SystemClock{}
	}
	return c
}
